package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StartRedisSubscriber escuta o canal de alertas e repassa ao hub
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	go func() {
		defer sub.Close()
		Pump(ctx, sub.Channel(), hub, log)
	}()
}

// Pump consome as mensagens até o contexto acabar ou o canal fechar
func Pump(ctx context.Context, ch <-chan *redis.Message, hub *Hub, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg == nil {
				continue
			}
			var upd AlertUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
				log.Warn("ws subscriber unmarshal error", zap.Error(err))
				continue
			}
			hub.Broadcast(upd.Payload.Modality, []byte(msg.Payload))
		}
	}
}
