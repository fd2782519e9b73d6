// Package pubsub espalha alertas de exposição pelo Redis Pub/Sub para as instâncias da API.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/bicho-settlement-engine/internal/exposure"
)

const ChannelAlertsBroadcast = "exposure_alerts_broadcast"

// Publisher é o subconjunto do redis.Client usado aqui
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisNotifier publica cada alerta no canal configurado
type RedisNotifier struct {
	r       Publisher
	Channel string
}

func NewRedisNotifier(r Publisher, channel string) *RedisNotifier {
	if channel == "" {
		channel = ChannelAlertsBroadcast
	}
	return &RedisNotifier{r: r, Channel: channel}
}

// Notify serializa o alerta no formato enviado aos clientes WebSocket
func (n *RedisNotifier) Notify(ctx context.Context, a exposure.Alert) error {
	b, err := json.Marshal(WSAlert{Type: "exposure_alert", Payload: a})
	if err != nil {
		return err
	}
	if err := n.r.Publish(ctx, n.Channel, b).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", n.Channel, err)
	}
	return nil
}

// WSAlert é o envelope repassado pelo hub aos clientes
type WSAlert struct {
	Type    string         `json:"type"`
	Payload exposure.Alert `json:"payload"`
}
