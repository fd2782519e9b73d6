// Package live escuta o WebSocket de sorteios ao vivo e antecipa a coleta
// quando uma extração é anunciada.
package live

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/pkg/contracts/events"
)

// WSClient reconecta com backoff fixo e repassa cada sorteio anunciado
type WSClient struct {
	URL     string
	Log     *zap.Logger
	Backoff time.Duration
	OnDraw  func(ctx context.Context, d events.DrawResult)
}

// Start roda até o contexto ser cancelado
func (c *WSClient) Start(ctx context.Context) {
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 3 * time.Second
	}
	for {
		if ctx.Err() != nil {
			c.Log.Info("context canceled, stopping live draw client")
			return
		}
		if err := c.connectAndListen(ctx); err != nil {
			c.Log.Warn("live draw connection closed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
		}
	}
}

func (c *WSClient) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.Log.Info("connected to live draw ws", zap.String("url", c.URL))

	// fecha a conexão no cancelamento para destravar o ReadMessage
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		var d events.DrawResult
		if err := json.Unmarshal(message, &d); err != nil {
			c.Log.Warn("invalid live draw message", zap.Error(err))
			continue
		}
		if d.Lottery == "" {
			c.Log.Warn("live draw message without lottery")
			continue
		}
		if c.OnDraw != nil {
			c.OnDraw(ctx, d)
		}
	}
}
