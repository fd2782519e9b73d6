package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/pkg/contracts/events"
)

func TestClientForwardsDraws(t *testing.T) {
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		_ = c.WriteMessage(websocket.TextMessage, []byte("garbage"))
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"drawTime":"14:20"}`))
		_ = c.WriteJSON(events.DrawResult{Lottery: "PT RIO", DrawTime: "14:20", Date: "2026-01-14"})
		// mantém a conexão até o cliente fechar
		_, _, _ = c.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []events.DrawResult
	c := &WSClient{
		URL: "ws" + strings.TrimPrefix(srv.URL, "http"),
		Log: zap.NewNop(),
		OnDraw: func(_ context.Context, d events.DrawResult) {
			mu.Lock()
			got = append(got, d)
			mu.Unlock()
			cancel()
		},
	}

	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "PT RIO", got[0].Lottery)
}
