// Package ws entrega alertas de exposição aos operadores via WebSocket.
package ws

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const allModalities = "*"

// conn serializa as escritas; o gorilla não aceita escritas concorrentes
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(kind int, b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(kind, b)
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// Hub mantém as conexões e as assinaturas por modalidade
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// modalidade -> conexões
	subs map[string]map[*conn]struct{}
}

// NewHub cria o hub com a política de origem informada
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*conn]struct{}),
	}
}

func topic(modality string) string {
	m := strings.ToUpper(strings.TrimSpace(modality))
	if m == "" {
		return allModalities
	}
	return m
}

// HandleWS cuida do ciclo de vida da conexão: subscribe/unsubscribe/ping
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &conn{ws: ws}
	defer ws.Close()

	for {
		var msg ClientMsg
		if err := ws.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			h.subscribe(c, topic(msg.Modality))
			_ = c.writeJSON(map[string]string{"type": "subscribed", "modality": topic(msg.Modality)})
		case "unsubscribe":
			h.unsubscribe(c, topic(msg.Modality))
		case "ping":
			_ = c.writeJSON(map[string]string{"type": "pong"})
		}
	}

	h.mu.Lock()
	for t, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, t)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) subscribe(c *conn, t string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[t]; !ok {
		h.subs[t] = make(map[*conn]struct{})
	}
	h.subs[t][c] = struct{}{}
}

func (h *Hub) unsubscribe(c *conn, t string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[t]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, t)
		}
	}
}

// Broadcast envia o payload bruto a quem assina a modalidade ou todas
func (h *Hub) Broadcast(modality string, payload []byte) int {
	h.mu.RLock()
	targets := make(map[*conn]struct{})
	for _, t := range []string{topic(modality), allModalities} {
		for c := range h.subs[t] {
			targets[c] = struct{}{}
		}
	}
	h.mu.RUnlock()

	for c := range targets {
		_ = c.write(websocket.TextMessage, payload)
	}
	return len(targets)
}
