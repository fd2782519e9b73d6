package simulator

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type clientConn struct {
	id   string
	conn *websocket.Conn
}

// Hub mantém os clientes conectados e faz broadcast de cada sorteio novo
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[string]*clientConn
	seq      int
	log      *zap.Logger

	OnConnect func(delta int) // gauge de conexões
	OnSent    func()
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*clientConn),
		log:     log,
	}
}

func (h *Hub) add(conn *websocket.Conn) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	id := strconv.Itoa(h.seq)
	h.clients[id] = &clientConn{id: id, conn: conn}
	if h.OnConnect != nil {
		h.OnConnect(1)
	}
	h.log.Info("ws client connected", zap.String("client_id", id))
	return id
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		if h.OnConnect != nil {
			h.OnConnect(-1)
		}
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

// Clients devolve o número de conexões abertas
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast envia v para todos os clientes
func (h *Hub) Broadcast(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("ws marshal failed", zap.Error(err))
		return
	}
	// lock exclusivo: serializa as escritas por conexão
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", id), zap.Error(err))
			_ = c.conn.Close()
			continue
		}
		if h.OnSent != nil {
			h.OnSent()
		}
	}
}

// HandleWS registra o cliente e descarta o que ele enviar até desconectar
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	id := h.add(conn)
	go func() {
		defer func() {
			h.remove(id)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
