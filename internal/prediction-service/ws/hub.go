package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/esports-prediction-poc/pkg/contracts/events"
)

// conn serializa as escritas: gorilla aceita só um escritor por conexão.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *conn) writeRaw(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

// Hub mantém as conexões WebSocket e as assinaturas por partida.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*conn]struct{} // matchID -> conexões
}

func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*conn]struct{}),
	}
}

// HandleWS atende uma conexão até o cliente desconectar.
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
			if msg.MatchID == "" {
				_ = c.write(map[string]string{"type": "error", "message": "matchId required"})
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.MatchID]; !ok {
				h.subs[msg.MatchID] = make(map[*conn]struct{})
			}
			h.subs[msg.MatchID][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.remove(msg.MatchID, c)
		case "ping":
			_ = c.write(map[string]string{"type": "pong"})
		}
	}

	h.mu.Lock()
	for id, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) remove(matchID string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[matchID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, matchID)
		}
	}
}

// Subscribers devolve quantas conexões assinam a partida.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[matchID])
}

// Broadcast envia a atualização para quem assina a partida.
func (h *Hub) Broadcast(u events.PoolUpdate) {
	h.mu.RLock()
	conns := make([]*conn, 0, len(h.subs[u.MatchID]))
	for c := range h.subs[u.MatchID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b, err := json.Marshal(PoolMsg{Type: "pool_update", MatchID: u.MatchID, Payload: u})
	if err != nil {
		return
	}
	for _, c := range conns {
		if err := c.writeRaw(b); err != nil {
			h.log.Debug("ws write failed", zap.String("matchId", u.MatchID), zap.Error(err))
		}
	}
}
