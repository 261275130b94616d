package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"solar-system-ai/internal/sim"
)

// Client commands accepted on /ws
const (
	CommandToggleMovement = "toggle-movement"
	CommandToggleOrbits   = "toggle-orbits"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 16
)

// WebSocket upgrader with permissive origin check for cross-origin viewers
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans simulation snapshots out to connected /ws clients. Publish runs
// on the loop goroutine; slow clients miss frames instead of stalling it.
type Hub struct {
	every  int
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

// NewHub creates a hub that publishes every n frames. n < 1 means every frame.
func NewHub(every int, logger *zap.Logger) *Hub {
	if every < 1 {
		every = 1
	}
	return &Hub{
		every:   every,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Publish is a sim.FrameHook
func (h *Hub) Publish(s *sim.State, _ float64) {
	if s.Frame%uint64(h.every) != 0 {
		return
	}

	h.mu.Lock()
	n := len(h.clients)
	h.mu.Unlock()
	if n == 0 {
		return
	}

	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		h.logger.Error("Failed to marshal snapshot", zap.Error(err))
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.offer(c, data)
	}
}

// offer must be called with h.mu held
func (h *Hub) offer(c *wsClient, data []byte) {
	select {
	case c.send <- data:
	default:
		// drop the frame for this client
	}
}

// sendTo delivers data to one client if it is still registered
func (h *Hub) sendTo(c *wsClient, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.offer(c, data)
	}
}

func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		_ = c.conn.Close()
	}
}

// handleWebSocket streams snapshots to the client and applies its toggle
// commands on the frame loop
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientSendSize)}
	if !s.hub.register(c) {
		_ = conn.Close()
		return
	}
	s.metrics.ClientConnected()
	defer s.metrics.ClientDisconnected()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writePump(c)
	}()

	// first snapshot right away rather than waiting for the next publish
	_ = s.loop.Post(r.Context(), func(st *sim.State) {
		if data, err := json.Marshal(st.Snapshot()); err == nil {
			s.hub.sendTo(c, data)
		}
	})

	s.readPump(r.Context(), c)
	s.hub.unregister(c)
	<-done
}

func (s *Server) readPump(ctx context.Context, c *wsClient) {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		var fn func(*sim.State)
		switch cmd := strings.TrimSpace(string(msg)); cmd {
		case CommandToggleMovement:
			fn = func(st *sim.State) { st.ToggleMovement() }
		case CommandToggleOrbits:
			fn = func(st *sim.State) { st.SetOrbitsVisible(!st.OrbitsVisible) }
		default:
			s.logger.Debug("Ignoring unknown command", zap.String("command", cmd))
			continue
		}
		if err := s.loop.Post(ctx, fn); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *wsClient) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			// unblock readPump so the handler can unregister
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
