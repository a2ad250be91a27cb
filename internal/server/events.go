package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Faultbox/skinview/internal/markers"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	pongWait   = 40 * time.Second
)

// pointsMessage is pushed to event clients on connect and after every
// marker change.
type pointsMessage struct {
	Type   string             `json:"type"`
	Points []markers.MapPoint `json:"points"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans marker snapshots out to websocket clients. Clients that fall
// behind are dropped.
type hub struct {
	mu      sync.Mutex
	clients map[*wsClient]bool
	closed  bool
	log     *zap.Logger
}

func newHub(log *zap.Logger) *hub {
	return &hub{clients: make(map[*wsClient]bool), log: log}
}

func encodePoints(points []markers.MapPoint) []byte {
	data, err := json.Marshal(pointsMessage{Type: "points", Points: points})
	if err != nil {
		// MapPoint holds only strings and floats validated as finite.
		panic(err)
	}
	return data
}

func (h *hub) broadcast(points []markers.MapPoint) {
	data := encodePoints(points)

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Debug("dropping slow event client", zap.Stringer("remote", c.conn.RemoteAddr()))
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *hub) register(conn *websocket.Conn, initial []markers.MapPoint) {
	c := &wsClient{conn: conn, send: make(chan []byte, 16)}
	c.send <- encodePoints(initial)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(c.send)
		go c.writePump(h)
		return
	}
	h.clients[c] = true
	h.mu.Unlock()

	go c.writePump(h)
	go c.readPump(h)
}

func (h *hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// close disconnects every client and rejects new ones.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (c *wsClient) writePump(h *hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("event write failed", zap.Error(err))
				h.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

// readPump discards client messages and notices disconnects.
func (c *wsClient) readPump(h *hub) {
	defer h.unregister(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	// Registering inside View orders the initial snapshot before any
	// change broadcast to this client.
	s.markers.View(func(points []markers.MapPoint) {
		s.hub.register(conn, points)
	})
}
