package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/observability"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

// client is one WebSocket connection subscribed to a screen.
type client struct {
	screen string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub streams element operations to the browsers watching each screen.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*client]bool
	replay   func(screen string) []render.Op
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewHub creates a hub. replay returns the operations that bring a new
// client of a screen up to date; it may be nil.
func NewHub(replay func(screen string) []render.Op, metrics *observability.Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*client]bool),
		replay:  replay,
		metrics: metrics,
		logger:  logger.With("component", "ws_hub"),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Surface returns a surface that broadcasts to the clients of screen.
func (h *Hub) Surface(screen string) render.Surface {
	return &hubSurface{hub: h, screen: screen}
}

// Broadcast sends op to every client of screen. Clients that cannot keep
// up are dropped.
func (h *Hub) Broadcast(screen string, op render.Op) error {
	data, err := json.Marshal(op)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		if c.screen != screen {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow client", "screen", screen)
		h.remove(c)
	}
	return nil
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetClients(n)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetClients(n)
}

// ServeWS upgrades the request and streams the screen named by the
// "screen" query parameter, starting with a replay of its current state.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	screen := r.URL.Query().Get("screen")
	if screen == "" {
		http.Error(w, "missing screen", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{screen: screen, conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)
	h.enqueueReplay(c)
	h.logger.Debug("client connected", "screen", screen, "remote", r.RemoteAddr)

	go h.writeLoop(c)
	h.readLoop(c)
}

// enqueueReplay queues the current state of the client's screen. The client
// is registered first so updates broadcast meanwhile are not lost.
func (h *Hub) enqueueReplay(c *client) {
	if h.replay == nil {
		return
	}
	ops := h.replay(c.screen)

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return
	}
	for _, op := range ops {
		data, err := json.Marshal(op)
		if err != nil {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

// readLoop discards client messages and detects disconnection.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.remove(c)
	}
}

// hubSurface adapts the hub to render.Surface for one screen.
type hubSurface struct {
	hub    *Hub
	screen string
}

func (s *hubSurface) SetText(id, text string) error {
	return s.hub.Broadcast(s.screen, render.Text(id, text))
}

func (s *hubSurface) SetStyle(id, prop, value string) error {
	return s.hub.Broadcast(s.screen, render.Style(id, prop, value))
}

func (s *hubSurface) SetAttr(id, name, value string) error {
	return s.hub.Broadcast(s.screen, render.Attr(id, name, value))
}

func (s *hubSurface) SetClass(id string, add, remove []string) error {
	return s.hub.Broadcast(s.screen, render.Class(id, add, remove))
}

func (s *hubSurface) Notify(msg string) error {
	return s.hub.Broadcast(s.screen, render.Notice(msg))
}
