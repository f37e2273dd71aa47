// Package livereload pushes reload notifications to open documentation pages
// over a websocket after each rebuild.
package livereload

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/cargo-docserver/internal/logging"
	"github.com/conneroisu/cargo-docserver/internal/validation"
)

const (
	// Prefix is reserved for the server's own endpoints.
	Prefix = "/__docserver"
	// SocketPath is the websocket endpoint.
	SocketPath = Prefix + "/livereload"
	// ScriptPath serves the client script.
	ScriptPath = Prefix + "/livereload.js"

	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// Message types sent to the browser.
const (
	MessageReload     = "reload"
	MessageBuildError = "build_error"
)

// Message represents a message sent to the browser
type Message struct {
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected pages and fans messages out to them.
type Hub struct {
	allowedOrigins []string
	logger         logging.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub. Pages served from the same host are always accepted;
// allowedOrigins lists additional host:port values.
func NewHub(allowedOrigins []string, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Hub{
		allowedOrigins: allowedOrigins,
		logger:         logger.WithComponent("livereload"),
		clients:        make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the connection until the page goes
// away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Non-browser clients send no Origin.
	if origin := r.Header.Get("Origin"); origin != "" {
		allowed := append([]string{r.Host}, h.allowedOrigins...)
		if err := validation.ValidateOrigin(origin, allowed); err != nil {
			h.logger.Warn(r.Context(), err, "Live reload connection rejected", "remote", r.RemoteAddr)
			http.Error(w, "Origin not allowed", http.StatusForbidden)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.allowedOrigins,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade error")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.unregister(c)

	// Incoming messages are ignored; CloseRead notices when the page leaves.
	ctx := conn.CloseRead(context.Background())
	h.writeLoop(ctx, c)
}

func (h *Hub) writeLoop(ctx context.Context, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.Debug(context.Background(), "Client connected", "clients", len(h.clients))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	c.conn.Close(websocket.StatusNormalClosure, "")
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every client. Clients whose buffers are full are
// disconnected rather than allowed to hold up the rest.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(context.Background(), err, "Failed to marshal message")
		data = []byte(`{"type":"reload"}`)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
