// Package livereload implements the server side of the LiveReload protocol over websockets.
package livereload

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
)

const (
	// ProtocolV7 is the LiveReload protocol spoken by the hub.
	ProtocolV7 = "http://livereload.com/protocols/official-7"
	// ServerName is announced in the hello handshake.
	ServerName = "trowel"

	eventBuffer  = 64
	clientBuffer = 16
	writeWait    = 10 * time.Second
)

var _ ports.ReloadPublisher = (*Hub)(nil)

// Message is a LiveReload protocol frame.
type Message struct {
	Command    string   `json:"command"`
	Protocols  []string `json:"protocols,omitempty"`
	ServerName string   `json:"serverName,omitempty"`
	Path       string   `json:"path,omitempty"`
	LiveCSS    bool     `json:"liveCSS,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Message
}

// Hub fans reload events out to connected browsers.
type Hub struct {
	upgrader websocket.Upgrader
	events   chan domain.ReloadEvent

	mu      sync.Mutex
	clients map[string]*client
}

// NewHub creates a Hub. Run must be called for events to be delivered.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// Pages and the browser extension connect from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		events:  make(chan domain.ReloadEvent, eventBuffer),
		clients: make(map[string]*client),
	}
}

// Publish queues ev for delivery. It never blocks; events are dropped when the queue is full.
func (h *Hub) Publish(ev domain.ReloadEvent) {
	select {
	case h.events <- ev:
	default:
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run delivers published events until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case ev := <-h.events:
			h.broadcast(ev)
		}
	}
}

func (h *Hub) broadcast(ev domain.ReloadEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, path := range ev.Paths {
		msg := Message{Command: "reload", Path: path, LiveCSS: true}
		for id, c := range h.clients {
			select {
			case c.send <- msg:
			default:
				// Slow client; drop it rather than stall the others.
				h.removeLocked(id)
			}
		}
	}
}

// ServeHTTP upgrades the request and serves one LiveReload connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Message, clientBuffer),
	}
	c.send <- Message{Command: "hello", Protocols: []string{ProtocolV7}, ServerName: ServerName}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client frames (hello, info) until the connection closes.
func (h *Hub) readPump(c *client) {
	defer h.remove(c.id)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close() //nolint:errcheck // connection is discarded
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id)
}

func (h *Hub) removeLocked(id string) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(c.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.clients {
		h.removeLocked(id)
	}
}
