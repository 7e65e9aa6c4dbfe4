// Package reload pushes live-reload signals to browsers through a reverse
// proxy placed in front of the backend.
package reload

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

var _ ports.Notifier = (*Broadcaster)(nil)

const (
	// clientQueueSize is how many messages may wait for a slow client.
	clientQueueSize = 16
	writeTimeout    = 5 * time.Second
)

// Message is the JSON frame sent to browser clients.
type Message struct {
	Type  string   `json:"type"`
	Paths []string `json:"paths,omitempty"`
}

// Broadcaster is a websocket hub. Every client owns a bounded queue drained
// by its own writer goroutine, so messages reach each client in order. A full
// queue drops the message for that client; a failed write drops the client.
type Broadcaster struct {
	logger   ports.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// NewBroadcaster creates an empty hub.
func NewBroadcaster(logger ports.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Notify sends event to every connected client without blocking.
func (b *Broadcaster) Notify(event domain.ReloadEvent) {
	frame, err := json.Marshal(Message{Type: event.Kind.String(), Paths: event.Paths})
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range b.clients {
		select {
		case c.send <- frame:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// ServeHTTP upgrades the request to a websocket and registers the client
// until the browser goes away.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientQueueSize),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = conn.Close()
		return
	}
	b.clients[c.id] = c
	b.mu.Unlock()

	go b.writeLoop(c)
	b.readLoop(c)
}

// readLoop discards client frames and unregisters the client once the
// connection fails.
func (b *Broadcaster) readLoop(c *client) {
	defer b.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster) writeLoop(c *client) {
	defer func() {
		_ = c.conn.Close()
	}()

	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			b.remove(c)
			return
		}
	}

	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(writeTimeout),
	)
}

func (b *Broadcaster) remove(c *client) {
	b.mu.Lock()
	delete(b.clients, c.id)
	b.mu.Unlock()
	c.close()
}

// Close disconnects every client and rejects new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	clients := b.clients
	b.clients = make(map[string]*client)
	b.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
