// Package viewer fans transcript events consumed from Kafka out to
// WebSocket clients for live inspection of transcription and correction
// jobs.
package viewer

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

//go:embed static/*
var staticFiles embed.FS

// Event is a transcript event as relayed to browsers. Payload is the
// original Kafka message value.
type Event struct {
	Topic     string          `json:"topic"`
	EventType string          `json:"eventType"`
	SessionID string          `json:"sessionId"`
	JobID     string          `json:"jobId,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

const (
	clientBuffer = 64
	writeWait    = 5 * time.Second
)

type client struct {
	conn    *websocket.Conn
	session string // empty receives every session
	send    chan Event
}

// Hub manages WebSocket connections
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a hub. Call Run to start dispatching.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 100),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues an event for every interested client. It returns
// immediately once the hub has stopped.
func (h *Hub) Publish(ev Event) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
	}
}

// Run dispatches events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("clients", n).Str("session", c.session).Msg("Viewer client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("clients", n).Msg("Viewer client disconnected")

		case ev := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if c.session != "" && c.session != ev.SessionID {
					continue
				}
				select {
				case c.send <- ev:
				default:
					// Slow client; drop it rather than block the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev
	},
}

// ServeWS upgrades the request and streams events to the client. The
// optional ?session= query parameter filters events by session ID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	c := &client{
		conn:    conn,
		session: r.URL.Query().Get("session"),
		send:    make(chan Event, clientBuffer),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writeLoop()

	// Keep connection alive, handle disconnects
	go func() {
		defer func() {
			select {
			case h.unregister <- c:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for ev := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			log.Debug().Err(err).Msg("Viewer write failed")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Handler serves the static page on / and the WebSocket on /ws.
func Handler(h *Hub) http.Handler {
	mux := http.NewServeMux()
	staticFS, _ := fs.Sub(staticFiles, "static")
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/ws", h.ServeWS)
	return mux
}
