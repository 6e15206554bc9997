package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arbmon/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard is served from arbitrary local origins.
		return true
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts opportunity snapshots to connected dashboard clients,
// enforcing a minimum gap between sends so streaming updates cannot flood
// repaints. The latest snapshot inside a throttle window is held and flushed
// when the window closes, never lost. The throttle is read per window, so a
// settings change applies without reconnecting.
type Hub struct {
	logger     *slog.Logger
	throttle   func() time.Duration
	updates    chan []byte
	register   chan *client
	unregister chan *client

	mu      sync.RWMutex
	clients map[*client]bool
}

func NewHub(logger *slog.Logger, throttle func() time.Duration) *Hub {
	return &Hub{
		logger:     logger,
		throttle:   throttle,
		updates:    make(chan []byte, 4),
		register:   make(chan *client),
		unregister: make(chan *client),
		clients:    make(map[*client]bool),
	}
}

// Publish queues a snapshot for broadcast. Never blocks the poller: if the
// hub is backed up the oldest queued update is dropped.
func (h *Hub) Publish(snap model.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error("failed to encode snapshot", "error", err)
		return
	}
	for {
		select {
		case h.updates <- data:
			return
		default:
			select {
			case <-h.updates:
			default:
			}
		}
	}
}

// Run owns the client set and the throttle window until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	var (
		lastSend time.Time
		pending  []byte
	)
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
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
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.updates:
			if wait := h.throttle() - time.Since(lastSend); wait > 0 {
				pending = msg
				timer.Reset(wait)
				continue
			}
			h.fanout(msg)
			lastSend = time.Now()
		case <-timer.C:
			if pending != nil {
				h.fanout(pending)
				lastSend = time.Now()
				pending = nil
			}
		}
	}
}

func (h *Hub) fanout(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow client; it will miss this update rather than stall the hub.
		}
	}
}

// HandleWS upgrades the connection and attaches it to the hub.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
