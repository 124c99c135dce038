package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Conn is the part of a websocket connection the hub writes to.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is a registered subscriber. An empty table set means every table.
type Client struct {
	Conn     Conn
	TenantID string
	UserID   string
	tables   map[string]bool
}

func NewClient(conn Conn, tenantID, userID string, tables []string) *Client {
	c := &Client{Conn: conn, TenantID: tenantID, UserID: userID, tables: map[string]bool{}}
	for _, t := range tables {
		if t = strings.TrimSpace(t); t != "" {
			c.tables[t] = true
		}
	}
	return c
}

// ParseTables splits a comma separated table list.
func ParseTables(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func (c *Client) wants(e *Event) bool {
	if e.Type != EventChange {
		return true
	}
	if c.TenantID != e.TenantID {
		return false
	}
	return len(c.tables) == 0 || c.tables[e.Table]
}

// Listener receives every published event in-process.
type Listener func(Event)

type Hub struct {
	clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	broadcast  chan Event
	listeners  []Listener
	mutex      sync.RWMutex
	log        *zap.Logger
}

// NewHub creates a hub whose outgoing queue holds buffer events.
func NewHub(log *zap.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 256
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan Event, buffer),
		log:        log.Named("ws"),
	}
}

// Listen adds fn to the in-process listeners. Listeners run synchronously
// inside Publish and must not block.
func (h *Hub) Listen(fn Listener) {
	h.mutex.Lock()
	h.listeners = append(h.listeners, fn)
	h.mutex.Unlock()
}

// Publish hands e to the listeners and queues it for websocket clients.
// It never blocks: when the queue is full the event is dropped for clients.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	h.mutex.RLock()
	listeners := h.listeners
	h.mutex.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}

	select {
	case h.broadcast <- e:
	default:
		h.log.Warn("ws queue full, dropping event",
			zap.String("type", e.Type),
			zap.String("table", e.Table),
			zap.String("tenant_id", e.TenantID))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run serves registrations and deliveries until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for c := range h.clients {
				c.Conn.Close()
				delete(h.clients, c)
			}
			h.mutex.Unlock()
			return

		case c := <-h.Register:
			h.mutex.Lock()
			h.clients[c] = true
			h.mutex.Unlock()
			h.log.Debug("client connected", zap.String("user_id", c.UserID), zap.String("tenant_id", c.TenantID))

		case c := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.Conn.Close()
			}
			h.mutex.Unlock()

		case e := <-h.broadcast:
			h.deliver(e)
		}
	}
}

func (h *Hub) deliver(e Event) {
	message, err := json.Marshal(e)
	if err != nil {
		h.log.Error("ws marshal event", zap.Error(err))
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		if !c.wants(&e) {
			continue
		}
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.Conn.Close()
			delete(h.clients, c)
		}
	}
}
