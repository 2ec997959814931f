package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/remoteflow/remoteflow/internal/actions"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Message is the envelope for every frame pushed to dashboard clients.
type Message struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

// ActionRuleExecuted carries an actions.Report.
const ActionRuleExecuted = "rule_executed"

// Hub fans execution reports out to connected websocket clients. It
// implements actions.Sink.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	clients atomic.Int64
}

// NewHub creates a hub. Call Run to start delivering messages.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	clients := make(map[*client]bool)
	drop := func(c *client) {
		if clients[c] {
			delete(clients, c)
			close(c.send)
			h.clients.Store(int64(len(clients)))
		}
	}

	for {
		select {
		case c := <-h.register:
			clients[c] = true
			h.clients.Store(int64(len(clients)))
			slog.Debug("dashboard: client connected", "clients", len(clients))
		case c := <-h.unregister:
			drop(c)
			slog.Debug("dashboard: client disconnected", "clients", len(clients))
		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					// slow consumer
					drop(c)
				}
			}
		case <-ctx.Done():
			for c := range clients {
				drop(c)
			}
			return ctx.Err()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int { return int(h.clients.Load()) }

// Publish queues report for every connected client. Reports are dropped
// when the hub is backed up.
func (h *Hub) Publish(report actions.Report) {
	data, err := json.Marshal(Message{Action: ActionRuleExecuted, Payload: report})
	if err != nil {
		slog.Error("dashboard: encode report", "rule", report.RuleID, "err", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		slog.Warn("dashboard: broadcast queue full, dropping report", "rule", report.RuleID)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served on localhost; CORS already restricts browsers.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("dashboard: websocket upgrade failed", "err", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump discards inbound frames; it exists to process control frames
// and notice disconnects.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
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
