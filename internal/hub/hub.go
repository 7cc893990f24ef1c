// Package hub broadcasts scan lifecycle events to connected dashboard
// clients over websockets. Delivery is fire-and-forget: a client that cannot
// keep up is disconnected rather than allowed to stall the broadcast.
package hub

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message types pushed to dashboard clients.
const (
	TypeConnected     = "connected"
	TypeParseStart    = "parseStart"
	TypeParseComplete = "parseComplete"
	TypeParseError    = "parseError"
	TypePong          = "pong"
)

// Inbound message types accepted from clients.
const (
	TypePing        = "ping"
	TypeRequestScan = "requestScan"
)

// sendBuffer is the per-client outbound queue depth. A full queue marks the
// client as too slow and it gets dropped.
const sendBuffer = 16

const writeTimeout = 10 * time.Second

// ScanSummary is the payload attached to parseComplete messages.
type ScanSummary struct {
	TotalFiles  int    `json:"totalFiles"`
	DetailFiles int    `json:"detailFiles"`
	OverallFile string `json:"overallFile,omitempty"`
}

// Message is one event on the dashboard websocket, in either direction.
type Message struct {
	Type        string       `json:"type"`
	Message     string       `json:"message,omitempty"`
	TriggerType string       `json:"triggerType,omitempty"`
	Filename    string       `json:"filename,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Duration    float64      `json:"duration,omitempty"`
	Summary     *ScanSummary `json:"summary,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// now stamps outbound messages; replaceable in tests.
var now = time.Now

func stamp(m Message) Message {
	if m.Timestamp == "" {
		m.Timestamp = now().UTC().Format(time.RFC3339)
	}

	return m
}

type client struct {
	conn *websocket.Conn
	send chan Message
	done chan struct{}
}

// Hub manages the connected client set and fans messages out to it.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	// OnRequestScan is invoked when a client asks for a manual rescan.
	// Nil means client-initiated scans are ignored.
	OnRequestScan func()

	mu      sync.Mutex
	clients map[*client]struct{}
}

// New creates a Hub. The dashboard is same-origin in production and proxied
// in development, so the upgrader accepts any origin.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Serve upgrades the request to a websocket, sends the welcome message, and
// runs the connection until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))

		return
	}

	c := &client{
		conn: conn,
		send: make(chan Message, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected",
		slog.String("remote", conn.RemoteAddr().String()),
		slog.Int("clients", count),
	)

	c.send <- stamp(Message{Type: TypeConnected, Message: "connection established"})

	go h.writePump(c)
	h.readPump(c)
}

// readPump consumes inbound messages until the connection drops.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("client read error", slog.String("error", err.Error()))
			}

			return
		}

		switch msg.Type {
		case TypePing:
			select {
			case c.send <- stamp(Message{Type: TypePong}):
			default:
			}

		case TypeRequestScan:
			h.logger.Info("client requested rescan")

			if h.OnRequestScan != nil {
				h.OnRequestScan()
			}

		default:
			h.logger.Debug("ignoring unknown client message", slog.String("type", msg.Type))
		}
	}
}

// writePump drains the client's queue onto the wire.
func (h *Hub) writePump(c *client) {
	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

			if err := c.conn.WriteJSON(msg); err != nil {
				h.remove(c)

				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()

	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()

		return
	}

	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	close(c.done)
	_ = c.conn.Close()

	h.logger.Info("client disconnected", slog.Int("clients", count))
}

// Broadcast queues msg for every connected client. Clients with a full queue
// are dropped so one slow reader cannot block the scan pipeline.
func (h *Hub) Broadcast(msg Message) {
	msg = stamp(msg)

	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping slow websocket client")
			h.remove(c)
		}
	}
}

// ClientCount reports how many clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		h.remove(c)
	}
}
