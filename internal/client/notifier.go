package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scorewatch/scorewatch/internal/hub"
)

// Notifier timing defaults, matching the dashboard frontend.
const (
	DefaultReconnectDelay = 5 * time.Second
	DefaultPingInterval   = 30 * time.Second
)

// Handlers receives dispatched server messages. Nil fields are skipped.
type Handlers struct {
	OnConnected     func(msg hub.Message)
	OnParseStart    func(msg hub.Message)
	OnParseComplete func(msg hub.Message)
	OnParseError    func(msg hub.Message)
	OnPong          func(msg hub.Message)
}

// Notifier maintains a websocket connection to the server, dispatching
// inbound messages to handlers. The connection is kept alive with periodic
// pings and re-established on a fixed delay after any failure.
type Notifier struct {
	client    *Client
	handlers  Handlers
	logger    *slog.Logger
	reconnect time.Duration
	ping      time.Duration
}

// NewNotifier creates a Notifier with the default timings.
func NewNotifier(c *Client, handlers Handlers, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		client:    c,
		handlers:  handlers,
		logger:    logger,
		reconnect: DefaultReconnectDelay,
		ping:      DefaultPingInterval,
	}
}

// Run connects and processes messages until ctx is cancelled, reconnecting
// after every drop. It blocks; run it on its own goroutine.
func (n *Notifier) Run(ctx context.Context) {
	for {
		if err := n.session(ctx); err != nil {
			n.logger.Warn("websocket session ended", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(n.reconnect):
		}
	}
}

// session runs one connection lifetime: dial, ping loop, read loop.
func (n *Notifier) session(ctx context.Context) error {
	wsURL, err := n.client.WebsocketURL()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	n.logger.Info("websocket connected", slog.String("url", wsURL))

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(n.ping)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return

			case <-ctx.Done():
				// Closing the connection unblocks the read loop.
				_ = conn.Close()

				return

			case <-ticker.C:
				ping := hub.Message{
					Type:      hub.TypePing,
					Timestamp: time.Now().UTC().Format(time.RFC3339),
				}

				if err := conn.WriteJSON(ping); err != nil {
					_ = conn.Close()

					return
				}
			}
		}
	}()

	for {
		var msg hub.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return err
		}

		n.dispatch(msg)
	}
}

func (n *Notifier) dispatch(msg hub.Message) {
	call := func(fn func(hub.Message)) {
		if fn != nil {
			fn(msg)
		}
	}

	switch msg.Type {
	case hub.TypeConnected:
		call(n.handlers.OnConnected)
	case hub.TypeParseStart:
		call(n.handlers.OnParseStart)
	case hub.TypeParseComplete:
		call(n.handlers.OnParseComplete)
	case hub.TypeParseError:
		call(n.handlers.OnParseError)
	case hub.TypePong:
		call(n.handlers.OnPong)
	default:
		n.logger.Debug("ignoring unknown server message", slog.String("type", msg.Type))
	}
}
