package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/valerio/go-xray/xray/protocol"
)

// ErrNotConnected is returned by Send while no connection is established.
var ErrNotConnected = errors.New("not connected to system under test")

// DefaultRetry is the delay between connection attempts.
const DefaultRetry = 200 * time.Millisecond

// EventKind identifies what happened on the transport.
type EventKind int

const (
	EventConnecting EventKind = iota
	EventConnected
	EventDisconnected
	EventText
	EventBinary
)

func (k EventKind) String() string {
	switch k {
	case EventConnecting:
		return "connecting"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventText:
		return "text"
	case EventBinary:
		return "binary"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered for every state change and every inbound frame.
type Event struct {
	Kind   EventKind
	Data   []byte
	Err    error
	ConnID uuid.UUID
}

// Config holds the transport settings.
type Config struct {
	URL           string
	Retry         time.Duration
	DialTimeout   time.Duration
	EventBuffer   int
	RefreshOnOpen bool
}

// Client keeps a websocket connection to the system under test alive,
// reconnecting forever until its context is cancelled. At most one
// connection attempt is in flight at any time.
type Client struct {
	config Config
	dialer *websocket.Dialer
	events chan Event

	mu     sync.Mutex
	conn   *websocket.Conn
	connID uuid.UUID
}

// NewClient creates a client; call Run to start connecting.
func NewClient(config Config) *Client {
	if config.Retry <= 0 {
		config.Retry = DefaultRetry
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 64
	}

	return &Client{
		config: config,
		dialer: &websocket.Dialer{HandshakeTimeout: config.DialTimeout},
		events: make(chan Event, config.EventBuffer),
	}
}

// Events returns the channel on which all transport events are delivered.
// It is closed when Run returns.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Run connects and reads until ctx is done, reconnecting after every failure.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	for {
		id := uuid.New()
		c.emit(ctx, Event{Kind: EventConnecting, ConnID: id})

		err := c.session(ctx, id)
		c.emit(ctx, Event{Kind: EventDisconnected, Err: err, ConnID: id})

		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Debug("Connection lost, retrying", "conn", id, "error", err, "retry", c.config.Retry)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.config.Retry):
		}
	}
}

// session runs a single connection from dial to the first read error.
func (c *Client) session(ctx context.Context, id uuid.UUID) error {
	conn, _, err := c.dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.config.URL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connID = id
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	// unblock ReadMessage on cancellation
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	slog.Info("Connected to system under test", "url", c.config.URL, "conn", id)
	c.emit(ctx, Event{Kind: EventConnected, ConnID: id})

	if c.config.RefreshOnOpen {
		if err := c.Send(protocol.Refresh); err != nil {
			return err
		}
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		switch msgType {
		case websocket.TextMessage:
			c.emit(ctx, Event{Kind: EventText, Data: data, ConnID: id})
		case websocket.BinaryMessage:
			c.emit(ctx, Event{Kind: EventBinary, Data: data, ConnID: id})
		}
	}
}

func (c *Client) emit(ctx context.Context, ev Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

// Send writes a command to the system under test.
func (c *Client) Send(cmd protocol.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(cmd.Wire())); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Name(), err)
	}
	slog.Debug("Command sent", "command", string(cmd), "conn", c.connID)
	return nil
}

// Connected reports whether a connection is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}
