// Package channel maintains the realtime push connection to the backend.
// It delivers server events (currently the full-menu push) to registered
// handlers and reconnects on unexpected drops. When reconnection is
// exhausted it hands off to the caller, who falls back to polling.
package channel

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/canteenhq/canteen-go/core"
	"github.com/canteenhq/canteen-go/resilience"
)

// EventMenuUpdate carries the full replacement menu as its payload.
const EventMenuUpdate = "menu:update"

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// frame is the wire shape of every server event.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// authFrame is the first client frame after the handshake. The server
// drops connections that do not authenticate.
type authFrame struct {
	Token string `json:"token"`
}

// Handler receives an event's raw payload. Handlers run on the read
// goroutine, so they must not block.
type Handler func(data json.RawMessage)

// Config holds the channel's dial and reconnect settings.
type Config struct {
	URL               string
	HandshakeTimeout  time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

// Client is the live channel client.
type Client struct {
	config Config
	logger core.Logger
	dialer *websocket.Dialer

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	token    string
	closed   bool
	handlers map[string][]Handler

	onDisconnect func()
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOnDisconnect registers the callback fired when the connection is
// lost for good (reconnection exhausted or explicit server close). The
// menu syncer uses it to switch to polling.
func WithOnDisconnect(fn func()) Option {
	return func(c *Client) { c.onDisconnect = fn }
}

// New creates a disconnected client.
func New(config Config, opts ...Option) *Client {
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 10 * time.Second
	}
	if config.ReconnectAttempts <= 0 {
		config.ReconnectAttempts = 5
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = time.Second
	}
	if config.MaxReconnectDelay <= 0 {
		config.MaxReconnectDelay = 30 * time.Second
	}
	c := &Client{
		config:   config,
		logger:   &core.NoOpLogger{},
		handlers: make(map[string][]Handler),
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// On registers a handler for an event. Registration must happen before
// Connect; the read loop consults the handler map without locking it per
// frame.
func (c *Client) On(event string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

// Connect dials the channel and authenticates with the bearer token.
// Connecting while already connected is a no-op. An empty token is
// refused: the channel only exists for authenticated sessions.
func (c *Client) Connect(ctx context.Context, token string) error {
	const op = "channel.Connect"

	if token == "" {
		return &core.ClientError{
			Op:      op,
			Kind:    "auth",
			Message: "Sign in before opening the live channel.",
			Err:     core.ErrMissingCredential,
		}
	}

	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.token = token
	c.closed = false
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return &core.ClientError{
			Op:      op,
			Kind:    "network",
			Message: "Could not reach the live update service.",
			Err:     core.ErrConnectionFailed,
		}
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Info("Live channel connected", map[string]interface{}{
		"operation": "channel_connect",
		"url":       c.config.URL,
	})

	go c.readPump(conn)
	return nil
}

// dial opens a socket and sends the auth frame.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return nil, err
	}
	if err := conn.WriteJSON(authFrame{Token: c.token}); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Disconnect closes the channel without reconnecting. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
		c.logger.Info("Live channel disconnected", map[string]interface{}{
			"operation": "channel_disconnect",
		})
	}
}

// State returns the connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the channel is up.
func (c *Client) Connected() bool {
	return c.State() == StateConnected
}

// readPump consumes frames until the connection drops, then attempts
// reconnection unless the drop was an explicit Disconnect.
func (c *Client) readPump(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var f frame
		if err := json.Unmarshal(payload, &f); err != nil {
			// Unknown frames are skipped, never fatal. A newer server may
			// ship event shapes this client does not know yet.
			c.logger.Debug("Skipping unparseable channel frame", map[string]interface{}{
				"operation": "channel_read",
				"error":     err.Error(),
			})
			continue
		}
		c.dispatch(f)
	}

	c.mu.Lock()
	intentional := c.closed
	if c.conn == conn {
		c.conn = nil
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	if intentional {
		return
	}

	c.logger.Warn("Live channel dropped, attempting reconnect", map[string]interface{}{
		"operation": "channel_reconnect",
		"attempts":  c.config.ReconnectAttempts,
	})
	c.reconnect()
}

func (c *Client) dispatch(f frame) {
	c.mu.Lock()
	handlers := c.handlers[f.Event]
	c.mu.Unlock()

	if len(handlers) == 0 {
		c.logger.Debug("No handler for channel event", map[string]interface{}{
			"operation": "channel_read",
			"event":     f.Event,
		})
		return
	}
	for _, h := range handlers {
		h(f.Data)
	}
}

// reconnect runs the fixed-attempt reconnect policy. On success the read
// pump restarts; on exhaustion the disconnect callback fires once.
func (c *Client) reconnect() {
	ctx := context.Background()
	policy := resilience.ReconnectConfig(
		c.config.ReconnectAttempts,
		c.config.ReconnectDelay,
		c.config.MaxReconnectDelay,
	)

	err := resilience.Retry(ctx, policy, func() error {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil
		}
		c.state = StateReconnecting
		c.mu.Unlock()

		dialCtx, cancel := context.WithTimeout(ctx, c.config.HandshakeTimeout)
		defer cancel()
		conn, dialErr := c.dial(dialCtx)
		if dialErr != nil {
			return dialErr
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return nil
		}
		c.conn = conn
		c.state = StateConnected
		c.mu.Unlock()

		c.logger.Info("Live channel reconnected", map[string]interface{}{
			"operation": "channel_reconnect",
		})
		go c.readPump(conn)
		return nil
	})

	if err == nil {
		return
	}

	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()

	c.logger.Error("Live channel reconnection exhausted", map[string]interface{}{
		"operation": "channel_reconnect",
		"error":     err.Error(),
	})
	if c.onDisconnect != nil {
		c.onDisconnect()
	}
}
