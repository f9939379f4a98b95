// Package hub implements the client side of the real-time console hub: a
// websocket connection speaking JSON-RPC 2.0 requests and server-pushed
// events, with automatic reconnection after a mid-session drop.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

var (
	ErrNotConnected   = errors.New("hub: connection is not in the Connected state")
	ErrConnectionLost = errors.New("hub: connection lost")
	ErrAlreadyStarted = errors.New("hub: connection already started")

	errStopped = errors.New("hub: connection stopped")
)

// DefaultReconnectDelays is the wait before each reconnect attempt.
var DefaultReconnectDelays = []time.Duration{0, 2 * time.Second, 10 * time.Second, 30 * time.Second}

const (
	DefaultHandshakeTimeout  = 15 * time.Second
	DefaultKeepAliveInterval = 15 * time.Second
	DefaultServerTimeout     = 30 * time.Second

	maxMessageSize = 4 << 20
)

// Options configures a Client. Zero values select the defaults above.
type Options struct {
	Header            http.Header
	ReconnectDelays   []time.Duration
	HandshakeTimeout  time.Duration
	KeepAliveInterval time.Duration
	ServerTimeout     time.Duration
	Logger            zerolog.Logger
}

type result struct {
	resp Response
	err  error
}

// Client is a Conn over gorilla/websocket.
type Client struct {
	url    string
	opts   Options
	dialer *websocket.Dialer
	logger zerolog.Logger

	mu             sync.Mutex
	state          State
	conn           *websocket.Conn
	gen            uint64
	cancel         context.CancelFunc
	pending        map[string]chan result
	handlers       map[string][]Handler
	onReconnecting []func(error)
	onReconnected  []func()
	onClose        []func(error)

	writeMu sync.Mutex
}

var _ Conn = (*Client)(nil)

// NewClient creates a disconnected client for the hub at url (ws:// or wss://).
func NewClient(url string, opts Options) *Client {
	if opts.ReconnectDelays == nil {
		opts.ReconnectDelays = DefaultReconnectDelays
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.KeepAliveInterval <= 0 {
		opts.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if opts.ServerTimeout <= 0 {
		opts.ServerTimeout = DefaultServerTimeout
	}
	return &Client{
		url:  url,
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		logger:   opts.Logger.With().Str("component", "hub").Logger(),
		state:    StateDisconnected,
		pending:  make(map[string]chan result),
		handlers: make(map[string][]Handler),
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// On registers a handler for a named server event.
func (c *Client) On(event string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

func (c *Client) OnReconnecting(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReconnecting = append(c.onReconnecting, fn)
}

func (c *Client) OnReconnected(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReconnected = append(c.onReconnected, fn)
}

func (c *Client) OnClose(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = append(c.onClose, fn)
}

// Start performs the handshake. It fails unless the client is Disconnected.
// No retry happens on a failed start.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected || c.cancel != nil {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		if c.gen == gen {
			c.state = StateDisconnected
			c.cancel = nil
		}
		c.mu.Unlock()
		cancel()
		return fmt.Errorf("start hub connection: %w", err)
	}

	c.mu.Lock()
	if runCtx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return errStopped
	}
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Info().Str("url", c.url).Msg("hub connected")
	go c.run(runCtx, gen, conn)
	return nil
}

// Stop closes the connection. Pending sends fail and OnClose fires with a
// nil error. Stopping a client that was never started is a no-op.
func (c *Client) Stop() error {
	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	c.cancel = nil
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}

// Send invokes ExecuteCommand on the hub and waits for its acknowledgement.
// The command output itself arrives later as a server event.
func (c *Client) Send(ctx context.Context, command string) error {
	_, err := c.Invoke(ctx, MethodExecuteCommand, map[string]interface{}{"command": command})
	return err
}

// Invoke calls a hub method and returns its raw result.
func (c *Client) Invoke(ctx context.Context, method string, params map[string]interface{}) (json.RawMessage, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate request id: %w", err)
	}

	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	conn := c.conn
	ch := make(chan result, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	req := Request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	c.writeMu.Lock()
	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	err = conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.dropPending(id)
		return nil, fmt.Errorf("write %s request: %w", method, err)
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		if r.resp.Error != nil {
			return nil, r.resp.Error
		}
		return r.resp.Result, nil
	case <-ctx.Done():
		c.dropPending(id)
		return nil, ctx.Err()
	}
}

// --- Connection loop ---

func (c *Client) run(ctx context.Context, gen uint64, conn *websocket.Conn) {
	for {
		err := c.readLoop(conn)
		c.failPending(fmt.Errorf("%w: %v", ErrConnectionLost, err))
		if ctx.Err() != nil {
			c.closed(gen, nil)
			return
		}
		c.logger.Warn().Err(err).Msg("hub connection dropped, reconnecting")

		next, rerr := c.reconnect(ctx, gen, err)
		if rerr != nil {
			if errors.Is(rerr, errStopped) {
				rerr = nil
			}
			c.closed(gen, rerr)
			return
		}
		conn = next
	}
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	conn.SetReadLimit(maxMessageSize)
	c.armReadDeadline(conn)
	conn.SetPongHandler(func(string) error {
		c.armReadDeadline(conn)
		return nil
	})

	stop := make(chan struct{})
	defer close(stop)
	go c.keepAlive(conn, stop)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.armReadDeadline(conn)
		c.dispatch(data)
	}
}

func (c *Client) armReadDeadline(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(c.opts.ServerTimeout))
}

func (c *Client) keepAlive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.opts.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.KeepAliveInterval)); err != nil {
				c.logger.Debug().Err(err).Msg("keep-alive ping failed")
				return
			}
		}
	}
}

func (c *Client) reconnect(ctx context.Context, gen uint64, cause error) (*websocket.Conn, error) {
	c.mu.Lock()
	if ctx.Err() != nil || c.gen != gen {
		c.mu.Unlock()
		return nil, errStopped
	}
	c.state = StateReconnecting
	c.conn = nil
	callbacks := append([]func(error){}, c.onReconnecting...)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(cause)
	}

	for attempt, delay := range c.opts.ReconnectDelays {
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, errStopped
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return nil, errStopped
		}

		conn, err := c.dial(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("hub reconnect attempt failed")
			cause = err
			continue
		}

		c.mu.Lock()
		if ctx.Err() != nil || c.gen != gen {
			c.mu.Unlock()
			_ = conn.Close()
			return nil, errStopped
		}
		c.conn = conn
		c.state = StateConnected
		reconnected := append([]func(){}, c.onReconnected...)
		c.mu.Unlock()

		c.logger.Info().Int("attempt", attempt+1).Msg("hub reconnected")
		for _, fn := range reconnected {
			fn()
		}
		return conn, nil
	}
	return nil, fmt.Errorf("reconnect gave up after %d attempts: %w", len(c.opts.ReconnectDelays), cause)
}

func (c *Client) closed(gen uint64, err error) {
	c.mu.Lock()
	if c.gen == gen {
		c.state = StateDisconnected
		c.conn = nil
		c.cancel = nil
	}
	callbacks := append([]func(error){}, c.onClose...)
	c.mu.Unlock()

	if err != nil {
		c.logger.Error().Err(err).Msg("hub connection closed")
	} else {
		c.logger.Info().Msg("hub connection closed")
	}
	for _, fn := range callbacks {
		fn(err)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial hub: %w (http %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial hub: %w", err)
	}
	return conn, nil
}

// --- Inbound ---

func (c *Client) dispatch(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.logger.Warn().Err(err).Int("bytes", len(data)).Msg("discarding malformed hub frame")
		return
	}

	if f.isEvent() {
		c.mu.Lock()
		handlers := append([]Handler(nil), c.handlers[f.Event]...)
		c.mu.Unlock()
		if len(handlers) == 0 {
			c.logger.Debug().Str("event", f.Event).Msg("no handler for hub event")
			return
		}
		text := payloadText(f.Data)
		for _, h := range handlers {
			h(text)
		}
		return
	}

	if f.ID == "" {
		c.logger.Debug().Msg("hub frame without id or event ignored")
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[f.ID]
	delete(c.pending, f.ID)
	c.mu.Unlock()
	if !ok {
		c.logger.Debug().Str("id", f.ID).Msg("response for unknown request")
		return
	}
	ch <- result{resp: Response{ID: f.ID, Result: f.Result, Error: f.Error}}
}

func (c *Client) dropPending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		ch <- result{err: err}
		delete(c.pending, id)
	}
}
