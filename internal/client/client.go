// Package client is an event-style websocket client: register handlers by
// event name, emit named events, and let Run pump the connection.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/roster-socket/internal/logging"
	"github.com/DoyleJ11/roster-socket/internal/types"
)

var ErrOutboxFull = errors.New("outbox full")

// Handler gets the raw data field of an inbound frame. It may be empty.
type Handler func(data json.RawMessage)

type Client struct {
	url          string
	log          *zap.Logger
	dialOpts     *websocket.DialOptions
	writeTimeout time.Duration

	mu       sync.RWMutex
	handlers map[string]Handler

	// Emits land here and are flushed once Run has a connection.
	outbox chan types.Envelope
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = logging.OrNop(l) }
}

func WithDialOptions(o *websocket.DialOptions) Option {
	return func(c *Client) { c.dialOpts = o }
}

func WithOutboxSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.outbox = make(chan types.Envelope, n)
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

func New(url string, opts ...Option) *Client {
	c := &Client{
		url:          url,
		log:          zap.NewNop(),
		writeTimeout: 3 * time.Second,
		handlers:     make(map[string]Handler),
		outbox:       make(chan types.Envelope, 32),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// On registers h for event, replacing any earlier handler for the same name.
func (c *Client) On(event string, h Handler) {
	c.mu.Lock()
	c.handlers[event] = h
	c.mu.Unlock()
}

// Emit queues an event. It does not wait for the connection and never
// blocks; delivery happens whenever Run is writing.
func (c *Client) Emit(event string, payload any) error {
	env, err := types.NewEnvelope(event, payload)
	if err != nil {
		return err
	}

	select {
	case c.outbox <- env:
		return nil
	default:
		return fmt.Errorf("emit %s: %w", event, ErrOutboxFull)
	}
}

// Run dials the server and pumps frames until ctx is done or the connection
// drops. Handlers are called from a single goroutine in arrival order.
// A normal close, or ctx cancellation, returns nil.
func (c *Client) Run(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, c.dialOpts)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	// A cancelled Read already tears the connection down, so there is no
	// close handshake left to do here.
	defer conn.CloseNow()
	c.log.Debug("connection open", zap.String("url", c.url))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.writeLoop(gctx, conn) })
	g.Go(func() error { return c.readLoop(gctx, conn) })

	err = g.Wait()
	if ctx.Err() != nil || isClosed(err) {
		return nil
	}
	return err
}

func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-c.outbox:
			wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := wsjson.Write(wctx, conn, env)
			cancel()
			if err != nil {
				return fmt.Errorf("write %s: %w", env.Event, err)
			}
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env types.Envelope) {
	c.mu.RLock()
	h := c.handlers[env.Event]
	c.mu.RUnlock()

	if h == nil {
		c.log.Debug("no handler for event", zap.String("event", env.Event))
		return
	}
	h(env.Data)
}

func isClosed(err error) bool {
	if err == nil {
		return false
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed)
}
