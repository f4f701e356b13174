package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/flags-quiz-client/internal/protocol"
)

var ErrNotOpen = errors.New("connection not open")
var ErrOutboxFull = errors.New("outbox full")

const (
	defaultWriteTimeout = 3 * time.Second
	defaultOutbox       = 32
)

type Options struct {
	Logger       *zap.Logger
	WriteTimeout time.Duration
	OutboxSize   int
}

// Client is the session's one connection to the quiz server.
type Client struct {
	conn         *websocket.Conn
	log          *zap.Logger
	out          chan []byte
	writeTimeout time.Duration

	mu        sync.Mutex
	open      bool
	onMessage func([]byte)
	onClose   func(error)

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Endpoint turns the server base URL into its websocket endpoint.
func Endpoint(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Dial opens the connection and queues join as the first frame.
func Dial(ctx context.Context, endpoint string, join protocol.JoinRoom, opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = defaultOutbox
	}

	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	cctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:         conn,
		log:          log,
		out:          make(chan []byte, opts.OutboxSize),
		writeTimeout: opts.WriteTimeout,
		open:         true,
		ctx:          cctx,
		cancel:       cancel,
	}
	log.Info("connected", zap.String("endpoint", endpoint))

	c.Send(join)
	return c, nil
}

// OnMessage registers the single delivery callback. It runs on the reader
// goroutine once per frame, in receipt order.
func (c *Client) OnMessage(f func(frame []byte)) {
	c.mu.Lock()
	c.onMessage = f
	c.mu.Unlock()
}

func (c *Client) OnClose(f func(err error)) {
	c.mu.Lock()
	c.onClose = f
	c.mu.Unlock()
}

// Send queues req for the writer. Failures are logged and never reach the
// caller.
func (c *Client) Send(req protocol.Request) {
	if err := c.trySend(req); err != nil {
		c.log.Warn("dropping request", zap.String("event", req.Kind()), zap.Error(err))
	}
}

func (c *Client) trySend(req protocol.Request) error {
	payload, err := protocol.Encode(req)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrNotOpen
	}
	select {
	case c.out <- payload:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Run pumps frames until the connection closes or ctx ends, then fires the
// close callback once.
func (c *Client) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(gctx) })
	g.Go(func() error { return c.writeLoop(gctx) })
	err := g.Wait()

	_ = c.shutdown(websocket.StatusNormalClosure, "bye")
	if isNormalClose(err) {
		err = nil
	}

	c.mu.Lock()
	onClose := c.onClose
	c.mu.Unlock()
	if onClose != nil {
		onClose(err)
	}
	return err
}

func (c *Client) readLoop(ctx context.Context) error {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				c.log.Info("server closed connection", zap.Error(err))
			default:
				c.log.Error("read failed", zap.Error(err))
			}
			return err
		}

		c.mu.Lock()
		deliver := c.onMessage
		c.mu.Unlock()
		if deliver == nil {
			c.log.Warn("no message handler, dropping frame", zap.Int("bytes", len(data)))
			continue
		}
		deliver(data)
	}
}

func (c *Client) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return context.Canceled
		case payload := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				c.log.Error("write failed", zap.Error(err))
				return err
			}
		}
	}
}

// Close ends the connection. Safe to call more than once.
func (c *Client) Close() error {
	return c.shutdown(websocket.StatusNormalClosure, "bye")
}

func (c *Client) shutdown(code websocket.StatusCode, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.open = false
		c.mu.Unlock()
		c.cancel()

		if cerr := c.conn.Close(code, reason); cerr != nil && !isNormalClose(cerr) {
			err = multierr.Append(err, cerr)
		}
		if dropped := len(c.out); dropped > 0 {
			err = multierr.Append(err, fmt.Errorf("%d queued frames not sent", dropped))
		}
	})
	return err
}

func isNormalClose(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
