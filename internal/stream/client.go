package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one live connection to the push endpoint. It speaks the frame
// protocol itself: callers subscribe by instrument and receive parsed
// price updates, never raw bytes. A client is single-use; reconnecting
// means dialing a fresh one.
type Client interface {
	// Connect dials the endpoint and starts the read and keepalive loops.
	Connect(ctx context.Context) error

	// Close tears the connection down. Safe to call more than once.
	Close() error

	// Subscribe asks the upstream to start pushing one instrument.
	Subscribe(address, network string) error

	// Unsubscribe asks the upstream to stop pushing one instrument.
	Unsubscribe(address, network string) error

	// Updates returns the parsed inbound price updates.
	Updates() <-chan PriceUpdate

	// Errors reports the connection failure, if any. At most one error is
	// delivered; after that the client is dead.
	Errors() <-chan error

	// IsConnected reports whether the connection is still live.
	IsConnected() bool
}

type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	updates chan PriceUpdate
	errs    chan error
	done    chan struct{}

	writeMu sync.Mutex // serializes frame writes

	mu       sync.RWMutex
	conn     *websocket.Conn
	live     bool
	closed   bool
	lastSeen time.Time // last ping/pong from the peer
}

// NewClient creates an unconnected push client.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &client{
		cfg:     cfg,
		logger:  logger,
		updates: make(chan PriceUpdate, cfg.BufferSize),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
}

// Dialer returns a DialFunc that builds and connects a fresh client per
// attempt.
func Dialer(cfg ClientConfig, logger *slog.Logger) DialFunc {
	return func(ctx context.Context) (Client, error) {
		c := NewClient(cfg, logger)
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
}

func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	touch := func(string) error {
		c.mu.Lock()
		c.lastSeen = time.Now()
		c.mu.Unlock()
		return nil
	}
	conn.SetPongHandler(touch)
	conn.SetPingHandler(func(data string) error {
		touch(data)
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	c.mu.Lock()
	c.conn = conn
	c.live = true
	c.lastSeen = time.Now()
	c.mu.Unlock()

	go c.readLoop(conn)
	go c.keepalive(conn)

	c.logger.Debug("push endpoint connected", "url", c.cfg.URL)
	return nil
}

func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.live = false
	conn := c.conn
	c.mu.Unlock()

	close(c.done)

	if conn == nil {
		return nil
	}
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}

func (c *client) Subscribe(address, network string) error {
	return c.writeControl(frameSubscribe, address, network)
}

func (c *client) Unsubscribe(address, network string) error {
	return c.writeControl(frameUnsubscribe, address, network)
}

func (c *client) Updates() <-chan PriceUpdate { return c.updates }

func (c *client) Errors() <-chan error { return c.errs }

func (c *client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.live
}

// writeControl sends one canonical-form control frame.
func (c *client) writeControl(frameType, address, network string) error {
	c.mu.RLock()
	conn := c.conn
	live := c.live
	c.mu.RUnlock()

	if !live || conn == nil {
		return ErrNotConnected
	}

	data, err := encodeControl(frameType, address, network)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", frameType, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// fail delivers the terminal connection error and marks the client dead.
func (c *client) fail(err error) {
	c.mu.Lock()
	c.live = false
	c.mu.Unlock()

	select {
	case c.errs <- err:
	default:
	}
}

// readLoop decodes inbound frames into updates until the connection dies.
// Frames the core does not consume are dropped where they land.
func (c *client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done: // deliberate Close, not a failure
			default:
				c.fail(err)
			}
			return
		}

		update, ok := decodeUpdate(data, time.Now())
		if !ok {
			continue
		}

		select {
		case c.updates <- update:
		case <-c.done:
			return
		default:
			c.logger.Warn("update buffer full, dropping", "key", update.Key)
		}
	}
}

// keepalive pings the peer and declares the connection stale when neither
// pings nor pongs arrive within the configured window.
func (c *client) keepalive(conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("ping write failed", "error", err)
			}

			c.mu.RLock()
			lastSeen := c.lastSeen
			c.mu.RUnlock()

			if time.Since(lastSeen) > c.cfg.PingTimeout {
				c.logger.Warn("peer silent past ping window, declaring stale",
					"last_seen", lastSeen,
					"window", c.cfg.PingTimeout,
				)
				c.fail(ErrStaleConnection)
				return
			}
		}
	}
}
