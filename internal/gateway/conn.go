package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one bidirectional frame channel to the gateway. Frames read from
// the socket are delivered on Frames(); a read or staleness failure is
// delivered once on Errors(). Close is idempotent and safe on every exit
// path.
type Conn interface {
	// Connect performs the websocket handshake.
	Connect(ctx context.Context) error

	// Send writes one frame. Sends are serialized internally, but callers
	// are expected to be the connection's single writer.
	Send(data []byte) error

	// Frames returns the inbound frame channel.
	Frames() <-chan []byte

	// Errors returns a channel carrying the first fatal connection error.
	Errors() <-chan error

	// Close releases the connection. Safe to call multiple times.
	Close() error

	// IsConnected reports the current connection state.
	IsConnected() bool
}

type conn struct {
	cfg    Config
	logger *slog.Logger

	ws *websocket.Conn

	frames chan []byte
	errs   chan error
	done   chan struct{}

	// Serializes writes to the socket.
	writeMu sync.Mutex

	mu         sync.RWMutex
	connected  bool
	closed     bool
	lastSeenAt time.Time
}

// New creates an unconnected Conn.
func New(cfg Config, logger *slog.Logger) Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &conn{
		cfg:    cfg,
		logger: logger,
		frames: make(chan []byte, cfg.BufferSize),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (c *conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.DialTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.ws = ws
	c.connected = true
	c.lastSeenAt = time.Now()
	c.mu.Unlock()

	// Any inbound traffic counts as liveness.
	ws.SetPingHandler(func(data string) error {
		c.touch()
		return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	ws.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	go c.readLoop()
	if c.cfg.StaleAfter > 0 {
		go c.watchdog()
	}

	c.logger.Debug("gateway connected", "url", c.cfg.URL)
	return nil
}

func (c *conn) Send(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	ws := c.ws
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return ws.WriteMessage(websocket.TextMessage, data)
}

func (c *conn) Frames() <-chan []byte {
	return c.frames
}

func (c *conn) Errors() <-chan error {
	return c.errs
}

func (c *conn) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	ws := c.ws
	c.mu.Unlock()

	close(c.done)

	if ws != nil {
		ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return ws.Close()
	}
	return nil
}

func (c *conn) touch() {
	c.mu.Lock()
	c.lastSeenAt = time.Now()
	c.mu.Unlock()
}

// fail reports a fatal connection error exactly once; errors after Close are
// discarded.
func (c *conn) fail(err error) {
	select {
	case <-c.done:
	default:
		select {
		case c.errs <- err:
		default:
		}
	}
}

func (c *conn) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		c.touch()

		select {
		case c.frames <- data:
		case <-c.done:
			return
		default:
			c.logger.Warn("inbound frame buffer full, dropping frame")
		}
	}
}

// watchdog declares the connection dead after prolonged silence, so a
// session never hangs on a half-open socket.
func (c *conn) watchdog() {
	interval := c.cfg.StaleAfter / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.RLock()
			ws := c.ws
			last := c.lastSeenAt
			c.mu.RUnlock()

			if ws != nil {
				deadline := time.Now().Add(c.cfg.WriteTimeout)
				if err := ws.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
					c.logger.Debug("keepalive ping failed", "error", err)
				}
			}

			if time.Since(last) > c.cfg.StaleAfter {
				c.fail(ErrStale)
				return
			}
		}
	}
}
