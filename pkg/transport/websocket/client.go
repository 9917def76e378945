package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HMasataka/relay/internal/logging"
	"github.com/HMasataka/relay/pkg/domain"
	"github.com/HMasataka/relay/pkg/errors"
	"github.com/gorilla/websocket"
)

// ClientOptions represents websocket client options
type ClientOptions struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxFrameSize   int64
	SendBufferSize int
}

// DefaultClientOptions returns default client options
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxFrameSize:   32 * 1024 * 1024, // room for a 10 MiB payload after base64 and JSON
		SendBufferSize: 256,
	}
}

// Client is one server-side WebSocket connection. It implements
// domain.Connection: Send only enqueues, a dedicated write pump drains
// the queue in order.
type Client struct {
	id      string
	conn    *websocket.Conn
	logger  *logging.Logger
	options ClientOptions

	send      chan []byte
	done      chan struct{}
	state     atomic.Int32
	closeOnce sync.Once
}

var _ domain.Connection = (*Client)(nil)

// NewClient creates a new WebSocket client
func NewClient(id string, conn *websocket.Conn, logger *logging.Logger, options ClientOptions) *Client {
	if options.SendBufferSize <= 0 {
		options.SendBufferSize = DefaultClientOptions().SendBufferSize
	}

	c := &Client{
		id:      id,
		conn:    conn,
		logger:  logger.WithFields(map[string]any{"client_id": id}),
		options: options,
		send:    make(chan []byte, options.SendBufferSize),
		done:    make(chan struct{}),
	}
	c.state.Store(int32(domain.StateOpen))
	return c
}

// ID implements domain.Connection
func (c *Client) ID() string {
	return c.id
}

// State implements domain.Connection
func (c *Client) State() domain.State {
	return domain.State(c.state.Load())
}

// Logger returns the client-scoped logger
func (c *Client) Logger() *logging.Logger {
	return c.logger
}

// Send implements domain.Connection. It never blocks: a full buffer
// fails with SEND_BUFFER_FULL.
func (c *Client) Send(ctx context.Context, frame []byte) error {
	if c.State() != domain.StateOpen {
		return domain.ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return domain.ErrConnectionClosed
	default:
		return errors.Wrap(domain.ErrSendBufferFull, errors.ErrorTypeTransport, errors.CodeSendBufferFull, "send buffer is full")
	}
}

// Close implements domain.Connection. It starts the close handshake and
// tears the socket down; Run returns once the read side notices.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.CompareAndSwap(int32(domain.StateOpen), int32(domain.StateClosing))
		close(c.done)

		deadline := time.Now().Add(c.options.WriteTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); werr != nil && werr != websocket.ErrCloseSent {
			c.logger.Debug("failed to write close frame", "error", werr)
		}

		err = c.conn.Close()
	})
	return err
}

// Done is closed once Close has been called
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Run starts the write pump and reads frames until the connection ends,
// calling handler for each frame in arrival order. It returns after the
// connection has been closed.
func (c *Client) Run(ctx context.Context, handler domain.FrameHandler) {
	go c.writePump()
	c.readPump(ctx, handler)
}

// readPump pumps frames from the websocket connection
func (c *Client) readPump(ctx context.Context, handler domain.FrameHandler) {
	defer func() {
		c.Close()
		c.state.Store(int32(domain.StateClosed))
		c.logger.Debug("read pump stopped")
	}()

	c.conn.SetReadLimit(c.options.MaxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(c.options.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.options.ReadTimeout))
	})

	for {
		messageType, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		c.conn.SetReadDeadline(time.Now().Add(c.options.ReadTimeout))
		handler(ctx, frame)
	}
}

// writePump pumps queued frames to the websocket connection
func (c *Client) writePump() {
	defer c.logger.Debug("write pump stopped")

	ticker := time.NewTicker(c.options.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("websocket write error", "error", err)
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("websocket ping error", "error", err)
				c.Close()
				return
			}
		}
	}
}
