// Package chatclient is a Go client for the relay wire protocol.
package chatclient

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/HMasataka/relay/internal/logging"
	"github.com/HMasataka/relay/pkg/domain"
	"github.com/HMasataka/relay/pkg/errors"
	"github.com/HMasataka/relay/pkg/transport/protocol"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/websocket"
)

// Options represents chat client options
type Options struct {
	Logger       *logging.Logger
	Codec        protocol.Codec
	Header       http.Header
	EventBuffer  int
	WriteTimeout time.Duration
	MaxFrameSize int64
}

// DefaultOptions returns default client options
func DefaultOptions() Options {
	return Options{
		EventBuffer:  64,
		WriteTimeout: 10 * time.Second,
		MaxFrameSize: 32 * 1024 * 1024,
	}
}

// Client is a connected relay participant
type Client struct {
	conn    *websocket.Conn
	codec   protocol.Codec
	logger  *logging.Logger
	options Options

	username string
	mu       sync.RWMutex
	writeMu  sync.Mutex

	events    chan domain.Event
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the relay at rawURL (ws:// or wss://) and starts
// receiving events.
func Dial(ctx context.Context, rawURL string, options Options) (*Client, error) {
	defaults := DefaultOptions()
	if options.Logger == nil {
		options.Logger = logging.Discard()
	}
	if options.Codec == nil {
		options.Codec = protocol.NewJSONCodec(protocol.DefaultMaxMediaSize)
	}
	if options.EventBuffer <= 0 {
		options.EventBuffer = defaults.EventBuffer
	}
	if options.WriteTimeout <= 0 {
		options.WriteTimeout = defaults.WriteTimeout
	}
	if options.MaxFrameSize <= 0 {
		options.MaxFrameSize = defaults.MaxFrameSize
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, options.Header)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTransport, errors.CodeDial, "failed to connect to server").
			WithDetails(rawURL)
	}
	conn.SetReadLimit(options.MaxFrameSize)

	c := &Client{
		conn:    conn,
		codec:   options.Codec,
		logger:  options.Logger,
		options: options,
		events:  make(chan domain.Event, options.EventBuffer),
		done:    make(chan struct{}),
	}

	go c.readLoop()

	c.logger.Info("connected to relay", "url", rawURL)
	return c, nil
}

// Events returns decoded server events. The channel is closed when the
// connection ends.
func (c *Client) Events() <-chan domain.Event {
	return c.events
}

// Username returns the name used in the last Join
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// Join announces username. Calling it again renames the client.
func (c *Client) Join(username string) error {
	c.mu.Lock()
	c.username = username
	c.mu.Unlock()

	return c.send(domain.Join{Username: username})
}

// SendText broadcasts a chat message under the joined name
func (c *Client) SendText(text string) error {
	return c.send(domain.ChatMessage{Username: c.Username(), Text: text})
}

// SendMedia broadcasts a binary payload. An empty contentType is detected
// from the payload.
func (c *Client) SendMedia(data []byte, contentType string) error {
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	return c.send(domain.MediaMessage{Username: c.Username(), Data: data, ContentType: contentType})
}

// SendFile reads path and broadcasts it as media
func (c *Client) SendFile(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return c.SendMedia(data, mtype.String())
}

// Close ends the connection with a normal close frame
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.options.WriteTimeout))
		err = c.conn.Close()
	})
	return err
}

func (c *Client) send(event domain.Event) error {
	frame, err := c.codec.Encode(event)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return domain.ErrConnectionClosed
	default:
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Client) readLoop() {
	defer close(c.events)
	defer c.Close()

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("connection lost", "error", err)
			}
			return
		}

		event, err := c.codec.Decode(frame)
		if err != nil {
			c.logger.Warn("dropping undecodable frame", "error", err)
			continue
		}

		select {
		case c.events <- event:
		case <-c.done:
			return
		}
	}
}
