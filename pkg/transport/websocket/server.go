package websocket

import (
	"context"
	"net/http"

	"github.com/HMasataka/relay/internal/logging"
	"github.com/HMasataka/relay/pkg/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/xid"
)

// ServerOptions represents websocket server options
type ServerOptions struct {
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
	Lifecycle       domain.Lifecycle
	Logger          *logging.Logger
	Client          ClientOptions
}

// Server upgrades HTTP requests and runs each connection against a
// domain.Lifecycle
type Server struct {
	upgrader  websocket.Upgrader
	lifecycle domain.Lifecycle
	logger    *logging.Logger
	options   ServerOptions
}

// NewServer creates a new WebSocket server
func NewServer(opts ...ServerOption) *Server {
	options := ServerOptions{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		Client:          DefaultClientOptions(),
	}

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = logging.Discard()
	}
	if options.CheckOrigin == nil {
		options.CheckOrigin = NewOriginPolicy([]string{"*"}, options.Logger).Check
	}

	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  options.ReadBufferSize,
			WriteBufferSize: options.WriteBufferSize,
			CheckOrigin:     options.CheckOrigin,
		},
		lifecycle: options.Lifecycle,
		logger:    options.Logger,
		options:   options,
	}
}

// ServeHTTP implements http.Handler. It blocks for the lifetime of the
// connection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade error",
			"error", err,
			"remote_addr", r.RemoteAddr,
		)
		return
	}

	client := NewClient(xid.New().String(), conn, s.logger, s.options.Client)
	client.Logger().Debug("client upgraded", "remote_addr", r.RemoteAddr)

	ctx := logging.WithLogger(context.WithoutCancel(r.Context()), client.Logger())

	s.lifecycle.Accept(client)
	client.Run(ctx, func(ctx context.Context, frame []byte) {
		s.lifecycle.HandleFrame(ctx, client, frame)
	})
	s.lifecycle.Close(client)
}

// IsUpgrade reports whether r asks for a WebSocket upgrade
func IsUpgrade(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r)
}
