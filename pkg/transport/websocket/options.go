package websocket

import (
	"net/http"

	"github.com/HMasataka/relay/internal/logging"
	"github.com/HMasataka/relay/pkg/domain"
)

// ServerOption is a function that configures ServerOptions
type ServerOption func(*ServerOptions)

// WithLifecycle sets the component notified about connections and frames
func WithLifecycle(lifecycle domain.Lifecycle) ServerOption {
	return func(o *ServerOptions) {
		o.Lifecycle = lifecycle
	}
}

// WithLogger sets the logger for the server
func WithLogger(logger *logging.Logger) ServerOption {
	return func(o *ServerOptions) {
		o.Logger = logger
	}
}

// WithCheckOrigin sets the check origin function
func WithCheckOrigin(checkOrigin func(r *http.Request) bool) ServerOption {
	return func(o *ServerOptions) {
		o.CheckOrigin = checkOrigin
	}
}

// WithClientOptions sets the per-connection options
func WithClientOptions(options ClientOptions) ServerOption {
	return func(o *ServerOptions) {
		o.Client = options
	}
}
