package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/HMasataka/relay/internal/config"
	"github.com/HMasataka/relay/internal/logging"
)

// Lifecycle is the part of the relay hub the HTTP server has to stop
type Lifecycle interface {
	Shutdown(ctx context.Context) error
}

// Server couples the HTTP listener with the relay so both stop together
type Server struct {
	http   *http.Server
	hub    Lifecycle
	logger *logging.Logger
}

// New creates an HTTP server for handler using the server configuration
func New(cfg config.ServerConfig, handler http.Handler, hub Lifecycle, logger *logging.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		hub:    hub,
		logger: logger,
	}
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.http.Addr
}

// Serve accepts connections on l until Shutdown is called
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("websocket server listening", "addr", l.Addr().String())

	if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured address and serves
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(l)
}

// Shutdown stops accepting requests, then closes every relay connection.
// Upgraded connections are not tracked by net/http, so the hub closes them.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	httpErr := s.http.Shutdown(ctx)
	hubErr := s.hub.Shutdown(ctx)

	if err := errors.Join(httpErr, hubErr); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http server shutdown completed")
	return nil
}
