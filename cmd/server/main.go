package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/HMasataka/relay/internal/config"
	"github.com/HMasataka/relay/internal/eventbus"
	"github.com/HMasataka/relay/internal/logging"
	"github.com/HMasataka/relay/internal/server"
	"github.com/HMasataka/relay/pkg/errors"
	"github.com/HMasataka/relay/pkg/relay"
	"github.com/HMasataka/relay/pkg/transport/protocol"
	"github.com/HMasataka/relay/pkg/transport/websocket"
)

func main() {
	configPath := flag.String("config", "", "path to a .yaml or .json config file")
	flag.Parse()

	cfg, err := config.Load(config.LoadOptions{Path: *configPath})
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := eventbus.NewQueue(cfg.Relay.EventBuffer)
	bus.Subscribe(audit(logger, slog.LevelDebug),
		eventbus.EventConnectionOpened,
		eventbus.EventConnectionClosed,
		eventbus.EventUserJoined,
	)
	bus.Subscribe(audit(logger, slog.LevelInfo),
		eventbus.EventMediaRejected,
		eventbus.EventPayloadMalformed,
	)
	bus.Start(ctx)

	hub := relay.NewHub(relay.HubOptions{
		Codec:        protocol.NewJSONCodec(cfg.Relay.MaxMediaSize),
		Logger:       logger,
		Bus:          bus,
		ErrorHandler: errors.NewDefaultHandler(logger.Logger),
	})

	ws := websocket.NewServer(
		websocket.WithLifecycle(hub),
		websocket.WithLogger(logger),
		websocket.WithCheckOrigin(websocket.NewOriginPolicy(cfg.Server.AllowedOrigins, logger).Check),
		websocket.WithClientOptions(websocket.ClientOptions{
			WriteTimeout:   cfg.Relay.WriteTimeout,
			ReadTimeout:    cfg.Relay.ReadTimeout,
			PingInterval:   cfg.Relay.PingInterval,
			MaxFrameSize:   cfg.Relay.MaxFrameSize,
			SendBufferSize: cfg.Relay.SendBufferSize,
		}),
	)

	srv := server.New(cfg.Server, server.NewRouter(ws, hub, logger), hub, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	bus.Stop()

	stats := hub.Stats()
	logger.Info("relay stopped",
		"frames_received", stats.FramesReceived,
		"frames_delivered", stats.FramesDelivered,
		"uptime_seconds", stats.Uptime,
		"audit_events", bus.Delivered(),
		"audit_dropped", bus.Dropped(),
	)
}

func audit(logger *logging.Logger, level slog.Level) eventbus.Handler {
	return func(event *eventbus.Event) {
		logger.Log(context.Background(), level, "relay event",
			"event_id", event.ID,
			"event_type", event.Type,
			"data", event.Data,
		)
	}
}
