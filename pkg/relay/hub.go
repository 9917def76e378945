package relay

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HMasataka/relay/internal/eventbus"
	"github.com/HMasataka/relay/internal/logging"
	"github.com/HMasataka/relay/pkg/domain"
	"github.com/HMasataka/relay/pkg/errors"
	"github.com/HMasataka/relay/pkg/transport/protocol"
)

// OversizeNotice is the message sent to a client whose media exceeded the bound
const OversizeNotice = "File size exceeds limit"

const eventSource = "hub"

// HubOptions configures a Hub. Zero values fall back to defaults.
type HubOptions struct {
	Codec        protocol.Codec
	Logger       *logging.Logger
	Bus          eventbus.Bus
	ErrorHandler errors.Handler
}

// Hub is the connection lifecycle manager. It owns the registry and
// serializes every registry mutation together with the fan-out that
// follows it, so all recipients observe rosters and messages in the
// same order.
type Hub struct {
	mu sync.Mutex

	registry   *Registry
	dispatcher *Dispatcher
	handlers   *HandlerRegistry
	codec      protocol.Codec
	bus        eventbus.Bus
	errHandler errors.Handler
	logger     *logging.Logger

	stopped atomic.Bool

	framesReceived atomic.Int64
	mediaRejected  atomic.Int64
	malformed      atomic.Int64
	startTime      time.Time
}

var _ domain.Lifecycle = (*Hub)(nil)

func NewHub(opts HubOptions) *Hub {
	if opts.Codec == nil {
		opts.Codec = protocol.NewJSONCodec(protocol.DefaultMaxMediaSize)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.ErrorHandler == nil {
		opts.ErrorHandler = errors.NewDefaultHandler(opts.Logger.Logger)
	}

	h := &Hub{
		registry:   NewRegistry(),
		dispatcher: NewDispatcher(opts.Codec, opts.Logger),
		handlers:   NewHandlerRegistry(),
		codec:      opts.Codec,
		bus:        opts.Bus,
		errHandler: opts.ErrorHandler,
		logger:     opts.Logger,
		startTime:  time.Now(),
	}

	h.handlers.Register(domain.KindJoin, HandlerFunc(h.handleJoin))
	h.handlers.Register(domain.KindMessage, HandlerFunc(h.handleMessage))
	h.handlers.Register(domain.KindMedia, HandlerFunc(h.handleMedia))
	h.handlers.Register(domain.KindOversizeMedia, HandlerFunc(h.handleOversize))

	return h
}

// Registry exposes the hub's registry for inspection
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Accept adds a newly opened connection. After Shutdown the connection is
// closed instead.
func (h *Hub) Accept(conn domain.Connection) {
	h.mu.Lock()
	if h.stopped.Load() {
		h.mu.Unlock()
		h.logger.Warn("rejecting connection", "client_id", conn.ID(), "error", domain.ErrHubStopped)
		_ = conn.Close()
		return
	}
	h.registry.Add(conn)
	total := h.registry.Len()
	h.mu.Unlock()

	h.logger.Info("client connected", "client_id", conn.ID(), "total_clients", total)
	h.publish(eventbus.EventConnectionOpened, eventbus.ConnectionData{ConnectionID: conn.ID()})
}

// HandleFrame decodes one raw frame from conn and acts on it. Malformed
// frames are logged and dropped; unknown kinds are dropped silently.
func (h *Hub) HandleFrame(ctx context.Context, conn domain.Connection, frame []byte) {
	if conn.State() != domain.StateOpen {
		return
	}
	h.framesReceived.Add(1)

	logger := logging.FromContextOr(ctx, h.logger)

	event, err := h.codec.Decode(frame)
	if err != nil {
		h.malformed.Add(1)
		h.errHandler.HandleWithLogger(ctx, err, logger.Logger)
		h.publish(eventbus.EventPayloadMalformed, eventbus.RejectionData{
			ConnectionID: conn.ID(),
			Reason:       err.Error(),
		})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.registry.Contains(conn) {
		return
	}

	if err := h.handlers.Handle(ctx, conn, event); err != nil {
		if stderrors.Is(err, errors.ErrNoHandler) {
			logger.Debug("ignoring frame", "kind", event.Kind())
			return
		}
		h.errHandler.HandleWithLogger(ctx, err, logger.Logger)
	}
}

// Close removes conn and sends the updated roster to everyone left. Only
// the first call for a connection has any effect.
func (h *Hub) Close(conn domain.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	username, joined := h.registry.Username(conn)
	if !h.registry.Remove(conn) {
		return
	}

	h.broadcastRoster(context.Background())

	h.logger.Info("client disconnected",
		"client_id", conn.ID(),
		"username", username,
		"joined", joined,
		"total_clients", h.registry.Len(),
	)
	h.publish(eventbus.EventConnectionClosed, eventbus.ConnectionData{
		ConnectionID: conn.ID(),
		Username:     username,
	})
}

// Shutdown closes every open connection and waits until the transport has
// reported all of them closed, or ctx is done.
func (h *Hub) Shutdown(ctx context.Context) error {
	// stopped flips under mu so that no Accept can add a connection after
	// the snapshot below is taken.
	h.mu.Lock()
	if !h.stopped.CompareAndSwap(false, true) {
		h.mu.Unlock()
		return nil
	}
	conns := h.registry.Connections()
	h.mu.Unlock()

	h.logger.Info("stopping hub")

	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			h.logger.Debug("failed to close client", "client_id", conn.ID(), "error", err)
		}
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for h.registry.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	h.logger.Info("hub stopped")
	return nil
}

// Stats returns a snapshot of hub counters
func (h *Hub) Stats() domain.HubStats {
	return domain.HubStats{
		OpenConnections: h.registry.Len(),
		JoinedUsers:     h.registry.JoinedLen(),
		FramesReceived:  h.framesReceived.Load(),
		FramesDelivered: h.dispatcher.Delivered(),
		SendFailures:    h.dispatcher.Failed(),
		MediaRejected:   h.mediaRejected.Load(),
		Malformed:       h.malformed.Load(),
		Uptime:          time.Since(h.startTime).Seconds(),
	}
}

// Handlers below run with h.mu held.

func (h *Hub) handleJoin(ctx context.Context, conn domain.Connection, event domain.Event) {
	join := event.(domain.Join)

	h.registry.Register(conn, join.Username)
	h.broadcastRoster(ctx)

	logging.FromContextOr(ctx, h.logger).Info("user joined", "username", join.Username)
	h.publish(eventbus.EventUserJoined, eventbus.ConnectionData{
		ConnectionID: conn.ID(),
		Username:     join.Username,
	})
}

func (h *Hub) handleMessage(ctx context.Context, _ domain.Connection, event domain.Event) {
	h.dispatcher.Broadcast(ctx, event, h.registry.Connections())
}

// handleMedia relays the payload and content type exactly as received
func (h *Hub) handleMedia(ctx context.Context, _ domain.Connection, event domain.Event) {
	h.dispatcher.Broadcast(ctx, event, h.registry.Connections())
}

func (h *Hub) handleOversize(ctx context.Context, conn domain.Connection, event domain.Event) {
	oversize := event.(domain.OversizeMedia)
	h.mediaRejected.Add(1)

	logging.FromContextOr(ctx, h.logger).Info("media rejected",
		"username", oversize.Username,
		"size", oversize.Size,
		"limit", oversize.Limit,
	)

	h.dispatcher.BroadcastToOne(ctx, domain.ErrorNotice{Message: OversizeNotice}, conn)
	h.publish(eventbus.EventMediaRejected, eventbus.RejectionData{
		ConnectionID: conn.ID(),
		Reason:       OversizeNotice,
	})
}

func (h *Hub) broadcastRoster(ctx context.Context) {
	roster := domain.RosterUpdate{Usernames: h.registry.ListUsernames()}
	h.dispatcher.Broadcast(ctx, roster, h.registry.Connections())
}

func (h *Hub) publish(eventType eventbus.EventType, data any) {
	if h.bus == nil {
		return
	}
	h.bus.PublishAsync(eventbus.NewEvent(eventType, eventSource, data))
}
