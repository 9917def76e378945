package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/HMasataka/relay/pkg/domain"
	"github.com/HMasataka/relay/pkg/errors"
)

// Handler processes one decoded event from conn
type Handler interface {
	Handle(ctx context.Context, conn domain.Connection, event domain.Event)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, conn domain.Connection, event domain.Event)

func (f HandlerFunc) Handle(ctx context.Context, conn domain.Connection, event domain.Event) {
	f(ctx, conn, event)
}

// HandlerRegistry routes events to handlers by kind
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[domain.EventKind]Handler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[domain.EventKind]Handler),
	}
}

func (r *HandlerRegistry) Register(kind domain.EventKind, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[kind] = handler
}

func (r *HandlerRegistry) Get(kind domain.EventKind) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[kind]
	return handler, ok
}

// Handle runs the handler registered for event's kind. It returns
// errors.ErrNoHandler when there is none.
func (r *HandlerRegistry) Handle(ctx context.Context, conn domain.Connection, event domain.Event) error {
	handler, ok := r.Get(event.Kind())
	if !ok {
		return errors.New(errors.ErrorTypeNotFound, errors.CodeNoHandler, "no handler for event kind").
			WithDetails(fmt.Sprintf("kind %q", event.Kind()))
	}

	handler.Handle(ctx, conn, event)
	return nil
}
