package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
)

// Handler receives lifecycle events on the queue's worker goroutine.
type Handler func(event *Event)

// Bus is the publishing side the hub depends on. PublishAsync must never
// block the caller.
type Bus interface {
	PublishAsync(event *Event)
}

// Queue fans relay lifecycle events out to audit handlers on a single
// worker goroutine. Publishing is lossy: when the buffer is full the event
// is counted in Dropped and discarded.
type Queue struct {
	mu       sync.RWMutex
	routes   map[EventType][]Handler
	wildcard []Handler

	events    chan *Event
	dropped   atomic.Int64
	delivered atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewQueue creates a queue holding up to bufferSize pending events.
func NewQueue(bufferSize int) *Queue {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &Queue{
		routes: make(map[EventType][]Handler),
		events: make(chan *Event, bufferSize),
	}
}

// Subscribe registers handler for the given event types, or for every
// event when no type is given. Handlers run in registration order.
func (q *Queue) Subscribe(handler Handler, types ...EventType) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(types) == 0 {
		q.wildcard = append(q.wildcard, handler)
		return
	}
	for _, t := range types {
		q.routes[t] = append(q.routes[t], handler)
	}
}

func (q *Queue) PublishAsync(event *Event) {
	if event == nil {
		return
	}
	select {
	case q.events <- event:
	default:
		q.dropped.Add(1)
	}
}

// Dropped reports events discarded because the buffer was full.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Delivered reports events the worker has routed to handlers.
func (q *Queue) Delivered() int64 {
	return q.delivered.Load()
}

// Start launches the worker. It returns immediately.
func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	q.done = make(chan struct{})
	go q.run(ctx)
}

// Stop halts the worker after delivering whatever is already buffered.
// The channel is never closed, so publishing after Stop is safe and the
// event simply stays queued or is dropped.
func (q *Queue) Stop() {
	if q.cancel == nil {
		return
	}
	q.cancel()
	<-q.done
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)

	for {
		select {
		case <-ctx.Done():
			q.drain()
			return
		case event := <-q.events:
			q.deliver(event)
		}
	}
}

func (q *Queue) drain() {
	for {
		select {
		case event := <-q.events:
			q.deliver(event)
		default:
			return
		}
	}
}

func (q *Queue) deliver(event *Event) {
	q.mu.RLock()
	handlers := make([]Handler, 0, len(q.routes[event.Type])+len(q.wildcard))
	handlers = append(handlers, q.routes[event.Type]...)
	handlers = append(handlers, q.wildcard...)
	q.mu.RUnlock()

	q.delivered.Add(1)
	for _, handle := range handlers {
		handle(event)
	}
}
