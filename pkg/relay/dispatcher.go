package relay

import (
	"context"
	"sync/atomic"

	"github.com/HMasataka/relay/internal/logging"
	"github.com/HMasataka/relay/pkg/domain"
	"github.com/HMasataka/relay/pkg/transport/protocol"
)

// Delivery reports the outcome of one fan-out
type Delivery struct {
	Delivered int
	Skipped   int
	Failed    int
}

// Dispatcher encodes an event once and hands the frame to each open
// connection. Send errors are counted and logged, never returned.
type Dispatcher struct {
	codec  protocol.Codec
	logger *logging.Logger

	delivered atomic.Int64
	failed    atomic.Int64
}

func NewDispatcher(codec protocol.Codec, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		codec:  codec,
		logger: logger,
	}
}

// Broadcast sends event to every connection in conns that is open at the
// moment of sending.
func (d *Dispatcher) Broadcast(ctx context.Context, event domain.Event, conns []domain.Connection) Delivery {
	frame, err := d.codec.Encode(event)
	if err != nil {
		d.logger.Error("failed to encode event", "kind", kindOf(event), "error", err)
		return Delivery{}
	}

	var report Delivery
	for _, conn := range conns {
		d.send(ctx, conn, frame, &report)
	}

	d.logger.Debug("broadcast complete",
		"kind", event.Kind(),
		"delivered", report.Delivered,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)

	return report
}

// BroadcastToOne sends event to conn alone.
func (d *Dispatcher) BroadcastToOne(ctx context.Context, event domain.Event, conn domain.Connection) Delivery {
	return d.Broadcast(ctx, event, []domain.Connection{conn})
}

func (d *Dispatcher) send(ctx context.Context, conn domain.Connection, frame []byte, report *Delivery) {
	if conn.State() != domain.StateOpen {
		report.Skipped++
		return
	}

	if err := conn.Send(ctx, frame); err != nil {
		report.Failed++
		d.failed.Add(1)
		d.logger.Debug("failed to send to client", "client_id", conn.ID(), "error", err)
		return
	}

	report.Delivered++
	d.delivered.Add(1)
}

// Delivered returns the number of frames handed to connections so far
func (d *Dispatcher) Delivered() int64 {
	return d.delivered.Load()
}

// Failed returns the number of sends that returned an error so far
func (d *Dispatcher) Failed() int64 {
	return d.failed.Load()
}

func kindOf(event domain.Event) domain.EventKind {
	if event == nil {
		return ""
	}
	return event.Kind()
}
