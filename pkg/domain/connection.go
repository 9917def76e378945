//go:generate go run go.uber.org/mock/mockgen -source=connection.go -destination=../../mocks/mock_connection.go -package=mocks
package domain

import (
	"context"
)

// State is the observable lifecycle state of a connection
type State int32

const (
	// StateOpen means frames can be sent to the connection
	StateOpen State = iota
	// StateClosing means the close handshake has started
	StateClosing
	// StateClosed means the underlying channel is gone
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection represents one open duplex channel to a client.
// The transport owns it; the relay only keeps a reference while it is open.
type Connection interface {
	// ID returns the unique identifier of the connection
	ID() string

	// State reports the current state; it may change concurrently
	State() State

	// Send queues a frame for delivery without waiting for the peer
	Send(ctx context.Context, frame []byte) error

	// Close closes the connection
	Close() error
}

// FrameHandler is a function that handles inbound frames
type FrameHandler func(ctx context.Context, frame []byte)
