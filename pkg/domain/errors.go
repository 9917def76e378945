package domain

import (
	"errors"
)

// Common domain errors
var (
	// ErrConnectionClosed is returned when trying to use a closed connection
	ErrConnectionClosed = errors.New("connection closed")

	// ErrSendBufferFull is returned when a connection cannot accept more frames
	ErrSendBufferFull = errors.New("send buffer full")

	// ErrHubStopped is returned when trying to use a hub that has been shut down
	ErrHubStopped = errors.New("hub stopped")
)
