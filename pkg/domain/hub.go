package domain

import (
	"context"
)

// Lifecycle is the contract between the transport and the relay core.
// The transport calls Accept once, HandleFrame for every inbound frame
// in arrival order, and Close exactly once.
type Lifecycle interface {
	// Accept adds a freshly opened connection
	Accept(conn Connection)

	// HandleFrame processes one raw inbound frame
	HandleFrame(ctx context.Context, conn Connection, frame []byte)

	// Close removes a connection after the transport reported it closed
	Close(conn Connection)
}

// HubStats provides statistics about the hub
type HubStats struct {
	OpenConnections int     `json:"open_connections"`
	JoinedUsers     int     `json:"joined_users"`
	FramesReceived  int64   `json:"frames_received"`
	FramesDelivered int64   `json:"frames_delivered"`
	SendFailures    int64   `json:"send_failures"`
	MediaRejected   int64   `json:"media_rejected"`
	Malformed       int64   `json:"malformed_frames"`
	Uptime          float64 `json:"uptime_seconds"`
}
