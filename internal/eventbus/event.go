package eventbus

import (
	"time"

	"github.com/rs/xid"
)

// EventType represents the type of event
type EventType string

// Event types
const (
	EventConnectionOpened EventType = "connection.opened"
	EventConnectionClosed EventType = "connection.closed"
	EventUserJoined       EventType = "user.joined"
	EventMediaRejected    EventType = "media.rejected"
	EventPayloadMalformed EventType = "payload.malformed"
)

// Event represents a relay lifecycle event
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Data      any       `json:"data"`
}

// ConnectionData is carried by connection and join events
type ConnectionData struct {
	ConnectionID string `json:"connection_id"`
	Username     string `json:"username,omitempty"`
}

// RejectionData is carried by media.rejected and payload.malformed events
type RejectionData struct {
	ConnectionID string `json:"connection_id"`
	Reason       string `json:"reason"`
}

// NewEvent creates a new event
func NewEvent(eventType EventType, source string, data any) *Event {
	return &Event{
		ID:        generateID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	}
}

func generateID() string {
	return xid.New().String()
}
