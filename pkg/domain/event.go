package domain

// EventKind is the wire discriminator of an event
type EventKind string

const (
	KindJoin    EventKind = "join"
	KindMessage EventKind = "message"
	KindMedia   EventKind = "media"
	KindUsers   EventKind = "users"
	KindError   EventKind = "error"

	// KindIgnored marks frames whose type is not recognized
	KindIgnored EventKind = "ignored"
	// KindOversizeMedia marks media frames rejected by the size bound
	KindOversizeMedia EventKind = "oversize_media"
)

// Event is one relay event. The set of implementations is closed.
type Event interface {
	Kind() EventKind
	event()
}

// Join announces the display name of a connection
type Join struct {
	Username string
}

// ChatMessage is a text message relayed to every client
type ChatMessage struct {
	Username string
	Text     string
}

// MediaMessage is an opaque media blob relayed to every client.
// DataURL holds the "data:<type>;base64," header the payload arrived
// with, so it can be written back unchanged; it is empty for plain base64.
type MediaMessage struct {
	Username    string
	Data        []byte
	ContentType string
	DataURL     string
}

// RosterUpdate carries the current list of joined usernames
type RosterUpdate struct {
	Usernames []string
}

// ErrorNotice is sent only to the connection that caused it
type ErrorNotice struct {
	Message string
}

// Ignored is produced for frames with an unknown type
type Ignored struct {
	Type string
}

// OversizeMedia is produced for media frames whose data exceeds the limit
type OversizeMedia struct {
	Username string
	Size     int
	Limit    int64
}

func (Join) Kind() EventKind { return KindJoin }
func (ChatMessage) Kind() EventKind { return KindMessage }
func (MediaMessage) Kind() EventKind { return KindMedia }
func (RosterUpdate) Kind() EventKind { return KindUsers }
func (ErrorNotice) Kind() EventKind { return KindError }
func (Ignored) Kind() EventKind { return KindIgnored }
func (OversizeMedia) Kind() EventKind { return KindOversizeMedia }

func (Join) event() {}
func (ChatMessage) event() {}
func (MediaMessage) event() {}
func (RosterUpdate) event() {}
func (ErrorNotice) event() {}
func (Ignored) event() {}
func (OversizeMedia) event() {}
