package engine

// EventType identifies an engine lifecycle event.
type EventType string

const (
	EventConnected     EventType = "connected"
	EventDisconnected  EventType = "disconnected"
	EventStreamStarted EventType = "stream_started"
	EventPaused        EventType = "paused"
	EventResumed       EventType = "resumed"
	EventFlushed       EventType = "flushed"
	EventTrackEnded    EventType = "track_ended"
)

// Event is one notification to the engine's owner. Events replace the
// delegate callbacks a coordinating object would otherwise hold into the
// engine, so there is no reference cycle between the two.
type Event struct {
	Type EventType `json:"type"`

	// URL is set on stream_started events.
	URL string `json:"url,omitempty"`
}

// State is the connection lifecycle state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}
