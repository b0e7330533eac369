package bus

import "time"

// EventType identifies a client-facing event.
type EventType string

// Event types emitted on the per-session stream.
const (
	EventStreamStart EventType = "streamStart"
	EventStreamChunk EventType = "streamChunk"
	EventStreamEnd   EventType = "streamEnd"
	EventToolCall    EventType = "toolCall"
	EventToolResult  EventType = "toolResult"
	EventAuthRequest EventType = "authRequest"
	EventError       EventType = "error"
)

// Event is one entry on a session's client-facing event stream. Tool names
// in events always use the backend's original spelling, never the canonical
// form used for dispatch.
type Event struct {
	Type       EventType `json:"type"`
	SessionID  string    `json:"session_id"`
	Content    string    `json:"content,omitempty"`
	Tool       string    `json:"tool,omitempty"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	Success    bool      `json:"success,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	TargetDir  string    `json:"target_dir,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// PublishEvent puts an event on the session's stream.
func (b *MessageBus) PublishEvent(ev *Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if ev.Type == EventAuthRequest {
		// A dropped authorization request could only time out; deliver it
		// even when the stream is backed up.
		b.events <- ev
		return
	}
	select {
	case b.events <- ev:
	default:
		// Event stream is advisory; drop rather than block the turn.
	}
}
