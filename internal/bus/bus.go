// Package bus provides the async message bus between the gateway surfaces
// and the agent core.
package bus

import (
	"context"
	"sync"
	"time"
)

// Well-known metadata keys and message type constants.
const (
	MetaKeyMessageType  = "message_type"
	MetaKeyHidden       = "hidden"
	MetaKeySchedulerJob = "scheduler_job"
	MessageTypeInternal = "internal"
	MessageTypeExternal = "external"
)

// AuthResponse is the client's decision for a pending authorization request.
type AuthResponse struct {
	RequestID  string `json:"request_id"`
	Authorized bool   `json:"authorized"`
	Reason     string `json:"reason,omitempty"`
}

// InboundMessage represents a message from a client (or the scheduler) to
// the agent. A message carries either chat Content or an AuthResponse.
type InboundMessage struct {
	SessionID    string         `json:"session_id"`
	SenderID     string         `json:"sender_id"`
	TraceID      string         `json:"trace_id"`
	Content      string         `json:"content"`
	AuthResponse *AuthResponse  `json:"auth_response,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// MessageType returns the message type from metadata, defaulting to external.
func (m *InboundMessage) MessageType() string {
	if m.Metadata != nil {
		if v, ok := m.Metadata[MetaKeyMessageType].(string); ok && v != "" {
			return v
		}
	}
	return MessageTypeExternal
}

// Hidden reports whether this message should be injected into the
// conversation without being shown to the user (e.g. authorization grants).
func (m *InboundMessage) Hidden() bool {
	if m.Metadata == nil {
		return false
	}
	v, _ := m.Metadata[MetaKeyHidden].(bool)
	return v
}

// OutboundMessage represents a final assistant reply for a session.
type OutboundMessage struct {
	SessionID string `json:"session_id"`
	TraceID   string `json:"trace_id"`
	Content   string `json:"content"`
}

// MessageBus decouples the gateway, scheduler, and CLI from the agent core.
type MessageBus struct {
	inbound  chan *InboundMessage
	outbound chan *OutboundMessage
	events   chan *Event

	mu        sync.RWMutex
	subs      map[string][]func(*OutboundMessage)
	eventSubs map[string][]func(*Event)
	allEvents []func(*Event)
}

// NewMessageBus creates a new message bus.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:   make(chan *InboundMessage, 100),
		outbound:  make(chan *OutboundMessage, 100),
		events:    make(chan *Event, 256),
		subs:      make(map[string][]func(*OutboundMessage)),
		eventSubs: make(map[string][]func(*Event)),
	}
}

// PublishInbound sends a message toward the agent core.
func (b *MessageBus) PublishInbound(msg *InboundMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	b.inbound <- msg
}

// ConsumeInbound blocks until a message is available or context is cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (*InboundMessage, error) {
	select {
	case msg := <-b.inbound:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PublishOutbound sends a final reply toward the client surfaces.
func (b *MessageBus) PublishOutbound(msg *OutboundMessage) {
	b.outbound <- msg
}

// Subscribe registers a callback for outbound messages of a session.
func (b *MessageBus) Subscribe(sessionID string, callback func(*OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sessionID] = append(b.subs[sessionID], callback)
}

// SubscribeEvents registers a callback for the event stream of a session.
func (b *MessageBus) SubscribeEvents(sessionID string, callback func(*Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.eventSubs[sessionID] = append(b.eventSubs[sessionID], callback)
}

// SubscribeAllEvents registers a callback for every event on the bus
// (audit mirror, notifiers).
func (b *MessageBus) SubscribeAllEvents(callback func(*Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allEvents = append(b.allEvents, callback)
}

// Dispatch runs the outbound and event dispatchers until the context ends.
// This should be run as a goroutine.
func (b *MessageBus) Dispatch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-b.outbound:
			b.mu.RLock()
			callbacks := b.subs[msg.SessionID]
			b.mu.RUnlock()
			for _, cb := range callbacks {
				cb(msg)
			}
		case ev := <-b.events:
			b.mu.RLock()
			callbacks := append([]func(*Event){}, b.eventSubs[ev.SessionID]...)
			callbacks = append(callbacks, b.allEvents...)
			b.mu.RUnlock()
			for _, cb := range callbacks {
				cb(ev)
			}
		}
	}
}

// InboundSize returns the number of pending inbound messages.
func (b *MessageBus) InboundSize() int {
	return len(b.inbound)
}
