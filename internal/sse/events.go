// Package sse streams server events to connected readers: cross-device
// progress updates and library changes.
package sse

import "time"

// EventType identifies an SSE event.
type EventType string

// Event types delivered to clients.
const (
	EventHeartbeat       EventType = "heartbeat"
	EventConnected       EventType = "connected"
	EventProgressUpdated EventType = "progress.updated"
	EventLibraryUpdated  EventType = "library.updated"
)

// Event is the wire format for one SSE message.
// UserID scopes delivery: events with a user id only reach that user's
// connections. BookID is informational for clients.
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	BookID    string    `json:"book_id,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{Type: EventHeartbeat, Timestamp: time.Now()}
}

// NewLibraryUpdatedEvent signals that the book list changed.
func NewLibraryUpdatedEvent() Event {
	return Event{Type: EventLibraryUpdated, Timestamp: time.Now()}
}
