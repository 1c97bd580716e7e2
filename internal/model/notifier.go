package model

import "time"

// EventKind is the closed set of notifications observers can receive.
type EventKind string

const (
	StatsUpdated    EventKind = "stats_updated"
	ProgressUpdated EventKind = "progress_updated"
)

// Event is a fire-and-forget notification.
type Event struct {
	Kind   EventKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
	Time   time.Time `json:"time"`
}

// NewEvent stamps an event with the current time.
func NewEvent(kind EventKind, detail string) Event {
	return Event{Kind: kind, Detail: detail, Time: time.Now()}
}

// Notifier defines a generic interface for posting notifications.
// Implementations must not block the caller.
type Notifier interface {
	Post(event Event)
}
