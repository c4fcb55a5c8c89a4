package events

import (
	"time"
)

// EventType represents the severity of an event.
type EventType string

const (
	// EventTypeNormal indicates normal, non-problematic events.
	EventTypeNormal EventType = "Normal"

	// EventTypeWarning indicates events that may require attention.
	EventTypeWarning EventType = "Warning"
)

// EventReason represents the reason code for an event.
type EventReason string

// Instance lifecycle reasons
const (
	// ReasonListening is recorded once when the listener is attached.
	ReasonListening EventReason = "Listening"

	// ReasonServiceCreated indicates an instance was added to the table.
	ReasonServiceCreated EventReason = "ServiceCreated"

	// ReasonServiceStarted indicates the instance's process id is known.
	ReasonServiceStarted EventReason = "ServiceStarted"

	// ReasonServiceFailedToStart indicates an instance went away before
	// acknowledging its start request.
	ReasonServiceFailedToStart EventReason = "ServiceFailedToStart"

	// ReasonServiceStopped indicates a running instance was removed.
	ReasonServiceStopped EventReason = "ServiceStopped"
)

// Type returns the severity associated with the reason.
func (r EventReason) Type() EventType {
	if r == ReasonServiceFailedToStart {
		return EventTypeWarning
	}
	return EventTypeNormal
}

// EventData holds the values available to message templates.
type EventData struct {
	// Name is the service name of the instance.
	Name string

	// UserID owns the instance.
	UserID string

	// Instance is the instance qualifier, if any.
	Instance string

	// PID is the process id for started events.
	PID int

	// Running is the number of instances when a listener attaches.
	Running int

	// Timestamp is when the event was observed.
	Timestamp time.Time
}

// Event is one rendered topology event.
type Event struct {
	Reason    EventReason `json:"reason"`
	Type      EventType   `json:"type"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}
