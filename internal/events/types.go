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

// Service lifecycle reasons
const (
	ReasonServiceProvisioning   EventReason = "ServiceProvisioning"
	ReasonServiceAwaitingHealth EventReason = "ServiceAwaitingHealth"
	ReasonServiceStarted        EventReason = "ServiceStarted"
	ReasonServiceDegraded       EventReason = "ServiceDegraded"
	ReasonServiceFailed         EventReason = "ServiceFailed"
	ReasonServiceStopping       EventReason = "ServiceStopping"
	ReasonServiceStopped        EventReason = "ServiceStopped"
	ReasonServiceSkipped        EventReason = "ServiceSkipped"
	ReasonServiceInterrupted    EventReason = "ServiceInterrupted"
	ReasonServiceStateChanged   EventReason = "ServiceStateChanged"
)

// Event is one journal entry.
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	RunID     string      `json:"runId,omitempty"`
	Service   string      `json:"service"`
	Type      EventType   `json:"type"`
	Reason    EventReason `json:"reason"`
	Message   string      `json:"message"`
	From      string      `json:"from"`
	To        string      `json:"to"`
}

// EventData holds contextual information for event message templating.
type EventData struct {
	// Name is the service involved in the event.
	Name string

	// From and To are the states of the transition.
	From string
	To   string

	// RunID identifies the run that caused the transition.
	RunID string

	// Error is the error message for failure events.
	Error string
}
