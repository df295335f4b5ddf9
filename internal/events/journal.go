package events

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"stevedore/internal/api"
	"stevedore/pkg/logging"
)

// DefaultCapacity is how many events a Journal keeps in memory.
const DefaultCapacity = 200

// JournalOptions configures a Journal.
type JournalOptions struct {
	// Capacity bounds the in-memory history. Defaults to DefaultCapacity.
	Capacity int

	// Output receives every event as a JSON line when set.
	Output io.Writer

	// Templates renders messages. Defaults to NewMessageTemplateEngine().
	Templates *MessageTemplateEngine
}

// Journal records service events.
type Journal struct {
	templates *MessageTemplateEngine

	mu     sync.Mutex
	ring   []Event
	next   int
	filled bool
	enc    *json.Encoder
}

// NewJournal creates an empty journal.
func NewJournal(opts JournalOptions) *Journal {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Templates == nil {
		opts.Templates = NewMessageTemplateEngine()
	}
	j := &Journal{
		templates: opts.Templates,
		ring:      make([]Event, opts.Capacity),
	}
	if opts.Output != nil {
		j.enc = json.NewEncoder(opts.Output)
	}
	return j
}

// Record converts a state change into an event and stores it.
func (j *Journal) Record(change api.ServiceStateChangedEvent) Event {
	reason, typ := classify(change.NewState)
	data := EventData{
		Name:  change.Name,
		From:  string(change.OldState),
		To:    string(change.NewState),
		RunID: change.RunID,
	}
	if change.Error != nil {
		data.Error = change.Error.Error()
	}

	ev := Event{
		Timestamp: change.Timestamp,
		RunID:     change.RunID,
		Service:   change.Name,
		Type:      typ,
		Reason:    reason,
		Message:   j.templates.Render(reason, data),
		From:      data.From,
		To:        data.To,
	}

	j.mu.Lock()
	j.ring[j.next] = ev
	j.next = (j.next + 1) % len(j.ring)
	if j.next == 0 {
		j.filled = true
	}
	var writeErr error
	if j.enc != nil {
		writeErr = j.enc.Encode(ev)
	}
	j.mu.Unlock()

	if writeErr != nil {
		logging.Error("Events", writeErr, "Failed to append event for %s", ev.Service)
	}
	if typ == EventTypeWarning {
		logging.Warn("Events", "%s", ev.Message)
	} else {
		logging.Debug("Events", "%s", ev.Message)
	}
	return ev
}

// Recent returns up to limit events, oldest first. A non-positive limit
// returns everything held.
func (j *Journal) Recent(limit int) []Event {
	j.mu.Lock()
	defer j.mu.Unlock()

	var all []Event
	if j.filled {
		all = append(all, j.ring[j.next:]...)
	}
	all = append(all, j.ring[:j.next]...)

	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all
}

// Consume records events from ch until ctx is done or ch is closed. Events
// already buffered in ch when ctx ends are still recorded.
func (j *Journal) Consume(ctx context.Context, ch <-chan api.ServiceStateChangedEvent) {
	for {
		select {
		case <-ctx.Done():
			j.drain(ch)
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			j.Record(change)
		}
	}
}

func (j *Journal) drain(ch <-chan api.ServiceStateChangedEvent) {
	for {
		select {
		case change, ok := <-ch:
			if !ok {
				return
			}
			j.Record(change)
		default:
			return
		}
	}
}

func classify(to api.ServiceState) (EventReason, EventType) {
	switch to {
	case api.StateProvisioning:
		return ReasonServiceProvisioning, EventTypeNormal
	case api.StateAwaitingHealth:
		return ReasonServiceAwaitingHealth, EventTypeNormal
	case api.StateRunning:
		return ReasonServiceStarted, EventTypeNormal
	case api.StateDegraded:
		return ReasonServiceDegraded, EventTypeWarning
	case api.StateFailed:
		return ReasonServiceFailed, EventTypeWarning
	case api.StateStopping:
		return ReasonServiceStopping, EventTypeNormal
	case api.StateStopped:
		return ReasonServiceStopped, EventTypeNormal
	case api.StateSkipped:
		return ReasonServiceSkipped, EventTypeNormal
	case api.StateIndeterminate:
		return ReasonServiceInterrupted, EventTypeWarning
	default:
		return ReasonServiceStateChanged, EventTypeNormal
	}
}
