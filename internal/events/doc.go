// Package events turns service state transitions into a journal of
// human-readable events.
//
// Each transition published by the orchestrator becomes an Event with a
// reason, a Normal or Warning type and a message rendered from a per-reason
// template. The Journal keeps the most recent events in memory for the HTTP
// API and can append every event as a JSON line to a file, so that a
// serve-mode process leaves an audit trail behind.
//
//	journal := events.NewJournal(events.JournalOptions{Output: f})
//	go journal.Consume(ctx, engine.SubscribeToStateChanges())
package events
