package reconciler

import (
	"time"
)

// ChangeOperation is what happened to a watched file.
type ChangeOperation string

const (
	OperationCreate ChangeOperation = "create"
	OperationUpdate ChangeOperation = "update"
	OperationDelete ChangeOperation = "delete"
)

// ChangeEvent reports a debounced change to a watched file.
type ChangeEvent struct {
	Path      string
	Operation ChangeOperation
	Timestamp time.Time
}

// Trigger is why the manager started a run.
type Trigger string

const (
	TriggerConfigChange Trigger = "config-change"
	TriggerDrift        Trigger = "drift"
)

// Activity describes the latest thing the manager did.
type Activity struct {
	Trigger   Trigger
	Services  []string
	Timestamp time.Time
	Err       error
}
