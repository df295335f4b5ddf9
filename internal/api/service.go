package api

import (
	"time"
)

// ServiceState is the lifecycle state of one service within a run.
type ServiceState string

const (
	StatePending        ServiceState = "pending"
	StateProvisioning   ServiceState = "provisioning"
	StateAwaitingHealth ServiceState = "awaiting-health"
	StateRunning        ServiceState = "running"
	StateDegraded       ServiceState = "degraded"
	StateFailed         ServiceState = "failed"
	StateStopping       ServiceState = "stopping"
	StateStopped        ServiceState = "stopped"

	// StateSkipped marks disabled services; they are never touched.
	StateSkipped ServiceState = "skipped"
	// StateIndeterminate marks a service whose start or stop call was in
	// flight when the run was cancelled.
	StateIndeterminate ServiceState = "indeterminate"
	// StateUnknown is only produced by live status queries when the runtime
	// cannot be reached.
	StateUnknown ServiceState = "unknown"
)

// IsTerminal reports whether a run leaves a service in this state.
func (s ServiceState) IsTerminal() bool {
	switch s {
	case StateRunning, StateDegraded, StateFailed, StateStopped, StateSkipped, StateIndeterminate:
		return true
	}
	return false
}

// ServiceRuntimeState is the per-service record of a run. The orchestrator
// owns the live records; everyone else receives copies.
type ServiceRuntimeState struct {
	Name           string       `json:"name"`
	State          ServiceState `json:"state"`
	LastError      error        `json:"-"`
	StartAttempts  int          `json:"startAttempts"`
	HealthAttempts int          `json:"healthAttempts"`
	LastTransition time.Time    `json:"lastTransition"`
	Level          int          `json:"level"`
}

// ErrorMessage returns the last error as text, or "".
func (s ServiceRuntimeState) ErrorMessage() string {
	if s.LastError == nil {
		return ""
	}
	return s.LastError.Error()
}

// ServiceStateChangedEvent is published on every transition.
type ServiceStateChangedEvent struct {
	RunID     string       `json:"runId"`
	Name      string       `json:"name"`
	OldState  ServiceState `json:"oldState"`
	NewState  ServiceState `json:"newState"`
	Error     error        `json:"-"`
	Timestamp time.Time    `json:"timestamp"`
}
