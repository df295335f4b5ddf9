package api

import "fmt"

// Action is what a run does to its services.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
)

// ParseAction validates a user supplied action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionStart, ActionStop, ActionRestart:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q (expected start, stop or restart)", s)
}

// GoalState is the state every service should end in for the action to count
// as a success.
func (a Action) GoalState() ServiceState {
	if a == ActionStop {
		return StateStopped
	}
	return StateRunning
}

// RunRequest triggers a run. An empty Services list means every service.
type RunRequest struct {
	Action   Action   `json:"action"`
	Services []string `json:"services,omitempty"`
}
