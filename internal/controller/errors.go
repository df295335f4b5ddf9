package controller

import (
	"fmt"
	"time"
)

// ComposeInvocationError is returned when a compose call for one service
// fails or exceeds the per-call timeout.
type ComposeInvocationError struct {
	Service   string
	Operation string
	TimedOut  bool
	Timeout   time.Duration
	Err       error
}

func (e *ComposeInvocationError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("compose %s for service %q timed out after %s", e.Operation, e.Service, e.Timeout)
	}
	return fmt.Sprintf("compose %s for service %q failed: %v", e.Operation, e.Service, e.Err)
}

func (e *ComposeInvocationError) Unwrap() error {
	return e.Err
}
