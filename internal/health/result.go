package health

import (
	"fmt"
	"time"
)

// Outcome is the verdict of an attempt or of a whole wait.
type Outcome string

const (
	OutcomeHealthy Outcome = "healthy"
	// OutcomeUnhealthy means the service answered but never became ready.
	OutcomeUnhealthy Outcome = "unhealthy"
	// OutcomeTimeout means no attempt succeeded in time. For a single attempt it
	// means the attempt's own timeout fired; for a wait it means no attempt ever
	// reached the service.
	OutcomeTimeout Outcome = "timeout"
)

// Result is the transient outcome of Check or WaitUntilHealthy.
type Result struct {
	Outcome Outcome
	// Latency is the duration of the attempt, or of the whole wait.
	Latency time.Duration
	Message string

	// Attempts is the number of attempts made.
	Attempts int
	// Connected is true if any attempt reached the service.
	Connected bool
	// Exhausted is true if the wait stopped because MaxAttempts was reached
	// rather than because the overall timeout elapsed.
	Exhausted bool
	// Cancelled is true if the caller's context ended the wait.
	Cancelled bool

	// Err is the last attempt error for a single attempt, or a *TimeoutError
	// for a wait that did not end healthy.
	Err error
}

// Healthy reports whether the outcome is healthy.
func (r Result) Healthy() bool {
	return r.Outcome == OutcomeHealthy
}

// NotReadyError is returned by attempts that reached the service but found it
// not ready, e.g. an HTTP 503 or a failing container healthcheck.
type NotReadyError struct {
	Reason string
}

func (e *NotReadyError) Error() string {
	return "not ready: " + e.Reason
}

// TimeoutError reports that a service did not become healthy within its
// health-check bounds.
type TimeoutError struct {
	Service   string
	Attempts  int
	Elapsed   time.Duration
	Connected bool
	Last      error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("service %q not healthy after %d attempt(s) in %s", e.Service, e.Attempts, e.Elapsed.Round(time.Millisecond))
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error {
	return e.Last
}
