package orchestrator

import (
	"time"
)

// Defaults for Options.
const (
	DefaultMaxParallel          = 4
	DefaultStartAttempts        = 3
	DefaultRetryInitialInterval = 2 * time.Second
	DefaultRetryMaxInterval     = 30 * time.Second
)

// Options tune how runs are executed. Zero values select the defaults.
type Options struct {
	// MaxParallel bounds the services started or stopped at once within a
	// level.
	MaxParallel int
	// Lenient lets a Degraded dependency satisfy its dependents.
	Lenient bool
	// StartAttempts is the number of start (or stop) calls made before a
	// service is marked Failed.
	StartAttempts int
	// RetryInitialInterval and RetryMaxInterval shape the exponential
	// backoff between attempts.
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	// Clock stamps transitions. Defaults to the system clock.
	Clock Clock
}

// Clock is the time source used for transition timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (o Options) withDefaults() Options {
	if o.MaxParallel <= 0 {
		o.MaxParallel = DefaultMaxParallel
	}
	if o.StartAttempts <= 0 {
		o.StartAttempts = DefaultStartAttempts
	}
	if o.RetryInitialInterval <= 0 {
		o.RetryInitialInterval = DefaultRetryInitialInterval
	}
	if o.RetryMaxInterval <= 0 {
		o.RetryMaxInterval = DefaultRetryMaxInterval
	}
	if o.RetryMaxInterval < o.RetryInitialInterval {
		o.RetryMaxInterval = o.RetryInitialInterval
	}
	if o.Clock == nil {
		o.Clock = systemClock{}
	}
	return o
}
