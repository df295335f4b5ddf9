package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"stevedore/internal/config"
	"stevedore/internal/metrics"
	"stevedore/pkg/logging"
)

const subsystem = "HealthChecker"

// Checker runs health checks. It is safe for concurrent use; each wait has
// its own timers.
type Checker struct {
	pingers map[config.HealthCheckKind]Pinger
}

// NewChecker returns a checker with the http, tcp, command and container
// pingers. containers may be nil if no service uses container checks.
func NewChecker(containers ContainerLister) *Checker {
	return &Checker{pingers: map[config.HealthCheckKind]Pinger{
		config.HealthCheckHTTP:      NewHTTPPinger(),
		config.HealthCheckTCP:       TCPPinger{},
		config.HealthCheckCommand:   CommandPinger{},
		config.HealthCheckContainer: ContainerPinger{Lister: containers},
	}}
}

// WithPinger returns a copy of the checker that uses p for kind.
func (c *Checker) WithPinger(kind config.HealthCheckKind, p Pinger) *Checker {
	pingers := make(map[config.HealthCheckKind]Pinger, len(c.pingers))
	for k, v := range c.pingers {
		pingers[k] = v
	}
	pingers[kind] = p
	return &Checker{pingers: pingers}
}

// Check performs a single attempt bounded by spec.AttemptTimeout.
func (c *Checker) Check(ctx context.Context, spec config.HealthCheckSpec) Result {
	pinger, ok := c.pingers[spec.Kind]
	if !ok {
		err := fmt.Errorf("unsupported health check kind %q", spec.Kind)
		return Result{Outcome: OutcomeUnhealthy, Message: err.Error(), Attempts: 1, Err: err}
	}

	attemptCtx := ctx
	if spec.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, spec.AttemptTimeout)
		defer cancel()
	}

	start := time.Now()
	err := pinger.Ping(attemptCtx, spec)
	res := Result{Latency: time.Since(start), Attempts: 1, Err: err}

	var notReady *NotReadyError
	switch {
	case err == nil:
		res.Outcome = OutcomeHealthy
		res.Connected = true
		res.Message = "ok"
	case errors.As(err, &notReady):
		res.Outcome = OutcomeUnhealthy
		res.Connected = true
		res.Message = err.Error()
	case ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		res.Outcome = OutcomeTimeout
		res.Message = fmt.Sprintf("attempt timed out after %s", spec.AttemptTimeout)
	default:
		res.Outcome = OutcomeUnhealthy
		res.Message = err.Error()
	}

	metrics.RecordHealthCheck(string(spec.Kind), res.Healthy())
	return res
}

// WaitUntilHealthy checks until the service is healthy, MaxAttempts attempts
// were made, or spec.Timeout elapsed, whichever comes first. A failed attempt
// is followed by one interval of waiting, so N failing attempts take about N
// intervals. Cancelling ctx abandons the wait.
func (c *Checker) WaitUntilHealthy(ctx context.Context, spec config.HealthCheckSpec) Result {
	start := time.Now()

	waitCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	intervals := newIntervals(spec)

	var (
		attempts  int
		connected bool
		exhausted bool
		last      Result
	)
	for {
		attempts++
		last = c.Check(waitCtx, spec)
		if last.Healthy() {
			logging.Debug(subsystem, "%s healthy after %d attempt(s)", spec.Service, attempts)
			return Result{
				Outcome:   OutcomeHealthy,
				Latency:   time.Since(start),
				Message:   last.Message,
				Attempts:  attempts,
				Connected: true,
			}
		}
		connected = connected || last.Connected
		logging.Debug(subsystem, "%s attempt %d failed: %s", spec.Service, attempts, last.Message)

		if spec.MaxAttempts > 0 && attempts >= spec.MaxAttempts {
			exhausted = true
		}

		if !sleep(waitCtx, intervals.NextBackOff()) || exhausted {
			break
		}
	}

	res := Result{
		Outcome:   OutcomeTimeout,
		Latency:   time.Since(start),
		Attempts:  attempts,
		Connected: connected,
		Exhausted: exhausted,
		Cancelled: ctx.Err() != nil,
	}
	if connected {
		res.Outcome = OutcomeUnhealthy
	}
	res.Err = &TimeoutError{
		Service:   spec.Service,
		Attempts:  attempts,
		Elapsed:   res.Latency,
		Connected: connected,
		Last:      last.Err,
	}
	res.Message = res.Err.Error()
	return res
}

// newIntervals returns the wait schedule between attempts.
func newIntervals(spec config.HealthCheckSpec) backoff.BackOff {
	var b backoff.BackOff
	if spec.Backoff == config.BackoffExponential {
		b = &backoff.ExponentialBackOff{
			InitialInterval:     spec.Interval,
			RandomizationFactor: 0,
			Multiplier:          2,
			MaxInterval:         16 * spec.Interval,
		}
	} else {
		b = backoff.NewConstantBackOff(spec.Interval)
	}
	b.Reset()
	return b
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
