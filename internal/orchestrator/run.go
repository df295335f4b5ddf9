package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/cenkalti/backoff/v5"

	"stevedore/internal/api"
	"stevedore/internal/config"
	"stevedore/internal/dependency"
	"stevedore/internal/metrics"
	"stevedore/internal/status"
	"stevedore/pkg/logging"
)

// run holds the live per-service records of one run. Each record is
// written only by the task handling that service, or by failure
// propagation for services of later levels that have not been scheduled.
type run struct {
	id     string
	action api.Action
	model  *config.Model
	plan   *dependency.Plan
	clock  Clock
	notify func(api.ServiceStateChangedEvent)

	mu     sync.Mutex
	order  []string
	states map[string]*api.ServiceRuntimeState
}

func (r *run) has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.states[name]
	return ok
}

// state returns a copy of name's record. Services outside the run report
// the zero state.
func (r *run) state(name string) api.ServiceRuntimeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[name]; ok {
		return *st
	}
	return api.ServiceRuntimeState{Name: name}
}

func (r *run) transition(name string, to api.ServiceState, err error) {
	r.mu.Lock()
	st, ok := r.states[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	from := st.State
	st.State = to
	switch {
	case err != nil:
		st.LastError = err
	case to == api.StateRunning || to == api.StateStopped:
		st.LastError = nil
	}
	st.LastTransition = r.clock.Now()
	event := api.ServiceStateChangedEvent{
		RunID:     r.id,
		Name:      name,
		OldState:  from,
		NewState:  to,
		Error:     err,
		Timestamp: st.LastTransition,
	}
	r.mu.Unlock()

	if err != nil {
		logging.Debug(subsystem, "Service %s: %s -> %s: %v", name, from, to, err)
	} else {
		logging.Debug(subsystem, "Service %s: %s -> %s", name, from, to)
	}
	metrics.RecordTransition(name, string(to))
	switch to {
	case api.StateRunning:
		metrics.SetServiceRunning(name, true)
	case api.StateStopped, api.StateFailed:
		metrics.SetServiceRunning(name, false)
	}
	if r.notify != nil {
		r.notify(event)
	}
}

func (r *run) addStartAttempt(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[name]; ok {
		st.StartAttempts++
	}
}

func (r *run) setHealthAttempts(name string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[name]; ok {
		st.HealthAttempts = n
	}
}

func (r *run) snapshot() []api.ServiceRuntimeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]api.ServiceRuntimeState, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.states[name])
	}
	return out
}

func (r *run) report() status.Report {
	return status.Aggregate(r.snapshot(), r.action.GoalState())
}

// retry calls op until it succeeds, the attempts are used up or ctx ends.
// Waits between attempts grow exponentially.
func (e *Engine) retry(ctx context.Context, op func() error, notify backoff.Notify) error {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     e.opts.RetryInitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          2,
		MaxInterval:         e.opts.RetryMaxInterval,
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := op(); err != nil {
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(e.opts.StartAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap()
	}
	return err
}

