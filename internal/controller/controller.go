package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"stevedore/internal/config"
	"stevedore/internal/containerizer"
	"stevedore/internal/metrics"
	"stevedore/pkg/logging"
)

const subsystem = "Controller"

// ErrNotRunning is returned by Logs for a service without running
// containers.
var ErrNotRunning = errors.New("service is not running")

// DefaultCallTimeout bounds a single runtime invocation.
const DefaultCallTimeout = 2 * time.Minute

// Status is the best-effort state of a service as seen by the runtime.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	// StatusUnknown means the runtime could not be queried. It is distinct
	// from stopped.
	StatusUnknown Status = "unknown"
)

// Controller starts, stops and queries single services. Every operation is
// idempotent and never retries; retry policy belongs to the caller.
type Controller struct {
	runtime     containerizer.ComposeRuntime
	callTimeout time.Duration
}

// New returns a controller over rt. A non-positive callTimeout selects
// DefaultCallTimeout.
func New(rt containerizer.ComposeRuntime, callTimeout time.Duration) *Controller {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Controller{runtime: rt, callTimeout: callTimeout}
}

func project(svc config.ServiceDefinition) containerizer.Project {
	return containerizer.Project{Name: svc.Name, DescriptorPath: svc.DescriptorPath}
}

// Start brings the service up. It is a no-op if the service already runs.
func (c *Controller) Start(ctx context.Context, svc config.ServiceDefinition) error {
	if c.Status(ctx, svc) == StatusRunning {
		logging.Debug(subsystem, "Service %s already running, nothing to start", svc.Name)
		return nil
	}
	return c.invoke(ctx, svc, "up", c.runtime.Up)
}

// Stop takes the service down. It is a no-op if the service is already
// stopped.
func (c *Controller) Stop(ctx context.Context, svc config.ServiceDefinition) error {
	if c.Status(ctx, svc) == StatusStopped {
		logging.Debug(subsystem, "Service %s already stopped, nothing to stop", svc.Name)
		return nil
	}
	return c.invoke(ctx, svc, "down", c.runtime.Down)
}

// Status reports Running only when the project has at least one container
// and all of them are up. Container health is left to the health checker.
func (c *Controller) Status(ctx context.Context, svc config.ServiceDefinition) Status {
	containers, err := c.Containers(ctx, svc)
	if err != nil {
		logging.Debug(subsystem, "Status query for %s failed: %v", svc.Name, err)
		return StatusUnknown
	}
	if len(containers) == 0 {
		return StatusStopped
	}
	for _, ct := range containers {
		if !ct.Up() {
			return StatusStopped
		}
	}
	return StatusRunning
}

// Containers lists the service's containers, bounded by the call timeout.
func (c *Controller) Containers(ctx context.Context, svc config.ServiceDefinition) ([]containerizer.ContainerState, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	start := time.Now()
	containers, err := c.runtime.Ps(callCtx, project(svc))
	metrics.RecordComposeCall("ps", err, time.Since(start))
	if err != nil {
		return nil, c.wrap(ctx, callCtx, svc, "ps", err)
	}
	return containers, nil
}

// Logs writes the service's container output to w. Without Follow the call
// is bounded by the call timeout; with Follow it streams until ctx is done,
// which is not an error.
func (c *Controller) Logs(ctx context.Context, svc config.ServiceDefinition, opts containerizer.LogOptions, w io.Writer) error {
	if c.Status(ctx, svc) == StatusStopped {
		return fmt.Errorf("%s: %w", svc.Name, ErrNotRunning)
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if !opts.Follow {
		callCtx, cancel = context.WithTimeout(ctx, c.callTimeout)
	}
	defer cancel()

	start := time.Now()
	err := c.runtime.Logs(callCtx, project(svc), opts, w)
	if opts.Follow && ctx.Err() != nil {
		return nil
	}
	metrics.RecordComposeCall("logs", err, time.Since(start))
	if err != nil {
		return c.wrap(ctx, callCtx, svc, "logs", err)
	}
	return nil
}

type callResult struct {
	err      error
	timedOut bool
}

// invoke sends a state-changing call to the runtime. Once sent, the call is
// bounded only by the call timeout: cancelling ctx makes invoke return
// early while the runtime call runs to completion in the background.
func (c *Controller) invoke(ctx context.Context, svc config.ServiceDefinition, op string, fn func(context.Context, containerizer.Project) error) error {
	if err := ctx.Err(); err != nil {
		return &ComposeInvocationError{Service: svc.Name, Operation: op, Timeout: c.callTimeout, Err: context.Cause(ctx)}
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.callTimeout)
	logging.Info(subsystem, "Running compose %s for %s", op, svc.Name)

	done := make(chan callResult, 1)
	go func() {
		defer cancel()
		start := time.Now()
		err := fn(callCtx, project(svc))
		metrics.RecordComposeCall(op, err, time.Since(start))
		done <- callResult{err: err, timedOut: errors.Is(callCtx.Err(), context.DeadlineExceeded)}
		if ctx.Err() != nil {
			logging.Info(subsystem, "Detached compose %s for %s finished: %v", op, svc.Name, err)
		}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return &ComposeInvocationError{
				Service:   svc.Name,
				Operation: op,
				TimedOut:  res.timedOut,
				Timeout:   c.callTimeout,
				Err:       res.err,
			}
		}
		return nil
	case <-ctx.Done():
		logging.Warn(subsystem, "Stopped waiting for compose %s for %s; the call keeps running", op, svc.Name)
		return &ComposeInvocationError{Service: svc.Name, Operation: op, Timeout: c.callTimeout, Err: context.Cause(ctx)}
	}
}

func (c *Controller) wrap(parent, callCtx context.Context, svc config.ServiceDefinition, op string, err error) error {
	timedOut := parent.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded)
	return &ComposeInvocationError{
		Service:   svc.Name,
		Operation: op,
		TimedOut:  timedOut,
		Timeout:   c.callTimeout,
		Err:       err,
	}
}
