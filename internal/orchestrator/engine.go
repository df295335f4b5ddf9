package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stevedore/internal/api"
	"stevedore/internal/config"
	"stevedore/internal/controller"
	"stevedore/internal/dependency"
	"stevedore/internal/health"
	"stevedore/internal/metrics"
	"stevedore/internal/status"
	"stevedore/pkg/logging"
)

const subsystem = "Orchestrator"

// ServiceController is the subset of controller.Controller the engine needs.
type ServiceController interface {
	Start(ctx context.Context, svc config.ServiceDefinition) error
	Stop(ctx context.Context, svc config.ServiceDefinition) error
	Status(ctx context.Context, svc config.ServiceDefinition) controller.Status
}

// HealthWaiter blocks until a service passes its health check or gives up.
type HealthWaiter interface {
	WaitUntilHealthy(ctx context.Context, spec config.HealthCheckSpec) health.Result
}

// NetworkProvisioner makes sure the networks of a run exist.
type NetworkProvisioner interface {
	EnsureAll(ctx context.Context, defs []config.NetworkDefinition) error
}

// Dependencies are the collaborators of an Engine.
type Dependencies struct {
	Controller ServiceController
	Health     HealthWaiter
	Networks   NetworkProvisioner
}

// RunResult describes a finished run.
type RunResult struct {
	ID         string        `json:"id"`
	Action     api.Action    `json:"action"`
	Targets    []string      `json:"targets,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Report     status.Report `json:"report"`
	// StopReport holds the stop phase of a restart.
	StopReport *status.Report `json:"stopReport,omitempty"`
	Cancelled  bool           `json:"cancelled,omitempty"`
}

// Success reports whether every service reached the goal of the run.
func (r *RunResult) Success() bool {
	if r.StopReport != nil && !r.StopReport.Success {
		return false
	}
	return r.Report.Success
}

// Engine executes runs against a resolved model.
type Engine struct {
	deps Dependencies
	opts Options

	// runMu serializes runs and model swaps.
	runMu sync.Mutex

	mu          sync.RWMutex
	model       *config.Model
	plan        *dependency.Plan
	current     *run
	last        *RunResult
	subscribers []chan<- api.ServiceStateChangedEvent

	// heldDown holds services a stop run took down. A later start or
	// restart naming them clears the mark.
	heldDown map[string]bool
}

// New resolves m and returns an engine for it. Resolution errors such as a
// *dependency.DependencyCycleError are returned unchanged.
func New(m *config.Model, deps Dependencies, opts Options) (*Engine, error) {
	plan, err := dependency.Resolve(m)
	if err != nil {
		return nil, err
	}
	return &Engine{
		deps:  deps,
		opts:  opts.withDefaults(),
		model:    m,
		plan:     plan,
		heldDown: make(map[string]bool),
	}, nil
}

// SetModel swaps in a new model. It waits for a running run to finish. On
// error the engine keeps its previous model.
func (e *Engine) SetModel(m *config.Model) error {
	plan, err := dependency.Resolve(m)
	if err != nil {
		return err
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()

	e.mu.Lock()
	e.model = m
	e.plan = plan
	e.mu.Unlock()
	logging.Info(subsystem, "Loaded model from %s with %d services", m.Source(), len(m.ServiceNames()))
	return nil
}

// Model returns the current model.
func (e *Engine) Model() *config.Model {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model
}

// Plan returns the execution plan for targets: the start order of targets
// and their dependencies. No targets means every service.
func (e *Engine) Plan(targets []string) (*dependency.Plan, error) {
	e.mu.RLock()
	plan := e.plan
	e.mu.RUnlock()
	return plan.Subset(targets, dependency.DirectionStart)
}

// Run executes req and returns its result. Errors that abort the run before
// any service is touched (unknown target, network provisioning failure) are
// returned as the error; per-service failures are only reported in the
// result.
func (e *Engine) Run(ctx context.Context, req api.RunRequest) (*RunResult, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	e.mu.RLock()
	model, plan := e.model, e.plan
	e.mu.RUnlock()

	res := &RunResult{
		ID:        uuid.NewString(),
		Action:    req.Action,
		Targets:   req.Services,
		StartedAt: e.opts.Clock.Now(),
	}
	logging.Info(subsystem, "Run %s: %s %v", res.ID, req.Action, targetsLabel(req.Services))

	var err error
	switch req.Action {
	case api.ActionStart:
		err = e.runStart(ctx, res, model, plan, req.Services)
	case api.ActionStop:
		err = e.runStop(ctx, res, model, plan, req.Services)
	case api.ActionRestart:
		err = e.runRestart(ctx, res, model, plan, req.Services)
	default:
		err = fmt.Errorf("unsupported action %q", req.Action)
	}

	res.FinishedAt = e.opts.Clock.Now()
	res.Cancelled = ctx.Err() != nil
	metrics.RecordRun(string(req.Action), err == nil && res.Success(), res.FinishedAt.Sub(res.StartedAt))
	if err != nil {
		logging.Error(subsystem, err, "Run %s aborted", res.ID)
		return nil, err
	}

	e.mu.Lock()
	e.last = res
	e.mu.Unlock()

	logging.Info(subsystem, "Run %s finished: %s", res.ID, res.Report.Summary())
	return res, nil
}

func (e *Engine) runStart(ctx context.Context, res *RunResult, model *config.Model, plan *dependency.Plan, targets []string) error {
	sub, err := plan.Subset(targets, dependency.DirectionStart)
	if err != nil {
		return err
	}
	r := e.newRun(res.ID, api.ActionStart, model, plan, sub)
	e.holdDown(sub.Services(), false)

	var used []string
	for _, name := range sub.Services() {
		if svc, ok := model.Service(name); ok && svc.Enabled {
			used = append(used, name)
		}
	}
	if err := e.deps.Networks.EnsureAll(ctx, model.NetworksFor(used)); err != nil {
		return err
	}

	e.setCurrent(r)
	e.executeStart(ctx, r, sub.Levels)
	res.Report = r.report()
	return nil
}

func (e *Engine) runStop(ctx context.Context, res *RunResult, model *config.Model, plan *dependency.Plan, targets []string) error {
	sub, err := plan.Subset(targets, dependency.DirectionStop)
	if err != nil {
		return err
	}
	r := e.newRun(res.ID, api.ActionStop, model, plan, sub)
	e.holdDown(sub.Services(), true)
	e.setCurrent(r)
	e.executeStop(ctx, r, sub.StopLevels())
	res.Report = r.report()
	return nil
}

// runRestart stops the targets and everything depending on them, then
// starts the same set again.
func (e *Engine) runRestart(ctx context.Context, res *RunResult, model *config.Model, plan *dependency.Plan, targets []string) error {
	stopSub, err := plan.Subset(targets, dependency.DirectionStop)
	if err != nil {
		return err
	}
	startSub, err := plan.Subset(stopSub.Services(), dependency.DirectionStart)
	if err != nil {
		return err
	}

	e.holdDown(startSub.Services(), false)
	stopRun := e.newRun(res.ID, api.ActionStop, model, plan, stopSub)
	e.setCurrent(stopRun)
	e.executeStop(ctx, stopRun, stopSub.StopLevels())
	stopReport := stopRun.report()
	res.StopReport = &stopReport

	if ctx.Err() != nil {
		res.Report = stopReport
		return nil
	}

	var used []string
	for _, name := range startSub.Services() {
		if svc, ok := model.Service(name); ok && svc.Enabled {
			used = append(used, name)
		}
	}
	if err := e.deps.Networks.EnsureAll(ctx, model.NetworksFor(used)); err != nil {
		return err
	}

	startRun := e.newRun(res.ID, api.ActionRestart, model, plan, startSub)
	e.setCurrent(startRun)
	e.executeStart(ctx, startRun, startSub.Levels)
	res.Report = startRun.report()
	return nil
}

func (e *Engine) executeStart(ctx context.Context, r *run, levels [][]string) {
	for i, names := range levels {
		if ctx.Err() != nil {
			logging.Warn(subsystem, "Run %s cancelled before level %d", r.id, i)
			return
		}
		logging.Debug(subsystem, "Run %s: starting level %d %v", r.id, i, names)

		g := new(errgroup.Group)
		g.SetLimit(e.opts.MaxParallel)
		for _, name := range names {
			svc, _ := r.model.Service(name)
			if r.state(name).State != api.StatePending {
				continue
			}
			if !svc.Enabled {
				r.transition(name, api.StateSkipped, nil)
				continue
			}
			if dep, st, blocked := e.blockedBy(r, svc); blocked {
				r.transition(name, api.StateFailed, &DependencyFailedError{Service: name, Dependency: dep, State: st})
				e.propagateFailure(r, name)
				continue
			}
			g.Go(func() error {
				e.startService(ctx, r, svc)
				return nil
			})
		}
		_ = g.Wait()
	}
}

func (e *Engine) executeStop(ctx context.Context, r *run, levels [][]string) {
	for i, names := range levels {
		if ctx.Err() != nil {
			logging.Warn(subsystem, "Run %s cancelled before stop level %d", r.id, i)
			return
		}
		logging.Debug(subsystem, "Run %s: stopping level %d %v", r.id, i, names)

		g := new(errgroup.Group)
		g.SetLimit(e.opts.MaxParallel)
		for _, name := range names {
			svc, _ := r.model.Service(name)
			if !svc.Enabled {
				r.transition(name, api.StateSkipped, nil)
				continue
			}
			g.Go(func() error {
				e.stopService(ctx, r, svc)
				return nil
			})
		}
		_ = g.Wait()
	}
}

// blockedBy returns the first dependency of svc that does not satisfy it.
func (e *Engine) blockedBy(r *run, svc config.ServiceDefinition) (string, api.ServiceState, bool) {
	for _, dep := range svc.DependsOn {
		st := r.state(dep).State
		if !e.satisfies(st) {
			return dep, st, true
		}
	}
	return "", "", false
}

func (e *Engine) satisfies(st api.ServiceState) bool {
	return st == api.StateRunning || (e.opts.Lenient && st == api.StateDegraded)
}

// propagateFailure marks every pending transitive dependent of name Failed.
func (e *Engine) propagateFailure(r *run, name string) {
	st := r.state(name).State
	for _, dep := range r.plan.Graph().TransitiveDependents(name) {
		if !r.has(dep) || r.state(dep).State != api.StatePending {
			continue
		}
		if svc, ok := r.model.Service(dep); ok && !svc.Enabled {
			continue
		}
		r.transition(dep, api.StateFailed, &DependencyFailedError{Service: dep, Dependency: name, State: st})
	}
}

func (e *Engine) startService(ctx context.Context, r *run, svc config.ServiceDefinition) {
	if ctx.Err() != nil {
		return
	}
	name := svc.Name
	r.transition(name, api.StateProvisioning, nil)

	err := e.retry(ctx, func() error {
		r.addStartAttempt(name)
		metrics.RecordStartAttempt(name)
		return e.deps.Controller.Start(ctx, svc)
	}, func(err error, next time.Duration) {
		logging.Warn(subsystem, "Start of %s failed, retrying in %s: %v", name, next, err)
	})

	switch {
	case ctx.Err() != nil:
		r.transition(name, api.StateIndeterminate, context.Cause(ctx))
		return
	case err != nil:
		logging.Error(subsystem, err, "Giving up on %s after %d attempts", name, r.state(name).StartAttempts)
		r.transition(name, api.StateFailed, err)
		e.propagateFailure(r, name)
		return
	case svc.HealthCheck == nil:
		r.transition(name, api.StateRunning, nil)
		return
	}

	r.transition(name, api.StateAwaitingHealth, nil)
	result := e.deps.Health.WaitUntilHealthy(ctx, *svc.HealthCheck)
	r.setHealthAttempts(name, result.Attempts)

	switch {
	case result.Healthy():
		r.transition(name, api.StateRunning, nil)
	case ctx.Err() != nil || result.Cancelled:
		r.transition(name, api.StateIndeterminate, context.Cause(ctx))
	case result.Outcome == health.OutcomeTimeout && result.Exhausted && !result.Connected:
		r.transition(name, api.StateFailed, result.Err)
		e.propagateFailure(r, name)
	default:
		r.transition(name, api.StateDegraded, result.Err)
		if !e.opts.Lenient {
			e.propagateFailure(r, name)
		}
	}
}

func (e *Engine) stopService(ctx context.Context, r *run, svc config.ServiceDefinition) {
	if ctx.Err() != nil {
		return
	}
	name := svc.Name
	r.transition(name, api.StateStopping, nil)

	err := e.retry(ctx, func() error {
		return e.deps.Controller.Stop(ctx, svc)
	}, func(err error, next time.Duration) {
		logging.Warn(subsystem, "Stop of %s failed, retrying in %s: %v", name, next, err)
	})

	switch {
	case ctx.Err() != nil:
		r.transition(name, api.StateIndeterminate, context.Cause(ctx))
	case err != nil:
		logging.Error(subsystem, err, "Could not stop %s", name)
		r.transition(name, api.StateFailed, err)
	default:
		r.transition(name, api.StateStopped, nil)
	}
}

func (e *Engine) newRun(id string, action api.Action, model *config.Model, full, sub *dependency.Plan) *run {
	now := e.opts.Clock.Now()
	r := &run{
		id:     id,
		action: action,
		model:  model,
		plan:   full,
		clock:  e.opts.Clock,
		states: make(map[string]*api.ServiceRuntimeState),
		notify: e.publish,
	}
	for _, name := range sub.Services() {
		level, _ := full.LevelOf(name)
		r.order = append(r.order, name)
		r.states[name] = &api.ServiceRuntimeState{
			Name:           name,
			State:          api.StatePending,
			Level:          level,
			LastTransition: now,
		}
	}
	return r
}

func (e *Engine) setCurrent(r *run) {
	e.mu.Lock()
	e.current = r
	e.mu.Unlock()
}

func (e *Engine) holdDown(names []string, held bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, name := range names {
		if held {
			e.heldDown[name] = true
		} else {
			delete(e.heldDown, name)
		}
	}
}

// StoppedByRequest returns the services a stop run took down that no start
// or restart has named since, in no particular order.
func (e *Engine) StoppedByRequest() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.heldDown))
	for name := range e.heldDown {
		names = append(names, name)
	}
	return names
}

// Snapshot returns copies of the states of the latest run, in plan order.
// It returns nil before the first run.
func (e *Engine) Snapshot() []api.ServiceRuntimeState {
	e.mu.RLock()
	r := e.current
	e.mu.RUnlock()
	if r == nil {
		return nil
	}
	return r.snapshot()
}

// Status aggregates the latest run. Before any run every service is
// reported Pending.
func (e *Engine) Status() status.Report {
	e.mu.RLock()
	r, model := e.current, e.model
	e.mu.RUnlock()
	if r == nil {
		var states []api.ServiceRuntimeState
		for _, name := range model.ServiceNames() {
			states = append(states, api.ServiceRuntimeState{Name: name, State: api.StatePending})
		}
		return status.Aggregate(states, api.StateRunning)
	}
	return r.report()
}

// LastRun returns the latest completed run.
func (e *Engine) LastRun() (*RunResult, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last, e.last != nil
}

// Observe queries the runtime for the live status of targets (all services
// when empty) without changing anything. Disabled services are reported
// Skipped; services the runtime cannot report on are Unknown.
func (e *Engine) Observe(ctx context.Context, targets []string) (status.Report, error) {
	e.mu.RLock()
	model, plan := e.model, e.plan
	e.mu.RUnlock()

	names := targets
	if len(names) == 0 {
		names = model.ServiceNames()
	}
	states := make([]api.ServiceRuntimeState, len(names))
	for i, name := range names {
		if !plan.Contains(name) {
			return status.Report{}, &dependency.UnknownServiceError{Name: name}
		}
		level, _ := plan.LevelOf(name)
		states[i] = api.ServiceRuntimeState{Name: name, Level: level}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.MaxParallel)
	for i := range states {
		svc, _ := model.Service(states[i].Name)
		if !svc.Enabled {
			states[i].State = api.StateSkipped
			continue
		}
		g.Go(func() error {
			st := e.deps.Controller.Status(gctx, svc)
			states[i].State = observedState(st)
			states[i].LastTransition = e.opts.Clock.Now()
			metrics.SetServiceRunning(svc.Name, st == controller.StatusRunning)
			return nil
		})
	}
	_ = g.Wait()
	return status.Aggregate(states, api.StateRunning), nil
}

func observedState(st controller.Status) api.ServiceState {
	switch st {
	case controller.StatusRunning:
		return api.StateRunning
	case controller.StatusStopped:
		return api.StateStopped
	}
	return api.StateUnknown
}

// DefaultSubscriberBuffer is the channel capacity SubscribeToStateChanges
// uses.
const DefaultSubscriberBuffer = 100

// SubscribeToStateChanges returns a channel receiving every transition.
func (e *Engine) SubscribeToStateChanges() <-chan api.ServiceStateChangedEvent {
	return e.SubscribeWithBuffer(DefaultSubscriberBuffer)
}

// SubscribeWithBuffer is SubscribeToStateChanges with a channel of capacity
// size. Events that find the channel full are dropped and counted.
func (e *Engine) SubscribeWithBuffer(size int) <-chan api.ServiceStateChangedEvent {
	if size < 1 {
		size = DefaultSubscriberBuffer
	}
	ch := make(chan api.ServiceStateChangedEvent, size)
	e.mu.Lock()
	e.subscribers = append(e.subscribers, ch)
	e.mu.Unlock()
	return ch
}

func (e *Engine) publish(event api.ServiceStateChangedEvent) {
	e.mu.RLock()
	subscribers := make([]chan<- api.ServiceStateChangedEvent, len(e.subscribers))
	copy(subscribers, e.subscribers)
	e.mu.RUnlock()

	for _, sub := range subscribers {
		select {
		case sub <- event:
		default:
			metrics.RecordDroppedEvent()
			logging.Warn(subsystem, "Subscriber buffer full, dropped %s event for %s", event.NewState, event.Name)
		}
	}
}

func targetsLabel(targets []string) string {
	if len(targets) == 0 {
		return "all services"
	}
	return fmt.Sprint(targets)
}
