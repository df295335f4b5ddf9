package mock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"stevedore/internal/containerizer"
)

// Operations recorded by Runtime.
const (
	OpUp            = "up"
	OpDown          = "down"
	OpPs            = "ps"
	OpLogs          = "logs"
	OpNetworkExists = "network-exists"
	OpNetworkCreate = "network-create"
)

// Call is one recorded runtime invocation.
type Call struct {
	Op     string
	Target string
}

// Runtime is an in-memory containerizer.Runtime. Projects are keyed by
// name. Failures and delays are scripted per project; unscripted calls
// succeed.
type Runtime struct {
	mu sync.Mutex

	running  map[string]bool
	health   map[string]string
	networks map[string]string
	logs     map[string]string

	upErrs      map[string][]error
	upAlways    map[string]error
	downErrs    map[string]error
	psErrs      map[string]error
	createErrs  map[string]error
	existsErr   error
	delays      map[string]time.Duration

	calls []Call
}

// NewRuntime returns an empty runtime with no projects running.
func NewRuntime() *Runtime {
	return &Runtime{
		running:    make(map[string]bool),
		health:     make(map[string]string),
		networks:   make(map[string]string),
		logs:       make(map[string]string),
		upErrs:     make(map[string][]error),
		upAlways:   make(map[string]error),
		downErrs:   make(map[string]error),
		psErrs:     make(map[string]error),
		createErrs: make(map[string]error),
		delays:     make(map[string]time.Duration),
	}
}

// FailUp makes the next len(errs) Up calls for project fail, in order.
func (r *Runtime) FailUp(project string, errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upErrs[project] = append(r.upErrs[project], errs...)
}

// AlwaysFailUp makes every Up call for project fail.
func (r *Runtime) AlwaysFailUp(project string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upAlways[project] = err
}

// FailDown makes every Down call for project fail.
func (r *Runtime) FailDown(project string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downErrs[project] = err
}

// FailPs makes every Ps call for project fail. An empty project fails Ps for
// all projects.
func (r *Runtime) FailPs(project string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.psErrs[project] = err
}

// FailCreateNetwork makes CreateNetwork for name fail.
func (r *Runtime) FailCreateNetwork(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createErrs[name] = err
}

// FailNetworkExists makes every NetworkExists call fail.
func (r *Runtime) FailNetworkExists(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.existsErr = err
}

// DelayCalls makes Up and Down for project block for d, or until the call
// deadline passes. Cancellation alone does not cut a delayed call short.
func (r *Runtime) DelayCalls(project string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays[project] = d
}

// SetRunning marks a project as running or stopped without recording a call.
func (r *Runtime) SetRunning(project string, running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running[project] = running
}

// SetHealth sets the container health reported by Ps ("healthy",
// "starting", "unhealthy" or "").
func (r *Runtime) SetHealth(project, health string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.health[project] = health
}

// SetLogs sets the output Logs writes for project.
func (r *Runtime) SetLogs(project, output string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[project] = output
}

// AddNetwork registers an existing network.
func (r *Runtime) AddNetwork(name, driver string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.networks[name] = driver
}

// IsRunning reports whether project is up.
func (r *Runtime) IsRunning(project string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running[project]
}

// HasNetwork reports whether the network exists and its driver.
func (r *Runtime) HasNetwork(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.networks[name]
	return d, ok
}

// Calls returns every recorded call in order.
func (r *Runtime) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallCount counts calls of op against target.
func (r *Runtime) CallCount(op, target string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op && c.Target == target {
			n++
		}
	}
	return n
}

// Targets returns the targets of all calls of op, in call order.
func (r *Runtime) Targets(op string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		if c.Op == op {
			out = append(out, c.Target)
		}
	}
	return out
}

func (r *Runtime) record(op, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Target: target})
}

func (r *Runtime) wait(ctx context.Context, project string) error {
	r.mu.Lock()
	d := r.delays[project]
	r.mu.Unlock()
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	// Cancellation does not interrupt a call already in progress; only the
	// call deadline does.
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ctx.Err()
		}
		<-timer.C
		return nil
	}
}

// Up implements containerizer.ComposeRuntime.
func (r *Runtime) Up(ctx context.Context, p containerizer.Project) error {
	r.record(OpUp, p.Name)
	if err := r.wait(ctx, p.Name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.upAlways[p.Name]; err != nil {
		return err
	}
	if errs := r.upErrs[p.Name]; len(errs) > 0 {
		r.upErrs[p.Name] = errs[1:]
		return errs[0]
	}
	r.running[p.Name] = true
	return nil
}

// Down implements containerizer.ComposeRuntime.
func (r *Runtime) Down(ctx context.Context, p containerizer.Project) error {
	r.record(OpDown, p.Name)
	if err := r.wait(ctx, p.Name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.downErrs[p.Name]; err != nil {
		return err
	}
	r.running[p.Name] = false
	return nil
}

// Ps implements containerizer.ComposeRuntime.
func (r *Runtime) Ps(ctx context.Context, p containerizer.Project) ([]containerizer.ContainerState, error) {
	r.record(OpPs, p.Name)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.psErrs[p.Name]; err != nil {
		return nil, err
	}
	if err := r.psErrs[""]; err != nil {
		return nil, err
	}
	if !r.running[p.Name] {
		return nil, nil
	}
	return []containerizer.ContainerState{{
		Name:    p.Name + "-1",
		Service: p.Name,
		State:   "running",
		Health:  r.health[p.Name],
	}}, nil
}

// Logs implements containerizer.ComposeRuntime. With Follow set it blocks
// until ctx is done after writing the scripted output.
func (r *Runtime) Logs(ctx context.Context, p containerizer.Project, opts containerizer.LogOptions, w io.Writer) error {
	r.record(OpLogs, p.Name)

	r.mu.Lock()
	out := r.logs[p.Name]
	r.mu.Unlock()

	if opts.Tail > 0 {
		lines := strings.SplitAfter(out, "\n")
		if lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		if len(lines) > opts.Tail {
			lines = lines[len(lines)-opts.Tail:]
		}
		out = strings.Join(lines, "")
	}
	if _, err := io.WriteString(w, out); err != nil {
		return err
	}
	if opts.Follow {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

// NetworkExists implements containerizer.NetworkRuntime.
func (r *Runtime) NetworkExists(ctx context.Context, name string) (bool, error) {
	r.record(OpNetworkExists, name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existsErr != nil {
		return false, r.existsErr
	}
	_, ok := r.networks[name]
	return ok, nil
}

// CreateNetwork implements containerizer.NetworkRuntime.
func (r *Runtime) CreateNetwork(ctx context.Context, name, driver string) error {
	r.record(OpNetworkCreate, name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.createErrs[name]; err != nil {
		return err
	}
	if _, ok := r.networks[name]; ok {
		return fmt.Errorf("network %s: %w", name, containerizer.ErrAlreadyExists)
	}
	r.networks[name] = driver
	return nil
}

var _ containerizer.Runtime = (*Runtime)(nil)
