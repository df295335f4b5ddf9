package health

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"strings"

	"stevedore/internal/config"
	"stevedore/internal/containerizer"
)

// Pinger performs one attempt. It returns nil when healthy, a *NotReadyError
// when the service answered but is not ready, and any other error when the
// service could not be reached.
type Pinger interface {
	Ping(ctx context.Context, spec config.HealthCheckSpec) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context, spec config.HealthCheckSpec) error

func (f PingerFunc) Ping(ctx context.Context, spec config.HealthCheckSpec) error {
	return f(ctx, spec)
}

// ContainerLister lists the containers of a service.
type ContainerLister interface {
	Containers(ctx context.Context, svc config.ServiceDefinition) ([]containerizer.ContainerState, error)
}

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// HTTPPinger issues a GET; 2xx and 3xx responses are healthy.
type HTTPPinger struct {
	Client *http.Client
}

func NewHTTPPinger() *HTTPPinger {
	return &HTTPPinger{Client: &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (p *HTTPPinger) Ping(ctx context.Context, spec config.HealthCheckSpec) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.Target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", spec.Target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return &NotReadyError{Reason: fmt.Sprintf("%s returned status %d", spec.Target, resp.StatusCode)}
	}
	return nil
}

// TCPPinger succeeds when a TCP connection can be opened.
type TCPPinger struct{}

func (TCPPinger) Ping(ctx context.Context, spec config.HealthCheckSpec) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", spec.Target)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", spec.Target, err)
	}
	return conn.Close()
}

// CommandPinger runs the target through "sh -c" in the descriptor's
// directory. Exit status 0 is healthy; any other exit status is not ready.
type CommandPinger struct{}

func (CommandPinger) Ping(ctx context.Context, spec config.HealthCheckSpec) error {
	cmd := execCommandContext(ctx, "sh", "-c", spec.Target)
	cmd.Dir = spec.WorkDir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		reason := fmt.Sprintf("command exited with status %d", exitErr.ExitCode())
		if msg := strings.TrimSpace(out.String()); msg != "" {
			reason += ": " + msg
		}
		return &NotReadyError{Reason: reason}
	}
	return fmt.Errorf("failed to run health command: %w", err)
}

// ContainerPinger asks the runtime whether every container of the service
// is running and, where a healthcheck is declared, healthy.
type ContainerPinger struct {
	Lister ContainerLister
}

func (p ContainerPinger) Ping(ctx context.Context, spec config.HealthCheckSpec) error {
	if p.Lister == nil {
		return errors.New("no container runtime configured")
	}

	containers, err := p.Lister.Containers(ctx, config.ServiceDefinition{
		Name:           spec.Service,
		DescriptorPath: spec.DescriptorPath,
	})
	if err != nil {
		return err
	}
	if len(containers) == 0 {
		return fmt.Errorf("no containers found for %s", spec.Service)
	}
	for _, ct := range containers {
		if !ct.Ready() {
			reason := fmt.Sprintf("container %s is %s", ct.Name, ct.State)
			if ct.Health != "" {
				reason += " (" + ct.Health + ")"
			}
			return &NotReadyError{Reason: reason}
		}
	}
	return nil
}
