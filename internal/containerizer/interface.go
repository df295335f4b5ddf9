package containerizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrAlreadyExists is returned by CreateNetwork when the network exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrRuntimeUnavailable is returned when the runtime binary cannot be
	// found or executed.
	ErrRuntimeUnavailable = errors.New("container runtime unavailable")
)

// Project identifies one compose project by its descriptor.
type Project struct {
	Name           string
	DescriptorPath string
}

// ContainerState is one container reported by the runtime for a project.
type ContainerState struct {
	Name    string `json:"Name"`
	Service string `json:"Service"`
	State   string `json:"State"`
	Health  string `json:"Health"`
}

// Up reports whether the container process is running.
func (c ContainerState) Up() bool {
	return strings.EqualFold(c.State, "running")
}

// Ready reports whether the container is up and, when it declares a
// healthcheck, healthy.
func (c ContainerState) Ready() bool {
	return c.Up() && (c.Health == "" || strings.EqualFold(c.Health, "healthy"))
}

// ComposeRuntime drives compose projects. Each method is exactly one external
// invocation.
type ComposeRuntime interface {
	// Up starts the project detached.
	Up(ctx context.Context, p Project) error
	// Down stops and removes the project's containers.
	Down(ctx context.Context, p Project) error
	// Ps lists the project's containers, stopped ones included.
	Ps(ctx context.Context, p Project) ([]ContainerState, error)
	// Logs writes the project's container output to w. With Follow set it
	// keeps streaming until ctx is done.
	Logs(ctx context.Context, p Project, opts LogOptions, w io.Writer) error
}

// LogOptions selects what Logs writes.
type LogOptions struct {
	Follow bool
	// Tail limits the output to the last Tail lines per container. Zero
	// means all lines.
	Tail int
}

// NetworkRuntime manages shared networks.
type NetworkRuntime interface {
	NetworkExists(ctx context.Context, name string) (bool, error)
	// CreateNetwork returns an error wrapping ErrAlreadyExists if the
	// network is already there.
	CreateNetwork(ctx context.Context, name, driver string) error
}

// Runtime is everything the orchestrator needs from a container runtime.
type Runtime interface {
	ComposeRuntime
	NetworkRuntime
}

// CommandError describes a runtime command that exited unsuccessfully.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s failed (exit %d): %s", e.Command, e.ExitCode, msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
