package containerizer

import (
	"fmt"
	"strings"
)

// RuntimeType defines the type of container runtime
type RuntimeType string

const (
	RuntimeTypeDocker RuntimeType = "docker"
	RuntimeTypePodman RuntimeType = "podman"
)

// Options selects the runtime CLI and the compose command.
type Options struct {
	// Type is "docker" (default) or "podman".
	Type string
	// ComposeCommand overrides the compose invocation, e.g. "docker-compose".
	// Defaults to "<type> compose".
	ComposeCommand string
}

// NewRuntime creates a CLI runtime for the given options. It fails when the
// binaries cannot be found in PATH; the daemon itself is not contacted so
// that an unreachable daemon shows up as an unknown status rather than a
// startup error.
func NewRuntime(opts Options) (*CLIRuntime, error) {
	rt := RuntimeType(strings.ToLower(strings.TrimSpace(opts.Type)))
	switch rt {
	case "":
		rt = RuntimeTypeDocker
	case RuntimeTypeDocker, RuntimeTypePodman:
	default:
		return nil, fmt.Errorf("unsupported container runtime: %s", opts.Type)
	}

	compose := strings.Fields(opts.ComposeCommand)
	if len(compose) == 0 {
		compose = []string{string(rt), "compose"}
	}

	for _, bin := range uniq(string(rt), compose[0]) {
		if _, err := lookPath(bin); err != nil {
			return nil, fmt.Errorf("%s command not found in PATH: %w", bin, ErrRuntimeUnavailable)
		}
	}

	return &CLIRuntime{binary: string(rt), compose: compose}, nil
}

func uniq(a, b string) []string {
	if a == b {
		return []string{a}
	}
	return []string{a, b}
}
