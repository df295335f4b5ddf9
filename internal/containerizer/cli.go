package containerizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"stevedore/pkg/logging"
)

const cliSubsystem = "Containerizer"

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// lookPath is a variable to allow mocking in tests
var lookPath = exec.LookPath

// CLIRuntime implements Runtime by shelling out to the docker or podman CLI.
// Compose commands run in the descriptor's directory so that relative paths
// and .env files inside the descriptor resolve the way they do by hand.
type CLIRuntime struct {
	binary  string
	compose []string
}

// Binary is the runtime CLI used for network commands.
func (r *CLIRuntime) Binary() string {
	return r.binary
}

// ComposeCommand is the command prefix used for compose invocations.
func (r *CLIRuntime) ComposeCommand() string {
	return strings.Join(r.compose, " ")
}

// Up runs "<compose> -f <descriptor> up -d".
func (r *CLIRuntime) Up(ctx context.Context, p Project) error {
	logging.Debug(cliSubsystem, "Bringing up %s from %s", p.Name, p.DescriptorPath)
	_, err := r.runCompose(ctx, p, "up", "-d")
	return err
}

// Down runs "<compose> -f <descriptor> down".
func (r *CLIRuntime) Down(ctx context.Context, p Project) error {
	logging.Debug(cliSubsystem, "Taking down %s from %s", p.Name, p.DescriptorPath)
	_, err := r.runCompose(ctx, p, "down")
	return err
}

// Ps runs "<compose> -f <descriptor> ps --all --format json".
func (r *CLIRuntime) Ps(ctx context.Context, p Project) ([]ContainerState, error) {
	out, err := r.runCompose(ctx, p, "ps", "--all", "--format", "json")
	if err != nil {
		return nil, err
	}
	return parsePsOutput(out)
}

// Logs runs "<compose> -f <descriptor> logs --no-color [-f] [--tail N]" and
// copies its output to w as it arrives.
func (r *CLIRuntime) Logs(ctx context.Context, p Project, opts LogOptions, w io.Writer) error {
	args := []string{"logs", "--no-color"}
	if opts.Follow {
		args = append(args, "-f")
	}
	if opts.Tail > 0 {
		args = append(args, "--tail", strconv.Itoa(opts.Tail))
	}
	dir, name, full := r.composeArgs(p, args...)
	return r.runTo(ctx, dir, w, name, full...)
}

// NetworkExists runs "<binary> network inspect <name>".
func (r *CLIRuntime) NetworkExists(ctx context.Context, name string) (bool, error) {
	_, err := r.run(ctx, "", r.binary, "network", "inspect", name)
	if err == nil {
		return true, nil
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		stderr := strings.ToLower(cmdErr.Stderr)
		if strings.Contains(stderr, "no such network") || strings.Contains(stderr, "not found") {
			return false, nil
		}
	}
	return false, err
}

// CreateNetwork runs "<binary> network create --driver <driver> <name>".
func (r *CLIRuntime) CreateNetwork(ctx context.Context, name, driver string) error {
	logging.Info(cliSubsystem, "Creating network %s (driver %s)", name, driver)

	_, err := r.run(ctx, "", r.binary, "network", "create", "--driver", driver, name)
	if err == nil {
		return nil
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && strings.Contains(strings.ToLower(cmdErr.Stderr), "already exists") {
		return fmt.Errorf("network %s: %w", name, ErrAlreadyExists)
	}
	return err
}

func (r *CLIRuntime) runCompose(ctx context.Context, p Project, args ...string) ([]byte, error) {
	dir, name, full := r.composeArgs(p, args...)
	return r.run(ctx, dir, name, full...)
}

// composeArgs returns the working directory, binary and arguments of a
// compose invocation for p.
func (r *CLIRuntime) composeArgs(p Project, args ...string) (string, string, []string) {
	descriptor := expandPath(p.DescriptorPath)
	full := append([]string{}, r.compose[1:]...)
	full = append(full, "-f", descriptor)
	full = append(full, args...)
	return filepath.Dir(descriptor), r.compose[0], full
}

func (r *CLIRuntime) run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	if err := r.runTo(ctx, dir, &stdout, name, args...); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

func (r *CLIRuntime) runTo(ctx context.Context, dir string, stdout io.Writer, name string, args ...string) error {
	command := name + " " + strings.Join(args, " ")
	logging.Debug(cliSubsystem, "Running: %s", command)

	cmd := execCommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", command, ctxErr)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%s: %w: %v", command, ErrRuntimeUnavailable, err)
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &CommandError{Command: command, ExitCode: exitCode, Stderr: stderr.String(), Err: err}
	}
	return nil
}

// parsePsOutput accepts both shapes compose has used for --format json: a
// single JSON array and one JSON object per line.
func parsePsOutput(out []byte) ([]ContainerState, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var states []ContainerState
		if err := json.Unmarshal(trimmed, &states); err != nil {
			return nil, fmt.Errorf("failed to parse compose ps output: %w", err)
		}
		return states, nil
	}

	var states []ContainerState
	for _, line := range bytes.Split(trimmed, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var st ContainerState
		if err := json.Unmarshal(line, &st); err != nil {
			return nil, fmt.Errorf("failed to parse compose ps output: %w", err)
		}
		states = append(states, st)
	}
	return states, nil
}

// expandPath expands tilde in paths to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
