package containerizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExecCommandContext re-executes the test binary as TestHelperProcess.
func mockExecCommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", name}
	cs = append(cs, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

func useMockExec(t *testing.T) {
	t.Helper()
	old := execCommandContext
	execCommandContext = mockExecCommandContext
	t.Cleanup(func() { execCommandContext = old })
}

// TestHelperProcess is a helper process for mocking exec.Command
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}

	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "No command\n")
		os.Exit(2)
	}

	cmd, args := args[0], args[1:]

	// Strip the compose prefix so docker compose, docker-compose and
	// podman compose share one mock.
	if (cmd == "docker" || cmd == "podman") && len(args) > 0 && args[0] == "compose" {
		cmd, args = "compose", args[1:]
	} else if cmd == "docker-compose" {
		cmd = "compose"
	}

	switch cmd {
	case "compose":
		if len(args) < 3 || args[0] != "-f" {
			fmt.Fprintf(os.Stderr, "expected -f <descriptor>\n")
			os.Exit(2)
		}
		descriptor, sub := args[1], args[2:]
		wd, _ := os.Getwd()
		wd, _ = filepath.EvalSymlinks(wd)
		want, _ := filepath.EvalSymlinks(filepath.Dir(descriptor))
		if wd != want {
			fmt.Fprintf(os.Stderr, "wrong working directory %s\n", wd)
			os.Exit(3)
		}
		project := filepath.Base(filepath.Dir(descriptor))

		if project == "broken" {
			fmt.Fprintf(os.Stderr, "service \"web\" refers to undefined volume data\n")
			os.Exit(15)
		}

		switch strings.Join(sub, " ") {
		case "up -d", "down":
			os.Exit(0)
		case "logs --no-color":
			fmt.Println("web-1  | listening on :8080")
			fmt.Println("web-1  | ready")
			os.Exit(0)
		case "logs --no-color --tail 1":
			fmt.Println("web-1  | ready")
			os.Exit(0)
		case "ps --all --format json":
			switch project {
			case "ndjson":
				fmt.Println(`{"Name":"ndjson-db-1","Service":"db","State":"running","Health":"healthy"}`)
				fmt.Println(`{"Name":"ndjson-web-1","Service":"web","State":"exited","Health":""}`)
			case "array":
				fmt.Println(`[{"Name":"array-db-1","Service":"db","State":"running","Health":""}]`)
			case "garbage":
				fmt.Println(`not json`)
			}
			os.Exit(0)
		}

	case "docker", "podman":
		if len(args) >= 3 && args[0] == "network" && args[1] == "inspect" {
			switch args[2] {
			case "existing":
				fmt.Println(`[{"Name":"existing"}]`)
				os.Exit(0)
			case "missing":
				fmt.Fprintf(os.Stderr, "Error response from daemon: network missing not found\n")
				os.Exit(1)
			default:
				fmt.Fprintf(os.Stderr, "Cannot connect to the Docker daemon\n")
				os.Exit(1)
			}
		}
		if len(args) >= 5 && args[0] == "network" && args[1] == "create" && args[2] == "--driver" {
			driver, name := args[3], args[4]
			switch {
			case name == "existing":
				fmt.Fprintf(os.Stderr, "Error response from daemon: network with name existing already exists\n")
				os.Exit(1)
			case driver == "macvlan-bad":
				fmt.Fprintf(os.Stderr, "Error response from daemon: plugin \"macvlan-bad\" not found\n")
				os.Exit(1)
			}
			fmt.Println("4f1c2a")
			os.Exit(0)
		}
	}

	fmt.Fprintf(os.Stderr, "Unknown command: %s %v\n", cmd, args)
	os.Exit(1)
}

func projectIn(t *testing.T, dir, name string) Project {
	t.Helper()
	projectDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(projectDir, 0755))
	return Project{Name: name, DescriptorPath: filepath.Join(projectDir, "docker-compose.yml")}
}

func TestNewRuntime(t *testing.T) {
	oldLookPath := lookPath
	defer func() { lookPath = oldLookPath }()

	tests := []struct {
		name            string
		opts            Options
		available       map[string]bool
		expectedBinary  string
		expectedCompose string
		expectError     bool
	}{
		{
			name:            "defaults to docker compose",
			available:       map[string]bool{"docker": true},
			expectedBinary:  "docker",
			expectedCompose: "docker compose",
		},
		{
			name:            "podman",
			opts:            Options{Type: "Podman"},
			available:       map[string]bool{"podman": true},
			expectedBinary:  "podman",
			expectedCompose: "podman compose",
		},
		{
			name:            "legacy docker-compose",
			opts:            Options{ComposeCommand: "docker-compose"},
			available:       map[string]bool{"docker": true, "docker-compose": true},
			expectedBinary:  "docker",
			expectedCompose: "docker-compose",
		},
		{
			name:        "legacy docker-compose missing",
			opts:        Options{ComposeCommand: "docker-compose"},
			available:   map[string]bool{"docker": true},
			expectError: true,
		},
		{
			name:        "unsupported runtime",
			opts:        Options{Type: "containerd"},
			available:   map[string]bool{"containerd": true},
			expectError: true,
		},
		{
			name:        "docker not installed",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookPath = func(file string) (string, error) {
				if tt.available[file] {
					return "/usr/bin/" + file, nil
				}
				return "", exec.ErrNotFound
			}

			rt, err := NewRuntime(tt.opts)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, rt)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedBinary, rt.Binary())
			assert.Equal(t, tt.expectedCompose, rt.ComposeCommand())
		})
	}
}

func TestCLIRuntime_UpDown(t *testing.T) {
	useMockExec(t)
	dir := t.TempDir()

	for _, compose := range [][]string{{"docker", "compose"}, {"docker-compose"}, {"podman", "compose"}} {
		t.Run(strings.Join(compose, " "), func(t *testing.T) {
			rt := &CLIRuntime{binary: compose[0], compose: compose}
			p := projectIn(t, dir, "postgres")

			assert.NoError(t, rt.Up(context.Background(), p))
			assert.NoError(t, rt.Down(context.Background(), p))
		})
	}
}

func TestCLIRuntime_UpFailure(t *testing.T) {
	useMockExec(t)
	rt := &CLIRuntime{binary: "docker", compose: []string{"docker", "compose"}}
	p := projectIn(t, t.TempDir(), "broken")

	err := rt.Up(context.Background(), p)
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 15, cmdErr.ExitCode)
	assert.Contains(t, cmdErr.Error(), "undefined volume")
}

func TestCLIRuntime_Logs(t *testing.T) {
	useMockExec(t)
	rt := &CLIRuntime{binary: "docker", compose: []string{"docker", "compose"}}
	dir := t.TempDir()

	tests := []struct {
		name    string
		project string
		opts    LogOptions
		want    string
		wantErr bool
	}{
		{
			name:    "all lines",
			project: "web",
			want:    "web-1  | listening on :8080\nweb-1  | ready\n",
		},
		{
			name:    "tail",
			project: "web",
			opts:    LogOptions{Tail: 1},
			want:    "web-1  | ready\n",
		},
		{
			name:    "compose error",
			project: "broken",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			err := rt.Logs(context.Background(), projectIn(t, dir, tt.project), tt.opts, &out)
			if tt.wantErr {
				var cmdErr *CommandError
				require.ErrorAs(t, err, &cmdErr)
				assert.Contains(t, cmdErr.Stderr, "undefined volume")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestCLIRuntime_Ps(t *testing.T) {
	useMockExec(t)
	rt := &CLIRuntime{binary: "docker", compose: []string{"docker", "compose"}}
	dir := t.TempDir()

	t.Run("ndjson", func(t *testing.T) {
		states, err := rt.Ps(context.Background(), projectIn(t, dir, "ndjson"))
		require.NoError(t, err)
		require.Len(t, states, 2)
		assert.Equal(t, "db", states[0].Service)
		assert.True(t, states[0].Ready())
		assert.False(t, states[1].Up())
	})

	t.Run("array", func(t *testing.T) {
		states, err := rt.Ps(context.Background(), projectIn(t, dir, "array"))
		require.NoError(t, err)
		require.Len(t, states, 1)
		assert.True(t, states[0].Ready())
	})

	t.Run("no containers", func(t *testing.T) {
		states, err := rt.Ps(context.Background(), projectIn(t, dir, "empty"))
		require.NoError(t, err)
		assert.Empty(t, states)
	})

	t.Run("unparseable", func(t *testing.T) {
		_, err := rt.Ps(context.Background(), projectIn(t, dir, "garbage"))
		assert.Error(t, err)
	})
}

func TestCLIRuntime_Networks(t *testing.T) {
	useMockExec(t)
	rt := &CLIRuntime{binary: "docker", compose: []string{"docker", "compose"}}
	ctx := context.Background()

	exists, err := rt.NetworkExists(ctx, "existing")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = rt.NetworkExists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = rt.NetworkExists(ctx, "unreachable")
	assert.Error(t, err)

	assert.NoError(t, rt.CreateNetwork(ctx, "backend", "bridge"))

	err = rt.CreateNetwork(ctx, "existing", "bridge")
	assert.True(t, errors.Is(err, ErrAlreadyExists))

	err = rt.CreateNetwork(ctx, "vlan", "macvlan-bad")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAlreadyExists))
}

func TestCLIRuntime_MissingBinary(t *testing.T) {
	rt := &CLIRuntime{binary: "stevedore-no-such-binary", compose: []string{"stevedore-no-such-binary", "compose"}}

	_, err := rt.NetworkExists(context.Background(), "backend")
	assert.True(t, errors.Is(err, ErrRuntimeUnavailable))
}

func TestContainerState(t *testing.T) {
	tests := []struct {
		state ContainerState
		up    bool
		ready bool
	}{
		{ContainerState{State: "running"}, true, true},
		{ContainerState{State: "running", Health: "healthy"}, true, true},
		{ContainerState{State: "running", Health: "starting"}, true, false},
		{ContainerState{State: "exited"}, false, false},
		{ContainerState{State: "Running"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.State+"/"+tt.state.Health, func(t *testing.T) {
			assert.Equal(t, tt.up, tt.state.Up())
			assert.Equal(t, tt.ready, tt.state.Ready())
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "stack/compose.yml"), expandPath("~/stack/compose.yml"))
	assert.Equal(t, "/srv/compose.yml", expandPath("/srv/compose.yml"))
}
