package network

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stevedore/internal/config"
	"stevedore/internal/testing/mock"
)

func TestEnsure(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(rt *mock.Runtime)
		def         config.NetworkDefinition
		expectError bool
		expectCalls []string
	}{
		{
			name:        "creates missing managed network",
			def:         config.NetworkDefinition{Name: "backend", Driver: "bridge"},
			expectCalls: []string{mock.OpNetworkExists, mock.OpNetworkCreate},
		},
		{
			name:        "existing managed network is left alone",
			setup:       func(rt *mock.Runtime) { rt.AddNetwork("backend", "bridge") },
			def:         config.NetworkDefinition{Name: "backend", Driver: "bridge"},
			expectCalls: []string{mock.OpNetworkExists},
		},
		{
			name:        "existing external network",
			setup:       func(rt *mock.Runtime) { rt.AddNetwork("proxy", "overlay") },
			def:         config.NetworkDefinition{Name: "proxy", Driver: "overlay", External: true},
			expectCalls: []string{mock.OpNetworkExists},
		},
		{
			name:        "missing external network is never created",
			def:         config.NetworkDefinition{Name: "proxy", Driver: "overlay", External: true},
			expectError: true,
			expectCalls: []string{mock.OpNetworkExists},
		},
		{
			name:        "driver rejection",
			setup:       func(rt *mock.Runtime) { rt.FailCreateNetwork("vlan", errors.New(`plugin "bogus" not found`)) },
			def:         config.NetworkDefinition{Name: "vlan", Driver: "bogus"},
			expectError: true,
			expectCalls: []string{mock.OpNetworkExists, mock.OpNetworkCreate},
		},
		{
			name:        "runtime unreachable",
			setup:       func(rt *mock.Runtime) { rt.FailNetworkExists(errors.New("cannot connect")) },
			def:         config.NetworkDefinition{Name: "backend", Driver: "bridge"},
			expectError: true,
			expectCalls: []string{mock.OpNetworkExists},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := mock.NewRuntime()
			if tt.setup != nil {
				tt.setup(rt)
			}
			p := NewProvisioner(rt)

			err := p.Ensure(context.Background(), tt.def)
			if tt.expectError {
				var provErr *ProvisionError
				require.True(t, errors.As(err, &provErr), "expected ProvisionError, got %v", err)
				assert.Equal(t, tt.def.Name, provErr.Network)
			} else {
				assert.NoError(t, err)
			}

			var ops []string
			for _, c := range rt.Calls() {
				ops = append(ops, c.Op)
			}
			assert.Equal(t, tt.expectCalls, ops)
		})
	}
}

func TestEnsure_TwiceNeverErrors(t *testing.T) {
	rt := mock.NewRuntime()
	p := NewProvisioner(rt)
	def := config.NetworkDefinition{Name: "backend", Driver: "bridge"}

	require.NoError(t, p.Ensure(context.Background(), def))
	require.NoError(t, p.Ensure(context.Background(), def))

	driver, ok := rt.HasNetwork("backend")
	assert.True(t, ok)
	assert.Equal(t, "bridge", driver)
	assert.Equal(t, 1, rt.CallCount(mock.OpNetworkCreate, "backend"))
}

// alreadyExistsRuntime reports the network missing and then loses the
// creation race.
type alreadyExistsRuntime struct {
	*mock.Runtime
}

func (r alreadyExistsRuntime) NetworkExists(ctx context.Context, name string) (bool, error) {
	return false, nil
}

func TestEnsure_CreateRaceIsSuccess(t *testing.T) {
	rt := mock.NewRuntime()
	rt.AddNetwork("backend", "bridge")
	p := NewProvisioner(alreadyExistsRuntime{rt})

	assert.NoError(t, p.Ensure(context.Background(), config.NetworkDefinition{Name: "backend", Driver: "bridge"}))
}

func TestEnsureAll_StopsAtFirstFailure(t *testing.T) {
	rt := mock.NewRuntime()
	p := NewProvisioner(rt)

	err := p.EnsureAll(context.Background(), []config.NetworkDefinition{
		{Name: "a", Driver: "bridge"},
		{Name: "ext", Driver: "bridge", External: true},
		{Name: "c", Driver: "bridge"},
	})
	require.Error(t, err)

	assert.Equal(t, []string{"a"}, rt.Targets(mock.OpNetworkCreate))
	assert.Equal(t, []string{"a", "ext"}, rt.Targets(mock.OpNetworkExists))
}

func TestEnsureAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewProvisioner(mock.NewRuntime()).EnsureAll(ctx, []config.NetworkDefinition{{Name: "a"}})
	assert.ErrorIs(t, err, context.Canceled)
}
