package network

import (
	"context"
	"errors"
	"fmt"

	"stevedore/internal/config"
	"stevedore/internal/containerizer"
	"stevedore/internal/metrics"
	"stevedore/pkg/logging"
)

const subsystem = "NetworkProvisioner"

// ProvisionError reports a network that could not be verified or created.
// It aborts the whole run.
type ProvisionError struct {
	Network string
	Reason  string
	Err     error
}

func (e *ProvisionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network %q: %s: %v", e.Network, e.Reason, e.Err)
	}
	return fmt.Sprintf("network %q: %s", e.Network, e.Reason)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// Provisioner makes sure shared networks exist before services use them.
type Provisioner struct {
	runtime containerizer.NetworkRuntime
}

func NewProvisioner(rt containerizer.NetworkRuntime) *Provisioner {
	return &Provisioner{runtime: rt}
}

// Ensure verifies an external network exists, or creates a managed one if it
// is absent. A network that already exists is never an error.
func (p *Provisioner) Ensure(ctx context.Context, def config.NetworkDefinition) error {
	exists, err := p.runtime.NetworkExists(ctx, def.Name)
	if err != nil {
		metrics.RecordNetworkProvision("error")
		return &ProvisionError{Network: def.Name, Reason: "failed to inspect network", Err: err}
	}

	if exists {
		logging.Debug(subsystem, "Network %s already exists", def.Name)
		metrics.RecordNetworkProvision("existing")
		return nil
	}

	if def.External {
		metrics.RecordNetworkProvision("error")
		return &ProvisionError{Network: def.Name, Reason: "external network does not exist"}
	}

	if err := p.runtime.CreateNetwork(ctx, def.Name, def.Driver); err != nil {
		if errors.Is(err, containerizer.ErrAlreadyExists) {
			logging.Debug(subsystem, "Network %s was created concurrently", def.Name)
			metrics.RecordNetworkProvision("existing")
			return nil
		}
		metrics.RecordNetworkProvision("error")
		return &ProvisionError{Network: def.Name, Reason: fmt.Sprintf("failed to create network with driver %s", def.Driver), Err: err}
	}

	logging.Info(subsystem, "Created network %s (driver %s)", def.Name, def.Driver)
	metrics.RecordNetworkProvision("created")
	return nil
}

// EnsureAll provisions defs one after another in the given order and stops
// at the first failure.
func (p *Provisioner) EnsureAll(ctx context.Context, defs []config.NetworkDefinition) error {
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Ensure(ctx, def); err != nil {
			return err
		}
	}
	return nil
}
