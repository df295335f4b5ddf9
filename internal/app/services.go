package app

import (
	"fmt"

	"stevedore/internal/config"
	"stevedore/internal/containerizer"
	"stevedore/internal/controller"
	"stevedore/internal/health"
	"stevedore/internal/network"
	"stevedore/internal/orchestrator"
	"stevedore/pkg/logging"
)

// Services holds the components built for one application.
type Services struct {
	Runtime    containerizer.Runtime
	Controller *controller.Controller
	Health     *health.Checker
	Networks   *network.Provisioner
	Engine     *orchestrator.Engine
}

// InitializeServices builds the runtime adapters and the engine for model.
func InitializeServices(cfg *Config, model *config.Model) (*Services, error) {
	rt := cfg.ContainerRuntime
	if rt == nil {
		cli, err := containerizer.NewRuntime(containerizer.Options{
			Type:           cfg.RuntimeType,
			ComposeCommand: cfg.ComposeCommand,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set up container runtime: %w", err)
		}
		logging.Debug("Bootstrap", "Using %s with %q", cli.Binary(), cli.ComposeCommand())
		rt = cli
	}

	ctrl := controller.New(rt, cfg.CallTimeout)
	checker := health.NewChecker(ctrl)
	networks := network.NewProvisioner(rt)

	engine, err := orchestrator.New(model, orchestrator.Dependencies{
		Controller: ctrl,
		Health:     checker,
		Networks:   networks,
	}, orchestrator.Options{
		MaxParallel:   cfg.MaxParallel,
		Lenient:       cfg.Lenient,
		StartAttempts: cfg.StartAttempts,
	})
	if err != nil {
		return nil, err
	}

	return &Services{
		Runtime:    rt,
		Controller: ctrl,
		Health:     checker,
		Networks:   networks,
		Engine:     engine,
	}, nil
}
