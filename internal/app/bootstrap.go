package app

import (
	"context"
	"io"
	"os"

	"stevedore/internal/api"
	"stevedore/internal/config"
	"stevedore/internal/containerizer"
	"stevedore/internal/dependency"
	"stevedore/internal/orchestrator"
	"stevedore/pkg/logging"
)

// Application is a loaded configuration plus the components that act on it.
type Application struct {
	config   *Config
	services *Services
}

// NewApplication configures logging, loads the configuration file and
// builds the services. Configuration and dependency cycle errors are
// returned unwrapped so callers can map them to exit codes.
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel := cfg.LogLevel
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}
	var logOutput io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		logOutput = cfg.LogOutput
	}
	logging.Init(cfg.LogFormat, appLogLevel, logOutput)

	model, err := config.Load(cfg.ConfigPath)
	if err != nil {
		logging.Debug("Bootstrap", "Failed to load %s: %v", cfg.ConfigPath, err)
		return nil, err
	}

	services, err := InitializeServices(cfg, model)
	if err != nil {
		logging.Debug("Bootstrap", "Failed to initialize services: %v", err)
		return nil, err
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Model returns the loaded configuration.
func (a *Application) Model() *config.Model {
	return a.services.Engine.Model()
}

// Engine returns the orchestration engine.
func (a *Application) Engine() *orchestrator.Engine {
	return a.services.Engine
}

// Logs writes the container output of one configured service to w.
func (a *Application) Logs(ctx context.Context, name string, opts containerizer.LogOptions, w io.Writer) error {
	svc, ok := a.Model().Service(name)
	if !ok {
		return &dependency.UnknownServiceError{Name: name}
	}
	return a.services.Controller.Logs(ctx, svc, opts, w)
}

// Execute performs one run.
func (a *Application) Execute(ctx context.Context, req api.RunRequest) (*orchestrator.RunResult, error) {
	return a.services.Engine.Run(ctx, req)
}
