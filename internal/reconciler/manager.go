package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stevedore/internal/api"
	"stevedore/internal/config"
	"stevedore/internal/orchestrator"
	"stevedore/internal/status"
	"stevedore/pkg/logging"
)

const subsystem = "Reconciler"

// Engine is the part of the orchestrator the manager drives.
type Engine interface {
	Run(ctx context.Context, req api.RunRequest) (*orchestrator.RunResult, error)
	Observe(ctx context.Context, targets []string) (status.Report, error)
	StoppedByRequest() []string
	SetModel(m *config.Model) error
	Model() *config.Model
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// ConfigPath is the configuration file to watch.
	ConfigPath string

	// DebounceInterval collapses bursts of file events. Defaults to 500ms.
	DebounceInterval time.Duration

	// MonitorInterval is how often the runtime is checked for stopped
	// services. Zero disables the check.
	MonitorInterval time.Duration

	// Load reads the configuration. Defaults to config.Load.
	Load func(path string) (*config.Model, error)
}

// Manager reloads the configuration on change and restarts stopped
// services according to their restart policy.
type Manager struct {
	cfg     ManagerConfig
	engine  Engine
	watcher *FileWatcher

	mu   sync.RWMutex
	last *Activity
}

// NewManager creates a manager for engine.
func NewManager(cfg ManagerConfig, engine Engine) *Manager {
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = 500 * time.Millisecond
	}
	if cfg.Load == nil {
		cfg.Load = config.Load
	}
	return &Manager{
		cfg:     cfg,
		engine:  engine,
		watcher: NewFileWatcher(cfg.DebounceInterval),
	}
}

// Run watches until ctx is done. It returns an error only if watching
// cannot be set up.
func (m *Manager) Run(ctx context.Context) error {
	changes := make(chan ChangeEvent, 10)
	if m.cfg.ConfigPath != "" {
		if err := m.watcher.AddFile(m.cfg.ConfigPath); err != nil {
			return fmt.Errorf("failed to watch %s: %w", m.cfg.ConfigPath, err)
		}
		if err := m.watcher.Start(ctx, changes); err != nil {
			return fmt.Errorf("failed to watch %s: %w", m.cfg.ConfigPath, err)
		}
		defer m.watcher.Stop()
	}

	var tick <-chan time.Time
	if m.cfg.MonitorInterval > 0 {
		ticker := time.NewTicker(m.cfg.MonitorInterval)
		defer ticker.Stop()
		tick = ticker.C
		logging.Info(subsystem, "Checking services every %s", m.cfg.MonitorInterval)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-changes:
			if ev.Operation == OperationDelete {
				logging.Warn(subsystem, "Configuration %s was removed, keeping the current model", ev.Path)
				continue
			}
			if err := m.Reload(ctx); err != nil {
				logging.Error(subsystem, err, "Reload of %s failed, keeping the current model", ev.Path)
			}

		case <-tick:
			if _, err := m.CheckDrift(ctx); err != nil {
				logging.Error(subsystem, err, "Service check failed")
			}
		}
	}
}

// Reload loads the configuration, swaps it into the engine and starts
// every service.
func (m *Manager) Reload(ctx context.Context) error {
	model, err := m.cfg.Load(m.cfg.ConfigPath)
	if err == nil {
		err = m.engine.SetModel(model)
	}
	if err != nil {
		m.record(TriggerConfigChange, nil, err)
		return err
	}

	logging.Info(subsystem, "Configuration changed, starting services")
	res, err := m.engine.Run(ctx, api.RunRequest{Action: api.ActionStart})
	m.record(TriggerConfigChange, nil, err)
	if err != nil {
		return err
	}
	if !res.Success() {
		logging.Warn(subsystem, "Start after reload: %s", res.Report.Summary())
	}
	return nil
}

// CheckDrift asks the runtime which services are up and starts those that
// are stopped although their restart policy wants them running. Services
// a stop run took down stay down until a start or restart names them again.
// It returns the services it started.
func (m *Manager) CheckDrift(ctx context.Context) ([]string, error) {
	report, err := m.engine.Observe(ctx, nil)
	if err != nil {
		return nil, err
	}

	stoppedOnPurpose := make(map[string]bool)
	for _, name := range m.engine.StoppedByRequest() {
		stoppedOnPurpose[name] = true
	}

	model := m.engine.Model()
	var restart []string
	for _, row := range report.Services {
		if row.State != api.StateStopped || stoppedOnPurpose[row.Name] {
			continue
		}
		svc, ok := model.Service(row.Name)
		if !ok || !svc.Enabled || !svc.Restart.Restarts() {
			continue
		}
		restart = append(restart, row.Name)
	}
	if len(restart) == 0 {
		return nil, nil
	}

	logging.Info(subsystem, "Restarting stopped services %v", restart)
	res, err := m.engine.Run(ctx, api.RunRequest{Action: api.ActionStart, Services: restart})
	m.record(TriggerDrift, restart, err)
	if err != nil {
		return restart, err
	}
	if !res.Success() {
		logging.Warn(subsystem, "Restart of stopped services: %s", res.Report.Summary())
	}
	return restart, nil
}

// LastActivity returns what the manager did most recently.
func (m *Manager) LastActivity() (Activity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return Activity{}, false
	}
	return *m.last, true
}

func (m *Manager) record(trigger Trigger, services []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = &Activity{Trigger: trigger, Services: services, Timestamp: time.Now(), Err: err}
}
