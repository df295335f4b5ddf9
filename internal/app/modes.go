package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"stevedore/internal/api"
	"stevedore/internal/events"
	"stevedore/internal/reconciler"
	"stevedore/internal/server"
	"stevedore/pkg/logging"
)

const (
	shutdownTimeout = 10 * time.Second
	stopTimeout     = 5 * time.Minute

	// journalBuffer holds the events of several full runs so a slow events
	// file does not drop transitions.
	journalBuffer = 4096
)

// Serve runs the long-lived mode until ctx is done: an initial start run,
// the HTTP API, configuration watching and restart-policy checks.
//
// A fatal error in the initial run ends Serve before anything listens.
func (a *Application) Serve(ctx context.Context) error {
	engine := a.services.Engine

	journal, closeJournal, err := a.openJournal()
	if err != nil {
		return err
	}
	defer closeJournal()
	journalCtx, stopJournal := context.WithCancel(context.Background())
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		journal.Consume(journalCtx, engine.SubscribeWithBuffer(journalBuffer))
	}()
	defer func() {
		stopJournal()
		<-consumed
	}()

	logging.Info("Serve", "Starting services from %s", a.config.ConfigPath)
	res, err := engine.Run(ctx, api.RunRequest{Action: api.ActionStart})
	if err != nil {
		logging.Error("Serve", err, "Initial start failed")
		return err
	}
	if res.Success() {
		logging.Info("Serve", "Initial start: %s", res.Report.Summary())
	} else {
		logging.Warn("Serve", "Initial start: %s", res.Report.Summary())
	}

	srv := server.New(engine, a.config.Version).WithEvents(journal)
	listen := a.config.Listen
	if listen == "" {
		listen = DefaultListen
	}
	if _, err := srv.Start(listen); err != nil {
		logging.Error("Serve", err, "Failed to listen on %s", listen)
		return err
	}
	notifySystemd(daemon.SdNotifyReady)

	mgr := reconciler.NewManager(reconciler.ManagerConfig{
		ConfigPath:      a.config.ConfigPath,
		MonitorInterval: a.config.MonitorInterval,
	}, engine)
	mgrErr := make(chan error, 1)
	go func() { mgrErr <- mgr.Run(ctx) }()

	select {
	case <-ctx.Done():
		err = nil
	case err = <-mgrErr:
		if err != nil {
			logging.Error("Serve", err, "Reconciler stopped")
		}
	}

	logging.Info("Serve", "Shutting down")
	notifySystemd(daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logging.Error("Serve", shutdownErr, "HTTP shutdown failed")
	}

	if a.config.StopOnExit {
		stopCtx, cancelStop := context.WithTimeout(context.Background(), stopTimeout)
		defer cancelStop()
		res, stopErr := engine.Run(stopCtx, api.RunRequest{Action: api.ActionStop})
		if stopErr != nil {
			logging.Error("Serve", stopErr, "Stop on exit failed")
		} else {
			logging.Info("Serve", "Stop on exit: %s", res.Report.Summary())
		}
	}

	return err
}

func (a *Application) openJournal() (*events.Journal, func(), error) {
	if a.config.EventsLog == "" {
		return events.NewJournal(events.JournalOptions{}), func() {}, nil
	}
	f, err := os.OpenFile(a.config.EventsLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open events log: %w", err)
	}
	logging.Info("Serve", "Appending service events to %s", a.config.EventsLog)
	return events.NewJournal(events.JournalOptions{Output: f}), func() { _ = f.Close() }, nil
}

func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Warn("Serve", "systemd notification %q failed: %v", state, err)
		return
	}
	if sent {
		logging.Debug("Serve", "Notified systemd: %s", state)
	}
}
