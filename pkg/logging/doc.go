// Package logging provides the subsystem-tagged structured logger used across
// stevedore.
//
// It wraps log/slog with a small printf-style API so that call sites read the
// same everywhere:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Orchestrator", "Starting level %d (%d services)", i, len(level))
//	logging.Debug("Controller", "Service %s already running", name)
//	logging.Warn("HealthChecker", "Health check of %s failed: %v", name, err)
//	logging.Error("NetworkProvisioner", err, "Failed to create network %s", net)
//
// Every entry carries a "subsystem" attribute and, for Error, an "error"
// attribute. Output is either slog text (default) or JSON, selected with
// --log-format; --log-level sets the threshold. Entries below the configured
// level are dropped before formatting.
package logging
