// Package app wires stevedore together.
//
// NewApplication loads the desired-state configuration, picks the container
// runtime and builds the components the orchestration engine depends on:
//
//   - internal/controller for single-service start, stop and status
//   - internal/health for readiness checks
//   - internal/network for shared network provisioning
//   - internal/orchestrator for level-by-level runs
//
// One-shot CLI commands call Execute and format the result. Serve runs the
// long-lived mode: an initial start run, the HTTP API from internal/server,
// configuration watching and restart-policy checks from internal/reconciler,
// and systemd readiness notification.
package app
