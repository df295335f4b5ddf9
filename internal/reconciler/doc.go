// Package reconciler keeps a serve-mode stevedore in line with its
// configuration file and with the runtime.
//
// A FileWatcher reports debounced changes to the configuration file. The
// Manager reacts to them by reloading the model and re-running start, and,
// when a monitor interval is set, periodically asks the runtime which
// services are up and starts again those whose restart policy asks for it.
//
// A configuration that fails to load or resolve is logged and ignored; the
// previous model stays in effect.
package reconciler
