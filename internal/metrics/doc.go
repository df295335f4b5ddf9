// Package metrics exposes Prometheus collectors for runs, service
// transitions, compose invocations, health checks, network provisioning and
// the serve-mode HTTP API. Collectors live in the default registry and are
// registered lazily on first use.
package metrics
