package config

import (
	"slices"
	"time"
)

// HealthCheckKind selects the pinger used for a service.
type HealthCheckKind string

const (
	HealthCheckHTTP      HealthCheckKind = "http"
	HealthCheckTCP       HealthCheckKind = "tcp"
	HealthCheckCommand   HealthCheckKind = "command"
	HealthCheckContainer HealthCheckKind = "container"
)

var healthCheckKinds = []string{
	string(HealthCheckHTTP),
	string(HealthCheckTCP),
	string(HealthCheckCommand),
	string(HealthCheckContainer),
}

// BackoffKind selects how the interval between attempts evolves.
type BackoffKind string

const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffExponential BackoffKind = "exponential"
)

// RestartPolicy mirrors the compose restart policies. The engine itself only
// reports it; serve mode uses it to decide whether a service that dropped
// out should be started again.
type RestartPolicy string

const (
	RestartNo            RestartPolicy = "no"
	RestartOnFailure     RestartPolicy = "on-failure"
	RestartAlways        RestartPolicy = "always"
	RestartUnlessStopped RestartPolicy = "unless-stopped"
)

var restartPolicies = []string{
	string(RestartNo),
	string(RestartOnFailure),
	string(RestartAlways),
	string(RestartUnlessStopped),
}

// Restarts reports whether serve mode should bring the service back up.
func (p RestartPolicy) Restarts() bool {
	return p == RestartAlways || p == RestartOnFailure || p == RestartUnlessStopped
}

// HealthCheckSpec is a validated health check definition.
type HealthCheckSpec struct {
	Kind         HealthCheckKind
	Target       string
	Interval     time.Duration
	Timeout      time.Duration
	AttemptTimeout time.Duration
	MaxAttempts  int
	Backoff      BackoffKind

	// Service and DescriptorPath identify the owning service for container
	// attempts. WorkDir is the descriptor's directory; command checks run there.
	Service        string
	DescriptorPath string
	WorkDir        string
}

// ServiceDefinition is a validated service entry.
type ServiceDefinition struct {
	Name           string
	DescriptorPath string
	DependsOn      []string
	Networks       []string
	HealthCheck    *HealthCheckSpec
	Restart        RestartPolicy
	Enabled        bool
}

// Clone returns a deep copy.
func (s ServiceDefinition) Clone() ServiceDefinition {
	out := s
	out.DependsOn = slices.Clone(s.DependsOn)
	out.Networks = slices.Clone(s.Networks)
	if s.HealthCheck != nil {
		hc := *s.HealthCheck
		out.HealthCheck = &hc
	}
	return out
}

// NetworkDefinition is a validated network entry.
type NetworkDefinition struct {
	Name     string
	Driver   string
	External bool
}

// Model is the frozen desired state. Services keep their declaration order,
// which the resolver uses as its tie-break.
type Model struct {
	source   string
	services []ServiceDefinition
	byName   map[string]int
	networks []NetworkDefinition
	netIndex map[string]int
}

// Source is the path the model was loaded from, or "" for in-memory documents.
func (m *Model) Source() string {
	return m.source
}

// Services returns copies of all services in declaration order.
func (m *Model) Services() []ServiceDefinition {
	out := make([]ServiceDefinition, len(m.services))
	for i, svc := range m.services {
		out[i] = svc.Clone()
	}
	return out
}

// ServiceNames returns service names in declaration order.
func (m *Model) ServiceNames() []string {
	out := make([]string, len(m.services))
	for i, svc := range m.services {
		out[i] = svc.Name
	}
	return out
}

// Service looks up a service by name.
func (m *Model) Service(name string) (ServiceDefinition, bool) {
	idx, ok := m.byName[name]
	if !ok {
		return ServiceDefinition{}, false
	}
	return m.services[idx].Clone(), true
}

// Networks returns all declared networks in declaration order.
func (m *Model) Networks() []NetworkDefinition {
	return slices.Clone(m.networks)
}

// Network looks up a network by name.
func (m *Model) Network(name string) (NetworkDefinition, bool) {
	idx, ok := m.netIndex[name]
	if !ok {
		return NetworkDefinition{}, false
	}
	return m.networks[idx], true
}

// NetworksFor returns the declared networks used by the named services, in
// network declaration order and without duplicates.
func (m *Model) NetworksFor(names []string) []NetworkDefinition {
	used := make(map[string]bool)
	for _, name := range names {
		idx, ok := m.byName[name]
		if !ok {
			continue
		}
		for _, n := range m.services[idx].Networks {
			used[n] = true
		}
	}

	var out []NetworkDefinition
	for _, n := range m.networks {
		if used[n.Name] {
			out = append(out, n)
		}
	}
	return out
}
