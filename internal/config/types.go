package config

// Document is the raw desired-state document as decoded from disk. It is
// only an input to NewModel; nothing downstream reads it.
type Document struct {
	Vars     map[string]string `yaml:"vars,omitempty" json:"vars,omitempty" toml:"vars"`
	Services []ServiceDocument `yaml:"services" json:"services" toml:"services"`
	Networks []NetworkDocument `yaml:"networks,omitempty" json:"networks,omitempty" toml:"networks"`
}

// ServiceDocument is one entry of the services list.
type ServiceDocument struct {
	Name           string               `yaml:"name" json:"name" toml:"name"`
	DescriptorPath string               `yaml:"descriptor_path" json:"descriptor_path" toml:"descriptor_path"`
	DependsOn      []string             `yaml:"depends_on,omitempty" json:"depends_on,omitempty" toml:"depends_on"`
	Networks       []string             `yaml:"networks,omitempty" json:"networks,omitempty" toml:"networks"`
	HealthCheck    *HealthCheckDocument `yaml:"health_check,omitempty" json:"health_check,omitempty" toml:"health_check"`
	Restart        string               `yaml:"restart,omitempty" json:"restart,omitempty" toml:"restart"`
	Enabled        *bool                `yaml:"enabled,omitempty" json:"enabled,omitempty" toml:"enabled"`
}

// HealthCheckDocument describes a readiness check. Durations are Go duration
// strings ("500ms", "2s"); a bare number is read as seconds.
type HealthCheckDocument struct {
	Kind         string `yaml:"kind" json:"kind" toml:"kind"`
	Target       string `yaml:"target,omitempty" json:"target,omitempty" toml:"target"`
	Interval     string `yaml:"interval,omitempty" json:"interval,omitempty" toml:"interval"`
	Timeout      string `yaml:"timeout,omitempty" json:"timeout,omitempty" toml:"timeout"`
	AttemptTimeout string `yaml:"attempt_timeout,omitempty" json:"attempt_timeout,omitempty" toml:"attempt_timeout"`
	MaxAttempts  int    `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty" toml:"max_attempts"`
	Backoff      string `yaml:"backoff,omitempty" json:"backoff,omitempty" toml:"backoff"`
}

// NetworkDocument is one entry of the top-level networks list.
type NetworkDocument struct {
	Name     string `yaml:"name" json:"name" toml:"name"`
	Driver   string `yaml:"driver,omitempty" json:"driver,omitempty" toml:"driver"`
	External bool   `yaml:"external,omitempty" json:"external,omitempty" toml:"external"`
}
