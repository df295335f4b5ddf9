package config

import "time"

const (
	DefaultNetworkDriver = "bridge"

	DefaultHealthInterval     = 2 * time.Second
	DefaultHealthTimeout      = 60 * time.Second
	DefaultHealthAttemptTimeout = 5 * time.Second

	// DefaultConfigFile is looked up in the working directory when no
	// --config flag is given.
	DefaultConfigFile = "stevedore.yaml"
)
