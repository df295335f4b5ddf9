package app

import (
	"io"
	"time"

	"stevedore/internal/containerizer"
	"stevedore/pkg/logging"
)

// Config holds the application configuration
type Config struct {
	// ConfigPath is the desired-state document to load.
	ConfigPath string

	// Runtime settings
	RuntimeType    string
	ComposeCommand string
	CallTimeout    time.Duration

	// ContainerRuntime replaces the CLI runtime selected by RuntimeType.
	ContainerRuntime containerizer.Runtime

	// Engine settings
	MaxParallel   int
	Lenient       bool
	StartAttempts int

	// Logging settings. Debug overrides LogLevel.
	Debug     bool
	LogLevel  logging.LogLevel
	LogFormat logging.Format
	LogOutput io.Writer

	// Serve mode settings
	Listen          string
	MonitorInterval time.Duration
	StopOnExit      bool
	Version         string

	// EventsLog receives every service event as a JSON line when set.
	EventsLog string
}

// DefaultListen is the serve mode API address.
const DefaultListen = "127.0.0.1:7380"

// NewConfig creates a new application configuration
func NewConfig(configPath string, debug bool) *Config {
	return &Config{
		ConfigPath: configPath,
		Debug:      debug,
		LogLevel:   logging.LevelInfo,
		LogFormat:  logging.FormatText,
		Listen:     DefaultListen,
	}
}
