package config

import (
	"fmt"
	"strings"
)

// UnknownDependencyError reports a depends_on entry that names no declared
// service.
type UnknownDependencyError struct {
	Service    string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("service %q depends on unknown service %q", e.Service, e.Dependency)
}

// ConfigValidationError is returned when a document cannot be turned into a
// Model. It carries every problem found, not only the first.
type ConfigValidationError struct {
	Source   string
	Problems ValidationErrors
}

func (e *ConfigValidationError) Error() string {
	where := e.Source
	if where == "" {
		where = "configuration"
	}
	return fmt.Sprintf("invalid %s: %s", where, e.Problems.Error())
}

// Unwrap exposes the underlying causes (e.g. *UnknownDependencyError) to
// errors.Is and errors.As.
func (e *ConfigValidationError) Unwrap() []error {
	var errs []error
	for _, p := range e.Problems {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errs
}

// Detailed renders one problem per line, for CLI output.
func (e *ConfigValidationError) Detailed() string {
	var b strings.Builder
	if e.Source != "" {
		fmt.Fprintf(&b, "Configuration errors in %s:\n", e.Source)
	} else {
		b.WriteString("Configuration errors:\n")
	}
	for _, p := range e.Problems {
		fmt.Fprintf(&b, "  - %s\n", p.Error())
	}
	return b.String()
}

// LoadError wraps failures to read or decode a configuration file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load configuration from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
