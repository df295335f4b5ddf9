// Package formatting renders run results, status reports and plans for the
// command line and the HTTP API, as a table, JSON or YAML.
package formatting

import (
	"fmt"
	"io"

	"stevedore/internal/dependency"
	"stevedore/internal/orchestrator"
	"stevedore/internal/status"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	}
	return "", fmt.Errorf("unknown output format %q (expected table, json or yaml)", s)
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool // Suppress decorative elements
	Color  bool // Enable colored output
}

// Formatter renders the values stevedore prints.
type Formatter interface {
	FormatReport(w io.Writer, r status.Report) error
	FormatRun(w io.Writer, res *orchestrator.RunResult) error
	FormatPlan(w io.Writer, p *dependency.Plan) error

	// Generic data formatting
	FormatData(w io.Writer, data interface{}) error

	// Configuration
	SetOptions(options Options)
	GetOptions() Options
}

// Factory creates formatters for different output formats
type Factory interface {
	CreateFormatter(options Options) Formatter
}

// NewFactory creates a new formatter factory
func NewFactory() Factory {
	return &factory{}
}

type factory struct{}

// CreateFormatter creates the appropriate formatter based on options
func (f *factory) CreateFormatter(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	default:
		return NewTableFormatter(options)
	}
}
