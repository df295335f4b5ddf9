package formatting

import (
	"fmt"
	"io"

	"stevedore/internal/dependency"
	"stevedore/internal/orchestrator"
	"stevedore/internal/status"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{
		options: options,
	}
}

func (f *JSONFormatter) FormatReport(w io.Writer, r status.Report) error {
	return f.FormatData(w, r)
}

func (f *JSONFormatter) FormatRun(w io.Writer, res *orchestrator.RunResult) error {
	return f.FormatData(w, res)
}

func (f *JSONFormatter) FormatPlan(w io.Writer, p *dependency.Plan) error {
	return f.FormatData(w, NewPlanView(p))
}

// FormatData writes data as JSON, compact in quiet mode.
func (f *JSONFormatter) FormatData(w io.Writer, data interface{}) error {
	b, err := encodeJSON(data, f.options.Quiet)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// SetOptions updates the formatter options
func (f *JSONFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *JSONFormatter) GetOptions() Options {
	return f.options
}
