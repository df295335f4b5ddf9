package formatting

import (
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"stevedore/internal/dependency"
	"stevedore/internal/orchestrator"
	"stevedore/internal/status"
)

// YAMLFormatter provides YAML output formatting. Field names follow the
// json tags, so YAML and JSON output share one schema.
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{
		options: options,
	}
}

func (f *YAMLFormatter) FormatReport(w io.Writer, r status.Report) error {
	return f.FormatData(w, r)
}

func (f *YAMLFormatter) FormatRun(w io.Writer, res *orchestrator.RunResult) error {
	return f.FormatData(w, res)
}

func (f *YAMLFormatter) FormatPlan(w io.Writer, p *dependency.Plan) error {
	return f.FormatData(w, NewPlanView(p))
}

// FormatData writes data as YAML.
func (f *YAMLFormatter) FormatData(w io.Writer, data interface{}) error {
	b, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to format YAML: %w", err)
	}
	_, err = w.Write(b)
	return err
}

// SetOptions updates the formatter options
func (f *YAMLFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *YAMLFormatter) GetOptions() Options {
	return f.options
}
