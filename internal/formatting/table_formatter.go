package formatting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"stevedore/internal/api"
	"stevedore/internal/dependency"
	"stevedore/internal/orchestrator"
	"stevedore/internal/status"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

// FormatReport renders one row per service followed by a summary line.
func (f *TableFormatter) FormatReport(w io.Writer, r status.Report) error {
	if len(r.Services) == 0 {
		fmt.Fprint(w, f.formatEmptyMessage("📋", "No services found"))
		return nil
	}

	t := f.createTable(w)
	t.AppendHeader(f.header("SERVICE", "STATE", "LEVEL", "STARTS", "CHECKS", "SINCE", "ERROR"))
	for _, s := range r.Services {
		t.AppendRow(table.Row{
			s.Name,
			f.state(s.State),
			s.Level,
			s.StartAttempts,
			s.HealthAttempts,
			formatTime(s.LastTransition),
			truncate(s.Error, 80),
		})
	}
	t.Render()

	if !f.options.Quiet {
		fmt.Fprintln(w, f.summary(r))
	}
	return nil
}

// FormatRun renders the stop phase of a restart, if any, then the report.
func (f *TableFormatter) FormatRun(w io.Writer, res *orchestrator.RunResult) error {
	if res.StopReport != nil {
		if !f.options.Quiet {
			fmt.Fprintln(w, f.paint(text.FgHiBlue, "Stop phase"))
		}
		if err := f.FormatReport(w, *res.StopReport); err != nil {
			return err
		}
		if !f.options.Quiet {
			fmt.Fprintln(w, f.paint(text.FgHiBlue, "Start phase"))
		}
	}
	if err := f.FormatReport(w, res.Report); err != nil {
		return err
	}
	if !f.options.Quiet {
		fmt.Fprintf(w, "%s %s in %s\n",
			f.paint(text.FgHiBlue, "Run"),
			res.ID,
			res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	}
	return nil
}

// FormatPlan renders one row per level.
func (f *TableFormatter) FormatPlan(w io.Writer, p *dependency.Plan) error {
	if len(p.Levels) == 0 {
		fmt.Fprint(w, f.formatEmptyMessage("📋", "Nothing to do"))
		return nil
	}

	t := f.createTable(w)
	t.AppendHeader(f.header("LEVEL", "SERVICES"))
	for i, names := range p.Levels {
		t.AppendRow(table.Row{i, strings.Join(names, ", ")})
	}
	t.Render()
	return nil
}

// FormatData formats generic data using table logic
func (f *TableFormatter) FormatData(w io.Writer, data interface{}) error {
	switch d := data.(type) {
	case map[string]interface{}:
		return f.formatObjectData(w, d)
	case []interface{}:
		return f.formatArrayData(w, d)
	case string:
		fmt.Fprintln(w, d)
	default:
		fmt.Fprintf(w, "%v\n", d)
	}
	return nil
}

// SetOptions updates the formatter options
func (f *TableFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *TableFormatter) GetOptions() Options {
	return f.options
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if f.options.Quiet {
		t.SetStyle(table.StyleLight)
		t.Style().Options.DrawBorder = false
	} else {
		t.SetStyle(table.StyleRounded)
	}
	return t
}

func (f *TableFormatter) header(cols ...string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = f.paint(text.FgHiCyan, c)
	}
	return row
}

func (f *TableFormatter) paint(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

// state colours a service state by severity.
func (f *TableFormatter) state(s api.ServiceState) string {
	switch s {
	case api.StateRunning, api.StateStopped:
		return f.paint(text.FgGreen, string(s))
	case api.StateDegraded, api.StateIndeterminate, api.StateUnknown:
		return f.paint(text.FgYellow, string(s))
	case api.StateFailed:
		return f.paint(text.FgRed, string(s))
	case api.StateSkipped, api.StatePending:
		return f.paint(text.FgHiBlack, string(s))
	}
	return string(s)
}

func (f *TableFormatter) summary(r status.Report) string {
	if r.Success {
		return f.paint(text.FgGreen, "✓ "+r.Summary())
	}
	return f.paint(text.FgRed, "✗ "+r.Summary())
}

// formatEmptyMessage formats empty result messages
func (f *TableFormatter) formatEmptyMessage(icon, message string) string {
	return fmt.Sprintf("%s %s\n", f.paint(text.FgYellow, icon), f.paint(text.FgYellow, message))
}

// formatObjectData formats object data as key-value pairs
func (f *TableFormatter) formatObjectData(w io.Writer, data map[string]interface{}) error {
	t := f.createTable(w)
	t.AppendHeader(f.header("KEY", "VALUE"))
	t.SortBy([]table.SortBy{{Number: 1, Mode: table.Asc}})

	for key, value := range data {
		t.AppendRow(table.Row{key, truncate(fmt.Sprintf("%v", value), 100)})
	}

	t.Render()
	return nil
}

// formatArrayData formats array data as a simple list
func (f *TableFormatter) formatArrayData(w io.Writer, data []interface{}) error {
	if len(data) == 0 {
		fmt.Fprint(w, f.formatEmptyMessage("📋", "No items found"))
		return nil
	}

	for i, item := range data {
		fmt.Fprintf(w, "  %d. %v\n", i+1, item)
	}

	fmt.Fprintf(w, "\n%s %d %s\n", f.paint(text.FgHiBlue, "Total:"), len(data), f.paint(text.FgHiBlue, "items"))
	return nil
}
