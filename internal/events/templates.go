package events

import (
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

var defaultTemplates = map[EventReason]string{
	ReasonServiceProvisioning:   "Service {{.Name}} is starting",
	ReasonServiceAwaitingHealth: "Service {{.Name}} is up, waiting for its health check",
	ReasonServiceStarted:        "Service {{.Name}} is running",
	ReasonServiceDegraded:       "Service {{.Name}} is up but not healthy{{if .Error}}: {{.Error}}{{end}}",
	ReasonServiceFailed:         "Service {{.Name}} failed{{if .Error}}: {{.Error}}{{end}}",
	ReasonServiceStopping:       "Service {{.Name}} is stopping",
	ReasonServiceStopped:        "Service {{.Name}} stopped",
	ReasonServiceSkipped:        "Service {{.Name}} is disabled and was skipped",
	ReasonServiceInterrupted:    "Service {{.Name}} was interrupted while {{.From}}{{if .Error}}: {{.Error}}{{end}}",
}

type messageTemplate struct {
	source string
	tpl    *template.Template
}

// MessageTemplateEngine renders event messages from per-reason Go
// templates. The sprig functions are available, e.g. {{.Error | trunc 60}}.
type MessageTemplateEngine struct {
	mu        sync.RWMutex
	templates map[EventReason]messageTemplate
}

// NewMessageTemplateEngine returns an engine loaded with the default
// message for every reason.
func NewMessageTemplateEngine() *MessageTemplateEngine {
	e := &MessageTemplateEngine{templates: make(map[EventReason]messageTemplate, len(defaultTemplates))}
	for reason, src := range defaultTemplates {
		if err := e.SetTemplate(reason, src); err != nil {
			panic(err)
		}
	}
	return e
}

// Render produces the message for reason. Reasons without a template, and
// templates failing at execution, fall back to a plain transition line.
func (e *MessageTemplateEngine) Render(reason EventReason, data EventData) string {
	e.mu.RLock()
	mt, ok := e.templates[reason]
	e.mu.RUnlock()

	fallback := fmt.Sprintf("Service %s changed from %s to %s", data.Name, data.From, data.To)
	if !ok {
		return fallback
	}
	var sb strings.Builder
	if err := mt.tpl.Execute(&sb, data); err != nil {
		return fallback
	}
	return sb.String()
}

// SetTemplate replaces the template for reason. The previous template is
// kept when src does not parse.
func (e *MessageTemplateEngine) SetTemplate(reason EventReason, src string) error {
	tpl, err := template.New(string(reason)).Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(src)
	if err != nil {
		return fmt.Errorf("invalid template for %s: %w", reason, err)
	}
	e.mu.Lock()
	e.templates[reason] = messageTemplate{source: src, tpl: tpl}
	e.mu.Unlock()
	return nil
}

// GetTemplate returns the template source for reason.
func (e *MessageTemplateEngine) GetTemplate(reason EventReason) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	mt, ok := e.templates[reason]
	return mt.source, ok
}
