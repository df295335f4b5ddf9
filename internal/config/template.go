package config

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// templateData is what string fields can reference, e.g. {{ .Vars.root }}.
type templateData struct {
	Vars map[string]string
}

// renderTemplate expands value as a text/template with the sprig function
// map. Values without "{{" are returned untouched. Missing keys are errors so
// that a typo in a var name does not silently produce an empty path.
func renderTemplate(name, value string, vars map[string]string) (string, error) {
	if !strings.Contains(value, "{{") {
		return value, nil
	}

	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(value)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	if vars == nil {
		vars = map[string]string{}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateData{Vars: vars}); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}
