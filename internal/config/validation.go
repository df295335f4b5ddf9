package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// maxNameLength bounds service and network names. Names become compose
// project names and runtime network names.
const maxNameLength = 100

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidationError is one problem found in a configuration document,
// located by its field path (e.g. "services[api].depends_on").
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string

	// Err is an optional typed cause, surfaced through ConfigValidationError.Unwrap.
	Err error
}

func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors collects every problem of a document so they can be
// reported together.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	switch len(ve) {
	case 0:
		return "no validation errors"
	case 1:
		return ve[0].Error()
	}
	messages := make([]string, len(ve))
	for i, err := range ve {
		messages[i] = err.Error()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors reports whether anything was collected.
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add records a problem with field. The optional value is the offending
// input.
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{Field: field, Value: val, Message: message})
}

// AddErr records a typed cause under field.
func (ve *ValidationErrors) AddErr(field string, err error) {
	*ve = append(*ve, ValidationError{Field: field, Message: err.Error(), Err: err})
}

// AddIfErr appends err as is when it is a ValidationError and wraps it
// otherwise. Nil is ignored.
func (ve *ValidationErrors) AddIfErr(err error) {
	if err == nil {
		return
	}
	if v, ok := err.(ValidationError); ok {
		*ve = append(*ve, v)
		return
	}
	ve.AddErr("", err)
}

// ValidateRequired rejects blank values.
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Value: value, Message: fmt.Sprintf("is required for %s", entityType)}
	}
	return nil
}

// ValidateOneOf rejects values outside allowed.
func ValidateOneOf(field, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateEntityName checks a service or network name: it must start
// with a letter or digit and contain only letters, digits, '.', '_' and '-'.
func ValidateEntityName(field, name, entityType string) error {
	if err := ValidateRequired(field, name, entityType); err != nil {
		return err
	}
	if len(name) > maxNameLength {
		return ValidationError{Field: field, Value: name, Message: fmt.Sprintf("must not exceed %d characters", maxNameLength)}
	}
	if !namePattern.MatchString(name) {
		return ValidationError{
			Field:   field,
			Value:   name,
			Message: "must start with a letter or digit and contain only letters, digits, '.', '_' and '-'",
		}
	}
	return nil
}
