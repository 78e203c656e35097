package reconcile

import (
	"fmt"
	"strings"
)

// ValidationError reports a desired record that is incomplete for its
// intent. It is raised before any request is made.
type ValidationError struct {
	Kind    Kind
	Intent  Intent
	Missing []string
	Invalid []string
}

// NewValidation starts an empty ValidationError for a record.
func NewValidation(kind Kind, intent Intent) *ValidationError {
	return &ValidationError{Kind: kind, Intent: intent}
}

// Require records field as missing when value is empty.
func (e *ValidationError) Require(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.Missing = append(e.Missing, field)
	}
}

// Invalidf records an invalid field.
func (e *ValidationError) Invalidf(format string, args ...any) {
	e.Invalid = append(e.Invalid, fmt.Sprintf(format, args...))
}

// Err returns nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if len(e.Missing) == 0 && len(e.Invalid) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("all of the following fields are required on state=%s: %s",
			e.Intent, strings.Join(e.Missing, ", ")))
	}
	parts = append(parts, e.Invalid...)
	return strings.Join(parts, "; ")
}

// Failure is the caller-facing error envelope: a human-readable message
// plus the underlying cause.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Message, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Cause returns the text of the underlying error.
func (f *Failure) Cause() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}
