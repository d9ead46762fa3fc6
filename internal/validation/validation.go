// Package validation collects field-level input errors so a form can show
// the first message while keeping the full list.
package validation

import "strings"

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	// Err is the sentinel behind the message; it lets callers use errors.Is.
	Err error `json:"-"`
}

// Errors is a non-empty list of field errors in the order the rules were
// declared.
type Errors struct {
	Fields []FieldError
}

func (e *Errors) Add(field, message string, cause error) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message, Err: cause})
}

// Err returns e when it holds at least one field error, nil otherwise.
func (e *Errors) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *Errors) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *Errors) Unwrap() []error {
	out := make([]error, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Err != nil {
			out = append(out, f.Err)
		}
	}
	return out
}

// First returns the message of the first failing rule.
func (e *Errors) First() string {
	if e == nil || len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Message
}

// Has reports whether field failed any rule.
func (e *Errors) Has(field string) bool {
	if e == nil {
		return false
	}
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
