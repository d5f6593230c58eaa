package models

import (
	"fmt"
	"math"
)

// ValidationError reports a configuration or construction value that is out
// of its allowed range. Values are never clamped silently.
type ValidationError struct {
	Field  string `json:"field"`
	Value  any    `json:"value"`
	Reason string `json:"reason"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// ParseError reports a malformed categorical field from an ingestion source.
// Line is 1-based and zero when the source has no line notion.
type ParseError struct {
	Field string `json:"field"`
	Value string `json:"value"`
	Line  int    `json:"line,omitempty"`
	Err   error  `json:"-"`
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %s %q", e.Field, e.Value)
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *ParseError) Unwrap() error { return e.Err }

// CheckProbability returns a ValidationError when p lies outside [0, 1].
func CheckProbability(field string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return &ValidationError{Field: field, Value: p, Reason: "must be within [0, 1]"}
	}
	return nil
}
