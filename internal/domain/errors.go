package domain

import (
	"errors"
	"fmt"
)

// ParseError means a template post could not be turned into a Template.
type ParseError struct {
	TemplateID string
	Reason     string
}

func (e *ParseError) Error() string {
	if e.TemplateID == "" {
		return "template: " + e.Reason
	}
	return fmt.Sprintf("template %s: %s", e.TemplateID, e.Reason)
}

// PlatformError wraps a failed platform call. Status is the HTTP status when
// one was received, otherwise 0.
type PlatformError struct {
	Op     string
	Status int
	Err    error
}

func (e *PlatformError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// IsParseError reports whether err carries a ParseError anywhere in its chain.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
