package service

import (
	"fmt"
	"strings"
)

// NotFoundError reports an unknown city, airline or slot.
type NotFoundError struct {
	Entity string // "city", "airline" or "slot"
	Key    string // airport code, carrier code or slot ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// ValidationError carries the rule violations that rejected a slot.  Its
// message is the violation messages joined by newlines, which is what
// callers display; Violations keeps the structured codes.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return strings.Join(msgs, "\n")
}

// Codes returns the violation codes in evaluation order.
func (e *ValidationError) Codes() []ViolationCode {
	codes := make([]ViolationCode, len(e.Violations))
	for i, v := range e.Violations {
		codes[i] = v.Code
	}
	return codes
}
