package uploader

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure taxonomy. All of them are fatal for the
// affected file/table triple; callers can check with errors.Is.
var (
	ErrSourceNotFound    = errors.New("source file not found")
	ErrSourceUnreadable  = errors.New("source file unreadable")
	ErrConnectionFailure = errors.New("destination connection failure")
	ErrPrivilegeDenied   = errors.New("destination privilege denied")
	ErrSchemaConflict    = errors.New("schema conflict")
)

// classifyDBErr wraps a destination error with the matching sentinel so
// callers get errors.Is semantics without depending on driver error types.
// Matching is on error text because the four drivers expose privilege and
// connectivity failures through four different concrete types.
func classifyDBErr(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "denied"),
		strings.Contains(msg, "permission"),
		strings.Contains(msg, "privilege"),
		strings.Contains(msg, "not authorized"):
		return fmt.Errorf("%s: %w: %v", op, ErrPrivilegeDenied, err)
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "i/o timeout"),
		strings.Contains(msg, "broken pipe"):
		return fmt.Errorf("%s: %w: %v", op, ErrConnectionFailure, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
