package command

import (
	"errors"
	"fmt"

	"github.com/berckan/tldscout/internal/models"
)

var (
	// ErrCancelled is returned when a command was cancelled before its
	// result could be accepted.
	ErrCancelled = errors.New("command cancelled")
	// ErrNotPending is returned when a command is started or reconfigured
	// after it has left the pending state.
	ErrNotPending = errors.New("command is not pending")
)

// ValidationError is returned when the bound domain is malformed
type ValidationError struct {
	Domain string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %q: %v", e.Domain, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// CheckError is returned by a single attempt whose result is an error
type CheckError struct {
	Result models.DomainResult
}

func (e *CheckError) Error() string {
	return e.Result.Error
}
