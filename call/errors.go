package call

import (
	"errors"
	"fmt"
)

// Sentinel errors for call management.
var (
	// ErrCallNotFound indicates the call id is not in the registry.
	ErrCallNotFound = errors.New("call not found")

	// ErrInvalidState indicates the operation does not apply to the
	// call's current state.
	ErrInvalidState = errors.New("invalid call state")

	// ErrInvalidConstraints indicates a constraint set with no media
	// enabled.
	ErrInvalidConstraints = errors.New("media constraints enable no media")

	// ErrTooManyCalls indicates the concurrent call limit was reached.
	ErrTooManyCalls = errors.New("too many concurrent calls")

	// ErrDuplicateCall indicates a call with the same id is already
	// registered.
	ErrDuplicateCall = errors.New("duplicate call id")
)

// ConfigError wraps a failure while setting up or driving the
// negotiation machinery for a call.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
