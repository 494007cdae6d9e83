// README: Error taxonomy shared by the backend client and all trackers.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound is fatal to a tracking session.
	ErrOrderNotFound = errors.New("order not found")
	// ErrUnknown covers backend failures that fit no other category.
	ErrUnknown = errors.New("unknown backend error")
)

// NetworkError wraps a transport-level failure. Background loops
// swallow these; foreground actions surface them to the caller.
type NetworkError struct {
	Detail string
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network error: %s: %v", e.Detail, e.Err)
	}
	return "network error: " + e.Detail
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError marks input rejected before any network call.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return "validation: " + e.Detail }

func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
