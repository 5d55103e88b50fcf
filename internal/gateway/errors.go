package gateway

import (
	"errors"
	"fmt"
)

// ErrAuthentication is returned when the auth endpoint rejects the login or
// its response lacks a required identity field.
var ErrAuthentication = errors.New("authentication failed")

// RemoteError is a failed call to the school API: transport error, non-2xx
// status or an undecodable body.
type RemoteError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func authError(reason string) error {
	return fmt.Errorf("%w: %s", ErrAuthentication, reason)
}
