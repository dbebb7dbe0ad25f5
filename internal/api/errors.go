package api

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport means the request never produced a usable HTTP response:
	// connection failure, timeout, cancellation, or an open circuit.
	ErrTransport = errors.New("metro api request failed")
	// ErrMalformed means the backend answered with a body that does not decode.
	ErrMalformed = errors.New("metro api returned a malformed response")
)

// BackendError is a well-formed response that reports failure, either via a
// non-2xx status or success:false in the body.
type BackendError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("metro api %s: status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("metro api %s: %s", e.Path, e.Message)
}

// Temporary reports whether retrying later may succeed.
func (e *BackendError) Temporary() bool {
	return e.StatusCode >= 500
}

// IsBackendError unwraps err into a *BackendError.
func IsBackendError(err error) (*BackendError, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
