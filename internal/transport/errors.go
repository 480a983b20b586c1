package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// NetworkErrorMessage is the generic toast for transport failures.
const NetworkErrorMessage = "Nettverksfeil. Sjekk internettforbindelsen og prøv igjen."

// NetworkError is returned once every retry attempt failed at the
// transport level.
type NetworkError struct {
	Method   string
	URL      string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempt(s): %v", e.Method, e.URL, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError is a completed response carrying an error status code.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	// Routed is set when the error routing middleware already told the
	// user about this response.
	Routed bool
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
}

// IsNetworkError reports whether err is a transport-level failure as
// opposed to a completed HTTP response or a cancellation.
func IsNetworkError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

// WasRouted reports whether err is a StatusError the user already saw.
func WasRouted(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Routed
}
