package fetcher

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTooManyRedirects is returned when a redirect chain exceeds the configured cap.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrMissingLocation is returned for a redirect response without a Location header.
	ErrMissingLocation = errors.New("redirect without location header")
	// errStalled is the cancellation cause used by the inactivity timer.
	errStalled = errors.New("transfer stalled")
)

// HTTPStatusError is returned when the final response status is not a success.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Status     string
	// Err carries ErrMissingLocation or ErrTooManyRedirects for redirect problems.
	Err error
}

func (e *HTTPStatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.URL, e.Status, e.Err)
	}

	return fmt.Sprintf("%s: unexpected http status %s", e.URL, e.Status)
}

func (e *HTTPStatusError) Unwrap() error {
	return e.Err
}

// StalledTransferError is returned when no data arrived within the inactivity window.
type StalledTransferError struct {
	URL string
	// Received is the number of body bytes written before the stall.
	Received int64
	// Idle is the inactivity window that elapsed.
	Idle time.Duration
}

func (e *StalledTransferError) Error() string {
	return fmt.Sprintf("%s: no data received for %s after %d bytes", e.URL, e.Idle, e.Received)
}

// Is lets errors.Is(err, errStalled) match.
func (e *StalledTransferError) Is(target error) bool {
	return target == errStalled
}

// NetworkError wraps transport and local file failures of an attempt.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsStalled reports whether err is, or wraps, a StalledTransferError.
func IsStalled(err error) bool {
	var stalled *StalledTransferError

	return errors.As(err, &stalled)
}
