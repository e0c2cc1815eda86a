package fetch

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyBody is returned when the service answers 200 with no payload,
// which the tile endpoint does for areas without 3D coverage.
var ErrEmptyBody = errors.New("empty response body")

// StatusError reports a non-success HTTP status for a tile request.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Code)
}

// NetError wraps a transport-level failure (connection refused, timeout).
type NetError struct {
	Err error
}

func (e *NetError) Error() string {
	return "network: " + e.Err.Error()
}

func (e *NetError) Unwrap() error {
	return e.Err
}

// IOError wraps a local filesystem failure while persisting a tile.
type IOError struct {
	Err error
}

func (e *IOError) Error() string {
	return "io: " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed: transport failures
// and 5xx statuses are transient, everything else is not. Client errors (4xx)
// are never retried.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500
	}

	var netErr *NetError
	return errors.As(err, &netErr)
}
