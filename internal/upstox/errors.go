package upstox

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Fault classes reported by the client. Every failed call returns an
// *APIError whose Unwrap yields one of these.
var (
	ErrAuthExpired = errors.New("authentication failed, token may be expired")
	ErrRateLimited = errors.New("rate limited")
	ErrBadRequest  = errors.New("bad request")
	ErrTimeout     = errors.New("request timed out")
	ErrNoToken     = errors.New("no valid API token found")
	ErrNoData      = errors.New("no data returned")
	ErrUpstream    = errors.New("upstream error")
)

// APIError carries the HTTP status and upstream message of a failed call
type APIError struct {
	StatusCode int
	Message    string
	Kind       error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error { return e.Kind }

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
