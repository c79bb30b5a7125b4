package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable means the model server failed the liveness probe.
	ErrServiceUnavailable = errors.New("model server is not running")

	// ErrSessionNotFound means the referenced session does not exist.
	ErrSessionNotFound = errors.New("session not found")
)

// UpstreamError is a non-success answer from the model server after a
// connection was established.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("model server error [%d]: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("model server error [%d]", e.StatusCode)
}
