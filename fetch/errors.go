package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMinDelay is returned when the minimum delay is negative.
	ErrInvalidMinDelay = errors.New("minimum delay must not be negative")

	// ErrClientRequired is returned when a nil HTTP client is supplied.
	ErrClientRequired = errors.New("HTTP client is required")
)

// HTTPError reports a non-2xx response from an upstream.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
