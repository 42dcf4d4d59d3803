package jira

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError is a non-2xx response from a Jira instance. 4xx codes are
// permanent (the request is wrong), 5xx are the instance's problem; neither
// is retried beyond what the transport layer already did.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("jira: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("jira: unexpected status %d: %s", e.StatusCode, e.Body)
}

// RateLimitError reports a 429 the retry budget could not absorb.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("jira: rate limited, retry after %s", e.RetryAfter)
}

// IsNotFound reports whether err is a 404 from the remote instance.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}
