package github

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultMaxRetries = 3

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	// RetryAfter is the server-requested delay, zero when absent.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return "GitHub API error: " + e.Method + " " + e.URL + ": " + http.StatusText(e.StatusCode) + ": " + e.Message
}

// IsAuthError reports whether err is a 401 or 403 response.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// retryable reports whether a failed request may be sent again. A 429 was
// not processed. A 5xx may have been, so only idempotent methods retry it.
func retryable(err error) (*APIError, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return nil, false
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		return apiErr, true
	}
	return apiErr, apiErr.StatusCode >= 500 && idempotent(apiErr.Method)
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func (c *Client) retryWithBackoff(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		// Rate limits, and server errors on idempotent requests
		apiErr, ok := retryable(lastErr)
		if !ok {
			return lastErr
		}

		if attempt < c.maxRetries {
			backoff := c.backoff(attempt)
			if apiErr.RetryAfter > backoff {
				backoff = apiErr.RetryAfter
			}
			c.logger.Warn("retrying GitHub request",
				zap.String("method", apiErr.Method),
				zap.String("url", apiErr.URL),
				zap.Int("status", apiErr.StatusCode),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
