package hosting

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
)

const (
	// retryAttempts is the total number of tries for a transient API failure
	retryAttempts = 3
	// retryBaseDelay is the delay before the first retry; it doubles each attempt
	retryBaseDelay = 500 * time.Millisecond
)

// isTransient classifies an API error as worth retrying. Server errors,
// rate limiting and network failures are transient; authentication and
// not-found errors are not.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		code := respErr.Response.StatusCode
		return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// withRetry runs fn, retrying transient failures with doubling delays.
// Permanent failures and context cancellation return immediately.
func withRetry(ctx context.Context, fn func() error) error {
	delay := retryBaseDelay

	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) {
			return err
		}
		if attempt == retryAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
