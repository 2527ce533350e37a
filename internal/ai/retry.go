package ai

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// RetryPolicy decides whether and when a failed LLM call is attempted
// again. It is injected into the client so retry behavior can be tested
// without a transport.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Retryable   func(err error) bool
}

// DefaultRetryPolicy retries transient provider failures (503, other 5xx,
// network errors) up to 3 attempts with exponential backoff of 2s, 4s,
// 8s. Bad requests, auth failures and rate limits are terminal: retrying
// cannot help.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second // 2s, 4s, 8s
		},
		Retryable: IsRetryableError,
	}
}

// IsRetryableError classifies provider errors. HTTP 400, 401 and 429 are
// permanent; 503 and other 5xx are transient; anything without a status
// code is treated as a network error and retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 400, apiErr.HTTPStatusCode == 401, apiErr.HTTPStatusCode == 429:
			return false
		case apiErr.HTTPStatusCode >= 500:
			return true
		default:
			return false
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.HTTPStatusCode == 400, reqErr.HTTPStatusCode == 401, reqErr.HTTPStatusCode == 429:
			return false
		case reqErr.HTTPStatusCode >= 500:
			return true
		}
	}

	// No HTTP status available: connection refused, timeout, DNS failure.
	return true
}

// wait sleeps for the backoff of the given attempt, honoring context
// cancellation.
func (p RetryPolicy) wait(ctx context.Context, attempt int) error {
	var delay time.Duration
	if p.Backoff != nil {
		delay = p.Backoff(attempt)
	}
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
