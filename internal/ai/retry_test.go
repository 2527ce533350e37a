package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func apiError(status int) error {
	return &openai.APIError{HTTPStatusCode: status, Message: "test"}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad request is terminal", apiError(400), false},
		{"auth failure is terminal", apiError(401), false},
		{"rate limit is terminal", apiError(429), false},
		{"service unavailable retries", apiError(503), true},
		{"internal error retries", apiError(500), true},
		{"request error 401 is terminal", &openai.RequestError{HTTPStatusCode: 401}, false},
		{"request error 502 retries", &openai.RequestError{HTTPStatusCode: 502}, true},
		{"network error retries", errors.New("connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}

func TestDefaultRetryPolicy_Backoff(t *testing.T) {
	policy := DefaultRetryPolicy()

	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 2*time.Second, policy.Backoff(1))
	assert.Equal(t, 4*time.Second, policy.Backoff(2))
	assert.Equal(t, 8*time.Second, policy.Backoff(3))
}

func TestRetryPolicy_WaitHonorsContext(t *testing.T) {
	policy := RetryPolicy{
		Backoff: func(int) time.Duration { return time.Minute },
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := policy.wait(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
