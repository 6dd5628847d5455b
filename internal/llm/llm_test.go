package llm

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptionsNormalized(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float32
		want float32
	}{
		{in: 0, want: 0},
		{in: 0.05, want: 0.05},
		{in: MaxTemperature, want: MaxTemperature},
		{in: 0.7, want: MaxTemperature},
		{in: -1, want: 0},
	}

	for _, tt := range tests {
		got := Options{Temperature: tt.in}.Normalized()
		assert.Equal(t, tt.want, got.Temperature, "input %v", tt.in)
	}
}

func TestIsRateLimitThroughWrapping(t *testing.T) {
	t.Parallel()

	base := &RateLimitError{Provider: "openai", RetryAfter: 3 * time.Second, Err: errors.New("429")}
	wrapped := fmt.Errorf("extract job: %w", base)

	assert.True(t, IsRateLimit(wrapped))
	assert.Equal(t, 3*time.Second, RetryAfter(wrapped))
	assert.False(t, IsRateLimit(errors.New("boom")))
	assert.Zero(t, RetryAfter(errors.New("boom")))
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		want    time.Duration
	}{
		{message: "quota exhausted, retry after 60 seconds", want: 60 * time.Second},
		{message: "Please try again in 1.5s.", want: 1500 * time.Millisecond},
		{message: "Rate limit reached. Please try again in 250ms", want: 250 * time.Millisecond},
		{message: "retry in 2 minutes", want: 2 * time.Minute},
		{message: "internal error", want: 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRetryAfter(tt.message), tt.message)
	}
}
