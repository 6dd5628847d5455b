// Package llm defines the boundary between the matching engine and a
// chat-completion model provider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MaxTemperature is the highest sampling temperature the engine allows.
const MaxTemperature float32 = 0.1

// Options tune a single completion call.
type Options struct {
	// Model overrides the provider default when set.
	Model       string
	Temperature float32
	MaxTokens   int
	// JSON asks the provider for a JSON-only response when it supports it.
	JSON bool
}

// Normalized clamps the temperature into [0, MaxTemperature]. Zero is a
// valid setting and is kept.
func (o Options) Normalized() Options {
	switch {
	case o.Temperature < 0:
		o.Temperature = 0
	case o.Temperature > MaxTemperature:
		o.Temperature = MaxTemperature
	}
	return o
}

// Completion is the text returned by a model plus the token accounting
// reported by the provider.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Client is implemented by every model provider.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (*Completion, error)
	Provider() string
	DefaultModel() string
}

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("model returned empty response")

// RateLimitError marks provider failures caused by rate limits or quota.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("%s rate limited: %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// IsRateLimit reports whether err is a rate limit error.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// RetryAfter returns the provider suggested delay carried by err, if any.
func RetryAfter(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}

// AuthError marks rejected credentials. It is never retried.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s rejected credentials: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
