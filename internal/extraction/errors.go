package extraction

import (
	"errors"
	"fmt"
)

// Kind classifies extraction failures so callers can pick a user action.
type Kind int

const (
	KindInsufficientInput Kind = iota + 1
	KindProviderUnavailable
	KindMalformedResponse
	KindSchemaMismatch
)

func (k Kind) String() string {
	switch k {
	case KindInsufficientInput:
		return "insufficient_input"
	case KindProviderUnavailable:
		return "provider_unavailable"
	case KindMalformedResponse:
		return "malformed_response"
	case KindSchemaMismatch:
		return "schema_mismatch"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. ErrMalformedResponse also matches schema mismatches.
var (
	ErrInsufficientInput   = errors.New("insufficient input")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrMalformedResponse   = errors.New("malformed model response")
	ErrSchemaMismatch      = errors.New("model response does not match schema")
)

// Error is returned by every extractor operation.
type Error struct {
	Kind Kind
	// Op names the failing operation, e.g. "extract job requirements".
	Op string
	// Retryable is set for rate limits and per-call timeouts.
	Retryable bool
	// Excerpt holds a bounded piece of the raw model output for logs.
	Excerpt string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrInsufficientInput:
		return e.Kind == KindInsufficientInput
	case ErrProviderUnavailable:
		return e.Kind == KindProviderUnavailable
	case ErrMalformedResponse:
		return e.Kind == KindMalformedResponse || e.Kind == KindSchemaMismatch
	case ErrSchemaMismatch:
		return e.Kind == KindSchemaMismatch
	default:
		return false
	}
}

// IsRetryable reports whether err is an extraction error worth retrying
// after a backoff.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// KindOf returns the kind of an extraction error, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func insufficient(op, format string, args ...any) *Error {
	return &Error{Kind: KindInsufficientInput, Op: op, Err: fmt.Errorf(format, args...)}
}
