package matching

import (
	"errors"

	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/schema"
)

// Reason groups failures by what the user should do about them.
type Reason string

const (
	ReasonInput       Reason = "input_unreadable"
	ReasonUnavailable Reason = "service_unavailable"
	ReasonUnreadable  Reason = "response_not_understood"
)

var userMessages = map[Reason]string{
	ReasonInput:       "Could not read the input. Check that the job description and resume contain enough text.",
	ReasonUnavailable: "The scoring service is unavailable. Wait a moment and try again.",
	ReasonUnreadable:  "The analysis response could not be understood. Please try again.",
}

// Classify maps err to a Reason. Errors of unknown origin count as the
// service being unavailable.
func Classify(err error) Reason {
	switch extraction.KindOf(err) {
	case extraction.KindInsufficientInput:
		return ReasonInput
	case extraction.KindMalformedResponse, extraction.KindSchemaMismatch:
		return ReasonUnreadable
	case extraction.KindProviderUnavailable:
		return ReasonUnavailable
	}

	var invariant *schema.InvariantError
	if errors.As(err, &invariant) {
		return ReasonUnreadable
	}
	return ReasonUnavailable
}

// UserMessage returns the caller-facing text for err. Raw model output is
// never part of it.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return userMessages[Classify(err)]
}
