package llm

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var retryAfterPattern = regexp.MustCompile(`(?i)(?:retry|try again)[^0-9]{0,20}(\d+(?:\.\d+)?)\s*(ms|s|sec|secs|seconds?|m|mins?|minutes?)\b`)

// ParseRetryAfter extracts a "retry after N seconds" style hint from a
// provider message. It returns zero when no hint is present.
func ParseRetryAfter(message string) time.Duration {
	m := retryAfterPattern.FindStringSubmatch(message)
	if m == nil {
		return 0
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}

	unit := time.Second
	switch strings.ToLower(m[2]) {
	case "ms":
		unit = time.Millisecond
	case "m", "min", "mins", "minute", "minutes":
		unit = time.Minute
	}

	return time.Duration(value * float64(unit))
}
