// Package guard turns raw model output into a JSON object the rest of the
// engine can trust, or a ParseError carrying a short excerpt for logs.
package guard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/spigell/resume-matcher/internal/utils"
)

// ExcerptLength bounds the raw text kept in a ParseError.
const ExcerptLength = 200

// ErrUnparseable is wrapped by every ParseError.
var ErrUnparseable = errors.New("unparseable model output")

// ParseError is returned when no JSON object can be recovered from model output.
type ParseError struct {
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", ErrUnparseable, e.Err)
	}
	return ErrUnparseable.Error()
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnparseable}
	}
	return []error{ErrUnparseable, e.Err}
}

// ParseModelJSON strips code fences and surrounding prose from raw and
// decodes the first JSON object found.
func ParseModelJSON(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &ParseError{Err: errors.New("empty response")}
	}

	stripped := StripCodeFence(trimmed)

	// Valid JSON of the wrong shape is rejected as is; digging an object out
	// of it would trust a fragment of the answer.
	if gjson.Valid(stripped) {
		doc, err := decodeObject(stripped)
		if err != nil {
			return nil, newParseError(trimmed, err)
		}
		return doc, nil
	}

	for _, source := range []string{stripped, trimmed} {
		if obj, ok := ExtractFirstObject(source); ok {
			doc, err := decodeObject(obj)
			if err != nil {
				return nil, newParseError(trimmed, err)
			}
			return doc, nil
		}
	}

	return nil, newParseError(trimmed, errors.New("no json object found"))
}

func newParseError(raw string, err error) *ParseError {
	return &ParseError{
		Excerpt: utils.TruncateForLog(raw, ExcerptLength),
		Err:     err,
	}
}

func decodeObject(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if !gjson.Valid(s) {
		return nil, errors.New("invalid json")
	}
	if !gjson.Parse(s).IsObject() {
		return nil, errors.New("json is not an object")
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// StripCodeFence returns the body of the first Markdown code fence in raw,
// or raw unchanged when it has no fence. An unterminated fence keeps
// everything after the opening line.
func StripCodeFence(raw string) string {
	start := strings.Index(raw, "```")
	if start == -1 {
		return strings.TrimSpace(raw)
	}

	body := raw[start+3:]
	// Drop an info string such as "json" or "JSON".
	if nl := strings.IndexAny(body, "\n{["); nl != -1 && isInfoString(body[:nl]) {
		body = body[nl:]
	}

	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}

	return strings.TrimSpace(body)
}

func isInfoString(s string) bool {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// ExtractFirstObject returns the first balanced {...} block in s that is
// valid JSON. Braces inside JSON strings are ignored. Scanning stops at the
// first unbalanced brace, so a truncated object never yields one of its
// nested records.
func ExtractFirstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start != -1 {
		end, ok := matchBrace(s, start)
		if !ok {
			return "", false
		}
		if block := s[start : end+1]; gjson.Valid(block) {
			return block, true
		}
		next := strings.IndexByte(s[end+1:], '{')
		if next == -1 {
			break
		}
		start = end + 1 + next
	}
	return "", false
}

func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}

	return 0, false
}
