package guard

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Records reads the per-variable records stored under key. Models return
// them either as an array of objects or as an object keyed by variable
// name; in the latter form the key is copied into nameKey. Records that are
// not objects are dropped.
func Records(doc map[string]any, key, nameKey string) []map[string]any {
	switch val := doc[key].(type) {
	case []any:
		out := make([]map[string]any, 0, len(val))
		for _, item := range val {
			if rec, ok := item.(map[string]any); ok {
				out = append(out, rec)
			}
		}
		return out
	case map[string]any:
		names := make([]string, 0, len(val))
		for name := range val {
			names = append(names, name)
		}
		sort.Strings(names)

		out := make([]map[string]any, 0, len(val))
		for _, name := range names {
			rec, ok := val[name].(map[string]any)
			if !ok {
				continue
			}
			copied := make(map[string]any, len(rec)+1)
			for k, v := range rec {
				copied[k] = v
			}
			if _, has := copied[nameKey]; !has {
				copied[nameKey] = name
			}
			out = append(out, copied)
		}
		return out
	default:
		return nil
	}
}

// Object returns the nested object under key, or an empty map.
func Object(doc map[string]any, key string) map[string]any {
	if obj, ok := doc[key].(map[string]any); ok {
		return obj
	}
	return map[string]any{}
}

// Lookup reads a dotted gjson path from a decoded document.
func Lookup(doc map[string]any, path string) (gjson.Result, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(raw, path), nil
}

// EnvelopeError lists the structural problems found in a model response.
type EnvelopeError struct {
	Problems []string
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("response envelope invalid: %s", strings.Join(e.Problems, "; "))
}

// ValidateEnvelope checks doc against a JSON schema. Envelope schemas only
// constrain types of the top-level containers; absent per-variable keys are
// handled by callers as "not found".
func ValidateEnvelope(doc map[string]any, schemaJSON string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate envelope: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return &EnvelopeError{Problems: problems}
}
