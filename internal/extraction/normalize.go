package extraction

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/resume-matcher/internal/guard"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/utils"
)

// Requirement texts that mean the posting does not ask for the variable.
var noRequirementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bno specific .* (required|mentioned)`),
	regexp.MustCompile(`(?i)\bno .*requirements`),
	regexp.MustCompile(`(?i)\bnot required`),
	regexp.MustCompile(`(?i)\bnot mentioned`),
	regexp.MustCompile(`(?i)\bno requirements found`),
}

// IsNoRequirement reports whether text states that nothing is required.
func IsNoRequirement(text string) bool {
	for _, p := range noRequirementPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func isNotFound(evidence string) bool {
	e := strings.ToLower(strings.Trim(strings.TrimSpace(evidence), `."'`))
	return e == "" || e == NotFound || e == "n/a" || e == "none" || strings.HasPrefix(e, "not mentioned") || strings.HasPrefix(e, "not found")
}

// VerifyEvidence reports whether quote occurs in source, ignoring case,
// whitespace runs and surrounding quotes or ellipses.
func VerifyEvidence(source, quote string) bool {
	if isNotFound(quote) {
		return false
	}
	q := strings.TrimSpace(quote)
	q = strings.Trim(q, `"'`+"“”")
	q = strings.TrimSuffix(strings.TrimPrefix(q, "..."), "...")
	q = strings.ToLower(utils.CollapseWhitespace(q))
	if q == "" {
		return false
	}
	return strings.Contains(strings.ToLower(utils.CollapseWhitespace(source)), q)
}

func containsAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// coerceHook lets loosely typed model values land in typed fields.
func coerceHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Bool:
		return guard.Bool(data), nil
	case reflect.Float32, reflect.Float64:
		f := guard.Float(data)
		if math.IsNaN(f) {
			return 0.0, nil
		}
		return f, nil
	case reflect.String:
		if s, ok := data.(string); ok {
			return strings.TrimSpace(s), nil
		}
		return guard.String(data), nil
	default:
		return data, nil
	}
}

func decodeInto(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       coerceHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// alias copies the first present alternative key into canonical when the
// record lacks canonical.
func alias(rec map[string]any, canonical string, alternatives ...string) {
	if _, ok := rec[canonical]; ok {
		return
	}
	for _, alt := range alternatives {
		if v, ok := rec[alt]; ok {
			rec[canonical] = v
			return
		}
	}
}

// reconciled maps each schema variable to the model record for it.
type reconciled struct {
	records map[string]map[string]any
	// unknown lists record names the schema does not declare.
	unknown []string
}

func (r reconciled) mismatch(s *schema.Schema) error {
	missing := s.Len() - len(r.records)
	if missing == 0 && len(r.unknown) == 0 {
		return nil
	}
	return fmt.Errorf("expected %d variables, got %d known (%d missing, unknown: %s)",
		s.Len(), len(r.records), missing, strings.Join(r.unknown, ", "))
}

// reconcile matches records to schema variables by name. Duplicate records
// for one variable keep the first.
func reconcile(s *schema.Schema, recs []map[string]any, nameKey string) reconciled {
	out := reconciled{records: make(map[string]map[string]any, s.Len())}
	for _, rec := range recs {
		name := guard.String(rec[nameKey])
		v, ok := s.Variable(name)
		if !ok {
			if name != "" {
				out.unknown = append(out.unknown, name)
			}
			continue
		}
		if _, dup := out.records[v.Name]; dup {
			continue
		}
		out.records[v.Name] = rec
	}
	return out
}

// checkRecords applies the one-record-per-variable rule. Before the final
// attempt any mismatch is rejected so the caller can re-prompt; on the
// final attempt only an answer naming no variable at all is rejected.
func checkRecords(s *schema.Schema, rec reconciled, final bool) error {
	err := rec.mismatch(s)
	if err == nil {
		return nil
	}
	if !final || len(rec.records) == 0 {
		return &Error{Kind: KindSchemaMismatch, Err: err}
	}
	return nil
}
