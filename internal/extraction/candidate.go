package extraction

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/guard"
	"github.com/spigell/resume-matcher/internal/llm"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/usage"
)

const candidateMaxTokens = 6000

const candidateEnvelope = `{
	"type": "object",
	"properties": {
		"candidate_analysis": {"type": "object"},
		"variables": {"type": ["array", "object"]}
	},
	"required": ["variables"]
}`

type rawQualification struct {
	Evidence        string  `mapstructure:"evidence"`
	Proficiency     string  `mapstructure:"proficiency_level"`
	YearsExperience float64 `mapstructure:"years_experience"`
	Present         bool    `mapstructure:"present"`
}

// CandidateExtractor turns a resume into one Qualification per schema variable.
type CandidateExtractor struct {
	caller
	schema *schema.Schema
}

func NewCandidateExtractor(client llm.Client, s *schema.Schema, cfg Config, recorder usage.Recorder, logger *zap.Logger) *CandidateExtractor {
	return &CandidateExtractor{caller: newCaller(client, cfg, recorder, logger), schema: s}
}

// Extract prepares text and asks the model which schema variables the
// resume demonstrates. structured is optional parsed resume data shown to
// the model alongside the text.
func (x *CandidateExtractor) Extract(ctx context.Context, text string, structured map[string]any) (*CandidateSet, error) {
	prepared, err := PrepareResume(text, x.cfg.Limits)
	if err != nil {
		return nil, err
	}

	source := prepared
	if len(structured) > 0 {
		data, err := json.MarshalIndent(structured, "", "  ")
		if err != nil {
			return nil, insufficient(opCandidate, "encode structured resume: %v", err)
		}
		source = prepared + "\n\nSTRUCTURED RESUME DATA:\n" + string(data)
	}

	var set *CandidateSet
	err = x.run(ctx, opCandidate,
		systemPrompt(roleCandidate),
		candidatePrompt(x.schema, source),
		candidateMaxTokens,
		strictSuffix(x.schema.Names()),
		func(doc map[string]any, final bool) error {
			var derr error
			set, derr = x.decode(doc, source, final)
			return derr
		},
	)
	if err != nil {
		return nil, err
	}

	present := 0
	for _, q := range set.Qualifications {
		if q.Present {
			present++
		}
	}
	x.logger.Info("candidate qualifications extracted",
		zap.Int("present", present),
		zap.Int("variables", len(set.Qualifications)),
	)
	return set, nil
}

func (x *CandidateExtractor) decode(doc map[string]any, source string, final bool) (*CandidateSet, error) {
	if err := guard.ValidateEnvelope(doc, candidateEnvelope); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Err: err}
	}

	recs := guard.Records(doc, "variables", "name")
	for _, rec := range recs {
		alias(rec, "name", "variable")
		alias(rec, "present", "found", "has_qualification")
		alias(rec, "evidence", "candidate_evidence", "evidence_quote")
		alias(rec, "years_experience", "years")
		alias(rec, "proficiency_level", "proficiency")
	}

	matched := reconcile(x.schema, recs, "name")
	if err := checkRecords(x.schema, matched, final); err != nil {
		return nil, err
	}
	if err := matched.mismatch(x.schema); err != nil {
		x.logger.Warn("padding candidate qualifications", zap.Error(err))
	}

	set := &CandidateSet{
		Schema:         x.schema.Name(),
		Qualifications: make([]Qualification, 0, x.schema.Len()),
	}
	if err := decodeInto(guard.Object(doc, "candidate_analysis"), &set.Analysis); err != nil {
		x.logger.Debug("ignoring malformed candidate analysis", zap.Error(err))
	}

	for _, v := range x.schema.ListVariables() {
		q := Qualification{Name: v.Name, Category: v.Category, Evidence: NotFound}

		if rec, ok := matched.records[v.Name]; ok {
			var raw rawQualification
			if err := decodeInto(rec, &raw); err != nil {
				return nil, &Error{Kind: KindMalformedResponse, Err: err}
			}
			q = buildQualification(v, raw, source)
		}
		set.Qualifications = append(set.Qualifications, q)
	}

	return set, nil
}

func buildQualification(v schema.Variable, raw rawQualification, source string) Qualification {
	q := Qualification{
		Name:            v.Name,
		Category:        v.Category,
		Present:         raw.Present,
		Evidence:        raw.Evidence,
		Proficiency:     raw.Proficiency,
		YearsExperience: guard.Clamp(raw.YearsExperience, 0, 80),
	}

	if isNotFound(q.Evidence) {
		q.Evidence = NotFound
		q.Present = false
	}
	if !q.Present {
		q.Evidence = NotFound
		q.Proficiency = ""
		q.YearsExperience = 0
		return q
	}

	q.EvidenceVerified = VerifyEvidence(source, q.Evidence)
	return q
}
