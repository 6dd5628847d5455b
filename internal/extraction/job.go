package extraction

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/guard"
	"github.com/spigell/resume-matcher/internal/llm"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/usage"
)

const jobMaxTokens = 4000

const jobEnvelope = `{
	"type": "object",
	"properties": {
		"job_analysis": {"type": "object"},
		"variables": {"type": ["array", "object"]}
	},
	"required": ["variables"]
}`

type rawRequirement struct {
	Requirement  string `mapstructure:"requirement"`
	Evidence     string `mapstructure:"evidence"`
	Criticality  string `mapstructure:"criticality"`
	Found        bool   `mapstructure:"found"`
	Disqualifier bool   `mapstructure:"disqualifier"`
}

// JobExtractor turns a job description into one Requirement per schema variable.
type JobExtractor struct {
	caller
	schema *schema.Schema
}

func NewJobExtractor(client llm.Client, s *schema.Schema, cfg Config, recorder usage.Recorder, logger *zap.Logger) *JobExtractor {
	return &JobExtractor{caller: newCaller(client, cfg, recorder, logger), schema: s}
}

// Extract prepares text, asks the model for the schema variables and
// returns a set holding exactly one record per variable.
func (x *JobExtractor) Extract(ctx context.Context, text string, jc Context) (*JobSet, error) {
	prepared, err := PrepareJob(text, x.cfg.Limits)
	if err != nil {
		return nil, err
	}

	var set *JobSet
	err = x.run(ctx, opJob,
		systemPrompt(roleJob),
		jobPrompt(x.schema, prepared, jc),
		jobMaxTokens,
		strictSuffix(x.schema.Names()),
		func(doc map[string]any, final bool) error {
			var derr error
			set, derr = x.decode(doc, prepared, jc, final)
			return derr
		},
	)
	if err != nil {
		return nil, err
	}

	x.logger.Info("job requirements extracted",
		zap.String("title", jc.Title),
		zap.Int("found", set.FoundCount()),
		zap.Int("variables", len(set.Requirements)),
	)
	return set, nil
}

func (x *JobExtractor) decode(doc map[string]any, source string, jc Context, final bool) (*JobSet, error) {
	if err := guard.ValidateEnvelope(doc, jobEnvelope); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Err: err}
	}

	recs := guard.Records(doc, "variables", "name")
	for _, rec := range recs {
		alias(rec, "name", "variable")
		alias(rec, "requirement", "requirement_text", "job_requirements", "requirements", "description")
		alias(rec, "evidence", "evidence_quote", "quote")
	}

	matched := reconcile(x.schema, recs, "name")
	if err := checkRecords(x.schema, matched, final); err != nil {
		return nil, err
	}
	if err := matched.mismatch(x.schema); err != nil {
		x.logger.Warn("padding job requirements", zap.Error(err))
	}

	set := &JobSet{
		Schema:       x.schema.Name(),
		Context:      jc,
		Requirements: make([]Requirement, 0, x.schema.Len()),
	}
	if err := decodeInto(guard.Object(doc, "job_analysis"), &set.Analysis); err != nil {
		x.logger.Debug("ignoring malformed job analysis", zap.Error(err))
	}
	if set.Analysis.Title == "" {
		set.Analysis.Title = jc.Title
	}
	if set.Analysis.Company == "" {
		set.Analysis.Company = jc.Company
	}

	for _, v := range x.schema.ListVariables() {
		req := Requirement{Name: v.Name, Category: v.Category, Evidence: NotFound}

		if rec, ok := matched.records[v.Name]; ok {
			var raw rawRequirement
			if err := decodeInto(rec, &raw); err != nil {
				return nil, &Error{Kind: KindMalformedResponse, Err: err}
			}
			req = buildRequirement(v, raw, source)
		}
		set.Requirements = append(set.Requirements, req)
	}

	return set, nil
}

func buildRequirement(v schema.Variable, raw rawRequirement, source string) Requirement {
	req := Requirement{
		Name:         v.Name,
		Category:     v.Category,
		Found:        raw.Found,
		Text:         raw.Requirement,
		Evidence:     raw.Evidence,
		Criticality:  parseCriticality(raw.Criticality),
		Disqualifier: raw.Disqualifier,
	}

	if req.Found && (IsNoRequirement(req.Text) || (req.Text == "" && isNotFound(req.Evidence))) {
		req.Found = false
	}
	if !req.Found {
		req.Text = ""
		req.Evidence = NotFound
		req.Criticality = ""
		req.Disqualifier = false
		return req
	}

	if isNotFound(req.Evidence) {
		req.Evidence = NotFound
	}
	req.EvidenceVerified = VerifyEvidence(source, req.Evidence)
	if req.Disqualifier && req.Criticality == "" {
		req.Criticality = MustHave
	}
	return req
}
