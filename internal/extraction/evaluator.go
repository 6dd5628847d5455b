package extraction

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/guard"
	"github.com/spigell/resume-matcher/internal/llm"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/usage"
)

const evaluateMaxTokens = 2000

const evaluateEnvelope = `{
	"type": "object",
	"properties": {
		"evaluation": {"type": ["array", "object"]}
	},
	"required": ["evaluation"]
}`

type rawEvaluation struct {
	Score          float64 `mapstructure:"score"`
	JobRequirement string  `mapstructure:"job_requirements"`
	Evidence       string  `mapstructure:"candidate_evidence"`
	MatchQuality   string  `mapstructure:"match_quality"`
}

// Evaluator grades a resume against each job requirement on a 0..100
// scale. It serves schemas with the Graded signal.
type Evaluator struct {
	caller
	schema *schema.Schema
}

func NewEvaluator(client llm.Client, s *schema.Schema, cfg Config, recorder usage.Recorder, logger *zap.Logger) *Evaluator {
	return &Evaluator{caller: newCaller(client, cfg, recorder, logger), schema: s}
}

// Evaluate scores the resume against job. The returned set carries a
// graded Qualification for every schema variable; variables the model
// skipped score 0.
func (x *Evaluator) Evaluate(ctx context.Context, job *JobSet, jobText, resumeText string) (*CandidateSet, error) {
	if job == nil {
		return nil, insufficient(opEvaluate, "job requirements are required")
	}
	if x.schema.Signal() != schema.Graded {
		return nil, &Error{
			Kind: KindSchemaMismatch,
			Op:   opEvaluate,
			Err:  errors.New("schema " + x.schema.Name() + " is not graded"),
		}
	}

	preparedJob, err := PrepareJob(jobText, x.cfg.Limits)
	if err != nil {
		return nil, err
	}
	preparedResume, err := PrepareResume(resumeText, x.cfg.Limits)
	if err != nil {
		return nil, err
	}

	var set *CandidateSet
	err = x.run(ctx, opEvaluate,
		systemPrompt(roleEvaluator),
		evaluatePrompt(x.schema, job, preparedJob, preparedResume),
		evaluateMaxTokens,
		strictSuffix(x.schema.Names()),
		func(doc map[string]any, final bool) error {
			var derr error
			set, derr = x.decode(doc, preparedResume, final)
			return derr
		},
	)
	if err != nil {
		return nil, err
	}

	x.logger.Info("candidate evaluated", zap.Int("variables", len(set.Qualifications)))
	return set, nil
}

func (x *Evaluator) decode(doc map[string]any, resume string, final bool) (*CandidateSet, error) {
	if err := guard.ValidateEnvelope(doc, evaluateEnvelope); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Err: err}
	}

	recs := guard.Records(doc, "evaluation", "variable")
	for _, rec := range recs {
		alias(rec, "variable", "name")
		alias(rec, "score", "match_score")
		alias(rec, "candidate_evidence", "evidence")
	}

	matched := reconcile(x.schema, recs, "variable")
	if err := checkRecords(x.schema, matched, final); err != nil {
		return nil, err
	}
	if err := matched.mismatch(x.schema); err != nil {
		x.logger.Warn("padding evaluation", zap.Error(err))
	}

	set := &CandidateSet{
		Schema:         x.schema.Name(),
		Summary:        guard.String(doc["summary"]),
		Qualifications: make([]Qualification, 0, x.schema.Len()),
	}

	for _, v := range x.schema.ListVariables() {
		q := Qualification{Name: v.Name, Category: v.Category, Evidence: NotFound, Graded: true}

		if rec, ok := matched.records[v.Name]; ok {
			var raw rawEvaluation
			if err := decodeInto(rec, &raw); err != nil {
				return nil, &Error{Kind: KindMalformedResponse, Err: err}
			}
			q.MatchScore = guard.Clamp(raw.Score, 0, 100)
			q.MatchQuality = raw.MatchQuality
			q.Notes = raw.JobRequirement
			if !isNotFound(raw.Evidence) {
				q.Present = true
				q.Evidence = raw.Evidence
				q.EvidenceVerified = VerifyEvidence(resume, raw.Evidence)
			}
		}
		set.Qualifications = append(set.Qualifications, q)
	}

	return set, nil
}
