// Package scoring compares extracted job requirements with extracted
// candidate qualifications. Score is a pure function of its inputs.
package scoring

import (
	"fmt"
	"math"

	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/schema"
)

// MatchThreshold is the graded score from which a variable counts as a match.
const MatchThreshold = 70.0

// Reasons explain results whose score alone is misleading.
const (
	// ReasonNoRequirements marks a zero score caused by a posting that asks
	// for none of the schema variables, as opposed to a candidate matching none.
	ReasonNoRequirements = "no_requirements_extracted"
	// ReasonGateFailed marks a score capped by a failed binary gate.
	ReasonGateFailed = "binary_gate_failed"
)

// VariableResult is the comparison of one schema variable.
type VariableResult struct {
	Name     string          `json:"name"`
	Category schema.Category `json:"category"`
	Weight   float64         `json:"weight"`
	// RedistributedWeight is the share of the total this variable carries
	// after excluded variables are removed. It is 0 for inactive variables.
	RedistributedWeight float64 `json:"redistributed_weight"`
	// Excluded variables are not asked for by the posting.
	Excluded bool `json:"excluded"`
	Gate     bool `json:"gate"`
	Active   bool `json:"active"`
	Match    bool `json:"match"`
	// Score is 0..100. Excluded variables score 0.
	Score             float64 `json:"score"`
	Contribution      float64 `json:"contribution"`
	JobRequirement    string  `json:"job_requirement,omitempty"`
	CandidateEvidence string  `json:"candidate_evidence,omitempty"`
	Notes             string  `json:"notes,omitempty"`
}

// Result is the outcome of one comparison.
type Result struct {
	Schema    string           `json:"schema"`
	Variables []VariableResult `json:"variables"`
	// CategoryScores hold matches over declared variables per category, in percent.
	CategoryScores  map[schema.Category]float64 `json:"category_scores"`
	TotalMatches    int                         `json:"total_matches"`
	TotalVariables  int                         `json:"total_variables"`
	ActiveVariables int                         `json:"active_variables"`
	// RawScore is the weighted sum before rounding and gate capping.
	RawScore        float64      `json:"raw_score"`
	TotalScore      float64      `json:"total_score"`
	FailedGates     []string     `json:"failed_gates,omitempty"`
	Significance    Significance `json:"statistical_significance"`
	ConfidenceLevel float64      `json:"confidence_level"`
	Decision        Decision     `json:"hiring_decision"`
	MissingCritical []string     `json:"missing_critical"`
	Reason          string       `json:"reason,omitempty"`
}

// Score aligns job and candidate records by variable name and computes the
// weighted result for s. Missing records or weights that do not add up are
// reported as *schema.InvariantError.
func Score(job *extraction.JobSet, candidate *extraction.CandidateSet, s *schema.Schema) (*Result, error) {
	if s == nil {
		return nil, &schema.InvariantError{Reason: "no schema"}
	}
	if job == nil || candidate == nil {
		return nil, &schema.InvariantError{Schema: s.Name(), Reason: "job and candidate sets are required"}
	}
	if job.Schema != "" && job.Schema != s.Name() {
		return nil, &schema.InvariantError{Schema: s.Name(), Reason: fmt.Sprintf("job set was extracted for schema %q", job.Schema)}
	}
	if candidate.Schema != "" && candidate.Schema != s.Name() {
		return nil, &schema.InvariantError{Schema: s.Name(), Reason: fmt.Sprintf("candidate set was extracted for schema %q", candidate.Schema)}
	}

	vars, err := align(job, candidate, s)
	if err != nil {
		return nil, err
	}

	if err := redistribute(vars, s.Name()); err != nil {
		return nil, err
	}

	res := &Result{
		Schema:          s.Name(),
		Variables:       vars,
		TotalVariables:  len(vars),
		CategoryScores:  categoryScores(vars, s),
		MissingCritical: []string{},
	}

	for _, v := range vars {
		if v.Match {
			res.TotalMatches++
		}
		if v.Active {
			res.ActiveVariables++
			res.RawScore += v.Contribution
		}
		if v.Gate && !v.Excluded && !v.Match {
			res.FailedGates = append(res.FailedGates, v.Name)
		}
	}

	if res.ActiveVariables == 0 {
		res.RawScore = 0
		res.TotalScore = 0
		res.Significance = None
		res.Decision = Reject
		res.Reason = ReasonNoRequirements
		return res, nil
	}

	res.TotalScore = math.Round(res.RawScore)
	if len(res.FailedGates) > 0 {
		res.Reason = ReasonGateFailed
		if res.TotalScore > schema.GateFailureCap {
			res.TotalScore = schema.GateFailureCap
		}
	}

	res.MissingCritical = missingCritical(vars)
	res.Significance, res.ConfidenceLevel = ClassifySignificance(res.TotalMatches, res.TotalVariables)
	res.Decision = Decide(res.TotalScore, len(res.MissingCritical))
	return res, nil
}

// align builds one VariableResult per schema variable and decides its
// signal. It is pass one of the scoring: marking active variables.
func align(job *extraction.JobSet, candidate *extraction.CandidateSet, s *schema.Schema) ([]VariableResult, error) {
	out := make([]VariableResult, 0, s.Len())
	for _, v := range s.ListVariables() {
		req, ok := job.Get(v.Name)
		if !ok {
			return nil, &schema.InvariantError{Schema: s.Name(), Reason: fmt.Sprintf("job set has no record for %q", v.Name)}
		}
		qual, ok := candidate.Get(v.Name)
		if !ok {
			return nil, &schema.InvariantError{Schema: s.Name(), Reason: fmt.Sprintf("candidate set has no record for %q", v.Name)}
		}

		vr := VariableResult{
			Name:              v.Name,
			Category:          v.Category,
			Weight:            v.Weight,
			Gate:              v.BinaryGate,
			Excluded:          !req.Found,
			JobRequirement:    req.Text,
			CandidateEvidence: qual.Evidence,
			Notes:             qual.Notes,
		}

		switch s.Signal() {
		case schema.Graded:
			if !qual.Graded {
				return nil, &schema.InvariantError{Schema: s.Name(), Reason: fmt.Sprintf("candidate record for %q has no graded score", v.Name)}
			}
			vr.Score = clampScore(qual.MatchScore)
			vr.Match = vr.Score >= MatchThreshold
		default:
			if qual.Present {
				vr.Score = 100
				vr.Match = true
			}
		}

		if vr.Excluded {
			vr.Score = 0
			vr.Match = false
			vr.Notes = "not required by the posting"
		}
		if vr.Gate && !vr.Excluded {
			vr.Match = vr.Score >= schema.GatePassThreshold
		}
		vr.Active = !vr.Excluded && !vr.Gate && vr.Weight > 0

		out = append(out, vr)
	}
	return out, nil
}

// redistribute spreads the weight of inactive variables proportionally over
// the active ones and fills in contributions. It is pass two of the scoring.
func redistribute(vars []VariableResult, schemaName string) error {
	active := 0.0
	for _, v := range vars {
		if v.Active {
			active += v.Weight
		}
	}
	if active <= 0 {
		for i := range vars {
			vars[i].Active = false
		}
		return nil
	}

	sum := 0.0
	for i, v := range vars {
		if !v.Active {
			continue
		}
		vars[i].RedistributedWeight = v.Weight / active
		vars[i].Contribution = v.Score * vars[i].RedistributedWeight
		sum += vars[i].RedistributedWeight
	}

	if math.Abs(sum-1) > schema.Tolerance {
		return &schema.InvariantError{Schema: schemaName, Reason: fmt.Sprintf("redistributed weights sum to %.9f", sum)}
	}
	return nil
}

func clampScore(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return f
}

// categoryScores reports matches over declared variables per category. The
// view ignores redistribution.
func categoryScores(vars []VariableResult, s *schema.Schema) map[schema.Category]float64 {
	out := make(map[schema.Category]float64, len(s.Categories()))
	for _, c := range s.Categories() {
		total, matched := 0, 0
		for _, v := range vars {
			if v.Category != c.Name {
				continue
			}
			total++
			if v.Match {
				matched++
			}
		}
		if total == 0 {
			out[c.Name] = 0
			continue
		}
		out[c.Name] = math.Round(float64(matched)/float64(total)*1000) / 10
	}
	return out
}

// missingCritical lists active critical variables without a match, then
// failed gates. Variables the posting does not ask for are never missing.
func missingCritical(vars []VariableResult) []string {
	out := []string{}
	for _, v := range vars {
		if v.Category == schema.Critical && v.Active && !v.Match {
			out = append(out, v.Name)
		}
	}
	for _, v := range vars {
		if v.Gate && !v.Excluded && !v.Match {
			out = append(out, v.Name)
		}
	}
	return out
}
