package extraction

import (
	"github.com/spigell/resume-matcher/internal/schema"
)

// NotFound is the evidence placeholder for absent variables.
const NotFound = "not found"

// Criticality tags how strongly a posting asks for a requirement.
type Criticality string

const (
	MustHave         Criticality = "must_have"
	StrongPreference Criticality = "strong_preference"
	NiceToHave       Criticality = "nice_to_have"
)

func parseCriticality(s string) Criticality {
	switch Criticality(s) {
	case MustHave, StrongPreference, NiceToHave:
		return Criticality(s)
	}
	switch {
	case containsAny(s, "must", "required", "critical", "mandatory"):
		return MustHave
	case containsAny(s, "strong", "preferred", "important"):
		return StrongPreference
	case containsAny(s, "nice", "bonus", "plus", "optional"):
		return NiceToHave
	default:
		return ""
	}
}

// Context carries the posting metadata shown to the model.
type Context struct {
	Title   string
	Company string
}

// JobAnalysis is the model's summary of a posting.
type JobAnalysis struct {
	Title          string `mapstructure:"title" json:"title,omitempty"`
	Company        string `mapstructure:"company" json:"company,omitempty"`
	Industry       string `mapstructure:"industry" json:"industry,omitempty"`
	SeniorityLevel string `mapstructure:"seniority_level" json:"seniority_level,omitempty"`
	JobType        string `mapstructure:"job_type" json:"job_type,omitempty"`
}

// Requirement is the job-side record of one schema variable.
type Requirement struct {
	Name     string          `json:"name"`
	Category schema.Category `json:"category"`
	Found    bool            `json:"found"`
	Text     string          `json:"requirement_text"`
	Evidence string          `json:"evidence_quote"`
	// EvidenceVerified is set when Evidence occurs verbatim in the source text.
	EvidenceVerified bool        `json:"evidence_verified"`
	Criticality      Criticality `json:"criticality,omitempty"`
	Disqualifier     bool        `json:"disqualifier,omitempty"`
}

// JobSet holds exactly one Requirement per schema variable, in schema order.
type JobSet struct {
	Schema       string        `json:"schema"`
	Context      Context       `json:"context"`
	Analysis     JobAnalysis   `json:"analysis"`
	Requirements []Requirement `json:"requirements"`
}

// Get returns the requirement for name.
func (s *JobSet) Get(name string) (Requirement, bool) {
	key := schema.Key(name)
	for _, r := range s.Requirements {
		if schema.Key(r.Name) == key {
			return r, true
		}
	}
	return Requirement{}, false
}

// FoundCount returns how many variables the posting actually asks for.
func (s *JobSet) FoundCount() int {
	n := 0
	for _, r := range s.Requirements {
		if r.Found {
			n++
		}
	}
	return n
}

// CandidateAnalysis is the model's summary of a resume.
type CandidateAnalysis struct {
	Name                 string   `mapstructure:"name" json:"name,omitempty"`
	YearsTotalExperience float64  `mapstructure:"years_total_experience" json:"years_total_experience,omitempty"`
	CurrentLevel         string   `mapstructure:"current_level" json:"current_level,omitempty"`
	PrimaryExpertise     []string `mapstructure:"primary_expertise" json:"primary_expertise,omitempty"`
	IndustryBackground   []string `mapstructure:"industry_background" json:"industry_background,omitempty"`
}

// Qualification is the resume-side record of one schema variable.
type Qualification struct {
	Name             string          `json:"name"`
	Category         schema.Category `json:"category"`
	Present          bool            `json:"present"`
	Evidence         string          `json:"evidence"`
	EvidenceVerified bool            `json:"evidence_verified"`
	Proficiency      string          `json:"proficiency_level,omitempty"`
	YearsExperience  float64         `json:"years_experience,omitempty"`
	// MatchScore is the 0..100 evaluator score; meaningful when Graded is set.
	MatchScore   float64 `json:"match_score"`
	Graded       bool    `json:"graded"`
	MatchQuality string  `json:"match_quality,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// CandidateSet holds exactly one Qualification per schema variable, in schema order.
type CandidateSet struct {
	Schema         string            `json:"schema"`
	Analysis       CandidateAnalysis `json:"analysis"`
	Qualifications []Qualification   `json:"qualifications"`
	Summary        string            `json:"summary,omitempty"`
}

// Get returns the qualification for name.
func (s *CandidateSet) Get(name string) (Qualification, bool) {
	key := schema.Key(name)
	for _, q := range s.Qualifications {
		if schema.Key(q.Name) == key {
			return q, true
		}
	}
	return Qualification{}, false
}

// WithScores returns a copy of s where each qualification named in graded
// carries the evaluator score and evidence. The receiver is not modified.
func (s *CandidateSet) WithScores(graded *CandidateSet) *CandidateSet {
	out := *s
	out.Qualifications = append([]Qualification(nil), s.Qualifications...)
	if graded == nil {
		return &out
	}

	for i, q := range out.Qualifications {
		g, ok := graded.Get(q.Name)
		if !ok || !g.Graded {
			continue
		}
		q.MatchScore = g.MatchScore
		q.Graded = true
		q.MatchQuality = g.MatchQuality
		q.Notes = g.Notes
		if !q.Present && g.Present {
			q.Present = true
			q.Evidence = g.Evidence
			q.EvidenceVerified = g.EvidenceVerified
		}
		out.Qualifications[i] = q
	}
	if graded.Summary != "" {
		out.Summary = graded.Summary
	}
	return &out
}
