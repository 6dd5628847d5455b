package matching

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spigell/resume-matcher/internal/llm"
	"github.com/spigell/resume-matcher/internal/schema"
)

type role int

const (
	roleJob role = iota
	roleCandidate
	roleEvaluator
	roleIndustry
)

func roleOf(system string) role {
	switch {
	case strings.Contains(system, "job requirements analyst"):
		return roleJob
	case strings.Contains(system, "resume analyst"):
		return roleCandidate
	case strings.Contains(system, "scores candidates"):
		return roleEvaluator
	default:
		return roleIndustry
	}
}

type call struct {
	role  role
	model string
	user  string
}

// fakeClient answers by the role named in the system prompt. A handler
// returning a nil completion and nil error is an unexpected call.
type fakeClient struct {
	mu       sync.Mutex
	calls    []call
	inFlight int
	maxInFly int
	delay    time.Duration
	handle   func(r role, n int, user string) (string, error)
}

func (f *fakeClient) Complete(ctx context.Context, system, user string, opts llm.Options) (*llm.Completion, error) {
	r := roleOf(system)

	f.mu.Lock()
	n := 0
	for _, c := range f.calls {
		if c.role == r {
			n++
		}
	}
	f.calls = append(f.calls, call{role: r, model: opts.Model, user: user})
	f.inFlight++
	if f.inFlight > f.maxInFly {
		f.maxInFly = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}

	text, err := f.handle(r, n, user)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, errors.New("unexpected call")
	}
	model := opts.Model
	if model == "" {
		model = "fake-model"
	}
	return &llm.Completion{Text: text, Model: model, PromptTokens: 10, CompletionTokens: 5}, nil
}

func (f *fakeClient) Provider() string { return "fake" }

func (f *fakeClient) DefaultModel() string { return "fake-model" }

func (f *fakeClient) count(r role) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.role == r {
			n++
		}
	}
	return n
}

func (f *fakeClient) models(r role) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.role == r {
			out = append(out, c.model)
		}
	}
	return out
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return string(out)
}

func set(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// jobReply marks the variables in found as asked for by the posting.
func jobReply(t *testing.T, s *schema.Schema, found map[string]bool) string {
	t.Helper()
	vars := make([]map[string]any, 0, s.Len())
	for _, name := range s.Names() {
		rec := map[string]any{"name": name, "found": false, "requirement": "", "evidence": "not found"}
		if found[name] {
			rec["found"] = true
			rec["requirement"] = "requires " + strings.ToLower(name)
			rec["evidence"] = "Python"
			rec["criticality"] = "must_have"
		}
		vars = append(vars, rec)
	}
	return mustJSON(t, map[string]any{"job_analysis": map[string]any{"industry": "technology"}, "variables": vars})
}

// candidateReply marks the variables in present as shown by the resume.
func candidateReply(t *testing.T, s *schema.Schema, present map[string]bool) string {
	t.Helper()
	vars := make([]map[string]any, 0, s.Len())
	for _, name := range s.Names() {
		rec := map[string]any{"name": name, "present": false, "evidence": "not found"}
		if present[name] {
			rec["present"] = true
			rec["evidence"] = "Python"
			rec["proficiency_level"] = "advanced"
		}
		vars = append(vars, rec)
	}
	return mustJSON(t, map[string]any{"candidate_analysis": map[string]any{"current_level": "senior"}, "variables": vars})
}

// evaluationReply grades every variable with def unless scores names it.
func evaluationReply(t *testing.T, s *schema.Schema, scores map[string]float64, def float64) string {
	t.Helper()
	vars := make([]map[string]any, 0, s.Len())
	for _, name := range s.Names() {
		score, ok := scores[name]
		if !ok {
			score = def
		}
		vars = append(vars, map[string]any{
			"variable":           name,
			"score":              score,
			"job_requirements":   "requires " + strings.ToLower(name),
			"candidate_evidence": "Python",
			"match_quality":      "explicit",
		})
	}
	return mustJSON(t, map[string]any{"evaluation": vars, "summary": "fits"})
}

const jobDescription = `Backend Engineer

Requirements:
Bachelor's degree in Computer Science.
5+ years of backend development.
Strong Python and JavaScript skills with React.

Responsibilities:
Build and operate services for our customers.`

const resumeText = `Jane Doe, Software Engineer

Skills: Python, JavaScript, React, PostgreSQL

Experience: 7 years building backend services at Acme.

Education: BSc Computer Science, State University.`

func testJob(id string) Job {
	return Job{ID: id, Title: "Backend Engineer", Company: "Acme", Description: jobDescription}
}

func testResume() Resume {
	return Resume{Text: resumeText}
}
