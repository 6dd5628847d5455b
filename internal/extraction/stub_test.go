package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spigell/resume-matcher/internal/llm"
	"github.com/spigell/resume-matcher/internal/schema"
)

type stubReply struct {
	text string
	err  error
	// block waits for the call context to end before replying.
	block bool
}

type stubCall struct {
	system string
	user   string
	opts   llm.Options
}

type stubClient struct {
	// reported overrides the model name returned with each completion.
	reported string

	mu      sync.Mutex
	replies []stubReply
	calls   []stubCall
}

func newStub(replies ...stubReply) *stubClient {
	return &stubClient{replies: replies}
}

func (s *stubClient) Complete(ctx context.Context, system, user string, opts llm.Options) (*llm.Completion, error) {
	s.mu.Lock()
	s.calls = append(s.calls, stubCall{system: system, user: user, opts: opts})
	if len(s.replies) == 0 {
		s.mu.Unlock()
		return nil, errors.New("unexpected call")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	s.mu.Unlock()

	if reply.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if reply.err != nil {
		return nil, reply.err
	}
	model := "stub-model"
	if s.reported != "" {
		model = s.reported
	}
	return &llm.Completion{Text: reply.text, Model: model, PromptTokens: 100, CompletionTokens: 50}, nil
}

func (s *stubClient) Provider() string { return "stub" }

func (s *stubClient) DefaultModel() string { return "stub-model" }

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubClient) call(i int) stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[i]
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return string(out)
}

// jobReply builds a job extraction answer for s where found lists the
// variables the posting asks for, keyed to their evidence quote.
func jobReply(t *testing.T, s *schema.Schema, found map[string]string) string {
	t.Helper()
	vars := make([]map[string]any, 0, s.Len())
	for _, name := range s.Names() {
		quote, ok := found[name]
		rec := map[string]any{"name": name, "found": ok, "requirement": "", "evidence": NotFound}
		if ok {
			rec["requirement"] = "requires " + strings.ToLower(name)
			rec["evidence"] = quote
			rec["criticality"] = "must_have"
		}
		vars = append(vars, rec)
	}
	return mustJSON(t, map[string]any{
		"job_analysis": map[string]any{"title": "Backend Engineer", "industry": "technology"},
		"variables":    vars,
	})
}

const jobText = `Backend Engineer

Requirements:
Bachelor's degree in Computer Science.
5+ years of backend development.
Strong Python and JavaScript skills with React.
No specific certifications required.

Responsibilities:
Build and operate APIs on AWS.`

const resumeText = `Jane Doe, Senior Software Engineer

Skills: Python, JavaScript, React, PostgreSQL

Experience: 7 years building backend services at Acme.

Education: BSc Computer Science, State University.

Certifications: AWS Certified Solutions Architect.`
