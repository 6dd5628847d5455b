package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-matcher/internal/llm"
)

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type callRecord struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type fakeModels struct {
	mu    sync.Mutex
	calls []callRecord
	queue []fakeResponse
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, callRecord{model: model, contents: contents, config: config})
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     120,
			CandidatesTokenCount: 30,
		},
	}
}

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	original := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { sleep = original })
	return &slept
}

func TestCompleteRetriesOnTemporaryError(t *testing.T) {
	slept := stubSleep(t)

	fake := &fakeModels{}
	fake.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	fake.enqueue(textResponse(`{"ok": true}`), nil)

	c := newClient(fake, Config{Model: "gemini-pro", MaxRetries: 2}, zap.NewNop())

	out, err := c.Complete(context.Background(), "system", "message", llm.Options{MaxTokens: 500, JSON: true, Temperature: 0.7})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if out.Text != `{"ok": true}` {
		t.Fatalf("unexpected output: %q", out.Text)
	}
	if out.PromptTokens != 120 || out.CompletionTokens != 30 {
		t.Fatalf("unexpected token counts: %+v", out)
	}
	if out.Model != "gemini-pro" {
		t.Fatalf("unexpected model: %q", out.Model)
	}

	if len(fake.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(fake.calls))
	}
	if len(*slept) != 1 {
		t.Fatalf("expected one backoff, got %v", *slept)
	}

	for _, call := range fake.calls {
		if call.config == nil || call.config.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if got := call.contents[0].Parts[0].Text; got != "message" {
			t.Fatalf("unexpected user message: %q", got)
		}
		if call.config.Temperature == nil || *call.config.Temperature != llm.MaxTemperature {
			t.Fatalf("expected temperature clamped to %v", llm.MaxTemperature)
		}
		if call.config.MaxOutputTokens != 500 {
			t.Fatalf("unexpected max tokens: %d", call.config.MaxOutputTokens)
		}
		if call.config.ResponseMIMEType != "application/json" {
			t.Fatalf("expected json mime type, got %q", call.config.ResponseMIMEType)
		}
	}
}

func TestCompleteStopsAfterRetriesExhausted(t *testing.T) {
	stubSleep(t)

	fake := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	fake.enqueue(nil, tempErr)
	fake.enqueue(nil, tempErr)

	c := newClient(fake, Config{Model: "gemini-pro", MaxRetries: 2}, zap.NewNop())

	_, err := c.Complete(context.Background(), "sys", "msg", llm.Options{})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if llm.IsRateLimit(err) {
		t.Fatal("server errors are not rate limits")
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(fake.calls))
	}
}

func TestCompleteReturnsRateLimitWithoutRetry(t *testing.T) {
	slept := stubSleep(t)

	fake := &fakeModels{}
	fake.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	c := newClient(fake, Config{Model: "gemini-pro", MaxRetries: 3}, zap.NewNop())

	_, err := c.Complete(context.Background(), "sys", "msg", llm.Options{})
	if !llm.IsRateLimit(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if got := llm.RetryAfter(err); got != 60*time.Second {
		t.Fatalf("unexpected retry after: %v", got)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(fake.calls))
	}
	if len(*slept) != 0 {
		t.Fatalf("expected no sleep, got %v", *slept)
	}
}

func TestCompleteAuthError(t *testing.T) {
	fake := &fakeModels{}
	fake.enqueue(nil, genai.APIError{Code: http.StatusForbidden, Status: "PERMISSION_DENIED"})

	c := newClient(fake, Config{}, nil)

	_, err := c.Complete(context.Background(), "sys", "msg", llm.Options{Model: "gemini-override"})
	var authErr *llm.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if fake.calls[0].model != "gemini-override" {
		t.Fatalf("expected model override, got %q", fake.calls[0].model)
	}
	if c.DefaultModel() != defaultModel {
		t.Fatalf("unexpected default model %q", c.DefaultModel())
	}
}

func TestCompleteEmptyResponse(t *testing.T) {
	fake := &fakeModels{}
	fake.enqueue(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: "thinking", Thought: true}, {Text: "  "}}},
	}}}, nil)

	c := newClient(fake, Config{}, zap.NewNop())

	_, err := c.Complete(context.Background(), "", "msg", llm.Options{})
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}
	if fake.calls[0].config.SystemInstruction != nil {
		t.Fatal("expected no system instruction for empty system prompt")
	}
}

func TestCompleteRejectsEmptyPrompt(t *testing.T) {
	c := newClient(&fakeModels{}, Config{}, zap.NewNop())
	if _, err := c.Complete(context.Background(), "sys", "   ", llm.Options{}); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), Config{APIKey: " "}, nil); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
