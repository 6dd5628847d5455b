// Package gemini implements llm.Client on top of the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-matcher/internal/llm"
	"github.com/spigell/resume-matcher/internal/logger"
)

const (
	Provider = "gemini"

	defaultModel      = "gemini-2.5-flash"
	defaultMaxRetries = 3
)

var sleep = time.Sleep

type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config holds the Gemini connection settings.
type Config struct {
	APIKey string
	Model  string
	// MaxRetries bounds attempts on temporary server errors.
	MaxRetries int
}

// Client sends single-turn prompts to Gemini.
type Client struct {
	models     models
	model      string
	maxRetries int
	logger     *zap.Logger
}

// New creates a Client for the Gemini API backend.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newClient(client.Models, cfg, log), nil
}

func newClient(m models, cfg Config, log *zap.Logger) *Client {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	return &Client{
		models:     m,
		model:      model,
		maxRetries: retries,
		logger:     logger.WithCommonFields(logger.OrNop(log), Provider, model),
	}
}

func (c *Client) Provider() string { return Provider }

func (c *Client) DefaultModel() string { return c.model }

// Complete sends userPrompt with systemPrompt as the system instruction.
// Temporary server errors are retried here; rate limits are returned as
// *llm.RateLimitError for the caller to schedule.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (*llm.Completion, error) {
	if c == nil || c.models == nil {
		return nil, errors.New("gemini client is not initialized")
	}

	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		return nil, errors.New("prompt must not be empty")
	}

	opts = opts.Normalized()
	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(opts.Temperature),
	}
	if s := strings.TrimSpace(systemPrompt); s != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: s}}}
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.JSON {
		config.ResponseMIMEType = "application/json"
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.models.GenerateContent(ctx, model, genai.Text(userPrompt), config)
		if err == nil {
			return completion(resp, model)
		}

		lastErr = classify(err)
		if !isTemporary(err) || attempt == c.maxRetries || ctx.Err() != nil {
			break
		}

		delay := time.Duration(attempt) * time.Second
		c.logger.Warn("gemini temporary error, retrying",
			zap.Int(logger.FieldAttempt, attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		sleep(delay)
	}

	return nil, fmt.Errorf("generate content: %w", lastErr)
}

func completion(resp *genai.GenerateContentResponse, model string) (*llm.Completion, error) {
	if resp == nil {
		return nil, llm.ErrEmptyResponse
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return nil, llm.ErrEmptyResponse
	}

	out := &llm.Completion{Text: output, Model: model}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if meta := resp.UsageMetadata; meta != nil {
		out.PromptTokens = int(meta.PromptTokenCount)
		out.CompletionTokens = int(meta.CandidatesTokenCount)
	}
	return out, nil
}

func apiError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

func isTemporary(err error) bool {
	apiErr, ok := apiError(err)
	if !ok {
		return false
	}
	switch apiErr.Code {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func classify(err error) error {
	apiErr, ok := apiError(err)
	if !ok {
		return err
	}
	switch apiErr.Code {
	case http.StatusTooManyRequests:
		return &llm.RateLimitError{Provider: Provider, RetryAfter: llm.ParseRetryAfter(apiErr.Message), Err: err}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &llm.AuthError{Provider: Provider, Err: err}
	default:
		return err
	}
}
