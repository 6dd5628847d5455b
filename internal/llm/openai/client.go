// Package openai implements llm.Client for OpenAI compatible chat
// completion endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/llm"
	"github.com/spigell/resume-matcher/internal/logger"
)

const (
	Provider = "openai"

	defaultModel = openai.GPT4oMini
)

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds the endpoint settings.
type Config struct {
	APIKey string
	Model  string
	// BaseURL points the client at a compatible endpoint. Empty uses OpenAI.
	BaseURL string
}

// Client sends system and user messages as one chat completion.
type Client struct {
	chat   chatCompleter
	model  string
	logger *zap.Logger
}

// New creates a Client.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}

	return newClient(openai.NewClientWithConfig(clientCfg), cfg.Model, log), nil
}

func newClient(chat chatCompleter, model string, log *zap.Logger) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Client{
		chat:   chat,
		model:  model,
		logger: logger.WithCommonFields(logger.OrNop(log), Provider, model),
	}
}

func (c *Client) Provider() string { return Provider }

func (c *Client) DefaultModel() string { return c.model }

// Complete runs one chat completion. Retries are left to the caller.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (*llm.Completion, error) {
	if c == nil || c.chat == nil {
		return nil, errors.New("openai client is not initialized")
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

	var messages []openai.ChatCompletionMessage
	if s := strings.TrimSpace(systemPrompt); s != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: s})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userPrompt})

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	// The request omits a zero temperature, which the API reads as 1.
	if req.Temperature == 0 {
		req.Temperature = math.SmallestNonzeroFloat32
	}
	if opts.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create chat completion: %w", classify(err))
	}

	if len(resp.Choices) == 0 {
		return nil, llm.ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, llm.ErrEmptyResponse
	}
	if reason := resp.Choices[0].FinishReason; reason == openai.FinishReasonLength {
		c.logger.Warn("completion hit the token limit", zap.Int("max_tokens", opts.MaxTokens))
	}

	out := &llm.Completion{
		Text:             text,
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if resp.Model != "" {
		out.Model = resp.Model
	}
	return out, nil
}

func statusCode(err error) (int, string) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, apiErr.Message
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return reqErr.HTTPStatusCode, msg
	}
	return 0, ""
}

func classify(err error) error {
	code, msg := statusCode(err)
	switch code {
	case http.StatusTooManyRequests:
		return &llm.RateLimitError{Provider: Provider, RetryAfter: llm.ParseRetryAfter(msg), Err: err}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &llm.AuthError{Provider: Provider, Err: err}
	default:
		return err
	}
}
