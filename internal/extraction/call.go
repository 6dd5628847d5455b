package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/guard"
	"github.com/spigell/resume-matcher/internal/llm"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/usage"
	"github.com/spigell/resume-matcher/internal/utils"
)

const (
	opJob       = "extract job requirements"
	opCandidate = "extract candidate qualifications"
	opEvaluate  = "evaluate candidate"
	opGenerate  = "generate industry schema"

	defaultTimeout      = 60 * time.Second
	defaultMaxLogLength = 200
)

// Config tunes every extractor built from it.
type Config struct {
	// Model overrides the client default.
	Model       string
	Temperature float32
	// Timeout bounds each model call.
	Timeout      time.Duration
	Limits       Limits
	MaxLogLength int
}

// DefaultConfig returns the configuration used when fields are left empty.
func DefaultConfig() Config {
	return Config{
		Temperature:  llm.MaxTemperature,
		Timeout:      defaultTimeout,
		Limits:       DefaultLimits(),
		MaxLogLength: defaultMaxLogLength,
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxLogLength <= 0 {
		c.MaxLogLength = defaultMaxLogLength
	}
	c.Limits = c.Limits.withDefaults()
	return c
}

// caller runs one model exchange: prompt, guarded parse, decode, and one
// stricter re-prompt when the answer cannot be used.
type caller struct {
	client   llm.Client
	cfg      Config
	recorder usage.Recorder
	logger   *zap.Logger
}

func newCaller(client llm.Client, cfg Config, recorder usage.Recorder, log *zap.Logger) caller {
	cfg = cfg.withDefaults()
	log = logger.OrNop(log)
	if client != nil {
		model := cfg.Model
		if model == "" {
			model = client.DefaultModel()
		}
		log = logger.WithCommonFields(log, client.Provider(), model)
	}
	return caller{client: client, cfg: cfg, recorder: recorder, logger: log}
}

// decodeFunc turns a parsed document into a result. final is set on the
// last attempt, where a partial answer should be padded instead of rejected.
type decodeFunc func(doc map[string]any, final bool) error

func (c caller) run(ctx context.Context, op, system, user string, maxTokens int, strict string, decode decodeFunc) error {
	if c.client == nil {
		return &Error{Kind: KindProviderUnavailable, Op: op, Err: errors.New("no model client configured")}
	}

	raw, err := c.complete(ctx, op, system, user, maxTokens)
	if err != nil {
		return err
	}

	err = c.decode(op, raw, decode, false)
	if err == nil || !errors.Is(err, ErrMalformedResponse) {
		return err
	}

	var first *Error
	errors.As(err, &first)
	c.logger.Warn("unusable model response, re-prompting",
		zap.String(logger.FieldOperation, op),
		zap.String("kind", first.Kind.String()),
		zap.String("excerpt", first.Excerpt),
		zap.Error(first.Err),
	)

	raw, err = c.complete(ctx, op, system, user+strict, maxTokens)
	if err != nil {
		return err
	}

	err = c.decode(op, raw, decode, true)
	if err != nil {
		var last *Error
		if errors.As(err, &last) {
			c.logger.Warn("model response rejected after re-prompt",
				zap.String(logger.FieldOperation, op),
				zap.String("kind", last.Kind.String()),
				zap.String("excerpt", last.Excerpt),
			)
		}
	}
	return err
}

func (c caller) decode(op, raw string, decode decodeFunc, final bool) error {
	doc, err := guard.ParseModelJSON(raw)
	if err != nil {
		var perr *guard.ParseError
		excerpt := utils.TruncateForLog(raw, guard.ExcerptLength)
		if errors.As(err, &perr) {
			excerpt = perr.Excerpt
		}
		return &Error{Kind: KindMalformedResponse, Op: op, Excerpt: excerpt, Err: err}
	}

	if err := decode(doc, final); err != nil {
		var e *Error
		if errors.As(err, &e) {
			if e.Op == "" {
				e.Op = op
			}
			if e.Excerpt == "" {
				e.Excerpt = utils.TruncateForLog(raw, guard.ExcerptLength)
			}
			return e
		}
		return &Error{Kind: KindMalformedResponse, Op: op, Excerpt: utils.TruncateForLog(raw, guard.ExcerptLength), Err: err}
	}
	return nil
}

func (c caller) complete(ctx context.Context, op, system, user string, maxTokens int) (string, error) {
	opts := llm.Options{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   maxTokens,
		JSON:        true,
	}.Normalized()

	c.logger.Debug("model request",
		zap.String(logger.FieldOperation, op),
		zap.Int("prompt_length", utf8.RuneCountInString(user)),
		zap.String("prompt_preview", utils.TruncateForLog(user, c.cfg.MaxLogLength)),
	)

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	started := time.Now()
	resp, err := c.client.Complete(callCtx, system, user, opts)
	if err != nil {
		retryable := llm.IsRateLimit(err)
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			retryable = true
			err = fmt.Errorf("model call timed out after %s: %w", c.cfg.Timeout, err)
		}
		return "", &Error{Kind: KindProviderUnavailable, Op: op, Retryable: retryable, Err: err}
	}
	if resp == nil || resp.Text == "" {
		return "", &Error{Kind: KindProviderUnavailable, Op: op, Err: llm.ErrEmptyResponse}
	}

	// Calls are priced by the requested model; providers may report a
	// dated snapshot name instead.
	model := opts.Model
	if model == "" {
		model = c.client.DefaultModel()
	}
	cost := 0.0
	if c.recorder != nil {
		cost = c.recorder.Record(model, resp.PromptTokens, resp.CompletionTokens)
	}

	c.logger.Debug("model response",
		zap.String(logger.FieldOperation, op),
		zap.String("reported_model", resp.Model),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("prompt_tokens", resp.PromptTokens),
		zap.Int("completion_tokens", resp.CompletionTokens),
		zap.Float64("cost", cost),
		zap.Int("response_length", utf8.RuneCountInString(resp.Text)),
		zap.String("response_preview", utils.TruncateForLog(resp.Text, c.cfg.MaxLogLength)),
	)

	return resp.Text, nil
}
