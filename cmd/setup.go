package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/llm"
	"github.com/spigell/resume-matcher/internal/llm/gemini"
	"github.com/spigell/resume-matcher/internal/llm/openai"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/secrets"
	"github.com/spigell/resume-matcher/internal/usage"
)

func newClient(ctx context.Context, config *Config, logger *zap.Logger) (llm.Client, error) {
	pc := config.providerConfig()

	switch config.Provider {
	case gemini.Provider:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			File:  pc.APIKeyFile,
			Value: pc.APIKey,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set gemini.api-key-file or GEMINI_API_KEY)", err)
		}
		return gemini.New(ctx, gemini.Config{APIKey: apiKey, Model: pc.Model, MaxRetries: pc.MaxRetries}, logger)
	case openai.Provider:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			File:  pc.APIKeyFile,
			Value: pc.APIKey,
			Env:   "OPENAI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set openai.api-key-file or OPENAI_API_KEY)", err)
		}
		return openai.New(openai.Config{APIKey: apiKey, Model: pc.Model, BaseURL: pc.BaseURL}, logger)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}

// newTracker prices the strong model at the strong rate and everything
// else at the cheap rate unless the config names a rate.
func newTracker(config *Config) *usage.Tracker {
	rates := map[string]usage.Rate{}
	if pc := config.providerConfig(); pc != nil && pc.StrongModel != "" {
		rates[pc.StrongModel] = usage.StrongRate
	}
	for model, rate := range config.Rates {
		rates[model] = rate
	}
	return usage.NewTracker(rates, usage.CheapRate)
}

func matcherConfig(config *Config) matching.Config {
	pc := config.providerConfig()
	mc := config.Matching

	cfg := matching.DefaultConfig()
	cfg.Extraction.Model = pc.Model
	cfg.Extraction.Temperature = mc.Temperature
	cfg.Extraction.Timeout = mc.Timeout
	cfg.Extraction.MaxLogLength = pc.MaxLogLength
	cfg.Extraction.Limits = extraction.Limits{
		MaxResumeChars: mc.MaxResumeChars,
		MaxJobChars:    mc.MaxJobChars,
		MinInputChars:  mc.MinInputChars,
	}
	cfg.StrongModel = pc.StrongModel
	cfg.MaxAttempts = mc.MaxAttempts
	cfg.BackoffBase = mc.BackoffBase
	cfg.Concurrency = mc.Concurrency
	cfg.TierRouting = mc.TierRouting
	cfg.Industry = config.Schema == schema.IndustryName
	return cfg
}

func newMatcher(ctx context.Context, config *Config, logger *zap.Logger) (*matching.Matcher, *usage.Tracker, error) {
	client, err := newClient(ctx, config, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("building %s client: %w", config.Provider, err)
	}

	var s *schema.Schema
	if config.Schema != schema.IndustryName {
		s, err = schema.Load(config.Schema)
		if err != nil {
			return nil, nil, err
		}
	}

	tracker := newTracker(config)
	matcher, err := matching.New(client, s, matcherConfig(config), tracker, logger)
	if err != nil {
		return nil, nil, err
	}
	return matcher, tracker, nil
}

func readText(path, what string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%s file is required", what)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", what, err)
	}
	return string(data), nil
}
