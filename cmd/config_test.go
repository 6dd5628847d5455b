package cmd

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-matcher/internal/usage"
)

func newTestViper(t *testing.T, overrides map[string]any) *viper.Viper {
	t.Helper()

	v := viper.New()
	setDefaults(v)
	for key, value := range overrides {
		v.Set(key, value)
	}
	return v
}

func TestDecodeConfigDefaults(t *testing.T) {
	t.Parallel()

	config, err := decodeConfig(newTestViper(t, nil))
	require.NoError(t, err)

	assert.Equal(t, "weighted-22", config.Schema)
	assert.Equal(t, "gemini", config.Provider)
	require.NotNil(t, config.providerConfig())
	assert.Equal(t, "gemini-2.5-flash", config.providerConfig().Model)
	assert.Equal(t, "gemini-2.5-pro", config.providerConfig().StrongModel)
	assert.Equal(t, 60*time.Second, config.Matching.Timeout)
	assert.Equal(t, 10*time.Second, config.Matching.BackoffBase)
	assert.Equal(t, 3, config.Matching.MaxAttempts)
	assert.InDelta(t, 0.1, config.Matching.Temperature, 1e-6)
}

func TestDecodeConfigNormalizesNames(t *testing.T) {
	t.Parallel()

	config, err := decodeConfig(newTestViper(t, map[string]any{
		"provider": " OpenAI ",
		"schema":   "FLAT-8",
	}))
	require.NoError(t, err)

	assert.Equal(t, "openai", config.Provider)
	assert.Equal(t, "flat-8", config.Schema)
	assert.Equal(t, "gpt-4o-mini", config.providerConfig().Model)
}

func TestDecodeConfigInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		overrides map[string]any
		want      string
	}{
		{name: "schema", overrides: map[string]any{"schema": "weighted-23"}, want: "Config.Schema"},
		{name: "provider", overrides: map[string]any{"provider": "claude"}, want: "Config.Provider"},
		{name: "min score", overrides: map[string]any{"batch.min-score": 150}, want: "Config.Batch.MinScore"},
		{name: "attempts", overrides: map[string]any{"matching.max-attempts": 0}, want: "Config.Matching.MaxAttempts"},
		{name: "base url", overrides: map[string]any{"openai.base-url": "not a url"}, want: "Config.OpenAI.BaseURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := decodeConfig(newTestViper(t, tt.overrides))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateConfigRequiresProviderBlock(t *testing.T) {
	t.Parallel()

	config, err := decodeConfig(newTestViper(t, nil))
	require.NoError(t, err)

	config.Gemini = nil
	err = validateConfig(config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini block is required")
}

func TestMatcherConfig(t *testing.T) {
	t.Parallel()

	config, err := decodeConfig(newTestViper(t, map[string]any{
		"schema":                    "industry",
		"matching.tier-routing":     true,
		"matching.max-resume-chars": 2000,
		"gemini.max-log-length":     80,
	}))
	require.NoError(t, err)

	cfg := matcherConfig(config)
	assert.True(t, cfg.Industry)
	assert.True(t, cfg.TierRouting)
	assert.Equal(t, "gemini-2.5-flash", cfg.Extraction.Model)
	assert.Equal(t, "gemini-2.5-pro", cfg.StrongModel)
	assert.Equal(t, 2000, cfg.Extraction.Limits.MaxResumeChars)
	assert.Equal(t, 8000, cfg.Extraction.Limits.MaxJobChars)
	assert.Equal(t, 80, cfg.Extraction.MaxLogLength)
	assert.Equal(t, 60*time.Second, cfg.Extraction.Timeout)
}

func TestNewTracker(t *testing.T) {
	t.Parallel()

	config, err := decodeConfig(newTestViper(t, nil))
	require.NoError(t, err)
	config.Rates = map[string]usage.Rate{"custom": {InputPer1K: 1, OutputPer1K: 2}}

	tracker := newTracker(config)
	assert.InDelta(t, 0.09, tracker.Record("gemini-2.5-pro", 1000, 1000), 1e-9)
	assert.InDelta(t, 0.0035, tracker.Record("gemini-2.5-flash", 1000, 1000), 1e-9)
	assert.InDelta(t, 3.0, tracker.Record("custom", 1000, 1000), 1e-9)
	assert.Equal(t, 3, tracker.Snapshot().TotalCalls)
}
