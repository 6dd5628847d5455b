package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
	// FieldSchema names the requirement schema in use.
	FieldSchema = "schema"
	// FieldMatchID identifies one full match run.
	FieldMatchID = "match_id"
	// FieldPostingID identifies a job posting in batch mode.
	FieldPostingID = "posting_id"
	// FieldOperation names the extraction or evaluation step.
	FieldOperation = "operation"
	// FieldAttempt is the 1-based attempt counter of a retried call.
	FieldAttempt = "attempt"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	logger = OrNop(logger)

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields returns the provider and model fields, skipping empty values.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields attaches the provider and model fields to the logger.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// MatchFields describes one match run. Empty values are skipped.
func MatchFields(matchID, schemaName, postingID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldMatchID, Value: matchID},
		StringField{Key: FieldSchema, Value: schemaName},
		StringField{Key: FieldPostingID, Value: postingID},
	)
}
