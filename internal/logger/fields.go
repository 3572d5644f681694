package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the extraction provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the model identifier.
	FieldModel = "ai_model"
	// FieldFile names the source document being processed.
	FieldFile = "file"
	// FieldEmployer is the experience id of the employer.
	FieldEmployer = "employer_id"
	FieldTitle    = "title"
	FieldRunID    = "run_id"
	// FieldText carries achievement text, shortened with TruncateForLog.
	FieldText = "text"
	// FieldRawResponse carries a full unusable service payload.
	FieldRawResponse = "raw_response"
)

// TextLimit is how much achievement text ends up in a log entry.
const TextLimit = 80

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

// WithFields attaches the provided fields to the logger.
// A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields returns fields that describe the extraction provider and model.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// PositionFields identifies a position in log entries.
func PositionFields(employerID, title string) []zap.Field {
	return StringFields(
		StringField{Key: FieldEmployer, Value: employerID},
		StringField{Key: FieldTitle, Value: title},
	)
}

// DocumentFields identifies a source document in log entries.
func DocumentFields(name string) []zap.Field {
	return StringFields(StringField{Key: FieldFile, Value: name})
}

// Text is the achievement text field, truncated to TextLimit.
func Text(s string) zap.Field {
	return zap.String(FieldText, TruncateForLog(s, TextLimit))
}
