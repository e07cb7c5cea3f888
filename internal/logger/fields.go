package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldUser is the structured log field key for the signed-in user's display name.
	FieldUser = "user"
	// FieldEndpoint is the structured log field key for the backend endpoint.
	FieldEndpoint = "endpoint"
	// FieldStep is the structured log field key for the hiring funnel step.
	FieldStep = "funnel_step"
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

// WithFields safely attaches the provided fields to the logger.
// If the logger is nil or no fields are supplied, the input logger is returned
// unchanged, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// SessionFields returns the fields describing who is signed in and which backend is used.
// Empty values are ignored to keep log entries compact when information is missing.
func SessionFields(user, endpoint string) []zap.Field {
	return StringFields(
		StringField{Key: FieldUser, Value: user},
		StringField{Key: FieldEndpoint, Value: endpoint},
	)
}

// WithSessionFields attaches the session fields to the provided logger.
func WithSessionFields(logger *zap.Logger, user, endpoint string) *zap.Logger {
	return WithFields(logger, SessionFields(user, endpoint)...)
}
