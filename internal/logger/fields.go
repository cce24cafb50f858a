package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldPersonID is the structured log field key for the person being matched.
	FieldPersonID = "person_id"
	// FieldOccupationID is the structured log field key for the occupation or category.
	FieldOccupationID = "occupation_id"
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
	logger = OrNop(logger)

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields returns the fields that identify a matching request.
// Empty values are ignored to keep log entries compact.
func CommonFields(personID, occupationID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldPersonID, Value: personID},
		StringField{Key: FieldOccupationID, Value: occupationID},
	)
}

// WithCommonFields attaches the request identifying fields to the provided logger.
func WithCommonFields(logger *zap.Logger, personID, occupationID string) *zap.Logger {
	return WithFields(logger, CommonFields(personID, occupationID)...)
}
