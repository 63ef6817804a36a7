// Package logger defines the structured logging contract used across the
// service. The production implementation (zap-backed) lives in
// internal/infrastructure/monitoring; this package keeps the domain and
// application layers free of a direct zap dependency.
package logger

import (
	"context"
	"strings"
	"time"
)

// ================================================================================
// Field
// ================================================================================

// Field is a key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field { return Field{Key: key, Value: value} }

// Int creates an int field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Int64 creates an int64 field.
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

// Float64 creates a float64 field.
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

// Bool creates a bool field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Duration creates a duration field rendered as a string.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Time creates an RFC3339 time field.
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.RFC3339)}
}

// Any creates a field of arbitrary type.
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// ================================================================================
// Logger Interface
// ================================================================================

// Logger is the structured, context-aware logging interface. Implementations
// extract trace and request identifiers from the context.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, err error, fields ...Field)
	Fatal(ctx context.Context, msg string, err error, fields ...Field)

	// WithComponent returns a logger scoped to a named component.
	WithComponent(component string) Logger

	// WithFields returns a logger that attaches fields to every entry.
	WithFields(fields ...Field) Logger
}

// ================================================================================
// Sensitive Value Redaction
// ================================================================================

var sensitiveKeys = []string{
	"password", "secret", "token", "api_key", "authorization", "signature",
}

// Sanitize masks values for keys that look credential-bearing. Implementations
// call it before serializing fields.
func Sanitize(key string, value interface{}) interface{} {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			if str, ok := value.(string); ok && len(str) > 8 {
				return str[:4] + "***" + str[len(str)-4:]
			}
			return "***REDACTED***"
		}
	}
	return value
}
