package log

import (
	"context"
	"log/slog"
)

// ContextKey type for context keys
type ContextKey string

// LoggerContextKey is the context key for the logger
const LoggerContextKey ContextKey = "logger"

// WithContext returns a copy of ctx carrying logger.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default().With(FieldComponent, "unknown"),
		base:      slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides structured logging methods for bot events
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogTransition logs one handled event at debug level
func (sl *StructuredLogger) LogTransition(ctx context.Context, userID, chatID int64, event, from, to string) {
	fields := NewFields().
		WithSender(userID, chatID).
		WithTransition(event, from, to).
		WithOperation(OpDispatch)
	sl.logger.DebugContext(ctx, "Event handled", fields.ToSlice()...)
}

// LogDenied logs an event dropped by the dispatch guard
func (sl *StructuredLogger) LogDenied(ctx context.Context, userID, chatID int64, reason string) {
	fields := NewFields().
		WithSender(userID, chatID).
		WithOperation(OpDispatch)
	sl.logger.WarnContext(ctx, reason, fields.ToSlice()...)
}

// LogSubmitted logs a successful submission
func (sl *StructuredLogger) LogSubmitted(ctx context.Context, userID int64, date, outflow, inflow, category, account, ref string) {
	fields := NewFields().
		WithTransaction(date, outflow, inflow, category, account).
		WithOperation(OpSubmit).
		ToSlice()
	fields = append(fields, FieldUserID, userID, FieldSheetsRef, ref)
	sl.logger.InfoContext(ctx, "Transaction submitted", fields...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)
	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
