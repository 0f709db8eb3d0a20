// Package logging provides structured logging whose context extraction
// is aware of the runtime's event scope stack, so a log line emitted
// from inside a callable invocation or event dispatch automatically
// carries the enclosing parent/root event identifiers.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys used by this package.
type ContextKey string

const (
	// ScopeKey is the context key under which the event scope stack is
	// stored (internal/event pushes its scope nodes under this key).
	ScopeKey ContextKey = "event_scope"
	// ServiceKey is the context key for component name overrides.
	ServiceKey ContextKey = "component"
)

// ScopeFields is implemented by whatever value lives under ScopeKey in
// a context.Context (internal/event's scope stack satisfies this
// without pkg/logging importing internal/event, avoiding an import
// cycle between the ambient and core layers).
type ScopeFields interface {
	LogFields() map[string]any
}

// Logger wraps logrus.Logger with component-name tagging and
// scope-aware context extraction.
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a new Logger instance for the given component.
func New(component, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, component: component}
}

// NewFromEnv constructs a logger using LOG_LEVEL and LOG_FORMAT
// environment variables. Defaults to "info" and "json" when unset.
func NewFromEnv(component string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(component, level, format)
}

// WithContext builds a logrus entry carrying the component name plus
// any event-scope fields found in ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component)

	if scope, ok := ctx.Value(ScopeKey).(ScopeFields); ok && scope != nil {
		for k, v := range scope.LogFields() {
			entry = entry.WithField(k, v)
		}
	}
	if service, ok := ctx.Value(ServiceKey).(string); ok && service != "" {
		entry = entry.WithField("service", service)
	}

	return entry
}

// WithFields creates a new logger entry with custom fields.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["component"] = l.component
	return l.Logger.WithFields(fields)
}

// WithError creates a new logger entry carrying an error field.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"component": l.component,
		"error":     err.Error(),
	})
}

// SetOutput sets the logger output.
func (l *Logger) SetOutput(output io.Writer) {
	l.Logger.SetOutput(output)
}

// WithService tags the context with a service/consumer name (distinct
// from component, which names the runtime package doing the logging).
func WithService(ctx context.Context, service string) context.Context {
	return context.WithValue(ctx, ServiceKey, service)
}

// GetService retrieves the service name from context, if any.
func GetService(ctx context.Context) string {
	if service, ok := ctx.Value(ServiceKey).(string); ok {
		return service
	}
	return ""
}

// NewCorrelationID mints a fresh identifier suitable for a request or
// invocation trace that is not itself an entity or event id.
func NewCorrelationID() string {
	return uuid.New().String()
}

// Structured logging helpers

// LogInvocation logs the completion of a callable invocation.
func (l *Logger) LogInvocation(ctx context.Context, name string, duration time.Duration, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"callable":    name,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("invocation failed")
		return
	}
	entry.Info("invocation completed")
}

// LogClassification logs the semantic classification outcome of one
// returned entity.
func (l *Logger) LogClassification(ctx context.Context, ecsID, outcome string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"ecs_id":  ecsID,
		"outcome": outcome,
	}).Debug("output classified")
}

// LogAddressResolution logs an address resolution attempt.
func (l *Logger) LogAddressResolution(ctx context.Context, address string, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{"address": address})
	if err != nil {
		entry.WithError(err).Warn("address resolution failed")
		return
	}
	entry.Debug("address resolved")
}

// LogEventEmit logs an event being emitted on the bus.
func (l *Logger) LogEventEmit(ctx context.Context, kind, id, parentID string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"event_kind": kind,
		"event_id":   id,
		"parent_id":  parentID,
	}).Debug("event emitted")
}

// LogRetentionSweep logs the outcome of a retention sweep pass.
func (l *Logger) LogRetentionSweep(ctx context.Context, executionsDropped, eventsDropped int) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"executions_dropped": executionsDropped,
		"events_dropped":     eventsDropped,
	}).Info("retention sweep completed")
}

// Debug/Info/Warn/Error convenience wrappers, context-aware.

func (l *Logger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	if l.Logger.Level >= logrus.DebugLevel {
		l.WithContext(ctx).WithFields(fields).Debug(message)
	}
}

func (l *Logger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(fields).Info(message)
}

func (l *Logger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(fields).Warn(message)
}

func (l *Logger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	entry := l.WithContext(ctx)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.WithFields(fields).Error(message)
}

// Global default logger, lazily initialized.

var defaultLogger *Logger

// InitDefault initializes the package-level default logger.
func InitDefault(component, level, format string) {
	defaultLogger = New(component, level, format)
}

// Default returns the default logger, creating a fallback if unset.
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New("entityflow", "info", "json")
	}
	return defaultLogger
}

// FormatDuration renders a duration as milliseconds with two decimals
// (e.g. "1.50ms").
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
}
