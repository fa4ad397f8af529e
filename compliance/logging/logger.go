// Package logging provides structured logging for the compliance runtime,
// adapted from the embedding platform's own logrus-based logger. Fields
// that could carry subject PII or key material are passed through
// compliance/redaction before they reach the sink.
package logging

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meridian-dispatch/compliance-core/compliance/config"
	"github.com/meridian-dispatch/compliance-core/compliance/redaction"
)

type contextKey string

const traceIDKey contextKey = "compliance_trace_id"

// Logger wraps logrus.Logger with a fixed component name and redaction.
type Logger struct {
	*logrus.Logger
	component string
	redactor  *redaction.Redactor
}

// New creates a Logger for the given component ("erasure", "keymanagement", ...).
func New(component, level, format string) *Logger {
	logger := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}
	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, component: component, redactor: redaction.NewRedactor(redaction.DefaultConfig())}
}

// NewFromEnv builds a logger from LOG_LEVEL/LOG_FORMAT, defaulting to
// info level and a format chosen by the deployment environment: "text"
// in Development (readable on a terminal), "json" everywhere else.
func NewFromEnv(component string) *Logger {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	format := os.Getenv("LOG_FORMAT")
	if format == "" {
		if config.IsDevelopment() {
			format = "text"
		} else {
			format = "json"
		}
	}
	return New(component, level, format)
}

// WithTrace attaches a trace id to the context for downstream log correlation.
func WithTrace(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func traceFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(traceIDKey).(string)
	return v, ok
}

func (l *Logger) entry(ctx context.Context) *logrus.Entry {
	e := l.Logger.WithField("component", l.component)
	if traceID, ok := traceFromContext(ctx); ok {
		e = e.WithField("trace_id", traceID)
	}
	return e
}

func (l *Logger) fields(fields map[string]interface{}) logrus.Fields {
	redacted := l.redactor.RedactMap(fields)
	out := make(logrus.Fields, len(redacted))
	for k, v := range redacted {
		out[k] = v
	}
	return out
}

func (l *Logger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx).WithFields(l.fields(fields)).Info(message)
}

func (l *Logger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx).WithFields(l.fields(fields)).Warn(message)
}

func (l *Logger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx).WithFields(l.fields(fields)).Debug(message)
}

func (l *Logger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	e := l.entry(ctx).WithFields(l.fields(fields))
	if err != nil {
		e = e.WithField("error", err.Error())
	}
	e.Error(message)
}

// LogAudit emits a structured audit line for a compliance-relevant action
// (erasure scheduled/executed, legal hold applied, key rotated, ...).
func (l *Logger) LogAudit(ctx context.Context, action, resource, resourceID, result string, fields map[string]interface{}) {
	merged := l.fields(fields)
	merged["action"] = action
	merged["resource"] = resource
	merged["resource_id"] = resourceID
	merged["result"] = result
	merged["audit"] = true
	l.entry(ctx).WithFields(merged).Info("compliance audit event")
}

// LogSecurityEvent emits a warn-level security event (e.g. FIPS violation,
// repeated failover, auth-tag mismatch).
func (l *Logger) LogSecurityEvent(ctx context.Context, eventType string, fields map[string]interface{}) {
	merged := l.fields(fields)
	merged["event_type"] = eventType
	merged["severity"] = "security"
	l.entry(ctx).WithFields(merged).Warn("compliance security event")
}

var defaultLogger *Logger

// Default returns a lazily-initialized package-wide logger. The embedding
// application is expected to construct its own Loggers via New/NewFromEnv;
// Default exists only as a fallback for library code with no injected logger.
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New("compliance", "info", "json")
	}
	return defaultLogger
}
