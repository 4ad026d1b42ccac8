// Package logging wraps zerolog with the field-chaining API the rest of
// this codebase expects (WithComponent/WithTraceID/WithField/...), so every
// package logs structured JSON without each call site touching zerolog
// directly.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level       string `json:"level"`
	Output      string `json:"output"` // "stdout", "stderr", or file path
	Component   string `json:"component"`
	IncludeFile bool   `json:"include_file"` // include caller file:line
	Pretty      bool   `json:"pretty"`       // human-readable console writer instead of JSON
}

// Logger wraps a zerolog.Logger carrying a component and trace ID.
type Logger struct {
	zl        zerolog.Logger
	component string
	traceID   string
}

var (
	defaultLogger *Logger
	once          sync.Once
)

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// New creates a new logger with the given configuration.
func New(cfg *Config) *Logger {
	var output io.Writer = os.Stdout
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			output = file
		}
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zl := zerolog.New(output).With().Timestamp().Logger().Level(parseLevel(cfg.Level))
	if cfg.IncludeFile {
		zl = zl.With().CallerWithSkipFrameCount(3).Logger()
	}
	if cfg.Component != "" {
		zl = zl.With().Str("component", cfg.Component).Logger()
	}

	return &Logger{zl: zl, component: cfg.Component}
}

// Default returns the default logger instance, reading LOG_LEVEL/LOG_FORMAT
// from the environment the first time it's needed.
func Default() *Logger {
	once.Do(func() {
		pretty := strings.EqualFold(os.Getenv("LOG_FORMAT"), "console")
		level := os.Getenv("LOG_LEVEL")
		if level == "" {
			level = "info"
		}
		defaultLogger = New(&Config{Level: level, Output: "stdout", Component: "app", Pretty: pretty})
	})
	return defaultLogger
}

// SetDefault replaces the default logger, used by the root main.go once
// the config is loaded.
func SetDefault(l *Logger) {
	defaultLogger = l
}

// WithComponent returns a new logger tagged with the given component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger(), component: component, traceID: l.traceID}
}

// WithTraceID returns a new logger tagged with the given trace/correlation ID.
func (l *Logger) WithTraceID(traceID string) *Logger {
	return &Logger{zl: l.zl.With().Str("trace_id", traceID).Logger(), component: l.component, traceID: traceID}
}

// WithField returns a new logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger(), component: l.component, traceID: l.traceID}
}

// WithFields returns a new logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger(), component: l.component, traceID: l.traceID}
}

// WithError returns a new logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{zl: l.zl.With().Err(err).Logger(), component: l.component, traceID: l.traceID}
}

// WithDuration returns a new logger with a duration field.
func (l *Logger) WithDuration(d time.Duration) *Logger {
	return &Logger{zl: l.zl.With().Dur("duration", d).Logger(), component: l.component, traceID: l.traceID}
}

// Zerolog exposes the underlying zerolog.Logger for packages (gin middleware,
// pgx tracers) that want to plug into it directly.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func (l *Logger) Debug(msg string, args ...interface{}) { logWithArgs(l.zl.Debug(), msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { logWithArgs(l.zl.Info(), msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { logWithArgs(l.zl.Warn(), msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { logWithArgs(l.zl.Error(), msg, args...) }
func (l *Logger) Fatal(msg string, args ...interface{}) { logWithArgs(l.zl.Fatal(), msg, args...) }

// logWithArgs accepts either printf-style varargs or structured key-value
// pairs (even count, string keys) — the latter is how most call sites in
// this codebase pass extra context.
func logWithArgs(evt *zerolog.Event, msg string, args ...interface{}) {
	if len(args) == 0 {
		evt.Msg(msg)
		return
	}
	if len(args)%2 == 0 {
		if _, ok := args[0].(string); ok {
			for i := 0; i < len(args); i += 2 {
				key, ok := args[i].(string)
				if !ok {
					continue
				}
				if err, isErr := args[i+1].(error); isErr {
					evt = evt.AnErr(key, err)
				} else {
					evt = evt.Interface(key, args[i+1])
				}
			}
			evt.Msg(msg)
			return
		}
	}
	evt.Msgf(msg, args...)
}

// Package-level helpers against the default logger.

func Debug(msg string, args ...interface{}) { Default().Debug(msg, args...) }
func Info(msg string, args ...interface{})  { Default().Info(msg, args...) }
func Warn(msg string, args ...interface{})  { Default().Warn(msg, args...) }
func Error(msg string, args ...interface{}) { Default().Error(msg, args...) }
func Fatal(msg string, args ...interface{}) { Default().Fatal(msg, args...) }

func WithComponent(component string) *Logger           { return Default().WithComponent(component) }
func WithTraceID(traceID string) *Logger                { return Default().WithTraceID(traceID) }
func WithField(key string, value interface{}) *Logger   { return Default().WithField(key, value) }
func WithFields(fields map[string]interface{}) *Logger  { return Default().WithFields(fields) }
func WithError(err error) *Logger                        { return Default().WithError(err) }
