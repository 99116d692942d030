package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"taxwise-hq/sentinel/pkg/config"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	// FormatJSON outputs one JSON object per line.
	FormatJSON LogFormat = "json"
	// FormatText outputs logfmt-style key=value lines.
	FormatText LogFormat = "text"
)

// Logger provides structured logging with PII redaction and a level that can
// be changed while the process runs.
type Logger struct {
	slog     *slog.Logger
	redactor *Redactor
	level    *slog.LevelVar
	format   LogFormat
}

// Config contains configuration for the Logger.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error")
	Level string

	// Format is the output format ("json", "text")
	Format string

	// AddSource includes file and line number in logs
	AddSource bool

	// RedactPII enables automatic PII redaction
	RedactPII bool

	// RedactPatterns contains custom PII redaction patterns
	RedactPatterns []config.RedactPattern

	// Writer is the output writer (defaults to os.Stdout)
	Writer io.Writer
}

// New creates a new Logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	var redactor *Redactor
	if cfg.RedactPII {
		redactor, err = NewRedactor(cfg.RedactPatterns)
		if err != nil {
			return nil, err
		}
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	opts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	return &Logger{
		slog:     slog.New(handler),
		redactor: redactor,
		level:    levelVar,
		format:   format,
	}, nil
}

// NewFromConfig creates a Logger from the logging section of the
// configuration file.
func NewFromConfig(cfg *config.LoggingConfig, w io.Writer) (*Logger, error) {
	return New(Config{
		Level:          cfg.Level,
		Format:         cfg.Format,
		AddSource:      cfg.AddSource,
		RedactPII:      cfg.RedactPII,
		RedactPatterns: cfg.RedactPatterns,
		Writer:         w,
	})
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	l, _ := New(Config{Level: "error", Format: "json", Writer: io.Discard})
	return l
}

// SetLevel changes the minimum level of this logger and every logger derived
// from it with With or WithContext.
func (l *Logger) SetLevel(level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	l.level.Set(lvl)
	return nil
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Enabled reports whether a record at level would be written.
func (l *Logger) Enabled(ctx context.Context, level slog.Level) bool {
	return l.slog.Enabled(ctx, level)
}

// Slog returns a *slog.Logger that shares this logger's handler and level.
// Records written through it bypass the redactor.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(context.Background(), slog.LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) {
	l.log(context.Background(), slog.LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(context.Background(), slog.LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	l.log(context.Background(), slog.LevelError, msg, args...)
}

// DebugContext logs a debug message with context fields.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelDebug, msg, args...)
}

// InfoContext logs an info message with context fields.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelInfo, msg, args...)
}

// WarnContext logs a warning message with context fields.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelWarn, msg, args...)
}

// ErrorContext logs an error message with context fields.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelError, msg, args...)
}

// Log writes a message at an arbitrary level, prepending the fields carried
// by ctx (correlation id, user, operation, trace and span ids). A key that
// args also sets is taken from args only.
func (l *Logger) Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.slog.Enabled(ctx, level) {
		return
	}
	ctxFields := dropKeys(extractContextFields(ctx), args)
	if len(ctxFields) > 0 {
		args = append(ctxFields, args...)
	}
	l.log(ctx, level, msg, args...)
}

// log applies redaction and writes through slog.
func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.slog.Enabled(ctx, level) {
		return
	}
	if l.redactor != nil {
		args = l.redactor.RedactArgs(args...)
	}
	l.slog.Log(ctx, level, msg, args...)
}

// With creates a new logger with additional fields.
func (l *Logger) With(args ...any) *Logger {
	if l.redactor != nil {
		args = l.redactor.RedactArgs(args...)
	}

	return &Logger{
		slog:     l.slog.With(args...),
		redactor: l.redactor,
		level:    l.level,
		format:   l.format,
	}
}

// WithContext creates a new logger carrying the fields found on ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	args := extractContextFields(ctx)
	if len(args) == 0 {
		return l
	}
	return l.With(args...)
}

// ParseLevel parses a level name as accepted by the configuration file.
func ParseLevel(levelStr string) (slog.Level, error) {
	return parseLevel(levelStr)
}

func parseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

func parseFormat(formatStr string) (LogFormat, error) {
	switch strings.ToLower(formatStr) {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", formatStr)
	}
}
