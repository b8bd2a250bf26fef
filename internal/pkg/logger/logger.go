// Package logger provides structured logging utilities.
package logger

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with additional context.
type Logger struct {
	*slog.Logger
}

// New creates a new logger with the specified level and format.
func New(level, format string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithSource returns a logger with data source context.
func (l *Logger) WithSource(source string) *Logger {
	return &Logger{
		Logger: l.With("source", source),
	}
}

// WithKeyword returns a logger with keyword context.
func (l *Logger) WithKeyword(keyword, department string) *Logger {
	return &Logger{
		Logger: l.With("keyword", keyword, "department", department),
	}
}

// WithError returns a logger with error context.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.With("error", err.Error()),
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the default logger.
func Default() *Logger {
	return New("info", "text")
}
