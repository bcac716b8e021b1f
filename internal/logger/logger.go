// Package logger provides structured logging configuration for the client and dev server.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in human-readable text format
	FormatText LogFormat = "text"
)

// New creates a structured logger writing to stderr, configured from LOG_LEVEL and LOG_FORMAT.
//
// LOG_LEVEL options: debug, info, warn, error (default: warn)
// LOG_FORMAT options: json, text (default: text)
//
// The CLI keeps stdout for command output, so logs go to stderr.
func New() *slog.Logger {
	return NewWithWriter(os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer) *slog.Logger {
	level := getLogLevel()

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var handler slog.Handler
	switch getLogFormat() {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case FormatText:
		fallthrough
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops every record. Used as the default for library constructors.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// getLogLevel parses LOG_LEVEL and returns the corresponding slog.Level
func getLogLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// getLogFormat parses LOG_FORMAT and returns the corresponding format
func getLogFormat() LogFormat {
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		return FormatJSON
	default:
		return FormatText
	}
}

// SetDefault sets the given logger as the default slog logger
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
