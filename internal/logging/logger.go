package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a thin wrapper over slog with helpers used across handlers
type Logger struct {
	*slog.Logger
}

// Options controls handler format, level and optional file output
type Options struct {
	Development bool
	Level       string
	File        string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
}

// NewLogger creates a logger writing to stdout.
// Development mode uses a text handler at debug level, otherwise JSON at info.
func NewLogger(development bool) *Logger {
	return New(Options{Development: development})
}

// New creates a logger from options. When File is set, output is tee'd
// into a size-rotated log file.
func New(opts Options) *Logger {
	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
			Compress:   true,
		})
	}
	return NewWithWriter(out, opts)
}

// NewWithWriter builds a logger over an arbitrary writer
func NewWithWriter(w io.Writer, opts Options) *Logger {
	level := ParseLevel(opts.Level)
	if opts.Development && opts.Level == "" {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.Development {
		handler = slog.NewTextHandler(w, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// WithFields returns a child logger carrying the given attributes
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.With(args...)}
}

// NewStdLogger adapts l for APIs that want a *log.Logger, such as http.Server.ErrorLog
func NewStdLogger(l *Logger) *log.Logger {
	return slog.NewLogLogger(l.Handler(), slog.LevelError)
}

// ParseLevel maps a level name to slog.Level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
