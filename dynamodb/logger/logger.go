// Package logger holds dynamate's process-wide slog logger. Logs go to
// stderr so stdout stays clean for query results.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// Config holds logger configuration
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // text, json
	AddSource bool
}

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// LevelFromVerbosity maps a -v count to a level name: none is warn, -v is
// info and -vv or more is debug.
func LevelFromVerbosity(count int) string {
	switch {
	case count <= 0:
		return "warn"
	case count == 1:
		return "info"
	default:
		return "debug"
	}
}

// New builds a logger writing to w.
func New(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Init initializes the global logger. Only the first call has an effect.
func Init(cfg Config) {
	once.Do(func() {
		logger = New(cfg, os.Stderr)
		slog.SetDefault(logger)
	})
}

// Get returns the global logger
func Get() *slog.Logger {
	Init(Config{Level: "warn", Format: "text"})
	return logger
}

// Helper functions for quick logging
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}

func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

// BadgerLogger adapts a slog logger to badger.Logger. Badger's info
// chatter is logged at debug.
type BadgerLogger struct {
	L *slog.Logger
}

func (b BadgerLogger) Errorf(format string, args ...any) {
	b.L.Error(trimf(format, args...), "component", "badger")
}

func (b BadgerLogger) Warningf(format string, args ...any) {
	b.L.Warn(trimf(format, args...), "component", "badger")
}

func (b BadgerLogger) Infof(format string, args ...any) {
	b.L.Debug(trimf(format, args...), "component", "badger")
}

func (b BadgerLogger) Debugf(format string, args ...any) {
	b.L.Debug(trimf(format, args...), "component", "badger")
}

func trimf(format string, args ...any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
