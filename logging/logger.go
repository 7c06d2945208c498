// Package logging provides a minimal logging interface and adapters so the
// optimization pipeline can depend on a tiny contract (Logger) while callers
// plug in any structured logger. A slog-backed implementation with run-scoped
// helpers for model calls, tool calls and iterations is included.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Level is a thin enum for user friendly level configuration decoupled from slog.
type Level int

const (
	// LevelDebug is the debug logging level.
	LevelDebug Level = iota
	// LevelInfo is the informational logging level.
	LevelInfo
	// LevelWarn is the warning logging level.
	LevelWarn
	// LevelError is the error logging level.
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level. Unknown values fall back to
// info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger defines the minimal logging interface used throughout allocmesh.
// Args follow the slog key/value convention.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{Logger: logger}
}

// Config configures construction of a slog-backed logger.
type Config struct {
	Level  Level
	Format string // "json" or "text"
	Output io.Writer
}

// DefaultConfig returns a baseline text info-level configuration writing to
// stderr, keeping stdout free for the optimization result.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Format: "text", Output: os.Stderr}
}

// New builds a Logger from a config.
func New(cfg Config) Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}
	return NewSlogAdapter(slog.New(handler))
}

// NoOpLogger discards all log messages. Useful for tests.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// RunLogger decorates a Logger with the identifiers of a single optimization
// run and offers domain helpers. It is cheap to copy and safe to share.
type RunLogger struct {
	Logger
	runID string
}

// ForRun attaches a run identifier to every entry written through the helpers.
func ForRun(l Logger, runID string) *RunLogger {
	if l == nil {
		l = NoOpLogger{}
	}
	return &RunLogger{Logger: l, runID: runID}
}

// RunID returns the run identifier this logger is scoped to.
func (l *RunLogger) RunID() string { return l.runID }

// LogModelCall records latency and outcome of one model invocation.
func (l *RunLogger) LogModelCall(agent, modelName string, dur time.Duration, err error) {
	if err != nil {
		l.Error("model call failed", "run_id", l.runID, "agent", agent, "model", modelName,
			"duration_ms", dur.Milliseconds(), "error", err.Error())
		return
	}
	l.Info("model call completed", "run_id", l.runID, "agent", agent, "model", modelName,
		"duration_ms", dur.Milliseconds())
}

// LogToolCall records execution details for a tool invocation.
func (l *RunLogger) LogToolCall(tool string, dur time.Duration, err error) {
	if err != nil {
		l.Error("tool call failed", "run_id", l.runID, "tool", tool,
			"duration_ms", dur.Milliseconds(), "error", err.Error())
		return
	}
	l.Info("tool call completed", "run_id", l.runID, "tool", tool,
		"duration_ms", dur.Milliseconds())
}

// LogIteration records the outcome of one optimization iteration.
func (l *RunLogger) LogIteration(iteration int, cost float64, approvals int) {
	l.Info("iteration completed", "run_id", l.runID, "iteration", iteration,
		"total_cost", cost, "approvals", approvals)
}
