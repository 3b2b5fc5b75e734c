// Package logging provides the leveled console logger used by the CLI and
// the server. It keeps a printf-style API (Info, Success, Warn, Error,
// Debug) on top of zerolog so that component loggers can carry structured
// fields and the optional log file receives JSON lines.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/backmassage/reelfix/internal/config"
	"github.com/backmassage/reelfix/internal/term"
)

// Logger provides leveled, optionally colored logging with an optional
// file sink. A nil *Logger discards everything.
type Logger struct {
	zl zerolog.Logger

	mu   sync.Mutex
	file *os.File
}

// NewLogger configures terminal colors from cfg, builds the console writer
// (human-readable or JSON) and opens cfg.LogFile when set. Call Close when
// done if LogFile was set.
func NewLogger(cfg *config.Config) (*Logger, error) {
	color := term.Configure(cfg.ColorMode)

	var console io.Writer = os.Stdout
	if cfg.LogFormat != config.LogJSON {
		console = zerolog.ConsoleWriter{
			Out:        term.Stdout(),
			NoColor:    !color,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}

	l := &Logger{}
	writers := []io.Writer{console}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		writers = append(writers, f)
	}

	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	l.zl = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().
		Logger()
	return l, nil
}

// New returns a Logger writing JSON lines to w at the given level. Used by
// tests and by callers that manage their own sink.
func New(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) z() *zerolog.Logger {
	if l == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return &l.zl
}

// With returns a child logger that adds key=val to every entry. The child
// shares the parent's sinks; only the parent closes the file.
func (l *Logger) With(key string, val any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{zl: l.zl.With().Interface(key, val).Logger()}
}

// Component is shorthand for With("component", name).
func (l *Logger) Component(name string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{zl: l.zl.With().Str("component", name).Logger()}
}

// Zerolog exposes the underlying logger for packages that take a
// zerolog.Logger directly (the executor, the HTTP middleware).
func (l *Logger) Zerolog() zerolog.Logger {
	return *l.z()
}

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...any) {
	l.z().Info().Msgf(format, args...)
}

// Success logs at INFO level tagged status=ok.
func (l *Logger) Success(format string, args ...any) {
	l.z().Info().Str("status", "ok").Msgf(format, args...)
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, args ...any) {
	l.z().Warn().Msgf(format, args...)
}

// Error logs at ERROR level.
func (l *Logger) Error(format string, args ...any) {
	l.z().Error().Msgf(format, args...)
}

// Debug logs at DEBUG level; dropped unless the logger was built verbose.
func (l *Logger) Debug(format string, args ...any) {
	l.z().Debug().Msgf(format, args...)
}

// Elapsed logs msg at INFO with the duration since start attached.
func (l *Logger) Elapsed(start time.Time, format string, args ...any) {
	l.z().Info().Dur("elapsed", time.Since(start)).Msgf(format, args...)
}
