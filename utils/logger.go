package utils

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides leveled printf-style logging on top of zerolog.
type Logger struct {
	zl zerolog.Logger
}

// NewLoggerWithOptions creates a Logger writing to stderr.
// If debug is true the level is Debug, otherwise Info.
// If human is true a console writer is used instead of JSON.
func NewLoggerWithOptions(debug, human bool) *Logger {
	var out io.Writer = os.Stderr
	if human {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}
	}
	return newLogger(out, debug)
}

// NewLoggerTo creates a JSON Logger writing to w. Used by tests.
func NewLoggerTo(w io.Writer, debug bool) *Logger {
	return newLogger(w, debug)
}

func newLogger(w io.Writer, debug bool) *Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// With returns a child Logger carrying an extra string field.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

// Request logs one served HTTP request.
func (l *Logger) Request(method, path string, status int, latency time.Duration) {
	l.zl.Info().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("latency", latency).
		Msg("request")
}
