package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// consoleTimeFormat is the short timestamp used by the human-readable writer.
const consoleTimeFormat = "15:04:05.000"

// StructuredLogger writes leveled JSON lines through zerolog.
// Use it when logs are collected by a machine rather than read in a terminal.
type StructuredLogger struct {
	zl zerolog.Logger
}

// NewStructuredLogger creates a JSON logger writing to w.
// Debug messages are dropped unless debug is true.
func NewStructuredLogger(w io.Writer, debug bool) *StructuredLogger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return &StructuredLogger{
		zl: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

// NewPrettyLogger creates a zerolog logger with colored console output.
func NewPrettyLogger(w io.Writer, debug bool) *StructuredLogger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	return NewStructuredLogger(cw, debug)
}

// With returns a child logger that tags every entry with key=value.
func (s *StructuredLogger) With(key, value string) *StructuredLogger {
	return &StructuredLogger{zl: s.zl.With().Str(key, value).Logger()}
}

func (s *StructuredLogger) Debug(format string, args ...interface{}) {
	s.zl.Debug().Msgf(format, args...)
}

func (s *StructuredLogger) Info(format string, args ...interface{}) {
	s.zl.Info().Msgf(format, args...)
}

func (s *StructuredLogger) Warning(format string, args ...interface{}) {
	s.zl.Warn().Msgf(format, args...)
}

func (s *StructuredLogger) Error(format string, args ...interface{}) {
	s.zl.Error().Msgf(format, args...)
}

// Close is a no-op; the caller owns the underlying writer.
func (s *StructuredLogger) Close() error {
	return nil
}

var _ Logger = (*StructuredLogger)(nil)
