package config

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/warpdl/warpjs/pkg/logger"
)

// NewLogger builds the logger described by s, writing to w. When
// s.LogFile is set every entry is also appended to that file. The returned
// closer, if non-nil, must be closed once the logger is no longer used.
func NewLogger(s Settings, w io.Writer) (logger.Logger, io.Closer, error) {
	if s.LogFile == "" {
		return newSink(s, w), nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.LogFile), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(s.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	file := s
	if file.LogFormat == FormatPretty {
		// no colour codes in files
		file.LogFormat = FormatText
	}
	return logger.NewMultiLogger(newSink(s, w), newSink(file, f)), f, nil
}

func newSink(s Settings, w io.Writer) logger.Logger {
	switch s.LogFormat {
	case FormatJSON:
		return logger.NewStructuredLogger(w, s.Debug).With("app", "warpjs")
	case FormatPretty:
		return logger.NewPrettyLogger(w, s.Debug)
	default:
		return logger.NewStandardLogger(log.New(w, "warpjs: ", log.LstdFlags), s.Debug)
	}
}
