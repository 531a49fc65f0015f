package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/petems/micclips/internal/config"
)

// Options controls where log output goes.
type Options struct {
	Level string
	// Console mirrors log lines to stderr. Off while the full-screen terminal
	// UI owns the screen.
	Console bool
	// Path overrides the platform log file location.
	Path string
}

// New creates a zerolog logger writing to a rotating log file and,
// optionally, the console.
func New(opts Options) zerolog.Logger {
	logPath := opts.Path
	if logPath == "" {
		logPath = config.LogPath()
	}

	writers := make([]io.Writer, 0, 2)
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err == nil {
		writers = append(writers, &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	if opts.Console || len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	multi := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(multi).
		Level(ParseLevel(opts.Level)).
		With().Timestamp().Caller().Logger()
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
