// Package logging builds the request logger.
//
// The terminal belongs to the TUI and to command output, so log records only
// go to a file, and only when the user asked for them.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/diogo/chatclient/internal/config"
)

// Logger pairs a zerolog logger with the file backing it
type Logger struct {
	zerolog.Logger
	closer io.Closer
	path   string
}

// Nop returns a disabled logger
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// New opens the log file for cfg. Logging is disabled unless cfg.Verbose or
// cfg.LogFile is set, in which case a Nop logger is returned.
func New(cfg config.Config) (*Logger, error) {
	if !cfg.LoggingEnabled() {
		return Nop(), nil
	}

	path, err := config.GetLogPath(cfg)
	if err != nil {
		return Nop(), errors.Wrap(err, "failed to resolve log path")
	}
	return Open(path, levelFor(cfg))
}

// Open appends JSON log records to path at the given level
func Open(path string, level zerolog.Level) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Nop(), errors.Wrap(err, "failed to create log directory")
	}

	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return Nop(), errors.Wrapf(err, "failed to open log file %s", path)
	}

	logger := zerolog.New(logFile).Level(level).With().Timestamp().Logger()
	return &Logger{Logger: logger, closer: logFile, path: path}, nil
}

// Path returns the file being written, or "" for a Nop logger
func (l *Logger) Path() string {
	return l.path
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

func levelFor(cfg config.Config) zerolog.Level {
	if cfg.Verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
