package slogutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/FractalBrew/geckocpp/internal/config"
)

// Factory builds the loggers geckocpp's entry points need. It respects
// the precedence: CLI flag > config > default (info), and tracks opened
// log files so they can be closed on shutdown.
type Factory struct {
	cfg      config.LoggingConfig
	cliLevel string
	closers  []io.Closer
}

// NewFactory creates a logger factory. cliLevel is the --log-level flag
// value; empty means not set.
func NewFactory(cfg config.LoggingConfig, cliLevel string) *Factory {
	return &Factory{
		cfg:      cfg,
		cliLevel: cliLevel,
		closers:  make([]io.Closer, 0),
	}
}

// Level returns the effective log level.
func (f *Factory) Level() slog.Level {
	if f.cliLevel != "" {
		return LevelFromString(f.cliLevel)
	}
	if f.cfg.Level != "" {
		return LevelFromString(f.cfg.Level)
	}
	return slog.LevelInfo
}

// CLILogger builds the logger for one-shot commands. Diagnostics go to
// stderr so stdout stays clean for command output.
func (f *Factory) CLILogger() *slog.Logger {
	return NewLogger(os.Stderr, f.Level())
}

// ServeLogger builds the logger for the provider server. Records go to a
// log file, since stdout carries the protocol; when mirrorStderr is set
// they are teed to stderr as well. A file that cannot be opened degrades
// to stderr-only logging rather than failing the server.
func (f *Factory) ServeLogger(mirrorStderr bool) *slog.Logger {
	level := f.Level()

	path, err := f.logFilePath()
	if err == nil {
		err = os.MkdirAll(filepath.Dir(path), 0755)
	}

	var fileLogger *slog.Logger
	if err == nil {
		var closer io.Closer
		fileLogger, closer, err = f.createFileLogger(path, level)
		if err == nil {
			f.closers = append(f.closers, closer)
		}
	}

	if fileLogger == nil {
		return NewLogger(os.Stderr, level)
	}
	if mirrorStderr {
		return slog.New(fanout{fileLogger.Handler(), NewHandler(os.Stderr, level)})
	}
	return fileLogger
}

// logFilePath resolves the serve log location: the configured file or
// <user cache dir>/geckocpp/logs/serve.log.
func (f *Factory) logFilePath() (string, error) {
	if f.cfg.File != "" {
		return f.cfg.File, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache directory: %w", err)
	}
	return filepath.Join(base, "geckocpp", "logs", "serve.log"), nil
}

// createFileLogger wires in rotation when the config caps the file size.
func (f *Factory) createFileLogger(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if f.cfg.MaxSizeKB > 0 {
		w, err := newRotatingWriter(path, f.cfg.MaxSizeKB, f.cfg.MaxBackups)
		if err != nil {
			return nil, nil, err
		}
		return NewLogger(w, level), w, nil
	}
	return NewFileLogger(path, level)
}

// Close closes all open log files.
func (f *Factory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
