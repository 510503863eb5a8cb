package slogutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FractalBrew/geckocpp/internal/config"
)

func TestFactory_Level(t *testing.T) {
	tests := []struct {
		name     string
		cliLevel string
		cfgLevel string
		expected slog.Level
	}{
		{"default", "", "", slog.LevelInfo},
		{"from config", "", "warn", slog.LevelWarn},
		{"from flag", "debug", "", slog.LevelDebug},
		{"flag beats config", "error", "debug", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFactory(config.LoggingConfig{Level: tt.cfgLevel}, tt.cliLevel)
			if got := f.Level(); got != tt.expected {
				t.Errorf("Level() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFactory_CLILogger(t *testing.T) {
	f := NewFactory(config.LoggingConfig{}, "")
	if f.CLILogger() == nil {
		t.Fatal("CLILogger returned nil")
	}
}

func TestFactory_ServeLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "serve.log")
	f := NewFactory(config.LoggingConfig{File: path}, "")

	logger := f.ServeLogger(false)
	logger.Info("server ready", "folders", 2)

	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "server ready") {
		t.Errorf("log file missing record, got: %s", data)
	}
	if !strings.Contains(string(data), "folders=2") {
		t.Errorf("log file missing attrs, got: %s", data)
	}
}

func TestFactory_ServeLogger_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serve.log")
	f := NewFactory(config.LoggingConfig{File: path, MaxSizeKB: 1, MaxBackups: 2}, "")

	logger := f.ServeLogger(false)
	logger.Info("rotated sink")

	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file should exist: %v", err)
	}
}

func TestFactory_ServeLogger_RespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serve.log")
	f := NewFactory(config.LoggingConfig{File: path}, "error")

	logger := f.ServeLogger(false)
	logger.Info("quiet please")
	logger.Error("something broke")

	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if strings.Contains(string(data), "quiet please") {
		t.Error("info record should have been filtered")
	}
	if !strings.Contains(string(data), "something broke") {
		t.Error("error record should have been written")
	}
}

func TestFactory_CloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serve.log")
	f := NewFactory(config.LoggingConfig{File: path}, "")
	f.ServeLogger(false)

	if err := f.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
