package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/genricoloni/versecast/internal/config"
	"go.uber.org/fx"
)

// isolate points every path the app touches at temporary directories
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigFile, filepath.Join(dir, "missing.yaml"))
	t.Setenv(config.EnvDataDir, filepath.Join(dir, "data"))
	t.Setenv(config.EnvOutputDir, filepath.Join(dir, "out"))
	t.Setenv(config.EnvLogLevel, "error")
}

// TestAppGraphValidity verifies that the dependency graph is resolvable.
// This test will fail if you forget an fx.Provide for a required interface.
func TestAppGraphValidity(t *testing.T) {
	if err := fx.ValidateApp(AppOptions); err != nil {
		t.Errorf("Dependency graph is not valid: %v", err)
	}
}

// TestNewLogger verifies the logger configuration
func TestNewLogger(t *testing.T) {
	tests := []struct {
		name          string
		logging       config.LoggingConfig
		expectedError string
	}{
		{name: "Console", logging: config.LoggingConfig{Level: "info", Format: "console"}},
		{name: "JSON", logging: config.LoggingConfig{Level: "debug", Format: "json"}},
		{name: "EmptyFormat", logging: config.LoggingConfig{Level: "warn"}},
		{name: "InvalidLevel", logging: config.LoggingConfig{Level: "loud"}, expectedError: "invalid log level"},
		{name: "InvalidFormat", logging: config.LoggingConfig{Level: "info", Format: "xml"}, expectedError: "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Logging = tt.logging

			logger, err := newLogger(cfg)
			if tt.expectedError != "" {
				if err == nil || !strings.Contains(err.Error(), tt.expectedError) {
					t.Fatalf("Expected error containing %q, got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to create logger: %v", err)
			}
			if logger == nil {
				t.Fatal("Logger should not be nil")
			}
			logger.Info("Test logger initialization")
		})
	}
}

func TestNewLogger_RotatedFile(t *testing.T) {
	cfg := config.Defaults()
	cfg.Logging = config.LoggingConfig{
		Level:  "info",
		Format: "console",
		File:   filepath.Join(t.TempDir(), "logs", "versecast.log"),
	}

	logger, err := newLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	logger.Info("written to file")
	_ = logger.Sync()

	data, err := os.ReadFile(cfg.Logging.File)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file content %q", data)
	}
}

// TestEndToEndStartup tries a real startup/stop in a controlled environment
func TestEndToEndStartup(t *testing.T) {
	isolate(t)

	app := fx.New(
		AppOptions,
		fx.NopLogger, // Silence Fx logs during tests
	)
	if err := app.Err(); err != nil {
		t.Fatalf("App failed to build: %v", err)
	}

	if err := app.Start(t.Context()); err != nil {
		t.Fatalf("App failed to start: %v", err)
	}
	if _, err := os.Stat(os.Getenv(config.EnvDataDir)); err != nil {
		t.Errorf("data directory not created: %v", err)
	}
	if err := app.Stop(t.Context()); err != nil {
		t.Fatalf("App failed to stop: %v", err)
	}
}
