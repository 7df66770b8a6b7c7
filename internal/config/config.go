package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	defaultOutputDir      = "/tmp/versecast"
	defaultDataDir        = "~/.local/share/versecast"
	defaultFadeDelayMs    = 250
	defaultMaxVideoSec    = 60
	defaultProjectorIndex = -1
)

// Env var names used as overrides
const (
	EnvConfigFile       = "VERSECAST_CONFIG"
	EnvOutputDir        = "VERSECAST_OUTPUT_DIR"
	EnvDataDir          = "VERSECAST_DATA_DIR"
	EnvFadeDelayMs      = "VERSECAST_FADE_DELAY_MS"
	EnvProjectorDisplay = "VERSECAST_PROJECTOR_DISPLAY"
	EnvFontPath         = "VERSECAST_FONT"
	EnvDefaultVersion   = "VERSECAST_VERSION"
	EnvLogLevel         = "VERSECAST_LOG_LEVEL"
	EnvLogFormat        = "VERSECAST_LOG_FORMAT"
	EnvLogFile          = "VERSECAST_LOG_FILE"
)

// LoggingConfig controls the zap logger built at startup
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
	File   string `yaml:"file"`   // optional rotated log file
}

// AppConfig holds application configuration.
// Values come from defaults, then the YAML file, then environment variables.
type AppConfig struct {
	OutputDir             string        `yaml:"output_dir"`
	DataDir               string        `yaml:"data_dir"`
	FadeDelayMs           int           `yaml:"fade_delay_ms"`
	ProjectorDisplay      int           `yaml:"projector_display"`
	FontPath              string        `yaml:"font_path"`
	MaxBackgroundVideoSec int           `yaml:"max_background_video_sec"`
	DefaultVersion        string        `yaml:"default_version"`
	Logging               LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults
func Defaults() *AppConfig {
	return &AppConfig{
		OutputDir:             defaultOutputDir,
		DataDir:               expandHome(defaultDataDir),
		FadeDelayMs:           defaultFadeDelayMs,
		ProjectorDisplay:      defaultProjectorIndex,
		MaxBackgroundVideoSec: defaultMaxVideoSec,
		Logging:               LoggingConfig{Level: "info", Format: "console"},
	}
}

// DefaultPath returns the per-user config file location
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "versecast", "config.yaml")
}

// Load reads the optional YAML file and applies environment overrides.
// A missing file is not an error.
func Load() (*AppConfig, error) {
	cfg := Defaults()

	path := os.Getenv(EnvConfigFile)
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.readFile(expandHome(path)); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.OutputDir = expandHome(os.ExpandEnv(cfg.OutputDir))
	cfg.DataDir = expandHome(os.ExpandEnv(cfg.DataDir))
	cfg.FontPath = expandHome(cfg.FontPath)
	return cfg, nil
}

func (c *AppConfig) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() error {
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvFontPath); v != "" {
		c.FontPath = v
	}
	if v := os.Getenv(EnvDefaultVersion); v != "" {
		c.DefaultVersion = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv(EnvFadeDelayMs); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid %s=%q", EnvFadeDelayMs, v)
		}
		c.FadeDelayMs = n
	}
	if v := os.Getenv(EnvProjectorDisplay); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q", EnvProjectorDisplay, v)
		}
		c.ProjectorDisplay = n
	}
	return nil
}

// expandHome expands a leading ~ to the user's home directory
func expandHome(p string) string {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}

// LogFields logs the effective configuration
func (c *AppConfig) LogFields(logger *zap.Logger) {
	logger.Info("Configuration loaded",
		zap.String("outputDir", c.OutputDir),
		zap.String("dataDir", c.DataDir),
		zap.Int("fadeDelayMs", c.FadeDelayMs),
		zap.Int("projectorDisplay", c.ProjectorDisplay),
		zap.String("defaultVersion", c.DefaultVersion))
}

// GetOutputDir returns the directory projector frames are written to
func (c *AppConfig) GetOutputDir() string {
	return c.OutputDir
}

// GetDataDir returns the directory holding the library database
func (c *AppConfig) GetDataDir() string {
	return c.DataDir
}

// GetFadeDelay returns the fade-out delay of the transition sequencer
func (c *AppConfig) GetFadeDelay() time.Duration {
	return time.Duration(c.FadeDelayMs) * time.Millisecond
}

// GetProjectorDisplay returns the projector display index, -1 for automatic
func (c *AppConfig) GetProjectorDisplay() int {
	return c.ProjectorDisplay
}

// GetFontPath returns the configured font file, empty for the bundled face
func (c *AppConfig) GetFontPath() string {
	return c.FontPath
}

// GetMaxBackgroundVideo returns the background video duration cap
func (c *AppConfig) GetMaxBackgroundVideo() time.Duration {
	return time.Duration(c.MaxBackgroundVideoSec) * time.Second
}

// GetDefaultVersion returns the Bible version selected at startup
func (c *AppConfig) GetDefaultVersion() string {
	return c.DefaultVersion
}
