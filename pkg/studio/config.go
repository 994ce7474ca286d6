package studio

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/germanamz/studio/pkg/openrouter"
	"gopkg.in/yaml.v3"
)

// Config is the top-level studio configuration.
type Config struct {
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	AppURL        string `yaml:"app_url"`
	AppTitle      string `yaml:"app_title"`
	StateFile     string `yaml:"state_file"`     // Empty keeps settings in memory only.
	ModelsCache   string `yaml:"models_cache"`   // Empty disables the on-disk model list cache.
	ModelsTimeout string `yaml:"models_timeout"` // Duration string (e.g. "15s").
	Listen        string `yaml:"listen"`         // Address of the web frontend.
	LogLevel      string `yaml:"log_level"`
	DiffContext   int    `yaml:"diff_context"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		BaseURL:       openrouter.DefaultBaseURL,
		AppTitle:      "Studio",
		ModelsTimeout: "15s",
		Listen:        "127.0.0.1:8787",
		LogLevel:      "info",
		DiffContext:   3,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing, so the API key can live in the environment (e.g. loaded
// from a .env file) rather than in the file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("studio: load config: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML config data on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("studio: parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("studio: config: base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("studio: config: base_url %q: scheme must be http or https", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("studio: config: base_url %q: host is required", c.BaseURL)
	}

	if c.ModelsTimeout != "" {
		d, err := time.ParseDuration(c.ModelsTimeout)
		if err != nil {
			return fmt.Errorf("studio: config: models_timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("studio: config: models_timeout must be positive")
		}
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("studio: config: %w", err)
	}

	if c.DiffContext < 0 {
		return fmt.Errorf("studio: config: diff_context must not be negative")
	}

	return nil
}

// Timeout returns the model list timeout, defaulting to 15s.
func (c Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.ModelsTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// Level returns the configured log level, defaulting to info.
func (c Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
