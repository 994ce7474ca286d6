package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/germanamz/studio/pkg/studio"
	"github.com/germanamz/studio/pkg/studiodir"
	"github.com/joho/godotenv"
)

// options are the flags shared by the TUI and every subcommand.
type options struct {
	configPath string
	studioDir  string
	envFile    string
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "path to configuration file (default: .studio/config.yaml)")
	fs.StringVar(&o.studioDir, "studio-dir", studiodir.DefaultName, "path to .studio directory")
	fs.StringVar(&o.envFile, "env", ".env", "path to .env file (ignored if missing)")
}

// config loads the environment and the configuration, filling in the
// per-directory file locations the file leaves empty.
func (o options) config() (studio.Config, studiodir.Dir, error) {
	d := studiodir.New(o.studioDir)

	if err := loadDotEnv(o.envFile); err != nil {
		return studio.Config{}, d, err
	}

	cfg := studio.DefaultConfig()
	if path := resolveConfigPath(o.configPath, d); path != "" {
		loaded, err := studio.LoadConfig(path)
		if err != nil {
			return studio.Config{}, d, err
		}
		cfg = loaded
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.StateFile == "" {
		cfg.StateFile = d.StatePath()
	}
	if cfg.ModelsCache == "" {
		cfg.ModelsCache = d.ModelsCachePath()
	}

	return cfg, d, nil
}

// open builds a Studio. With logToFile set, logs go to the studio log file
// so they do not corrupt the terminal UI; otherwise they go to stderr. The
// returned func closes the log file.
func (o options) open(logToFile bool) (*studio.Studio, func(), error) {
	cfg, d, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if err := studiodir.EnsureStructure(d); err != nil {
		return nil, nil, err
	}

	var (
		w       io.Writer = os.Stderr
		closeFn           = func() {}
	)
	if logToFile {
		f, err := os.OpenFile(d.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // path derived from the studio dir flag
		if err != nil {
			return nil, nil, fmt.Errorf("open log: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	st, err := studio.New(cfg, logger)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	return st, closeFn, nil
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// resolveConfigPath returns the config file to use. Priority:
// 1. Explicit --config flag (non-empty)
// 2. <studio-dir>/config.yaml (if it exists)
// 3. studio.yaml (if it exists)
// An empty result means the defaults apply.
func resolveConfigPath(explicit string, d studiodir.Dir) string {
	if explicit != "" {
		return explicit
	}

	for _, p := range []string{d.ConfigPath(), filepath.Clean("studio.yaml")} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
