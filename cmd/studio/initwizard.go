package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/germanamz/studio/pkg/studio"
	"github.com/germanamz/studio/pkg/studiodir"
	"gopkg.in/yaml.v3"
)

// errConfigExists is returned by init when a config is present and -force
// was not given.
var errConfigExists = errors.New("config already exists (use -force to overwrite)")

// wizardConfig holds the answers of the init wizard.
type wizardConfig struct {
	APIKey        string //nolint:gosec // env var reference, not a secret
	AppTitle      string
	AppURL        string
	ModelsTimeout string
	Listen        string
	LogLevel      string
	DiffContext   string
}

func defaultWizardConfig() wizardConfig {
	d := studio.DefaultConfig()
	return wizardConfig{
		APIKey:        "${OPENROUTER_API_KEY}",
		AppTitle:      d.AppTitle,
		ModelsTimeout: d.ModelsTimeout,
		Listen:        d.Listen,
		LogLevel:      d.LogLevel,
		DiffContext:   strconv.Itoa(d.DiffContext),
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: studio init [flags]\n\nCreate a .studio directory with a config file.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	dir := fs.String("studio-dir", studiodir.DefaultName, "path to .studio directory")
	force := fs.Bool("force", false, "overwrite an existing config")
	yes := fs.Bool("yes", false, "accept the defaults without prompting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d := studiodir.New(*dir)
	if !*force {
		if _, err := os.Stat(d.ConfigPath()); err == nil {
			return errConfigExists
		}
	}

	cfg := defaultWizardConfig()
	if !*yes {
		if err := runWizard(&cfg); err != nil {
			return err
		}
	}

	data, err := marshalWizardConfig(cfg)
	if err != nil {
		return err
	}

	if err := writeConfig(d, data); err != nil {
		return err
	}

	fmt.Printf("Initialized %s\n", d.Root())
	fmt.Println("Run 'studio key' to store your OpenRouter API key, or set OPENROUTER_API_KEY.")

	return nil
}

func runWizard(cfg *wizardConfig) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API key").
				Description("An env var reference keeps the key out of the file. Leave empty to use 'studio key'.").
				Value(&cfg.APIKey),
			huh.NewInput().Title("App title (sent as X-Title)").Value(&cfg.AppTitle),
			huh.NewInput().Title("App URL (sent as HTTP-Referer, optional)").Value(&cfg.AppURL),
		),
		huh.NewGroup(
			huh.NewInput().Title("Model list timeout (e.g. 15s)").Value(&cfg.ModelsTimeout).Validate(validateDuration),
			huh.NewInput().Title("Web listen address").Value(&cfg.Listen),
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Info", "info"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&cfg.LogLevel),
			huh.NewInput().Title("Diff context lines").Value(&cfg.DiffContext).Validate(validateNonNegativeInt),
		),
	).Run()
}

func marshalWizardConfig(w wizardConfig) ([]byte, error) {
	cfg := studio.DefaultConfig()
	cfg.APIKey = w.APIKey
	cfg.AppTitle = w.AppTitle
	cfg.AppURL = w.AppURL
	cfg.ModelsTimeout = w.ModelsTimeout
	cfg.Listen = w.Listen
	cfg.LogLevel = w.LogLevel

	if w.DiffContext != "" {
		n, err := strconv.Atoi(w.DiffContext)
		if err != nil {
			return nil, fmt.Errorf("diff context: %w", err)
		}
		cfg.DiffContext = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return yaml.Marshal(cfg)
}

// writeConfig creates the directory structure and writes the config file.
func writeConfig(d studiodir.Dir, data []byte) error {
	if err := studiodir.EnsureStructure(d); err != nil {
		return err
	}

	if err := os.WriteFile(d.ConfigPath(), data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

func validateNonNegativeInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("must be a whole number")
	}
	if n < 0 {
		return errors.New("must not be negative")
	}
	return nil
}
