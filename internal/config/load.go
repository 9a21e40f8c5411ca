package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/inkpress/internal/foundation/errors"
)

// ConfigCandidates are probed in order when no explicit file is given.
var ConfigCandidates = []string{
	"inkpress.config.yaml",
	"inkpress.config.yml",
	"inkpress.config.json",
}

// Resolve returns the configuration file for the project at root. An explicit
// path bypasses probing.
func Resolve(root, explicit string) (string, error) {
	if explicit != "" {
		if !filepath.IsAbs(explicit) {
			explicit = filepath.Join(root, explicit)
		}
		if _, err := os.Stat(explicit); err != nil {
			return "", foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "configuration file not found").
				Fatal().
				WithPath(explicit).
				Build()
		}
		return explicit, nil
	}
	for _, name := range ConfigCandidates {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "cannot stat configuration file").
				Fatal().
				WithPath(path).
				Build()
		}
	}
	return "", foundationerrors.ConfigError(foundationerrors.MsgNoConfig).
		WithContext("root", root).
		WithContext("candidates", ConfigCandidates).
		Build()
}

// Load resolves, reads, normalizes, defaults and validates the configuration
// of the project at root.
func Load(root, explicit string) (*Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid project root").Fatal().Build()
	}
	if err := loadEnvFiles(absRoot); err != nil {
		slog.Warn("Could not load .env file", slog.String("error", err.Error()))
	}

	path, err := Resolve(absRoot, explicit)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read config file").
			Fatal().
			WithPath(path).
			Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid configuration").
			Fatal().
			WithPath(path).
			Build()
	}
	cfg.Root = absRoot
	cfg.Source = path
	return cfg, nil
}

// Parse decodes configuration bytes, expanding ${VAR} references first, then
// applies normalization, defaults and validation.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalize(cfg *Config) error {
	theme, err := themeNormalizer.Parse(string(cfg.Theme))
	if err != nil {
		return err
	}
	cfg.Theme = theme
	flavor, err := expanderNormalizer.Parse(string(cfg.Markdown.ExpanderFlavor))
	if err != nil {
		return err
	}
	cfg.Markdown.ExpanderFlavor = flavor
	if lvl := os.Getenv("INKPRESS_LOG_LEVEL"); lvl != "" {
		cfg.Logging.Level = LogLevel(lvl)
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

// Abs resolves a project-relative path against Root.
func (c *Config) Abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// ContentDir is the absolute content root.
func (c *Config) ContentDir() string { return c.Abs(c.Paths.Content) }

// OutputDir is the absolute static output directory.
func (c *Config) OutputDir() string { return c.Abs(c.Paths.Output) }

// ServerDir is the absolute server bundle directory.
func (c *Config) ServerDir() string { return c.Abs(c.Paths.Server) }

// GeneratedDir is the absolute directory for generated modules.
func (c *Config) GeneratedDir() string { return c.Abs(c.Paths.Generated) }
