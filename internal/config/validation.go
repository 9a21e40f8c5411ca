package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for values the build cannot work with.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return errors.New("name is required")
	}
	seen := make(map[string]struct{}, len(cfg.Categories))
	for _, c := range cfg.Categories {
		if c.Key == "" || strings.ContainsAny(c.Key, `/\`) || c.Key == "." || c.Key == ".." {
			return fmt.Errorf("category key %q must be a single path segment", c.Key)
		}
		if _, dup := seen[c.Key]; dup {
			return fmt.Errorf("category key %q is defined twice", c.Key)
		}
		seen[c.Key] = struct{}{}
	}
	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("url %q must be an absolute URL", cfg.URL)
		}
	}
	if !strings.HasPrefix(cfg.Build.ComponentExt, ".") {
		return fmt.Errorf("build.component_ext %q must start with a dot", cfg.Build.ComponentExt)
	}
	if cfg.Build.ComponentExt == ".md" {
		return errors.New("build.component_ext cannot be .md")
	}
	return nil
}
