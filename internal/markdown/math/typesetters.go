package math

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// ClientTypesetter keeps TeX in the page, wrapped in the delimiters a
// client-side typesetting script recognizes.
type ClientTypesetter struct{}

func (ClientTypesetter) Typeset(_ context.Context, tex string, display bool) (string, error) {
	escaped := html.EscapeString(strings.TrimSpace(tex))
	if display {
		return `<div class="math math-display" v-pre>\[` + escaped + `\]</div>`, nil
	}
	return `<span class="math math-inline" v-pre>\(` + escaped + `\)</span>`, nil
}

func (ClientTypesetter) Stylesheet() string { return "" }

// CommandTypesetter runs an external typesetter per expression. The TeX is
// written to stdin; "--display" is appended for display math; the markup is
// read from stdout.
type CommandTypesetter struct {
	Command []string
	// StylesheetPath optionally names a CSS file emitted alongside typeset markup.
	StylesheetPath string

	cssOnce sync.Once
	css     string
}

// NewCommandTypesetter creates a typesetter running command.
func NewCommandTypesetter(command []string, stylesheetPath string) (*CommandTypesetter, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New("math typesetter command is empty")
	}
	return &CommandTypesetter{Command: command, StylesheetPath: stylesheetPath}, nil
}

func (c *CommandTypesetter) Typeset(ctx context.Context, tex string, display bool) (string, error) {
	args := append([]string(nil), c.Command[1:]...)
	if display {
		args = append(args, "--display")
	}
	// #nosec G204 -- the command comes from the site configuration.
	cmd := exec.CommandContext(ctx, c.Command[0], args...)
	cmd.Stdin = strings.NewReader(tex)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", c.Command[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (c *CommandTypesetter) Stylesheet() string {
	c.cssOnce.Do(func() {
		if c.StylesheetPath == "" {
			return
		}
		if raw, err := os.ReadFile(c.StylesheetPath); err == nil {
			c.css = string(raw)
		}
	})
	return c.css
}
