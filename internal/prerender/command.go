package prerender

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/logfields"
)

// CommandRenderer renders routes through a long-lived child process that
// exchanges one JSON document per line. A request is {"url": ...}; the first
// request of a process also carries the build manifest. A response is the
// array [app, preload, title, meta, lang] or {"error": ...}.
type CommandRenderer struct {
	Command []string
	Dir     string
	Logger  *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	dec    *json.Decoder
	primed bool
}

// NewCommandRenderer creates a renderer for the server entry command.
func NewCommandRenderer(command []string, dir string, logger *slog.Logger) (*CommandRenderer, error) {
	if len(command) == 0 {
		return nil, errors.ConfigError("render command is empty").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandRenderer{Command: command, Dir: dir, Logger: logger}, nil
}

type renderRequest struct {
	URL      string   `json:"url"`
	Manifest Manifest `json:"manifest,omitempty"`
}

type renderError struct {
	Error string `json:"error"`
}

// Render sends url to the child process, starting it on first use.
func (c *CommandRenderer) Render(ctx context.Context, url string, manifest Manifest) (Rendered, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd == nil {
		if err := c.start(ctx); err != nil {
			return Rendered{}, err
		}
	}
	req := renderRequest{URL: url}
	if !c.primed {
		req.Manifest = manifest
		if req.Manifest == nil {
			req.Manifest = Manifest{}
		}
	}
	line, err := json.Marshal(req)
	if err != nil {
		return Rendered{}, errors.WrapError(err, errors.CategoryInternal, "encode render request").Build()
	}
	if _, err := c.stdin.Write(append(line, '\n')); err != nil {
		return Rendered{}, c.fail(url, err)
	}
	c.primed = true

	var raw json.RawMessage
	if err := c.dec.Decode(&raw); err != nil {
		return Rendered{}, c.fail(url, err)
	}
	return decodeResponse(url, raw)
}

func decodeResponse(url string, raw json.RawMessage) (Rendered, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var re renderError
		if err := json.Unmarshal(raw, &re); err != nil || re.Error == "" {
			return Rendered{}, errors.RenderError("malformed render response").
				WithContext("route", url).
				Fatal().
				Build()
		}
		return Rendered{}, errors.RenderError(re.Error).
			WithContext("route", url).
			Fatal().
			Build()
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) < 4 || len(parts) > 5 {
		return Rendered{}, errors.RenderError("render response must be an array of four or five strings").
			WithContext("route", url).
			Fatal().
			Build()
	}
	r := Rendered{
		AppHTML:      parts[0],
		PreloadLinks: parts[1],
		TitlePrefix:  parts[2],
		Meta:         parts[3],
	}
	// lang is optional
	if len(parts) == 5 {
		r.Lang = parts[4]
	}
	return r, nil
}

func (c *CommandRenderer) start(ctx context.Context) error {
	// #nosec G204 -- the command comes from the site configuration
	cmd := exec.CommandContext(ctx, c.Command[0], c.Command[1:]...)
	cmd.Dir = c.Dir
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.WrapError(err, errors.CategoryExternal, "open render command stdin").Fatal().Build()
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.WrapError(err, errors.CategoryExternal, "open render command stdout").Fatal().Build()
	}
	if err := cmd.Start(); err != nil {
		return errors.WrapError(err, errors.CategoryExternal, "start render command").
			WithContext("command", strings.Join(c.Command, " ")).
			Fatal().
			Build()
	}
	c.Logger.Debug("Render command started", logfields.Command(strings.Join(c.Command, " ")))
	c.cmd = cmd
	c.stdin = stdin
	c.dec = json.NewDecoder(bufio.NewReader(stdout))
	c.primed = false
	return nil
}

func (c *CommandRenderer) fail(url string, err error) error {
	_ = c.stop()
	return errors.WrapError(err, errors.CategoryExternal, "render command failed").
		WithContext("route", url).
		WithContext("command", strings.Join(c.Command, " ")).
		Fatal().
		Build()
}

// Close ends the child process.
func (c *CommandRenderer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop()
}

func (c *CommandRenderer) stop() error {
	if c.cmd == nil {
		return nil
	}
	_ = c.stdin.Close()
	err := c.cmd.Wait()
	c.cmd, c.stdin, c.dec = nil, nil, nil
	if err != nil {
		return fmt.Errorf("render command exited: %w", err)
	}
	return nil
}
