package postprocess

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/logfields"
)

// SearchCommand expands {dir} in each argument of command.
func SearchCommand(command []string, dir string) []string {
	out := make([]string, len(command))
	for i, arg := range command {
		out[i] = strings.ReplaceAll(arg, "{dir}", dir)
	}
	return out
}

// RunCommand runs an external build step in dir. A non-zero exit is an
// external error carrying the command output.
func RunCommand(ctx context.Context, command []string, dir string, logger *slog.Logger) error {
	if len(command) == 0 {
		return errors.ConfigError("command is empty").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}
	line := strings.Join(command, " ")
	// #nosec G204 -- commands come from the site configuration
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = dir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	logger.Info("Running external command", logfields.Command(line))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.WrapError(err, errors.CategoryExternal, "external command failed").
			WithContext("command", line).
			WithContext("output", strings.TrimSpace(output.String())).
			Fatal().
			Build()
	}
	logger.Debug("External command finished", logfields.Command(line))
	return nil
}
