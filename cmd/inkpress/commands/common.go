// Package commands implements the inkpress subcommands.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/logfields"
)

// Global is shared with every subcommand.
type Global struct {
	Out    io.Writer
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default: probe the project root)"`
	Root    string           `short:"r" help:"Project root directory" default:"." type:"existingdir"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Build the static site"`
	Dev      DevCmd      `cmd:"" help:"Generate content modules and keep them current while files change"`
	Schedule ScheduleCmd `cmd:"" help:"Rebuild the site on a cron schedule"`
	Index    IndexCmd    `cmd:"" help:"Print the content index as JSON"`
	Routes   RoutesCmd   `cmd:"" help:"Print the routes that would be prerendered"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
	Ver      VersionCmd  `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(newLogger(os.Stderr, level, config.LogFormatText))
	return nil
}

func newLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// LoadConfig loads the project configuration and switches the default logger
// to the configured level and format. -v always wins.
func (c *CLI) LoadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Root, c.Config)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level.SlogLevel()
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(os.Stderr, level, cfg.Logging.Format)
	slog.SetDefault(logger)
	g.Logger = logger
	logger.Debug("Configuration loaded", logfields.Path(cfg.Source))
	return cfg, nil
}

func (g *Global) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
