package commands

import (
	"git.home.luguber.info/inful/inkpress/internal/build"
)

// DevCmd implements the 'dev' command.
type DevCmd struct{}

func (d *DevCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	b, err := build.NewBuilder(cfg, g.logger(), nil)
	if err != nil {
		return err
	}
	g.logger().Info("Watching content for changes", "content", cfg.ContentDir())
	return build.Dev(ctx, b)
}
