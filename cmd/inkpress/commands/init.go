package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/inkpress/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	if path == "" {
		path = filepath.Join(root.Root, config.ConfigCandidates[0])
	}
	_, _ = fmt.Fprintf(g.out(), "Writing configuration to %s\n", path)
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(g.out(), "initialized successfully")
	return nil
}
