package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/inkpress/internal/build"
	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/index"
	"git.home.luguber.info/inful/inkpress/internal/routes"
)

// IndexCmd implements the 'index' command.
type IndexCmd struct{}

func (i *IndexCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	pages, err := loadPages(ctx, g, cfg)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(g.out())
	enc.SetIndent("", "  ")
	return enc.Encode(pages)
}

// RoutesCmd implements the 'routes' command.
type RoutesCmd struct {
	JSON bool `help:"Print routes as JSON"`
}

func (r *RoutesCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	pages, err := loadPages(ctx, g, cfg)
	if err != nil {
		return err
	}
	rs := routes.Enumerate(cfg, pages)
	if r.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(rs)
	}
	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	for _, rt := range rs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", rt.Kind, rt.Path, rt.Source)
	}
	return tw.Flush()
}

// loadPages discovers content and builds the index without transforming
// documents or writing anything.
func loadPages(ctx context.Context, g *Global, cfg *config.Config) ([]index.Page, error) {
	b, err := build.NewBuilder(cfg, g.logger(), nil)
	if err != nil {
		return nil, err
	}
	entries, err := b.Loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return b.Index.Build(ctx, entries)
}
