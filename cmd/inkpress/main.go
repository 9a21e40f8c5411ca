package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/inkpress/cmd/inkpress/commands"
	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
	"git.home.luguber.info/inful/inkpress/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("inkpress"),
		kong.Description("Static site content pipeline: markdown to prerendered HTML."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	global := &commands.Global{Out: os.Stdout}
	if err := ctx.Run(global); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
