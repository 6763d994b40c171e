package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"newsblaster/cmd/newsblaster/commands"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("newsblaster"),
		kong.Description("Publish a Google News feed as a static site on GitHub Pages."),
		kong.UsageOnError(),
	)

	// AfterApply has already installed the default logger by now.
	err := ctx.Run(&commands.Global{Logger: slog.Default()}, &cli)
	ctx.FatalIfErrorf(err)
}
