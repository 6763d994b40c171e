// Package commands implements the newsblaster command line interface.
package commands

import (
	"log/slog"
	"os"

	"newsblaster/internal/config"
)

// Global carries state shared by all subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the top-level command definition with global flags.
type CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"newsblaster.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Run     RunCmd     `cmd:"" help:"Fetch the news, build the site and deploy it to GitHub Pages"`
	Build   BuildCmd   `cmd:"" help:"Run the pipeline without the deploy stage"`
	Serve   ServeCmd   `cmd:"" help:"Fetch and render, then run the generator's dev server"`
	Preview PreviewCmd `cmd:"" help:"Fetch and render, then serve the posts with the built-in preview"`
	Daemon  DaemonCmd  `cmd:"" help:"Republish on an interval until interrupted"`
	History HistoryCmd `cmd:"" help:"Show recent publish runs"`
	Init    InitCmd    `cmd:"" help:"Write a starter configuration file and .env skeleton"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// AfterApply runs after flag parsing; set up logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads and validates the configuration named by the root flags.
func loadConfig(root *CLI) (*config.Config, error) {
	return config.Load(root.Config)
}
