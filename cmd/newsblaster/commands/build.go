package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"newsblaster/internal/pipeline"
)

// BuildCmd implements the 'build' command: fetch, render and build the
// site without deploying it.
type BuildCmd struct{}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, err := pipeline.NewRunner(cfg, g.Logger)
	if err != nil {
		return err
	}

	report, err := runner.Build(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Build complete: %d posts rendered under %s\n", report.FilesRendered, cfg.Site.Dir)
	return nil
}
