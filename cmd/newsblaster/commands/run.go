package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"newsblaster/internal/history"
	"newsblaster/internal/pipeline"
)

// RunCmd implements the 'run' command: one full publish from feed to
// GitHub Pages.
type RunCmd struct{}

func (r *RunCmd) Run(g *Global, root *CLI) error {
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
	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		runner = runner.WithHistory(store)
	}

	handle := runner.Start(ctx)
	for line := range handle.Status() {
		fmt.Println(line)
	}

	if _, err := handle.Wait(); err != nil {
		// The status stream already reported the failure.
		os.Exit(1)
	}
	return nil
}
