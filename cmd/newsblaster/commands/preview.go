package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"newsblaster/internal/preview"
	"newsblaster/internal/site"
)

// PreviewCmd implements the 'preview' command: refresh the posts, then
// serve them with the built-in markdown renderer. Unlike 'serve' this
// needs neither npm nor hugo installed.
type PreviewCmd struct {
	Addr      string `name:"addr" default:"127.0.0.1:8080" help:"Address to serve the preview on."`
	SkipFetch bool   `name:"skip-fetch" help:"Serve the existing posts without fetching."`
}

func (p *PreviewCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	generator, err := site.GeneratorFor(cfg, g.Logger)
	if err != nil {
		return err
	}

	if !p.SkipFetch {
		if err := fetchAndRender(ctx, cfg, generator, g); err != nil {
			return err
		}
	}

	srv := preview.NewServer(generator.Format().ContentDir(cfg.Site.Dir), cfg.Site.Title, g.Logger)
	if err := srv.Start(p.Addr); err != nil {
		return err
	}
	fmt.Printf("Preview on http://%s (Ctrl+C to stop)\n", srv.Addr())

	<-ctx.Done()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	return srv.Stop(stopCtx)
}
