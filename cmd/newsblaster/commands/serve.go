package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"newsblaster/internal/config"
	"newsblaster/internal/content"
	"newsblaster/internal/feed"
	"newsblaster/internal/pipeline"
	"newsblaster/internal/site"
)

// ServeCmd implements the 'serve' command: refresh the posts, then hand
// the terminal to the generator's own dev server.
type ServeCmd struct {
	SkipFetch bool `name:"skip-fetch" help:"Start the dev server on the existing posts without fetching."`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
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

	if !s.SkipFetch {
		if err := fetchAndRender(ctx, cfg, generator, g); err != nil {
			return err
		}
	}

	if err := generator.Prepare(ctx); err != nil {
		return err
	}
	fmt.Printf("Starting %s dev server (Ctrl+C to stop)...\n", generator.Name())
	if err := generator.DevServer(ctx); err != nil {
		return err
	}
	fmt.Println("Dev server stopped.")
	return nil
}

// fetchAndRender refreshes the site's posts from the feed. Shared by the
// serve and preview commands, which run outside the publish pipeline.
func fetchAndRender(ctx context.Context, cfg *config.Config, generator site.Generator, g *Global) error {
	fmt.Println(pipeline.StatusText(pipeline.StageFetch, generator.Name()))
	fetcher := feed.NewFetcher(cfg.Feed.URLTemplate, cfg.Feed.Limit, g.Logger)
	items, err := fetcher.Fetch(ctx, cfg.Feed.Query)
	if err != nil {
		return err
	}

	fmt.Println(pipeline.StatusText(pipeline.StageRender, generator.Name()))
	renderer := content.NewRenderer(generator.Format(), g.Logger)
	n, err := renderer.RenderAll(cfg.Site.Dir, items)
	if err != nil {
		return err
	}
	fmt.Printf("Rendered %d posts\n", n)
	return nil
}
