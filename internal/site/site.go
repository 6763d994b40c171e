// Package site drives static site generator toolchains. Each generator is
// abstracted behind Generator so the pipeline stays identical whether the
// site is an Astro project built through npm or a Hugo tree built with the
// hugo binary.
package site

import (
	"context"
	"fmt"
	"log/slog"

	"newsblaster/internal/config"
	"newsblaster/internal/content"
	"newsblaster/internal/run"
)

// Generator abstracts one static site generator toolchain.
type Generator interface {
	Name() string
	// Format is the content format posts must be rendered in for this
	// generator.
	Format() content.Format
	// SiteDir is the site project root.
	SiteDir() string
	// OutputDir is where a successful build lands.
	OutputDir() string
	// Prepare makes the project buildable: dependency install for Astro,
	// scaffolding and theme setup for Hugo.
	Prepare(ctx context.Context) error
	// Build runs the generator and verifies the output directory exists.
	Build(ctx context.Context) error
	// DevServer blocks running the generator's development server until ctx
	// ends.
	DevServer(ctx context.Context) error
}

// GeneratorFor resolves the configured generator.
func GeneratorFor(cfg *config.Config, logger *slog.Logger) (Generator, error) {
	switch cfg.Site.Generator {
	case "astro":
		return NewAstro(cfg.Site.Dir, logger), nil
	case "hugo":
		return NewHugo(cfg.Site.Dir, cfg.Site.HugoPath, cfg.Site.Title, cfg.Publish.Domain, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown generator %q", run.ErrConfig, cfg.Site.Generator)
	}
}
