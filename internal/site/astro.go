package site

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"newsblaster/internal/content"
)

// Astro builds an Astro project through npm. The project itself (layout,
// astro.config.mjs, package.json) is expected to exist; only its content
// collection is regenerated each run.
type Astro struct {
	dir    string
	logger *slog.Logger
}

func NewAstro(dir string, logger *slog.Logger) *Astro {
	if logger == nil {
		logger = slog.Default()
	}
	return &Astro{dir: dir, logger: logger}
}

func (a *Astro) Name() string           { return "astro" }
func (a *Astro) Format() content.Format { return content.AstroFormat{} }
func (a *Astro) SiteDir() string        { return a.dir }
func (a *Astro) OutputDir() string      { return filepath.Join(a.dir, "dist") }

// Prepare installs npm dependencies.
func (a *Astro) Prepare(_ context.Context) error {
	if _, err := runCommand(a.dir, a.logger, "npm", "install"); err != nil {
		return fmt.Errorf("install astro dependencies: %w", err)
	}
	return nil
}

// Build runs the production build and verifies dist/ appeared.
func (a *Astro) Build(_ context.Context) error {
	if _, err := runCommand(a.dir, a.logger, "npm", "run", "build"); err != nil {
		return fmt.Errorf("build astro site: %w", err)
	}
	return verifyOutput(a.OutputDir())
}

// DevServer blocks on `npm run dev` until ctx ends.
func (a *Astro) DevServer(ctx context.Context) error {
	return runInteractive(ctx, a.dir, "npm", "run", "dev")
}
