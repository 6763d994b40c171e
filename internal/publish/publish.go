// Package publish pushes a built site to a GitHub Pages branch.
//
// Two strategies exist. The git strategy clones the Pages branch, replaces
// its content with the build output and force-pushes a single deploy commit.
// The api strategy uploads files one by one through the GitHub contents API
// and never needs a local clone. Both honor the same preserved-path set.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	appcfg "newsblaster/internal/config"
	"newsblaster/internal/run"
)

// preservedPaths are repository files that survive a deploy unchanged. The
// git strategy snapshots and restores them, the api strategy never uploads
// them. Paths are relative to the repository root.
var preservedPaths = []string{"CNAME", "sitemap.xml"}

// Publisher uploads a built site tree to the configured deployment target.
type Publisher interface {
	// Name identifies the strategy ("git" or "api").
	Name() string

	// Publish uploads the contents of outputDir to the publish branch. It
	// returns run.ErrNothingToPublish when the remote already matches the
	// output, which callers should treat as success.
	Publish(ctx context.Context, outputDir string) error
}

// PublisherFor selects the publisher for the configured strategy.
func PublisherFor(cfg *appcfg.Config, logger *slog.Logger) (Publisher, error) {
	switch cfg.Publish.Strategy {
	case "git":
		return NewGitPublisher(cfg.Publish, logger), nil
	case "api":
		return NewAPIPublisher(cfg.Publish, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown publish strategy %q", run.ErrConfig, cfg.Publish.Strategy)
	}
}

func isPreserved(rel string) bool {
	return slices.Contains(preservedPaths, rel)
}
