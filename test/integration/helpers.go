// Package integration exercises the publish pipeline end to end: a real
// feed fetch against a local RSS server, real markdown rendering and a real
// git deploy against a local bare repository. Only the site generator is
// substituted, since npm and hugo are not available to the test run.
package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"newsblaster/internal/config"
	"newsblaster/internal/content"
	"newsblaster/internal/pipeline"
	"newsblaster/internal/publish"
)

// feedItem is one article in the fixture feed.
type feedItem struct {
	Title   string
	Link    string
	PubDate string
	Source  string
}

// rssDocument renders items as a Google News style RSS 2.0 feed. The
// description carries the markup the real feed embeds.
func rssDocument(items []feedItem) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<rss version="2.0"><channel><title>"technology" - Google News</title>`)
	for _, item := range items {
		fmt.Fprintf(&b, `<item><title>%s</title><link>%s</link><pubDate>%s</pubDate>`,
			item.Title, item.Link, item.PubDate)
		fmt.Fprintf(&b, `<description><![CDATA[<a href="%s">%s</a>&nbsp;<font color="#6f6f6f">%s</font>]]></description></item>`,
			item.Link, item.Title, item.Source)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

// startFeedServer serves the fixture feed on a local listener.
func startFeedServer(t *testing.T, items []feedItem) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = io.WriteString(w, rssDocument(items))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeIntegrationConfig writes a full configuration pointing at the local
// feed server and returns the loaded result.
func writeIntegrationConfig(t *testing.T, feedURL, siteDir, historyPath string) *config.Config {
	t.Helper()
	yaml := fmt.Sprintf(`feed:
  query: technology
  url_template: "%s?q=%%s"
site:
  generator: astro
  dir: %s
publish:
  strategy: git
  repo: acme/news-site
  branch: gh-pages
  token: test-token
  domain: news.example.com
history:
  path: %s
`, feedURL, siteDir, historyPath)

	path := filepath.Join(t.TempDir(), "newsblaster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

// distGenerator stands in for the Astro toolchain: Build copies the rendered
// posts into dist/posts and writes an index page listing them.
type distGenerator struct {
	siteDir string
}

func (g *distGenerator) Name() string                      { return "astro" }
func (g *distGenerator) Format() content.Format            { return content.AstroFormat{} }
func (g *distGenerator) SiteDir() string                   { return g.siteDir }
func (g *distGenerator) OutputDir() string                 { return filepath.Join(g.siteDir, "dist") }
func (g *distGenerator) Prepare(_ context.Context) error   { return nil }
func (g *distGenerator) DevServer(_ context.Context) error { return nil }

func (g *distGenerator) Build(_ context.Context) error {
	dist := g.OutputDir()
	if err := os.RemoveAll(dist); err != nil {
		return err
	}
	postsDir := filepath.Join(dist, "posts")
	if err := os.MkdirAll(postsDir, 0755); err != nil {
		return err
	}

	src := content.AstroFormat{}.ContentDir(g.siteDir)
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(src, entry.Name()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(postsDir, entry.Name()), data, 0644); err != nil {
			return err
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var index strings.Builder
	index.WriteString("<!doctype html><html><body><ul>")
	for _, name := range names {
		fmt.Fprintf(&index, `<li><a href="/posts/%s">%s</a></li>`, name, name)
	}
	index.WriteString("</ul></body></html>")
	return os.WriteFile(filepath.Join(dist, "index.html"), []byte(index.String()), 0644)
}

// newPipelineRunner assembles a runner with the stand-in generator and the
// git publisher pointed at a local bare remote.
func newPipelineRunner(t *testing.T, cfg *config.Config, remoteDir string) *pipeline.Runner {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	runner, err := pipeline.NewRunner(cfg, logger)
	require.NoError(t, err)

	publisher := publish.NewGitPublisher(cfg.Publish, logger).WithRepoURL(remoteDir)
	return runner.
		WithGenerator(&distGenerator{siteDir: cfg.Site.Dir}).
		WithPublisher(publisher)
}
