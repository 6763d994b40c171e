package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"newsblaster/internal/gittest"
	"newsblaster/internal/history"
	"newsblaster/internal/run"
)

func TestPublishPipeline_DeploysRenderedSite(t *testing.T) {
	items := []feedItem{
		{
			Title:   "Quantum Breakthrough Announced",
			Link:    "https://news.example.com/articles/quantum",
			PubDate: "Mon, 24 Aug 2026 10:00:00 GMT",
			Source:  "The Daily Byte",
		},
		{
			Title:   "Robots Learn To Cook",
			Link:    "https://news.example.com/articles/robots",
			PubDate: "Sun, 23 Aug 2026 08:30:00 GMT",
			Source:  "Tech Tribune",
		},
	}
	srv := startFeedServer(t, items)
	remote := gittest.InitBareRemote(t, "main")
	gittest.PushFiles(t, remote, "main", map[string]string{"README.md": "# news\n"})

	siteDir := filepath.Join(t.TempDir(), "astro-site")
	historyPath := filepath.Join(t.TempDir(), "history.db")
	cfg := writeIntegrationConfig(t, srv.URL, siteDir, historyPath)

	store, err := history.Open(historyPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	runner := newPipelineRunner(t, cfg, remote).WithHistory(store)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, run.OutcomePublished, report.Outcome)
	require.Equal(t, 2, report.ItemsFetched)
	require.Equal(t, 2, report.FilesRendered)
	require.Equal(t, 3, report.FilesPublished)

	files := gittest.BranchFiles(t, remote, "gh-pages")
	require.Equal(t, "news.example.com", files["CNAME"])
	require.Contains(t, files["index.html"], `href="/posts/quantum-breakthrough-announced.md"`)
	require.Contains(t, files["index.html"], `href="/posts/robots-learn-to-cook.md"`)

	post := files["posts/quantum-breakthrough-announced.md"]
	require.Contains(t, post, "title: Quantum Breakthrough Announced")
	require.Contains(t, post, "2026-08-24T10:00:00Z")
	require.Contains(t, post, "[Read full story →](https://news.example.com/articles/quantum)")

	head := gittest.HeadCommit(t, remote, "gh-pages")
	require.Equal(t, "Deploy news site", head.Message)
	require.Equal(t, "News Deploy Bot", head.Author.Name)

	// An identical second run must not create a new deploy commit.
	report, err = runner.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, run.OutcomeUnchanged, report.Outcome)
	require.Equal(t, head.Hash, gittest.HeadCommit(t, remote, "gh-pages").Hash)

	published, err := store.RecentByOutcome(context.Background(), run.OutcomePublished, 10)
	require.NoError(t, err)
	require.Len(t, published, 1)
	unchanged, err := store.RecentByOutcome(context.Background(), run.OutcomeUnchanged, 10)
	require.NoError(t, err)
	require.Len(t, unchanged, 1)
}

func TestPublishPipeline_FetchFailureLeavesRemoteUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	remote := gittest.InitBareRemote(t, "main")
	siteDir := filepath.Join(t.TempDir(), "astro-site")
	historyPath := filepath.Join(t.TempDir(), "history.db")
	cfg := writeIntegrationConfig(t, srv.URL, siteDir, historyPath)

	runner := newPipelineRunner(t, cfg, remote)

	report, err := runner.Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, run.ErrFetch)
	require.Equal(t, run.OutcomeFailed, report.Outcome)
	require.Zero(t, report.ItemsFetched)
	require.False(t, gittest.HasBranch(t, remote, "gh-pages"))
}
