package content

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"newsblaster/internal/feed"
)

func testItems() []feed.Item {
	published := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	return []feed.Item{
		{Title: "First Story", Link: "https://n/1", Summary: "<b>First</b> summary", Published: published},
		{Title: "Second Story", Link: "https://n/2", Summary: "Second summary", Published: published},
		{Title: "Third Story", Link: "https://n/3", Summary: "Third summary", Published: published},
	}
}

func TestRenderAll_WritesOneFilePerItem(t *testing.T) {
	siteDir := t.TempDir()
	r := NewRenderer(AstroFormat{}, nil)

	n, err := r.RenderAll(siteDir, testItems())
	require.NoError(t, err)
	require.Equal(t, 3, n)

	dir := AstroFormat{}.ContentDir(siteDir)
	for _, slug := range []string{"first-story", "second-story", "third-story"} {
		require.FileExists(t, filepath.Join(dir, slug+".md"))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestRenderAll_ClearsStaleFiles(t *testing.T) {
	siteDir := t.TempDir()
	dir := AstroFormat{}.ContentDir(siteDir)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale-post.md"), []byte("old"), 0644))

	r := NewRenderer(AstroFormat{}, nil)
	n, err := r.RenderAll(siteDir, testItems()[:2])
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoFileExists(t, filepath.Join(dir, "stale-post.md"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestRenderAll_DuplicateTitlesCollapseToOneFile(t *testing.T) {
	siteDir := t.TempDir()
	items := []feed.Item{
		{Title: "Same Headline", Link: "https://n/a", Summary: "first body"},
		{Title: "Same Headline", Link: "https://n/b", Summary: "second body"},
	}

	r := NewRenderer(AstroFormat{}, nil)
	n, err := r.RenderAll(siteDir, items)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	dir := AstroFormat{}.ContentDir(siteDir)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// Last writer wins.
	data, err := os.ReadFile(filepath.Join(dir, "same-headline.md"))
	require.NoError(t, err)
	require.Contains(t, string(data), "second body")
	require.Contains(t, string(data), "https://n/b")
}

func TestRenderAll_BodyKeepsRawSummaryAndReadMoreLink(t *testing.T) {
	siteDir := t.TempDir()
	r := NewRenderer(AstroFormat{}, nil)

	_, err := r.RenderAll(siteDir, testItems()[:1])
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(AstroFormat{}.ContentDir(siteDir), "first-story.md"))
	require.NoError(t, err)
	body := string(data)

	// The body keeps the summary's markup; only the description strips it.
	require.Contains(t, body, "<b>First</b> summary")
	require.Contains(t, body, "[Read full story →](https://n/1)")
	require.Contains(t, body, "description: First summary...")
}

func TestRenderAll_HugoFormatTargetsContentPosts(t *testing.T) {
	siteDir := t.TempDir()
	r := NewRenderer(HugoFormat{}, nil)

	n, err := r.RenderAll(siteDir, testItems()[:1])
	require.NoError(t, err)
	require.Equal(t, 1, n)

	data, err := os.ReadFile(filepath.Join(siteDir, "content", "posts", "first-story.md"))
	require.NoError(t, err)
	require.Contains(t, string(data), "date: ")
	require.NotContains(t, string(data), "pubDate:")
}

func TestRenderAll_RerenderLeavesExactlyCurrentItems(t *testing.T) {
	siteDir := t.TempDir()
	r := NewRenderer(AstroFormat{}, nil)

	_, err := r.RenderAll(siteDir, testItems())
	require.NoError(t, err)

	// Second run with a smaller, different batch.
	second := []feed.Item{{Title: "Fresh Story", Link: "https://n/f", Summary: "fresh"}}
	n, err := r.RenderAll(siteDir, second)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	dir := AstroFormat{}.ContentDir(siteDir)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "fresh-story.md", entries[0].Name())
}
