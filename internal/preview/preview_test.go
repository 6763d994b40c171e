package preview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writePost(t *testing.T, dir, slug, title, pubDate, body string) {
	t.Helper()
	content := fmt.Sprintf(`---
title: %q
description: "Short summary..."
pubDate: %q
link: "https://news.example.com/%s"
---

%s
`, title, pubDate, slug, body)
	require.NoError(t, os.WriteFile(filepath.Join(dir, slug+".md"), []byte(content), 0o644))
}

func startServer(t *testing.T, contentDir string) *Server {
	t.Helper()
	s := NewServer(contentDir, "Daily Tech News", testLogger())
	require.NoError(t, s.Start("127.0.0.1:0"))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp.StatusCode, string(body)
}

func TestServer_IndexListsPostsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "old-story", "Old Story", "2026-08-20T08:00:00Z", "Old body.")
	writePost(t, dir, "fresh-story", "Fresh Story", "2026-08-24T09:30:00Z", "Fresh body.")

	s := startServer(t, dir)
	status, body := get(t, "http://"+s.Addr()+"/")

	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "/posts/fresh-story")
	require.Contains(t, body, "/posts/old-story")
	require.Less(t, strings.Index(body, "Fresh Story"), strings.Index(body, "Old Story"))
}

func TestServer_PostPageRendersMarkdownAndRawHTML(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "markup-check", "Markup Check", "2026-08-24T09:30:00Z",
		`Some **bold** text and a raw <a href="https://example.com">anchor</a>.`)

	s := startServer(t, dir)
	status, body := get(t, "http://"+s.Addr()+"/posts/markup-check")

	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "<strong>bold</strong>")
	require.Contains(t, body, `<a href="https://example.com">anchor</a>`)
	require.Contains(t, body, "Markup Check")
}

func TestServer_HugoDateFrontMatterParses(t *testing.T) {
	dir := t.TempDir()
	content := `---
title: "Hugo Shaped"
description: "A post with hugo front matter..."
date: "2026-08-23T10:00:00Z"
link: "https://news.example.com/hugo-shaped"
---

Body.
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hugo-shaped.md"), []byte(content), 0o644))

	s := startServer(t, dir)
	status, body := get(t, "http://"+s.Addr()+"/")

	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "Hugo Shaped")
	require.Contains(t, body, "Aug 23, 2026")
}

func TestServer_UnknownPostReturns404(t *testing.T) {
	s := startServer(t, t.TempDir())
	status, _ := get(t, "http://"+s.Addr()+"/posts/never-rendered")
	require.Equal(t, http.StatusNotFound, status)
}

func TestServer_DottedSlugReturns404(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "real-post", "Real Post", "2026-08-24T09:30:00Z", "Body.")

	s := startServer(t, dir)
	status, _ := get(t, "http://"+s.Addr()+"/posts/real-post.md")
	require.Equal(t, http.StatusNotFound, status)
}

func TestServer_MissingContentDirShowsEmptyIndex(t *testing.T) {
	s := startServer(t, filepath.Join(t.TempDir(), "does-not-exist"))
	status, body := get(t, "http://"+s.Addr()+"/")

	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "No posts yet")
}
