package site

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"newsblaster/internal/gittest"
)

func TestHugo_EnsureConfig_CreatesDefaultWithThemeAndDomain(t *testing.T) {
	dir := t.TempDir()
	h := NewHugo(dir, "hugo", "Daily Orbit", "news.example.com", testLogger())

	require.NoError(t, h.ensureConfig())

	data, err := os.ReadFile(filepath.Join(dir, "hugo.toml"))
	require.NoError(t, err)
	text := string(data)
	require.Contains(t, text, "title = 'Daily Orbit'")
	require.Contains(t, text, `theme = "ananke"`)
	require.Contains(t, text, `baseURL = "https://news.example.com/"`)
	require.NotContains(t, text, "example.org")
}

func TestHugo_EnsureConfig_RewritesExistingBaseURL(t *testing.T) {
	dir := t.TempDir()
	existing := "baseURL = 'https://old.example.org/'\ntheme = \"ananke\"\ntitle = 'Kept'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hugo.toml"), []byte(existing), 0644))

	h := NewHugo(dir, "hugo", "Ignored", "fresh.example.com", testLogger())
	require.NoError(t, h.ensureConfig())

	data, err := os.ReadFile(filepath.Join(dir, "hugo.toml"))
	require.NoError(t, err)
	text := string(data)
	require.Contains(t, text, `baseURL = "https://fresh.example.com/"`)
	require.Contains(t, text, "title = 'Kept'")
	require.NotContains(t, text, "old.example.org")
}

func TestHugo_EnsureConfig_DoesNotDuplicateThemeLine(t *testing.T) {
	dir := t.TempDir()
	h := NewHugo(dir, "hugo", "T", "d.example.com", testLogger())

	require.NoError(t, h.ensureConfig())
	require.NoError(t, h.ensureConfig())

	data, err := os.ReadFile(filepath.Join(dir, "hugo.toml"))
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(data), `theme = "ananke"`))
}

func TestHugo_EnsureConfig_NoDomainLeavesBaseURL(t *testing.T) {
	dir := t.TempDir()
	h := NewHugo(dir, "hugo", "T", "", testLogger())

	require.NoError(t, h.ensureConfig())

	data, err := os.ReadFile(filepath.Join(dir, "hugo.toml"))
	require.NoError(t, err)
	require.Contains(t, string(data), "https://example.org/")
}

func TestHugo_EnsureIndexAndLayout_CreateOnceKeepExisting(t *testing.T) {
	dir := t.TempDir()
	h := NewHugo(dir, "hugo", "T", "", testLogger())

	require.NoError(t, h.ensureIndexContent())
	require.NoError(t, h.ensureListLayout())

	indexPath := filepath.Join(dir, "content", "_index.md")
	layoutPath := filepath.Join(dir, "layouts", "index.html")
	require.FileExists(t, indexPath)
	require.FileExists(t, layoutPath)

	custom := []byte("customized")
	require.NoError(t, os.WriteFile(indexPath, custom, 0644))
	require.NoError(t, h.ensureIndexContent())

	data, err := os.ReadFile(indexPath)
	require.NoError(t, err)
	require.Equal(t, custom, data)
}

func TestHugo_EnsureTheme_ClonesThenPulls(t *testing.T) {
	remote := gittest.InitBareRemote(t, "main")
	gittest.PushFiles(t, remote, "main", map[string]string{
		"theme.toml": "name = \"Ananke\"\n",
	})

	dir := t.TempDir()
	h := NewHugo(dir, "hugo", "T", "", testLogger()).WithThemeURL(remote)

	require.NoError(t, h.ensureTheme())
	require.FileExists(t, filepath.Join(dir, "themes", "ananke", "theme.toml"))

	// Second call takes the pull path and must tolerate "already up to date".
	require.NoError(t, h.ensureTheme())
}

func TestHugo_Prepare_ExistingProjectNeedsNoBinary(t *testing.T) {
	remote := gittest.InitBareRemote(t, "main")
	gittest.PushFiles(t, remote, "main", map[string]string{
		"theme.toml": "name = \"Ananke\"\n",
	})

	dir := t.TempDir()
	h := NewHugo(dir, "hugo-not-on-path", "My News", "news.example.com", testLogger()).WithThemeURL(remote)

	require.NoError(t, h.Prepare(t.Context()))

	require.FileExists(t, filepath.Join(dir, "hugo.toml"))
	require.FileExists(t, filepath.Join(dir, "content", "_index.md"))
	require.FileExists(t, filepath.Join(dir, "layouts", "index.html"))
	require.DirExists(t, filepath.Join(dir, "themes", "ananke"))
}
