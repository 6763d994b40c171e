package content

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func samplePost() Post {
	return Post{
		Title:       `Markets "Rally" Again`,
		Slug:        "markets-rally-again",
		Description: "Stocks climbed today...",
		Link:        "https://news.example.com/rally",
		Published:   time.Date(2025, 2, 3, 9, 30, 0, 0, time.UTC),
		Summary:     "<b>Stocks</b> climbed today",
	}
}

func TestFormatFor_KnownAndUnknown(t *testing.T) {
	astro, err := FormatFor("astro")
	require.NoError(t, err)
	require.Equal(t, "astro", astro.Name())

	hugo, err := FormatFor("hugo")
	require.NoError(t, err)
	require.Equal(t, "hugo", hugo.Name())

	_, err = FormatFor("jekyll")
	require.Error(t, err)
}

func TestFormat_ContentDirs(t *testing.T) {
	astro, hugo := AstroFormat{}, HugoFormat{}
	require.Equal(t, "site/src/content/blog", toSlash(astro.ContentDir("site")))
	require.Equal(t, "site/content/posts", toSlash(hugo.ContentDir("site")))
}

func toSlash(p string) string { return strings.ReplaceAll(p, "\\", "/") }

// frontMatterFields parses the YAML between the --- delimiters.
func frontMatterFields(t *testing.T, block []byte) map[string]string {
	t.Helper()
	s := string(block)
	require.True(t, strings.HasPrefix(s, "---\n"))
	require.True(t, strings.HasSuffix(s, "---\n"))
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "---\n"), "---\n")
	fields := map[string]string{}
	require.NoError(t, yaml.Unmarshal([]byte(inner), &fields))
	return fields
}

func TestAstroFormat_FrontMatterRoundTripsQuotes(t *testing.T) {
	block, err := AstroFormat{}.FrontMatter(samplePost())
	require.NoError(t, err)

	fields := frontMatterFields(t, block)
	require.Equal(t, `Markets "Rally" Again`, fields["title"])
	require.Equal(t, "Stocks climbed today...", fields["description"])
	require.Equal(t, "2025-02-03T09:30:00Z", fields["pubDate"])
	require.Equal(t, "https://news.example.com/rally", fields["link"])
	require.NotContains(t, fields, "date")
}

func TestHugoFormat_FrontMatterUsesDateKey(t *testing.T) {
	block, err := HugoFormat{}.FrontMatter(samplePost())
	require.NoError(t, err)

	fields := frontMatterFields(t, block)
	require.Equal(t, "2025-02-03T09:30:00Z", fields["date"])
	require.NotContains(t, fields, "pubDate")
}

func TestFrontMatter_KeyOrder(t *testing.T) {
	block, err := AstroFormat{}.FrontMatter(samplePost())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(block)), "\n")
	// ---, title, description, pubDate, link, ---
	require.Len(t, lines, 6)
	require.True(t, strings.HasPrefix(lines[1], "title:"))
	require.True(t, strings.HasPrefix(lines[2], "description:"))
	require.True(t, strings.HasPrefix(lines[3], "pubDate:"))
	require.True(t, strings.HasPrefix(lines[4], "link:"))
}
