package content

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Format captures how one site generator wants its posts laid out: where
// they live inside the site project and what the front matter looks like.
type Format interface {
	Name() string
	// ContentDir returns the directory posts are written into for a site
	// project rooted at siteDir.
	ContentDir(siteDir string) string
	// FrontMatter renders the delimited YAML front matter block for a post.
	FrontMatter(post Post) ([]byte, error)
}

// FormatFor resolves a generator name to its content format.
func FormatFor(name string) (Format, error) {
	switch name {
	case "astro":
		return AstroFormat{}, nil
	case "hugo":
		return HugoFormat{}, nil
	default:
		return nil, fmt.Errorf("unknown content format %q", name)
	}
}

// AstroFormat renders posts for an Astro content collection.
type AstroFormat struct{}

func (AstroFormat) Name() string { return "astro" }

func (AstroFormat) ContentDir(siteDir string) string {
	return filepath.Join(siteDir, "src", "content", "blog")
}

func (AstroFormat) FrontMatter(post Post) ([]byte, error) {
	return marshalFrontMatter(astroFrontMatter{
		Title:       post.Title,
		Description: post.Description,
		PubDate:     post.Published.Format(time.RFC3339),
		Link:        post.Link,
	})
}

// astroFrontMatter field order is the emitted key order.
type astroFrontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	PubDate     string `yaml:"pubDate"`
	Link        string `yaml:"link"`
}

// HugoFormat renders posts for a Hugo content section.
type HugoFormat struct{}

func (HugoFormat) Name() string { return "hugo" }

func (HugoFormat) ContentDir(siteDir string) string {
	return filepath.Join(siteDir, "content", "posts")
}

func (HugoFormat) FrontMatter(post Post) ([]byte, error) {
	return marshalFrontMatter(hugoFrontMatter{
		Title:       post.Title,
		Description: post.Description,
		Date:        post.Published.Format(time.RFC3339),
		Link:        post.Link,
	})
}

type hugoFrontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Date        string `yaml:"date"`
	Link        string `yaml:"link"`
}

// marshalFrontMatter wraps YAML-encoded fields in the --- delimiters. The
// encoder handles quoting and escaping, so titles and descriptions with
// quotes survive round-trips.
func marshalFrontMatter(v any) ([]byte, error) {
	body, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal front matter: %w", err)
	}
	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(body)
	b.WriteString("---\n")
	return b.Bytes(), nil
}
