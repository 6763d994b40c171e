package content

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"newsblaster/internal/feed"
	"newsblaster/internal/logfields"
)

// Renderer writes markdown posts for one content format.
type Renderer struct {
	format Format
	logger *slog.Logger
}

func NewRenderer(format Format, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{format: format, logger: logger}
}

// RenderAll clears the format's content directory under siteDir and writes
// one markdown file per item. It returns the number of distinct files on
// disk afterwards, which is less than len(items) when slugs collide.
func (r *Renderer) RenderAll(siteDir string, items []feed.Item) (int, error) {
	dir := r.format.ContentDir(siteDir)
	if err := os.RemoveAll(dir); err != nil {
		return 0, fmt.Errorf("clear content dir %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create content dir %s: %w", dir, err)
	}

	written := make(map[string]struct{}, len(items))
	for _, item := range items {
		post := NewPost(item)
		body, err := r.renderPost(post)
		if err != nil {
			return len(written), fmt.Errorf("render post %q: %w", post.Title, err)
		}
		path := filepath.Join(dir, post.Slug+".md")
		if err := os.WriteFile(path, body, 0644); err != nil {
			return len(written), fmt.Errorf("write post %s: %w", path, err)
		}
		written[path] = struct{}{}
	}

	r.logger.Debug("rendered posts",
		logfields.Generator(r.format.Name()),
		logfields.Path(dir),
		logfields.Files(len(written)))
	return len(written), nil
}

// renderPost produces the complete markdown file: front matter, the raw
// summary as the body, and a read-more link back to the source.
func (r *Renderer) renderPost(post Post) ([]byte, error) {
	fm, err := r.format.FrontMatter(post)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.Write(fm)
	b.WriteString("\n")
	b.WriteString(post.Summary)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "[Read full story →](%s)\n", post.Link)
	return b.Bytes(), nil
}
