// Package content turns feed items into markdown posts for a static site
// generator. The front matter shape and target directory vary per generator
// and are abstracted behind Format.
package content

import (
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"newsblaster/internal/feed"
)

const (
	// slugMaxRunes bounds the filtered title before trimming.
	slugMaxRunes = 60
	// descriptionMaxRunes bounds the stripped summary before the ellipsis.
	descriptionMaxRunes = 155
)

// Post is a renderable article derived from one feed item.
type Post struct {
	Title       string
	Slug        string
	Description string
	Link        string
	Published   time.Time
	// Summary is the raw feed summary with its markup intact; it becomes
	// the post body.
	Summary string
}

// NewPost derives a post from a feed item. Items without a parseable
// publication time fall back to the current time.
func NewPost(item feed.Item) Post {
	published := item.Published
	if published.IsZero() {
		published = time.Now()
	}
	return Post{
		Title:       item.Title,
		Slug:        Slugify(item.Title),
		Description: CleanDescription(item.Summary),
		Link:        item.Link,
		Published:   published,
		Summary:     item.Summary,
	}
}

// Slugify derives a deterministic file slug from a title: keep only letters,
// digits, spaces and hyphens, cut to 60 runes, trim, lowercase, and replace
// spaces with hyphens. Two titles that agree on their first 60 filtered
// runes collide; the renderer lets the later one win.
func Slugify(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' || r == '-' {
			b.WriteRune(r)
		}
	}
	runes := []rune(b.String())
	if len(runes) > slugMaxRunes {
		runes = runes[:slugMaxRunes]
	}
	s := strings.ToLower(strings.TrimSpace(string(runes)))
	return strings.ReplaceAll(s, " ", "-")
}

// CleanDescription strips markup from a feed summary and truncates it to 155
// runes with a trailing ellipsis. The ellipsis is always appended, matching
// the site's card layout which expects it.
func CleanDescription(summary string) string {
	text := summary
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(summary))
	if err == nil {
		// html.Parse tolerates malformed markup, so this is the normal path;
		// it also decodes entities the regex-stripping approach would leave.
		text = doc.Text()
	}
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > descriptionMaxRunes {
		runes = runes[:descriptionMaxRunes]
	}
	return string(runes) + "..."
}
