// Package feed retrieves news items from the Google News RSS search feed.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"newsblaster/internal/logfields"
)

const userAgent = "newsblaster/1.0"

// Item is a single news entry in feed order. Published is zero when the feed
// carried no parseable timestamp; renderers fall back to the current time.
type Item struct {
	Title     string
	Link      string
	Summary   string
	Published time.Time
}

// Fetcher retrieves and parses the news feed for a query.
type Fetcher struct {
	urlTemplate string
	limit       int
	parser      *gofeed.Parser
	logger      *slog.Logger
}

// NewFetcher creates a fetcher. urlTemplate must contain one %s placeholder
// for the escaped query; limit caps how many items a fetch returns.
func NewFetcher(urlTemplate string, limit int, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: 30 * time.Second}
	parser.UserAgent = userAgent
	return &Fetcher{
		urlTemplate: urlTemplate,
		limit:       limit,
		parser:      parser,
		logger:      logger,
	}
}

// Fetch downloads and parses the feed for query, returning at most the
// configured limit of items in the order the feed lists them.
func (f *Fetcher) Fetch(ctx context.Context, query string) ([]Item, error) {
	feedURL := fmt.Sprintf(f.urlTemplate, url.QueryEscape(query))
	f.logger.Debug("fetching feed", logfields.Query(query), logfields.URL(feedURL))

	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed for %q: %w", query, err)
	}

	items := make([]Item, 0, min(len(parsed.Items), f.limit))
	for _, entry := range parsed.Items {
		if len(items) >= f.limit {
			break
		}
		item := Item{
			Title:   entry.Title,
			Link:    entry.Link,
			Summary: entry.Description,
		}
		if entry.PublishedParsed != nil {
			item.Published = *entry.PublishedParsed
		}
		items = append(items, item)
	}

	f.logger.Debug("feed fetched", logfields.Query(query), logfields.Items(len(items)))
	return items, nil
}
