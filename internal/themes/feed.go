package themes

import (
	"context"
	"strings"

	"github.com/mmcdole/gofeed"
)

const maxFeedTitles = 20

// FeedReader fetches reference titles from RSS/Atom feeds such as a
// Letterboxd list.
type FeedReader struct {
	parser *gofeed.Parser
}

func NewFeedReader() *FeedReader {
	return &FeedReader{parser: gofeed.NewParser()}
}

// Titles returns up to 20 non-empty item titles from the feed.
func (r *FeedReader) Titles(ctx context.Context, feedURL string) ([]string, error) {
	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}
	return itemTitles(feed.Items), nil
}

func itemTitles(items []*gofeed.Item) []string {
	var titles []string
	for _, item := range items {
		if len(titles) >= maxFeedTitles {
			break
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		titles = append(titles, title)
	}
	return titles
}
