package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/TobiSchelling/plexrec/internal/media"
)

// Plex metadata type numbers used by search and edit endpoints.
const (
	typeMovie      = 1
	typeShow       = 2
	typeCollection = 18
)

func searchType(kind media.Kind) int {
	if kind == media.Show {
		return typeShow
	}
	return typeMovie
}

// RatingEntry is a user-assigned rating for a title.
type RatingEntry struct {
	Title  string
	Rating float64
}

// Sections lists the library sections.
func (c *Client) Sections(ctx context.Context) ([]Directory, error) {
	var resp mediaContainer
	if err := c.getJSON(ctx, "/library/sections", nil, &resp); err != nil {
		return nil, fmt.Errorf("listing sections: %w", err)
	}
	return resp.MediaContainer.Directory, nil
}

// SectionByTitle finds a section by its display name.
func (c *Client) SectionByTitle(ctx context.Context, title string) (Directory, error) {
	sections, err := c.Sections(ctx)
	if err != nil {
		return Directory{}, err
	}
	for _, s := range sections {
		if s.Title == title {
			return s, nil
		}
	}
	return Directory{}, fmt.Errorf("section %q: %w", title, ErrNotFound)
}

// All returns every item in a section.
func (c *Client) All(ctx context.Context, sectionKey string) ([]Item, error) {
	var resp mediaContainer
	if err := c.getJSON(ctx, "/library/sections/"+sectionKey+"/all", nil, &resp); err != nil {
		return nil, fmt.Errorf("listing section %s: %w", sectionKey, err)
	}
	return resp.MediaContainer.Metadata, nil
}

// Search searches a section for items of the given kind by title.
func (c *Client) Search(ctx context.Context, sectionKey string, kind media.Kind, title string) ([]Item, error) {
	q := url.Values{}
	q.Set("query", title)
	q.Set("type", strconv.Itoa(searchType(kind)))

	var resp mediaContainer
	if err := c.getJSON(ctx, "/library/sections/"+sectionKey+"/search", q, &resp); err != nil {
		return nil, fmt.Errorf("searching %q: %w", title, err)
	}
	return resp.MediaContainer.Metadata, nil
}

// Metadata fetches a single item with its tags.
func (c *Client) Metadata(ctx context.Context, ratingKey string) (Item, error) {
	var resp mediaContainer
	if err := c.getJSON(ctx, "/library/metadata/"+ratingKey, nil, &resp); err != nil {
		return Item{}, err
	}
	if len(resp.MediaContainer.Metadata) == 0 {
		return Item{}, fmt.Errorf("metadata %s: %w", ratingKey, ErrNotFound)
	}
	return resp.MediaContainer.Metadata[0], nil
}

// AddLabel adds a label to an item, keeping its existing labels. Adding a
// label the item already has is a no-op.
func (c *Client) AddLabel(ctx context.Context, sectionKey string, kind media.Kind, ratingKey, label string) error {
	item, err := c.Metadata(ctx, ratingKey)
	if err != nil {
		return fmt.Errorf("reading labels: %w", err)
	}
	labels := item.Labels()
	if slices.Contains(labels, label) {
		return nil
	}
	labels = append(labels, label)

	q := editQuery(searchType(kind), ratingKey)
	for i, l := range labels {
		q.Set(fmt.Sprintf("label[%d].tag.tag", i), l)
	}
	q.Set("label.locked", "1")
	return c.edit(ctx, sectionKey, q)
}

// SetSummary overwrites a collection's summary.
func (c *Client) SetSummary(ctx context.Context, sectionKey, ratingKey, summary string) error {
	q := editQuery(typeCollection, ratingKey)
	q.Set("summary.value", summary)
	q.Set("summary.locked", "1")
	return c.edit(ctx, sectionKey, q)
}

func editQuery(metadataType int, ratingKey string) url.Values {
	q := url.Values{}
	q.Set("type", strconv.Itoa(metadataType))
	q.Set("id", ratingKey)
	return q
}

func (c *Client) edit(ctx context.Context, sectionKey string, q url.Values) error {
	return c.doRequest(ctx, requestConfig{
		method: http.MethodPut,
		path:   "/library/sections/" + sectionKey + "/all",
		query:  q,
	}, nil)
}

// WatchedTitles returns the titles of played items, deduplicated in
// first-seen order.
func WatchedTitles(items []Item) []string {
	seen := make(map[string]bool)
	var titles []string
	for _, it := range items {
		if !it.Watched() || seen[it.Title] {
			continue
		}
		seen[it.Title] = true
		titles = append(titles, it.Title)
	}
	return titles
}

// Ratings returns the items that carry a user rating.
func Ratings(items []Item) []RatingEntry {
	var out []RatingEntry
	for _, it := range items {
		if it.UserRating > 0 {
			out = append(out, RatingEntry{Title: it.Title, Rating: it.UserRating})
		}
	}
	return out
}

// FormatRatings renders rating entries as "Title (8/10)" for prompts.
func FormatRatings(entries []RatingEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s (%s/10)", e.Title, strconv.FormatFloat(e.Rating, 'f', -1, 64))
	}
	return strings.Join(parts, ", ")
}
