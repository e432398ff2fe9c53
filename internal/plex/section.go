package plex

import (
	"context"

	"github.com/TobiSchelling/plexrec/internal/media"
)

// Section binds a client to one library section and media kind. It is the
// catalog a reconciliation pass searches and the library it publishes to.
type Section struct {
	client *Client
	Key    string
	Title  string
	Kind   media.Kind
}

// OpenSection resolves a section by name.
func (c *Client) OpenSection(ctx context.Context, title string, kind media.Kind) (*Section, error) {
	dir, err := c.SectionByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	return &Section{client: c, Key: dir.Key, Title: dir.Title, Kind: kind}, nil
}

// Items returns every item in the section.
func (s *Section) Items(ctx context.Context) ([]Item, error) {
	return s.client.All(ctx, s.Key)
}

func (s *Section) Search(ctx context.Context, title string) ([]Item, error) {
	return s.client.Search(ctx, s.Key, s.Kind, title)
}

func (s *Section) AddLabel(ctx context.Context, item Item, label string) error {
	return s.client.AddLabel(ctx, s.Key, s.Kind, item.RatingKey, label)
}

func (s *Section) FindCollection(ctx context.Context, name string) (Item, error) {
	return s.client.FindCollection(ctx, s.Key, name)
}

func (s *Section) CreateCollection(ctx context.Context, name string, items []Item) (Item, error) {
	return s.client.CreateCollection(ctx, s.Key, s.Kind, name, items)
}

func (s *Section) AddToCollection(ctx context.Context, collection Item, items []Item) error {
	return s.client.AddToCollection(ctx, collection.RatingKey, items)
}

func (s *Section) SetSummary(ctx context.Context, collection Item, summary string) error {
	return s.client.SetSummary(ctx, s.Key, collection.RatingKey, summary)
}

func (s *Section) Promote(ctx context.Context, collection Item) error {
	return s.client.Promote(ctx, s.Key, collection.RatingKey)
}
