package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/TobiSchelling/plexrec/internal/media"
)

// MachineIdentifier returns the server identifier used in item URIs. It is
// fetched once per client.
func (c *Client) MachineIdentifier(ctx context.Context) (string, error) {
	if c.machineID != "" {
		return c.machineID, nil
	}
	var resp mediaContainer
	if err := c.getJSON(ctx, "/identity", nil, &resp); err != nil {
		return "", fmt.Errorf("reading server identity: %w", err)
	}
	if resp.MediaContainer.MachineIdentifier == "" {
		return "", fmt.Errorf("server identity has no machineIdentifier")
	}
	c.machineID = resp.MediaContainer.MachineIdentifier
	return c.machineID, nil
}

func (c *Client) itemsURI(ctx context.Context, items []Item) (string, error) {
	machine, err := c.MachineIdentifier(ctx)
	if err != nil {
		return "", err
	}
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.RatingKey
	}
	return fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s", machine, strings.Join(keys, ",")), nil
}

// Collections lists the collections in a section.
func (c *Client) Collections(ctx context.Context, sectionKey string) ([]Item, error) {
	var resp mediaContainer
	if err := c.getJSON(ctx, "/library/sections/"+sectionKey+"/collections", nil, &resp); err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return resp.MediaContainer.Metadata, nil
}

// FindCollection returns the collection whose title equals name ignoring
// case, or ErrNotFound.
func (c *Client) FindCollection(ctx context.Context, sectionKey, name string) (Item, error) {
	colls, err := c.Collections(ctx, sectionKey)
	if err != nil {
		return Item{}, err
	}
	for _, coll := range colls {
		if strings.EqualFold(coll.Title, name) {
			return coll, nil
		}
	}
	return Item{}, fmt.Errorf("collection %q: %w", name, ErrNotFound)
}

// CreateCollection creates a regular (non-smart) collection holding items.
func (c *Client) CreateCollection(ctx context.Context, sectionKey string, kind media.Kind, name string, items []Item) (Item, error) {
	uri, err := c.itemsURI(ctx, items)
	if err != nil {
		return Item{}, err
	}

	q := url.Values{}
	q.Set("type", strconv.Itoa(searchType(kind)))
	q.Set("title", name)
	q.Set("smart", "0")
	q.Set("sectionId", sectionKey)
	q.Set("uri", uri)

	var resp mediaContainer
	if err := c.doRequest(ctx, requestConfig{method: http.MethodPost, path: "/library/collections", query: q}, &resp); err != nil {
		return Item{}, fmt.Errorf("creating collection %q: %w", name, err)
	}
	if len(resp.MediaContainer.Metadata) == 0 {
		return Item{}, fmt.Errorf("creating collection %q: empty response", name)
	}
	return resp.MediaContainer.Metadata[0], nil
}

// AddToCollection adds items to an existing collection.
func (c *Client) AddToCollection(ctx context.Context, collectionKey string, items []Item) error {
	uri, err := c.itemsURI(ctx, items)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("uri", uri)
	if err := c.doRequest(ctx, requestConfig{
		method: http.MethodPut,
		path:   "/library/collections/" + collectionKey + "/items",
		query:  q,
	}, nil); err != nil {
		return fmt.Errorf("adding to collection %s: %w", collectionKey, err)
	}
	return nil
}

// Promote features a collection in Recommended and on the owner's and
// shared users' home screens.
func (c *Client) Promote(ctx context.Context, sectionKey, collectionKey string) error {
	q := url.Values{}
	q.Set("metadataItemId", collectionKey)
	q.Set("promotedToRecommended", "1")
	q.Set("promotedToOwnHome", "1")
	q.Set("promotedToSharedHome", "1")
	if err := c.doRequest(ctx, requestConfig{
		method: http.MethodPost,
		path:   "/hubs/sections/" + sectionKey + "/manage",
		query:  q,
	}, nil); err != nil {
		return fmt.Errorf("promoting collection %s: %w", collectionKey, err)
	}
	return nil
}
