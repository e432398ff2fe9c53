/*
Package plex is a small client for the Plex Media Server HTTP API.

It covers what a recommendation pass needs: reading a section's items and
ratings, searching by title, labeling items, and managing collections
(create, add items, edit the summary, promote to home screens).

All requests carry the X-Plex-Token header and ask for JSON. Nothing is
retried: an HTTP 429 is returned as ErrRateLimited and the caller decides.
*/
package plex

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound is returned when Plex answers 404 or a named section or
// collection does not exist.
var ErrNotFound = errors.New("not found in library")

// ErrRateLimited is returned when Plex answers 429.
var ErrRateLimited = errors.New("plex rate limit exceeded")

// Client handles communication with a Plex Media Server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	machineID string
}

// NewClient creates a Plex client with a 30s request timeout.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Item is a library metadata entry: a movie, a show or a collection.
type Item struct {
	RatingKey       string  `json:"ratingKey"`
	Key             string  `json:"key,omitempty"`
	Type            string  `json:"type"`
	Title           string  `json:"title"`
	Year            int     `json:"year,omitempty"`
	Summary         string  `json:"summary,omitempty"`
	ViewCount       int     `json:"viewCount,omitempty"`
	ViewedLeafCount int     `json:"viewedLeafCount,omitempty"`
	UserRating      float64 `json:"userRating,omitempty"`
	Label           []Tag   `json:"Label,omitempty"`
}

// Tag is a label, genre or similar tag attached to an item.
type Tag struct {
	Tag string `json:"tag"`
}

// Labels returns the item's label names.
func (i Item) Labels() []string {
	out := make([]string, 0, len(i.Label))
	for _, t := range i.Label {
		out = append(out, t.Tag)
	}
	return out
}

// Watched reports whether a movie was played or a show has any played episode.
func (i Item) Watched() bool {
	return i.ViewCount > 0 || i.ViewedLeafCount > 0
}

// Directory is a library section.
type Directory struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type mediaContainer struct {
	MediaContainer struct {
		Size              int         `json:"size"`
		MachineIdentifier string      `json:"machineIdentifier,omitempty"`
		Metadata          []Item      `json:"Metadata"`
		Directory         []Directory `json:"Directory"`
	} `json:"MediaContainer"`
}
