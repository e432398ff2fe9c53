// Package trakt adds titles to a Trakt watchlist and handles the OAuth
// device flow that authorizes it.
package trakt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/TobiSchelling/plexrec/internal/config"
	"github.com/TobiSchelling/plexrec/internal/forward"
	"github.com/TobiSchelling/plexrec/internal/media"
)

// ErrNoToken is returned by New when no access token has been authorized yet.
var ErrNoToken = errors.New("no trakt access token; run 'plexrec trakt-auth'")

// Client is an authorized Trakt API client.
type Client struct {
	http *resty.Client
}

// New creates a client using the access token in cfg.
func New(ctx context.Context, cfg config.Trakt, baseURL string, timeout time.Duration) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, ErrNoToken
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	ts := oauth2.StaticTokenSource(Token(cfg))
	c := resty.NewWithClient(oauth2.NewClient(ctx, ts)).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("trakt-api-version", "2").
		SetHeader("trakt-api-key", cfg.ClientID).
		SetTimeout(timeout).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	return &Client{http: c}, nil
}

// Token converts the stored credentials to an oauth2 token.
func Token(cfg config.Trakt) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  cfg.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: cfg.RefreshToken,
	}
	if cfg.ExpiresAt > 0 {
		tok.Expiry = time.Unix(cfg.ExpiresAt, 0)
	}
	return tok
}

func (c *Client) Name() string { return "trakt" }

type ids struct {
	Trakt int    `json:"trakt"`
	Slug  string `json:"slug,omitempty"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  int    `json:"tmdb,omitempty"`
}

type mediaRef struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   ids    `json:"ids"`
}

type searchResult struct {
	Type  string    `json:"type"`
	Movie *mediaRef `json:"movie,omitempty"`
	Show  *mediaRef `json:"show,omitempty"`
}

func traktType(k media.Kind) string {
	if k == media.Show {
		return "show"
	}
	return "movie"
}

// Search returns the first search hit of the requested kind.
func (c *Client) Search(ctx context.Context, title string, kind media.Kind) (forward.Candidate, error) {
	typ := traktType(kind)
	var results []searchResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("type", typ).
		SetQueryParam("query", title).
		SetResult(&results).
		Get("/search/{type}")
	if err != nil {
		return forward.Candidate{}, err
	}
	if resp.IsError() {
		return forward.Candidate{}, fmt.Errorf("search status %d", resp.StatusCode())
	}

	for _, r := range results {
		ref := r.Movie
		if kind == media.Show {
			ref = r.Show
		}
		if r.Type == typ && ref != nil && ref.IDs.Trakt != 0 {
			return forward.Candidate{Title: ref.Title, Kind: kind, Year: ref.Year, ID: strconv.Itoa(ref.IDs.Trakt)}, nil
		}
	}
	return forward.Candidate{}, fmt.Errorf("%q as %s: %w", title, typ, forward.ErrNoMatch)
}

type syncItem struct {
	IDs ids `json:"ids"`
}

type syncResponse struct {
	NotFound struct {
		Movies []syncItem `json:"movies"`
		Shows  []syncItem `json:"shows"`
	} `json:"not_found"`
}

// Submit adds the candidate to the user's watchlist.
func (c *Client) Submit(ctx context.Context, cand forward.Candidate) error {
	id, err := strconv.Atoi(cand.ID)
	if err != nil {
		return fmt.Errorf("invalid trakt id %q: %w", cand.ID, err)
	}
	key := "movies"
	if cand.Kind == media.Show {
		key = "shows"
	}

	var result syncResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string][]syncItem{key: {{IDs: ids{Trakt: id}}}}).
		SetResult(&result).
		Post("/sync/watchlist")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("watchlist status %d", resp.StatusCode())
	}
	if len(result.NotFound.Movies)+len(result.NotFound.Shows) > 0 {
		return fmt.Errorf("trakt id %d: %w", id, forward.ErrNoMatch)
	}
	return nil
}
