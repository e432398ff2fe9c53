// Package ombi submits media requests to an Ombi server.
package ombi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/TobiSchelling/plexrec/internal/config"
	"github.com/TobiSchelling/plexrec/internal/forward"
	"github.com/TobiSchelling/plexrec/internal/media"
)

// ErrRejected is returned when Ombi answers a request with isError set.
var ErrRejected = errors.New("request rejected by ombi")

// Client talks to the Ombi v1 API.
type Client struct {
	http         *resty.Client
	languageCode string
}

// New creates a client from config. Callers check cfg.Ready first.
func New(cfg config.Ombi, timeout time.Duration) *Client {
	lang := cfg.LanguageCode
	if lang == "" {
		lang = "en"
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetHeader("ApiKey", cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	return &Client{http: c, languageCode: lang}
}

func (c *Client) Name() string { return "ombi" }

// searchResult is one entry of /Search/multi. Older servers name the kind
// field "type", newer ones "mediaType"; the id may be a string or a number.
type searchResult struct {
	ID        json.RawMessage `json:"id"`
	Title     string          `json:"title"`
	Type      string          `json:"type"`
	MediaType string          `json:"mediaType"`
}

func (r searchResult) kind() string {
	if r.Type != "" {
		return r.Type
	}
	return r.MediaType
}

func (r searchResult) id() string {
	return strings.Trim(string(r.ID), `"`)
}

// ombiKind maps a media kind to the Ombi result type.
func ombiKind(k media.Kind) string {
	if k == media.Show {
		return "tv"
	}
	return "movie"
}

// Search returns the first result whose type matches kind.
func (c *Client) Search(ctx context.Context, title string, kind media.Kind) (forward.Candidate, error) {
	var results []searchResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("title", title).
		SetResult(&results).
		Get("/api/v1/Search/multi/{title}")
	if err != nil {
		return forward.Candidate{}, err
	}
	if resp.IsError() {
		return forward.Candidate{}, fmt.Errorf("search status %d", resp.StatusCode())
	}

	want := ombiKind(kind)
	for _, r := range results {
		if r.kind() == want && r.id() != "" {
			return forward.Candidate{Title: title, Kind: kind, ID: r.id()}, nil
		}
	}
	return forward.Candidate{}, fmt.Errorf("%q as %s: %w", title, want, forward.ErrNoMatch)
}

type requestResult struct {
	Result       bool   `json:"result"`
	Message      string `json:"message"`
	IsError      bool   `json:"isError"`
	ErrorMessage string `json:"errorMessage"`
}

// Submit requests a movie by TMDB id or a whole show by TVDB id.
func (c *Client) Submit(ctx context.Context, cand forward.Candidate) error {
	id, err := strconv.Atoi(cand.ID)
	if err != nil {
		return fmt.Errorf("invalid ombi id %q: %w", cand.ID, err)
	}

	path := "/api/v1/Request/movie"
	body := map[string]any{"theMovieDbId": id, "languageCode": c.languageCode}
	if cand.Kind == media.Show {
		path = "/api/v1/Request/tv"
		body = map[string]any{"tvDbId": id, "requestAll": true, "languageCode": c.languageCode}
	}

	var result requestResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("request status %d", resp.StatusCode())
	}
	if result.IsError {
		return fmt.Errorf("%w: %s", ErrRejected, result.ErrorMessage)
	}
	return nil
}
