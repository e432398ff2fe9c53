package ombi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/plexrec/internal/config"
	"github.com/TobiSchelling/plexrec/internal/forward"
	"github.com/TobiSchelling/plexrec/internal/media"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.Ombi{Enabled: true, URL: srv.URL + "/", APIKey: "k"}, 5*time.Second)
}

func TestSearchPicksFirstResultOfKind(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("ApiKey"))
		assert.Equal(t, "/api/v1/Search/multi/The Office", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"2316","title":"The Office","type":"movie"},{"id":73244,"title":"The Office","type":"tv"}]`))
	})

	cand, err := c.Search(context.Background(), "The Office", media.Show)
	require.NoError(t, err)
	assert.Equal(t, "73244", cand.ID)
	assert.Equal(t, media.Show, cand.Kind)

	cand, err = c.Search(context.Background(), "The Office", media.Movie)
	require.NoError(t, err)
	assert.Equal(t, "2316", cand.ID)
}

func TestSearchNoMatchingKind(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"1","mediaType":"person"}]`))
	})

	_, err := c.Search(context.Background(), "Nobody", media.Movie)
	assert.True(t, errors.Is(err, forward.ErrNoMatch))
}

func TestSearchErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Search(context.Background(), "Heat", media.Movie)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSubmitMovieAndShowBodies(t *testing.T) {
	var paths []string
	var bodies []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		require.NoError(t, json.Unmarshal(data, &body))
		bodies = append(bodies, body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":true,"isError":false}`))
	})

	require.NoError(t, c.Submit(context.Background(), forward.Candidate{Kind: media.Movie, ID: "949"}))
	require.NoError(t, c.Submit(context.Background(), forward.Candidate{Kind: media.Show, ID: "73244"}))

	assert.Equal(t, []string{"/api/v1/Request/movie", "/api/v1/Request/tv"}, paths)
	assert.Equal(t, map[string]any{"theMovieDbId": 949.0, "languageCode": "en"}, bodies[0])
	assert.Equal(t, map[string]any{"tvDbId": 73244.0, "requestAll": true, "languageCode": "en"}, bodies[1])
}

func TestSubmitRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":false,"isError":true,"errorMessage":"already requested"}`))
	})

	err := c.Submit(context.Background(), forward.Candidate{Kind: media.Movie, ID: "1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Contains(t, err.Error(), "already requested")
}
