package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/plexrec/internal/plex"
	"github.com/TobiSchelling/plexrec/internal/recommend"
)

type mockCatalog struct {
	results   map[string][]plex.Item
	errs      map[string]error
	labelErr  error
	searched  []string
	labeled   []string
	lastLabel string
}

func (m *mockCatalog) Search(_ context.Context, title string) ([]plex.Item, error) {
	m.searched = append(m.searched, title)
	if err, ok := m.errs[title]; ok {
		return nil, err
	}
	return m.results[title], nil
}

func (m *mockCatalog) AddLabel(_ context.Context, item plex.Item, label string) error {
	if m.labelErr != nil {
		return m.labelErr
	}
	m.labeled = append(m.labeled, item.RatingKey)
	m.lastLabel = label
	return nil
}

func records(titles ...string) []recommend.Record {
	out := make([]recommend.Record, len(titles))
	for i, t := range titles {
		out[i] = recommend.Record{Title: t, Genre: "g", Description: "d"}
	}
	return out
}

func TestReconcileFirstExactCaseInsensitiveMatchWins(t *testing.T) {
	cat := &mockCatalog{results: map[string][]plex.Item{
		"The Matrix": {
			{RatingKey: "1", Title: "the matrix"},
			{RatingKey: "2", Title: "The Matrix Reloaded"},
			{RatingKey: "3", Title: "THE MATRIX"},
		},
	}}

	res, err := New(cat).Reconcile(context.Background(), records("The Matrix"), "Sci-Fi Spectacle")
	require.NoError(t, err)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, "1", res.Matched[0].Item.RatingKey)
	assert.Empty(t, res.Missing)
	assert.Equal(t, []string{"1"}, cat.labeled)
	assert.Equal(t, "AI Recommended - Sci-Fi Spectacle", cat.lastLabel)
}

func TestReconcileSubstringIsNotAMatch(t *testing.T) {
	cat := &mockCatalog{results: map[string][]plex.Item{
		"Alien": {{RatingKey: "1", Title: "Aliens"}, {RatingKey: "2", Title: "Alien: Covenant"}},
	}}

	res, err := New(cat).Reconcile(context.Background(), records("Alien"), "x")
	require.NoError(t, err)
	assert.Empty(t, res.Matched)
	assert.Equal(t, []string{"Alien"}, res.MissingTitles())
	assert.Empty(t, cat.labeled)
}

func TestReconcilePartitionIsExactAndOrdered(t *testing.T) {
	cat := &mockCatalog{
		results: map[string][]plex.Item{
			"Heat":  {{RatingKey: "10", Title: "Heat"}},
			"Ronin": {{RatingKey: "11", Title: "ronin"}},
		},
		errs: map[string]error{"Thief": fmt.Errorf("search: %w", plex.ErrNotFound)},
	}
	in := records("Heat", "Collateral", "Ronin", "Thief")

	res, err := New(cat).Reconcile(context.Background(), in, "Crime")
	require.NoError(t, err)

	var matched []string
	for _, m := range res.Matched {
		matched = append(matched, m.Record.Title)
	}
	assert.Equal(t, []string{"Heat", "Ronin"}, matched)
	assert.Equal(t, []string{"Collateral", "Thief"}, res.MissingTitles())
	assert.Equal(t, len(in), len(res.Matched)+len(res.Missing))
	assert.Equal(t, []string{"Heat", "Collateral", "Ronin", "Thief"}, cat.searched)
}

func TestReconcileUnexpectedErrorAborts(t *testing.T) {
	boom := errors.New("connection refused")
	cat := &mockCatalog{errs: map[string]error{"B": boom}}

	_, err := New(cat).Reconcile(context.Background(), records("A", "B", "C"), "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, []string{"A", "B"}, cat.searched)
}

func TestReconcileLabelFailureKeepsMatch(t *testing.T) {
	cat := &mockCatalog{
		results:  map[string][]plex.Item{"Heat": {{RatingKey: "10", Title: "Heat"}}},
		labelErr: errors.New("locked"),
	}

	res, err := New(cat).Reconcile(context.Background(), records("Heat"), "x")
	require.NoError(t, err)
	require.Len(t, res.Matched, 1)
	assert.Empty(t, res.Missing)
}
