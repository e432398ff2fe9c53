package publish

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/plexrec/internal/plex"
	"github.com/TobiSchelling/plexrec/internal/reconcile"
	"github.com/TobiSchelling/plexrec/internal/recommend"
)

type mockLibrary struct {
	existing   *plex.Item
	findErr    error
	createErr  error
	promoteErr error

	calls   []string
	added   []plex.Item
	summary string
}

func (m *mockLibrary) FindCollection(_ context.Context, name string) (plex.Item, error) {
	m.calls = append(m.calls, "find")
	if m.findErr != nil {
		return plex.Item{}, m.findErr
	}
	if m.existing == nil {
		return plex.Item{}, fmt.Errorf("collection %q: %w", name, plex.ErrNotFound)
	}
	return *m.existing, nil
}

func (m *mockLibrary) CreateCollection(_ context.Context, name string, items []plex.Item) (plex.Item, error) {
	m.calls = append(m.calls, "create")
	if m.createErr != nil {
		return plex.Item{}, m.createErr
	}
	m.added = items
	return plex.Item{RatingKey: "new", Title: name}, nil
}

func (m *mockLibrary) AddToCollection(_ context.Context, _ plex.Item, items []plex.Item) error {
	m.calls = append(m.calls, "add")
	m.added = items
	return nil
}

func (m *mockLibrary) SetSummary(_ context.Context, _ plex.Item, summary string) error {
	m.calls = append(m.calls, "summary")
	m.summary = summary
	return nil
}

func (m *mockLibrary) Promote(context.Context, plex.Item) error {
	m.calls = append(m.calls, "promote")
	return m.promoteErr
}

func matches(pairs ...string) []reconcile.Match {
	var out []reconcile.Match
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, reconcile.Match{
			Record: recommend.Record{Title: pairs[i], Reason: pairs[i+1]},
			Item:   plex.Item{RatingKey: fmt.Sprint(i), Title: pairs[i]},
		})
	}
	return out
}

func TestSummaryOneLinePerMatchInOrder(t *testing.T) {
	u := Update{Name: "AI Top Rated Picks", WithReason: true, Matches: matches("Heat", "you rated Ronin 9", "Alien", "you love Aliens")}
	assert.Equal(t, "Heat: you rated Ronin 9\nAlien: you love Aliens", u.Summary())

	u.WithReason = false
	assert.Equal(t, "", u.Summary())
}

func TestPublishCreatesWhenMissing(t *testing.T) {
	lib := &mockLibrary{}
	rep := New(lib).Publish(context.Background(), Update{Name: "Classic Cinema", Matches: matches("Vertigo", "", "Casablanca", "")})

	require.NoError(t, rep.Err)
	assert.True(t, rep.Created)
	assert.Equal(t, 2, rep.Added)
	assert.Equal(t, []string{"find", "create", "promote"}, lib.calls)
	assert.Equal(t, "Vertigo", lib.added[0].Title)
}

func TestPublishAddsToExistingAndSetsSummary(t *testing.T) {
	lib := &mockLibrary{existing: &plex.Item{RatingKey: "7", Title: "AI Top Rated Picks"}}
	rep := New(lib).Publish(context.Background(), Update{Name: "AI Top Rated Picks", WithReason: true, Matches: matches("Heat", "crime")})

	require.NoError(t, rep.Err)
	assert.False(t, rep.Created)
	assert.Equal(t, "7", rep.Collection.RatingKey)
	assert.Equal(t, []string{"find", "add", "summary", "promote"}, lib.calls)
	assert.Equal(t, "Heat: crime", lib.summary)
}

func TestPublishCreateFailureIsReported(t *testing.T) {
	lib := &mockLibrary{createErr: errors.New("forbidden")}
	rep := New(lib).Publish(context.Background(), Update{Name: "X", Matches: matches("Heat", "")})

	require.Error(t, rep.Err)
	assert.Equal(t, []string{"find", "create"}, lib.calls)
}

func TestPublishLookupFailureIsReported(t *testing.T) {
	lib := &mockLibrary{findErr: errors.New("timeout")}
	rep := New(lib).Publish(context.Background(), Update{Name: "X", Matches: matches("Heat", "")})

	require.Error(t, rep.Err)
	assert.Equal(t, []string{"find"}, lib.calls)
}

func TestPublishPromoteFailureIsNonFatal(t *testing.T) {
	lib := &mockLibrary{promoteErr: errors.New("hub missing")}
	rep := New(lib).Publish(context.Background(), Update{Name: "X", Matches: matches("Heat", "")})

	assert.NoError(t, rep.Err)
	assert.Error(t, rep.PromoteErr)
	assert.True(t, rep.Created)
}

func TestPublishEmptySkips(t *testing.T) {
	lib := &mockLibrary{}
	rep := New(lib).Publish(context.Background(), Update{Name: "X"})

	assert.True(t, rep.Skipped)
	assert.Empty(t, lib.calls)
}
