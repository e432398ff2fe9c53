package forward

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/plexrec/internal/media"
)

type mockTarget struct {
	name      string
	slow      map[string]bool
	missing   map[string]bool
	rejected  map[string]bool
	searched  []string
	submitted []string
	times     []time.Time
}

func (m *mockTarget) Name() string { return m.name }

func (m *mockTarget) Search(ctx context.Context, title string, kind media.Kind) (Candidate, error) {
	m.searched = append(m.searched, title)
	m.times = append(m.times, time.Now())
	if m.slow[title] {
		<-ctx.Done()
		return Candidate{}, ctx.Err()
	}
	if m.missing[title] {
		return Candidate{}, fmt.Errorf("%q: %w", title, ErrNoMatch)
	}
	return Candidate{Title: title, Kind: kind, ID: "id-" + title}, nil
}

func (m *mockTarget) Submit(_ context.Context, c Candidate) error {
	if m.rejected[c.Title] {
		return errors.New("already requested")
	}
	m.submitted = append(m.submitted, c.Title)
	return nil
}

func TestForwardEveryTitleOnceDespiteFailures(t *testing.T) {
	target := &mockTarget{
		name:     "ombi",
		slow:     map[string]bool{"B": true},
		missing:  map[string]bool{"C": true},
		rejected: map[string]bool{"D": true},
	}
	f := New(Options{Timeout: 20 * time.Millisecond}, target)

	outcomes := f.Forward(context.Background(), []string{"A", "B", "C", "D", "E"}, media.Movie)

	require.Len(t, outcomes, 5)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, target.searched)
	assert.Equal(t, []string{"A", "E"}, target.submitted)

	assert.True(t, outcomes[0].Submitted())
	assert.True(t, errors.Is(outcomes[1].Attempts[0].Err, ErrTimeout))
	assert.True(t, errors.Is(outcomes[2].Attempts[0].Err, ErrNoMatch))
	assert.EqualError(t, outcomes[3].Attempts[0].Err, "submit: already requested")
	assert.Equal(t, "id-D", outcomes[3].Attempts[0].Candidate.ID)
	assert.True(t, outcomes[4].Submitted())
}

func TestForwardTriesEachTarget(t *testing.T) {
	ombi := &mockTarget{name: "ombi", missing: map[string]bool{"A": true}}
	trakt := &mockTarget{name: "trakt"}
	f := New(Options{}, ombi, trakt)

	outcomes := f.Forward(context.Background(), []string{"A"}, media.Show)

	require.Len(t, outcomes, 1)
	require.Len(t, outcomes[0].Attempts, 2)
	assert.Equal(t, "ombi", outcomes[0].Attempts[0].Target)
	assert.False(t, outcomes[0].Attempts[0].Submitted)
	assert.True(t, outcomes[0].Attempts[1].Submitted)
	assert.True(t, outcomes[0].Submitted())
	assert.Equal(t, []string{"ombi", "trakt"}, f.Targets())
}

func TestForwardPacesCalls(t *testing.T) {
	target := &mockTarget{name: "ombi"}
	f := New(Options{Delay: 30 * time.Millisecond}, target)

	f.Forward(context.Background(), []string{"A", "B", "C"}, media.Movie)

	require.Len(t, target.times, 3)
	assert.GreaterOrEqual(t, target.times[2].Sub(target.times[0]), 50*time.Millisecond)
}

func TestForwardCancelledContextStops(t *testing.T) {
	target := &mockTarget{name: "ombi"}
	f := New(Options{Delay: time.Hour}, target)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes := f.Forward(ctx, []string{"A", "B"}, media.Movie)

	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Attempts[0].Err)
	assert.Empty(t, target.searched)
}

func TestForwardNoTargets(t *testing.T) {
	assert.Nil(t, New(Options{}).Forward(context.Background(), []string{"A"}, media.Movie))
}
