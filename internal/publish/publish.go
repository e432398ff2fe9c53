// Package publish turns reconciled matches into a promoted library collection.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TobiSchelling/plexrec/internal/logging"
	"github.com/TobiSchelling/plexrec/internal/plex"
	"github.com/TobiSchelling/plexrec/internal/reconcile"
)

// Library is the collection side of a library section.
type Library interface {
	FindCollection(ctx context.Context, name string) (plex.Item, error)
	CreateCollection(ctx context.Context, name string, items []plex.Item) (plex.Item, error)
	AddToCollection(ctx context.Context, collection plex.Item, items []plex.Item) error
	SetSummary(ctx context.Context, collection plex.Item, summary string) error
	Promote(ctx context.Context, collection plex.Item) error
}

// Update is one collection write: the matched items, the collection name
// and whether the records carry a rationale for the summary.
type Update struct {
	Name       string
	Matches    []reconcile.Match
	WithReason bool
}

// Summary builds one "{title}: {reason}" line per match, in match order.
// It is empty when the update has no rationale.
func (u Update) Summary() string {
	if !u.WithReason || len(u.Matches) == 0 {
		return ""
	}
	lines := make([]string, len(u.Matches))
	for i, m := range u.Matches {
		lines[i] = fmt.Sprintf("%s: %s", m.Record.Title, m.Record.Reason)
	}
	return strings.Join(lines, "\n")
}

// Report describes what Publish did.
type Report struct {
	Collection plex.Item
	Created    bool
	Added      int
	Skipped    bool

	// Err is set when the collection could not be found, created or filled.
	Err error
	// SummaryErr and PromoteErr are non-fatal.
	SummaryErr error
	PromoteErr error
}

// Publisher writes updates to a library.
type Publisher struct {
	library Library
}

func New(library Library) *Publisher {
	return &Publisher{library: library}
}

// Publish adds the matched items to the named collection, creating it when
// absent. With a rationale the summary is overwritten. The collection is
// then promoted. An empty match set publishes nothing.
func (p *Publisher) Publish(ctx context.Context, u Update) Report {
	if len(u.Matches) == 0 {
		logging.Info().Str("collection", u.Name).Msg("No recommended items found in library, skipping collection")
		return Report{Skipped: true}
	}

	items := make([]plex.Item, len(u.Matches))
	for i, m := range u.Matches {
		items[i] = m.Item
	}

	var rep Report
	coll, err := p.library.FindCollection(ctx, u.Name)
	switch {
	case err == nil:
		if err := p.library.AddToCollection(ctx, coll, items); err != nil {
			rep.Err = fmt.Errorf("adding to collection %q: %w", u.Name, err)
			logging.Error().Err(err).Str("collection", u.Name).Msg("Failed to add items to collection")
			return rep
		}
		logging.Info().Str("collection", u.Name).Int("items", len(items)).Msg("Added items to existing collection")
	case errors.Is(err, plex.ErrNotFound):
		coll, err = p.library.CreateCollection(ctx, u.Name, items)
		if err != nil {
			rep.Err = fmt.Errorf("creating collection %q: %w", u.Name, err)
			logging.Error().Err(err).Str("collection", u.Name).Msg("Failed to create collection")
			return rep
		}
		rep.Created = true
		logging.Info().Str("collection", u.Name).Int("items", len(items)).Msg("Created collection")
	default:
		rep.Err = fmt.Errorf("looking up collection %q: %w", u.Name, err)
		logging.Error().Err(err).Str("collection", u.Name).Msg("Failed to look up collection")
		return rep
	}
	rep.Collection = coll
	rep.Added = len(items)

	if summary := u.Summary(); summary != "" {
		if err := p.library.SetSummary(ctx, coll, summary); err != nil {
			rep.SummaryErr = err
			logging.Warn().Err(err).Str("collection", u.Name).Msg("Failed to set collection summary")
		}
	}

	if err := p.library.Promote(ctx, coll); err != nil {
		rep.PromoteErr = err
		logging.Warn().Err(err).Str("collection", u.Name).Msg("Failed to feature collection on home screen")
	} else {
		logging.Info().Str("collection", u.Name).Msg("Collection featured on home screen")
	}

	return rep
}
