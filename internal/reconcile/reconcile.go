// Package reconcile matches validated recommendations against a library
// section and labels the items it finds.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TobiSchelling/plexrec/internal/logging"
	"github.com/TobiSchelling/plexrec/internal/plex"
	"github.com/TobiSchelling/plexrec/internal/recommend"
)

// Catalog is a library section that can be searched and labeled.
type Catalog interface {
	Search(ctx context.Context, title string) ([]plex.Item, error)
	AddLabel(ctx context.Context, item plex.Item, label string) error
}

// Match pairs a record with the library item it resolved to.
type Match struct {
	Record recommend.Record
	Item   plex.Item
}

// Result partitions the input records. Every record lands in exactly one
// of Matched or Missing, in input order.
type Result struct {
	Matched []Match
	Missing []recommend.Record
}

// MissingTitles returns the titles of the missing records.
func (r Result) MissingTitles() []string {
	return recommend.Titles(r.Missing)
}

// Label returns the provenance label applied to matched items.
func Label(collectionName string) string {
	return "AI Recommended - " + collectionName
}

// Reconciler resolves records against one catalog.
type Reconciler struct {
	catalog Catalog
}

func New(catalog Catalog) *Reconciler {
	return &Reconciler{catalog: catalog}
}

// Reconcile searches the catalog for each record's title. The first result
// whose title equals the record title ignoring case is the match; there is
// no disambiguation by year. A not-found search routes the title to
// Missing. Any other search error aborts; it is returned together with the
// records partitioned so far.
func (r *Reconciler) Reconcile(ctx context.Context, records []recommend.Record, collectionName string) (Result, error) {
	var res Result
	label := Label(collectionName)

	for _, rec := range records {
		results, err := r.catalog.Search(ctx, rec.Title)
		if err != nil {
			if errors.Is(err, plex.ErrNotFound) {
				res.Missing = append(res.Missing, rec)
				continue
			}
			return res, fmt.Errorf("searching %q: %w", rec.Title, err)
		}

		item, ok := firstExactMatch(results, rec.Title)
		if !ok {
			res.Missing = append(res.Missing, rec)
			continue
		}

		res.Matched = append(res.Matched, Match{Record: rec, Item: item})
		if err := r.catalog.AddLabel(ctx, item, label); err != nil {
			logging.Warn().Err(err).Str("title", item.Title).Str("label", label).Msg("Failed to label item")
			continue
		}
		logging.Debug().Str("title", item.Title).Str("label", label).Msg("Labeled item")
	}

	return res, nil
}

func firstExactMatch(items []plex.Item, title string) (plex.Item, bool) {
	for _, it := range items {
		if strings.EqualFold(it.Title, title) {
			return it, true
		}
	}
	return plex.Item{}, false
}
