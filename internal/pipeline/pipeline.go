// Package pipeline runs recommendation passes: one per theme, in order,
// each going prompt, completion, parse, validate, reconcile, publish and
// forward.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/plexrec/internal/config"
	"github.com/TobiSchelling/plexrec/internal/database"
	"github.com/TobiSchelling/plexrec/internal/forward"
	"github.com/TobiSchelling/plexrec/internal/llm"
	"github.com/TobiSchelling/plexrec/internal/logging"
	"github.com/TobiSchelling/plexrec/internal/media"
	"github.com/TobiSchelling/plexrec/internal/output"
	"github.com/TobiSchelling/plexrec/internal/plex"
	"github.com/TobiSchelling/plexrec/internal/publish"
	"github.com/TobiSchelling/plexrec/internal/reconcile"
	"github.com/TobiSchelling/plexrec/internal/themes"
)

// Section is one library section: searchable, labelable, and holding
// collections.
type Section interface {
	reconcile.Catalog
	publish.Library
	Items(ctx context.Context) ([]plex.Item, error)
}

// Library opens the section for a media kind.
type Library interface {
	OpenSection(ctx context.Context, kind media.Kind) (Section, error)
}

// FeedSource fetches reference titles for themes with a feed.
type FeedSource interface {
	Titles(ctx context.Context, feedURL string) ([]string, error)
}

// HistoryStore records runs and passes. *database.DB implements it.
type HistoryStore interface {
	InsertRun(id string, startedAt time.Time, dryRun bool) error
	FinishRun(id string, finishedAt time.Time) error
	InsertPass(p database.Pass) (int64, error)
}

// Deps are the collaborators of a pipeline. Forwarder, Feeds and History
// may be nil.
type Deps struct {
	Library   Library
	Provider  llm.Provider
	Forwarder *forward.Forwarder
	Feeds     FeedSource
	History   HistoryStore
	Now       func() time.Time
}

// Result holds the outcome of a run.
type Result struct {
	RunID      string
	Started    time.Time
	Finished   time.Time
	Passes     []PassOutcome
	ReportPath string
}

// Updated returns the themes whose pass reached forwarding, in run order.
func (r *Result) Updated() []string {
	var out []string
	for _, p := range r.Passes {
		if p.Updated {
			out = append(out, p.Theme)
		}
	}
	return out
}

// Failed returns the passes that recorded an error.
func (r *Result) Failed() []PassOutcome {
	var out []PassOutcome
	for _, p := range r.Passes {
		if p.Err != nil {
			out = append(out, p)
		}
	}
	return out
}

// Pipeline drives recommendation runs.
type Pipeline struct {
	cfg  *config.Config
	deps Deps
}

// New creates a pipeline.
func New(cfg *config.Config, deps Deps) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Forwarder == nil {
		deps.Forwarder = forward.New(forward.Options{})
	}
	return &Pipeline{cfg: cfg, deps: deps}
}

// Themes builds the run's themes, optionally filtered by name.
func (p *Pipeline) Themes(names []string) ([]themes.Theme, error) {
	all, err := themes.Build(p.cfg.Themes, p.deps.Now())
	if err != nil {
		return nil, err
	}
	return themes.Select(all, names)
}

// Run executes every theme in order. A failing pass is recorded and the
// run continues; only a cancelled ctx stops it early.
func (p *Pipeline) Run(ctx context.Context, ths []themes.Theme) *Result {
	r := &Result{RunID: uuid.NewString(), Started: p.deps.Now()}
	p.recordRun(r)

	lib := p.loadLibrary(ctx, ths)

	for i, th := range ths {
		if ctx.Err() != nil {
			logging.Warn().Int("remaining", len(ths)-i).Msg("Run cancelled, skipping remaining themes")
			break
		}
		out := p.runPass(ctx, th, lib)
		r.Passes = append(r.Passes, out)
		p.recordPass(r.RunID, out)
	}

	r.Finished = p.deps.Now()
	p.finishRun(r)

	if p.cfg.Output.Report {
		path, err := p.report(r).WriteHTML(p.cfg.Output.Dir)
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to write run report")
		} else {
			r.ReportPath = path
		}
	}
	return r
}

// DryRunPass describes a pass that would run.
type DryRunPass struct {
	Theme  string
	Kind   media.Kind
	Source string
	Prompt string
	Feed   string
	// Skipped is set when the library has no data for the theme's source.
	Skipped bool
	Err     error
}

// DryRun reads the library and builds each theme's prompt without calling
// the completion API, fetching feeds, or changing anything.
func (p *Pipeline) DryRun(ctx context.Context, ths []themes.Theme) []DryRunPass {
	lib := p.loadLibrary(ctx, ths)

	out := make([]DryRunPass, 0, len(ths))
	for _, th := range ths {
		d := DryRunPass{Theme: th.Name, Kind: th.Kind, Source: th.Source.String(), Feed: th.Feed}
		if err := lib.sectionErr[th.Kind]; err != nil {
			d.Err = err
		} else if !th.HasData(lib.input) {
			d.Skipped = true
		} else {
			d.Prompt = th.Prompt(lib.input)
		}
		out = append(out, d)
	}
	return out
}

// libraryData is what every pass of a run shares.
type libraryData struct {
	sections   map[media.Kind]Section
	sectionErr map[media.Kind]error
	input      themes.Input
}

// loadLibrary opens the sections the themes need and reads watched titles
// and ratings. The watched list spans movies and shows.
func (p *Pipeline) loadLibrary(ctx context.Context, ths []themes.Theme) libraryData {
	lib := libraryData{
		sections:   make(map[media.Kind]Section),
		sectionErr: make(map[media.Kind]error),
		input:      themes.Input{Count: p.cfg.Themes.Count},
	}

	needsItems := false
	for _, th := range ths {
		if th.Source != themes.FromCriteria {
			needsItems = true
		}
	}

	kinds := media.Kinds
	if !needsItems {
		kinds = neededKinds(ths)
	}

	for _, kind := range kinds {
		sec, err := p.deps.Library.OpenSection(ctx, kind)
		if err != nil {
			logging.Error().Err(err).Str("kind", string(kind)).Msg("Failed to open library section")
			lib.sectionErr[kind] = err
			continue
		}
		lib.sections[kind] = sec

		if !needsItems {
			continue
		}
		items, err := sec.Items(ctx)
		if err != nil {
			logging.Error().Err(err).Str("kind", string(kind)).Msg("Failed to read library section")
			continue
		}
		lib.input.Watched = appendUnique(lib.input.Watched, plex.WatchedTitles(items))
		lib.input.Ratings = append(lib.input.Ratings, plex.Ratings(items)...)
	}

	logging.Info().Int("watched", len(lib.input.Watched)).Int("rated", len(lib.input.Ratings)).Msg("Read library history")
	return lib
}

func neededKinds(ths []themes.Theme) []media.Kind {
	var kinds []media.Kind
	for _, k := range media.Kinds {
		for _, th := range ths {
			if th.Kind == k {
				kinds = append(kinds, k)
				break
			}
		}
	}
	return kinds
}

func appendUnique(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			seen[s] = true
			dst = append(dst, s)
		}
	}
	return dst
}

func (p *Pipeline) recordRun(r *Result) {
	if p.deps.History == nil {
		return
	}
	if err := p.deps.History.InsertRun(r.RunID, r.Started, false); err != nil {
		logging.Warn().Err(err).Msg("Failed to record run")
	}
}

func (p *Pipeline) recordPass(runID string, out PassOutcome) {
	if p.deps.History == nil {
		return
	}
	pass := database.Pass{
		RunID:          runID,
		Theme:          out.Theme,
		Kind:           string(out.Kind),
		State:          out.StateLabel(),
		Updated:        out.Updated,
		MatchedCount:   len(out.Matched),
		Missing:        out.Missing,
		ForwardedCount: len(out.ForwardedTitles()),
	}
	if out.Err != nil {
		msg := out.Err.Error()
		pass.Error = &msg
	}
	if _, err := p.deps.History.InsertPass(pass); err != nil {
		logging.Warn().Err(err).Str("theme", out.Theme).Msg("Failed to record pass")
	}
}

func (p *Pipeline) finishRun(r *Result) {
	if p.deps.History == nil {
		return
	}
	if err := p.deps.History.FinishRun(r.RunID, r.Finished); err != nil {
		logging.Warn().Err(err).Msg("Failed to record run end")
	}
}

func (p *Pipeline) report(r *Result) output.Report {
	rep := output.Report{RunID: r.RunID, Started: r.Started, Finished: r.Finished}
	for _, out := range r.Passes {
		s := output.PassSummary{
			Theme:     out.Theme,
			Kind:      string(out.Kind),
			State:     out.StateLabel(),
			Updated:   out.Updated,
			Matched:   out.Matched,
			Missing:   out.Missing,
			Forwarded: out.ForwardedTitles(),
			CSV:       out.CSVPath,
		}
		if out.Err != nil {
			s.Err = out.Err.Error()
		}
		rep.Passes = append(rep.Passes, s)
	}
	return rep
}

// Summary is the operator-facing list of updated collections.
func (r *Result) Summary() string {
	s := "Updated collections:\n"
	for _, name := range r.Updated() {
		s += fmt.Sprintf("- %s\n", name)
	}
	return s
}
