package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/plexrec/internal/forward"
	"github.com/TobiSchelling/plexrec/internal/llm"
	"github.com/TobiSchelling/plexrec/internal/logging"
	"github.com/TobiSchelling/plexrec/internal/media"
	"github.com/TobiSchelling/plexrec/internal/output"
	"github.com/TobiSchelling/plexrec/internal/publish"
	"github.com/TobiSchelling/plexrec/internal/recommend"
	"github.com/TobiSchelling/plexrec/internal/reconcile"
	"github.com/TobiSchelling/plexrec/internal/themes"
)

// State is a pass stage.
type State string

const (
	Idle               State = "idle"
	BuildingPrompt     State = "building_prompt"
	AwaitingCompletion State = "awaiting_completion"
	Parsing            State = "parsing"
	Validating         State = "validating"
	Reconciling        State = "reconciling"
	Publishing         State = "publishing"
	Forwarding         State = "forwarding"
	Done               State = "done"
)

// PassOutcome is emitted when a pass reaches Done.
type PassOutcome struct {
	Theme string
	Kind  media.Kind
	State State
	// FailedAt is the stage that recorded Err.
	FailedAt State
	Err      error

	// Updated is set once the pass reaches Forwarding.
	Updated bool
	// Skipped is set when the theme had no input data.
	Skipped bool

	Records   []recommend.Record
	Rejected  int
	Matched   []string
	Missing   []string
	Publish   publish.Report
	Forwarded []forward.Outcome
	CSVPath   string
}

// StateLabel describes where the pass ended.
func (o PassOutcome) StateLabel() string {
	switch {
	case o.Err != nil:
		return "failed at " + string(o.FailedAt)
	case o.Skipped:
		return "skipped"
	case !o.Updated:
		return "no recommendations"
	}
	return string(o.State)
}

// ForwardedTitles returns the titles at least one target accepted.
func (o PassOutcome) ForwardedTitles() []string {
	var out []string
	for _, f := range o.Forwarded {
		if f.Submitted() {
			out = append(out, f.Title)
		}
	}
	return out
}

type pass struct {
	p   *Pipeline
	th  themes.Theme
	out PassOutcome
	log zerolog.Logger
}

func (ps *pass) enter(s State) {
	ps.out.State = s
	ps.log.Debug().Str("state", string(s)).Msg("Pass stage")
}

func (ps *pass) fail(err error) PassOutcome {
	ps.out.FailedAt = ps.out.State
	ps.out.Err = err
	ps.log.Error().Err(err).Str("state", string(ps.out.State)).Msg("Pass failed")
	return ps.done()
}

func (ps *pass) done() PassOutcome {
	ps.out.State = Done
	return ps.out
}

// runPass drives one theme from Idle to Done. Every failure ends the pass
// with the error recorded; nothing is returned upward.
func (p *Pipeline) runPass(ctx context.Context, th themes.Theme, lib libraryData) PassOutcome {
	ps := &pass{
		p:   p,
		th:  th,
		out: PassOutcome{Theme: th.Name, Kind: th.Kind, State: Idle},
		log: logging.Logger().With().Str("theme", th.Name).Str("kind", string(th.Kind)).Logger(),
	}
	ps.log.Info().Msg("Requesting recommendations")

	section, ok := lib.sections[th.Kind]
	if !ok {
		err := lib.sectionErr[th.Kind]
		if err == nil {
			err = fmt.Errorf("no %s section", th.Kind)
		}
		return ps.fail(err)
	}

	ps.enter(BuildingPrompt)
	if !th.HasData(lib.input) {
		ps.out.Skipped = true
		ps.log.Warn().Str("source", th.Source.String()).Msg("No library data for theme, skipping")
		return ps.done()
	}
	in := lib.input
	if th.Feed != "" && p.deps.Feeds != nil {
		titles, err := p.deps.Feeds.Titles(ctx, th.Feed)
		if err != nil {
			ps.log.Warn().Err(err).Str("feed", th.Feed).Msg("Failed to read theme feed, continuing without it")
		} else {
			in.FeedTitles = titles
		}
	}
	prompt := th.Prompt(in)

	ps.enter(AwaitingCompletion)
	text, err := p.deps.Provider.Generate(ctx, []llm.Message{
		llm.SystemPrompt(th.Kind.Label()),
		llm.UserPrompt(prompt),
	})
	if err != nil {
		return ps.fail(err)
	}

	ps.enter(Parsing)
	parsed, err := llm.ParseJSONArray(text)
	if err != nil {
		return ps.fail(err)
	}

	ps.enter(Validating)
	records, rejected := recommend.Filter(parsed, th.Schema)
	ps.out.Records = records
	ps.out.Rejected = len(rejected)
	for _, rej := range rejected {
		ps.log.Debug().Str("reason", rej.Error()).Msg("Dropped recommendation")
	}
	if len(records) == 0 {
		ps.log.Warn().Msg("No valid recommendations were found")
		return ps.done()
	}
	ps.writeCSV(records)

	ps.enter(Reconciling)
	res, err := reconcile.New(section).Reconcile(ctx, records, th.Name)
	for _, m := range res.Matched {
		ps.out.Matched = append(ps.out.Matched, m.Item.Title)
	}
	ps.out.Missing = res.MissingTitles()
	if err != nil {
		return ps.fail(err)
	}
	if len(ps.out.Missing) > 0 {
		ps.log.Info().Strs("missing", ps.out.Missing).Msg("Recommended titles not found in library")
	}

	ps.enter(Publishing)
	ps.out.Publish = publish.New(section).Publish(ctx, publish.Update{
		Name:       th.Name,
		Matches:    res.Matched,
		WithReason: th.Schema.HasReason(),
	})

	ps.enter(Forwarding)
	ps.out.Updated = true
	ps.out.Forwarded = p.deps.Forwarder.Forward(ctx, ps.out.Missing, th.Kind)

	ps.log.Info().Int("matched", len(ps.out.Matched)).Int("missing", len(ps.out.Missing)).
		Int("forwarded", len(ps.out.ForwardedTitles())).Msg("Pass complete")
	return ps.done()
}

func (ps *pass) writeCSV(records []recommend.Record) {
	if ps.p.cfg.Output.Dir == "" {
		return
	}
	path := output.CSVPath(ps.p.cfg.Output.Dir, ps.th.Slug())
	if err := output.WriteCSV(path, records, ps.th.Schema); err != nil {
		ps.log.Warn().Err(err).Msg("Failed to save recommendations CSV")
		return
	}
	ps.out.CSVPath = path
	ps.log.Info().Str("path", path).Msg("Recommendations saved")
}
