// Package forward hands titles missing from the library to request and
// tracking services, one title at a time.
package forward

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/TobiSchelling/plexrec/internal/logging"
	"github.com/TobiSchelling/plexrec/internal/media"
)

var (
	// ErrTimeout marks a network call that exceeded the per-call timeout.
	ErrTimeout = errors.New("request timed out")
	// ErrNoMatch is returned by a Target search with no result of the requested kind.
	ErrNoMatch = errors.New("no matching result")
)

// Candidate is a search hit in a target's catalog.
type Candidate struct {
	Title string
	Kind  media.Kind
	Year  int
	// ID is the identifier the target's submit call needs (a TMDB, TVDB or Trakt id).
	ID string
}

// Target is a companion service that can accept titles.
type Target interface {
	Name() string
	Search(ctx context.Context, title string, kind media.Kind) (Candidate, error)
	Submit(ctx context.Context, c Candidate) error
}

// Attempt is the result of one title against one target.
type Attempt struct {
	Target    string
	Candidate Candidate
	Submitted bool
	Err       error
}

// Outcome collects every target attempt for a title.
type Outcome struct {
	Title    string
	Attempts []Attempt
}

// Submitted reports whether any target accepted the title.
func (o Outcome) Submitted() bool {
	for _, a := range o.Attempts {
		if a.Submitted {
			return true
		}
	}
	return false
}

// Options control pacing and per-call timeouts.
type Options struct {
	Delay   time.Duration
	Timeout time.Duration
}

// Forwarder sends missing titles to its targets.
type Forwarder struct {
	targets []Target
	limiter *rate.Limiter
	timeout time.Duration
}

// New creates a forwarder. Consecutive title/target pairs are spaced at
// least opts.Delay apart.
func New(opts Options, targets ...Target) *Forwarder {
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Forwarder{
		targets: targets,
		limiter: rate.NewLimiter(limit, 1),
		timeout: timeout,
	}
}

// Targets returns the configured target names.
func (f *Forwarder) Targets() []string {
	names := make([]string, len(f.targets))
	for i, t := range f.targets {
		names[i] = t.Name()
	}
	return names
}

// Forward processes every title exactly once against every target. Failures
// are recorded in the title's outcome and never stop the loop. Only a
// cancelled ctx ends it early.
func (f *Forwarder) Forward(ctx context.Context, titles []string, kind media.Kind) []Outcome {
	if len(f.targets) == 0 || len(titles) == 0 {
		return nil
	}

	outcomes := make([]Outcome, 0, len(titles))
	for _, title := range titles {
		out := Outcome{Title: title}
		for _, target := range f.targets {
			if err := f.limiter.Wait(ctx); err != nil {
				out.Attempts = append(out.Attempts, Attempt{Target: target.Name(), Err: err})
				return append(outcomes, out)
			}
			out.Attempts = append(out.Attempts, f.attempt(ctx, target, title, kind))
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func (f *Forwarder) attempt(ctx context.Context, target Target, title string, kind media.Kind) Attempt {
	a := Attempt{Target: target.Name()}
	log := logging.Logger().With().Str("target", a.Target).Str("title", title).Str("kind", string(kind)).Logger()

	var cand Candidate
	err := f.call(ctx, func(ctx context.Context) error {
		var err error
		cand, err = target.Search(ctx, title, kind)
		return err
	})
	if err != nil {
		a.Err = fmt.Errorf("search: %w", err)
		if errors.Is(err, ErrNoMatch) {
			log.Info().Msg("No matching result found")
		} else {
			log.Warn().Err(err).Msg("Search failed")
		}
		return a
	}
	a.Candidate = cand

	if err := f.call(ctx, func(ctx context.Context) error { return target.Submit(ctx, cand) }); err != nil {
		a.Err = fmt.Errorf("submit: %w", err)
		log.Warn().Err(err).Msg("Submit failed")
		return a
	}

	a.Submitted = true
	log.Info().Msg("Submitted")
	return a
}

// call runs fn under the per-call timeout and classifies timeouts.
func (f *Forwarder) call(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	err := fn(callCtx)
	if err == nil {
		return nil
	}
	if isTimeout(err) && ctx.Err() == nil {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, f.timeout, err)
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
