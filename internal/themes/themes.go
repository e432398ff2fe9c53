// Package themes builds the ordered list of recommendation passes for a run
// and the prompt text for each.
package themes

import (
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/plexrec/internal/config"
	"github.com/TobiSchelling/plexrec/internal/media"
	"github.com/TobiSchelling/plexrec/internal/recommend"
)

// Source is what a theme's prompt is built from.
type Source int

const (
	// FromHistory prompts with the watched titles.
	FromHistory Source = iota
	// FromRatings prompts with the user's rated titles.
	FromRatings
	// FromCriteria prompts with a fixed description of the collection.
	FromCriteria
)

func (s Source) String() string {
	switch s {
	case FromHistory:
		return "history"
	case FromRatings:
		return "ratings"
	default:
		return "criteria"
	}
}

// Theme is one recommendation pass: a collection in one section.
type Theme struct {
	Name     string
	Kind     media.Kind
	Source   Source
	Criteria string
	Schema   recommend.Schema
	Feed     string

	slug string
}

// Slug is the file-name stem for the theme's CSV.
func (t Theme) Slug() string {
	if t.slug != "" {
		return t.slug
	}
	return Slug(t.Name)
}

// Slug lower-cases name and replaces spaces with underscores.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// Season names the season for t's month.
func Season(t time.Time) string {
	switch m := t.Month(); {
	case m >= time.March && m <= time.May:
		return "Spring"
	case m >= time.June && m <= time.August:
		return "Summer"
	case m >= time.September && m <= time.November:
		return "Fall"
	default:
		return "Winter"
	}
}

// Holiday names the holiday coming up at t, or "" outside holiday periods.
func Holiday(t time.Time) string {
	switch t.Month() {
	case time.October:
		return "Halloween"
	case time.November:
		return "Thanksgiving"
	case time.December:
		return "Christmas"
	case time.February:
		if t.Day() <= 14 {
			return "Valentine's Day"
		}
	}
	return ""
}

// DefaultMovieThemes returns the built-in themed movie collections.
func DefaultMovieThemes(now time.Time, count int) []Theme {
	holiday := Holiday(now)
	if holiday == "" {
		holiday = "the upcoming holiday season"
	}

	criteria := []struct{ name, text string }{
		{"Seasonal", fmt.Sprintf("Recommend %d movies suitable for %s season.", count, Season(now))},
		{"Holiday", fmt.Sprintf("Recommend %d movies suitable for %s.", count, holiday)},
		{"Romantic Comedy", fmt.Sprintf("Recommend %d top romantic comedy movies.", count)},
		{"Action Adventure", fmt.Sprintf("Recommend %d exciting action-adventure movies.", count)},
		{"Family Friendly", fmt.Sprintf("Recommend %d family-friendly movies suitable for all ages.", count)},
		{"Sci-Fi Spectacle", fmt.Sprintf("Recommend %d mind-bending science fiction movies.", count)},
		{"Classic Cinema", fmt.Sprintf("Recommend %d classic movies from various decades that have stood the test of time.", count)},
		{"Based on True Story", fmt.Sprintf("Recommend %d compelling movies based on true stories or real events.", count)},
		{"90s & 00s Teenage Movies", fmt.Sprintf("Recommend %d iconic teenage movies from the 1990s and 2000s.", count)},
		{"Very Sarcastic Movies", fmt.Sprintf("Recommend %d highly sarcastic or satirical movies, similar in tone to 'Baby Mama (2008)' or 'They Came Together (2014)'.", count)},
	}

	out := make([]Theme, len(criteria))
	for i, c := range criteria {
		out[i] = Theme{Name: c.name, Kind: media.Movie, Source: FromCriteria, Criteria: c.text, Schema: recommend.Basic}
	}
	return out
}

// Build returns the themes for a run in the order they execute: history
// passes, ratings passes, then themed collections.
func Build(cfg config.Themes, now time.Time) ([]Theme, error) {
	var out []Theme

	if cfg.History {
		out = append(out,
			Theme{Name: "AI Recommended Movies", Kind: media.Movie, Source: FromHistory, Schema: recommend.Basic, slug: "movie"},
			Theme{Name: "AI Recommended TV Shows", Kind: media.Show, Source: FromHistory, Schema: recommend.Basic, slug: "tv_show"},
		)
	}
	if cfg.Ratings {
		out = append(out,
			Theme{Name: "AI Top Rated Movies", Kind: media.Movie, Source: FromRatings, Schema: recommend.WithReason},
			Theme{Name: "AI Top Rated TV Shows", Kind: media.Show, Source: FromRatings, Schema: recommend.WithReason},
		)
	}
	if cfg.Defaults {
		out = append(out, DefaultMovieThemes(now, cfg.Count)...)
	}

	for _, c := range cfg.Custom {
		kind, err := media.ParseKind(c.Kind)
		if err != nil {
			return nil, fmt.Errorf("theme %q: %w", c.Name, err)
		}
		schema := recommend.Basic
		if c.WithReason {
			schema = recommend.WithReason
		}
		out = append(out, Theme{Name: c.Name, Kind: kind, Source: FromCriteria, Criteria: c.Prompt, Schema: schema, Feed: c.Feed})
	}

	seen := make(map[string]bool)
	for _, t := range out {
		key := string(t.Kind) + "/" + strings.ToLower(t.Name)
		if seen[key] {
			return nil, fmt.Errorf("duplicate theme %q for %s", t.Name, t.Kind)
		}
		seen[key] = true
	}
	return out, nil
}

// Select keeps the themes whose name matches one of names, ignoring case.
// No names keeps everything.
func Select(all []Theme, names []string) ([]Theme, error) {
	if len(names) == 0 {
		return all, nil
	}
	var out []Theme
	for _, name := range names {
		found := false
		for _, t := range all {
			if strings.EqualFold(t.Name, name) {
				out = append(out, t)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown theme %q", name)
		}
	}
	return out, nil
}
