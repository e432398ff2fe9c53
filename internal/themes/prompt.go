package themes

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/plexrec/internal/plex"
)

// Input is the library data a prompt may draw on.
type Input struct {
	Watched    []string
	Ratings    []plex.RatingEntry
	FeedTitles []string
	Count      int
}

// HasData reports whether the theme has what its source needs. Criteria
// themes always do.
func (t Theme) HasData(in Input) bool {
	switch t.Source {
	case FromHistory:
		return len(in.Watched) > 0
	case FromRatings:
		return len(in.Ratings) > 0
	}
	return true
}

// Prompt builds the user prompt for the theme.
func (t Theme) Prompt(in Input) string {
	label := t.Kind.Label()
	var b strings.Builder

	switch t.Source {
	case FromHistory:
		fmt.Fprintf(&b, "I have watched the following movies and TV shows:\n\n%s\n\n", strings.Join(in.Watched, ", "))
		fmt.Fprintf(&b, "Based on this list, recommend %d new %ss that I might like. ", in.Count, label)
	case FromRatings:
		fmt.Fprintf(&b, "I have rated the following movies and TV shows on a scale of 1 to 10:\n\n%s\n\n", plex.FormatRatings(in.Ratings))
		fmt.Fprintf(&b, "Based on these ratings, recommend %d new %ss that I might like. ", in.Count, label)
		b.WriteString("Explain each pick with the rated titles that led to it. ")
	default:
		fmt.Fprintf(&b, "Based on the following criteria:\n\n%s\n\n", t.Criteria)
		if len(in.FeedTitles) > 0 {
			fmt.Fprintf(&b, "Use these titles as a reference for the kind of %ss I mean:\n\n%s\n\n", label, strings.Join(in.FeedTitles, ", "))
		}
	}

	b.WriteString("For each recommendation, provide the following in JSON format:\n\n")
	b.WriteString(t.example())
	b.WriteString("\n\nPlease provide the entire response as a JSON array of objects.")
	return b.String()
}

func (t Theme) example() string {
	lines := []string{
		fmt.Sprintf(`  "title": "Title of the %s"`, t.Kind.Label()),
		`  "genre": "Genre(s)"`,
		`  "description": "A brief description"`,
	}
	if t.Schema.HasReason() {
		lines = append(lines, `  "reason": "Why this fits my taste"`)
	}
	return "{\n" + strings.Join(lines, ",\n") + "\n}"
}
