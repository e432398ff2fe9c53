// Package media defines the library media kinds shared by every integration.
package media

import "fmt"

// Kind is a library media kind.
type Kind string

const (
	Movie Kind = "movie"
	Show  Kind = "show"
)

// Kinds lists the kinds in the order passes run.
var Kinds = []Kind{Movie, Show}

// ParseKind accepts the config spellings of a kind. An empty string is a movie.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "movie", "movies":
		return Movie, nil
	case "show", "shows", "tv":
		return Show, nil
	}
	return "", fmt.Errorf("unknown media kind %q", s)
}

// Label is the singular human name used in prompts, e.g. "TV show".
func (k Kind) Label() string {
	if k == Show {
		return "TV show"
	}
	return "movie"
}

// Plural is the capitalized plural used in collection names.
func (k Kind) Plural() string {
	if k == Show {
		return "TV Shows"
	}
	return "Movies"
}
