package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"": Movie, "movie": Movie, "movies": Movie, "show": Show, "tv": Show} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("podcast")
	assert.Error(t, err)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "movie", Movie.Label())
	assert.Equal(t, "TV show", Show.Label())
	assert.Equal(t, "Movies", Movie.Plural())
	assert.Equal(t, "TV Shows", Show.Plural())
}
