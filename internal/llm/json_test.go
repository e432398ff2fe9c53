package llm

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONArrayPlain(t *testing.T) {
	text := `[{"title": "Heat", "genre": "Crime", "description": "Cops and robbers"}, {"title": "Ronin"}]`

	got, err := ParseJSONArray(text)
	require.NoError(t, err)

	var want []any
	require.NoError(t, json.Unmarshal([]byte(text), &want))
	assert.Equal(t, want, got)
}

func TestParseJSONArrayEmptyArray(t *testing.T) {
	got, err := ParseJSONArray("[]")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestParseJSONArrayEmbeddedInProse(t *testing.T) {
	text := `Here you go: [{"title":"X","genre":"Drama","description":"d"}]  Hope that helps!`

	got, err := ParseJSONArray(text)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"title": "X", "genre": "Drama", "description": "d"}, got[0])
}

func TestParseJSONArrayCodeFence(t *testing.T) {
	text := "```json\n[{\"title\": \"Alien\"}]\n```"

	got, err := ParseJSONArray(text)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alien", got[0].(map[string]any)["title"])
}

func TestParseJSONArrayFailures(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "no brackets", text: "I cannot help with that."},
		{name: "only opening bracket", text: "here: [ oops"},
		{name: "only closing bracket", text: "oops ] here"},
		{name: "reversed brackets", text: "] then ["},
		{name: "malformed bracketed content", text: `Sure! [{"title": "X",}]`},
		{name: "two arrays", text: `first [{"title":"A"}] and second [{"title":"B"}]`},
		{name: "object not array", text: `{"title": "X"}`},
		{name: "null", text: "null"},
		{name: "empty", text: ""},
		{name: "leading zero", text: "[01]"},
		{name: "raw tab in string", text: "[\"a\tb\"]"},
		{name: "leading zero in prose", text: "Here you go: [01] enjoy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSONArray(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParseFailure), "expected ErrParseFailure, got %v", err)
			assert.Nil(t, got)
		})
	}
}
