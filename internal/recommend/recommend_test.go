package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/plexrec/internal/llm"
)

func TestFilterEndToEndFromProse(t *testing.T) {
	parsed, err := llm.ParseJSONArray(`Sure! [{"title":"X","genre":"Drama","description":"d"}]`)
	require.NoError(t, err)

	records, rejected := Filter(parsed, Basic)
	require.Len(t, records, 1)
	assert.Empty(t, rejected)
	assert.Equal(t, "X", records[0].Title)
	assert.Equal(t, "Drama", records[0].Genre)
	assert.Equal(t, "d", records[0].Description)
	assert.Equal(t, "", records[0].Reason)
}

func TestFilterDropsIncompleteAndKeepsOrder(t *testing.T) {
	parsed := []any{
		map[string]any{"title": "A", "genre": "g", "description": "d"},
		map[string]any{"title": "B", "genre": "g"},
		"not an object",
		map[string]any{"title": "C", "genre": "g", "description": "d", "extra": 1.0},
		[]any{"nested"},
		map[string]any{"title": "D", "genre": "g", "description": "d"},
	}

	records, rejected := Filter(parsed, Basic)

	assert.Equal(t, []string{"A", "C", "D"}, Titles(records))
	require.Len(t, rejected, 3)
	assert.Equal(t, 1, rejected[0].Index)
	assert.Equal(t, []string{"description"}, rejected[0].Missing)
	assert.Equal(t, 2, rejected[1].Index)
	assert.True(t, rejected[1].NotAnObject)
	assert.Equal(t, 4, rejected[2].Index)
}

func TestFilterWithReasonRequiresReason(t *testing.T) {
	parsed := []any{
		map[string]any{"title": "A", "genre": "g", "description": "d"},
		map[string]any{"title": "B", "genre": "g", "description": "d", "reason": "you rated Heat 10"},
	}

	records, rejected := Filter(parsed, WithReason)
	require.Len(t, records, 1)
	assert.Equal(t, "B", records[0].Title)
	assert.Equal(t, "you rated Heat 10", records[0].Reason)
	require.Len(t, rejected, 1)
	assert.Equal(t, []string{"reason"}, rejected[0].Missing)
	assert.Contains(t, rejected[0].Error(), "missing reason")
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	obj := map[string]any{"title": "A", "genre": "g", "description": "d", "year": 1999.0}
	parsed := []any{obj}

	records, _ := Filter(parsed, Basic)
	require.Len(t, records, 1)

	assert.Equal(t, map[string]any{"title": "A", "genre": "g", "description": "d", "year": 1999.0}, obj)
	assert.Equal(t, obj, records[0].Raw)
}

func TestValidatePresenceNotType(t *testing.T) {
	rec, rej := Validate(map[string]any{"title": 1999.0, "genre": nil, "description": []any{"a", "b"}}, Basic)
	require.Nil(t, rej)
	assert.Equal(t, "1999", rec.Title)
	assert.Equal(t, "", rec.Genre)
	assert.Equal(t, `["a","b"]`, rec.Description)
}

func TestFilterEmpty(t *testing.T) {
	records, rejected := Filter(nil, Basic)
	assert.Empty(t, records)
	assert.Empty(t, rejected)

	records, _ = Filter([]any{map[string]any{"title": "A"}}, Basic)
	assert.Empty(t, records)
}

func TestSchemaHasReason(t *testing.T) {
	assert.False(t, Basic.HasReason())
	assert.True(t, WithReason.HasReason())
}
