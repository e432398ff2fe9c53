package llm

import (
	stdjson "encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// ErrParseFailure is returned when a completion cannot be read as a JSON array.
var ErrParseFailure = errors.New("failed to parse the response as JSON")

// ParseJSONArray extracts a JSON array from a completion.
//
// The whole text is decoded first. If that fails, the span from the first
// '[' to the last ']' is decoded instead. This is a best-effort fallback for
// models that wrap the array in prose once; it is not a tolerant parser, and
// text holding several arrays yields the outer span (which usually fails).
func ParseJSONArray(text string) ([]any, error) {
	text = strings.TrimSpace(text)
	if records, ok := decodeArray(text); ok {
		return records, nil
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("%w: no bracketed array found", ErrParseFailure)
	}

	if records, ok := decodeArray(text[start : end+1]); ok {
		return records, nil
	}
	return nil, fmt.Errorf("%w: bracketed content is not a valid array", ErrParseFailure)
}

// decodeArray accepts only RFC 8259 JSON; goccy alone lets through leading
// zeros and raw control characters in strings.
func decodeArray(s string) ([]any, bool) {
	if !stdjson.Valid([]byte(s)) {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	records, ok := v.([]any)
	return records, ok
}
