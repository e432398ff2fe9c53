// Package recommend filters parsed completion output down to recommendation
// records that carry every field a schema variant requires.
package recommend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Schema is a required-field set.
type Schema struct {
	Name     string
	Required []string
}

var (
	// Basic is used for history and themed passes.
	Basic = Schema{Name: "basic", Required: []string{"title", "genre", "description"}}
	// WithReason is used for ratings-aware passes and themes that ask for a rationale.
	WithReason = Schema{Name: "with_reason", Required: []string{"title", "genre", "description", "reason"}}
)

// HasReason reports whether records of this schema carry a rationale.
func (s Schema) HasReason() bool {
	for _, k := range s.Required {
		if k == "reason" {
			return true
		}
	}
	return false
}

// Record is a validated recommendation.
type Record struct {
	Title       string
	Genre       string
	Description string
	Reason      string

	// Raw is the decoded object the record was built from. It is never modified.
	Raw map[string]any
}

// Rejection names why a parsed value was not accepted.
type Rejection struct {
	Index       int
	Missing     []string
	NotAnObject bool
}

func (r *Rejection) Error() string {
	if r.NotAnObject {
		return fmt.Sprintf("record %d is not an object", r.Index)
	}
	return fmt.Sprintf("record %d is missing %s", r.Index, strings.Join(r.Missing, ", "))
}

// Validate checks a single parsed value against the schema. Key presence is
// all that is checked; a present null still counts.
func Validate(v any, schema Schema) (Record, *Rejection) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Record{}, &Rejection{NotAnObject: true}
	}

	var missing []string
	for _, key := range schema.Required {
		if _, ok := obj[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Record{}, &Rejection{Missing: missing}
	}

	rec := Record{
		Title:       stringify(obj["title"]),
		Genre:       stringify(obj["genre"]),
		Description: stringify(obj["description"]),
		Raw:         obj,
	}
	if schema.HasReason() {
		rec.Reason = stringify(obj["reason"])
	}
	return rec, nil
}

// Filter keeps, in order, only the values that satisfy the schema. An empty
// result means the pass has no usable recommendations.
func Filter(parsed []any, schema Schema) ([]Record, []*Rejection) {
	var records []Record
	var rejected []*Rejection
	for i, v := range parsed {
		rec, rej := Validate(v, schema)
		if rej != nil {
			rej.Index = i
			rejected = append(rejected, rej)
			continue
		}
		records = append(records, rec)
	}
	return records, rejected
}

// Titles returns the record titles in order.
func Titles(records []Record) []string {
	titles := make([]string, len(records))
	for i, r := range records {
		titles[i] = r.Title
	}
	return titles
}

// stringify renders a JSON value as text. Strings pass through unchanged and
// other values use their JSON encoding.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
