package output

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed report.html
var reportTemplate string

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

var page = template.Must(template.New("report").Parse(reportTemplate))

// PassSummary is the report row for one pass.
type PassSummary struct {
	Theme     string
	Kind      string
	State     string
	Updated   bool
	Matched   []string
	Missing   []string
	Forwarded []string
	Err       string
	CSV       string
}

// Report describes a whole run.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	DryRun   bool
	Passes   []PassSummary
}

// Updated returns the names of the themes that updated a collection.
func (r Report) Updated() []string {
	var out []string
	for _, p := range r.Passes {
		if p.Updated {
			out = append(out, p.Theme)
		}
	}
	return out
}

// Markdown renders the report body.
func (r Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Recommendation run %s\n\n", r.Started.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Run `%s` took %s.\n\n", r.RunID, r.Finished.Sub(r.Started).Round(time.Second))

	b.WriteString("| Theme | Kind | State | Matched | Missing | Forwarded |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, p := range r.Passes {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d | %d |\n",
			escapeCell(p.Theme), p.Kind, p.State, len(p.Matched), len(p.Missing), len(p.Forwarded))
	}

	for _, p := range r.Passes {
		fmt.Fprintf(&b, "\n## %s (%s)\n\n", p.Theme, p.Kind)
		if p.Err != "" {
			fmt.Fprintf(&b, "**Error:** %s\n\n", p.Err)
		}
		writeList(&b, "In your library", p.Matched)
		writeList(&b, "Not in your library", p.Missing)
		writeList(&b, "Requested", p.Forwarded)
		if p.CSV != "" {
			fmt.Fprintf(&b, "Saved to `%s`.\n", p.CSV)
		}
	}
	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s:**\n\n", heading)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// HTML renders the report as a standalone page.
func (r Report) HTML() ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(r.Markdown()), &body); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}

	var out bytes.Buffer
	err := page.Execute(&out, map[string]any{
		"Title": "plexrec " + r.Started.Format("2006-01-02"),
		"Body":  template.HTML(body.String()), //nolint: gosec
	})
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return out.Bytes(), nil
}

// WriteHTML writes the report to dir/report.html and returns the path.
func (r Report) WriteHTML(dir string) (string, error) {
	data, err := r.HTML()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(dir, "report.html")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
