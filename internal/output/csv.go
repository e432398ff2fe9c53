// Package output writes the artifacts of a run: one CSV of validated
// recommendations per theme and an HTML run report.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/TobiSchelling/plexrec/internal/recommend"
)

// CSVPath is where a theme's recommendations are written.
func CSVPath(dir, slug string) string {
	return filepath.Join(dir, slug+"_recommendations.csv")
}

// WriteCSV writes records with a title,genre,description header, plus a
// reason column when the schema has one. The file is replaced.
func WriteCSV(path string, records []recommend.Record, schema recommend.Schema) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	werr := writeRecords(f, records, schema)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("writing %s: %w", path, werr)
	}
	if cerr != nil {
		return fmt.Errorf("closing %s: %w", path, cerr)
	}
	return nil
}

func writeRecords(out io.Writer, records []recommend.Record, schema recommend.Schema) error {
	w := csv.NewWriter(out)
	header := []string{"title", "genre", "description"}
	if schema.HasReason() {
		header = append(header, "reason")
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{r.Title, r.Genre, r.Description}
		if schema.HasReason() {
			row = append(row, r.Reason)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
