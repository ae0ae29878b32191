package ingest

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"
)

// LoadVariantPatterns reads query patterns for the static generator from a
// one-column CSV with a header row. Rows without a %s placeholder are skipped
// (fail-soft); the caller falls back to built-in patterns when nothing loads.
func LoadVariantPatterns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Wrap in BOM stripper
	r := csv.NewReader(stripBOM(f))
	r.FieldsPerRecord = -1

	var patterns []string
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		line++
		if line == 1 {
			continue // skip header
		}
		if len(rec) == 0 {
			continue
		}

		p := strings.TrimSpace(rec[0])
		if !strings.Contains(p, "%s") {
			continue
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		br.UnreadRune()
	}
	return br
}
