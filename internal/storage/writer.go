package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/HamzaaAkmal/Get-Opinion/internal/domain"
)

// WriterService implements the monitor pattern for thread safety: one
// goroutine owns the file, everyone else sends on the channel.
type WriterService struct {
	FilePath string
}

// Start consumes accepted comments and appends them to the file as NDJSON.
func (w *WriterService) Start(wg *sync.WaitGroup, input <-chan domain.Comment) {
	defer wg.Done()

	if err := os.MkdirAll(filepath.Dir(w.FilePath), 0755); err != nil {
		return
	}
	f, err := os.OpenFile(w.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for c := range input {
		enc.Encode(c)
	}
}

// SaveRunResult writes the full run summary to a timestamped JSON file and
// returns its path. Artifacts are per-run; nothing is read back across runs
// except by the dashboard.
func SaveRunResult(dir string, result *domain.RunResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}

	name := fmt.Sprintf("run_%s_%s.json",
		SanitizeFilename(result.Query), time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating run file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return "", fmt.Errorf("writing run file: %w", err)
	}

	// The dashboard always renders the newest run.
	latest := filepath.Join(dir, "latest_run.json")
	os.Remove(latest)
	if err := os.Link(path, latest); err != nil {
		// Cross-device or unsupported links degrade to a copy.
		data, rerr := os.ReadFile(path)
		if rerr == nil {
			os.WriteFile(latest, data, 0644)
		}
	}
	return path, nil
}

// LoadRunResult reads a saved run summary.
func LoadRunResult(path string) (*domain.RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var result domain.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing run file: %w", err)
	}
	return &result, nil
}

const maxFilenameLength = 50

// SanitizeFilename makes a query safe to embed in a filename.
func SanitizeFilename(query string) string {
	s := strings.ReplaceAll(strings.TrimSpace(query), " ", "_")
	var b strings.Builder
	for _, r := range s {
		if r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > maxFilenameLength {
		out = out[:maxFilenameLength]
	}
	return strings.ToLower(strings.TrimRight(out, "_"))
}
