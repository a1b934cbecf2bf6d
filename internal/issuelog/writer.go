// Package issuelog keeps a dated, append-only JSONL history of review
// findings and summarizes it.
package issuelog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/reviewgate/internal/config"
	"github.com/ppiankov/reviewgate/internal/scan"
)

const (
	filePrefix = "issues-"
	fileSuffix = ".jsonl"
	dateLayout = "2006-01-02"
)

// Record is one logged finding.
type Record struct {
	Time        time.Time     `json:"time"`
	RunID       string        `json:"run_id"`
	Root        string        `json:"root"`
	Sequence    int           `json:"sequence"`
	Rule        string        `json:"rule"`
	File        string        `json:"file"`
	Line        int           `json:"line"`
	Severity    scan.Severity `json:"severity"`
	Confidence  int           `json:"confidence"`
	Message     string        `json:"message"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	Count       int           `json:"count,omitempty"`
}

// DefaultDir returns the per-project log directory.
func DefaultDir(root string) string {
	return filepath.Join(root, ".reviewgate", "issues")
}

// Writer appends the findings of review runs to the log for the current
// UTC day. Each Write call is one run and gets its own run id.
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter returns a writer for dir, creating it if needed. When dir is
// empty or cannot be created the XDG state directory is used instead.
func NewWriter(dir string) (*Writer, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return &Writer{dir: dir, now: time.Now}, nil
		}
	}
	fallback := filepath.Join(config.StateDir(), "issues")
	if err := os.MkdirAll(fallback, 0o755); err != nil {
		return nil, fmt.Errorf("create issue log dir: %w", err)
	}
	return &Writer{dir: fallback, now: time.Now}, nil
}

// Dir returns the directory records are written to.
func (w *Writer) Dir() string { return w.dir }

// Path returns the log file for day t.
func (w *Writer) Path(t time.Time) string {
	return filepath.Join(w.dir, filePrefix+t.UTC().Format(dateLayout)+fileSuffix)
}

// Write appends one record per finding in res and returns the run id.
// A result without findings writes nothing.
func (w *Writer) Write(res *scan.Result) (string, error) {
	runID := uuid.NewString()
	if len(res.Findings) == 0 {
		return runID, nil
	}
	now := w.now().UTC()

	f, err := os.OpenFile(w.Path(now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open issue log: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	for _, fd := range res.Findings {
		rec := Record{
			Time:        now,
			RunID:       runID,
			Root:        res.Root,
			Sequence:    fd.Sequence,
			Rule:        fd.Rule,
			File:        fd.FilePath,
			Line:        fd.Line,
			Severity:    fd.Severity,
			Confidence:  fd.Confidence,
			Message:     fd.Message,
			Fingerprint: fd.Fingerprint,
			Count:       fd.Count,
		}
		if err := enc.Encode(rec); err != nil {
			return "", fmt.Errorf("write issue log: %w", err)
		}
	}
	return runID, nil
}
