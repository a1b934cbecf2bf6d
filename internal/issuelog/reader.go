package issuelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Read loads every record in dir whose time is not before since. A zero
// since reads everything. Malformed lines are skipped; a missing directory
// yields no records.
func Read(dir string, since time.Time) ([]Record, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("list issue logs: %w", err)
	}
	sort.Strings(matches)

	var out []Record
	for _, path := range matches {
		// whole days before since cannot hold matching records
		day := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), filePrefix), fileSuffix)
		if d, err := time.Parse(dateLayout, day); err == nil && !since.IsZero() && d.Add(24*time.Hour).Before(since) {
			continue
		}
		recs, err := readFile(path, since)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func readFile(path string, since time.Time) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open issue log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			slog.Debug("unparseable issue log line", "path", path, "line", lineNo, "error", err)
			continue
		}
		if !since.IsZero() && rec.Time.Before(since) {
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read issue log %s: %w", filepath.Base(path), err)
	}
	return out, nil
}
