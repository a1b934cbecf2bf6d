// Package crossfile holds checks that reconcile facts extracted from many
// files at once: endpoint parity between client and server code, and the
// import graph (cycles, orphans).
package crossfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ppiankov/reviewgate/internal/scan"
)

const (
	RuleEndpointParity = "endpoint-parity"
	RuleDeadEndpoint   = "dead-endpoint"
	RuleCircularImport = "circular-import"
	RuleOrphanFile     = "orphan-file"
)

// RuleInfo describes a cross-file rule for listings.
type RuleInfo struct {
	ID         string
	Category   string
	Severity   scan.Severity
	Confidence int
	Message    string
}

// Catalog lists the cross-file rules.
var Catalog = []RuleInfo{
	{RuleEndpointParity, "api", scan.SeverityWarning, 75, "Client calls an endpoint no server route declares"},
	{RuleDeadEndpoint, "api", scan.SeverityWarning, 60, "Server route that no client code calls"},
	{RuleCircularImport, "structure", scan.SeverityWarning, 80, "Files or packages import each other in a cycle"},
	{RuleOrphanFile, "structure", scan.SeverityWarning, 70, "Source file imported by nothing and not an entry point"},
}

func ruleInfo(id string) RuleInfo {
	for _, r := range Catalog {
		if r.ID == id {
			return r
		}
	}
	return RuleInfo{ID: id, Severity: scan.SeverityWarning}
}

func newFinding(rule, file string, line int, message, fix, fingerprintText string) scan.Finding {
	info := ruleInfo(rule)
	return scan.Finding{
		Rule:         rule,
		Category:     info.Category,
		FilePath:     file,
		Line:         line,
		Severity:     info.Severity,
		Confidence:   info.Confidence,
		Message:      message,
		SuggestedFix: fix,
		Fingerprint:  scan.Fingerprint(rule, file, fingerprintText),
	}
}

// sourceFile is one file read for extraction.
type sourceFile struct {
	rel string // relative to the reporting root
	src *scan.Source
}

// readArea walks area and loads every file accept admits. Paths come back
// relative to root so findings line up with the per-file review.
func readArea(root, area string, ex *scan.Excluder, accept func(rel string) bool) ([]sourceFile, []scan.Note) {
	rels, notes := scan.Walk(area, ex, accept)
	files := make([]sourceFile, 0, len(rels))
	for _, rel := range rels {
		path := filepath.Join(area, filepath.FromSlash(rel))
		display := rel
		if r, err := filepath.Rel(root, path); err == nil {
			display = filepath.ToSlash(r)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable file", "path", display, "error", err)
			notes = append(notes, scan.Note{Level: "warning", Path: display, Message: "skipped: " + err.Error()})
			continue
		}
		profile := scan.LanguageForFile(rel).Language.Profile()
		if profile == nil {
			continue
		}
		files = append(files, sourceFile{rel: display, src: scan.NewSource(display, content, profile)})
	}
	return files, notes
}

func checkDir(path, what string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &scan.ConfigError{Msg: fmt.Sprintf("%s %s", what, path), Err: err}
	}
	if !info.IsDir() {
		return &scan.ConfigError{Msg: fmt.Sprintf("%s %s is not a directory", what, path)}
	}
	return nil
}
