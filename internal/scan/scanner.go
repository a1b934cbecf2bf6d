package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/fatih/semgroup"
)

// DefaultMinConfidence is the reporting threshold used by the CLI.
const DefaultMinConfidence = 70

// maxFileSize bounds a single read; larger files are skipped with a note.
const maxFileSize = 2 << 20

// Options is the scan configuration. It is read-only once a scan starts.
type Options struct {
	Root             string
	File             string // single-file mode
	ChangedOnly      bool
	BaseRef          string
	Language         string // explicit override
	DeclaredLanguage string // from the project manifest
	Exclude          []string
	ScopingField     string
	EntryPoints      []string
	MinConfidence    int
	Workers          int
	DeepSecrets      bool
}

// Verdict is the pass/fail summary of a scan.
type Verdict string

const (
	VerdictApprove Verdict = "APPROVE"
	VerdictBlock   Verdict = "BLOCK"
)

func verdictFor(critical int) Verdict {
	if critical > 0 {
		return VerdictBlock
	}
	return VerdictApprove
}

// Result holds everything a formatter needs.
type Result struct {
	Root          string    `json:"root"`
	Language      string    `json:"language"`
	Findings      []Finding `json:"findings"`
	FilesScanned  int       `json:"files_scanned"`
	CleanFiles    []string  `json:"clean_files"`
	CriticalCount int       `json:"critical_count"`
	WarningCount  int       `json:"warning_count"`
	Suppressed    int       `json:"suppressed"`
	Verdict       Verdict   `json:"verdict"`
	Notes         []Note    `json:"notes,omitempty"`
}

// NewResult returns an empty approving result for root.
func NewResult(root, language string) *Result {
	return &Result{
		Root:       root,
		Language:   language,
		Findings:   []Finding{},
		CleanFiles: []string{},
		Verdict:    VerdictApprove,
	}
}

// Add appends the findings that meet minConfidence, numbering them after the
// ones already present, and recomputes totals and verdict. Findings under the
// threshold are counted in Suppressed. A file that receives a finding is
// removed from CleanFiles.
func (r *Result) Add(findings []Finding, minConfidence int) {
	hit := make(map[string]bool)
	for _, f := range findings {
		if f.Confidence < minConfidence {
			r.Suppressed++
			continue
		}
		f.Sequence = len(r.Findings) + 1
		r.Findings = append(r.Findings, f)
		hit[f.FilePath] = true
		switch f.Severity {
		case SeverityCritical:
			r.CriticalCount++
		case SeverityWarning:
			r.WarningCount++
		}
	}
	if len(hit) > 0 {
		clean := r.CleanFiles[:0]
		for _, path := range r.CleanFiles {
			if !hit[path] {
				clean = append(clean, path)
			}
		}
		r.CleanFiles = clean
	}
	r.Verdict = verdictFor(r.CriticalCount)
}

// ConfigError is a fatal problem with the scan configuration itself.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

type fileResult struct {
	path     string
	findings []Finding
	note     *Note
}

// Scan reviews the files under opts.Root, or the single opts.File. Files are
// checked in parallel; numbering, thresholding and totals happen once in the
// merge step.
func Scan(ctx context.Context, opts Options) (*Result, error) {
	if opts.File != "" {
		return scanSingle(opts)
	}

	root, err := resolveRoot(opts.Root)
	if err != nil {
		return nil, err
	}
	ex := NewExcluder(opts.Exclude)
	resolution := ResolveLanguage(root, opts.Language, opts.DeclaredLanguage, ex)
	res := NewResult(root, resolution.String())
	if !resolution.Supported() {
		slog.Info("no checker for language", "language", resolution.String(), "source", resolution.Source)
		res.Notes = append(res.Notes, Note{Level: "info", Message: resolution.Guidance()})
		return res, nil
	}

	checker, err := NewChecker(resolution.Language.Profile(), CheckerOptions{
		ScopingField: opts.ScopingField,
		EntryPoints:  opts.EntryPoints,
		DeepSecrets:  opts.DeepSecrets,
	})
	if err != nil {
		return nil, err
	}

	files, notes := collectFiles(ctx, root, checker.Profile(), ex, opts)
	res.Notes = append(res.Notes, notes...)
	slog.Debug("collected files", "root", root, "language", resolution.String(), "files", len(files))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]fileResult, len(files))
	sg := semgroup.NewGroup(ctx, int64(workers))
	for i, rel := range files {
		sg.Go(func() error {
			results[i] = scanOne(checker, root, rel)
			return nil
		})
	}
	if err := sg.Wait(); err != nil {
		return nil, fmt.Errorf("scan files: %w", err)
	}

	merge(res, results, opts.MinConfidence)
	return res, nil
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &ConfigError{Msg: "resolve root path", Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &ConfigError{Msg: fmt.Sprintf("root path %s", root), Err: err}
	}
	if !info.IsDir() {
		return "", &ConfigError{Msg: fmt.Sprintf("root path %s is not a directory", root)}
	}
	if _, err := os.ReadDir(abs); err != nil {
		return "", &ConfigError{Msg: fmt.Sprintf("read root path %s", root), Err: err}
	}
	return abs, nil
}

func collectFiles(ctx context.Context, root string, p *Profile, ex *Excluder, opts Options) ([]string, []Note) {
	var notes []Note
	if opts.ChangedOnly {
		changed, err := ChangedFiles(ctx, root, opts.BaseRef)
		if err == nil {
			var files []string
			for _, rel := range changed {
				rel = filepath.ToSlash(rel)
				if !p.HasExtension(rel) || ex.File(rel) {
					continue
				}
				// deleted files still show up in the diff
				if _, err := os.Lstat(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
					continue
				}
				files = append(files, rel)
			}
			sort.Strings(files)
			return files, nil
		}
		slog.Warn("changed-only unavailable, scanning all files", "error", err)
		notes = append(notes, Note{Level: "warning", Message: "changed-only fell back to a full scan: " + err.Error()})
	}

	files, walkNotes := Walk(root, ex, p.HasExtension)
	return files, append(notes, walkNotes...)
}

// Walk lists the files under root that accept admits, skipping excluded
// directories and files. Paths are slash-separated, relative to root and
// sorted. Unreadable directories become notes.
func Walk(root string, ex *Excluder, accept func(rel string) bool) ([]string, []Note) {
	var files []string
	var notes []Note
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			rel, _ := filepath.Rel(root, path)
			notes = append(notes, Note{Level: "warning", Path: filepath.ToSlash(rel), Message: "skipped: " + err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if ex.Dir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !accept(rel) || ex.File(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	sort.Strings(files)
	return files, notes
}

// scanOne reads and checks one file. Read failures become a note; they never
// fail the scan.
func scanOne(c *Checker, root, rel string) fileResult {
	path := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil {
		return skipped(rel, err)
	}
	if info.Size() > maxFileSize {
		return fileResult{path: rel, note: &Note{
			Level:   "warning",
			Path:    rel,
			Message: fmt.Sprintf("skipped: file is %d bytes, limit %d", info.Size(), maxFileSize),
		}}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return skipped(rel, err)
	}
	slog.Debug("checked file", "path", rel)
	return fileResult{path: rel, findings: c.Check(rel, content)}
}

func skipped(rel string, err error) fileResult {
	slog.Warn("skipping unreadable file", "path", rel, "error", err)
	return fileResult{path: rel, note: &Note{Level: "warning", Path: rel, Message: "skipped: " + err.Error()}}
}

func merge(res *Result, results []fileResult, minConfidence int) {
	for _, fr := range results {
		if fr.note != nil {
			res.Notes = append(res.Notes, *fr.note)
			continue
		}
		res.FilesScanned++
		before := len(res.Findings)
		res.Add(fr.findings, minConfidence)
		if len(res.Findings) == before {
			res.CleanFiles = append(res.CleanFiles, fr.path)
		}
	}
	res.Verdict = verdictFor(res.CriticalCount)
}

// scanSingle checks one file with the checker for its extension, for
// editor integrations that review a file before it is written back.
func scanSingle(opts Options) (*Result, error) {
	abs, err := filepath.Abs(opts.File)
	if err != nil {
		return nil, &ConfigError{Msg: "resolve file path", Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("file %s", opts.File), Err: err}
	}
	if info.IsDir() {
		return nil, &ConfigError{Msg: fmt.Sprintf("%s is a directory, use --path", opts.File)}
	}

	root := filepath.Dir(abs)
	if opts.Root != "" {
		if r, err := filepath.Abs(opts.Root); err == nil {
			if rel, err := filepath.Rel(r, abs); err == nil && !strings.HasPrefix(rel, "..") {
				root = r
			}
		}
	}
	rel, _ := filepath.Rel(root, abs)
	rel = filepath.ToSlash(rel)

	resolution := LanguageForFile(abs)
	if opts.Language != "" {
		resolution = resolveName(opts.Language, "flag")
	}
	res := NewResult(root, resolution.String())
	if !resolution.Supported() {
		res.Notes = append(res.Notes, Note{Level: "info", Path: rel, Message: resolution.Guidance()})
		return res, nil
	}
	if NewExcluder(opts.Exclude).File(rel) {
		res.Notes = append(res.Notes, Note{Level: "info", Path: rel, Message: "file is excluded from review"})
		return res, nil
	}

	checker, err := NewChecker(resolution.Language.Profile(), CheckerOptions{
		ScopingField: opts.ScopingField,
		EntryPoints:  opts.EntryPoints,
		DeepSecrets:  opts.DeepSecrets,
	})
	if err != nil {
		return nil, err
	}
	merge(res, []fileResult{scanOne(checker, root, rel)}, opts.MinConfidence)
	return res, nil
}
