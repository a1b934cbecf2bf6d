package scan

import (
	"path"
	"regexp"
	"strings"
)

// DefaultExcludeDirs are directory names never descended into.
var DefaultExcludeDirs = []string{
	"node_modules", "vendor", ".git", "dist", "build", "target", "out", "coverage",
	"__pycache__", "venv", ".venv", "env", ".env", ".tox", ".mypy_cache", ".pytest_cache",
	"migrations", "site-packages", ".eggs", ".next", "testdata", ".reviewgate",
}

// DefaultExcludeFiles are base-name globs for test, generated and bundled files.
var DefaultExcludeFiles = []string{
	"*_test.go",
	"*.test.ts", "*.test.tsx", "*.spec.ts", "*.spec.tsx",
	"*.test.js", "*.test.jsx", "*.spec.js", "*.spec.jsx",
	"test_*.py", "*_test.py", "conftest.py",
	"*Test.java", "*Tests.java", "*IT.java",
	"*.min.js", "*.d.ts",
}

// Excluder decides which paths a scan skips. Paths are slash separated and
// relative to the scan root.
type Excluder struct {
	dirs  map[string]bool
	globs []*regexp.Regexp
	names []string
}

// NewExcluder combines the defaults with user patterns. A pattern containing
// a slash is matched against the whole relative path and may use **;
// otherwise it is matched against the base name.
func NewExcluder(patterns []string) *Excluder {
	ex := &Excluder{dirs: make(map[string]bool, len(DefaultExcludeDirs))}
	for _, d := range DefaultExcludeDirs {
		ex.dirs[d] = true
	}
	ex.names = append(ex.names, DefaultExcludeFiles...)
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.Contains(strings.TrimSuffix(p, "/"), "/") {
			ex.globs = append(ex.globs, globToRegexp(strings.TrimSuffix(p, "/")))
		} else {
			ex.names = append(ex.names, strings.TrimSuffix(p, "/"))
		}
	}
	return ex
}

func globToRegexp(pattern string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(strings.TrimPrefix(pattern, "./"))
	escaped = strings.ReplaceAll(escaped, `\*\*/`, `(?:.*/)?`)
	escaped = strings.ReplaceAll(escaped, `\*\*`, `.*`)
	escaped = strings.ReplaceAll(escaped, `\*`, `[^/]*`)
	escaped = strings.ReplaceAll(escaped, `\?`, `[^/]`)
	// a directory pattern also covers everything below it
	return regexp.MustCompile("^" + escaped + "(?:/.*)?$")
}

func (e *Excluder) matchName(base string) bool {
	for _, n := range e.names {
		if ok, _ := path.Match(n, base); ok {
			return true
		}
	}
	return false
}

func (e *Excluder) matchGlob(rel string) bool {
	for _, re := range e.globs {
		if re.MatchString(rel) {
			return true
		}
	}
	return false
}

// Dir reports whether the directory rel should be pruned.
func (e *Excluder) Dir(rel string) bool {
	base := path.Base(rel)
	return e.dirs[base] || e.matchName(base) || e.matchGlob(rel)
}

// File reports whether the file rel is excluded, either directly or through
// one of its parent directories.
func (e *Excluder) File(rel string) bool {
	if e.matchName(path.Base(rel)) || e.matchGlob(rel) {
		return true
	}
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if e.dirs[path.Base(dir)] {
			return true
		}
	}
	return false
}
