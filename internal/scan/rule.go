package scan

import (
	"regexp"
	"strings"
)

// Rule is a named detector. Rules are pure: they see one file plus the
// profile of its language and keep no state between files.
type Rule struct {
	ID         string
	Category   string
	Severity   Severity
	Confidence int
	Message    string
	Fix        string
	Aggregate  *Aggregation

	match func(src *Source, p *Profile, env *ruleEnv) []Match
}

// Aggregation collapses more than Threshold findings of one rule in one file
// into a single finding carrying the total count.
type Aggregation struct {
	Threshold  int
	Confidence int
	Message    string // printf format, receives the count
}

// Match is a raw rule hit. Zero Confidence and empty Message fall back to the
// rule defaults.
type Match struct {
	Line       int // 0-based
	Confidence int
	Message    string
}

type ruleEnv struct {
	scopingName  string
	scopingField string // normalized, see normalizeIdent
}

type blockStyle int

const (
	blockBraces blockStyle = iota
	blockIndent
)

// Profile is the per-language pattern table driving the shared rules. A nil
// pattern disables the part of a rule that needs it.
type Profile struct {
	Language      Language
	Extensions    []string
	LineComments  []string
	BlockComments bool
	EntryPoints   []string

	Route      *regexp.Regexp
	Auth       *regexp.Regexp
	AuthBefore int
	AuthAfter  int

	Query *regexp.Regexp
	Debug *regexp.Regexp

	Discard      *regexp.Regexp
	DiscardIdiom *regexp.Regexp
	ErrorBlock   *regexp.Regexp
	Blocks       blockStyle
	Handled      *regexp.Regexp

	Exec          *regexp.Regexp
	Concat        *regexp.Regexp
	Interpolation *regexp.Regexp

	EnvAccess *regexp.Regexp

	Listen *regexp.Regexp
	TLS    *regexp.Regexp

	// Fixes overrides a rule's default fix text for this language.
	Fixes map[string]string
	// Extra holds rules that only exist for this language.
	Extra []*Rule
}

// HasExtension reports whether path carries one of the profile's extensions.
func (p *Profile) HasExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range p.Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Rules returns the shared catalog followed by the language-only rules.
func (p *Profile) Rules() []*Rule {
	rules := make([]*Rule, 0, len(sharedRules)+len(p.Extra))
	rules = append(rules, sharedRules...)
	return append(rules, p.Extra...)
}

func (p *Profile) fixFor(r *Rule) string {
	if fix, ok := p.Fixes[r.ID]; ok {
		return fix
	}
	return r.Fix
}

// IsEntryPoint reports whether rel names a program entry point, by base name or
// by an extra entry listed in the project manifest.
func (p *Profile) IsEntryPoint(rel string, extra []string) bool {
	base := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		base = rel[i+1:]
	}
	for _, e := range p.EntryPoints {
		if base == e {
			return true
		}
	}
	for _, e := range extra {
		if e == rel || e == base {
			return true
		}
	}
	return false
}

// Source is one file prepared for rule evaluation.
type Source struct {
	Path       string
	Lines      []string
	EntryPoint bool

	comment []bool
}

// NewSource splits content into lines and marks comment lines using the
// profile's comment syntax.
func NewSource(path string, content []byte, p *Profile) *Source {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}
	src := &Source{Path: path, Lines: lines, comment: make([]bool, len(lines))}

	inBlock := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if inBlock {
			src.comment[i] = true
			if strings.Contains(trimmed, "*/") {
				inBlock = false
			}
			continue
		}
		if p.BlockComments && strings.HasPrefix(trimmed, "/*") {
			src.comment[i] = true
			inBlock = !strings.Contains(trimmed[2:], "*/")
			continue
		}
		for _, marker := range p.LineComments {
			if strings.HasPrefix(trimmed, marker) {
				src.comment[i] = true
				break
			}
		}
	}
	return src
}

// IsComment reports whether line i is a comment line.
func (s *Source) IsComment(i int) bool {
	return i >= 0 && i < len(s.comment) && s.comment[i]
}

// eachCode calls fn for every non-comment line.
func (s *Source) eachCode(fn func(i int, line string)) {
	for i, line := range s.Lines {
		if s.comment[i] {
			continue
		}
		fn(i, line)
	}
}

// normalizeIdent lowercases s and drops underscores and dashes so that
// tenant_id, tenantId and tenant-id compare equal.
func normalizeIdent(s string) string {
	return strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(s))
}
