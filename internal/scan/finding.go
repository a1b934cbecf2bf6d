package scan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Severity represents the importance level of a finding.
type Severity int

const (
	SeverityCritical Severity = iota + 1
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityWarning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity converts a string to Severity. Returns 0 if unrecognized.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(s) {
	case "critical":
		return SeverityCritical
	case "warning":
		return SeverityWarning
	default:
		return 0
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	if s != SeverityCritical && s != SeverityWarning {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v := ParseSeverity(string(b))
	if v == 0 {
		return fmt.Errorf("invalid severity %q", string(b))
	}
	*s = v
	return nil
}

// Finding is one detected issue. Sequence is assigned when per-file results
// are merged; Count is set only on aggregated findings.
type Finding struct {
	Sequence     int      `json:"sequence"`
	Rule         string   `json:"rule"`
	Category     string   `json:"category"`
	Language     string   `json:"language,omitempty"`
	FilePath     string   `json:"file"`
	Line         int      `json:"line"`
	Severity     Severity `json:"severity"`
	Confidence   int      `json:"confidence"`
	Message      string   `json:"message"`
	SuggestedFix string   `json:"suggested_fix"`
	Count        int      `json:"count,omitempty"`
	Fingerprint  string   `json:"fingerprint,omitempty"`
}

// Location returns "file:line".
func (f *Finding) Location() string {
	return f.FilePath + ":" + strconv.Itoa(f.Line)
}

// Fingerprint hashes the rule, path and trimmed source text of a finding so
// that it survives unrelated edits that shift line numbers.
func Fingerprint(rule, path, text string) string {
	d := xxhash.New()
	_, _ = d.WriteString(rule)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(path)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strings.TrimSpace(text))
	return strconv.FormatUint(d.Sum64(), 16)
}

// Note is an informational message attached to a result. Notes never count
// toward the verdict.
type Note struct {
	Level   string `json:"level"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}
