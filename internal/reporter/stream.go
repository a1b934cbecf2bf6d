package reporter

import (
	"fmt"
	"io"
	"time"

	"github.com/ppiankov/reviewgate/internal/scan"
)

// StreamFormatter prints one compact block per single-file review, for the
// plain (non-TUI) watch mode.
type StreamFormatter struct {
	w     io.Writer
	color bool
}

// NewStreamFormatter creates a stream formatter.
func NewStreamFormatter(w io.Writer, color bool) *StreamFormatter {
	return &StreamFormatter{w: w, color: color}
}

// Print writes the review of path made at time at.
func (s *StreamFormatter) Print(path string, res *scan.Result, at time.Time) {
	t := &TableFormatter{w: s.w, color: s.color}
	stamp := t.style(dimStyle, at.Format("15:04:05"))
	switch {
	case len(res.Findings) == 0 && len(res.Notes) == 0:
		fmt.Fprintf(s.w, "%s %s %s\n", stamp, path, t.style(approveStyle, "clean"))
		return
	case len(res.Findings) == 0:
		fmt.Fprintf(s.w, "%s %s\n", stamp, path)
	default:
		fmt.Fprintf(s.w, "%s %s %s\n", stamp, path, t.banner(res))
	}
	for _, f := range res.Findings {
		fmt.Fprintf(s.w, "  %s:%d %s %d %s: %s\n",
			f.FilePath, f.Line, t.style(severityStyle(f.Severity), f.Severity.String()),
			f.Confidence, f.Rule, f.Message)
	}
	for _, n := range res.Notes {
		fmt.Fprintf(s.w, "  %s %s\n", t.style(infoStyle, n.Level), n.Message)
	}
}
