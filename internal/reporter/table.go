package reporter

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ppiankov/reviewgate/internal/scan"
)

// maxCleanListed bounds the clean-file list in the summary.
const maxCleanListed = 20

// Table styles, same palette as the watch TUI.
var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true) // red
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))           // yellow
	approveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true) // green
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))           // cyan
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))            // gray
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
)

// TableFormatter writes the human-readable report.
type TableFormatter struct {
	w             io.Writer
	color         bool
	minConfidence int
}

// NewTableFormatter creates a table formatter. If w is nil, defaults to
// os.Stdout.
func NewTableFormatter(w io.Writer, opts Options) *TableFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &TableFormatter{w: w, color: opts.Color, minConfidence: opts.MinConfidence}
}

// Format writes header, finding table, summary, clean files, notes and the
// verdict banner.
func (t *TableFormatter) Format(res *scan.Result) error {
	fmt.Fprintf(t.w, "%s %s (%s)\n\n",
		t.style(headerStyle, "reviewgate review"), res.Root, res.Language)

	if len(res.Findings) == 0 {
		fmt.Fprintln(t.w, t.style(approveStyle, "No findings."))
	} else {
		fmt.Fprintln(t.w, t.findingsTable(res.Findings))
	}
	fmt.Fprintln(t.w)

	t.summary(res)
	t.cleanFiles(res.CleanFiles)
	t.notes(res.Notes)

	fmt.Fprintf(t.w, "\nVerdict: %s\n", t.banner(res))
	return nil
}

func (t *TableFormatter) findingsTable(findings []scan.Finding) string {
	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, []string{
			strconv.Itoa(f.Sequence),
			fmt.Sprintf("%s:%d", f.FilePath, f.Line),
			f.Severity.String(),
			strconv.Itoa(f.Confidence),
			f.Rule,
			f.Message,
			f.SuggestedFix,
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(t.plain(dimStyle)).
		Headers("#", "LOCATION", "SEVERITY", "CONF", "RULE", "MESSAGE", "FIX").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return t.plain(headerStyle).Padding(0, 1)
			}
			if col == 2 && row >= 0 && row < len(findings) {
				return t.plain(severityStyle(findings[row].Severity)).Padding(0, 1)
			}
			return cellStyle
		}).
		String()
}

func (t *TableFormatter) summary(res *scan.Result) {
	fmt.Fprintf(t.w, "Summary: %d files scanned, %s, %s",
		res.FilesScanned,
		t.style(criticalStyle, fmt.Sprintf("%d critical", res.CriticalCount)),
		t.style(warningStyle, fmt.Sprintf("%d warning", res.WarningCount)))
	if res.Suppressed > 0 {
		fmt.Fprintf(t.w, ", %s", t.style(dimStyle,
			fmt.Sprintf("%d below confidence %d not shown", res.Suppressed, t.minConfidence)))
	}
	fmt.Fprintln(t.w)
}

func (t *TableFormatter) cleanFiles(files []string) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintf(t.w, "Clean files (%d):\n", len(files))
	for i, f := range files {
		if i == maxCleanListed {
			fmt.Fprintln(t.w, t.style(dimStyle, fmt.Sprintf("  ... and %d more", len(files)-maxCleanListed)))
			break
		}
		fmt.Fprintf(t.w, "  %s\n", f)
	}
}

func (t *TableFormatter) notes(notes []scan.Note) {
	if len(notes) == 0 {
		return
	}
	fmt.Fprintln(t.w, "Notes:")
	for _, n := range notes {
		line := n.Message
		if n.Path != "" {
			line = n.Path + ": " + line
		}
		style := infoStyle
		if n.Level == "warning" || n.Level == "error" {
			style = warningStyle
		}
		fmt.Fprintf(t.w, "  %s %s\n", t.style(style, n.Level), line)
	}
}

// banner is the reviewer-facing verdict. Warnings alone still approve.
func (t *TableFormatter) banner(res *scan.Result) string {
	switch {
	case res.Verdict == scan.VerdictBlock:
		return t.style(criticalStyle, "REQUEST CHANGES") + " (BLOCK)"
	case res.WarningCount > 0:
		return t.style(warningStyle, "COMMENT") + " (APPROVE)"
	default:
		return t.style(approveStyle, "APPROVE")
	}
}

func severityStyle(s scan.Severity) lipgloss.Style {
	if s == scan.SeverityCritical {
		return criticalStyle
	}
	return warningStyle
}

func (t *TableFormatter) style(s lipgloss.Style, text string) string {
	return t.plain(s).Render(text)
}

// plain drops colors and emphasis when color output is off.
func (t *TableFormatter) plain(s lipgloss.Style) lipgloss.Style {
	if t.color {
		return s
	}
	return lipgloss.NewStyle()
}
