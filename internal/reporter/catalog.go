package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ppiankov/reviewgate/internal/issuelog"
	"github.com/ppiankov/reviewgate/internal/scan"
)

// RuleRow is one entry of the rule listing.
type RuleRow struct {
	Language   string        `json:"language"`
	ID         string        `json:"id"`
	Category   string        `json:"category"`
	Severity   scan.Severity `json:"severity"`
	Confidence int           `json:"confidence"`
	Aggregate  bool          `json:"aggregate"`
	Message    string        `json:"message"`
}

// WriteRules lists the rule catalog as a table or JSON.
func WriteRules(w io.Writer, f Format, rows []RuleRow, opts Options) error {
	switch f {
	case FormatJSON:
		return writeIndented(w, rows)
	case FormatSARIF:
		return fmt.Errorf("rule listing has no %s form", f)
	}
	t := &TableFormatter{w: w, color: opts.Color}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		agg := ""
		if r.Aggregate {
			agg = "yes"
		}
		cells = append(cells, []string{r.Language, r.ID, r.Category, r.Severity.String(), strconv.Itoa(r.Confidence), agg, r.Message})
	}
	fmt.Fprintln(w, table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(t.plain(dimStyle)).
		Headers("LANGUAGE", "RULE", "CATEGORY", "SEVERITY", "CONF", "AGGREGATE", "MESSAGE").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return t.plain(headerStyle).Padding(0, 1)
			}
			if col == 3 && row >= 0 && row < len(rows) {
				return t.plain(severityStyle(rows[row].Severity)).Padding(0, 1)
			}
			return cellStyle
		}).
		String())
	return nil
}

// WriteIssueSummary renders an issue log summary as tables or JSON.
func WriteIssueSummary(w io.Writer, f Format, s *issuelog.Summary, opts Options) error {
	switch f {
	case FormatJSON:
		return writeIndented(w, s)
	case FormatSARIF:
		return fmt.Errorf("issue summary has no %s form", f)
	}
	t := &TableFormatter{w: w, color: opts.Color}
	fmt.Fprintf(w, "%s %d findings across %d runs\n", t.style(headerStyle, "reviewgate issues"), s.Records, s.Runs)
	if s.Records == 0 {
		return nil
	}
	for _, g := range []struct {
		title  string
		counts []issuelog.Count
	}{
		{"RULE", s.ByRule},
		{"FILE", s.ByFile},
		{"DAY", s.ByDay},
	} {
		cells := make([][]string, 0, len(g.counts))
		for _, c := range g.counts {
			cells = append(cells, []string{c.Key, strconv.Itoa(c.Total), strconv.Itoa(c.Critical)})
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(t.plain(dimStyle)).
			Headers(g.title, "TOTAL", "CRITICAL").
			Rows(cells...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return t.plain(headerStyle).Padding(0, 1)
				}
				if col == 2 && row >= 0 && row < len(g.counts) && g.counts[row].Critical > 0 {
					return t.plain(criticalStyle).Padding(0, 1)
				}
				return cellStyle
			}).
			String())
	}
	return nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
