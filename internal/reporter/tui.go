package reporter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/reviewgate/internal/scan"
)

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

// ResultMsg delivers a fresh single-file review to the TUI.
type ResultMsg struct {
	Path   string
	Result *scan.Result
	At     time.Time
}

// ErrMsg reports a watcher or review failure without stopping the TUI.
type ErrMsg struct {
	Err error
}

type fileEntry struct {
	path   string
	result *scan.Result
	at     time.Time
}

// TUIModel is the bubbletea model for watch mode: the latest review of every
// file touched since the watcher started.
type TUIModel struct {
	root   string
	cancel func()

	files        map[string]*fileEntry
	lastErr      string
	scrollOffset int
	width        int
	height       int
}

// NewTUIModel creates a finding browser for root. cancel is called on quit.
func NewTUIModel(root string, cancel func()) TUIModel {
	return TUIModel{
		root:   root,
		cancel: cancel,
		files:  make(map[string]*fileEntry),
	}
}

// Init implements tea.Model.
func (m TUIModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "j", "down":
			m.scrollDown(1)
		case "k", "up":
			m.scrollUp(1)
		case "g", "home":
			m.scrollOffset = 0
		case "G", "end":
			m.scrollOffset = m.maxScroll()
		case "pgdown":
			m.scrollDown(m.visibleLines())
		case "pgup":
			m.scrollUp(m.visibleLines())
		}

	case ResultMsg:
		if msg.Result == nil || (len(msg.Result.Findings) == 0 && len(msg.Result.Notes) == 0) {
			delete(m.files, msg.Path)
		} else {
			m.files[msg.Path] = &fileEntry{path: msg.Path, result: msg.Result, at: msg.At}
		}
		m.lastErr = ""
		if max := m.maxScroll(); m.scrollOffset > max {
			m.scrollOffset = max
		}

	case ErrMsg:
		if msg.Err != nil {
			m.lastErr = msg.Err.Error()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m *TUIModel) scrollDown(n int) {
	m.scrollOffset += n
	if max := m.maxScroll(); m.scrollOffset > max {
		m.scrollOffset = max
	}
}

func (m *TUIModel) scrollUp(n int) {
	m.scrollOffset -= n
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m TUIModel) visibleLines() int {
	// header(1) + totals(1) + blank(1) + help(1)
	avail := m.height - 4
	if avail < 3 {
		return 3
	}
	return avail
}

func (m TUIModel) maxScroll() int {
	total := len(m.lines())
	vis := m.visibleLines()
	if total <= vis {
		return 0
	}
	return total - vis
}

// View implements tea.Model.
func (m TUIModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	var b strings.Builder

	b.WriteString(headerStyle.Render("reviewgate watch — " + m.root))
	b.WriteString("\n")
	b.WriteString(m.totalsLine())
	b.WriteString("\n")

	lines := m.lines()
	vis := m.visibleLines()
	start := m.scrollOffset
	if start > len(lines) {
		start = len(lines)
	}
	end := start + vis
	if end > len(lines) {
		end = len(lines)
	}
	for _, l := range lines[start:end] {
		b.WriteString(l)
		b.WriteString("\n")
	}
	for i := 2 + (end - start); i < m.height-1; i++ {
		b.WriteString("\n")
	}

	help := "  ↑↓/jk: scroll  g/G: top/bottom  q: quit"
	if m.lastErr != "" {
		help = criticalStyle.Render("  error: "+m.lastErr) + help
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m TUIModel) totalsLine() string {
	var crit, warn int
	for _, e := range m.files {
		crit += e.result.CriticalCount
		warn += e.result.WarningCount
	}
	if len(m.files) == 0 {
		return approveStyle.Render("  no findings; waiting for changes")
	}
	return fmt.Sprintf("  %s  %s  %s",
		criticalStyle.Render(fmt.Sprintf("%d critical", crit)),
		warningStyle.Render(fmt.Sprintf("%d warning", warn)),
		dimStyle.Render(fmt.Sprintf("%d files", len(m.files))))
}

// lines renders files with criticals first, then by path.
func (m TUIModel) lines() []string {
	entries := make([]*fileEntry, 0, len(m.files))
	for _, e := range m.files {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		ci, cj := entries[i].result.CriticalCount > 0, entries[j].result.CriticalCount > 0
		if ci != cj {
			return ci
		}
		return entries[i].path < entries[j].path
	})

	var out []string
	for _, e := range entries {
		out = append(out, headerStyle.Render(e.path)+
			dimStyle.Render(" "+e.at.Format("15:04:05")))
		for _, f := range e.result.Findings {
			out = append(out, fmtFinding(f))
		}
		for _, n := range e.result.Notes {
			out = append(out, infoStyle.Render("  · "+n.Message))
		}
	}
	return out
}

func fmtFinding(f scan.Finding) string {
	msg := f.Message
	if len(msg) > 70 {
		msg = msg[:70] + "..."
	}
	line := fmt.Sprintf("  %-5d %-8s %3d  %-28s %s", f.Line, f.Severity, f.Confidence, f.Rule, msg)
	return severityStyle(f.Severity).Render(line)
}
