package reporter

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppiankov/reviewgate/internal/scan"
)

func fileResult(findings ...scan.Finding) *scan.Result {
	res := scan.NewResult("/r", "go")
	res.FilesScanned = 1
	res.Add(findings, 0)
	return res
}

func update(t *testing.T, m TUIModel, msg tea.Msg) TUIModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(TUIModel)
}

func TestTUIModel_ResultReplacesAndClears(t *testing.T) {
	m := NewTUIModel("/r", nil)
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 20})

	m = update(t, m, ResultMsg{Path: "a.go", At: time.Now(), Result: fileResult(
		scan.Finding{Rule: scan.RuleInjection, FilePath: "a.go", Line: 3, Severity: scan.SeverityCritical, Confidence: 90, Message: "concat"},
	)})
	if len(m.files) != 1 {
		t.Fatalf("files = %d, want 1", len(m.files))
	}
	view := m.View()
	if !strings.Contains(view, "a.go") || !strings.Contains(view, "1 critical") {
		t.Errorf("view missing file or totals:\n%s", view)
	}

	m = update(t, m, ResultMsg{Path: "a.go", At: time.Now(), Result: fileResult()})
	if len(m.files) != 0 {
		t.Errorf("clean review should drop the file, have %d", len(m.files))
	}
	if !strings.Contains(m.View(), "no findings") {
		t.Error("expected idle line once every file is clean")
	}
}

func TestTUIModel_Scroll(t *testing.T) {
	m := NewTUIModel("/r", nil)
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 8})

	var findings []scan.Finding
	for i := 1; i <= 10; i++ {
		findings = append(findings, scan.Finding{Rule: scan.RuleDebugOutput, FilePath: "a.go", Line: i, Severity: scan.SeverityWarning, Confidence: 75})
	}
	m = update(t, m, ResultMsg{Path: "a.go", At: time.Now(), Result: fileResult(findings...)})

	// 11 lines, 4 visible
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if m.scrollOffset != 1 {
		t.Errorf("after j: offset = %d, want 1", m.scrollOffset)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	if m.scrollOffset != 7 {
		t.Errorf("after G: offset = %d, want 7", m.scrollOffset)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	if m.scrollOffset != 6 {
		t.Errorf("after k: offset = %d, want 6", m.scrollOffset)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	if m.scrollOffset != 0 {
		t.Errorf("after g: offset = %d, want 0", m.scrollOffset)
	}
}

func TestTUIModel_QuitCancels(t *testing.T) {
	var cancelled bool
	m := NewTUIModel("/r", func() { cancelled = true })
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if !cancelled {
		t.Error("q should call cancel")
	}
	if cmd == nil {
		t.Error("q should return tea.Quit")
	}
}

func TestTUIModel_ErrorShown(t *testing.T) {
	m := NewTUIModel("/r", nil)
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 10})
	m = update(t, m, ErrMsg{Err: errors.New("watch limit reached")})
	if !strings.Contains(m.View(), "watch limit reached") {
		t.Error("expected error in help line")
	}
}

func TestStreamFormatter_Print(t *testing.T) {
	var buf bytes.Buffer
	s := NewStreamFormatter(&buf, false)
	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	s.Print("a.go", fileResult(), at)
	if !strings.Contains(buf.String(), "15:04:05 a.go clean") {
		t.Errorf("clean line = %q", buf.String())
	}

	buf.Reset()
	s.Print("b.go", fileResult(scan.Finding{Rule: scan.RuleHardcodedSecret, FilePath: "b.go", Line: 7, Severity: scan.SeverityCritical, Confidence: 90, Message: "secret"}), at)
	out := buf.String()
	if !strings.Contains(out, "REQUEST CHANGES") || !strings.Contains(out, "b.go:7 CRITICAL 90 hardcoded-secret: secret") {
		t.Errorf("finding output = %q", out)
	}
}
