package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/reviewgate/internal/config"
	"github.com/ppiankov/reviewgate/internal/reporter"
	"github.com/ppiankov/reviewgate/internal/scan"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// execute runs the root command with isolated settings and returns stdout.
func execute(t *testing.T, settingsTOML string, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfg, []byte(settingsTOML), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvConfig, cfg)
	t.Setenv(reporter.FormatEnv, "")

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeResult(t *testing.T, out string) *scan.Result {
	t.Helper()
	var res scan.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return &res
}

const leakyPython = "API_KEY = \"abcd1234efgh5678\"\n"

func TestReview_BlockExitCode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app/settings.py", leakyPython)

	out, err := execute(t, "", "review", "--path", dir, "--no-issue-log")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitBlock {
		t.Fatalf("err = %v, want ExitError code %d", err, ExitBlock)
	}
	for _, want := range []string{"hardcoded-secret", "app/settings.py:1", "REQUEST CHANGES (BLOCK)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReview_ApproveJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app/util.py", "def add(a: int, b: int) -> int:\n    return a + b\n")

	out, err := execute(t, "", "review", "--path", dir, "--format", "json", "--no-issue-log")
	if err != nil {
		t.Fatal(err)
	}
	res := decodeResult(t, out)
	if res.Verdict != scan.VerdictApprove || res.FilesScanned != 1 || res.Language != "python" {
		t.Errorf("result = %+v", res)
	}
}

func TestReview_UnsupportedLanguageExitsZero(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.rb", "puts 'hi'\n")

	out, err := execute(t, "", "review", "--path", dir, "--format", "json", "--no-issue-log")
	if err != nil {
		t.Fatal(err)
	}
	res := decodeResult(t, out)
	if len(res.Notes) != 1 || !strings.Contains(res.Notes[0].Message, "brakeman") {
		t.Errorf("notes = %+v, want ruby guidance", res.Notes)
	}
}

func TestReview_ConfigErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"unknown format", []string{"review", "--path", dir, "--format", "xml"}},
		{"missing root", []string{"review", "--path", filepath.Join(dir, "missing")}},
		{"file with changed-only", []string{"review", "--file", "a.go", "--changed-only"}},
		{"file with cross-file", []string{"review", "--file", "a.go", "--cross-file"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			var exitErr *ExitError
			if errors.As(err, &exitErr) {
				t.Errorf("err = %v, want a tool failure, not a verdict", err)
			}
		})
	}
}

func TestReview_SettingsMinConfidence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app/settings.py", leakyPython)

	out, err := execute(t, "[review]\nmin_confidence = 99\nformat = \"json\"\n", "review", "--path", dir, "--no-issue-log")
	if err != nil {
		t.Fatalf("err = %v, want approve with everything below 99", err)
	}
	res := decodeResult(t, out)
	if len(res.Findings) != 0 || res.Suppressed == 0 {
		t.Errorf("findings = %d suppressed = %d", len(res.Findings), res.Suppressed)
	}

	// the flag wins over the settings file
	_, err = execute(t, "[review]\nmin_confidence = 99\n", "review", "--path", dir, "--no-issue-log", "--min-confidence", "70")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Errorf("err = %v, want BLOCK with flag threshold", err)
	}
}

func TestReview_CrossFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "web/src/users.ts", "export const getUser = (id: string) => axios.get(\"/v1/users/:id\");\n")
	writeFile(t, dir, "server/app.js", "app.get('/v1/teams', listTeams);\n")

	out, err := execute(t, "", "review", "--path", dir, "--format", "json", "--cross-file", "--no-issue-log")
	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) {
		t.Fatal(err)
	}
	res := decodeResult(t, out)
	found := false
	withFindings := make(map[string]bool)
	for i, f := range res.Findings {
		if f.Sequence != i+1 {
			t.Errorf("finding %d has sequence %d", i, f.Sequence)
		}
		if f.Rule == "endpoint-parity" && f.FilePath == "web/src/users.ts" {
			found = true
		}
		withFindings[f.FilePath] = true
	}
	if !found {
		t.Errorf("no endpoint-parity finding in %+v", res.Findings)
	}
	for _, path := range res.CleanFiles {
		if withFindings[path] {
			t.Errorf("clean file %s also has findings", path)
		}
	}
}

func TestProject_ScopingFieldPrecedence(t *testing.T) {
	saved := settings
	t.Cleanup(func() { settings = saved })
	settings = config.DefaultSettings()
	settings.Review.ScopingField = "tenantId"

	tests := []struct {
		name     string
		flag     string
		manifest string
		want     string
	}{
		{"flag wins", "workspace_id", "org_id", "workspace_id"},
		{"manifest over settings", "", "org_id", "org_id"},
		{"settings fallback", "", "", "tenantId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &config.Manifest{}
			m.Tenancy.ScopingField = tt.manifest
			p := &project{manifest: m}
			if got := p.scopingField(tt.flag); got != tt.want {
				t.Errorf("scopingField(%q) = %q, want %q", tt.flag, got, tt.want)
			}
		})
	}
}

func TestReview_IssueLogAndSummary(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(t.TempDir(), "issues")
	writeFile(t, dir, "app/settings.py", leakyPython)

	if _, err := execute(t, "", "review", "--path", dir, "--issue-log", logDir); err == nil {
		t.Fatal("expected BLOCK")
	}
	entries, err := os.ReadDir(logDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("issue log entries = %v, %v", entries, err)
	}

	out, err := execute(t, "", "issues", "--dir", logDir, "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var summary struct {
		Records int `json:"records"`
		Runs    int `json:"runs"`
		ByRule  []struct {
			Key      string `json:"key"`
			Critical int    `json:"critical"`
		} `json:"by_rule"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Records != 1 || summary.Runs != 1 || len(summary.ByRule) != 1 || summary.ByRule[0].Key != "hardcoded-secret" {
		t.Errorf("summary = %+v", summary)
	}
}

func TestReview_IssueLogDisabledBySettings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app/settings.py", leakyPython)

	_, _ = execute(t, "[issue_log]\nenabled = false\n", "review", "--path", dir)
	if _, err := os.Stat(filepath.Join(dir, ".reviewgate")); !os.IsNotExist(err) {
		t.Errorf("issue log written while disabled: %v", err)
	}
}

func TestGraph_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.ts", "import './a';\n")
	writeFile(t, dir, "a.ts", "import { b } from './b';\n")
	writeFile(t, dir, "b.ts", "import { a } from './a';\n")

	out, err := execute(t, "", "graph", "--path", dir, "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var report struct {
		Cycles [][]string `json:"cycles"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Cycles) != 1 || strings.Join(report.Cycles[0], ",") != "a.ts,b.ts" {
		t.Errorf("cycles = %v", report.Cycles)
	}
}

func TestParity_Command(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "web/api.ts", "fetch('/v1/users');\nfetch('/v1/teams');\n")
	writeFile(t, dir, "server/routes.py", "@app.get(\"/v1/users\")\ndef users(): pass\n")

	out, err := execute(t, "", "parity", "--path", dir, "--client", "web", "--server", "server", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	res := decodeResult(t, out)
	if len(res.Findings) != 1 || res.Findings[0].Line != 2 || res.Findings[0].FilePath != "web/api.ts" {
		t.Errorf("findings = %+v, want the /v1/teams call", res.Findings)
	}
}

func TestRules_JSON(t *testing.T) {
	out, err := execute(t, "", "rules", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var rows []reporter.RuleRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool)
	for _, r := range rows {
		seen[r.Language+"/"+r.ID] = true
	}
	for _, want := range []string{"python/hardcoded-secret", "go/hardcoded-secret", "any/circular-import", "any/endpoint-parity"} {
		if !seen[want] {
			t.Errorf("rules missing %s", want)
		}
	}

	if _, err := execute(t, "", "rules", "--language", "cobol"); err == nil {
		t.Error("unknown language accepted")
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "reviewgate dev (commit: none") {
		t.Errorf("version = %q", out)
	}
}

func TestRoot_BadSettings(t *testing.T) {
	if _, err := execute(t, "[logger]\nlevel = \"loud\"\n", "version"); err == nil {
		t.Error("invalid log level accepted")
	}
}
