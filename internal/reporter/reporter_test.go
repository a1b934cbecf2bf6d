package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/reviewgate/internal/scan"
)

func sampleResult() *scan.Result {
	res := scan.NewResult("/srv/app", "python")
	res.FilesScanned = 3
	res.CleanFiles = []string{"app/ok.py"}
	res.Notes = []scan.Note{{Level: "warning", Path: "app/broken.py", Message: "skipped: permission denied"}}
	res.Suppressed = 1
	res.Add([]scan.Finding{
		{
			Rule: scan.RuleHardcodedSecret, Category: "secrets", Language: "python",
			FilePath: "app/settings.py", Line: 4, Severity: scan.SeverityCritical, Confidence: 90,
			Message: "Hardcoded secret assigned to a credential-like name", SuggestedFix: "Read it from os.environ.",
			Fingerprint: scan.Fingerprint(scan.RuleHardcodedSecret, "app/settings.py", `api_key = "abcd1234efgh"`),
		},
		{
			Rule: scan.RuleDebugOutput, Category: "hygiene", Language: "python",
			FilePath: "app/views.py", Line: 12, Severity: scan.SeverityWarning, Confidence: 80,
			Message: "5 debug output statements in this file", SuggestedFix: "Use logging.", Count: 5,
		},
	}, 70)
	return res
}

type tuple struct {
	file       string
	line       int
	severity   string
	confidence int
	message    string
}

func TestFormatEquivalence(t *testing.T) {
	res := sampleResult()

	var want []tuple
	for _, f := range res.Findings {
		want = append(want, tuple{f.FilePath, f.Line, f.Severity.String(), f.Confidence, f.Message})
	}

	var js bytes.Buffer
	if err := Write(&js, FormatJSON, res, Options{}); err != nil {
		t.Fatal(err)
	}
	var decoded scan.Result
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	var fromJSON []tuple
	for _, f := range decoded.Findings {
		fromJSON = append(fromJSON, tuple{f.FilePath, f.Line, f.Severity.String(), f.Confidence, f.Message})
	}

	var sb bytes.Buffer
	if err := Write(&sb, FormatSARIF, res, Options{}); err != nil {
		t.Fatal(err)
	}
	var sarif sarifReport
	if err := json.Unmarshal(sb.Bytes(), &sarif); err != nil {
		t.Fatalf("decode sarif: %v", err)
	}
	var fromSARIF []tuple
	for _, r := range sarif.Runs[0].Results {
		loc := r.Locations[0].PhysicalLocation
		fromSARIF = append(fromSARIF, tuple{loc.ArtifactLocation.URI, loc.Region.StartLine, r.Properties.Severity, r.Properties.Confidence, r.Message.Text})
	}

	if fmt.Sprint(fromJSON) != fmt.Sprint(want) {
		t.Errorf("json tuples = %v, want %v", fromJSON, want)
	}
	if fmt.Sprint(fromSARIF) != fmt.Sprint(want) {
		t.Errorf("sarif tuples = %v, want %v", fromSARIF, want)
	}

	var tb bytes.Buffer
	if err := Write(&tb, FormatTable, res, Options{MinConfidence: 70}); err != nil {
		t.Fatal(err)
	}
	table := tb.String()
	for _, w := range want {
		for _, s := range []string{fmt.Sprintf("%s:%d", w.file, w.line), w.severity, fmt.Sprint(w.confidence), w.message} {
			if !strings.Contains(table, s) {
				t.Errorf("table output missing %q", s)
			}
		}
	}
}

func TestWriteJSON_Fields(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResult()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, key := range []string{`"verdict": "BLOCK"`, `"critical_count": 1`, `"severity": "CRITICAL"`, `"suggested_fix"`, `"clean_files"`, `"count": 5`} {
		if !strings.Contains(out, key) {
			t.Errorf("json missing %s", key)
		}
	}
}

func TestWriteJSON_EmptyFindingsIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, scan.NewResult("/r", "go")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"findings": []`) {
		t.Errorf("expected empty findings array, got %s", buf.String())
	}
}

func TestTableFormatter_Banner(t *testing.T) {
	tests := []struct {
		name     string
		findings []scan.Finding
		want     string
	}{
		{"block", []scan.Finding{{Rule: "r", Severity: scan.SeverityCritical, Confidence: 95}}, "REQUEST CHANGES (BLOCK)"},
		{"warnings only", []scan.Finding{{Rule: "r", Severity: scan.SeverityWarning, Confidence: 75}}, "COMMENT (APPROVE)"},
		{"clean", nil, "Verdict: APPROVE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := scan.NewResult("/r", "go")
			res.Add(tt.findings, 70)
			var buf bytes.Buffer
			if err := NewTableFormatter(&buf, Options{}).Format(res); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, buf.String())
			}
		})
	}
}

func TestTableFormatter_CleanFilesTruncated(t *testing.T) {
	res := scan.NewResult("/r", "go")
	for i := 0; i < 25; i++ {
		res.CleanFiles = append(res.CleanFiles, fmt.Sprintf("pkg/f%02d.go", i))
	}
	var buf bytes.Buffer
	if err := NewTableFormatter(&buf, Options{}).Format(res); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Clean files (25)") {
		t.Error("expected clean file count")
	}
	if !strings.Contains(out, "pkg/f19.go") || strings.Contains(out, "pkg/f20.go") {
		t.Error("expected exactly the first 20 clean files")
	}
	if !strings.Contains(out, "... and 5 more") {
		t.Error("expected overflow line")
	}
}

func TestTableFormatter_NoColorHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTableFormatter(&buf, Options{Color: false}).Format(sampleResult()); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("uncolored output contains ANSI escapes")
	}
	if !strings.Contains(buf.String(), "1 below confidence 0 not shown") {
		t.Errorf("expected suppressed count in summary:\n%s", buf.String())
	}
}

func TestTableFormatter_AggregatedMessageUnchanged(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTableFormatter(&buf, Options{}).Format(sampleResult()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "5 debug output statements in this file") {
		t.Errorf("aggregated message missing:\n%s", out)
	}
	if strings.Contains(out, "(x5)") {
		t.Errorf("aggregated message repeats the count:\n%s", out)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"TEXT", FormatTable, false},
		{"json", FormatJSON, false},
		{"Sarif", FormatSARIF, false},
		{"xml", FormatTable, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestResolveFormat_Precedence(t *testing.T) {
	t.Setenv(FormatEnv, "json")

	if f, _ := ResolveFormat("sarif", true, "table"); f != FormatSARIF {
		t.Errorf("flag: got %s, want sarif", f)
	}
	if f, _ := ResolveFormat("table", false, "sarif"); f != FormatJSON {
		t.Errorf("env: got %s, want json", f)
	}

	t.Setenv(FormatEnv, "")
	if f, _ := ResolveFormat("table", false, "sarif"); f != FormatSARIF {
		t.Errorf("settings: got %s, want sarif", f)
	}
	if f, _ := ResolveFormat("table", false, ""); f != FormatTable {
		t.Errorf("default: got %s, want table", f)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := WriteFile(path, FormatJSON, sampleResult(), Options{Color: true}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var res scan.Result
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("report is not json: %v", err)
	}
	if res.Verdict != scan.VerdictBlock {
		t.Errorf("verdict = %s, want BLOCK", res.Verdict)
	}
}
