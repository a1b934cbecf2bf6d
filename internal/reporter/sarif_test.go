package reporter

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ppiankov/reviewgate/internal/scan"
)

func renderSARIF(t *testing.T, res *scan.Result) sarifReport {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteSARIF(&buf, res, "1.2.3"); err != nil {
		t.Fatal(err)
	}
	var s sarifReport
	if err := json.Unmarshal(buf.Bytes(), &s); err != nil {
		t.Fatalf("unmarshal sarif: %v", err)
	}
	return s
}

func TestWriteSARIF_ValidStructure(t *testing.T) {
	s := renderSARIF(t, sampleResult())
	if s.Schema != sarifSchema {
		t.Errorf("schema = %q, want %q", s.Schema, sarifSchema)
	}
	if s.Version != "2.1.0" {
		t.Errorf("version = %q, want 2.1.0", s.Version)
	}
	if len(s.Runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(s.Runs))
	}
	driver := s.Runs[0].Tool.Driver
	if driver.Name != "reviewgate" || driver.Version != "1.2.3" {
		t.Errorf("driver = %+v", driver)
	}
	if len(driver.Rules) != 2 || driver.Rules[0].ID != scan.RuleDebugOutput {
		t.Errorf("rules = %+v, want two sorted by id", driver.Rules)
	}
}

func TestWriteSARIF_Results(t *testing.T) {
	s := renderSARIF(t, sampleResult())
	results := s.Runs[0].Results
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	secret := results[0]
	if secret.RuleID != scan.RuleHardcodedSecret || secret.Level != "error" {
		t.Errorf("first result = %s/%s, want hardcoded-secret/error", secret.RuleID, secret.Level)
	}
	if secret.Locations[0].PhysicalLocation.Region.StartLine != 4 {
		t.Errorf("startLine = %d, want 4", secret.Locations[0].PhysicalLocation.Region.StartLine)
	}
	if secret.PartialFingerprints[fingerprintKey] == "" {
		t.Error("expected a partial fingerprint")
	}
	if secret.Properties.Sequence != 1 || secret.Properties.SuggestedFix == "" {
		t.Errorf("properties = %+v", secret.Properties)
	}

	debug := results[1]
	if debug.Level != "warning" || debug.Properties.Count != 5 {
		t.Errorf("aggregated result = %s count %d, want warning count 5", debug.Level, debug.Properties.Count)
	}
	if debug.PartialFingerprints != nil {
		t.Error("finding without fingerprint should omit partialFingerprints")
	}
}

func TestWriteSARIF_RunProperties(t *testing.T) {
	s := renderSARIF(t, sampleResult())
	run := s.Runs[0]
	if run.Properties.Verdict != "BLOCK" || run.Properties.FilesScanned != 3 {
		t.Errorf("run properties = %+v", run.Properties)
	}
	if len(run.Properties.CleanFiles) != 1 || run.Properties.Suppressed != 1 {
		t.Errorf("run properties = %+v", run.Properties)
	}
	notes := run.Invocations[0].ToolExecutionNotifications
	if len(notes) != 1 || notes[0].Level != "warning" {
		t.Fatalf("notifications = %+v, want one warning", notes)
	}
	if notes[0].Locations[0].PhysicalLocation.Region != nil {
		t.Error("note location should carry no region")
	}
}

func TestWriteSARIF_NoFindings(t *testing.T) {
	s := renderSARIF(t, scan.NewResult("/r", "go"))
	if s.Runs[0].Results == nil || len(s.Runs[0].Results) != 0 {
		t.Errorf("results = %v, want empty", s.Runs[0].Results)
	}
	if s.Runs[0].Properties.Verdict != "APPROVE" {
		t.Errorf("verdict = %s, want APPROVE", s.Runs[0].Properties.Verdict)
	}
}
