package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/ppiankov/reviewgate/internal/scan"
)

const (
	sarifSchema  = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json"
	sarifVersion = "2.1.0"

	fingerprintKey = "reviewgate/v1"
	toolName       = "reviewgate"
	toolInfoURI    = "https://github.com/ppiankov/reviewgate"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations"`
	Results     []sarifResult     `json:"results"`
	Properties  sarifRunProps     `json:"properties"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID                   string             `json:"id"`
	ShortDescription     sarifMessage       `json:"shortDescription"`
	Help                 *sarifMessage      `json:"help,omitempty"`
	DefaultConfiguration sarifConfiguration `json:"defaultConfiguration"`
	Properties           sarifRuleProps     `json:"properties"`
}

type sarifConfiguration struct {
	Level string `json:"level"`
}

type sarifRuleProps struct {
	Category string `json:"category,omitempty"`
}

type sarifInvocation struct {
	ExecutionSuccessful        bool                `json:"executionSuccessful"`
	ToolExecutionNotifications []sarifNotification `json:"toolExecutionNotifications,omitempty"`
}

type sarifNotification struct {
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          sarifResultProps  `json:"properties"`
}

type sarifResultProps struct {
	Sequence     int    `json:"sequence"`
	Severity     string `json:"severity"`
	Confidence   int    `json:"confidence"`
	SuggestedFix string `json:"suggestedFix,omitempty"`
	Count        int    `json:"count,omitempty"`
	Category     string `json:"category,omitempty"`
	Language     string `json:"language,omitempty"`
}

type sarifRunProps struct {
	Root          string   `json:"root"`
	Language      string   `json:"language"`
	Verdict       string   `json:"verdict"`
	FilesScanned  int      `json:"filesScanned"`
	CleanFiles    []string `json:"cleanFiles"`
	CriticalCount int      `json:"criticalCount"`
	WarningCount  int      `json:"warningCount"`
	Suppressed    int      `json:"suppressed"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

// WriteSARIF writes a SARIF v2.1.0 log with one result per finding. Values
// SARIF has no field for (confidence, sequence, fix, count) travel in
// property bags so nothing in the table is lost.
func WriteSARIF(w io.Writer, res *scan.Result, version string) error {
	results := make([]sarifResult, 0, len(res.Findings))
	rules := make(map[string]sarifRule)
	for _, f := range res.Findings {
		if _, ok := rules[f.Rule]; !ok {
			rules[f.Rule] = ruleFor(f)
		}
		sr := sarifResult{
			RuleID:    f.Rule,
			Level:     sarifLevel(f.Severity),
			Message:   sarifMessage{Text: f.Message},
			Locations: []sarifLocation{location(f.FilePath, f.Line)},
			Properties: sarifResultProps{
				Sequence:     f.Sequence,
				Severity:     f.Severity.String(),
				Confidence:   f.Confidence,
				SuggestedFix: f.SuggestedFix,
				Count:        f.Count,
				Category:     f.Category,
				Language:     f.Language,
			},
		}
		if f.Fingerprint != "" {
			sr.PartialFingerprints = map[string]string{fingerprintKey: f.Fingerprint}
		}
		results = append(results, sr)
	}

	ids := make([]string, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	driverRules := make([]sarifRule, 0, len(ids))
	for _, id := range ids {
		driverRules = append(driverRules, rules[id])
	}

	inv := sarifInvocation{ExecutionSuccessful: true}
	for _, n := range res.Notes {
		sn := sarifNotification{Level: noteLevel(n.Level), Message: sarifMessage{Text: n.Message}}
		if n.Path != "" {
			sn.Locations = []sarifLocation{location(n.Path, 0)}
		}
		inv.ToolExecutionNotifications = append(inv.ToolExecutionNotifications, sn)
	}

	cleanFiles := res.CleanFiles
	if cleanFiles == nil {
		cleanFiles = []string{}
	}
	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:           toolName,
				Version:        version,
				InformationURI: toolInfoURI,
				Rules:          driverRules,
			}},
			Invocations: []sarifInvocation{inv},
			Results:     results,
			Properties: sarifRunProps{
				Root:          res.Root,
				Language:      res.Language,
				Verdict:       string(res.Verdict),
				FilesScanned:  res.FilesScanned,
				CleanFiles:    cleanFiles,
				CriticalCount: res.CriticalCount,
				WarningCount:  res.WarningCount,
				Suppressed:    res.Suppressed,
			},
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode sarif: %w", err)
	}
	return nil
}

func ruleFor(f scan.Finding) sarifRule {
	r := sarifRule{
		ID:                   f.Rule,
		ShortDescription:     sarifMessage{Text: f.Rule},
		DefaultConfiguration: sarifConfiguration{Level: sarifLevel(f.Severity)},
		Properties:           sarifRuleProps{Category: f.Category},
	}
	if f.SuggestedFix != "" {
		r.Help = &sarifMessage{Text: f.SuggestedFix}
	}
	return r
}

func location(path string, line int) sarifLocation {
	loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{
		ArtifactLocation: sarifArtifactLocation{URI: path},
	}}
	if line > 0 {
		loc.PhysicalLocation.Region = &sarifRegion{StartLine: line}
	}
	return loc
}

func sarifLevel(s scan.Severity) string {
	if s == scan.SeverityCritical {
		return "error"
	}
	return "warning"
}

func noteLevel(level string) string {
	switch level {
	case "error":
		return "error"
	case "warning":
		return "warning"
	default:
		return "note"
	}
}
