package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/reviewgate/internal/scan"
)

// Format selects a report renderer.
type Format int

const (
	FormatTable Format = iota
	FormatJSON
	FormatSARIF
)

// FormatEnv names the environment variable consulted when no format flag is set.
const FormatEnv = "REVIEWGATE_FORMAT"

func (f Format) String() string {
	switch f {
	case FormatTable:
		return "table"
	case FormatJSON:
		return "json"
	case FormatSARIF:
		return "sarif"
	default:
		return "unknown"
	}
}

// ParseFormat accepts table, text, json and sarif in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table", "text":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "sarif":
		return FormatSARIF, nil
	default:
		return FormatTable, fmt.Errorf("unknown format %q (want table, json or sarif)", s)
	}
}

// ResolveFormat picks the flag value when set, then REVIEWGATE_FORMAT, then
// the settings file value.
func ResolveFormat(flag string, flagSet bool, fromSettings string) (Format, error) {
	if flagSet {
		return ParseFormat(flag)
	}
	if env := os.Getenv(FormatEnv); env != "" {
		return ParseFormat(env)
	}
	if fromSettings != "" {
		return ParseFormat(fromSettings)
	}
	return ParseFormat(flag)
}

// Options tunes rendering.
type Options struct {
	Color         bool
	MinConfidence int
	Version       string
}

// Write renders res to w in the requested format.
func Write(w io.Writer, f Format, res *scan.Result, opts Options) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatSARIF:
		return WriteSARIF(w, res, opts.Version)
	default:
		return NewTableFormatter(w, opts).Format(res)
	}
}

// WriteFile renders res into path, replacing any previous report.
func WriteFile(path string, f Format, res *scan.Result, opts Options) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	opts.Color = false
	if err := Write(file, f, res, opts); err != nil {
		file.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	return nil
}
