package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/reviewgate/internal/crossfile"
	"github.com/ppiankov/reviewgate/internal/reporter"
	"github.com/ppiankov/reviewgate/internal/scan"
)

func newGraphCmd() *cobra.Command {
	var (
		path     string
		language string
		exclude  []string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Report circular imports and orphan files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := reporter.ResolveFormat(format, cmd.Flags().Changed("format"), settings.Review.Format)
			if err != nil {
				return err
			}
			p, err := loadProject(path, exclude)
			if err != nil {
				return err
			}
			root := p.manifest.BackendRoot(p.root)
			resolution := scan.ResolveLanguage(root, language, p.manifest.Language(), scan.NewExcluder(p.exclude))
			if !resolution.Supported() {
				return &scan.ConfigError{Msg: resolution.Guidance()}
			}

			report, err := crossfile.Analyze(cmd.Context(), crossfile.GraphOptions{
				Root:        root,
				Language:    resolution.Language,
				Exclude:     p.exclude,
				EntryPoints: p.manifest.Review.EntryPoints,
			})
			if err != nil {
				return fmt.Errorf("import graph: %w", err)
			}

			if out == reporter.FormatJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			res := scan.NewResult(root, report.Language)
			res.Add(report.Findings, 0)
			res.Notes = append(res.Notes, report.Notes...)
			res.Notes = append(res.Notes, scan.Note{
				Level:   "info",
				Message: fmt.Sprintf("%d nodes, %d edges, %d cycles, %d orphans", report.Nodes, report.Edges, len(report.Cycles), len(report.Orphans)),
			})
			return reporter.Write(cmd.OutOrStdout(), out, res, reporter.Options{Color: isTerminal(), Version: Version})
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "project root")
	cmd.Flags().StringVar(&language, "language", "", "force the language: ts, python, java or go")
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "glob to exclude, repeatable")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json or sarif")

	return cmd
}
