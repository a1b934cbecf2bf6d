package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/reviewgate/internal/crossfile"
	"github.com/ppiankov/reviewgate/internal/reporter"
	"github.com/ppiankov/reviewgate/internal/scan"
)

func newRulesCmd() *cobra.Command {
	var (
		language string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rule catalog per language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := reporter.ResolveFormat(format, cmd.Flags().Changed("format"), "")
			if err != nil {
				return err
			}
			langs := scan.Supported
			if language != "" {
				l, ok := scan.ParseLanguage(language)
				if !ok {
					return &scan.ConfigError{Msg: "no checker for language " + language}
				}
				langs = []scan.Language{l}
			}
			return reporter.WriteRules(cmd.OutOrStdout(), out, ruleRows(langs), reporter.Options{Color: isTerminal()})
		},
	}

	cmd.Flags().StringVar(&language, "language", "", "only this language: ts, python, java or go")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")

	return cmd
}

func ruleRows(langs []scan.Language) []reporter.RuleRow {
	var rows []reporter.RuleRow
	for _, l := range langs {
		for _, r := range l.Profile().Rules() {
			rows = append(rows, reporter.RuleRow{
				Language:   l.String(),
				ID:         r.ID,
				Category:   r.Category,
				Severity:   r.Severity,
				Confidence: r.Confidence,
				Aggregate:  r.Aggregate != nil,
				Message:    r.Message,
			})
		}
	}
	for _, r := range crossfile.Catalog {
		rows = append(rows, reporter.RuleRow{
			Language:   "any",
			ID:         r.ID,
			Category:   r.Category,
			Severity:   r.Severity,
			Confidence: r.Confidence,
			Message:    r.Message,
		})
	}
	return rows
}
