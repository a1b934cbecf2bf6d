package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/reviewgate/internal/issuelog"
	"github.com/ppiankov/reviewgate/internal/reporter"
)

func newIssuesCmd() *cobra.Command {
	var (
		path   string
		dir    string
		since  time.Duration
		top    int
		format string
	)

	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Summarize the issue log by rule, file and day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := reporter.ResolveFormat(format, cmd.Flags().Changed("format"), settings.Review.Format)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = settings.IssueLog.Dir
			}
			if dir == "" {
				root, err := filepath.Abs(path)
				if err != nil {
					return fmt.Errorf("resolve root path: %w", err)
				}
				dir = issuelog.DefaultDir(root)
			}

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			records, err := issuelog.Read(dir, from)
			if err != nil {
				return err
			}
			summary, err := issuelog.Summarize(cmd.Context(), records, top)
			if err != nil {
				return fmt.Errorf("summarize issues: %w", err)
			}
			return reporter.WriteIssueSummary(cmd.OutOrStdout(), out, summary, reporter.Options{Color: isTerminal()})
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "project root whose log is read")
	cmd.Flags().StringVar(&dir, "dir", "", "issue log directory (default <path>/.reviewgate/issues)")
	cmd.Flags().DurationVar(&since, "since", 0, "only records newer than this, e.g. 168h")
	cmd.Flags().IntVar(&top, "top", 10, "rows per rule and file group (0 for all)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")

	return cmd
}
