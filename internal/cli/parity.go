package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/reviewgate/internal/crossfile"
	"github.com/ppiankov/reviewgate/internal/reporter"
	"github.com/ppiankov/reviewgate/internal/scan"
)

func newParityCmd() *cobra.Command {
	var (
		path        string
		client      string
		server      string
		prefixes    []string
		exclude     []string
		includeDead bool
		format      string
		minConf     int
	)

	cmd := &cobra.Command{
		Use:   "parity",
		Short: "Check that every client API call has a matching server route",
		Long: "Parity extracts HTTP calls from client code and route declarations from server code, " +
			"then reports calls no route serves. Client and server default to the manifest's " +
			"paths.frontend and paths.backend.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := reporter.ResolveFormat(format, cmd.Flags().Changed("format"), settings.Review.Format)
			if err != nil {
				return err
			}
			p, err := loadProject(path, exclude)
			if err != nil {
				return err
			}
			if client == "" {
				client = p.manifest.FrontendRoot(p.root)
			}
			if server == "" {
				server = p.manifest.BackendRoot(p.root)
			}
			if len(prefixes) == 0 {
				prefixes = p.manifest.Review.APIPrefixes
			}

			report, err := crossfile.Parity(cmd.Context(), crossfile.ParityOptions{
				Root:        p.root,
				ClientRoot:  client,
				ServerRoot:  server,
				APIPrefixes: prefixes,
				Exclude:     p.exclude,
				IncludeDead: includeDead,
			})
			if err != nil {
				return fmt.Errorf("endpoint parity: %w", err)
			}

			res := scan.NewResult(p.root, "endpoints")
			res.Add(report.Findings, minConf)
			res.Notes = append(res.Notes, report.Notes...)
			res.Notes = append(res.Notes, scan.Note{
				Level:   "info",
				Message: fmt.Sprintf("%d client calls, %d server routes", len(report.Calls), len(report.Routes)),
			})
			if err := reporter.Write(cmd.OutOrStdout(), out, res, reporter.Options{
				Color:         isTerminal(),
				MinConfidence: minConf,
				Version:       Version,
			}); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "project root")
	cmd.Flags().StringVar(&client, "client", "", "client code directory (default manifest paths.frontend)")
	cmd.Flags().StringVar(&server, "server", "", "server code directory (default manifest paths.backend)")
	cmd.Flags().StringSliceVar(&prefixes, "api-prefix", nil, "path prefix stripped before matching, e.g. /api/v1")
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "glob to exclude, repeatable")
	cmd.Flags().BoolVar(&includeDead, "include-dead", false, "also report routes no client calls")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json or sarif")
	cmd.Flags().IntVar(&minConf, "min-confidence", 0, "hide findings below this confidence")

	return cmd
}
