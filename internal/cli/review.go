package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/reviewgate/internal/config"
	"github.com/ppiankov/reviewgate/internal/crossfile"
	"github.com/ppiankov/reviewgate/internal/issuelog"
	"github.com/ppiankov/reviewgate/internal/reporter"
	"github.com/ppiankov/reviewgate/internal/scan"
)

type reviewFlags struct {
	path          string
	file          string
	changedOnly   bool
	baseRef       string
	language      string
	format        string
	minConfidence int
	workers       int
	exclude       []string
	scopingField  string
	deepSecrets   bool
	crossFile     bool
	issueLogDir   string
	noIssueLog    bool
	output        string
}

func newReviewCmd() *cobra.Command {
	var f reviewFlags

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review source files and print findings with a verdict",
		Long: "Review runs the rule catalog for the project language over every source file under --path, " +
			"or over the single --file, and exits 1 when any CRITICAL finding is reported.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runReview(ctx, cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.path, "path", ".", "project root to review")
	cmd.Flags().StringVar(&f.file, "file", "", "review a single file")
	cmd.Flags().BoolVar(&f.changedOnly, "changed-only", false, "review only files changed relative to --base-ref")
	cmd.Flags().StringVar(&f.baseRef, "base-ref", "HEAD", "git ref for --changed-only")
	cmd.Flags().StringVar(&f.language, "language", "", "force the checker: ts, python, java or go")
	cmd.Flags().StringVar(&f.format, "format", "table", "output format: table, json or sarif (env "+reporter.FormatEnv+")")
	cmd.Flags().IntVar(&f.minConfidence, "min-confidence", scan.DefaultMinConfidence, "hide findings below this confidence")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "parallel file checks (default GOMAXPROCS)")
	cmd.Flags().StringArrayVar(&f.exclude, "exclude", nil, "glob to exclude, repeatable")
	cmd.Flags().StringVar(&f.scopingField, "scoping-field", "", "tenant scoping field (default from manifest, else "+scan.DefaultScopingField+")")
	cmd.Flags().BoolVar(&f.deepSecrets, "deep-secrets", false, "add the gitleaks rule pack to secret detection")
	cmd.Flags().BoolVar(&f.crossFile, "cross-file", false, "append endpoint parity and import graph findings")
	cmd.Flags().StringVar(&f.issueLogDir, "issue-log", "", "issue log directory (default <path>/.reviewgate/issues)")
	cmd.Flags().BoolVar(&f.noIssueLog, "no-issue-log", false, "do not append findings to the issue log")
	cmd.Flags().StringVar(&f.output, "output", "", "also write the report to this file")

	return cmd
}

// project is the merged view of flags, settings and manifest for one root.
type project struct {
	root     string // absolute --path
	manifest *config.Manifest
	exclude  []string
}

func loadProject(path string, extraExclude []string) (*project, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, &scan.ConfigError{Msg: "resolve root path", Err: err}
	}
	m, err := config.LoadManifest(root)
	if err != nil {
		return nil, &scan.ConfigError{Msg: "load manifest", Err: err}
	}
	if m.Path != "" {
		slog.Debug("loaded manifest", "path", m.Path)
	}
	var exclude []string
	exclude = append(exclude, m.Review.Exclude...)
	exclude = append(exclude, settings.Review.Exclude...)
	exclude = append(exclude, extraExclude...)
	return &project{root: root, manifest: m, exclude: exclude}, nil
}

func (p *project) scopingField(flag string) string {
	switch {
	case flag != "":
		return flag
	case p.manifest.Tenancy.ScopingField != "":
		return p.manifest.Tenancy.ScopingField
	default:
		return settings.Review.ScopingField
	}
}

func reviewOptions(cmd *cobra.Command, f reviewFlags, p *project) scan.Options {
	opts := scan.Options{
		Root:             p.manifest.BackendRoot(p.root),
		File:             f.file,
		ChangedOnly:      f.changedOnly,
		BaseRef:          f.baseRef,
		Language:         f.language,
		DeclaredLanguage: p.manifest.Language(),
		Exclude:          p.exclude,
		ScopingField:     p.scopingField(f.scopingField),
		EntryPoints:      p.manifest.Review.EntryPoints,
		MinConfidence:    f.minConfidence,
		Workers:          f.workers,
		DeepSecrets:      f.deepSecrets || settings.Review.DeepSecrets,
	}
	if f.file != "" {
		opts.Root = p.root
	}
	if !cmd.Flags().Changed("min-confidence") && settings.Review.MinConfidence > 0 {
		opts.MinConfidence = settings.Review.MinConfidence
	}
	if !cmd.Flags().Changed("workers") && settings.Review.Workers > 0 {
		opts.Workers = settings.Review.Workers
	}
	return opts
}

func runReview(ctx context.Context, cmd *cobra.Command, f reviewFlags) error {
	format, err := reporter.ResolveFormat(f.format, cmd.Flags().Changed("format"), settings.Review.Format)
	if err != nil {
		return err
	}
	if f.file != "" && f.changedOnly {
		return &scan.ConfigError{Msg: "--file and --changed-only cannot be combined"}
	}
	if f.file != "" && f.crossFile {
		return &scan.ConfigError{Msg: "--cross-file needs a project root, not --file"}
	}
	p, err := loadProject(f.path, f.exclude)
	if err != nil {
		return err
	}
	opts := reviewOptions(cmd, f, p)

	res, err := scan.Scan(ctx, opts)
	if err != nil {
		return fmt.Errorf("review: %w", err)
	}

	if f.crossFile {
		if err := addCrossFile(ctx, res, p, opts); err != nil {
			return err
		}
	}

	if !f.noIssueLog && settings.IssueLog.Enabled {
		logIssues(res, p, f.issueLogDir)
	}

	ropts := reporter.Options{Color: isTerminal(), MinConfidence: opts.MinConfidence, Version: Version}
	if err := reporter.Write(cmd.OutOrStdout(), format, res, ropts); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if f.output != "" {
		if err := reporter.WriteFile(f.output, format, res, ropts); err != nil {
			return err
		}
	}

	if res.Verdict == scan.VerdictBlock {
		return blockError(res.CriticalCount)
	}
	return nil
}

// addCrossFile appends parity and import graph findings to res. Paths stay
// relative to the reviewed root.
func addCrossFile(ctx context.Context, res *scan.Result, p *project, opts scan.Options) error {
	lang, ok := scan.ParseLanguage(res.Language)
	if !ok {
		return nil
	}

	parity, err := crossfile.Parity(ctx, crossfile.ParityOptions{
		Root:        res.Root,
		ClientRoot:  p.manifest.FrontendRoot(p.root),
		ServerRoot:  res.Root,
		APIPrefixes: p.manifest.Review.APIPrefixes,
		Exclude:     opts.Exclude,
	})
	if err != nil {
		return fmt.Errorf("endpoint parity: %w", err)
	}
	res.Add(parity.Findings, opts.MinConfidence)
	res.Notes = append(res.Notes, parity.Notes...)

	graph, err := crossfile.Analyze(ctx, crossfile.GraphOptions{
		Root:        res.Root,
		Language:    lang,
		Exclude:     opts.Exclude,
		EntryPoints: opts.EntryPoints,
	})
	if err != nil {
		return fmt.Errorf("import graph: %w", err)
	}
	res.Add(graph.Findings, opts.MinConfidence)
	res.Notes = append(res.Notes, graph.Notes...)
	return nil
}

// logIssues appends findings to the issue log. A failure is logged and
// never changes the verdict.
func logIssues(res *scan.Result, p *project, flagDir string) {
	if len(res.Findings) == 0 {
		return
	}
	dir := flagDir
	if dir == "" {
		dir = settings.IssueLog.Dir
	}
	if dir == "" {
		dir = issuelog.DefaultDir(p.root)
	}
	w, err := issuelog.NewWriter(dir)
	if err != nil {
		slog.Warn("issue log unavailable", "error", err)
		return
	}
	runID, err := w.Write(res)
	if err != nil {
		slog.Warn("write issue log", "error", err)
		return
	}
	slog.Debug("logged findings", "dir", w.Dir(), "run_id", runID, "findings", len(res.Findings))
}
