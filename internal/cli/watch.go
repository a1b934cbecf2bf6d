package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ppiankov/reviewgate/internal/reporter"
	"github.com/ppiankov/reviewgate/internal/scan"
	"github.com/ppiankov/reviewgate/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var (
		path     string
		exclude  []string
		minConf  int
		tui      bool
		poll     bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Review files as they are saved",
		Long: "Watch reviews every supported source file under --path each time it is written. " +
			"Results stream to stdout, or fill a finding browser with --tui.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(path, exclude)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("min-confidence") && settings.Review.MinConfidence > 0 {
				minConf = settings.Review.MinConfidence
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg := watch.Config{
				Root: p.manifest.BackendRoot(p.root),
				Review: scan.Options{
					Exclude:       p.exclude,
					ScopingField:  p.scopingField(""),
					EntryPoints:   p.manifest.Review.EntryPoints,
					MinConfidence: minConf,
					DeepSecrets:   settings.Review.DeepSecrets,
				},
				Debounce: debounce,
				PollMode: poll,
			}
			if tui {
				return runWatchTUI(ctx, cancel, cfg)
			}
			return runWatchStream(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "project root to watch")
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "glob to exclude, repeatable")
	cmd.Flags().IntVar(&minConf, "min-confidence", scan.DefaultMinConfidence, "hide findings below this confidence")
	cmd.Flags().BoolVar(&tui, "tui", false, "interactive finding browser")
	cmd.Flags().BoolVar(&poll, "poll", false, "poll for changes instead of using filesystem events")
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "quiet period before a saved file is reviewed")

	return cmd
}

func runWatchStream(ctx context.Context, cmd *cobra.Command, cfg watch.Config) error {
	out := reporter.NewStreamFormatter(cmd.OutOrStdout(), isTerminal())
	var mu sync.Mutex
	cfg.OnResult = func(path string, res *scan.Result) {
		mu.Lock()
		defer mu.Unlock()
		out.Print(path, res, time.Now())
	}
	cfg.OnError = func(path string, err error) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
	}
	w, err := watch.New(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (ctrl+c to stop)\n", w.Root())
	return w.Run(ctx)
}

func runWatchTUI(ctx context.Context, cancel context.CancelFunc, cfg watch.Config) error {
	var p *tea.Program
	cfg.OnResult = func(path string, res *scan.Result) {
		p.Send(reporter.ResultMsg{Path: path, Result: res, At: time.Now()})
	}
	cfg.OnError = func(path string, err error) {
		p.Send(reporter.ErrMsg{Err: fmt.Errorf("%s: %w", path, err)})
	}
	w, err := watch.New(cfg)
	if err != nil {
		return err
	}
	p = tea.NewProgram(reporter.NewTUIModel(w.Root(), cancel), tea.WithAltScreen(), tea.WithContext(ctx))

	// start watcher in background
	go func() {
		if err := w.Run(ctx); err != nil {
			p.Send(reporter.ErrMsg{Err: err})
		}
	}()

	_, err = p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
