package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/reviewgate/internal/config"
)

// Version, Commit and BuildDate are set via LDFLAGS at build time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	verbose    bool
	configFile string
	settings   = config.DefaultSettings()
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reviewgate",
		Short: "Pattern-based code review gate",
		Long: "reviewgate scans TypeScript, Python, Java and Go sources for security and correctness " +
			"problems with a fixed rule catalog and returns an APPROVE or BLOCK verdict.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.LocateAndLoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			level, err := s.SlogLevel()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
			settings = s
			if s.Path != "" {
				slog.Debug("loaded settings", "path", s.Path)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to settings file (default: $"+config.EnvConfig+", ./.reviewgate.toml, then the user config dir)")

	root.AddCommand(newReviewCmd())
	root.AddCommand(newParityCmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newIssuesCmd())
	root.AddCommand(newRulesCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
