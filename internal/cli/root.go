// Package cli implements the bkt command tree. Commands load their
// configuration lazily so tests can point them at temporary files.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/templetwo/breakthrough/internal/output"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var (
	jsonOutput bool
	configPath string
	verbose    bool
)

// NewRootCmd builds the bkt command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bkt",
		Short: "Iterative breakthrough pursuit with adaptive self-improvement",
		Long: `bkt runs a panel of specialist agents through refinement cycles against
a problem statement, scoring each cycle's breakthrough potential and
redirecting the problem along a new dimension until the potential
threshold is reached or the cycle budget runs out.

An adaptive controller guards every pursuit: it tracks failures and
response times, detects stuck states, and applies recovery strategies
that tighten the resource envelope without ever crossing its floors.

Examples:
  bkt pursue "reduce cold-start latency in the ingest pipeline"
  bkt pursue "unify the billing schemas" --cycles 5 --threshold 0.9
  bkt status                     # Controller health and archive counters
  bkt serve                      # HTTP API with live narration websocket
  bkt archive list               # Recently archived sessions`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
	}

	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: XDG config dir)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newPursueCmd(),
		newStatusCmd(),
		newImproveCmd(),
		newServeCmd(),
		newArchiveCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if !jsonOutput {
			output.Line("Error: %s", err.Error())
		}
		os.Exit(1)
	}
}

// setupLogging installs the process-wide structured logger. Logs go to
// stderr so JSON output on stdout stays machine-parseable.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
