package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/templetwo/breakthrough/internal/archive"
	"github.com/templetwo/breakthrough/internal/config"
	"github.com/templetwo/breakthrough/internal/output"
)

// isInteractive returns true when both stdin and stdout are TTYs. Used
// to decide whether live narration should default on.
func isInteractive() bool {
	return (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())) &&
		(isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()))
}

// outputError reports err in the requested format. In JSON mode the
// error becomes a structured payload on stdout and the command exits
// zero, so scripted callers can parse a single stream.
func outputError(err error, jsonOutput bool) error {
	if jsonOutput {
		output.PrintJSONError(err.Error())
		return nil
	}
	return err
}

// loadConfig resolves the active configuration, honoring --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openArchive opens the configured session archive.
func openArchive(cfg *config.Config, logger *slog.Logger) (*archive.Store, error) {
	path := cfg.ArchivePath
	if path == "" {
		path = config.DefaultArchivePath()
	}
	store, err := archive.Open(config.ExpandTilde(path), logger)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	return store, nil
}
