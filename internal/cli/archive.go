package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/templetwo/breakthrough/internal/archive"
	"github.com/templetwo/breakthrough/internal/config"
	"github.com/templetwo/breakthrough/internal/output"
)

// ArchiveListResponse is the JSON output for archive list.
type ArchiveListResponse struct {
	output.TimestampedResponse
	Sessions []archive.SessionSummary `json:"sessions"`
	Count    int                      `json:"count"`
}

func newArchiveCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect and move archived pursuit sessions",
		Long: `Inspect and move archived pursuit sessions.

Subcommands:
  archive list              List archived sessions, newest first
  archive show <id>         Print one session in full
  archive export [path]     Export all sessions as JSON lines
  archive import <path>     Import sessions from a JSON lines file
  archive stats             Archive counters

Examples:
  bkt archive list --limit 5
  bkt archive show 12 --json
  bkt archive export sessions.jsonl
  bkt archive import sessions.jsonl`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List archived sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveList(limit, jsonOutput)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum sessions to list")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one archived session in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveShow(args[0], jsonOutput)
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Export all sessions as JSON lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runArchiveExport(path, jsonOutput)
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Import sessions from a JSON lines file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveImport(args[0], jsonOutput)
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show archive counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveStats(jsonOutput)
		},
	}

	cmd.AddCommand(listCmd, showCmd, exportCmd, importCmd, statsCmd)
	return cmd
}

func runArchiveList(limit int, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return outputError(err, jsonOutput)
	}

	resp, err := executeArchiveList(cfg, limit)
	if err != nil {
		return outputError(err, jsonOutput)
	}

	if jsonOutput {
		return output.PrintJSON(resp)
	}
	if resp.Count == 0 {
		output.Line("No archived sessions.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tACHIEVED\tCYCLES\tPOTENTIAL\tPROBLEM")
	for _, s := range resp.Sessions {
		achieved := "no"
		if s.Achieved {
			achieved = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%.3f\t%s\n",
			s.ID, s.CreatedAt.Format(time.RFC3339), achieved, s.Cycles, s.Potential, s.Problem)
	}
	return w.Flush()
}

func executeArchiveList(cfg *config.Config, limit int) (*ArchiveListResponse, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be >= 1")
	}

	store, err := openArchive(cfg, slog.Default())
	if err != nil {
		return nil, err
	}
	defer store.Close()

	sessions, err := store.ListSessions(limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	if sessions == nil {
		sessions = []archive.SessionSummary{}
	}
	return &ArchiveListResponse{
		TimestampedResponse: output.NewTimestamped(),
		Sessions:            sessions,
		Count:               len(sessions),
	}, nil
}

func runArchiveShow(rawID string, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return outputError(err, jsonOutput)
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return outputError(fmt.Errorf("invalid session id %q", rawID), jsonOutput)
	}

	store, err := openArchive(cfg, slog.Default())
	if err != nil {
		return outputError(err, jsonOutput)
	}
	defer store.Close()

	session, err := store.GetSession(id)
	if errors.Is(err, archive.ErrNotFound) {
		return outputError(fmt.Errorf("session %d not found", id), jsonOutput)
	}
	if err != nil {
		return outputError(err, jsonOutput)
	}

	if jsonOutput {
		return output.PrintJSON(session)
	}
	resp := &output.PursueResponse{
		TimestampedResponse: output.NewTimestamped(),
		Problem:             session.Problem,
		Achieved:            session.Achieved,
		CyclesCompleted:     session.CyclesCompleted(),
		FinalPotential:      finalPotential(session),
		DurationSeconds:     session.Duration().Seconds(),
		ArchiveID:           id,
	}
	output.Line("%s %s", output.Title("Problem:"), session.Problem)
	renderSession(resp, session)
	return nil
}

func runArchiveExport(path string, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return outputError(err, jsonOutput)
	}

	store, err := openArchive(cfg, slog.Default())
	if err != nil {
		return outputError(err, jsonOutput)
	}
	defer store.Close()

	dest := os.Stdout
	target := "stdout"
	if path != "" {
		f, err := os.Create(config.ExpandTilde(path))
		if err != nil {
			return outputError(fmt.Errorf("creating export file: %w", err), jsonOutput)
		}
		defer f.Close()
		dest = f
		target = path
	}

	count, err := store.ExportTo(dest)
	if err != nil {
		return outputError(fmt.Errorf("exporting sessions: %w", err), jsonOutput)
	}

	// Writing to stdout leaves no room for a report line.
	if path == "" {
		return nil
	}
	resp := &output.ExportResponse{
		TimestampedResponse: output.NewTimestamped(),
		Path:                target,
		Sessions:            count,
	}
	if jsonOutput {
		return output.PrintJSON(resp)
	}
	output.Line("Exported %d session(s) to %s", count, target)
	return nil
}

func runArchiveImport(path string, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return outputError(err, jsonOutput)
	}

	store, err := openArchive(cfg, slog.Default())
	if err != nil {
		return outputError(err, jsonOutput)
	}
	defer store.Close()

	f, err := os.Open(config.ExpandTilde(path))
	if err != nil {
		return outputError(fmt.Errorf("opening import file: %w", err), jsonOutput)
	}
	defer f.Close()

	count, err := store.ImportFrom(f)
	if err != nil {
		return outputError(fmt.Errorf("importing sessions: %w", err), jsonOutput)
	}

	if jsonOutput {
		return output.PrintJSON(output.NewSuccess(fmt.Sprintf("imported %d session(s)", count)))
	}
	output.Line("Imported %d session(s) from %s", count, path)
	return nil
}

func runArchiveStats(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return outputError(err, jsonOutput)
	}

	store, err := openArchive(cfg, slog.Default())
	if err != nil {
		return outputError(err, jsonOutput)
	}
	defer store.Close()

	stats, err := store.GetStats()
	if err != nil {
		return outputError(err, jsonOutput)
	}

	if jsonOutput {
		return output.PrintJSON(stats)
	}
	output.Line("Sessions: %d (%d achieved)", stats.Sessions, stats.Achieved)
	output.Line("Improvement events: %d", stats.ImprovementEvents)
	return nil
}
