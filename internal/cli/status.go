package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/templetwo/breakthrough/internal/adaptive"
	"github.com/templetwo/breakthrough/internal/archive"
	"github.com/templetwo/breakthrough/internal/config"
	"github.com/templetwo/breakthrough/internal/output"
)

// StatusResponse is the JSON output for the status command.
type StatusResponse struct {
	output.TimestampedResponse
	Dashboard *adaptive.DashboardState `json:"dashboard,omitempty"`
	Archive   archive.Stats            `json:"archive"`
	Source    string                   `json:"source"`
}

func newStatusCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show controller health and archive counters",
		Long: `Show the adaptive controller's dashboard state together with archive
counters. When a bkt serve instance is reachable, its live dashboard is
queried; otherwise only the local archive counters are reported.

Examples:
  bkt status                       # Query the configured serve address
  bkt status --addr 10.0.0.5:8787  # Query a remote instance
  bkt status --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(addr, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Serve address to query (default from config)")
	return cmd
}

func runStatus(addr string, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return outputError(err, jsonOutput)
	}
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	resp, err := executeStatus(cfg, addr)
	if err != nil {
		return outputError(err, jsonOutput)
	}

	if jsonOutput {
		return output.PrintJSON(resp)
	}
	renderStatus(resp)
	return nil
}

func executeStatus(cfg *config.Config, addr string) (*StatusResponse, error) {
	resp := &StatusResponse{
		TimestampedResponse: output.NewTimestamped(),
		Source:              "archive",
	}

	store, err := openArchive(cfg, slog.Default())
	if err != nil {
		return nil, err
	}
	defer store.Close()

	stats, err := store.GetStats()
	if err != nil {
		return nil, fmt.Errorf("reading archive stats: %w", err)
	}
	resp.Archive = stats

	if state, err := fetchDashboard(addr); err == nil {
		resp.Dashboard = state
		resp.Source = "serve"
	} else {
		slog.Default().Debug("dashboard unreachable, archive counters only",
			slog.String("addr", addr),
			slog.String("error", err.Error()),
		)
	}
	return resp, nil
}

func fetchDashboard(addr string) (*adaptive.DashboardState, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	httpResp, err := client.Get("http://" + addr + "/api/dashboard")
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dashboard returned status %d", httpResp.StatusCode)
	}

	var state adaptive.DashboardState
	if err := json.NewDecoder(httpResp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("decoding dashboard: %w", err)
	}
	return &state, nil
}

func renderStatus(resp *StatusResponse) {
	if resp.Dashboard != nil {
		d := resp.Dashboard
		label := d.Status
		switch d.Status {
		case adaptive.StatusExcellent, adaptive.StatusGood:
			label = output.Good(d.Status)
		case adaptive.StatusNeedsImprovement:
			label = output.Warn(d.Status)
		}
		output.Line("%s %s  score %.2f", output.Title("Controller:"), label, d.PerformanceScore)
		output.Line("  operations: %d ok, %d failed, %d adaptations",
			d.SuccessCount, d.ErrorCount, d.AdaptationCount)
		output.Line("  constraints: prompt %d, timeout %ds, memory %dMB, concurrency %d",
			d.Constraints.MaxPromptLength, d.Constraints.TimeoutSeconds,
			d.Constraints.MemoryLimitMB, d.Constraints.MaxConcurrentOps)
		if d.Degraded {
			output.Line("  %s", output.Warn("degraded: adaptation trigger cap crossed"))
		}
		for _, pattern := range d.RecentErrors {
			output.Line("  recent error: %s", output.Dim(pattern))
		}
	} else {
		output.Line("%s", output.Dim("Controller: not reachable (is bkt serve running?)"))
	}

	output.Line("%s %d sessions, %d achieved, %d improvement events",
		output.Title("Archive:"), resp.Archive.Sessions, resp.Archive.Achieved, resp.Archive.ImprovementEvents)
}
