package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/templetwo/breakthrough/internal/adaptive"
	"github.com/templetwo/breakthrough/internal/config"
	"github.com/templetwo/breakthrough/internal/output"
)

func newImproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "improve",
		Short: "Run one self-improvement round on the configured envelope",
		Long: `Run one self-improvement round against the configured resource
constraints, regardless of the stuck detector's verdict. Three distinct
recovery strategies are sampled and applied, and the resulting event is
archived alongside events from past pursuits.

Useful for inspecting which strategies the controller would reach for
and how far the envelope tightens before hitting its floors.

Examples:
  bkt improve
  bkt improve --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImprove(jsonOutput)
		},
	}
	return cmd
}

func runImprove(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return outputError(err, jsonOutput)
	}

	resp, err := executeImprove(cfg)
	if err != nil {
		return outputError(err, jsonOutput)
	}

	if jsonOutput {
		return output.PrintJSON(resp)
	}
	output.Line("%s trigger %d", output.Title("Self-improvement applied:"), resp.TriggerCount)
	for _, name := range resp.StrategiesApplied {
		output.Line("  - %s", name)
	}
	if resp.Degraded {
		output.Line("%s", output.Warn("Trigger cap crossed; controller reports degraded"))
	}
	return nil
}

func executeImprove(cfg *config.Config) (*output.ImproveResponse, error) {
	logger := slog.Default()

	store, err := openArchive(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	controller, err := adaptive.NewController(cfg.Constraints,
		adaptive.WithLogger(logger),
		adaptive.WithTriggerCap(cfg.TriggerCap),
		adaptive.WithStuckConfig(cfg.Stuck.Detector()),
		adaptive.WithImprovementSink(func(event adaptive.ImprovementEvent) {
			if err := store.SaveImprovementEvent(event); err != nil {
				logger.Warn("archiving improvement event failed", slog.String("error", err.Error()))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("building controller: %w", err)
	}

	summary := controller.TriggerSelfImprovement()

	names := make([]string, 0, len(summary.StrategiesApplied))
	for _, applied := range summary.StrategiesApplied {
		names = append(names, applied.Name)
	}
	return &output.ImproveResponse{
		TimestampedResponse: output.NewTimestamped(),
		TriggerCount:        summary.TriggerCount,
		StrategiesApplied:   names,
		Degraded:            summary.Degraded,
	}, nil
}
