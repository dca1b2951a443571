package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/templetwo/breakthrough/internal/adaptive"
	"github.com/templetwo/breakthrough/internal/config"
	"github.com/templetwo/breakthrough/internal/engine"
	"github.com/templetwo/breakthrough/internal/narrate"
	"github.com/templetwo/breakthrough/internal/output"
)

func newPursueCmd() *cobra.Command {
	var opts pursueOptions

	cmd := &cobra.Command{
		Use:   "pursue <problem>",
		Short: "Run refinement cycles against a problem until breakthrough",
		Long: `Run the agent roster through refinement cycles against a problem
statement. Each cycle fans the analysis out across the roster,
cross-pollinates the outputs, scores the breakthrough potential and,
below the threshold, evolves the problem along the next dimension.

On success the session carries actionable insights and a phased
manifestation plan. Exhausting the cycle budget is a normal outcome,
not an error.

Examples:
  bkt pursue "reduce cold-start latency in the ingest pipeline"
  bkt pursue "unify the billing schemas" --cycles 5 --threshold 0.9
  bkt pursue "cut index rebuild time" --narrate --seed 42
  bkt pursue "simplify deploy rollbacks" --json --no-archive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Narration defaults on for interactive runs.
			if !cmd.Flags().Changed("narrate") {
				opts.Narrate = isInteractive()
			}
			return runPursue(args[0], opts, jsonOutput)
		},
	}

	cmd.Flags().IntVar(&opts.Cycles, "cycles", 0, "Cycle budget (default from config)")
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", 0, "Potential threshold in (0, 1] (default from config)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "Random seed for reproducible scoring (0 = time-based)")
	cmd.Flags().BoolVar(&opts.Narrate, "narrate", false, "Log narration checkpoints during the pursuit")
	cmd.Flags().BoolVar(&opts.NoArchive, "no-archive", false, "Skip archiving the session")
	return cmd
}

type pursueOptions struct {
	Cycles    int
	Threshold float64
	Seed      int64
	Narrate   bool
	NoArchive bool
}

func runPursue(problem string, opts pursueOptions, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return outputError(err, jsonOutput)
	}

	resp, session, err := executePursue(context.Background(), cfg, problem, opts)
	if err != nil {
		return outputError(err, jsonOutput)
	}

	if jsonOutput {
		return output.PrintJSON(resp)
	}
	renderSession(resp, session)
	return nil
}

// executePursue wires the engine behind the adaptive controller and runs
// one pursuit. The controller absorbs operation failures; only setup
// problems surface as errors.
func executePursue(ctx context.Context, cfg *config.Config, problem string, opts pursueOptions) (*output.PursueResponse, *engine.Session, error) {
	if opts.Cycles <= 0 {
		opts.Cycles = cfg.Engine.MaxCycles
	}
	if opts.Threshold <= 0 {
		opts.Threshold = cfg.Engine.Threshold
	}
	seed := opts.Seed
	if seed == 0 {
		seed = cfg.Engine.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger := slog.Default()

	roster := engine.DefaultRoster()
	if cfg.RosterFile != "" {
		var err error
		roster, err = engine.LoadRosterFile(config.ExpandTilde(cfg.RosterFile))
		if err != nil {
			return nil, nil, fmt.Errorf("loading roster: %w", err)
		}
	}

	var store archiveSink
	if !opts.NoArchive {
		s, err := openArchive(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		defer s.Close()
		store = s
	}

	var narrator narrate.Sink
	if opts.Narrate {
		narrator = narrate.LogSink{Logger: logger}
	}

	ctrlOpts := []adaptive.ControllerOption{
		adaptive.WithLogger(logger),
		adaptive.WithSeed(seed),
		adaptive.WithTriggerCap(cfg.TriggerCap),
		adaptive.WithStuckConfig(cfg.Stuck.Detector()),
	}
	if narrator != nil {
		ctrlOpts = append(ctrlOpts, adaptive.WithNarrator(narrator))
	}
	if store != nil {
		ctrlOpts = append(ctrlOpts, adaptive.WithImprovementSink(func(event adaptive.ImprovementEvent) {
			if err := store.SaveImprovementEvent(event); err != nil {
				logger.Warn("archiving improvement event failed", slog.String("error", err.Error()))
			}
		}))
	}
	controller, err := adaptive.NewController(cfg.Constraints, ctrlOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("building controller: %w", err)
	}

	engOpts := []engine.Option{engine.WithLogger(logger)}
	if narrator != nil {
		engOpts = append(engOpts, engine.WithNarrator(narrator))
	}
	orch := engine.NewOrchestrator(roster, engine.NewRandSource(seed), engOpts...)

	var session *engine.Session
	result := controller.Wrap(ctx, "pursue_breakthrough", func(ctx context.Context) error {
		s, err := orch.Pursue(ctx, problem, opts.Cycles, opts.Threshold)
		session = s
		return err
	})
	if session == nil {
		return nil, nil, fmt.Errorf("pursuit failed: %s", result.Error)
	}

	resp := &output.PursueResponse{
		TimestampedResponse: output.NewTimestamped(),
		Problem:             problem,
		Achieved:            session.Achieved,
		CyclesCompleted:     session.CyclesCompleted(),
		FinalPotential:      finalPotential(session),
		DurationSeconds:     session.Duration().Seconds(),
	}
	if store != nil {
		id, err := store.SaveSession(session)
		if err != nil {
			return nil, nil, fmt.Errorf("archiving session: %w", err)
		}
		resp.ArchiveID = id
	}
	return resp, session, nil
}

// archiveSink is the slice of the archive store executePursue needs.
type archiveSink interface {
	SaveSession(session *engine.Session) (int64, error)
	SaveImprovementEvent(event adaptive.ImprovementEvent) error
	Close() error
}

func finalPotential(s *engine.Session) float64 {
	if s.FinalCycle != nil {
		return s.FinalCycle.Potential
	}
	if n := len(s.Cycles); n > 0 {
		return s.Cycles[n-1].Potential
	}
	return 0
}

func renderSession(resp *output.PursueResponse, session *engine.Session) {
	if resp.Achieved {
		output.Line("%s after %d cycle(s), potential %.3f",
			output.Good("Breakthrough achieved"), resp.CyclesCompleted, resp.FinalPotential)
	} else {
		output.Line("%s after %d cycle(s), best potential %.3f",
			output.Warn("Cycle budget exhausted"), resp.CyclesCompleted, resp.FinalPotential)
	}

	for _, c := range session.Cycles {
		marker := " "
		if session.FinalCycle != nil && c.Index == session.FinalCycle.Index {
			marker = "*"
		}
		output.Line("%s cycle %d  potential %.3f  %s", marker, c.Index, c.Potential, output.Dim(c.Direction))
	}

	if len(session.ActionableInsights) > 0 {
		output.Line("")
		output.Line("%s", output.Title("Actionable insights"))
		for _, ins := range session.ActionableInsights {
			output.Line("  [%s/%s] %s (%s)", ins.Category, ins.Priority, ins.Insight, ins.Timeline)
		}
	}
	if session.Plan != nil {
		output.Line("")
		output.Line("%s", output.Title(session.Plan.Title))
		for i, phase := range session.Plan.Phases {
			output.Line("  Phase %d: %s (%s)", i+1, phase.Name, phase.Duration)
			for _, obj := range phase.Objectives {
				output.Line("    - %s", obj)
			}
		}
	}
	if resp.ArchiveID != 0 {
		output.Line("")
		output.Line("%s", output.Dim(fmt.Sprintf("Archived as session %d", resp.ArchiveID)))
	}
}
