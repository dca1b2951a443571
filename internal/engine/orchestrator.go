package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Default pursuit parameters, used when the caller passes zero values.
const (
	DefaultMaxCycles = 10
	DefaultThreshold = 0.85
)

// Narrator receives fire-and-forget narration checkpoints. Implementations
// must never block; the orchestrator does not check for errors.
type Narrator interface {
	Notify(text, eventType string)
}

// Orchestrator drives breakthrough pursuits over a fixed agent roster.
type Orchestrator struct {
	roster   *Roster
	scorer   *Scorer
	rng      RandSource
	narrator Narrator
	logger   *slog.Logger

	// fanout bounds the number of concurrent agent dives per cycle.
	fanout int

	// now is the clock, injectable for tests.
	now func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNarrator attaches a narration sink.
func WithNarrator(n Narrator) Option {
	return func(o *Orchestrator) { o.narrator = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithFanout bounds concurrent agent invocations per cycle. Values below
// one disable the bound.
func WithFanout(n int) Option {
	return func(o *Orchestrator) { o.fanout = n }
}

// WithClock overrides the orchestrator clock.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator builds an orchestrator over the given roster, drawing
// randomness for scoring and contributions from rng.
func NewOrchestrator(roster *Roster, rng RandSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		roster: roster,
		scorer: NewScorer(rng),
		rng:    rng,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Pursue runs refinement cycles against problem until the potential
// score reaches threshold or maxCycles is exhausted. Zero maxCycles or
// threshold select the defaults. Exhaustion is a normal outcome: the
// returned session has Achieved=false and err is nil. A non-nil error is
// returned only for invalid input or context cancellation between
// cycles; the partial session accumulated so far accompanies a
// cancellation error.
func (o *Orchestrator) Pursue(ctx context.Context, problem string, maxCycles int, threshold float64) (*Session, error) {
	if problem == "" {
		return nil, fmt.Errorf("pursue: empty problem")
	}
	if maxCycles <= 0 {
		maxCycles = DefaultMaxCycles
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if threshold > 1 {
		return nil, fmt.Errorf("pursue: threshold %v out of range (0,1]", threshold)
	}

	session := &Session{
		Problem:   problem,
		StartTime: o.now(),
	}

	o.notify("Initiating breakthrough flow. Problem space loading into multidimensional analysis matrix.", "evolution")
	o.logger.Info("pursuit started",
		slog.String("problem", problem),
		slog.Int("max_cycles", maxCycles),
		slog.Float64("threshold", threshold),
	)

	current := problem
	for index := 1; index <= maxCycles; index++ {
		if err := ctx.Err(); err != nil {
			session.EndTime = o.now()
			return session, fmt.Errorf("pursue: aborted before cycle %d: %w", index, err)
		}

		o.notify(fmt.Sprintf("Cycle %d: analysis engines converging on solution space", index), "dimensional")

		cycle := o.runCycle(ctx, current, index)

		o.logger.Info("cycle complete",
			slog.Int("cycle", index),
			slog.Float64("potential", cycle.Potential),
		)

		if cycle.Potential >= threshold {
			cycle.Direction = ""
			session.Cycles = append(session.Cycles, cycle)
			final := session.Cycles[len(session.Cycles)-1]
			session.FinalCycle = &final
			session.Achieved = true
			session.ActionableInsights = GenerateInsights(session.FinalCycle)
			session.Plan = GeneratePlan(session)
			session.EndTime = o.now()

			o.notify("Breakthrough threshold exceeded. Synthesis complete. Manifestation protocols activating.", "evolution")
			o.logger.Info("breakthrough achieved",
				slog.Int("cycles", len(session.Cycles)),
				slog.Float64("potential", cycle.Potential),
			)
			return session, nil
		}

		current = RefineProblem(cycle.Direction, current)
		session.Cycles = append(session.Cycles, cycle)

		o.notify("Refinement cycle complete. Problem space evolving toward higher dimensional solutions.", "memory")
		o.logger.Debug("problem refined",
			slog.Int("cycle", index),
			slog.String("direction", cycle.Direction),
			slog.String("next_problem", current),
		)
	}

	session.EndTime = o.now()
	o.notify("Breakthrough cycles complete. Evolution continues toward threshold breakthrough.", "memory")
	o.logger.Info("pursuit exhausted",
		slog.Int("cycles", len(session.Cycles)),
		slog.Float64("threshold", threshold),
	)
	return session, nil
}

// runCycle executes one refinement cycle: fan out the roster agents,
// join, cross-pollinate, synthesize, score, pick direction.
func (o *Orchestrator) runCycle(ctx context.Context, problem string, index int) Cycle {
	agents := o.roster.Agents()
	outputs := make([]AgentOutput, len(agents))

	g, _ := errgroup.WithContext(ctx)
	if o.fanout > 0 {
		g.SetLimit(o.fanout)
	}
	for i, agent := range agents {
		i, agent := i, agent
		g.Go(func() error {
			outputs[i] = o.dive(agent, problem, index)
			return nil
		})
	}
	// Agent dives cannot fail; the join is the only synchronization
	// point inside a cycle.
	_ = g.Wait()

	links := crossPollinate(outputs)

	cycle := Cycle{
		Index:            index,
		ProblemStatement: problem,
		AgentOutputs:     outputs,
		CrossLinks:       links,
		Synthesis:        synthesize(outputs, links),
	}
	cycle.Potential = o.scorer.Score(&cycle)
	cycle.Direction = DirectionFor(index)
	return cycle
}

// dive produces one agent's output for the cycle.
func (o *Orchestrator) dive(agent Agent, problem string, cycle int) AgentOutput {
	insight := expand(agent.PerspectiveFor(cycle), problem, "", cycle)
	analysis := expand(agent.DeepAnalysis, problem, insight, cycle)
	if analysis == "" {
		analysis = "Deep analysis: " + insight
	}
	return AgentOutput{
		AgentName:    agent.Name,
		Expertise:    agent.Expertise,
		Insight:      insight,
		DeepAnalysis: analysis,
		Contribution: contribution(cycle, o.rng),
	}
}

// notify forwards a checkpoint to the narrator when one is attached.
func (o *Orchestrator) notify(text, eventType string) {
	if o.narrator == nil {
		return
	}
	o.narrator.Notify(text, eventType)
}
