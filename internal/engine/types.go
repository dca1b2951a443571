// Package engine implements the iterative breakthrough refinement loop:
// a fixed roster of analysis agents is run over successive cycles, their
// outputs are cross-pollinated and scored, and the problem statement is
// refined between cycles until the potential score crosses a threshold
// or the cycle budget is exhausted.
package engine

import "time"

// Session is the complete record of one breakthrough pursuit. It is
// created at orchestration start, mutated only by the Orchestrator, and
// immutable once returned.
type Session struct {
	// Problem is the original problem statement as submitted.
	Problem string `json:"problem"`

	// StartTime is when the pursuit began (UTC).
	StartTime time.Time `json:"start_time"`

	// EndTime is when the pursuit finished (UTC).
	EndTime time.Time `json:"end_time"`

	// Cycles holds every refinement cycle in order, including the
	// final one on success.
	Cycles []Cycle `json:"cycles"`

	// FinalCycle is the cycle that crossed the threshold, nil when the
	// budget was exhausted first.
	FinalCycle *Cycle `json:"final_cycle,omitempty"`

	// Achieved reports whether the potential threshold was reached.
	Achieved bool `json:"achieved"`

	// ActionableInsights is populated on success only.
	ActionableInsights []Insight `json:"actionable_insights,omitempty"`

	// Plan is the phased manifestation plan, populated on success only.
	Plan *Plan `json:"plan,omitempty"`
}

// CyclesCompleted returns the number of cycles the session ran.
func (s *Session) CyclesCompleted() int {
	if s == nil {
		return 0
	}
	return len(s.Cycles)
}

// Duration returns the wall-clock duration of the session.
func (s *Session) Duration() time.Duration {
	if s == nil || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Cycle is one round of the refinement loop. Created once per iteration
// and never mutated after creation.
type Cycle struct {
	// Index is 1-based and strictly increasing within a session.
	Index int `json:"index"`

	// ProblemStatement is the (possibly refined) problem this cycle
	// analyzed.
	ProblemStatement string `json:"problem_statement"`

	// AgentOutputs holds one output per roster agent, in roster order.
	// Agent names are unique within a cycle.
	AgentOutputs []AgentOutput `json:"agent_outputs"`

	// CrossLinks are the pairwise and higher-order connection
	// descriptions built from the agent outputs.
	CrossLinks []string `json:"cross_links"`

	// Synthesis is the textual summary of the cycle. Its length feeds
	// the coherence term of the score.
	Synthesis string `json:"synthesis"`

	// Potential is the breakthrough potential score, always in [0, 0.95].
	Potential float64 `json:"potential"`

	// Direction is the evolution direction chosen for the next
	// refinement, empty on the final successful cycle.
	Direction string `json:"direction,omitempty"`
}

// AgentOutput is the product of one agent's analysis within a cycle.
// Immutable once produced.
type AgentOutput struct {
	AgentName    string  `json:"agent_name"`
	Expertise    string  `json:"expertise"`
	Insight      string  `json:"insight"`
	DeepAnalysis string  `json:"deep_analysis"`
	Contribution float64 `json:"contribution"`
}

// Insight is a single actionable insight attached to a successful session.
type Insight struct {
	Category string `json:"category"`
	Insight  string `json:"insight"`
	Priority string `json:"priority"`
	Timeline string `json:"timeline"`
}

// Plan is the phased manifestation plan produced on success.
type Plan struct {
	Title          string           `json:"title"`
	Phases         []PlanPhase      `json:"phases"`
	SuccessMetrics []string         `json:"success_metrics"`
	Risks          []RiskMitigation `json:"risks"`
}

// PlanPhase is one ordered phase of a Plan.
type PlanPhase struct {
	Name         string   `json:"name"`
	Duration     string   `json:"duration"`
	Objectives   []string `json:"objectives"`
	Deliverables []string `json:"deliverables"`
}

// RiskMitigation pairs a named risk with its mitigation.
type RiskMitigation struct {
	Risk       string `json:"risk"`
	Mitigation string `json:"mitigation"`
}
