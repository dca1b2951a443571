package engine

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

type recordingNarrator struct {
	events []string
}

func (r *recordingNarrator) Notify(text, eventType string) {
	r.events = append(r.events, eventType+": "+text)
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	}
}

func testOrchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock())}, opts...)
	return NewOrchestrator(DefaultRoster(), zeroSource(), opts...)
}

func TestPursueHighThresholdExhausts(t *testing.T) {
	t.Parallel()

	// The cap is 0.95, so 0.999 can never be reached.
	o := testOrchestrator(t)
	session, err := o.Pursue(context.Background(), "X", 1, 0.999)
	if err != nil {
		t.Fatalf("Pursue() error: %v", err)
	}
	if session.Achieved {
		t.Error("Achieved = true, want false")
	}
	if len(session.Cycles) != 1 {
		t.Errorf("len(Cycles) = %d, want 1", len(session.Cycles))
	}
	if session.FinalCycle != nil {
		t.Error("FinalCycle != nil on exhaustion")
	}
	if session.Plan != nil || session.ActionableInsights != nil {
		t.Error("artifacts attached to an exhausted session")
	}
}

func TestPursueLowThresholdAchievesAtCycleOne(t *testing.T) {
	t.Parallel()

	o := testOrchestrator(t)
	session, err := o.Pursue(context.Background(), "X", 10, 0.01)
	if err != nil {
		t.Fatalf("Pursue() error: %v", err)
	}
	if !session.Achieved {
		t.Fatal("Achieved = false, want true")
	}
	if len(session.Cycles) != 1 {
		t.Errorf("len(Cycles) = %d, want 1", len(session.Cycles))
	}
	if session.FinalCycle == nil || session.FinalCycle.Index != 1 {
		t.Errorf("FinalCycle = %+v, want index 1", session.FinalCycle)
	}
	if len(session.ActionableInsights) != 4 {
		t.Errorf("len(ActionableInsights) = %d, want 4", len(session.ActionableInsights))
	}
	if session.Plan == nil || len(session.Plan.Phases) != 3 {
		t.Errorf("Plan = %+v, want 3 phases", session.Plan)
	}
}

func TestPursueCycleIndicesStrictlyIncreasing(t *testing.T) {
	t.Parallel()

	o := testOrchestrator(t)
	session, err := o.Pursue(context.Background(), "X", 5, 0.999)
	if err != nil {
		t.Fatalf("Pursue() error: %v", err)
	}
	for i, c := range session.Cycles {
		if c.Index != i+1 {
			t.Errorf("Cycles[%d].Index = %d, want %d", i, c.Index, i+1)
		}
		if c.Potential < 0 || c.Potential > PotentialCap {
			t.Errorf("Cycles[%d].Potential = %v, out of [0, %v]", i, c.Potential, PotentialCap)
		}
		if len(c.AgentOutputs) != 5 {
			t.Errorf("Cycles[%d] has %d agent outputs, want 5", i, len(c.AgentOutputs))
		}
		// 5 agents: 10 pairwise links plus 2 higher-order links.
		if len(c.CrossLinks) != 12 {
			t.Errorf("Cycles[%d] has %d cross links, want 12", i, len(c.CrossLinks))
		}
	}
}

func TestPursueRefinesProblemBetweenCycles(t *testing.T) {
	t.Parallel()

	o := testOrchestrator(t)
	session, err := o.Pursue(context.Background(), "scaling search", 3, 0.999)
	if err != nil {
		t.Fatalf("Pursue() error: %v", err)
	}

	if session.Cycles[0].ProblemStatement != "scaling search" {
		t.Errorf("cycle 1 problem = %q", session.Cycles[0].ProblemStatement)
	}
	want := "How can we achieve quantum coherence in scaling search?"
	if session.Cycles[1].ProblemStatement != want {
		t.Errorf("cycle 2 problem = %q, want %q", session.Cycles[1].ProblemStatement, want)
	}
	if session.Cycles[0].Direction != "Deeper quantum coherence required" {
		t.Errorf("cycle 1 direction = %q", session.Cycles[0].Direction)
	}
}

func TestPursueValidation(t *testing.T) {
	t.Parallel()

	o := testOrchestrator(t)
	if _, err := o.Pursue(context.Background(), "", 1, 0.5); err == nil {
		t.Error("Pursue(empty problem) error = nil, want error")
	}
	if _, err := o.Pursue(context.Background(), "X", 1, 1.5); err == nil {
		t.Error("Pursue(threshold 1.5) error = nil, want error")
	}
}

func TestPursueDefaults(t *testing.T) {
	t.Parallel()

	o := testOrchestrator(t)
	session, err := o.Pursue(context.Background(), "X", 0, 0.999)
	if err != nil {
		t.Fatalf("Pursue() error: %v", err)
	}
	if len(session.Cycles) != DefaultMaxCycles {
		t.Errorf("len(Cycles) = %d, want default %d", len(session.Cycles), DefaultMaxCycles)
	}
}

func TestPursueCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := testOrchestrator(t)
	session, err := o.Pursue(ctx, "X", 5, 0.999)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Pursue() error = %v, want context.Canceled", err)
	}
	if session == nil {
		t.Fatal("Pursue() session = nil, want partial session")
	}
	if len(session.Cycles) != 0 {
		t.Errorf("len(Cycles) = %d, want 0 for pre-cancelled context", len(session.Cycles))
	}
}

func TestPursueNarrationCheckpoints(t *testing.T) {
	t.Parallel()

	narrator := &recordingNarrator{}
	o := testOrchestrator(t, WithNarrator(narrator))

	if _, err := o.Pursue(context.Background(), "X", 10, 0.01); err != nil {
		t.Fatalf("Pursue() error: %v", err)
	}

	// init, cycle start, success.
	if len(narrator.events) != 3 {
		t.Fatalf("narration events = %d, want 3: %v", len(narrator.events), narrator.events)
	}
	if narrator.events[0][:10] != "evolution:" {
		t.Errorf("first event = %q, want evolution kickoff", narrator.events[0])
	}
}

func TestSessionJSONRoundTrip(t *testing.T) {
	t.Parallel()

	o := testOrchestrator(t)
	session, err := o.Pursue(context.Background(), "scaling search", 10, 0.01)
	if err != nil {
		t.Fatalf("Pursue() error: %v", err)
	}

	blob, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded Session
	if err := json.Unmarshal(blob, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if !reflect.DeepEqual(*session, decoded) {
		t.Errorf("round trip mismatch:\n got: %+v\nwant: %+v", decoded, *session)
	}
}

func TestGeneratePlanTruncatesLongTitles(t *testing.T) {
	t.Parallel()

	long := make([]byte, 120)
	for i := range long {
		long[i] = 'p'
	}
	plan := GeneratePlan(&Session{Problem: string(long)})
	if len(plan.Title) > len("Manifestation Plan: ")+53 {
		t.Errorf("plan title not truncated: %q", plan.Title)
	}
}
