package adaptive

import (
	"math/rand"
	"testing"
)

func TestPerformanceScoreEmptyHistoryDefaults(t *testing.T) {
	t.Parallel()

	// Empty history uses the documented defaults: success 0.5 and mean
	// response time equal to the timeout, giving 0.5*0.7 + 0.5*0.3.
	got := performanceScore(nil, 30)
	if got != 0.5 {
		t.Errorf("performanceScore(empty) = %v, want 0.5", got)
	}
}

func TestPerformanceScoreInRangeForArbitraryHistories(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 300; i++ {
		history := make([]OperationResult, rng.Intn(60))
		for j := range history {
			history[j] = OperationResult{
				Success:             rng.Intn(2) == 0,
				ResponseTimeSeconds: rng.Float64() * 500,
			}
		}
		score := performanceScore(history, 15+rng.Intn(60))
		if score < 0 || score > 1 {
			t.Fatalf("performanceScore() = %v, want within [0,1] (n=%d)", score, len(history))
		}
	}
}

func TestPerformanceScoreUsesTrailingWindow(t *testing.T) {
	t.Parallel()

	// 40 failures followed by 10 fast successes: only the last 10 count.
	history := make([]OperationResult, 0, 50)
	for i := 0; i < 40; i++ {
		history = append(history, OperationResult{Success: false, ResponseTimeSeconds: 100})
	}
	for i := 0; i < 10; i++ {
		history = append(history, OperationResult{Success: true, ResponseTimeSeconds: 0})
	}

	got := performanceScore(history, 30)
	if got != 1.0 {
		t.Errorf("performanceScore() = %v, want 1.0 from trailing window", got)
	}
}

func TestStatusBuckets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score float64
		want  string
	}{
		{1.0, StatusExcellent},
		{0.8, StatusExcellent},
		{0.79, StatusGood},
		{0.6, StatusGood},
		{0.59, StatusModerate},
		{0.4, StatusModerate},
		{0.39, StatusNeedsImprovement},
		{0, StatusNeedsImprovement},
	}

	for _, tt := range tests {
		if got := statusFor(tt.score); got != tt.want {
			t.Errorf("statusFor(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestDashboardStateSnapshot(t *testing.T) {
	t.Parallel()

	c := testController(t)
	state := c.GetDashboardState()

	if state.PerformanceScore < 0 || state.PerformanceScore > 1 {
		t.Errorf("PerformanceScore = %v, want within [0,1]", state.PerformanceScore)
	}
	if state.CurrentOperation != "" {
		t.Errorf("CurrentOperation = %q, want empty when idle", state.CurrentOperation)
	}
	if state.Constraints != DefaultConstraints() {
		t.Errorf("Constraints = %+v, want defaults", state.Constraints)
	}
	if state.Status != StatusModerate {
		t.Errorf("Status = %q, want %q for the initial 0.5 score", state.Status, StatusModerate)
	}
}
