package adaptive

import (
	"fmt"
	"time"
)

// StuckState is the rolling health condition the detector evaluates.
// A single mutable instance is owned by the Controller and updated
// after every operation result.
type StuckState struct {
	// ConsecutiveFailures counts failures since the last success.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// DegradationCount tracks performance-degradation observations,
	// reset by self-improvement.
	DegradationCount int `json:"degradation_count"`

	// LastSuccessTime is when an operation last succeeded.
	LastSuccessTime time.Time `json:"last_success_time"`

	// AdaptationTriggerCount counts how often self-improvement fired.
	AdaptationTriggerCount int `json:"adaptation_trigger_count"`
}

// StuckConfig holds the detector thresholds.
type StuckConfig struct {
	// MaxConsecutiveFailures triggers when this many failures occur in
	// a row.
	MaxConsecutiveFailures int `json:"max_consecutive_failures" toml:"max_consecutive_failures"`

	// SuccessDrought triggers when no operation has succeeded for this
	// long.
	SuccessDrought time.Duration `json:"success_drought" toml:"success_drought"`

	// MinRecentSuccessMean triggers when the mean of the last
	// RecentWindow success flags falls below this value.
	MinRecentSuccessMean float64 `json:"min_recent_success_mean" toml:"min_recent_success_mean"`

	// RecentWindow is how many trailing results the success-mean
	// indicator considers.
	RecentWindow int `json:"recent_window" toml:"recent_window"`
}

// DefaultStuckConfig returns the standard thresholds.
func DefaultStuckConfig() StuckConfig {
	return StuckConfig{
		MaxConsecutiveFailures: 3,
		SuccessDrought:         5 * time.Minute,
		MinRecentSuccessMean:   0.3,
		RecentWindow:           3,
	}
}

// StuckDecision is the detector's verdict with the indicators that fired.
type StuckDecision struct {
	Stuck   bool     `json:"stuck"`
	Reasons []string `json:"reasons,omitempty"`
}

// StuckDetector evaluates the four stuck indicators against the rolling
// history. The clock is injected for deterministic tests.
type StuckDetector struct {
	config StuckConfig
	now    func() time.Time
}

// NewStuckDetector builds a detector. Zero config fields take defaults;
// a nil clock uses time.Now.
func NewStuckDetector(config StuckConfig, now func() time.Time) *StuckDetector {
	def := DefaultStuckConfig()
	if config.MaxConsecutiveFailures <= 0 {
		config.MaxConsecutiveFailures = def.MaxConsecutiveFailures
	}
	if config.SuccessDrought <= 0 {
		config.SuccessDrought = def.SuccessDrought
	}
	if config.MinRecentSuccessMean <= 0 {
		config.MinRecentSuccessMean = def.MinRecentSuccessMean
	}
	if config.RecentWindow <= 0 {
		config.RecentWindow = def.RecentWindow
	}
	if now == nil {
		now = time.Now
	}
	return &StuckDetector{config: config, now: now}
}

// Evaluate checks whether the system is stuck. Any single indicator is
// sufficient:
//
//  1. too many consecutive failures
//  2. too long since the last success
//  3. recent success mean below the floor
//  4. latest response time above twice the configured timeout
func (d *StuckDetector) Evaluate(state StuckState, history []OperationResult, latest OperationResult, timeoutSeconds int) StuckDecision {
	var reasons []string

	if state.ConsecutiveFailures >= d.config.MaxConsecutiveFailures {
		reasons = append(reasons, fmt.Sprintf("%d consecutive failures", state.ConsecutiveFailures))
	}

	if !state.LastSuccessTime.IsZero() {
		if drought := d.now().Sub(state.LastSuccessTime); drought > d.config.SuccessDrought {
			reasons = append(reasons, fmt.Sprintf("no success for %s", drought.Round(time.Second)))
		}
	}

	if len(history) >= d.config.RecentWindow {
		recent := history[len(history)-d.config.RecentWindow:]
		sum := 0.0
		for _, r := range recent {
			if r.Success {
				sum++
			}
		}
		if mean := sum / float64(d.config.RecentWindow); mean < d.config.MinRecentSuccessMean {
			reasons = append(reasons, fmt.Sprintf("recent success mean %.2f below %.2f", mean, d.config.MinRecentSuccessMean))
		}
	}

	if latest.ResponseTimeSeconds > float64(2*timeoutSeconds) {
		reasons = append(reasons, fmt.Sprintf("latest response time %.1fs exceeds 2x timeout", latest.ResponseTimeSeconds))
	}

	return StuckDecision{Stuck: len(reasons) > 0, Reasons: reasons}
}
