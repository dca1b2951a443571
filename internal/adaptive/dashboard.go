package adaptive

import (
	"log/slog"

	"github.com/shirou/gopsutil/v4/mem"
)

// Dashboard status buckets derived from the performance score.
const (
	StatusExcellent        = "excellent"
	StatusGood             = "good"
	StatusModerate         = "moderate"
	StatusNeedsImprovement = "needs-improvement"
)

// scoreWindow is how many trailing results feed the performance score.
const scoreWindow = 10

// DashboardState is a read-only snapshot of the controller's health.
type DashboardState struct {
	// Status is the current bucket: excellent, good, moderate or
	// needs-improvement.
	Status string `json:"status"`

	// CurrentOperation names the operation in flight, empty when idle.
	CurrentOperation string `json:"current_operation,omitempty"`

	// ErrorCount and SuccessCount are lifetime totals.
	ErrorCount   int `json:"error_count"`
	SuccessCount int `json:"success_count"`

	// AdaptationCount is how many self-improvement rounds have run.
	AdaptationCount int `json:"adaptation_count"`

	// PerformanceScore is the blended health score in [0, 1].
	PerformanceScore float64 `json:"performance_score"`

	// Degraded reports that the adaptation trigger cap was crossed.
	Degraded bool `json:"degraded"`

	// Constraints is a copy of the live operating envelope.
	Constraints Constraints `json:"resource_constraints"`

	// Stuck is a copy of the stuck-detection state.
	Stuck StuckState `json:"stuck_detection"`

	// RecentErrors lists the most recent error-pattern keys.
	RecentErrors []string `json:"recent_errors,omitempty"`

	// PerformanceTrend is the trailing success-flag sequence.
	PerformanceTrend []float64 `json:"performance_trend,omitempty"`

	// MemoryUsedMB is the host's current memory usage, zero when
	// sampling is unavailable.
	MemoryUsedMB uint64 `json:"memory_used_mb"`
}

// performanceScore blends the trailing success rate with a response-time
// score:
//
//	0.7*meanSuccess(last 10) + 0.3*max(0, 1 - meanResponseTime/(2*timeout))
//
// An empty history scores the documented defaults: success 0.5 and a
// mean response time equal to the timeout.
func performanceScore(history []OperationResult, timeoutSeconds int) float64 {
	meanSuccess := 0.5
	meanTime := float64(timeoutSeconds)

	if len(history) > 0 {
		recent := history
		if len(recent) > scoreWindow {
			recent = recent[len(recent)-scoreWindow:]
		}
		var successes, total float64
		for _, r := range recent {
			if r.Success {
				successes++
			}
			total += r.ResponseTimeSeconds
		}
		meanSuccess = successes / float64(len(recent))
		meanTime = total / float64(len(recent))
	}

	timeScore := 1 - meanTime/float64(2*timeoutSeconds)
	if timeScore < 0 {
		timeScore = 0
	}
	return meanSuccess*0.7 + timeScore*0.3
}

// statusFor maps a performance score to its bucket.
func statusFor(score float64) string {
	switch {
	case score >= 0.8:
		return StatusExcellent
	case score >= 0.6:
		return StatusGood
	case score >= 0.4:
		return StatusModerate
	default:
		return StatusNeedsImprovement
	}
}

// sampleMemoryMB reads the host's used memory via gopsutil. Returns zero
// when the platform does not support sampling.
func sampleMemoryMB(logger *slog.Logger) uint64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		logger.Debug("memory sampling unavailable", slog.String("error", err.Error()))
		return 0
	}
	return vm.Used / (1024 * 1024)
}
