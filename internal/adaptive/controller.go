package adaptive

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Error kinds recorded on failed operation results.
const (
	KindOperationFailure = "operation_failure"
	KindTimeout          = "timeout"
	KindStrategyFailure  = "strategy_failure"
)

// HistoryWindow caps the rolling operation-result history.
const HistoryWindow = 50

// DefaultTriggerCap bounds adaptationTriggerCount before the controller
// reports a degraded state.
const DefaultTriggerCap = 25

// strategiesPerTrigger is how many strategies one self-improvement round
// samples from the catalog.
const strategiesPerTrigger = 3

// Operation is a unit of work guarded by the controller.
type Operation func(ctx context.Context) error

// OperationResult is the controller's verdict on one wrapped call.
// Failures are absorbed here; callers never see an error from Wrap.
type OperationResult struct {
	Operation           string    `json:"operation"`
	Success             bool      `json:"success"`
	ResponseTimeSeconds float64   `json:"response_time_seconds"`
	ErrorKind           string    `json:"error_kind,omitempty"`
	Error               string    `json:"error,omitempty"`
	Timestamp           time.Time `json:"timestamp"`

	// ImprovementApplied reports whether this call tripped the stuck
	// detector and ran self-improvement before returning.
	ImprovementApplied bool                `json:"improvement_applied"`
	Improvement        *ImprovementSummary `json:"improvement,omitempty"`
}

// AppliedStrategy records one strategy applied during self-improvement.
type AppliedStrategy struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ImprovementEvent is the append-only record of one self-improvement
// round, immutable once written.
type ImprovementEvent struct {
	Timestamp           time.Time         `json:"timestamp"`
	StrategiesApplied   []AppliedStrategy `json:"strategies_applied"`
	ConstraintsSnapshot Constraints       `json:"constraints_snapshot"`
}

// ImprovementSummary is returned from TriggerSelfImprovement.
type ImprovementSummary struct {
	TriggerTimestamp  time.Time         `json:"trigger_timestamp"`
	TriggerCount      int               `json:"trigger_count"`
	StrategiesApplied []AppliedStrategy `json:"strategies_applied"`
	Constraints       Constraints       `json:"new_resource_constraints"`
	Degraded          bool              `json:"degraded"`
}

// errorPattern aggregates failures per operation and kind.
type errorPattern struct {
	Count     int       `json:"count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Narrator receives fire-and-forget improvement checkpoints.
type Narrator interface {
	Notify(text, eventType string)
}

// Controller wraps operation execution with rolling health tracking and
// stuck-state recovery. Constraints and stuck state are shared across
// call sites behind a single mutex.
type Controller struct {
	mu sync.Mutex

	constraints Constraints
	state       StuckState
	history     []OperationResult
	patterns    map[string]*errorPattern
	events      []ImprovementEvent

	detector *StuckDetector
	catalog  *Catalog
	rng      *rand.Rand
	entities EntityCounter
	narrator Narrator
	onEvent  func(ImprovementEvent)

	triggerCap int
	degraded   bool

	currentOp       string
	status          string
	errorCount      int
	successCount    int
	adaptationCount int

	logger *slog.Logger
	now    func() time.Time
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// WithClock overrides the controller clock.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// WithSeed seeds the strategy-sampling generator for deterministic runs.
func WithSeed(seed int64) ControllerOption {
	return func(c *Controller) { c.rng = rand.New(rand.NewSource(seed)) }
}

// WithCatalog replaces the default strategy catalog.
func WithCatalog(catalog *Catalog) ControllerOption {
	return func(c *Controller) { c.catalog = catalog }
}

// WithStuckConfig overrides the stuck-detection thresholds.
func WithStuckConfig(config StuckConfig) ControllerOption {
	return func(c *Controller) { c.detector = NewStuckDetector(config, nil) }
}

// WithEntityCounter attaches the optional entity-count collaborator.
func WithEntityCounter(e EntityCounter) ControllerOption {
	return func(c *Controller) { c.entities = e }
}

// WithNarrator attaches a narration sink for improvement checkpoints.
func WithNarrator(n Narrator) ControllerOption {
	return func(c *Controller) { c.narrator = n }
}

// WithTriggerCap overrides the adaptation trigger cap.
func WithTriggerCap(n int) ControllerOption {
	return func(c *Controller) { c.triggerCap = n }
}

// WithImprovementSink registers a callback invoked with every
// ImprovementEvent, e.g. for archival.
func WithImprovementSink(fn func(ImprovementEvent)) ControllerOption {
	return func(c *Controller) { c.onEvent = fn }
}

// NewController builds a controller owning the given constraints.
func NewController(constraints Constraints, opts ...ControllerOption) (*Controller, error) {
	if err := constraints.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		constraints: constraints,
		patterns:    make(map[string]*errorPattern),
		catalog:     DefaultCatalog(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		triggerCap:  DefaultTriggerCap,
		status:      "initializing",
		logger:      slog.Default(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.detector == nil {
		c.detector = NewStuckDetector(DefaultStuckConfig(), c.now)
	}
	c.state.LastSuccessTime = c.now()
	return c, nil
}

// Wrap runs op under the configured timeout, records the outcome in the
// rolling history, updates stuck state, and runs self-improvement
// synchronously when the detector fires. The error from op is absorbed
// into the result and never returned.
func (c *Controller) Wrap(ctx context.Context, name string, op Operation) OperationResult {
	c.mu.Lock()
	timeout := time.Duration(c.constraints.TimeoutSeconds) * time.Second
	c.currentOp = name
	c.status = "running"
	c.mu.Unlock()

	c.logger.Debug("operation starting", slog.String("operation", name))

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := c.now()
	done := make(chan error, 1)
	go func() {
		done <- op(opCtx)
	}()

	var opErr error
	kind := ""
	select {
	case opErr = <-done:
		if opErr != nil {
			kind = KindOperationFailure
			if errors.Is(opErr, context.DeadlineExceeded) {
				kind = KindTimeout
			}
		}
	case <-opCtx.Done():
		// The operation is abandoned; its goroutine drains into the
		// buffered channel whenever it finishes.
		opErr = opCtx.Err()
		kind = KindOperationFailure
		if errors.Is(opErr, context.DeadlineExceeded) {
			kind = KindTimeout
		}
	}

	result := OperationResult{
		Operation:           name,
		Success:             opErr == nil,
		ResponseTimeSeconds: c.now().Sub(start).Seconds(),
		Timestamp:           c.now(),
	}
	if opErr != nil {
		result.ErrorKind = kind
		result.Error = opErr.Error()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.recordLocked(&result)

	decision := c.detector.Evaluate(c.state, c.history, result, c.constraints.TimeoutSeconds)
	if decision.Stuck {
		c.logger.Warn("stuck state detected",
			slog.String("operation", name),
			slog.Any("reasons", decision.Reasons),
		)
		summary := c.improveLocked()
		result.ImprovementApplied = true
		result.Improvement = &summary
		// Patch the history copy so the archive sees the improvement.
		c.history[len(c.history)-1] = result
	}

	c.currentOp = ""
	c.status = statusFor(performanceScore(c.history, c.constraints.TimeoutSeconds))

	if result.Success {
		c.logger.Debug("operation complete",
			slog.String("operation", name),
			slog.Float64("response_time", result.ResponseTimeSeconds),
		)
	} else {
		c.logger.Warn("operation failed",
			slog.String("operation", name),
			slog.String("error_kind", result.ErrorKind),
			slog.String("error", result.Error),
		)
	}
	return result
}

// recordLocked appends a result to the rolling history and updates the
// stuck state and error patterns. Caller holds the mutex.
func (c *Controller) recordLocked(result *OperationResult) {
	c.history = append(c.history, *result)
	c.pruneHistoryLocked()

	if result.Success {
		c.state.ConsecutiveFailures = 0
		c.state.LastSuccessTime = result.Timestamp
		c.successCount++
		return
	}

	c.state.ConsecutiveFailures++
	c.errorCount++

	key := result.Operation + "_" + result.ErrorKind
	p, ok := c.patterns[key]
	if !ok {
		p = &errorPattern{FirstSeen: result.Timestamp}
		c.patterns[key] = p
	}
	p.Count++
	p.LastSeen = result.Timestamp
}

// TriggerSelfImprovement runs one self-improvement round on demand,
// regardless of the detector's verdict.
func (c *Controller) TriggerSelfImprovement() ImprovementSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.improveLocked()
}

// improveLocked samples strategies from the catalog, applies them,
// resets the stuck counters and appends one ImprovementEvent. Caller
// holds the mutex.
func (c *Controller) improveLocked() ImprovementSummary {
	c.state.AdaptationTriggerCount++
	c.adaptationCount++

	if c.state.AdaptationTriggerCount > c.triggerCap && !c.degraded {
		c.degraded = true
		c.logger.Error("adaptation trigger cap crossed, reporting degraded state",
			slog.Int("triggers", c.state.AdaptationTriggerCount),
			slog.Int("cap", c.triggerCap),
		)
	}

	now := c.now()
	sc := &StrategyContext{
		Constraints:   &c.constraints,
		PruneHistory:  c.pruneHistoryLocked,
		PrunePatterns: c.prunePatternsLocked,
		Entities:      c.entities,
		Now:           now,
	}

	var applied []AppliedStrategy
	for _, i := range c.rng.Perm(c.catalog.Len())[:min(strategiesPerTrigger, c.catalog.Len())] {
		strategy := c.catalog.at(i)
		outcome, err := strategy.Apply(sc)
		if err != nil {
			// A failed strategy is skipped, it never aborts the round.
			c.logger.Warn("strategy failed",
				slog.String("strategy", strategy.Name),
				slog.String("error_kind", KindStrategyFailure),
				slog.String("error", err.Error()),
			)
			continue
		}
		applied = append(applied, AppliedStrategy{Name: strategy.Name, Description: outcome})
		c.logger.Info("strategy applied",
			slog.String("strategy", strategy.Name),
			slog.String("outcome", outcome),
		)
	}

	c.state.ConsecutiveFailures = 0
	c.state.DegradationCount = 0

	event := ImprovementEvent{
		Timestamp:           now,
		StrategiesApplied:   applied,
		ConstraintsSnapshot: c.constraints,
	}
	c.events = append(c.events, event)
	if c.onEvent != nil {
		c.onEvent(event)
	}
	if c.narrator != nil {
		c.narrator.Notify("Self-improvement cycle complete. Operating envelope retuned.", "adaptation")
	}

	return ImprovementSummary{
		TriggerTimestamp:  now,
		TriggerCount:      c.state.AdaptationTriggerCount,
		StrategiesApplied: applied,
		Constraints:       c.constraints,
		Degraded:          c.degraded,
	}
}

// pruneHistoryLocked trims the rolling history to HistoryWindow entries.
func (c *Controller) pruneHistoryLocked() {
	if overflow := len(c.history) - HistoryWindow; overflow > 0 {
		c.history = c.history[overflow:]
	}
}

// prunePatternsLocked drops error patterns last seen before cutoff.
func (c *Controller) prunePatternsLocked(cutoff time.Time) {
	for key, p := range c.patterns {
		if p.LastSeen.Before(cutoff) {
			delete(c.patterns, key)
		}
	}
}

// GetDashboardState returns a read-only snapshot of the controller's
// health for monitoring.
func (c *Controller) GetDashboardState() DashboardState {
	c.mu.Lock()
	defer c.mu.Unlock()

	score := performanceScore(c.history, c.constraints.TimeoutSeconds)

	trendLen := min(len(c.history), scoreWindow)
	trend := make([]float64, 0, trendLen)
	for _, r := range c.history[len(c.history)-trendLen:] {
		if r.Success {
			trend = append(trend, 1)
		} else {
			trend = append(trend, 0)
		}
	}

	// Most recently seen error patterns first.
	keys := make([]string, 0, len(c.patterns))
	for key := range c.patterns {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.patterns[keys[i]].LastSeen.After(c.patterns[keys[j]].LastSeen)
	})
	if len(keys) > 5 {
		keys = keys[:5]
	}

	return DashboardState{
		Status:           statusFor(score),
		CurrentOperation: c.currentOp,
		ErrorCount:       c.errorCount,
		SuccessCount:     c.successCount,
		AdaptationCount:  c.adaptationCount,
		PerformanceScore: score,
		Degraded:         c.degraded,
		Constraints:      c.constraints,
		Stuck:            c.state,
		RecentErrors:     keys,
		PerformanceTrend: trend,
		MemoryUsedMB:     sampleMemoryMB(c.logger),
	}
}

// ConstraintsSnapshot returns a copy of the live constraints.
func (c *Controller) ConstraintsSnapshot() Constraints {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.constraints
}

// Events returns a copy of the improvement event log.
func (c *Controller) Events() []ImprovementEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ImprovementEvent, len(c.events))
	copy(out, c.events)
	return out
}

// History returns a copy of the rolling operation history.
func (c *Controller) History() []OperationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]OperationResult, len(c.history))
	copy(out, c.history)
	return out
}
