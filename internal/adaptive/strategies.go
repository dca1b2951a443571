package adaptive

import (
	"fmt"
	"time"
)

// EntityCounter is the optional collaborator consulted by the
// restructure_agent_interaction strategy. A nil counter is not an error.
type EntityCounter interface {
	// ActiveEntityCount reports how many entities are currently active.
	ActiveEntityCount() int

	// DeactivateEntities asks for up to n entities to be deactivated and
	// returns how many actually were.
	DeactivateEntities(n int) int
}

// StrategyContext exposes the controller internals a strategy is allowed
// to touch while self-improvement runs.
type StrategyContext struct {
	// Constraints is the live operating envelope.
	Constraints *Constraints

	// PruneHistory trims the rolling result window to its cap.
	PruneHistory func()

	// PrunePatterns drops error-pattern entries last seen before cutoff.
	PrunePatterns func(cutoff time.Time)

	// Entities is the optional entity-count collaborator, may be nil.
	Entities EntityCounter

	// Now is the evaluation time.
	Now time.Time
}

// StrategyFunc applies one improvement strategy and describes its effect.
type StrategyFunc func(sc *StrategyContext) (string, error)

// Strategy is one named self-improvement action. Each strategy tightens
// a single constraint toward a safer operating point, bounded by a floor.
type Strategy struct {
	Name        string
	Description string
	Apply       StrategyFunc
}

// Catalog is the enumerable table of improvement strategies. New
// strategies register without any controller changes.
type Catalog struct {
	strategies []Strategy
	byName     map[string]int
}

// NewCatalog builds a catalog from the given strategies.
func NewCatalog(strategies []Strategy) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int, len(strategies))}
	for _, s := range strategies {
		if err := c.Register(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register appends a strategy to the catalog.
func (c *Catalog) Register(s Strategy) error {
	if s.Name == "" {
		return fmt.Errorf("catalog: strategy with empty name")
	}
	if s.Apply == nil {
		return fmt.Errorf("catalog: strategy %q has no apply function", s.Name)
	}
	if _, dup := c.byName[s.Name]; dup {
		return fmt.Errorf("catalog: duplicate strategy %q", s.Name)
	}
	c.byName[s.Name] = len(c.strategies)
	c.strategies = append(c.strategies, s)
	return nil
}

// Len returns the number of registered strategies.
func (c *Catalog) Len() int {
	return len(c.strategies)
}

// Get returns the strategy with the given name.
func (c *Catalog) Get(name string) (Strategy, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Strategy{}, false
	}
	return c.strategies[i], true
}

// Names lists the registered strategy names in order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name
	}
	return names
}

// at returns the strategy at index i.
func (c *Catalog) at(i int) Strategy {
	return c.strategies[i]
}

// DefaultCatalog returns the built-in strategy table.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultStrategies())
	if err != nil {
		// The built-in table is static; a failure here is a programming
		// error.
		panic(err)
	}
	return c
}

func defaultStrategies() []Strategy {
	return []Strategy{
		{
			Name:        "simplify_prompts",
			Description: "reduce prompt complexity",
			Apply: func(sc *StrategyContext) (string, error) {
				sc.Constraints.MaxPromptLength = lowered(sc.Constraints.MaxPromptLength, 200, MinPromptLength)
				return fmt.Sprintf("simplified prompts to %d chars max", sc.Constraints.MaxPromptLength), nil
			},
		},
		{
			Name:        "reduce_context_size",
			Description: "limit context for better performance",
			Apply: func(sc *StrategyContext) (string, error) {
				sc.Constraints.MemoryLimitMB = lowered(sc.Constraints.MemoryLimitMB, 64, MinMemoryLimitMB)
				return fmt.Sprintf("reduced memory limit to %dMB", sc.Constraints.MemoryLimitMB), nil
			},
		},
		{
			Name:        "adjust_timeout_values",
			Description: "tighten timeout for better reliability",
			Apply: func(sc *StrategyContext) (string, error) {
				sc.Constraints.TimeoutSeconds = lowered(sc.Constraints.TimeoutSeconds, 5, MinTimeoutSeconds)
				return fmt.Sprintf("adjusted timeout to %ds", sc.Constraints.TimeoutSeconds), nil
			},
		},
		{
			Name:        "modify_analysis_depth",
			Description: "reduce analysis parallelism",
			Apply: func(sc *StrategyContext) (string, error) {
				sc.Constraints.MaxConcurrentOps = lowered(sc.Constraints.MaxConcurrentOps, 1, MinConcurrentOps)
				return fmt.Sprintf("limited concurrent operations to %d", sc.Constraints.MaxConcurrentOps), nil
			},
		},
		{
			Name:        "enable_fallback_modes",
			Description: "switch to the ultralight model tier",
			Apply: func(sc *StrategyContext) (string, error) {
				sc.Constraints.ModelPreference = ModelUltralight
				return "enabled ultralight model fallback mode", nil
			},
		},
		{
			Name:        "optimize_memory_usage",
			Description: "drop stale tracking data",
			Apply: func(sc *StrategyContext) (string, error) {
				sc.PruneHistory()
				sc.PrunePatterns(sc.Now.Add(-time.Hour))
				return "optimized memory usage by cleaning old performance data", nil
			},
		},
		{
			Name:        "restructure_agent_interaction",
			Description: "simplify agent interactions",
			Apply: func(sc *StrategyContext) (string, error) {
				if sc.Entities == nil || sc.Entities.ActiveEntityCount() <= 3 {
					return "agent interaction already optimal", nil
				}
				n := sc.Entities.DeactivateEntities(2)
				return fmt.Sprintf("simplified agent interactions by deactivating %d entities", n), nil
			},
		},
	}
}

// lowered decrements v by step without crossing the floor.
func lowered(v, step, floor int) int {
	v -= step
	if v < floor {
		return floor
	}
	return v
}
