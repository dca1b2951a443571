// Package adaptive implements the self-tuning execution controller: it
// wraps arbitrary operations, tracks a rolling health window, detects
// stuck states and recovers by applying bounded constraint-tightening
// strategies.
package adaptive

import "fmt"

// ModelPreference selects the model tier operations should favor.
type ModelPreference string

const (
	// ModelLightweight is the normal operating tier.
	ModelLightweight ModelPreference = "lightweight"

	// ModelUltralight is the degraded fallback tier.
	ModelUltralight ModelPreference = "ultralight"
)

// Constraint floors. Strategies tighten constraints toward these values
// and never cross them, so repeated application converges.
const (
	MinPromptLength   = 500
	MinMemoryLimitMB  = 256
	MinTimeoutSeconds = 15
	MinConcurrentOps  = 1
)

// Constraints is the tunable operating envelope shared by all wrapped
// operations. A single instance is owned by the Controller; only
// strategies and explicit configuration write to it.
type Constraints struct {
	// MaxPromptLength caps prompt size in characters.
	MaxPromptLength int `json:"max_prompt_length" toml:"max_prompt_length"`

	// TimeoutSeconds is the per-operation wall-clock budget.
	TimeoutSeconds int `json:"timeout_seconds" toml:"timeout_seconds"`

	// MaxConcurrentOps caps parallel operation fan-out.
	MaxConcurrentOps int `json:"max_concurrent_operations" toml:"max_concurrent_operations"`

	// MemoryLimitMB is the working-set budget in megabytes.
	MemoryLimitMB int `json:"memory_limit_mb" toml:"memory_limit_mb"`

	// ModelPreference is the preferred model tier.
	ModelPreference ModelPreference `json:"model_preference" toml:"model_preference"`
}

// DefaultConstraints returns the conservative starting envelope.
func DefaultConstraints() Constraints {
	return Constraints{
		MaxPromptLength:  2000,
		TimeoutSeconds:   30,
		MaxConcurrentOps: 3,
		MemoryLimitMB:    512,
		ModelPreference:  ModelLightweight,
	}
}

// Validate checks that every field sits at or above its floor.
func (c Constraints) Validate() error {
	if c.MaxPromptLength < MinPromptLength {
		return fmt.Errorf("constraints: max_prompt_length %d below floor %d", c.MaxPromptLength, MinPromptLength)
	}
	if c.TimeoutSeconds < MinTimeoutSeconds {
		return fmt.Errorf("constraints: timeout_seconds %d below floor %d", c.TimeoutSeconds, MinTimeoutSeconds)
	}
	if c.MaxConcurrentOps < MinConcurrentOps {
		return fmt.Errorf("constraints: max_concurrent_operations %d below floor %d", c.MaxConcurrentOps, MinConcurrentOps)
	}
	if c.MemoryLimitMB < MinMemoryLimitMB {
		return fmt.Errorf("constraints: memory_limit_mb %d below floor %d", c.MemoryLimitMB, MinMemoryLimitMB)
	}
	switch c.ModelPreference {
	case ModelLightweight, ModelUltralight:
	default:
		return fmt.Errorf("constraints: unknown model preference %q", c.ModelPreference)
	}
	return nil
}
