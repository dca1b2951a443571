package engine

import (
	"math/rand"
	"sync"
)

// PotentialCap is the hard upper bound on any cycle's potential score.
const PotentialCap = 0.95

// RandSource supplies the random draws used by scoring and agent
// contribution. Tests inject a fixed sequence; production wiring uses
// NewRandSource.
type RandSource interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

// lockedSource wraps a math/rand generator behind a mutex so it can be
// shared across the per-cycle agent fan-out.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// NewRandSource returns a concurrency-safe random source seeded with the
// given seed.
func NewRandSource(seed int64) RandSource {
	return &lockedSource{rng: rand.New(rand.NewSource(seed))}
}

// Scorer computes a cycle's breakthrough potential.
type Scorer struct {
	rng RandSource
}

// NewScorer builds a scorer drawing jitter from rng.
func NewScorer(rng RandSource) *Scorer {
	return &Scorer{rng: rng}
}

// Score computes the potential for a cycle:
//
//	min(PotentialCap, base + connections + progression + depth + coherence + jitter)
//
// where base rewards agent count, connections rewards cross-links,
// progression and depth reward later cycles, coherence rewards synthesis
// length, and jitter is a small uniform draw in [0, 0.08).
func (s *Scorer) Score(c *Cycle) float64 {
	base := float64(len(c.AgentOutputs)) * 0.05
	connections := float64(len(c.CrossLinks)) * 0.01

	progression := float64(c.Index) * 0.12
	if progression > 0.4 {
		progression = 0.4
	}

	depth := depthBonus(c.Index)

	coherence := float64(len(c.Synthesis)) / 2000
	if coherence > 0.15 {
		coherence = 0.15
	}

	jitter := s.rng.Float64() * 0.08

	potential := base + connections + progression + depth + coherence + jitter
	if potential > PotentialCap {
		potential = PotentialCap
	}
	return potential
}

// depthBonus rewards analysis depth in later cycles.
func depthBonus(cycleIndex int) float64 {
	switch {
	case cycleIndex >= 4:
		return 0.2
	case cycleIndex == 3:
		return 0.12
	case cycleIndex == 2:
		return 0.05
	default:
		return 0
	}
}

// contribution computes an agent's breakthrough contribution for a
// cycle. The base grows with the cycle index and the draw is capped so
// no single agent dominates.
func contribution(cycle int, rng RandSource) float64 {
	base := 0.1 + float64(cycle)*0.05
	c := base + rng.Float64()*0.2
	if c > 0.8 {
		c = 0.8
	}
	return c
}
