package engine

// Directions is the fixed list of evolution directions. A cycle picks
// its direction cyclically by (index-1) mod len(Directions).
var Directions = []string{
	"Deeper quantum coherence required",
	"Evolutionary pressure increasing",
	"System complexity emerging",
	"Innovation paradigm shifting",
	"Memory patterns crystallizing",
	"Multi-dimensional convergence accelerating",
}

// refinements maps each direction to the template producing the next
// cycle's problem statement.
var refinements = map[string]string{
	"Deeper quantum coherence required":          "How can we achieve quantum coherence in {problem}?",
	"Evolutionary pressure increasing":           "What adaptive solutions emerge for {problem}?",
	"System complexity emerging":                 "How do we architect complex systems for {problem}?",
	"Innovation paradigm shifting":               "What paradigm shifts enable breakthrough in {problem}?",
	"Memory patterns crystallizing":              "What historical patterns illuminate {problem}?",
	"Multi-dimensional convergence accelerating": "How do multiple dimensions converge on {problem}?",
}

// DirectionFor returns the evolution direction for a 1-based cycle index.
func DirectionFor(cycleIndex int) string {
	return Directions[(cycleIndex-1)%len(Directions)]
}

// RefineProblem restates the problem for the next cycle according to the
// chosen direction. Unknown directions fall back to a generic evolved
// restatement.
func RefineProblem(direction, problem string) string {
	template, ok := refinements[direction]
	if !ok {
		return "Evolved perspective on " + problem
	}
	return expand(template, problem, "", 0)
}
