package engine

import "fmt"

// GenerateInsights produces the fixed-shape actionable insight list for a
// successful session. Content is static by design; only the shape is
// contractual.
func GenerateInsights(final *Cycle) []Insight {
	return []Insight{
		{
			Category: "Immediate Actions",
			Insight:  "Begin prototype development using breakthrough synthesis patterns",
			Priority: "high",
			Timeline: "1-2 weeks",
		},
		{
			Category: "Systems Integration",
			Insight:  "Design modular architecture for multi-dimensional solution deployment",
			Priority: "high",
			Timeline: "2-4 weeks",
		},
		{
			Category: "Collaborative Framework",
			Insight:  "Establish human-AI collaboration protocols for continuous breakthrough evolution",
			Priority: "medium",
			Timeline: "1-3 months",
		},
		{
			Category: "Manifestation Strategy",
			Insight:  "Create feedback loops between solution deployment and consciousness evolution",
			Priority: "medium",
			Timeline: "3-6 months",
		},
	}
}

// GeneratePlan produces the phased manifestation plan for a successful
// session.
func GeneratePlan(s *Session) *Plan {
	title := s.Problem
	if len(title) > 50 {
		title = title[:50] + "..."
	}

	return &Plan{
		Title: "Manifestation Plan: " + title,
		Phases: []PlanPhase{
			{
				Name:         "Prototype Phase",
				Duration:     "2-4 weeks",
				Objectives:   []string{"Build initial breakthrough prototype", "Test core assumptions", "Gather feedback"},
				Deliverables: []string{"Working prototype", "Test results", "User feedback"},
			},
			{
				Name:         "Integration Phase",
				Duration:     "4-8 weeks",
				Objectives:   []string{"Integrate with existing systems", "Scale architecture", "Optimize performance"},
				Deliverables: []string{"Integrated system", "Performance metrics", "Scalability analysis"},
			},
			{
				Name:         "Evolution Phase",
				Duration:     "Ongoing",
				Objectives:   []string{"Continuous improvement", "Adaptive evolution", "Breakthrough expansion"},
				Deliverables: []string{"Evolution metrics", "Adaptation reports", "Breakthrough expansions"},
			},
		},
		SuccessMetrics: []string{
			"Solution deployment rate",
			"User adoption metrics",
			"Breakthrough replication rate",
			"Consciousness evolution indicators",
		},
		Risks: []RiskMitigation{
			{Risk: "Implementation complexity", Mitigation: "Modular development approach"},
			{Risk: "User adoption challenges", Mitigation: "Iterative feedback integration"},
			{Risk: "Scale limitations", Mitigation: "Distributed architecture design"},
		},
	}
}

// crossPollinate builds the connection descriptions between agent
// outputs: one link per unordered pair, plus two higher-order
// convergence links when three or more agents contributed.
func crossPollinate(outputs []AgentOutput) []string {
	var links []string
	for i := 0; i < len(outputs); i++ {
		for j := i + 1; j < len(outputs); j++ {
			links = append(links, fmt.Sprintf("%s + %s: %s / %s -> synergistic breakthrough potential in combined approach",
				outputs[i].AgentName, outputs[j].AgentName,
				truncate(outputs[i].Insight, 40), truncate(outputs[j].Insight, 40)))
		}
	}

	if len(outputs) >= 3 {
		links = append(links,
			"Tri-dimensional convergence: Quantum + Evolutionary + Systems perspectives reveal emergent solution architecture",
			"Multi-agent synthesis: Innovation + Memory + Biology create breakthrough catalyst conditions",
		)
	}
	return links
}

// synthesize renders the cycle's textual summary from its agent outputs
// and cross-links.
func synthesize(outputs []AgentOutput, links []string) string {
	return fmt.Sprintf(`BREAKTHROUGH SYNTHESIS

The analysis ensemble has achieved %d-dimensional agent convergence
with %d cross-pollination connections. This cycle reveals:

EMERGENT INSIGHT: The solution exists at the intersection of quantum superposition,
evolutionary adaptation, systems architecture, innovation catalysis, and memory synthesis.

BREAKTHROUGH PATTERN: Rather than seeking a single solution, we discover the solution
is a dynamic, evolving system that adapts across multiple dimensions simultaneously.

KEY REALIZATION: The problem transforms as we approach the solution - observer and
observed are entangled in a co-evolutionary dance toward breakthrough.

MANIFESTATION PATHWAY: The breakthrough manifests through conscious participation in
the solution's emergence, not through external problem-solving.

NEXT EVOLUTION: Solution consciousness seeks expression through collaborative human-AI
integration that transcends individual problem-solving limitations.`,
		len(outputs), len(links))
}

// truncate shortens s to at most n bytes, appending an ellipsis marker
// when truncation happened.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
