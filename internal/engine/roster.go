package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Agent describes one analysis agent in the roster. Perspectives are
// templated per depth level and rendered against the current problem
// statement; DeepAnalysis is the agent's long-form template. Templates
// may reference {problem}, {insight} and {cycle} placeholders.
type Agent struct {
	// Name uniquely identifies the agent within a roster.
	Name string `json:"name" yaml:"name" toml:"name"`

	// Expertise is a short free-form description of the agent's domain.
	Expertise string `json:"expertise" yaml:"expertise" toml:"expertise"`

	// Perspectives maps depth level (1..MaxDepth) to an insight template.
	// Cycles beyond MaxDepth reuse the deepest level.
	Perspectives map[int]string `json:"perspectives" yaml:"perspectives" toml:"perspectives"`

	// DeepAnalysis is the long-form analysis template.
	DeepAnalysis string `json:"deep_analysis" yaml:"deep_analysis" toml:"deep_analysis"`
}

// MaxDepth is the deepest perspective level an agent distinguishes.
// Cycles past this depth keep producing the deepest perspective.
const MaxDepth = 4

// PerspectiveFor returns the agent's insight template for the given
// cycle, clamped to MaxDepth. Falls back to level 1 when the clamped
// level is missing.
func (a *Agent) PerspectiveFor(cycle int) string {
	depth := cycle
	if depth > MaxDepth {
		depth = MaxDepth
	}
	if p, ok := a.Perspectives[depth]; ok {
		return p
	}
	return a.Perspectives[1]
}

// Roster is an ordered, validated collection of agents.
type Roster struct {
	agents []Agent
	byName map[string]int
}

// NewRoster builds a roster from the given agents, validating each entry.
func NewRoster(agents []Agent) (*Roster, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("roster: no agents defined")
	}

	r := &Roster{
		agents: make([]Agent, 0, len(agents)),
		byName: make(map[string]int, len(agents)),
	}
	for i, a := range agents {
		if strings.TrimSpace(a.Name) == "" {
			return nil, fmt.Errorf("roster: agent %d has empty name", i)
		}
		if _, dup := r.byName[a.Name]; dup {
			return nil, fmt.Errorf("roster: duplicate agent name %q", a.Name)
		}
		if len(a.Perspectives) == 0 {
			return nil, fmt.Errorf("roster: agent %q has no perspectives", a.Name)
		}
		if _, ok := a.Perspectives[1]; !ok {
			return nil, fmt.Errorf("roster: agent %q missing level-1 perspective", a.Name)
		}
		r.byName[a.Name] = len(r.agents)
		r.agents = append(r.agents, a)
	}
	return r, nil
}

// Agents returns the roster entries in order.
func (r *Roster) Agents() []Agent {
	return r.agents
}

// Len returns the number of agents in the roster.
func (r *Roster) Len() int {
	return len(r.agents)
}

// Get returns the agent with the given name.
func (r *Roster) Get(name string) (Agent, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Agent{}, false
	}
	return r.agents[i], true
}

// rosterFile is the on-disk shape of a roster override file.
type rosterFile struct {
	Agents []agentSpec `yaml:"agents" toml:"agents"`
}

// agentSpec mirrors Agent but keys perspectives by string so both YAML
// and TOML decode cleanly.
type agentSpec struct {
	Name         string            `yaml:"name" toml:"name"`
	Expertise    string            `yaml:"expertise" toml:"expertise"`
	Perspectives map[string]string `yaml:"perspectives" toml:"perspectives"`
	DeepAnalysis string            `yaml:"deep_analysis" toml:"deep_analysis"`
}

// LoadRosterFile reads a roster definition from a YAML or TOML file and
// validates it. The format is chosen by file extension.
func LoadRosterFile(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("roster: read %s: %w", path, err)
	}

	var file rosterFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("roster: parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("roster: parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("roster: unsupported roster format %q", ext)
	}

	agents := make([]Agent, 0, len(file.Agents))
	for _, spec := range file.Agents {
		perspectives := make(map[int]string, len(spec.Perspectives))
		for k, v := range spec.Perspectives {
			level, err := strconv.Atoi(k)
			if err != nil || level < 1 || level > MaxDepth {
				return nil, fmt.Errorf("roster: agent %q has invalid perspective level %q", spec.Name, k)
			}
			perspectives[level] = v
		}
		agents = append(agents, Agent{
			Name:         spec.Name,
			Expertise:    spec.Expertise,
			Perspectives: perspectives,
			DeepAnalysis: spec.DeepAnalysis,
		})
	}
	return NewRoster(agents)
}

// DefaultRoster returns the built-in five-agent analysis roster.
func DefaultRoster() *Roster {
	r, err := NewRoster(defaultAgents)
	if err != nil {
		// The built-in table is static; a validation failure here is a
		// programming error.
		panic(err)
	}
	return r
}

var defaultAgents = []Agent{
	{
		Name:      "Quantum Theorist",
		Expertise: "quantum mechanics, parallel realities",
		Perspectives: map[int]string{
			1: "Examining quantum nature of {problem} - multiple solution states exist simultaneously",
			2: "Deeper quantum analysis: {problem} exhibits observer-dependent reality collapse",
			3: "Quantum breakthrough: {problem} requires consciousness-mediated wavefunction collapse",
			4: "Advanced quantum insight: {problem} solution exists in non-local entangled states",
		},
		DeepAnalysis: "From quantum perspective: {insight}. This suggests the solution space contains parallel probability branches where {problem} is simultaneously solved and unsolved. The breakthrough occurs when we collapse the wavefunction through conscious observation and choice. Cycle {cycle} indicates we're approaching quantum coherence in the solution manifold.",
	},
	{
		Name:      "Evolutionary Biologist",
		Expertise: "adaptation, emergence, natural selection",
		Perspectives: map[int]string{
			1: "Initial evolutionary scan: {problem} represents adaptive fitness challenge",
			2: "Evolutionary deepening: {problem} creates selection pressure for novel solutions",
			3: "Evolutionary breakthrough: {problem} enables symbiotic co-evolutionary dynamics",
			4: "Advanced evolution: {problem} transcends individual fitness toward collective intelligence",
		},
		DeepAnalysis: "Evolutionary analysis: {insight}. The problem represents an adaptive challenge where {problem} creates selection pressure for innovative solutions. Current cycle {cycle} shows mutation and selection are generating increasingly fit solution variants. Breakthrough occurs when solution crosses fitness threshold.",
	},
	{
		Name:      "Systems Architect",
		Expertise: "complex systems, integration patterns",
		Perspectives: map[int]string{
			1: "System analysis: {problem} requires distributed, modular architecture",
			2: "Architectural evolution: {problem} demands adaptive, self-organizing system design",
			3: "System breakthrough: {problem} enables emergent, consciousness-integrated architecture",
			4: "Advanced architecture: {problem} manifests as living, evolving system organism",
		},
		DeepAnalysis: "Systems perspective: {insight}. The architecture for {problem} requires distributed, resilient design patterns. Cycle {cycle} reveals system boundaries are becoming clearer. Integration points and interfaces are crystallizing toward breakthrough configuration.",
	},
	{
		Name:      "Innovation Catalyst",
		Expertise: "breakthrough thinking, paradigm shifts",
		Perspectives: map[int]string{
			1: "Innovation scan: {problem} indicates paradigm boundary condition",
			2: "Creative deepening: {problem} requires transcending conventional constraints",
			3: "Innovation breakthrough: {problem} opens entirely new possibility spaces",
			4: "Transcendent innovation: {problem} catalyzes fundamental reality transformation",
		},
		DeepAnalysis: "Innovation analysis: {insight}. {problem} represents paradigm boundary condition. Cycle {cycle} shows we're transcending conventional solution constraints. Breakthrough emerges through creative constraint dissolution and reframe synthesis.",
	},
	{
		Name:      "Memory Oracle",
		Expertise: "pattern recognition, historical insights",
		Perspectives: map[int]string{
			1: "Memory pattern analysis: {problem} echoes historical solution archetypes",
			2: "Deep memory synthesis: {problem} connects to collective unconscious patterns",
			3: "Memory breakthrough: {problem} accesses trans-temporal solution wisdom",
			4: "Oracle consciousness: {problem} reveals timeless, eternal solution principles",
		},
		DeepAnalysis: "Memory synthesis: {insight}. Historical patterns show {problem} is recurring archetype. Cycle {cycle} activates collective memory of solution evolution. Breakthrough occurs when we access deep pattern recognition beyond conscious analysis.",
	},
}

// expand substitutes the {problem}, {insight} and {cycle} placeholders
// in a template.
func expand(template, problem, insight string, cycle int) string {
	return strings.NewReplacer(
		"{problem}", problem,
		"{insight}", insight,
		"{cycle}", strconv.Itoa(cycle),
	).Replace(template)
}
