package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultRoster(t *testing.T) {
	t.Parallel()

	r := DefaultRoster()
	if r.Len() != 5 {
		t.Fatalf("DefaultRoster().Len() = %d, want 5", r.Len())
	}

	wantOrder := []string{
		"Quantum Theorist",
		"Evolutionary Biologist",
		"Systems Architect",
		"Innovation Catalyst",
		"Memory Oracle",
	}
	for i, a := range r.Agents() {
		if a.Name != wantOrder[i] {
			t.Errorf("agent[%d] = %q, want %q", i, a.Name, wantOrder[i])
		}
		for level := 1; level <= MaxDepth; level++ {
			if a.Perspectives[level] == "" {
				t.Errorf("agent %q missing perspective level %d", a.Name, level)
			}
		}
	}
}

func TestPerspectiveForClampsToMaxDepth(t *testing.T) {
	t.Parallel()

	agent, ok := DefaultRoster().Get("Quantum Theorist")
	if !ok {
		t.Fatal("Quantum Theorist not in default roster")
	}

	deepest := agent.PerspectiveFor(MaxDepth)
	for _, cycle := range []int{5, 7, 100} {
		if got := agent.PerspectiveFor(cycle); got != deepest {
			t.Errorf("PerspectiveFor(%d) = %q, want deepest level %q", cycle, got, deepest)
		}
	}
}

func TestNewRosterValidation(t *testing.T) {
	t.Parallel()

	valid := Agent{
		Name:         "Analyst",
		Expertise:    "analysis",
		Perspectives: map[int]string{1: "looking at {problem}"},
	}

	tests := []struct {
		name    string
		agents  []Agent
		wantErr string
	}{
		{"empty roster", nil, "no agents"},
		{"empty name", []Agent{{Perspectives: map[int]string{1: "x"}}}, "empty name"},
		{"duplicate name", []Agent{valid, valid}, "duplicate"},
		{"no perspectives", []Agent{{Name: "A"}}, "no perspectives"},
		{"missing level one", []Agent{{Name: "A", Perspectives: map[int]string{2: "x"}}}, "level-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRoster(tt.agents)
			if err == nil {
				t.Fatal("NewRoster() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewRoster() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}

	if _, err := NewRoster([]Agent{valid}); err != nil {
		t.Errorf("NewRoster(valid) error = %v", err)
	}
}

func TestLoadRosterFileYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "roster.yaml")
	content := `agents:
  - name: Skeptic
    expertise: falsification
    perspectives:
      "1": "Challenging assumptions behind {problem}"
      "2": "Stress-testing {problem} under adversarial framing"
    deep_analysis: "Skeptical view: {insight} at cycle {cycle}"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	r, err := LoadRosterFile(path)
	if err != nil {
		t.Fatalf("LoadRosterFile() error: %v", err)
	}
	agent, ok := r.Get("Skeptic")
	if !ok {
		t.Fatal("Skeptic not loaded")
	}
	if agent.Perspectives[2] != "Stress-testing {problem} under adversarial framing" {
		t.Errorf("perspective 2 = %q", agent.Perspectives[2])
	}
}

func TestLoadRosterFileTOML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "roster.toml")
	content := `[[agents]]
name = "Skeptic"
expertise = "falsification"
deep_analysis = "Skeptical view: {insight}"

[agents.perspectives]
1 = "Challenging assumptions behind {problem}"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	r, err := LoadRosterFile(path)
	if err != nil {
		t.Fatalf("LoadRosterFile() error: %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestLoadRosterFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if _, err := LoadRosterFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadRosterFile(missing) error = nil, want error")
	}

	bad := filepath.Join(dir, "roster.json")
	if err := os.WriteFile(bad, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if _, err := LoadRosterFile(bad); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("LoadRosterFile(.json) error = %v, want unsupported format", err)
	}

	badLevel := filepath.Join(dir, "roster.yaml")
	content := `agents:
  - name: Skeptic
    perspectives:
      "9": "too deep"
`
	if err := os.WriteFile(badLevel, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if _, err := LoadRosterFile(badLevel); err == nil || !strings.Contains(err.Error(), "invalid perspective level") {
		t.Errorf("LoadRosterFile(bad level) error = %v, want invalid level", err)
	}
}
