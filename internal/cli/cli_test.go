package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/templetwo/breakthrough/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.ArchivePath = filepath.Join(t.TempDir(), "bkt.db")
	cfg.Engine.Seed = 1
	return cfg
}

func TestRootCommandTree(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	want := []string{"pursue", "status", "improve", "serve", "archive"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command missing subcommand %q", name)
		}
	}

	if root.PersistentFlags().Lookup("json") == nil {
		t.Error("root command missing --json flag")
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("root command missing --config flag")
	}
}

func TestExecutePursueAchieves(t *testing.T) {
	cfg := testConfig(t)

	resp, session, err := executePursue(context.Background(), cfg, "test problem", pursueOptions{
		Cycles:    3,
		Threshold: 0.01,
	})
	if err != nil {
		t.Fatalf("executePursue() error: %v", err)
	}
	if !resp.Achieved {
		t.Error("Achieved = false, want true at threshold 0.01")
	}
	if resp.CyclesCompleted != 1 {
		t.Errorf("CyclesCompleted = %d, want 1", resp.CyclesCompleted)
	}
	if resp.ArchiveID == 0 {
		t.Error("ArchiveID = 0, want archived session id")
	}
	if session.Plan == nil || len(session.ActionableInsights) == 0 {
		t.Error("achieved session missing plan or insights")
	}
}

func TestExecutePursueExhaustsBudget(t *testing.T) {
	cfg := testConfig(t)

	// The potential score is capped below 0.999, so the budget always
	// runs out.
	resp, session, err := executePursue(context.Background(), cfg, "test problem", pursueOptions{
		Cycles:    2,
		Threshold: 0.999,
		NoArchive: true,
	})
	if err != nil {
		t.Fatalf("executePursue() error: %v", err)
	}
	if resp.Achieved {
		t.Error("Achieved = true, want false at threshold 0.999")
	}
	if resp.CyclesCompleted != 2 {
		t.Errorf("CyclesCompleted = %d, want 2", resp.CyclesCompleted)
	}
	if resp.ArchiveID != 0 {
		t.Errorf("ArchiveID = %d, want 0 with --no-archive", resp.ArchiveID)
	}
	if session.FinalCycle != nil {
		t.Error("FinalCycle set on exhausted session")
	}
}

func TestExecutePursueRejectsEmptyProblem(t *testing.T) {
	cfg := testConfig(t)

	_, _, err := executePursue(context.Background(), cfg, "", pursueOptions{NoArchive: true})
	if err == nil {
		t.Fatal("executePursue() with empty problem succeeded, want error")
	}
}

func TestExecuteImprove(t *testing.T) {
	cfg := testConfig(t)

	resp, err := executeImprove(cfg)
	if err != nil {
		t.Fatalf("executeImprove() error: %v", err)
	}
	if resp.TriggerCount != 1 {
		t.Errorf("TriggerCount = %d, want 1", resp.TriggerCount)
	}
	if len(resp.StrategiesApplied) != 3 {
		t.Errorf("StrategiesApplied = %v, want 3 strategies", resp.StrategiesApplied)
	}
	if resp.Degraded {
		t.Error("Degraded = true after a single trigger")
	}
}

func TestExecuteArchiveListSeesPursuedSessions(t *testing.T) {
	cfg := testConfig(t)

	if _, _, err := executePursue(context.Background(), cfg, "archived problem", pursueOptions{
		Cycles:    1,
		Threshold: 0.01,
	}); err != nil {
		t.Fatalf("executePursue() error: %v", err)
	}

	resp, err := executeArchiveList(cfg, 10)
	if err != nil {
		t.Fatalf("executeArchiveList() error: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("Count = %d, want 1", resp.Count)
	}
	if resp.Sessions[0].Problem != "archived problem" {
		t.Errorf("Problem = %q", resp.Sessions[0].Problem)
	}
}

func TestExecuteArchiveListValidatesLimit(t *testing.T) {
	cfg := testConfig(t)

	if _, err := executeArchiveList(cfg, 0); err == nil {
		t.Error("executeArchiveList(0) succeeded, want error")
	}
}

func TestExecuteStatusFallsBackToArchive(t *testing.T) {
	cfg := testConfig(t)

	// Port 1 is never listening; the dashboard fetch must fail fast and
	// leave the archive counters as the only source.
	resp, err := executeStatus(cfg, "127.0.0.1:1")
	if err != nil {
		t.Fatalf("executeStatus() error: %v", err)
	}
	if resp.Dashboard != nil {
		t.Error("Dashboard set despite unreachable server")
	}
	if resp.Source != "archive" {
		t.Errorf("Source = %q, want archive", resp.Source)
	}
}

func TestOutputError(t *testing.T) {
	err := errors.New("boom")
	if got := outputError(err, false); !errors.Is(got, err) {
		t.Errorf("outputError(err, false) = %v, want original error", got)
	}
	if got := outputError(err, true); got != nil {
		t.Errorf("outputError(err, true) = %v, want nil after JSON report", got)
	}
}

func TestLoadConfigHonorsConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[engine]\nmax_cycles = 4\n")

	old := configPath
	configPath = path
	t.Cleanup(func() { configPath = old })

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Engine.MaxCycles != 4 {
		t.Errorf("MaxCycles = %d, want 4", cfg.Engine.MaxCycles)
	}
}
