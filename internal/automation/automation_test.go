package automation

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/icestrat/internal/storage"
	"github.com/san-kum/icestrat/internal/storage/sqlite"
)

const scenarioYAML = `name: bsed
description: ballistic sedimentation on and off
steps:
  - run_name: with_bsed
    runs: 2
    set:
      coldtrap_names: [Haworth, Faustini]
  - preset: no_bsed
    config: cfg.yaml
    seed_start: 10
`

func writeScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cfg.yaml"), []byte("seed: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t)

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Name != "bsed" || len(sc.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if want := filepath.Join(filepath.Dir(path), "cfg.yaml"); sc.Steps[1].Config != want {
		t.Errorf("expected config path %s, got %s", want, sc.Steps[1].Config)
	}

	cfg, err := sc.Steps[1].StepConfig()
	if err != nil {
		t.Fatalf("step config: %v", err)
	}
	if cfg.RunName != "no_bsed" || cfg.BallisticSed {
		t.Errorf("preset not applied: %s %v", cfg.RunName, cfg.BallisticSed)
	}

	cfg, err = sc.Steps[0].StepConfig()
	if err != nil {
		t.Fatalf("step config: %v", err)
	}
	if cfg.RunName != "with_bsed" || len(cfg.ColdtrapNames) != 2 {
		t.Errorf("overrides not applied: %s %v", cfg.RunName, cfg.ColdtrapNames)
	}
}

func TestLoadScenario_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("name: nothing\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(empty); err == nil {
		t.Error("expected error for a scenario without steps")
	}
	if _, err := LoadScenario(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStepConfig_Invalid(t *testing.T) {
	step := ScenarioStep{Set: map[string]any{"timestep": 0}}
	if _, err := step.StepConfig(); err == nil {
		t.Error("expected validation error")
	}
	step = ScenarioStep{Set: map[string]any{"bogus": 1}}
	if _, err := step.StepConfig(); err == nil {
		t.Error("expected unknown key error")
	}
}

func TestRunScenario(t *testing.T) {
	ctx := context.Background()
	sc, err := LoadScenario(writeScenario(t))
	if err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	idx, err := sqlite.Open(ctx, filepath.Join(out, sqlite.IndexFile))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer idx.Close()
	rec := &Recorder{Dir: storage.New(out), Index: idx}

	var buf bytes.Buffer
	results, err := RunScenario(ctx, sc, rec, 2, &buf)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	if len(results) != 2 || results[0].Runs != 2 || len(results[0].Dirs) != 2 {
		t.Fatalf("unexpected results %+v", results)
	}
	if !strings.Contains(buf.String(), "Running step 2/2: no_bsed") {
		t.Errorf("missing progress line in %q", buf.String())
	}

	runs, err := idx.ListRuns(ctx, "no_bsed")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Seed != 10 {
		t.Errorf("expected one indexed seed 10, got %+v", runs)
	}
	metas, err := rec.Dir.ListRun("with_bsed")
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 2 {
		t.Errorf("expected 2 saved seeds, got %d", len(metas))
	}
}
