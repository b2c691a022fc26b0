// Package automation runs batches of ensembles described in a YAML scenario.
package automation

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/sim"
	"github.com/san-kum/icestrat/internal/storage"
	"github.com/san-kum/icestrat/internal/storage/sqlite"
)

// Scenario defines a scripted sequence of ensembles
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one ensemble. Config paths are relative to the scenario file.
type ScenarioStep struct {
	RunName   string         `yaml:"run_name"`
	Preset    string         `yaml:"preset"`
	Config    string         `yaml:"config"`
	Set       map[string]any `yaml:"set"`
	Runs      int            `yaml:"runs"`
	SeedStart int64          `yaml:"seed_start"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}

	dir := filepath.Dir(path)
	for i := range scenario.Steps {
		s := &scenario.Steps[i]
		if s.Config != "" && !filepath.IsAbs(s.Config) {
			s.Config = filepath.Join(dir, s.Config)
		}
	}
	return &scenario, nil
}

// StepConfig resolves the preset, file and overrides of a step.
func (s ScenarioStep) StepConfig() (*config.Config, error) {
	cfg, err := config.Resolve(s.Preset, s.Config)
	if err != nil {
		return nil, err
	}
	if len(s.Set) > 0 {
		if cfg, err = cfg.With(s.Set); err != nil {
			return nil, err
		}
	}
	if s.RunName != "" {
		cfg.RunName = s.RunName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Recorder persists finished runs to the run directory tree and, when set,
// the sqlite index.
type Recorder struct {
	Dir   *storage.Store
	Index *sqlite.Store
}

func (r *Recorder) Record(ctx context.Context, res *sim.Result) (string, error) {
	dir, err := r.Dir.Save(res)
	if err != nil {
		return "", err
	}
	if r.Index != nil {
		if _, err := r.Index.RecordRun(ctx, res, dir); err != nil {
			return dir, err
		}
	}
	return dir, nil
}

// StepResult summarizes one finished step.
type StepResult struct {
	RunName string
	Runs    int
	Dirs    []string
}

// RunScenario executes all steps in order. Each step runs as an ensemble with
// workers goroutines and every seed is recorded before the next step starts.
func RunScenario(ctx context.Context, scenario *Scenario, rec *Recorder, workers int, out io.Writer) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.StepConfig()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		runs := step.Runs
		if runs <= 0 {
			runs = 1
		}
		fmt.Fprintf(out, "Running step %d/%d: %s (%d runs)\n", i+1, len(scenario.Steps), cfg.RunName, runs)

		ens := &sim.Ensemble{Runs: runs, SeedStart: step.SeedStart, Workers: workers}
		res, err := ens.Run(ctx, cfg)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{RunName: cfg.RunName, Runs: runs}
		for _, r := range res {
			dir, err := rec.Record(ctx, r)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			sr.Dirs = append(sr.Dirs, dir)
		}
		results = append(results, sr)
	}

	return results, nil
}
