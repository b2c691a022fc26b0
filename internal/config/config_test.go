package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.RunName != DefaultRunName {
		t.Errorf("expected run name %s, got %s", DefaultRunName, cfg.RunName)
	}
	if len(cfg.ColdtrapNames) != 12 {
		t.Errorf("expected 12 cold traps, got %d", len(cfg.ColdtrapNames))
	}
	if cfg.NumSteps() != 425 {
		t.Errorf("expected 425 steps, got %d", cfg.NumSteps())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty run name", func(c *Config) { c.RunName = "" }, "run_name"},
		{"bad mode", func(c *Config) { c.Mode = "fast" }, "mode"},
		{"zero timestep", func(c *Config) { c.Timestep = 0 }, "timestep"},
		{"reversed time", func(c *Config) { c.TimeEnd = 5e9 }, "time_start"},
		{"negative density", func(c *Config) { c.IceDensity = -1 }, "ice_density"},
		{"fraction above one", func(c *Config) { c.CometFrac = 1.5 }, "comet_frac"},
		{"bad bsed loss", func(c *Config) { c.BsedLossFrac = -0.5 }, "bsed_loss_frac"},
		{"bad threshold", func(c *Config) { c.EjectaThreshold = 0 }, "ejecta_threshold"},
		{"duplicate coldtrap", func(c *Config) { c.ColdtrapNames = []string{"Haworth", "Haworth"} }, "duplicate"},
		{"missing regime", func(c *Config) { delete(c.ImpactRegimes, "d") }, "regime \"d\""},
		{"overlapping regimes", func(c *Config) {
			r := c.ImpactRegimes["d"]
			r.Max = 20e3
			c.ImpactRegimes["d"] = r
		}, "overlaps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_ReportsAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RunName = ""
	cfg.Timestep = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "run_name") || !strings.Contains(err.Error(), "timestep") {
		t.Errorf("expected both violations, got %v", err)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "run.yaml", "run_name: test_run\nseed: 3\nballistic_sed: false\nimpactor_density: 2000\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RunName != "test_run" || cfg.Seed != 3 {
		t.Errorf("expected test_run/3, got %s/%d", cfg.RunName, cfg.Seed)
	}
	if cfg.BallisticSed {
		t.Error("expected ballistic_sed false")
	}
	if cfg.ImpactorDensity != 2000 {
		t.Errorf("expected impactor density 2000, got %f", cfg.ImpactorDensity)
	}
	if cfg.IceDensity != DefaultConfig().IceDensity {
		t.Error("keys absent from the file should keep defaults")
	}
}

func TestLoad_TOMLAndJSON(t *testing.T) {
	tomlPath := writeFile(t, "run.toml", "run_name = \"toml_run\"\nsolar_wind_ice = false\n")
	jsonPath := writeFile(t, "run.json", `{"run_name": "json_run", "timestep": 5e6}`)

	cfg, err := Load(tomlPath)
	if err != nil {
		t.Fatalf("load toml: %v", err)
	}
	if cfg.RunName != "toml_run" || cfg.SolarWindIce {
		t.Errorf("toml values not applied: %s %v", cfg.RunName, cfg.SolarWindIce)
	}

	cfg, err = Load(jsonPath)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	if cfg.RunName != "json_run" || cfg.Timestep != 5e6 {
		t.Errorf("json values not applied: %s %g", cfg.RunName, cfg.Timestep)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	for _, tt := range []struct{ name, content string }{
		{"run.yaml", "not_a_param: 1\n"},
		{"run.toml", "not_a_param = 1\n"},
		{"run.json", `{"not_a_param": 1}`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.name, tt.content))
			if !errors.Is(err, ErrUnknownKey) {
				t.Errorf("expected ErrUnknownKey, got %v", err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolve_Precedence(t *testing.T) {
	path := writeFile(t, "run.yaml", "seed: 3\nmode: cannon\n")
	t.Setenv("ICESTRAT_SEED", "9")

	cfg, err := Resolve("no_bsed", path)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Seed != 9 {
		t.Errorf("environment should beat file, got seed %d", cfg.Seed)
	}
	if cfg.Mode != ModeCannon {
		t.Errorf("file should beat preset, got mode %s", cfg.Mode)
	}
	if cfg.BallisticSed {
		t.Error("preset value should survive when the file does not set it")
	}
	if cfg.RunName != "no_bsed" {
		t.Errorf("expected preset run name, got %s", cfg.RunName)
	}
}

func TestApplyEnv_Error(t *testing.T) {
	t.Setenv("ICESTRAT_SEED", "not-an-int")

	err := ApplyEnv(DefaultConfig())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Errorf("expected parse env prefix, got %v", err)
	}
}

func TestToMapRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.ColdtrapNames = []string{"Haworth", "Cabeus"}

	m, err := cfg.ToMap()
	if err != nil {
		t.Fatalf("to map: %v", err)
	}
	back, err := FromMap(m)
	if err != nil {
		t.Fatalf("from map: %v", err)
	}
	if !reflect.DeepEqual(cfg, back) {
		t.Errorf("round trip changed config:\n%+v\n%+v", cfg, back)
	}
}

func TestWith(t *testing.T) {
	base := DefaultConfig()

	cfg, err := base.With(map[string]any{"ejecta_threshold": -1, "run_name": "x"})
	if err != nil {
		t.Fatalf("with: %v", err)
	}
	if cfg.EjectaThreshold != -1 || cfg.RunName != "x" {
		t.Errorf("overrides not applied: %g %s", cfg.EjectaThreshold, cfg.RunName)
	}
	if base.EjectaThreshold != 4 {
		t.Error("With must not modify the receiver")
	}

	if _, err := base.With(map[string]any{"bogus": 1}); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

func TestParseOverride(t *testing.T) {
	tests := []struct {
		in   string
		key  string
		want any
	}{
		{"seed=7", "seed", 7},
		{"ballistic_sed=false", "ballistic_sed", false},
		{"bsed_loss_frac=0.5", "bsed_loss_frac", 0.5},
		{"run_name=abc", "run_name", "abc"},
	}
	for _, tt := range tests {
		key, v, err := ParseOverride(tt.in)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.in, err)
			continue
		}
		if key != tt.key || !reflect.DeepEqual(v, tt.want) {
			t.Errorf("%s: got %s=%v (%T)", tt.in, key, v, v)
		}
	}

	if _, _, err := ParseOverride("novalue"); err == nil {
		t.Error("expected error without '='")
	}
}

func TestGetPreset(t *testing.T) {
	cfg, err := GetPreset("no_bsed")
	if err != nil {
		t.Fatalf("get preset: %v", err)
	}
	if cfg.BallisticSed {
		t.Error("no_bsed should disable ballistic sedimentation")
	}
	if cfg.RunName != "no_bsed" {
		t.Errorf("expected run name no_bsed, got %s", cfg.RunName)
	}

	for _, name := range ListPresets() {
		cfg, err := GetPreset(name)
		if err != nil {
			t.Errorf("preset %s: %v", name, err)
			continue
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %s does not validate: %v", name, err)
		}
	}
}

func TestGetPreset_MoonpiesMatchesBaseline(t *testing.T) {
	a, err := GetPreset("moonpies")
	if err != nil {
		t.Fatalf("get preset: %v", err)
	}
	b, err := GetPreset("baseline")
	if err != nil {
		t.Fatalf("get preset: %v", err)
	}
	if a.RunName != "moonpies" {
		t.Errorf("expected run name moonpies, got %s", a.RunName)
	}
	a.RunName = b.RunName
	if !reflect.DeepEqual(a, b) {
		t.Error("moonpies preset should only differ from baseline by name")
	}

	cannon, err := GetPreset("cannon")
	if err != nil {
		t.Fatalf("get preset: %v", err)
	}
	if cannon.BallisticHopMoores {
		t.Error("cannon preset should use the constant hop efficiency")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	_, err := GetPreset("nonexistent")
	if !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("expected ErrUnknownPreset, got %v", err)
	}
}

func TestTimeGrid(t *testing.T) {
	cfg := DefaultConfig()
	times := cfg.TimeArray()

	if times[0] != cfg.TimeStart {
		t.Errorf("expected first time %g, got %g", cfg.TimeStart, times[0])
	}
	if got := times[1] - times[0]; got != -cfg.Timestep {
		t.Errorf("expected step %g, got %g", -cfg.Timestep, got)
	}
	if cfg.TimeIndex(cfg.TimeStart) != 0 {
		t.Error("time_start should map to index 0")
	}
	if cfg.TimeIndex(5e9) != 0 {
		t.Error("ages older than time_start should clamp to 0")
	}
	if got := cfg.TimeIndex(0); got != len(times)-1 {
		t.Errorf("present should clamp to last index, got %d", got)
	}
	if got := cfg.TimeIndex(3.9e9); times[got] != 3.9e9 {
		t.Errorf("expected index of 3.9 Ga, got time %g", times[got])
	}
}

func TestCometConfig(t *testing.T) {
	cfg := DefaultConfig()
	comet := cfg.CometConfig()

	if !comet.IsComet || cfg.IsComet {
		t.Error("CometConfig should only mark the copy as comet")
	}
	if comet.ImpactorDensity != cfg.CometDensity {
		t.Errorf("expected comet density %g, got %g", cfg.CometDensity, comet.ImpactorDensity)
	}
	if got := comet.FluxScale() + cfg.FluxScale(); math.Abs(got-1) > 1e-12 {
		t.Errorf("asteroid and comet flux shares should sum to 1, got %g", got)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	for _, ext := range []string{".yaml", ".toml", ".json"} {
		t.Run(ext, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Seed = 11
			path := filepath.Join(t.TempDir(), "cfg"+ext)
			if err := Save(path, cfg); err != nil {
				t.Fatalf("save: %v", err)
			}
			back, err := Load(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if back.Seed != 11 || back.RunName != cfg.RunName {
				t.Errorf("expected seed 11, got %d", back.Seed)
			}
		})
	}
}
