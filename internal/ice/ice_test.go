package ice

import (
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/craters"
)

func newInput(t *testing.T, cfg *config.Config, seed int64) Input {
	t.Helper()
	list, err := craters.CraterBasinList(cfg, nil)
	if err != nil {
		t.Fatalf("crater list: %v", err)
	}
	return Input{Cfg: cfg, Time: cfg.TimeArray(), Craters: list, Rng: rand.New(rand.NewSource(seed))}
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	want := []string{
		"volcanic", "solar_wind", "micrometeorite", "small_impactor",
		"small_simple_crater", "large_simple_crater", "complex_crater", "basin",
	}
	got := r.List()
	if len(got) != len(want) {
		t.Fatalf("expected %d sources, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("source %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if _, err := r.Get("cosmic_rays"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestVolcanic_Total(t *testing.T) {
	cfg := config.DefaultConfig()
	in := newInput(t, cfg, 1)

	series := Volcanic(in)
	mass := cfg.VolcTotalVol * cfg.VolcMagmaDens * cfg.VolcH2OPPM * 1e-6
	want := mass * (cfg.VolcEarlyPct + cfg.VolcLatePct) * cfg.VolcPolePct / (cfg.IceDensity * cfg.ColdtrapArea)
	if got := sum(series); math.Abs(got-want)/want > 1e-9 {
		t.Errorf("expected %g m of volcanic ice, got %g", want, got)
	}
	if series[cfg.TimeIndex(4.2e9)] != 0 || series[cfg.TimeIndex(1e9)] != 0 {
		t.Error("no volcanic ice outside the eruption epochs")
	}
}

func TestSolarWind_Constant(t *testing.T) {
	cfg := config.DefaultConfig()
	series := SolarWind(newInput(t, cfg, 1))

	for i, v := range series {
		if v <= 0 || v != series[0] {
			t.Fatalf("step %d: expected constant positive rate, got %g", i, v)
		}
	}
}

func TestImpactSources_FollowFlux(t *testing.T) {
	cfg := config.DefaultConfig()
	in := newInput(t, cfg, 1)

	for name, fn := range map[string]func(Input) []float64{
		"micrometeorite":      Micrometeorite,
		"small_impactor":      SmallImpactor,
		"small_simple_crater": SmallSimpleCrater,
	} {
		series := fn(in)
		first, last := series[0], series[len(series)-1]
		if last <= 0 {
			t.Errorf("%s: expected ice today, got %g", name, last)
		}
		if first <= last {
			t.Errorf("%s: early flux should deliver more ice (%g <= %g)", name, first, last)
		}
	}
}

func TestSampledCraters_NonNegative(t *testing.T) {
	cfg := config.DefaultConfig()
	in := newInput(t, cfg, 3)

	for _, series := range [][]float64{LargeSimpleCrater(in), ComplexCrater(in)} {
		for i, v := range series {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("step %d: bad ice thickness %g", i, v)
			}
		}
		if sum(series) <= 0 {
			t.Error("expected some ice from sampled craters")
		}
	}
}

func TestSampledCraters_ExpectedCountForLargeBins(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ImpactRegimes = map[string]config.Regime{
		"d": {Min: 100, Max: 150, Bins: 1},
		"e": {Min: 150, Max: 300, Bins: 2},
	}

	a := newInput(t, cfg, 1)
	b := newInput(t, cfg, 2)
	for _, src := range []func(Input) []float64{LargeSimpleCrater, ComplexCrater} {
		sa, sb := src(a), src(b)
		if sum(sa) <= 0 {
			t.Fatal("expected ice from crowded bins")
		}
		for i := range sa {
			if sa[i] != sb[i] {
				t.Fatalf("step %d: seeds differ (%g vs %g) though every bin exceeds %d craters", i, sa[i], sb[i], maxSampled)
			}
		}
	}
}

func TestPerColdtrap(t *testing.T) {
	cfg := config.DefaultConfig()
	r := NewRegistry()
	byModule := map[string][]float64{
		"volcanic":       {1, 1},
		"micrometeorite": {0.5, 0},
	}
	hops := []float64{cfg.BallisticHopEfficiency, 2 * cfg.BallisticHopEfficiency, 0}

	got := r.PerColdtrap(byModule, hops, 2, cfg)
	want := [][]float64{{1.5, 1}, {2, 1}, {1, 1}}
	for j := range want {
		for i := range want[j] {
			if math.Abs(got[j][i]-want[j][i]) > 1e-12 {
				t.Errorf("cold trap %d step %d: expected %g, got %g", j, i, want[j][i], got[j][i])
			}
		}
	}
}

func TestBasin_AtBasinAges(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CtypeFrac = 1
	cfg.ImpactIceComets = false
	in := newInput(t, cfg, 5)

	series := Basin(in)
	for _, c := range in.Craters {
		if c.IsBasin && series[cfg.TimeIndex(c.Age)] <= 0 {
			t.Errorf("%s: expected ice at its age", c.Name)
		}
	}
	var nonzero int
	for _, v := range series {
		if v > 0 {
			nonzero++
		}
	}
	if nonzero == 0 {
		t.Error("expected basin ice")
	}
}

func TestByModule_Disabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VolcIce = false
	cfg.ImpactIceBasins = false

	byModule := NewRegistry().ByModule(newInput(t, cfg, 1))
	if _, ok := byModule["volcanic"]; ok {
		t.Error("disabled volcanic source should not run")
	}
	if _, ok := byModule["basin"]; ok {
		t.Error("disabled basin source should not run")
	}
	if _, ok := byModule["solar_wind"]; !ok {
		t.Error("solar wind should run")
	}
}

func TestTotal_MatchesByModule(t *testing.T) {
	cfg := config.DefaultConfig()
	r := NewRegistry()

	total := r.Total(newInput(t, cfg, 9))
	byModule := r.ByModule(newInput(t, cfg, 9))

	var want float64
	for _, series := range byModule {
		want += sum(series)
	}
	if got := sum(total); math.Abs(got-want) > 1e-9*want {
		t.Errorf("total %g does not match module sum %g", got, want)
	}

	again := r.Total(newInput(t, cfg, 9))
	for i := range total {
		if total[i] != again[i] {
			t.Fatalf("same seed gave different ice at step %d", i)
		}
	}
}

func TestMeanRetention(t *testing.T) {
	cfg := config.DefaultConfig()

	r := meanRetention(cfg)
	if r <= 0 || r >= 1 {
		t.Errorf("expected mean retention in (0, 1), got %g", r)
	}
	if rc := meanRetention(cfg.CometConfig()); rc >= r {
		t.Errorf("faster comets should retain less, got %g >= %g", rc, r)
	}

	cfg.Mode = config.ModeCannon
	if got := meanRetention(cfg); got != cfg.ImpactMassRetained {
		t.Errorf("cannon mode: expected %g, got %g", cfg.ImpactMassRetained, got)
	}
}
