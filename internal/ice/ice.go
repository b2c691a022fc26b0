// Package ice computes the ice each delivery source adds to the polar cold
// traps in every timestep.
package ice

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/craters"
	"github.com/san-kum/icestrat/internal/impact"
)

const secondsPerYear = 365.25 * 24 * 3600

// Input is everything a source needs. Time holds the age [yr] at the start of
// each timestep, oldest first.
type Input struct {
	Cfg     *config.Config
	Time    []float64
	Craters craters.List
	Rng     *rand.Rand
}

func (in Input) withConfig(cfg *config.Config) Input {
	in.Cfg = cfg
	return in
}

// Source delivers ice thickness [m] per timestep to each cold trap.
type Source struct {
	Name    string
	Enabled func(cfg *config.Config) bool
	// Split sources run once for asteroids and once for comets.
	Split bool
	// Local sources reach the cold traps directly, not by ballistic hop.
	Local bool
	Ice   func(in Input) []float64
}

type Registry struct {
	sources map[string]Source
	order   []string
}

func NewRegistry() *Registry {
	r := &Registry{sources: make(map[string]Source)}

	impactOn := func(c *config.Config) bool { return c.ImpactIce }
	r.Register(Source{Name: "volcanic", Enabled: func(c *config.Config) bool { return c.VolcIce }, Local: true, Ice: Volcanic})
	r.Register(Source{Name: "solar_wind", Enabled: func(c *config.Config) bool { return c.SolarWindIce }, Ice: SolarWind})
	r.Register(Source{Name: "micrometeorite", Enabled: impactOn, Split: true, Ice: Micrometeorite})
	r.Register(Source{Name: "small_impactor", Enabled: impactOn, Split: true, Ice: SmallImpactor})
	r.Register(Source{Name: "small_simple_crater", Enabled: impactOn, Split: true, Ice: SmallSimpleCrater})
	r.Register(Source{Name: "large_simple_crater", Enabled: impactOn, Split: true, Ice: LargeSimpleCrater})
	r.Register(Source{Name: "complex_crater", Enabled: impactOn, Split: true, Ice: ComplexCrater})
	r.Register(Source{Name: "basin", Enabled: func(c *config.Config) bool { return c.ImpactIce && c.ImpactIceBasins }, Ice: Basin})

	return r
}

// Register adds or replaces a source. Sources run in registration order.
func (r *Registry) Register(s Source) {
	if _, ok := r.sources[s.Name]; !ok {
		r.order = append(r.order, s.Name)
	}
	r.sources[s.Name] = s
}

func (r *Registry) Get(name string) (Source, error) {
	s, ok := r.sources[name]
	if !ok {
		return Source{}, fmt.Errorf("unknown ice source: %s", name)
	}
	return s, nil
}

func (r *Registry) List() []string {
	return append([]string(nil), r.order...)
}

// ByModule runs every enabled source and returns its series by name. Split
// sources sum the asteroid and comet populations when comets are enabled.
func (r *Registry) ByModule(in Input) map[string][]float64 {
	out := make(map[string][]float64, len(r.order))
	for _, name := range r.order {
		s := r.sources[name]
		if s.Enabled != nil && !s.Enabled(in.Cfg) {
			continue
		}
		series := s.Ice(in)
		if s.Split && in.Cfg.ImpactIceComets {
			addInto(series, s.Ice(in.withConfig(in.Cfg.CometConfig())))
		}
		out[name] = series
	}
	return out
}

// Total is the sum of all enabled sources per timestep.
func (r *Registry) Total(in Input) []float64 {
	total := make([]float64, len(in.Time))
	byModule := r.ByModule(in)
	names := make([]string, 0, len(byModule))
	for name := range byModule {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		addInto(total, byModule[name])
	}
	return total
}

// PerColdtrap sums byModule into one series per cold trap. Series are
// delivered at ballistic_hop_efficiency; hops[j] replaces it for cold trap j.
// Local sources are the same everywhere.
func (r *Registry) PerColdtrap(byModule map[string][]float64, hops []float64, steps int, cfg *config.Config) [][]float64 {
	out := make([][]float64, len(hops))
	for j, hop := range hops {
		scale := 0.0
		if cfg.BallisticHopEfficiency > 0 {
			scale = hop / cfg.BallisticHopEfficiency
		}
		col := make([]float64, steps)
		for _, name := range r.order {
			series, ok := byModule[name]
			if !ok {
				continue
			}
			f := scale
			if r.sources[name].Local {
				f = 1
			}
			for i := range col {
				col[i] += f * series[i]
			}
		}
		out[j] = col
	}
	return out
}

func addInto(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// massToThick spreads ice mass [kg] delivered to the whole Moon over the
// cold trap area, keeping the fraction that hops to the poles.
func massToThick(mass float64, cfg *config.Config) float64 {
	return mass * cfg.BallisticHopEfficiency / (cfg.IceDensity * cfg.ColdtrapArea)
}

// waterFrac is the expected water mass fraction of an impactor population.
func waterFrac(cfg *config.Config) float64 {
	return cfg.CtypeFrac * cfg.HydratedWtPct
}

// meanRetention integrates the retention factor over the speed distribution.
func meanRetention(cfg *config.Config) float64 {
	if cfg.Mode == config.ModeCannon {
		return cfg.ImpactMassRetained
	}
	speeds := impact.Speeds(cfg)
	const n = 400
	lo, hi := cfg.EscapeVel, cfg.CometSpeedMax
	h := (hi - lo) / n
	var sum float64
	for i := 0; i < n; i++ {
		v := lo + (float64(i)+0.5)*h
		sum += impact.RetentionFactor(v, cfg) * speeds.PDF(v) * h
	}
	return sum
}

// logBins splits [min, max] into n log-spaced bins and returns the edges.
func logBins(min, max float64, n int) []float64 {
	edges := make([]float64, n+1)
	lmin, lmax := math.Log10(min), math.Log10(max)
	for i := range edges {
		edges[i] = math.Pow(10, lmin+float64(i)*(lmax-lmin)/float64(n))
	}
	return edges
}

func lunarArea(cfg *config.Config) float64 {
	return 4 * math.Pi * cfg.RadMoon * cfg.RadMoon
}
