package ice

import (
	"math"

	"github.com/san-kum/icestrat/internal/impact"
	"github.com/san-kum/icestrat/internal/stats"
)

// Volcanic outgassing, split between an early and a late epoch of mare
// volcanism and released at a constant rate within each.
func Volcanic(in Input) []float64 {
	cfg := in.Cfg
	out := make([]float64, len(in.Time))
	total := cfg.VolcTotalVol * cfg.VolcMagmaDens * cfg.VolcH2OPPM * 1e-6
	epochs := []struct {
		window [2]float64
		pct    float64
	}{
		{cfg.VolcEarly, cfg.VolcEarlyPct},
		{cfg.VolcLate, cfg.VolcLatePct},
	}
	for i, t := range in.Time {
		var mass float64
		for _, e := range epochs {
			start, end := e.window[0], e.window[1]
			if start <= end || t > start || t <= end {
				continue
			}
			mass += total * e.pct * cfg.Timestep / (start - end)
		}
		out[i] = mass * cfg.VolcPolePct / (cfg.IceDensity * cfg.ColdtrapArea)
	}
	return out
}

// SolarWind is implanted hydrogen delivered at a constant rate.
func SolarWind(in Input) []float64 {
	cfg := in.Cfg
	mass := cfg.SolarWindRate * 1e-3 * secondsPerYear * cfg.Timestep
	th := massToThick(mass, cfg)
	out := make([]float64, len(in.Time))
	for i := range out {
		out[i] = th
	}
	return out
}

// Micrometeorite is water carried by dust scaled with the impact flux.
func Micrometeorite(in Input) []float64 {
	cfg := in.Cfg
	out := make([]float64, len(in.Time))
	ret := meanRetention(cfg)
	for i, t := range in.Time {
		mass := cfg.MMMassRate * cfg.Timestep * impact.RelativeFlux(t, cfg) * cfg.FluxScale()
		out[i] = massToThick(mass*cfg.HydratedWtPct*ret, cfg)
	}
	return out
}

// SmallImpactor integrates the impactor size distribution
// N(>D) = 10^c0 D^-d0 per year over regime b, scaled from the Earth.
func SmallImpactor(in Input) []float64 {
	cfg := in.Cfg
	r := cfg.ImpactRegimes["b"]
	cum := func(d float64) float64 {
		return math.Pow(10, cfg.SmallImpactorC0) * math.Pow(d, -cfg.SmallImpactorD0) / cfg.EarthMoonRatio
	}
	edges := logBins(r.Min, r.Max, r.Bins)
	var massPerYear float64
	for k := 0; k < r.Bins; k++ {
		n := cum(edges[k]) - cum(edges[k+1])
		mid := math.Sqrt(edges[k] * edges[k+1])
		massPerYear += n * impact.ImpactorMass(mid, cfg.ImpactorDensity)
	}
	water := massPerYear * cfg.Timestep * waterFrac(cfg) * meanRetention(cfg) * cfg.FluxScale()
	out := make([]float64, len(in.Time))
	for i, t := range in.Time {
		out[i] = massToThick(water*impact.RelativeFlux(t, cfg), cfg)
	}
	return out
}

// SmallSimpleCrater is the expected ice from regime c craters, too numerous
// to sample individually.
func SmallSimpleCrater(in Input) []float64 {
	cfg := in.Cfg
	r := cfg.ImpactRegimes["c"]
	edges := logBins(r.Min, r.Max, r.Bins)
	area := lunarArea(cfg)
	ret := meanRetention(cfg)
	out := make([]float64, len(in.Time))
	for i, t := range in.Time {
		var water float64
		for k := 0; k < r.Bins; k++ {
			n := impact.CraterCount(edges[k], edges[k+1], area, t, cfg)
			mid := math.Sqrt(edges[k] * edges[k+1])
			l := impact.Diam2Len(mid, cfg.ImpactSpeedMean, cfg)
			water += n * impact.ImpactorMass(l, cfg.ImpactorDensity)
		}
		out[i] = massToThick(water*waterFrac(cfg)*ret, cfg)
	}
	return out
}

// LargeSimpleCrater samples regime d craters with random speeds and types.
func LargeSimpleCrater(in Input) []float64 {
	return sampledCraters(in, "d")
}

// ComplexCrater samples regime e craters with random speeds and types.
func ComplexCrater(in Input) []float64 {
	return sampledCraters(in, "e")
}

// maxSampled bounds the expected craters drawn one by one in a bin and
// timestep. Bins expecting more use the expected count and mean ice per crater.
const maxSampled = 1000

func sampledCraters(in Input, regime string) []float64 {
	cfg := in.Cfg
	r := cfg.ImpactRegimes[regime]
	edges := logBins(r.Min, r.Max, r.Bins)
	area := lunarArea(cfg)
	speeds := impact.Speeds(cfg)
	ret := meanRetention(cfg)
	out := make([]float64, len(in.Time))
	for i, t := range in.Time {
		var water float64
		for k := 0; k < r.Bins; k++ {
			lambda := impact.CraterCount(edges[k], edges[k+1], area, t, cfg)
			mid := math.Sqrt(edges[k] * edges[k+1])
			if lambda > maxSampled {
				l := impact.Diam2Len(mid, cfg.ImpactSpeedMean, cfg)
				water += lambda * impact.ImpactorMass(l, cfg.ImpactorDensity) * waterFrac(cfg) * ret
				continue
			}
			n := stats.Poisson(lambda, in.Rng)
			for _, v := range impact.SampleSpeeds(speeds, n, in.Rng) {
				if in.Rng.Float64() >= cfg.CtypeFrac {
					continue
				}
				l := impact.Diam2Len(mid, v, cfg)
				water += impact.ImpactorMass(l, cfg.ImpactorDensity) * cfg.HydratedWtPct * impact.RetentionFactor(v, cfg)
			}
		}
		out[i] = massToThick(water, cfg)
	}
	return out
}

// Basin adds the ice of each basin-forming impact in its timestep. Each
// impactor is a comet with probability comet_frac when comets are enabled.
func Basin(in Input) []float64 {
	out := make([]float64, len(in.Time))
	for _, c := range in.Craters {
		if !c.IsBasin {
			continue
		}
		cfg := in.Cfg
		if cfg.ImpactIceComets && in.Rng.Float64() < cfg.CometFrac {
			cfg = cfg.CometConfig()
		}
		if in.Rng.Float64() >= cfg.CtypeFrac {
			continue
		}
		v := impact.Speeds(cfg).Sample(in.Rng)
		l := impact.Diam2Len(c.Diam, v, cfg)
		water := impact.ImpactorMass(l, cfg.ImpactorDensity) * cfg.HydratedWtPct * impact.RetentionFactor(v, cfg)
		out[in.Cfg.TimeIndex(c.Age)] += massToThick(water, cfg)
	}
	return out
}
