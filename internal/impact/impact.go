// Package impact holds the impactor population: flux history, crater
// production, crater scaling, impact speeds, ice retention and gardening.
package impact

import (
	"math"
	"math/rand"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/stats"
)

// RelativeFlux is the impact flux at age t [yr] relative to today, from the
// derivative of N(T) = a(e^{bT} - 1) + cT with T in Gyr.
func RelativeFlux(t float64, cfg *config.Config) float64 {
	gyr := t / 1e9
	now := cfg.FluxA*cfg.FluxB + cfg.FluxC
	return (cfg.FluxA*cfg.FluxB*math.Exp(cfg.FluxB*gyr) + cfg.FluxC) / now
}

// NeukumN is the cumulative number of craters larger than dKm per km^2 formed
// in 1 Gyr at the present flux. Diameters outside [neukum_min, neukum_max]
// are clamped.
func NeukumN(dKm float64, cfg *config.Config) float64 {
	d := math.Min(math.Max(dKm, cfg.NeukumMin), cfg.NeukumMax)
	x := math.Log10(d)
	var logN, p float64
	p = 1
	for _, a := range cfg.NeukumPF {
		logN += a * p
		p *= x
	}
	return math.Pow(10, logN)
}

// CraterCount is the expected number of craters with final diameter in
// [dmin, dmax] m over area [m^2] during the timestep ending at age t.
func CraterCount(dmin, dmax, area, t float64, cfg *config.Config) float64 {
	n := NeukumN(dmin/1e3, cfg) - NeukumN(dmax/1e3, cfg)
	if n < 0 {
		n = 0
	}
	return n * area / 1e6 * cfg.Timestep / 1e9 * RelativeFlux(t, cfg) * cfg.FluxScale()
}

func scalingConst(speed float64, cfg *config.Config) float64 {
	sinTheta := math.Sin(cfg.ImpactAngle * math.Pi / 180)
	return 1.161 * math.Cbrt(cfg.ImpactorDensity/cfg.TargetDensity) *
		math.Pow(speed, 0.44) * math.Pow(cfg.GravMoon, -0.22) * math.Cbrt(sinTheta)
}

// branchTol absorbs rounding when a diameter on the simple/complex boundary
// goes through Pow and back.
const branchTol = 1e-9

// TransientDiam inverts the simple/complex collapse for a final diameter [m].
func TransientDiam(final float64, cfg *config.Config) float64 {
	if final <= cfg.Simple2Complex {
		return final / 1.25
	}
	return math.Pow(final*math.Pow(cfg.Simple2Complex, 0.13)/1.17, 1/1.13)
}

// FinalDiam collapses a transient crater diameter [m]. It branches on the
// same simple/complex threshold as TransientDiam so the two stay inverses.
func FinalDiam(transient float64, cfg *config.Config) float64 {
	if transient <= cfg.Simple2Complex/1.25*(1+branchTol) {
		return 1.25 * transient
	}
	return 1.17 * math.Pow(transient, 1.13) / math.Pow(cfg.Simple2Complex, 0.13)
}

// Diam2Len is the impactor diameter [m] that makes a crater of the given
// final diameter at speed [m/s], by Collins et al. (2005) pi-scaling.
func Diam2Len(diam, speed float64, cfg *config.Config) float64 {
	return math.Pow(TransientDiam(diam, cfg)/scalingConst(speed, cfg), 1/0.78)
}

// Len2Diam is the inverse of Diam2Len.
func Len2Diam(length, speed float64, cfg *config.Config) float64 {
	return FinalDiam(scalingConst(speed, cfg)*math.Pow(length, 0.78), cfg)
}

func ImpactorMass(length, density float64) float64 {
	r := length / 2
	return density * 4 / 3 * math.Pi * r * r * r
}

// SpeedModel is a distribution of impact speeds [m/s].
type SpeedModel interface {
	PDF(v float64) float64
	CDF(v float64) float64
	SF(v float64) float64
	Sample(rng *rand.Rand) float64
}

// Speeds returns the comet mixture for comet configs and a single truncated
// normal for asteroids. Both are bounded by escape_vel and comet_speed_max.
func Speeds(cfg *config.Config) SpeedModel {
	if !cfg.IsComet {
		return stats.Mixture{
			Components: []stats.TruncNormal{{
				Mu: cfg.ImpactSpeedMean, Sigma: cfg.ImpactSpeedSD,
				Lo: cfg.EscapeVel, Hi: cfg.CometSpeedMax,
			}},
			Weights: []float64{1},
		}
	}
	m := stats.Mixture{}
	for _, c := range cfg.CometSpeeds {
		m.Components = append(m.Components, stats.TruncNormal{
			Mu: c.Mean, Sigma: c.SD, Lo: cfg.EscapeVel, Hi: cfg.CometSpeedMax,
		})
		m.Weights = append(m.Weights, c.Weight)
	}
	return m
}

// SampleSpeeds draws n speeds.
func SampleSpeeds(model SpeedModel, n int, rng *rand.Rand) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = model.Sample(rng)
	}
	return out
}

// retention anchors: impact speed [m/s] and fraction of impactor water retained.
var retention = [][2]float64{
	{10e3, 1},
	{15e3, 0.197},
	{30e3, 0.0147},
	{45e3, 0.00193},
	{60e3, 6.6e-6},
}

// RetentionFactor is the fraction of impactor volatiles retained at speed
// [m/s]. Cannon mode uses impact_mass_retained for every impact; otherwise the
// fraction is interpolated in log space between anchors and never exceeds 1.
func RetentionFactor(speed float64, cfg *config.Config) float64 {
	if cfg.Mode == config.ModeCannon {
		return cfg.ImpactMassRetained
	}
	if speed <= retention[0][0] {
		return 1
	}
	i := 1
	for i < len(retention)-1 && speed > retention[i][0] {
		i++
	}
	x0, y0 := retention[i-1][0], math.Log(retention[i-1][1])
	x1, y1 := retention[i][0], math.Log(retention[i][1])
	y := y0 + (speed-x0)*(y1-y0)/(x1-x0)
	return math.Min(1, math.Exp(y))
}

// OverturnDepth is the depth [m] gardened by small impacts during the
// timestep ending at age t.
func OverturnDepth(t float64, cfg *config.Config) float64 {
	if cfg.Mode == config.ModeCannon {
		return cfg.CannonOverturn * cfg.Timestep
	}
	return cfg.OverturnA * math.Pow(cfg.Timestep/1e6, cfg.OverturnB) * RelativeFlux(t, cfg)
}
