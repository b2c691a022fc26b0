// Package ejecta models the ejecta blanket a crater throws onto distant cold
// traps and the ice it destroys on landing.
package ejecta

import (
	"math"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/craters"
)

// Thickness is the ejecta thickness [m] at dist from a crater of radius rad,
// t = a * rad^b * (dist/rad)^c. It is zero inside the rim, beyond
// ejecta_threshold radii, and for NaN distances.
func Thickness(dist, rad float64, cfg *config.Config) float64 {
	if math.IsNaN(dist) || rad <= 0 || dist < rad {
		return 0
	}
	if cfg.EjectaThreshold > 0 && dist > cfg.EjectaThreshold*rad {
		return 0
	}
	return cfg.EjectaA * math.Pow(rad, cfg.EjectaB) * math.Pow(dist/rad, cfg.EjectaC)
}

// ThicknessMatrix applies Thickness to each [crater][coldtrap] distance.
func ThicknessMatrix(list craters.List, dists [][]float64, cfg *config.Config) [][]float64 {
	out := make([][]float64, len(dists))
	for i, row := range dists {
		out[i] = make([]float64, len(row))
		for j, d := range row {
			out[i][j] = Thickness(d, list[i].Rad, cfg)
		}
	}
	return out
}

// BallisticVelocity is the launch speed [m/s] needed to land dist away on a
// sphere for a 45 degree trajectory.
func BallisticVelocity(dist float64, cfg *config.Config) float64 {
	half := math.Tan(dist / cfg.RadMoon / 2)
	return math.Sqrt(cfg.GravMoon * cfg.RadMoon * half / (1 + half))
}

func KineticEnergy(mass, vel float64) float64 {
	return 0.5 * mass * vel * vel
}

// ArrivalEnergy is the kinetic energy per unit area [J/m^2] of an ejecta
// deposit thick [m] landing dist [m] from its crater.
func ArrivalEnergy(thick, dist float64, cfg *config.Config) float64 {
	if thick <= 0 || math.IsNaN(dist) || dist <= 0 {
		return 0
	}
	return KineticEnergy(thick*cfg.BulkDensity, BallisticVelocity(dist, cfg))
}

// MixingRatio is the Oberbeck ratio of local material to primary ejecta at
// dist [m] from the source crater.
func MixingRatio(dist float64, cfg *config.Config) float64 {
	if math.IsNaN(dist) || dist <= 0 {
		return 0
	}
	return cfg.MixingRatioA * math.Pow(dist/1e3, cfg.MixingRatioB)
}

// BsedDepth is the depth of local material reworked by ejecta of the given
// thickness and mixing ratio.
func BsedDepth(thick, mr float64) float64 {
	return thick * mr
}

// VolatilizedFrac is the fraction of ice lost in the mixed ejecta layer. The
// mixture equilibrates at (T_ej + mr*T_ct)/(1+mr) and loses nothing below
// coldtrap_max_temp, everything above ice_sublimation_temp. A non-negative
// bsed_loss_frac replaces the thermal model.
func VolatilizedFrac(ejTemp, mr float64, cfg *config.Config) float64 {
	if cfg.BsedLossFrac >= 0 {
		return cfg.BsedLossFrac
	}
	t := (ejTemp + mr*cfg.ColdtrapMaxTemp) / (1 + mr)
	switch {
	case t <= cfg.ColdtrapMaxTemp:
		return 0
	case t >= cfg.IceSublimationTemp:
		return 1
	}
	return (t - cfg.ColdtrapMaxTemp) / (cfg.IceSublimationTemp - cfg.ColdtrapMaxTemp)
}

// Temp is the initial ejecta temperature [K] of a crater.
func Temp(c craters.Crater, cfg *config.Config) float64 {
	if !c.IsBasin {
		return cfg.PolarEjectaTemp
	}
	if cfg.BasinWarm {
		return cfg.BasinEjectaTempWarm
	}
	return cfg.BasinEjectaTempCold
}
