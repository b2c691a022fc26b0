package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports every invalid parameter at once, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.RunName) == "" {
		add("run_name is required")
	}
	if strings.ContainsAny(c.RunName, `/\`) {
		add("run_name must not contain path separators, got %q", c.RunName)
	}
	if c.Mode != ModeMoonpies && c.Mode != ModeCannon {
		add("mode must be %q or %q, got %q", ModeMoonpies, ModeCannon, c.Mode)
	}
	if c.Timestep <= 0 {
		add("timestep must be positive, got %g", c.Timestep)
	}
	if c.TimeEnd < 0 {
		add("time_end must be non-negative, got %g", c.TimeEnd)
	}
	if c.TimeStart <= c.TimeEnd {
		add("time_start (%g) must be greater than time_end (%g)", c.TimeStart, c.TimeEnd)
	}

	positive := map[string]float64{
		"rad_moon":         c.RadMoon,
		"grav_moon":        c.GravMoon,
		"bulk_density":     c.BulkDensity,
		"ice_density":      c.IceDensity,
		"target_density":   c.TargetDensity,
		"impactor_density": c.ImpactorDensity,
		"comet_density":    c.CometDensity,
		"coldtrap_area":    c.ColdtrapArea,
		"simple2complex":   c.Simple2Complex,
		"complex2peakring": c.Complex2Peakring,
		"escape_vel":       c.EscapeVel,
		"comet_speed_max":  c.CometSpeedMax,
		"impact_speed_sd":  c.ImpactSpeedSD,
	}
	for _, name := range sortedKeys(positive) {
		if positive[name] <= 0 {
			add("%s must be positive, got %g", name, positive[name])
		}
	}

	fractions := map[string]float64{
		"ballistic_hop_efficiency": c.BallisticHopEfficiency,
		"ctype_frac":               c.CtypeFrac,
		"hydrated_wt_pct":          c.HydratedWtPct,
		"comet_hydrated_wt_pct":    c.CometHydratedWtPct,
		"comet_frac":               c.CometFrac,
		"impact_mass_retained":     c.ImpactMassRetained,
		"volc_early_pct":           c.VolcEarlyPct,
		"volc_late_pct":            c.VolcLatePct,
		"volc_pole_pct":            c.VolcPolePct,
	}
	for _, name := range sortedKeys(fractions) {
		if v := fractions[name]; v < 0 || v > 1 {
			add("%s must be in [0, 1], got %g", name, v)
		}
	}
	if c.BsedLossFrac > 1 || (c.BsedLossFrac < 0 && c.BsedLossFrac != -1) {
		add("bsed_loss_frac must be -1 or in [0, 1], got %g", c.BsedLossFrac)
	}
	if c.EjectaThreshold <= 0 && c.EjectaThreshold != -1 {
		add("ejecta_threshold must be -1 or positive, got %g", c.EjectaThreshold)
	}
	if c.Simple2Complex >= c.Complex2Peakring {
		add("simple2complex (%g) must be below complex2peakring (%g)", c.Simple2Complex, c.Complex2Peakring)
	}
	if c.ImpactSpeedMean <= c.EscapeVel || c.ImpactSpeedMean >= c.CometSpeedMax {
		add("impact_speed_mean must be between escape_vel and comet_speed_max, got %g", c.ImpactSpeedMean)
	}
	if c.ImpactAngle <= 0 || c.ImpactAngle > 90 {
		add("impact_angle must be in (0, 90], got %g", c.ImpactAngle)
	}
	if c.ColdtrapMaxTemp >= c.IceSublimationTemp {
		add("coldtrap_max_temp must be below ice_sublimation_temp")
	}
	if len(c.ColdtrapNames) == 0 {
		add("coldtrap_names must not be empty")
	}
	seen := make(map[string]bool, len(c.ColdtrapNames))
	for _, name := range c.ColdtrapNames {
		if seen[name] {
			add("coldtrap_names has duplicate %q", name)
		}
		seen[name] = true
	}
	if len(c.NeukumPF) == 0 {
		add("neukum_pf must not be empty")
	}

	var wsum float64
	for i, comp := range c.CometSpeeds {
		if comp.SD <= 0 {
			add("comet_speeds[%d].sd must be positive", i)
		}
		if comp.Weight < 0 {
			add("comet_speeds[%d].weight must be non-negative", i)
		}
		wsum += comp.Weight
	}
	if len(c.CometSpeeds) == 0 || wsum <= 0 {
		add("comet_speeds needs at least one component with positive weight")
	}

	for _, name := range []string{"b", "c", "d", "e"} {
		r, ok := c.ImpactRegimes[name]
		if !ok {
			add("impact_regimes is missing regime %q", name)
			continue
		}
		if r.Min <= 0 || r.Max <= r.Min {
			add("impact_regimes.%s needs 0 < min < max, got [%g, %g]", name, r.Min, r.Max)
		}
		if r.Bins <= 0 {
			add("impact_regimes.%s.bins must be positive", name)
		}
	}
	for _, name := range []string{"c", "d", "e"} {
		prev := string(rune(name[0] - 1))
		if name == "c" {
			continue
		}
		if c.ImpactRegimes[prev].Max > c.ImpactRegimes[name].Min {
			add("impact_regimes.%s overlaps impact_regimes.%s", prev, name)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
