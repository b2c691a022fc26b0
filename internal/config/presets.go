package config

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownPreset = errors.New("unknown preset")

// Presets are named variations of the default run, keyed by run name. Each
// entry is applied on top of DefaultConfig.
var Presets = map[string]map[string]any{
	"baseline": {},
	"moonpies": {},
	"no_bsed": {
		"ballistic_sed": false,
	},
	"bsed_50pct": {
		"bsed_loss_frac": 0.5,
	},
	"comet_100pct": {
		"comet_hydrated_wt_pct": 1.0,
	},
	"no_gardening": {
		"impact_gardening": false,
	},
	"cannon": {
		"mode":                 ModeCannon,
		"ballistic_sed":        false,
		"ballistic_hop_moores": false,
		"impact_ice_comets":    false,
		"impact_ice_basins":    false,
		"volc_ice":             true,
		"solar_wind_ice":       false,
	},
}

// GetPreset returns a fresh config for the named preset with RunName set to it.
func GetPreset(name string) (*Config, error) {
	overrides, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownPreset, name, ListPresets())
	}
	cfg, err := DefaultConfig().With(overrides)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", name, err)
	}
	cfg.RunName = name
	return cfg, nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
