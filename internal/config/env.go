package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ApplyEnv overrides fields tagged with ICESTRAT_* variables that are set in
// the environment. Unset variables leave the current value alone.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Resolve builds the effective config: defaults, then preset, then file, then
// environment. Empty preset or path skip that layer.
func Resolve(preset, path string) (*Config, error) {
	cfg := DefaultConfig()
	if preset != "" {
		p, err := GetPreset(preset)
		if err != nil {
			return nil, err
		}
		cfg = p
	}
	if path != "" {
		m, err := cfg.ToMap()
		if err != nil {
			return nil, err
		}
		fileCfg, err := loadOver(path, m)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadOver(path string, base map[string]any) (*Config, error) {
	cfg, err := FromMap(base)
	if err != nil {
		return nil, err
	}
	fileCfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	// Keys present in the file win; everything else keeps the preset value.
	keys, err := fileKeys(path)
	if err != nil {
		return nil, err
	}
	fileMap, err := fileCfg.ToMap()
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]any, len(keys))
	for _, k := range keys {
		overrides[k] = fileMap[k]
	}
	return cfg.With(overrides)
}
