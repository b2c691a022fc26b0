package config

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToMap flattens the config to its file keys, the same shape a config file has.
func (c *Config) ToMap() (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FromMap builds a config from file keys over the defaults.
func FromMap(m map[string]any) (*Config, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if strings.Contains(err.Error(), "not found in type") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownKey, err)
		}
		return nil, err
	}
	return cfg, nil
}

// With returns a copy of c with the given keys replaced.
func (c *Config) With(overrides map[string]any) (*Config, error) {
	m, err := c.ToMap()
	if err != nil {
		return nil, err
	}
	for _, k := range sortedKeys(overrides) {
		if _, ok := m[k]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, k)
		}
		m[k] = overrides[k]
	}
	return FromMap(m)
}

// ParseOverride splits "key=value" and decodes value as a yaml scalar or list.
func ParseOverride(s string) (string, any, error) {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, fmt.Errorf("override %q: expected key=value", s)
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return "", nil, fmt.Errorf("override %q: %w", s, err)
	}
	return key, v, nil
}

// ParseOverrides applies ParseOverride to each entry.
func ParseOverrides(items []string) (map[string]any, error) {
	out := make(map[string]any, len(items))
	for _, item := range items {
		k, v, err := ParseOverride(item)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
