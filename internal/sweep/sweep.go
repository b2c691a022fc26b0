// Package sweep runs ensembles over a grid of config values.
package sweep

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/sim"
)

type GridSearch struct {
	paramNames []string
	values     [][]any
}

func NewGridSearch(params []string, values [][]any) *GridSearch {
	return &GridSearch{paramNames: params, values: values}
}

// ParseParam splits "key=v1,v2,..." with each value decoded as yaml.
func ParseParam(s string) (string, []any, error) {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" || raw == "" {
		return "", nil, fmt.Errorf("sweep param %q: expected key=v1,v2", s)
	}
	var vals []any
	for _, part := range strings.Split(raw, ",") {
		var v any
		if err := yaml.Unmarshal([]byte(part), &v); err != nil {
			return "", nil, fmt.Errorf("sweep param %q: %w", s, err)
		}
		vals = append(vals, v)
	}
	return key, vals, nil
}

// Points enumerates every combination, last parameter varying fastest.
func (g *GridSearch) Points() []map[string]any {
	var out []map[string]any
	g.pointsRecursive(0, map[string]any{}, &out)
	return out
}

func (g *GridSearch) pointsRecursive(depth int, current map[string]any, out *[]map[string]any) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}
	name := g.paramNames[depth]
	for _, val := range g.values[depth] {
		next := make(map[string]any, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val
		g.pointsRecursive(depth+1, next, out)
	}
}

// Point is one evaluated grid point.
type Point struct {
	Params map[string]any
	Config *config.Config
	// Values maps cold trap to the ensemble mean of the swept metric.
	Values map[string]float64
}

// Evaluate runs an ensemble for one config and reduces it to per cold trap
// values.
type Evaluate func(ctx context.Context, cfg *config.Config) (map[string]float64, error)

// Run evaluates every grid point on a copy of base. Each point gets a run
// name derived from its parameters.
func (g *GridSearch) Run(ctx context.Context, base *config.Config, eval Evaluate) ([]Point, error) {
	var points []Point
	for _, params := range g.Points() {
		if err := ctx.Err(); err != nil {
			return points, err
		}
		cfg, err := base.With(params)
		if err != nil {
			return points, err
		}
		cfg.RunName = PointName(base.RunName, params)
		if err := cfg.Validate(); err != nil {
			return points, fmt.Errorf("%s: %w", cfg.RunName, err)
		}
		vals, err := eval(ctx, cfg)
		if err != nil {
			return points, fmt.Errorf("%s: %w", cfg.RunName, err)
		}
		points = append(points, Point{Params: params, Config: cfg, Values: vals})
	}
	return points, nil
}

// PointName appends sorted key-value pairs to a run name.
func PointName(base string, params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := []string{base}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s-%v", k, params[k]))
	}
	return strings.NewReplacer("/", "_", " ", "").Replace(strings.Join(parts, "_"))
}

// EnsembleMean returns an Evaluate running runs seeds from seedStart and
// averaging metric per cold trap.
func EnsembleMean(runs int, seedStart int64, workers int, metric string) Evaluate {
	return func(ctx context.Context, cfg *config.Config) (map[string]float64, error) {
		e := &sim.Ensemble{Runs: runs, SeedStart: seedStart, Workers: workers}
		results, err := e.Run(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return MeanMetric(results, metric), nil
	}
}

func MeanMetric(results []*sim.Result, metric string) map[string]float64 {
	out := make(map[string]float64)
	if len(results) == 0 {
		return out
	}
	for _, r := range results {
		for ct, ms := range r.Metrics {
			out[ct] += ms[metric] / float64(len(results))
		}
	}
	return out
}

// Best returns the point with the largest value for coldtrap.
func Best(points []Point, coldtrap string) (Point, bool) {
	var best Point
	found := false
	for _, p := range points {
		v, ok := p.Values[coldtrap]
		if !ok {
			continue
		}
		if !found || v > best.Values[coldtrap] {
			best, found = p, true
		}
	}
	return best, found
}
