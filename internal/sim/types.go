package sim

import (
	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/craters"
	"github.com/san-kum/icestrat/internal/strat"
)

// Result is one seed of a run.
type Result struct {
	Config      *config.Config
	Time        []float64
	Craters     craters.List
	Columns     []*strat.Column
	Layers      map[string][]strat.Layer
	Metrics     map[string]map[string]float64 // cold trap -> metric -> value
	IceByModule map[string][]float64 // at ballistic_hop_efficiency
	Hops        []float64            // ballistic hop efficiency per column
	Overturn    []float64
	Losses      *strat.Losses
}

func (r *Result) Seed() int64 { return r.Config.Seed }

// Column returns the named cold trap column, or nil.
func (r *Result) Column(name string) *strat.Column {
	for _, c := range r.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}
