// Package metrics summarises a finished cold trap column.
package metrics

import (
	"fmt"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/strat"
)

type Metric interface {
	Name() string
	Observe(col *strat.Column, layers []strat.Layer)
	Value() float64
	Reset()
}

type TotalIce struct{ value float64 }

func NewTotalIce() *TotalIce { return &TotalIce{} }

func (m *TotalIce) Name() string { return "total_ice" }

func (m *TotalIce) Observe(col *strat.Column, _ []strat.Layer) { m.value = col.TotalIce() }

func (m *TotalIce) Value() float64 { return m.value }

func (m *TotalIce) Reset() { m.value = 0 }

// IceWithin is the ice in the top depth metres of the column.
type IceWithin struct {
	name  string
	depth float64
	value float64
}

func NewIceWithin(depth float64) *IceWithin {
	return &IceWithin{name: fmt.Sprintf("ice_%gm", depth), depth: depth}
}

func (m *IceWithin) Name() string { return m.name }

func (m *IceWithin) Observe(col *strat.Column, _ []strat.Layer) { m.value = col.IceWithin(m.depth) }

func (m *IceWithin) Value() float64 { return m.value }

func (m *IceWithin) Reset() { m.value = 0 }

type EjectaTotal struct{ value float64 }

func NewEjectaTotal() *EjectaTotal { return &EjectaTotal{} }

func (m *EjectaTotal) Name() string { return "ejecta" }

func (m *EjectaTotal) Observe(col *strat.Column, _ []strat.Layer) { m.value = col.TotalEjecta() }

func (m *EjectaTotal) Value() float64 { return m.value }

func (m *EjectaTotal) Reset() { m.value = 0 }

// MaxLayer is the thickest ice layer.
type MaxLayer struct{ value float64 }

func NewMaxLayer() *MaxLayer { return &MaxLayer{} }

func (m *MaxLayer) Name() string { return "max_layer" }

func (m *MaxLayer) Observe(_ *strat.Column, layers []strat.Layer) {
	m.value = 0
	for _, l := range layers {
		if l.Ice > m.value {
			m.value = l.Ice
		}
	}
}

func (m *MaxLayer) Value() float64 { return m.value }

func (m *MaxLayer) Reset() { m.value = 0 }

// LayerCount counts layers holding at least minIce metres of ice.
type LayerCount struct {
	minIce float64
	count  int
}

func NewLayerCount(minIce float64) *LayerCount { return &LayerCount{minIce: minIce} }

func (m *LayerCount) Name() string { return "layers" }

func (m *LayerCount) Observe(_ *strat.Column, layers []strat.Layer) {
	m.count = 0
	for _, l := range layers {
		if l.Ice > 0 && l.Ice >= m.minIce {
			m.count++
		}
	}
}

func (m *LayerCount) Value() float64 { return float64(m.count) }

func (m *LayerCount) Reset() { m.count = 0 }

// Default is the metric set recorded for every cold trap.
func Default(cfg *config.Config) []Metric {
	ms := []Metric{NewTotalIce(), NewEjectaTotal(), NewMaxLayer(), NewLayerCount(0)}
	for _, d := range cfg.SurfaceDepths {
		ms = append(ms, NewIceWithin(d))
	}
	return ms
}

// Compute resets, observes and reads every metric.
func Compute(ms []Metric, col *strat.Column, layers []strat.Layer) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		m.Observe(col, layers)
		out[m.Name()] = m.Value()
	}
	return out
}
