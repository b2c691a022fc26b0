// Package strat builds the ice and ejecta stratigraphy of each cold trap by
// stepping through time.
package strat

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/craters"
	"github.com/san-kum/icestrat/internal/ejecta"
)

// Observer is notified after every timestep.
type Observer interface {
	OnStep(step int, time float64, cols []*Column)
}

// Inputs are the precomputed per-run arrays the model steps through.
type Inputs struct {
	Time      []float64
	Craters   craters.List
	Coldtraps craters.List
	Dists     [][]float64 // [crater][coldtrap] m
	Thick     [][]float64 // [crater][coldtrap] m
	Ice       [][]float64 // [coldtrap][step] delivered m
	Overturn  []float64   // gardening depth per step [m]
}

// Losses records the ice removed per step and cold trap, and the energy of
// the ejecta that removed it.
type Losses struct {
	Gardening    [][]float64 // [coldtrap][step]
	Bsed         [][]float64
	BsedDepth    [][]float64
	EjectaEnergy [][]float64 // [J/m^2]
}

type Model struct {
	cfg       *config.Config
	in        Inputs
	observers []Observer
	byStep    [][]int
}

func New(cfg *config.Config, in Inputs) (*Model, error) {
	n := len(in.Time)
	if len(in.Overturn) != n {
		return nil, fmt.Errorf("%w: %d steps, %d overturn", ErrShapeMismatch, n, len(in.Overturn))
	}
	if len(in.Ice) != len(in.Coldtraps) {
		return nil, fmt.Errorf("%w: %d cold traps, %d ice series", ErrShapeMismatch, len(in.Coldtraps), len(in.Ice))
	}
	for j, series := range in.Ice {
		if len(series) != n {
			return nil, fmt.Errorf("%w: %d steps, %d ice for %s", ErrShapeMismatch, n, len(series), in.Coldtraps[j].Name)
		}
	}
	if len(in.Thick) != len(in.Craters) || len(in.Dists) != len(in.Craters) {
		return nil, fmt.Errorf("%w: %d craters, %d thickness rows, %d distance rows",
			ErrShapeMismatch, len(in.Craters), len(in.Thick), len(in.Dists))
	}
	m := &Model{cfg: cfg, in: in, byStep: make([][]int, n)}
	for i, c := range in.Craters {
		idx := cfg.TimeIndex(c.Age)
		m.byStep[idx] = append(m.byStep[idx], i)
	}
	return m, nil
}

func (m *Model) AddObserver(o Observer) { m.observers = append(m.observers, o) }

// Run steps from the oldest timestep to the present. In each step every
// formed cold trap receives ice, is gardened, loses ice to ballistic
// sedimentation and is then buried by that step's ejecta.
func (m *Model) Run(ctx context.Context) ([]*Column, *Losses, error) {
	n := len(m.in.Time)
	cols := make([]*Column, len(m.in.Coldtraps))
	losses := &Losses{
		Gardening:    make([][]float64, len(cols)),
		Bsed:         make([][]float64, len(cols)),
		BsedDepth:    make([][]float64, len(cols)),
		EjectaEnergy: make([][]float64, len(cols)),
	}
	for j, ct := range m.in.Coldtraps {
		cols[j] = NewColumn(ct.Name, m.cfg.TimeIndex(ct.Age), n)
		losses.Gardening[j] = make([]float64, n)
		losses.Bsed[j] = make([]float64, n)
		losses.BsedDepth[j] = make([]float64, n)
		losses.EjectaEnergy[j] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		for j, col := range cols {
			if i < col.Formation {
				continue
			}
			col.Ice[i] += m.in.Ice[j][i]

			if m.cfg.ImpactGardening {
				losses.Gardening[j][i] = col.RemoveOverturn(i, m.in.Overturn[i])
			}

			var maxEj float64
			for _, k := range m.byStep[i] {
				th := m.in.Thick[k][j]
				if th <= 0 {
					continue
				}
				if m.cfg.BallisticSed {
					mr := ejecta.MixingRatio(m.in.Dists[k][j], m.cfg)
					depth := ejecta.BsedDepth(th, mr)
					frac := ejecta.VolatilizedFrac(ejecta.Temp(m.in.Craters[k], m.cfg), mr, m.cfg)
					losses.Bsed[j][i] += col.RemoveBsed(i, depth, frac)
					losses.BsedDepth[j][i] = math.Max(losses.BsedDepth[j][i], depth)
				}
				col.Ejecta[i] += th
				losses.EjectaEnergy[j][i] += ejecta.ArrivalEnergy(th, m.in.Dists[k][j], m.cfg)
				if th > maxEj {
					maxEj = th
					col.Source[i] = m.in.Craters[k].Name
				}
			}

			if col.Ice[i] < 0 || col.Ejecta[i] < 0 {
				return nil, nil, &StepError{Step: i, Time: m.in.Time[i], Coldtrap: col.Name, Wrapped: ErrNegativeThickness}
			}
		}

		for _, o := range m.observers {
			o.OnStep(i, m.in.Time[i], cols)
		}
	}
	return cols, losses, nil
}
