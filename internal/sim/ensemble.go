package sim

import (
	"context"
	"runtime"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/icestrat/internal/config"
)

// Ensemble runs seeds SeedStart..SeedStart+Runs-1 of one config in parallel.
// Results are indexed by seed offset, so the output does not depend on
// Workers.
type Ensemble struct {
	Runs      int
	SeedStart int64
	Workers   int
	// OnDone is called after each finished run with the running count.
	OnDone func(done, total int)
	Opts   []Option
}

func NewEnsemble(runs int, seedStart int64) *Ensemble {
	return &Ensemble{Runs: runs, SeedStart: seedStart, Workers: runtime.NumCPU()}
}

func (e *Ensemble) Run(ctx context.Context, cfg *config.Config) ([]*Result, error) {
	ctx, span := tracer.Start(ctx, "sim.Ensemble")
	span.SetAttributes(
		attribute.String("icestrat.run_name", cfg.RunName),
		attribute.Int("icestrat.runs", e.Runs),
		attribute.Int64("icestrat.seed_start", e.SeedStart),
	)
	defer span.End()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	results := make([]*Result, e.Runs)
	g, ctx := errgroup.WithContext(ctx)
	if e.Workers > 0 {
		g.SetLimit(e.Workers)
	}

	var (
		mu   sync.Mutex
		done int
	)
	for i := 0; i < e.Runs; i++ {
		idx := i
		g.Go(func() error {
			c := cfg.Clone()
			c.Seed = e.SeedStart + int64(idx)
			res, err := Run(ctx, c, e.Opts...)
			if err != nil {
				return err
			}
			results[idx] = res

			if e.OnDone != nil {
				mu.Lock()
				done++
				n := done
				mu.Unlock()
				e.OnDone(n, e.Runs)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return results, nil
}

// ModuleSummary is the mean ice delivered by each source and the mean loss
// depths over an ensemble.
type ModuleSummary struct {
	Time      []float64
	Ice       map[string][]float64 // [m] per step
	Overturn  []float64            // [m] per step
	BsedDepth []float64            // [m] per step, max over cold traps
}

// ByModule averages per-source ice and loss depths over results.
func ByModule(results []*Result) *ModuleSummary {
	if len(results) == 0 {
		return &ModuleSummary{Ice: map[string][]float64{}}
	}
	n := len(results[0].Time)
	s := &ModuleSummary{
		Time:      results[0].Time,
		Ice:       make(map[string][]float64),
		Overturn:  make([]float64, n),
		BsedDepth: make([]float64, n),
	}
	w := 1 / float64(len(results))
	for _, r := range results {
		for name, series := range r.IceByModule {
			acc, ok := s.Ice[name]
			if !ok {
				acc = make([]float64, n)
				s.Ice[name] = acc
			}
			for i, v := range series {
				acc[i] += v * w
			}
		}
		for i := 0; i < n; i++ {
			s.Overturn[i] += r.Overturn[i] * w
			var depth float64
			for _, d := range r.Losses.BsedDepth {
				if d[i] > depth {
					depth = d[i]
				}
			}
			s.BsedDepth[i] += depth * w
		}
	}
	return s
}
