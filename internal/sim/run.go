// Package sim wires crater geometry, ice sources and the stratigraphy model
// into single runs and seeded ensembles.
package sim

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/craters"
	"github.com/san-kum/icestrat/internal/ejecta"
	"github.com/san-kum/icestrat/internal/ice"
	"github.com/san-kum/icestrat/internal/impact"
	"github.com/san-kum/icestrat/internal/metrics"
	"github.com/san-kum/icestrat/internal/strat"
	"github.com/san-kum/icestrat/internal/telemetry"
)

var tracer = telemetry.Tracer("sim")

type options struct {
	logger    *log.Logger
	observers []strat.Observer
	registry  *ice.Registry
}

type Option func(*options)

// WithLogger logs each phase of the run.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithObserver(obs strat.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithRegistry replaces the default ice sources.
func WithRegistry(r *ice.Registry) Option {
	return func(o *options) { o.registry = r }
}

// Run simulates one seed of cfg.
func Run(ctx context.Context, cfg *config.Config, opts ...Option) (res *Result, err error) {
	o := options{logger: log.New(io.Discard, "", 0), registry: ice.NewRegistry()}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := tracer.Start(ctx, "sim.Run")
	span.SetAttributes(
		attribute.String("icestrat.run_name", cfg.RunName),
		attribute.Int64("icestrat.seed", cfg.Seed),
		attribute.String("icestrat.mode", cfg.Mode),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	times := cfg.TimeArray()

	list, err := craters.CraterBasinList(cfg, rng)
	if err != nil {
		return nil, fmt.Errorf("crater list: %w", err)
	}
	coldtraps, err := craters.Coldtraps(list, cfg)
	if err != nil {
		return nil, err
	}
	dists, err := craters.ColdtrapDists(list, cfg)
	if err != nil {
		return nil, err
	}
	thick := ejecta.ThicknessMatrix(list, dists, cfg)
	o.logger.Printf("seed %d: %d craters, %d cold traps, %d steps", cfg.Seed, len(list), len(coldtraps), len(times))

	_, iceSpan := tracer.Start(ctx, "ice.ByModule")
	byModule := o.registry.ByModule(ice.Input{Cfg: cfg, Time: times, Craters: list, Rng: rng})
	iceSpan.End()

	for _, name := range o.registry.List() {
		if series, ok := byModule[name]; ok {
			o.logger.Printf("seed %d: %s delivered %.3g m", cfg.Seed, name, sum(series))
		}
	}
	hops, err := craters.ColdtrapHop(coldtraps, cfg)
	if err != nil {
		return nil, err
	}
	delivered := o.registry.PerColdtrap(byModule, hops, len(times), cfg)

	overturn := make([]float64, len(times))
	for i, t := range times {
		overturn[i] = impact.OverturnDepth(t, cfg)
	}

	model, err := strat.New(cfg, strat.Inputs{
		Time:      times,
		Craters:   list,
		Coldtraps: coldtraps,
		Dists:     dists,
		Thick:     thick,
		Ice:       delivered,
		Overturn:  overturn,
	})
	if err != nil {
		return nil, err
	}
	for _, obs := range o.observers {
		model.AddObserver(obs)
	}

	stratCtx, stratSpan := tracer.Start(ctx, "strat.Run")
	cols, losses, err := model.Run(stratCtx)
	stratSpan.End()
	if err != nil {
		return nil, err
	}

	res = &Result{
		Config:      cfg,
		Time:        times,
		Craters:     list,
		Columns:     cols,
		Layers:      make(map[string][]strat.Layer, len(cols)),
		Metrics:     make(map[string]map[string]float64, len(cols)),
		IceByModule: byModule,
		Hops:        hops,
		Overturn:    overturn,
		Losses:      losses,
	}
	ms := metrics.Default(cfg)
	for j, col := range cols {
		layers := strat.Layers(col, times)
		res.Layers[col.Name] = layers
		res.Metrics[col.Name] = metrics.Compute(ms, col, layers)
		o.logger.Printf("seed %d: %s total ice %.3f m in %d layers, peak ejecta energy %.3g J/m^2",
			cfg.Seed, col.Name, col.TotalIce(), len(layers), slices.Max(losses.EjectaEnergy[j]))
	}
	return res, nil
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}
