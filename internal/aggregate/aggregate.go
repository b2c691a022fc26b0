// Package aggregate summarises ensembles across seeds.
package aggregate

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/san-kum/icestrat/internal/stats"
	"github.com/san-kum/icestrat/internal/storage/sqlite"
)

// Summary describes the spread of one quantity over seeds.
type Summary struct {
	N      int
	Mean   float64
	Median float64
	P5     float64
	P25    float64
	P75    float64
	P95    float64
	Max    float64
}

func Summarize(values []float64) Summary {
	if len(values) == 0 {
		nan := math.NaN()
		return Summary{Mean: nan, Median: nan, P5: nan, P25: nan, P75: nan, P95: nan, Max: nan}
	}
	return Summary{
		N:      len(values),
		Mean:   stats.Mean(values),
		Median: stats.Percentile(values, 50),
		P5:     stats.Percentile(values, 5),
		P25:    stats.Percentile(values, 25),
		P75:    stats.Percentile(values, 75),
		P95:    stats.Percentile(values, 95),
		Max:    stats.Percentile(values, 100),
	}
}

// Row is the summary of one metric for one cold trap of one run name.
type Row struct {
	RunName  string
	Coldtrap string
	Metric   string
	Summary
}

// Index is the subset of the run index aggregation reads.
type Index interface {
	Coldtraps(ctx context.Context, runName string) ([]string, error)
	Values(ctx context.Context, runName, coldtrap, metric string) ([]float64, error)
	Layers(ctx context.Context, runName, coldtrap string) ([]sqlite.LayerRow, error)
}

// ByColdtrap summarises metric for every cold trap of each run name.
func ByColdtrap(ctx context.Context, idx Index, runNames []string, metric string) ([]Row, error) {
	var rows []Row
	for _, name := range runNames {
		cts, err := idx.Coldtraps(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(cts) == 0 {
			return nil, fmt.Errorf("no results for run %s", name)
		}
		for _, ct := range cts {
			vals, err := idx.Values(ctx, name, ct, metric)
			if err != nil {
				return nil, err
			}
			rows = append(rows, Row{RunName: name, Coldtrap: ct, Metric: metric, Summary: Summarize(vals)})
		}
	}
	return rows, nil
}

// Comparison pairs the summaries of two run names for one cold trap.
type Comparison struct {
	Coldtrap string
	A, B     Summary
	// Ratio is the ratio of medians, B over A.
	Ratio float64
}

// Compare summarises metric in runs a and b for the cold traps they share.
func Compare(ctx context.Context, idx Index, a, b, metric string) ([]Comparison, error) {
	ctsA, err := idx.Coldtraps(ctx, a)
	if err != nil {
		return nil, err
	}
	ctsB, err := idx.Coldtraps(ctx, b)
	if err != nil {
		return nil, err
	}
	inB := make(map[string]bool, len(ctsB))
	for _, ct := range ctsB {
		inB[ct] = true
	}

	var out []Comparison
	for _, ct := range ctsA {
		if !inB[ct] {
			continue
		}
		va, err := idx.Values(ctx, a, ct, metric)
		if err != nil {
			return nil, err
		}
		vb, err := idx.Values(ctx, b, ct, metric)
		if err != nil {
			return nil, err
		}
		c := Comparison{Coldtrap: ct, A: Summarize(va), B: Summarize(vb), Ratio: math.NaN()}
		if c.A.Median != 0 {
			c.Ratio = c.B.Median / c.A.Median
		}
		out = append(out, c)
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}

// WriteRunsCSV writes one line per run name, cold trap and metric.
func WriteRunsCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	header := []string{"run_name", "coldtrap", "metric", "n", "mean", "median", "p5", "p25", "p75", "p95", "max"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.RunName, r.Coldtrap, r.Metric, strconv.Itoa(r.N),
			formatFloat(r.Mean), formatFloat(r.Median), formatFloat(r.P5), formatFloat(r.P25),
			formatFloat(r.P75), formatFloat(r.P95), formatFloat(r.Max),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLayersCSV writes every layer of the given cold traps across seeds.
func WriteLayersCSV(ctx context.Context, w io.Writer, idx Index, runName string, coldtraps []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"run_name", "seed", "coldtrap", "ice", "ejecta", "source", "time_bot", "time_top", "depth", "ice_pct"}); err != nil {
		return err
	}
	for _, ct := range coldtraps {
		layers, err := idx.Layers(ctx, runName, ct)
		if err != nil {
			return err
		}
		for _, l := range layers {
			rec := []string{
				runName, strconv.FormatInt(l.Seed, 10), ct,
				formatFloat(l.Ice), formatFloat(l.Ejecta), l.Source,
				formatFloat(l.TimeBot), formatFloat(l.TimeTop), formatFloat(l.Depth),
				formatFloat(l.IcePct()),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
