package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/icestrat/internal/automation"
	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/craters"
	"github.com/san-kum/icestrat/internal/grid"
	"github.com/san-kum/icestrat/internal/sim"
	"github.com/san-kum/icestrat/internal/storage"
	"github.com/san-kum/icestrat/internal/storage/sqlite"
	"github.com/san-kum/icestrat/internal/sweep"
	"github.com/san-kum/icestrat/internal/viz"
)

func openRecorder(ctx context.Context, out string) (*automation.Recorder, error) {
	st := storage.New(out)
	if err := st.Init(); err != nil {
		return nil, err
	}
	idx, err := sqlite.Open(ctx, filepath.Join(out, sqlite.IndexFile))
	if err != nil {
		return nil, err
	}
	return &automation.Recorder{Dir: st, Index: idx}, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rec, err := openRecorder(ctx, cfg.OutPath)
	if err != nil {
		return err
	}
	defer rec.Index.Close()

	fmt.Printf("running %s seed %d...\n", cfg.RunName, cfg.Seed)
	start := time.Now()

	res, err := sim.Run(ctx, cfg, sim.WithLogger(runLogger(cfg)))
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	dir, err := rec.Record(ctx, res)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("outputs: %s\n\n", dir)
	fmt.Println(viz.MetricsTable(res.Metrics, cfg.ColdtrapNames))
	return nil
}

// ensemble runs cfg over the flagged seeds, showing progress unless --no-tui.
func ensemble(ctx context.Context, cfg *config.Config) ([]*sim.Result, error) {
	e := &sim.Ensemble{Runs: runs, SeedStart: seedStart, Workers: workers}
	if workers <= 0 {
		e.Workers = sim.NewEnsemble(runs, seedStart).Workers
	}
	if cfg.Verbose {
		e.Opts = append(e.Opts, sim.WithLogger(logger))
	}

	if noTUI {
		e.OnDone = func(done, total int) {
			if cfg.Verbose {
				logger.Printf("%d/%d runs done", done, total)
			}
		}
		return e.Run(ctx, cfg)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	title := fmt.Sprintf("%s: seeds %d to %d", cfg.RunName, seedStart, seedStart+int64(runs)-1)
	p := tea.NewProgram(viz.NewProgressModel(title, runs), tea.WithOutput(os.Stderr))
	e.OnDone = func(done, total int) { p.Send(viz.ProgressMsg{Done: done, Total: total}) }

	type outcome struct {
		res []*sim.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := e.Run(ctx, cfg)
		p.Send(viz.DoneMsg{Err: err})
		done <- outcome{res, err}
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return nil, err
	}
	// quitting the view cancels outstanding runs
	cancel()
	out := <-done
	return out.res, out.err
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rec, err := openRecorder(ctx, cfg.OutPath)
	if err != nil {
		return err
	}
	defer rec.Index.Close()

	start := time.Now()
	results, err := ensemble(ctx, cfg)
	if err != nil {
		return err
	}
	for _, res := range results {
		if _, err := rec.Record(ctx, res); err != nil {
			return err
		}
	}
	fmt.Printf("%d runs completed in %v\n\n", len(results), time.Since(start).Round(time.Millisecond))

	means := map[string]map[string]float64{}
	for _, name := range []string{"total_ice", "ejecta"} {
		for ct, v := range sweep.MeanMetric(results, name) {
			if means[ct] == nil {
				means[ct] = map[string]float64{}
			}
			means[ct]["mean_"+name] = v
		}
	}
	fmt.Println(viz.MetricsTable(means, cfg.ColdtrapNames))
	return nil
}

func plotModules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	results, err := ensemble(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	summary := sim.ByModule(results)
	fmt.Println(viz.ModulePlot(summary))
	fmt.Println()

	names := make([]string, 0, len(summary.Ice))
	for name := range summary.Ice {
		names = append(names, name)
	}
	sort.Strings(names)
	totals := map[string]map[string]float64{}
	for _, name := range names {
		totals[name] = map[string]float64{"ice_m": sum(summary.Ice[name])}
	}
	fmt.Println(viz.MetricsTable(totals, names))
	fmt.Printf("mean gardening depth: %.4g m\n", sum(summary.Overturn))
	return nil
}

func writeGrid(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	list, err := craters.CraterBasinList(cfg, rng)
	if err != nil {
		return err
	}
	g := grid.Outputs(list, cfg)

	w, err := output(outFile)
	if err != nil {
		return err
	}
	defer w.Close()
	return g.WriteCSV(w, cfg.RadMoon)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(params))
	values := make([][]any, 0, len(params))
	for _, p := range params {
		name, vals, err := sweep.ParseParam(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		values = append(values, vals)
	}

	g := sweep.NewGridSearch(names, values)
	fmt.Printf("sweeping %d points, %d runs each\n", len(g.Points()), runs)
	points, err := g.Run(ctx, cfg, sweep.EnsembleMean(runs, seedStart, workers, metric))
	if err != nil {
		return err
	}

	table := make(map[string]map[string]float64, len(points))
	order := make([]string, len(points))
	for i, p := range points {
		order[i] = p.Config.RunName
		table[p.Config.RunName] = p.Values
	}
	fmt.Printf("mean %s per cold trap\n", metric)
	fmt.Println(viz.MetricsTable(table, order))

	fmt.Printf("largest mean %s\n", metric)
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLDTRAP\tPOINT\tVALUE")
	for _, ct := range cfg.ColdtrapNames {
		best, ok := sweep.Best(points, ct)
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%.4g\n", ct, best.Config.RunName, best.Values[ct])
	}
	return tw.Flush()
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	dir, err := storeDir(cmd)
	if err != nil {
		return err
	}
	rec, err := openRecorder(ctx, dir)
	if err != nil {
		return err
	}
	defer rec.Index.Close()

	if sc.Description != "" {
		fmt.Printf("%s: %s\n", sc.Name, sc.Description)
	}
	results, err := automation.RunScenario(ctx, sc, rec, workers, os.Stdout)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("  %s: %d runs saved\n", r.RunName, r.Runs)
	}
	return nil
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}
