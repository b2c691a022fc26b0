package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/icestrat/internal/aggregate"
	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/export"
	"github.com/san-kum/icestrat/internal/storage"
	"github.com/san-kum/icestrat/internal/storage/sqlite"
	"github.com/san-kum/icestrat/internal/strat"
	"github.com/san-kum/icestrat/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	dir, err := storeDir(cmd)
	if err != nil {
		return err
	}
	st := storage.New(dir)
	var runs []storage.RunMetadata
	if len(args) == 1 {
		runs, err = st.ListRun(args[0])
	} else {
		runs, err = st.List()
	}
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSEED\tMODE\tTIME\tSTEPS\tCOLDTRAPS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\t%d\n",
			run.RunName,
			run.Seed,
			run.Mode,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			len(run.Coldtraps),
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	dir, err := storeDir(cmd)
	if err != nil {
		return err
	}
	name, s, err := storage.ParseRef(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dir)
	meta, err := st.Load(name, s)
	if err != nil {
		return err
	}
	cols, err := st.LoadColumns(name, s)
	if err != nil {
		return err
	}

	fmt.Println(viz.GradientText("run "+meta.Ref(), viz.CurrentTheme.Primary, viz.CurrentTheme.Secondary))
	fmt.Printf("id: %s\n", meta.ID)
	fmt.Printf("mode: %s\n", meta.Mode)
	fmt.Printf("steps: %d\n", meta.Steps)
	fmt.Println(viz.Separator(48))
	fmt.Println(viz.MetricsTable(meta.Metrics, meta.Coldtraps))
	fmt.Println(viz.Separator(48))

	fmt.Println(viz.Subtle.Render("ice per step, oldest first"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, ct := range meta.Coldtraps {
		fmt.Fprintf(w, "%s\t%.3g m\t%s\n", ct, sum(cols.Ice[ct]), viz.SparklineChart(cols.Ice[ct], 40))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	dir, err := storeDir(cmd)
	if err != nil {
		return err
	}
	name, s, err := storage.ParseRef(args[0])
	if err != nil {
		return err
	}
	cols, err := storage.New(dir).LoadColumns(name, s)
	if err != nil {
		return err
	}

	names := cols.Names
	if len(args) == 2 {
		if _, ok := cols.Ice[args[1]]; !ok {
			return fmt.Errorf("no column for cold trap %q in %s/%d", args[1], name, s)
		}
		names = []string{args[1]}
	}

	for _, ct := range names {
		c := &strat.Column{Name: ct, Ice: cols.Ice[ct], Ejecta: cols.Ejecta[ct]}
		fmt.Println(viz.ColumnPlot(c, cols.Time))
		fmt.Println()
	}
	return nil
}

func showStrat(cmd *cobra.Command, args []string) error {
	dir, err := storeDir(cmd)
	if err != nil {
		return err
	}
	name, s, err := storage.ParseRef(args[0])
	if err != nil {
		return err
	}
	layers, err := storage.New(dir).LoadLayers(name, s, args[1])
	if err != nil {
		return err
	}
	fmt.Print(viz.StratColumn(fmt.Sprintf("%s (%s/%d)", args[1], name, s), layers, 12))
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	dir, err := storeDir(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	idx, err := sqlite.Open(ctx, filepath.Join(dir, sqlite.IndexFile))
	if err != nil {
		return err
	}
	defer idx.Close()

	w, err := output(outFile)
	if err != nil {
		return err
	}
	defer w.Close()

	if withLayer {
		cts, err := idx.Coldtraps(ctx, args[0])
		if err != nil {
			return err
		}
		return aggregate.WriteLayersCSV(ctx, w, idx, args[0], cts)
	}
	rows, err := aggregate.ByColdtrap(ctx, idx, args, metric)
	if err != nil {
		return err
	}
	return aggregate.WriteRunsCSV(w, rows)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	dir, err := storeDir(cmd)
	if err != nil {
		return err
	}
	name, s, err := storage.ParseRef(args[0])
	if err != nil {
		return err
	}
	return storage.New(dir).ExportJSON(os.Stdout, name, s)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	dir, err := storeDir(cmd)
	if err != nil {
		return err
	}
	name, s, err := storage.ParseRef(args[0])
	if err != nil {
		return err
	}
	layers, err := storage.New(dir).LoadLayers(name, s, args[1])
	if err != nil {
		return err
	}

	path := outFile
	if path == "" {
		path = strings.TrimSuffix(storage.LayerFile(args[1]), ".csv") + ".svg"
	}
	svg := export.ColumnSVG(fmt.Sprintf("%s %s/%d", args[1], name, s), layers, 240, 600)
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func aggregateRuns(cmd *cobra.Command, args []string) error {
	dir, err := storeDir(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	idx, err := sqlite.Open(ctx, filepath.Join(dir, sqlite.IndexFile))
	if err != nil {
		return err
	}
	defer idx.Close()

	rows, err := aggregate.ByColdtrap(ctx, idx, args, metric)
	if err != nil {
		return err
	}
	fmt.Printf("%s over seeds\n", metric)
	fmt.Println(viz.SummaryTable(rows))
	return nil
}

func compareRuns(cmd *cobra.Command, args []string) error {
	dir, err := storeDir(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	idx, err := sqlite.Open(ctx, filepath.Join(dir, sqlite.IndexFile))
	if err != nil {
		return err
	}
	defer idx.Close()

	cmp, err := aggregate.Compare(ctx, idx, args[0], args[1], metric)
	if err != nil {
		return err
	}
	if len(cmp) == 0 {
		return fmt.Errorf("%s and %s share no cold traps", args[0], args[1])
	}
	fmt.Printf("%s: %s vs %s\n", metric, args[0], args[1])
	fmt.Println(viz.ComparisonTable(args[0], args[1], cmp))
	return nil
}

func printConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	switch format {
	case "yaml", "toml", "json":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	data, err := config.Marshal(format, cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func reindex(cmd *cobra.Command, args []string) error {
	dir, err := storeDir(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	idx, err := sqlite.Open(ctx, filepath.Join(dir, sqlite.IndexFile))
	if err != nil {
		return err
	}
	defer idx.Close()

	n, err := idx.Reindex(ctx, storage.New(dir))
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d runs\n", n)
	return nil
}

func deleteRun(cmd *cobra.Command, args []string) error {
	dir, err := storeDir(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	name := args[0]
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid run name %q", name)
	}

	idx, err := sqlite.Open(ctx, filepath.Join(dir, sqlite.IndexFile))
	if err != nil {
		return err
	}
	defer idx.Close()

	n, err := idx.Delete(ctx, name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
		return err
	}
	fmt.Printf("deleted %s (%d indexed seeds)\n", name, n)
	return nil
}
