package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/telemetry"
	"github.com/san-kum/icestrat/internal/viz"
)

var (
	dataDir string
	theme   string
	// run configuration
	cfgFile   string
	preset    string
	runName   string
	seed      int64
	overrides []string
	verbose   bool
	// ensembles
	runs      int
	seedStart int64
	workers   int
	noTUI     bool
	// analysis
	metric    string
	coldtrap  string
	outFile   string
	withLayer bool
	format    string
	params    []string
)

var logger = log.New(os.Stderr, "icestrat: ", 0)

// main registers the icestrat commands and exits with status 1 when the
// selected command fails.
func main() {
	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, "icestrat")
	if err != nil {
		logger.Printf("telemetry disabled: %v", err)
	}
	defer func() { _ = shutdown(ctx) }()

	rootCmd := &cobra.Command{
		Use:           "icestrat",
		Short:         "lunar polar ice stratigraphy simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "out", config.DefaultOutPath, "output directory")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", viz.ThemePolar.Name,
		fmt.Sprintf("color theme (%s)", strings.Join(viz.ThemeNames(), ", ")))
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(viz.ThemeNames(), theme) {
			return fmt.Errorf("unknown theme: %s (available: %v)", theme, viz.ThemeNames())
		}
		viz.SetTheme(theme)
		return nil
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one seed and save it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run many seeds in parallel and save them",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addConfigFlags(ensembleCmd)
	addEnsembleFlags(ensembleCmd)

	modulesCmd := &cobra.Command{
		Use:   "modules",
		Short: "plot ice delivered by each source",
		Args:  cobra.NoArgs,
		RunE:  plotModules,
	}
	addConfigFlags(modulesCmd)
	addEnsembleFlags(modulesCmd)

	gridCmd := &cobra.Command{
		Use:   "grid",
		Short: "write surface age and ejecta grids as CSV",
		Args:  cobra.NoArgs,
		RunE:  writeGrid,
	}
	addConfigFlags(gridCmd)
	gridCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run ensembles over a grid of parameter values",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	addEnsembleFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&params, "param", nil, "swept parameter as key=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&metric, "metric", "total_ice", "metric to average")
	_ = sweepCmd.MarkFlagRequired("param")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run the ensembles of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default all cpus)")

	listCmd := &cobra.Command{
		Use:   "list [run_name]",
		Short: "list saved runs",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_name/seed]",
		Short: "show the metrics of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_name/seed] [coldtrap]",
		Short: "plot ice and ejecta columns",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  plotRun,
	}

	stratCmd := &cobra.Command{
		Use:   "strat [run_name/seed] [coldtrap]",
		Short: "draw the stratigraphic column of a cold trap",
		Args:  cobra.ExactArgs(2),
		RunE:  showStrat,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_name]",
		Short: "export per seed results of a run to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVar(&metric, "metric", "total_ice", "metric to export")
	exportCSVCmd.Flags().BoolVar(&withLayer, "layers", false, "export layers instead of metric summaries")
	exportCSVCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_name/seed]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_name/seed] [coldtrap]",
		Short: "export a stratigraphic column to SVG",
		Args:  cobra.ExactArgs(2),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default <coldtrap>.svg)")

	aggregateCmd := &cobra.Command{
		Use:   "aggregate [run_name]...",
		Short: "summarise a metric over seeds",
		Args:  cobra.MinimumNArgs(1),
		RunE:  aggregateRuns,
	}
	aggregateCmd.Flags().StringVar(&metric, "metric", "total_ice", "metric to summarise")

	compareCmd := &cobra.Command{
		Use:   "compare [run_a] [run_b]",
		Short: "compare a metric between two runs",
		Args:  cobra.ExactArgs(2),
		RunE:  compareRuns,
	}
	compareCmd.Flags().StringVar(&metric, "metric", "total_ice", "metric to compare")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE:  printConfig,
	}
	addConfigFlags(configCmd)
	configCmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml, toml or json")

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "rebuild the run index from saved runs",
		Args:  cobra.NoArgs,
		RunE:  reindex,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [run_name]",
		Short: "delete every seed of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteRun,
	}

	for _, c := range []*cobra.Command{listCmd, showCmd, plotCmd, stratCmd, exportCSVCmd, exportJSONCmd,
		exportSVGCmd, aggregateCmd, compareCmd, reindexCmd, deleteCmd} {
		addStoreFlags(c)
	}

	rootCmd.AddCommand(runCmd, ensembleCmd, modulesCmd, gridCmd, sweepCmd, batchCmd,
		listCmd, showCmd, plotCmd, stratCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd,
		aggregateCmd, compareCmd, presetsCmd, configCmd, reindexCmd, deleteCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Print(err)
		_ = shutdown(ctx)
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&cfgFile, "cfg", "c", "", "config file (yaml, toml or json)")
	cmd.Flags().StringVar(&preset, "preset", "", "start from a named preset")
	cmd.Flags().StringVar(&runName, "run-name", "", "run name")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "override a config key as key=value (repeatable)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log run progress")
}

// addStoreFlags lets reading commands find the store through a config
// file's out_path, as run and ensemble do.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&cfgFile, "cfg", "c", "", "config file whose out_path holds the runs")
}

// storeDir is --out when given, otherwise out_path resolved from --cfg and
// the environment.
func storeDir(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("out") {
		return dataDir, nil
	}
	cfg, err := config.Resolve("", cfgFile)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg.OutPath, nil
}

func addEnsembleFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&runs, "runs", "n", 10, "number of seeds")
	cmd.Flags().Int64Var(&seedStart, "seed-start", 0, "first seed")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default all cpus)")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "disable the progress view")
}

// loadConfig resolves preset, file, environment, --set and flags, in that
// order, and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Resolve(preset, cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if len(overrides) > 0 {
		m, err := config.ParseOverrides(overrides)
		if err != nil {
			return nil, err
		}
		if cfg, err = cfg.With(m); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("run-name") {
		cfg.RunName = runName
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}
	if cmd.Flags().Changed("out") {
		cfg.OutPath = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runLogger(cfg *config.Config) *log.Logger {
	if cfg.Verbose {
		return logger
	}
	return log.New(io.Discard, "", 0)
}

func output(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
