// Package storage writes run outputs to a directory tree,
// <base>/<run_name>/<seed>/, and reads them back.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/sim"
	"github.com/san-kum/icestrat/internal/strat"
)

var ErrRunNotFound = errors.New("run not found")

const (
	configFile   = "config.yaml"
	metadataFile = "metadata.json"
	iceFile      = "ice_columns.csv"
	ejectaFile   = "ej_columns.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) BaseDir() string { return s.baseDir }

type RunMetadata struct {
	ID        string                        `json:"id"`
	RunName   string                        `json:"run_name"`
	Seed      int64                         `json:"seed"`
	Mode      string                        `json:"mode"`
	Timestamp time.Time                     `json:"timestamp"`
	Steps     int                           `json:"steps"`
	Coldtraps []string                      `json:"coldtraps"`
	Metrics   map[string]map[string]float64 `json:"metrics"`
}

// Ref is "run_name/seed"; the seed defaults to 0.
func (m RunMetadata) Ref() string {
	return fmt.Sprintf("%s/%d", m.RunName, m.Seed)
}

// ParseRef splits "run_name[/seed]".
func ParseRef(ref string) (string, int64, error) {
	name, seedStr, ok := strings.Cut(strings.Trim(ref, "/"), "/")
	if name == "" {
		return "", 0, fmt.Errorf("empty run reference")
	}
	if !ok {
		return name, 0, nil
	}
	seed, err := strconv.ParseInt(seedStr, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("run reference %q: bad seed: %w", ref, err)
	}
	return name, seed, nil
}

func (s *Store) runDir(runName string, seed int64) string {
	return filepath.Join(s.baseDir, runName, fmt.Sprintf("%05d", seed))
}

// Save writes config, metadata, ice and ejecta columns and one layer table
// per cold trap. It returns the run directory.
func (s *Store) Save(res *sim.Result) (string, error) {
	cfg := res.Config
	dir := s.runDir(cfg.RunName, cfg.Seed)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	if err := config.Save(filepath.Join(dir, configFile), cfg); err != nil {
		return "", fmt.Errorf("save config: %w", err)
	}

	names := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		names[i] = c.Name
	}
	meta := RunMetadata{
		ID:        uuid.NewString(),
		RunName:   cfg.RunName,
		Seed:      cfg.Seed,
		Mode:      cfg.Mode,
		Timestamp: time.Now().UTC(),
		Steps:     len(res.Time),
		Coldtraps: names,
		Metrics:   res.Metrics,
	}
	if err := writeJSON(filepath.Join(dir, metadataFile), meta); err != nil {
		return "", err
	}

	ice := make([][]float64, len(res.Columns))
	ej := make([][]float64, len(res.Columns))
	for i, c := range res.Columns {
		ice[i], ej[i] = c.Ice, c.Ejecta
	}
	if err := writeColumns(filepath.Join(dir, iceFile), res.Time, names, ice); err != nil {
		return "", err
	}
	if err := writeColumns(filepath.Join(dir, ejectaFile), res.Time, names, ej); err != nil {
		return "", err
	}
	for _, c := range res.Columns {
		if err := writeLayers(filepath.Join(dir, LayerFile(c.Name)), res.Layers[c.Name]); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// LayerFile is the file name of a cold trap's layer table.
func LayerFile(coldtrap string) string {
	r := strings.NewReplacer(" ", "_", "'", "", "/", "_")
	return "strat_" + r.Replace(coldtrap) + ".csv"
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

func writeColumns(path string, times []float64, names []string, cols [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"time"}, names...)); err != nil {
		return err
	}
	for i, t := range times {
		row := []string{formatFloat(t)}
		for _, col := range cols {
			row = append(row, formatFloat(col[i]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

var layerHeader = []string{"ice", "ejecta", "source", "time_bot", "time_top", "depth", "ice_pct"}

func writeLayers(path string, layers []strat.Layer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(layerHeader); err != nil {
		return err
	}
	for _, l := range layers {
		row := []string{
			formatFloat(l.Ice), formatFloat(l.Ejecta), l.Source,
			formatFloat(l.TimeBot), formatFloat(l.TimeTop), formatFloat(l.Depth),
			formatFloat(l.IcePct()),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every saved run, sorted by run name and seed.
func (s *Store) List() ([]RunMetadata, error) {
	paths, err := filepath.Glob(filepath.Join(s.baseDir, "*", "*", metadataFile))
	if err != nil {
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].RunName != runs[j].RunName {
			return runs[i].RunName < runs[j].RunName
		}
		return runs[i].Seed < runs[j].Seed
	})
	return runs, nil
}

// ListRun returns the saved seeds of one run name.
func (s *Store) ListRun(runName string) ([]RunMetadata, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []RunMetadata
	for _, m := range all {
		if m.RunName == runName {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) Load(runName string, seed int64) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.runDir(runName, seed), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%d", ErrRunNotFound, runName, seed)
		}
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

func (s *Store) LoadConfig(runName string, seed int64) (*config.Config, error) {
	path := filepath.Join(s.runDir(runName, seed), configFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s/%d", ErrRunNotFound, runName, seed)
	}
	return config.Load(path)
}

// Columns are the per-step ice and ejecta series of a saved run.
type Columns struct {
	Time   []float64
	Names  []string
	Ice    map[string][]float64
	Ejecta map[string][]float64
}

func (s *Store) LoadColumns(runName string, seed int64) (*Columns, error) {
	dir := s.runDir(runName, seed)
	times, names, ice, err := readColumns(filepath.Join(dir, iceFile))
	if err != nil {
		return nil, err
	}
	_, _, ej, err := readColumns(filepath.Join(dir, ejectaFile))
	if err != nil {
		return nil, err
	}
	return &Columns{Time: times, Names: names, Ice: ice, Ejecta: ej}, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: empty file", path)
	}
	return records, nil
}

func readColumns(path string) ([]float64, []string, map[string][]float64, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, nil, nil, err
	}
	names := records[0][1:]
	times := make([]float64, 0, len(records)-1)
	cols := make(map[string][]float64, len(names))
	for _, rec := range records[1:] {
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parse %s: %w", path, err)
		}
		times = append(times, t)
		for j, name := range names {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("parse %s: %w", path, err)
			}
			cols[name] = append(cols[name], v)
		}
	}
	return times, names, cols, nil
}

func (s *Store) LoadLayers(runName string, seed int64, coldtrap string) ([]strat.Layer, error) {
	records, err := readCSV(filepath.Join(s.runDir(runName, seed), LayerFile(coldtrap)))
	if err != nil {
		return nil, err
	}
	layers := make([]strat.Layer, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < len(layerHeader) {
			return nil, fmt.Errorf("layer row has %d fields, want %d", len(rec), len(layerHeader))
		}
		var vals [5]float64
		for i, idx := range []int{0, 1, 3, 4, 5} {
			v, err := strconv.ParseFloat(rec[idx], 64)
			if err != nil {
				return nil, fmt.Errorf("parse layer %s: %w", layerHeader[idx], err)
			}
			vals[i] = v
		}
		layers = append(layers, strat.Layer{
			Ice: vals[0], Ejecta: vals[1], Source: rec[2],
			TimeBot: vals[2], TimeTop: vals[3], Depth: vals[4],
		})
	}
	return layers, nil
}
