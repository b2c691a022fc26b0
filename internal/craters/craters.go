// Package craters reads the crater and basin lists and computes the geometry
// between source craters and cold traps.
package craters

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/stats"
)

//go:embed data/*.csv
var dataFS embed.FS

var ErrUnknownColdtrap = errors.New("unknown cold trap")

// Crater is one impact crater or basin. Lengths are in m, ages in yr.
type Crater struct {
	Name       string
	Lat        float64 // [deg]
	Lon        float64 // [deg]
	Diam       float64
	Rad        float64
	Age        float64
	AgeLow     float64
	AgeUpp     float64
	IsBasin    bool
	IsColdtrap bool
}

type List []Crater

var columns = []string{"cname", "lat", "lon", "diam_km", "age_ga", "age_low_ga", "age_upp_ga"}

// ReadCSV parses a crater table with diameters in km and ages in Ga.
func ReadCSV(r io.Reader, isBasin bool) (List, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, c := range columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	var out List
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		var vals [6]float64
		for i, c := range columns[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[c]]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, c, err)
			}
			vals[i] = v
		}
		diam := vals[2] * 1e3
		out = append(out, Crater{
			Name:    strings.TrimSpace(rec[idx["cname"]]),
			Lat:     vals[0],
			Lon:     vals[1],
			Diam:    diam,
			Rad:     diam / 2,
			Age:     vals[3] * 1e9,
			AgeLow:  vals[4] * 1e9,
			AgeUpp:  vals[5] * 1e9,
			IsBasin: isBasin,
		})
	}
	return out, nil
}

func readList(path, embedded string, isBasin bool) (List, error) {
	var (
		f   io.ReadCloser
		err error
	)
	if path != "" {
		f, err = os.Open(path)
	} else {
		path = embedded
		f, err = dataFS.Open(embedded)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	list, err := ReadCSV(f, isBasin)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return list, nil
}

// ReadCraters returns crater_csv, or the built-in south polar crater list.
// Craters named in coldtrap_names are flagged as cold traps.
func ReadCraters(cfg *config.Config) (List, error) {
	list, err := readList(cfg.CraterCSV, "data/craters.csv", false)
	if err != nil {
		return nil, err
	}
	ct := make(map[string]bool, len(cfg.ColdtrapNames))
	for _, name := range cfg.ColdtrapNames {
		ct[name] = true
	}
	for i := range list {
		list[i].IsColdtrap = ct[list[i].Name]
	}
	return list, nil
}

func ReadBasins(cfg *config.Config) (List, error) {
	return readList(cfg.BasinCSV, "data/basins.csv", true)
}

// RoundToTimestep rounds age to the nearest multiple of timestep.
func RoundToTimestep(age, timestep float64) float64 {
	return math.Round(age/timestep) * timestep
}

// RandomizeAges draws each age from a normal truncated to the published
// uncertainty, then rounds it onto the time grid. The list is modified in place.
func RandomizeAges(list List, timestep float64, rng *rand.Rand) {
	for i := range list {
		c := &list[i]
		sigma := (c.AgeLow + c.AgeUpp) / 4
		if sigma > 0 {
			d := stats.TruncNormal{Mu: c.Age, Sigma: sigma, Lo: c.Age - c.AgeLow, Hi: c.Age + c.AgeUpp}
			c.Age = d.Sample(rng)
		}
		c.Age = RoundToTimestep(c.Age, timestep)
	}
}

// CraterBasinList joins craters and basins sorted oldest first. Ages are
// randomized when rng is non-nil and clamped to the model time span.
func CraterBasinList(cfg *config.Config, rng *rand.Rand) (List, error) {
	crs, err := ReadCraters(cfg)
	if err != nil {
		return nil, err
	}
	list := crs
	if cfg.ImpactIceBasins || cfg.Mode == config.ModeMoonpies {
		basins, err := ReadBasins(cfg)
		if err != nil {
			return nil, err
		}
		list = append(list, basins...)
	}
	if rng != nil {
		RandomizeAges(list, cfg.Timestep, rng)
	}
	for i := range list {
		list[i].Age = math.Min(math.Max(list[i].Age, cfg.TimeEnd), cfg.TimeStart)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Age > list[j].Age })
	return list, nil
}

// GreatCircleDist is the haversine distance between two points in degrees on a
// sphere of radius rad.
func GreatCircleDist(lat1, lon1, lat2, lon2, rad float64) float64 {
	toRad := math.Pi / 180
	p1, p2 := lat1*toRad, lat2*toRad
	dp := p2 - p1
	dl := (lon2 - lon1) * toRad
	a := math.Sin(dp/2)*math.Sin(dp/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return 2 * rad * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Coldtraps returns the cold trap craters in coldtrap_names order.
func Coldtraps(list List, cfg *config.Config) (List, error) {
	byName := make(map[string]Crater, len(list))
	for _, c := range list {
		byName[c.Name] = c
	}
	out := make(List, 0, len(cfg.ColdtrapNames))
	for _, name := range cfg.ColdtrapNames {
		c, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColdtrap, name)
		}
		out = append(out, c)
	}
	return out, nil
}

// ColdtrapDists is the [crater][coldtrap] distance matrix in m. A crater's
// distance to itself is NaN so it never buries itself in ejecta.
func ColdtrapDists(list List, cfg *config.Config) ([][]float64, error) {
	cts, err := Coldtraps(list, cfg)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(list))
	for i, c := range list {
		row := make([]float64, len(cts))
		for j, ct := range cts {
			if c.Name == ct.Name {
				row[j] = math.NaN()
				continue
			}
			row[j] = GreatCircleDist(c.Lat, c.Lon, ct.Lat, ct.Lon, cfg.RadMoon)
		}
		out[i] = row
	}
	return out, nil
}

func (l List) Names() []string {
	out := make([]string, len(l))
	for i, c := range l {
		out[i] = c.Name
	}
	return out
}
