package craters

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/icestrat/internal/config"
)

// ReadHopCSV parses a table of cold trap names and ballistic hop
// efficiencies with at least the columns cname and bhop.
func ReadHopCSV(r io.Reader) (map[string]float64, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	nameIdx, hopIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "cname":
			nameIdx = i
		case "bhop":
			hopIdx = i
		}
	}
	if nameIdx < 0 || hopIdx < 0 {
		return nil, fmt.Errorf("missing column cname or bhop")
	}

	out := make(map[string]float64)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) <= nameIdx || len(rec) <= hopIdx {
			return nil, fmt.Errorf("line %d: short record", line)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[hopIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bhop: %w", line, err)
		}
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("line %d: bhop must be in [0, 1], got %g", line, v)
		}
		out[strings.TrimSpace(rec[nameIdx])] = v
	}
	return out, nil
}

// ReadBallisticHop returns bhop_csv, or the built-in south polar table.
func ReadBallisticHop(cfg *config.Config) (map[string]float64, error) {
	var (
		f    io.ReadCloser
		err  error
		path = cfg.BhopCSV
	)
	if path != "" {
		f, err = os.Open(path)
	} else {
		path = "data/bhop.csv"
		f, err = dataFS.Open(path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hops, err := ReadHopCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return hops, nil
}

// ColdtrapHop is the ballistic hop efficiency of each cold trap. Without
// ballistic_hop_moores, and for cold traps missing from the table, it is
// the constant ballistic_hop_efficiency.
func ColdtrapHop(coldtraps List, cfg *config.Config) ([]float64, error) {
	out := make([]float64, len(coldtraps))
	for j := range out {
		out[j] = cfg.BallisticHopEfficiency
	}
	if !cfg.BallisticHopMoores {
		return out, nil
	}
	hops, err := ReadBallisticHop(cfg)
	if err != nil {
		return nil, fmt.Errorf("ballistic hop: %w", err)
	}
	for j, ct := range coldtraps {
		if v, ok := hops[ct.Name]; ok {
			out[j] = v
		}
	}
	return out, nil
}
