package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	RunName string                        `json:"run_name"`
	Seed    int64                         `json:"seed"`
	Mode    string                        `json:"mode"`
	Steps   int                           `json:"steps"`
	Times   []float64                     `json:"times"`
	Ice     map[string][]float64          `json:"ice"`
	Ejecta  map[string][]float64          `json:"ejecta"`
	Metrics map[string]map[string]float64 `json:"metrics"`
}

// ExportJSON writes a saved run's metadata and columns as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runName string, seed int64) error {
	meta, err := s.Load(runName, seed)
	if err != nil {
		return err
	}
	cols, err := s.LoadColumns(runName, seed)
	if err != nil {
		return err
	}

	data := ExportData{
		RunName: meta.RunName,
		Seed:    meta.Seed,
		Mode:    meta.Mode,
		Steps:   len(cols.Time),
		Times:   cols.Time,
		Ice:     cols.Ice,
		Ejecta:  cols.Ejecta,
		Metrics: meta.Metrics,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
