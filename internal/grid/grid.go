// Package grid maps surface age and cumulative ejecta over a south polar
// stereographic grid.
package grid

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/craters"
	"github.com/san-kum/icestrat/internal/ejecta"
)

// Arrays returns the cell centre coordinates [m] along each axis, from
// -grid_max to grid_max in grid_res steps.
func Arrays(cfg *config.Config) []float64 {
	n := int(math.Round(2*cfg.GridMax/cfg.GridRes)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = -cfg.GridMax + float64(i)*cfg.GridRes
	}
	return out
}

// ToLatLon inverts the south polar stereographic projection.
func ToLatLon(x, y, rad float64) (lat, lon float64) {
	rho := math.Hypot(x, y)
	c := 2 * math.Atan(rho/(2*rad))
	lat = (c - math.Pi/2) * 180 / math.Pi
	lon = math.Atan2(x, y) * 180 / math.Pi
	return lat, lon
}

// FromLatLon projects a point onto the south polar stereographic plane.
func FromLatLon(lat, lon, rad float64) (x, y float64) {
	c := (lat + 90) * math.Pi / 180
	rho := 2 * rad * math.Tan(c/2)
	l := lon * math.Pi / 180
	return rho * math.Sin(l), rho * math.Cos(l)
}

// Grid holds per-cell outputs, indexed [iy][ix].
type Grid struct {
	X, Y   []float64
	Age    [][]float64 // most recent resurfacing age [yr]
	Ejecta [][]float64 // cumulative ejecta thickness [m]
}

// Outputs resurfaces the grid with each crater in list, oldest first. A cell
// takes a crater's age when it lies inside the crater or receives at least
// resurface_min metres of its ejecta.
func Outputs(list craters.List, cfg *config.Config) *Grid {
	xs := Arrays(cfg)
	g := &Grid{X: xs, Y: xs, Age: make([][]float64, len(xs)), Ejecta: make([][]float64, len(xs))}

	type cell struct{ lat, lon float64 }
	cells := make([][]cell, len(xs))
	for iy, y := range xs {
		g.Age[iy] = make([]float64, len(xs))
		g.Ejecta[iy] = make([]float64, len(xs))
		cells[iy] = make([]cell, len(xs))
		for ix, x := range xs {
			lat, lon := ToLatLon(x, y, cfg.RadMoon)
			cells[iy][ix] = cell{lat, lon}
			g.Age[iy][ix] = cfg.TimeStart
		}
	}

	for _, c := range list {
		for iy := range cells {
			for ix, p := range cells[iy] {
				d := craters.GreatCircleDist(p.lat, p.lon, c.Lat, c.Lon, cfg.RadMoon)
				if d <= c.Rad {
					g.Age[iy][ix] = c.Age
					continue
				}
				th := ejecta.Thickness(d, c.Rad, cfg)
				g.Ejecta[iy][ix] += th
				if th >= cfg.ResurfaceMin {
					g.Age[iy][ix] = c.Age
				}
			}
		}
	}
	return g
}

// WriteCSV writes one row per cell.
func (g *Grid) WriteCSV(w io.Writer, rad float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"x", "y", "lat", "lon", "age", "ejecta"}); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', 8, 64) }
	for iy, y := range g.Y {
		for ix, x := range g.X {
			lat, lon := ToLatLon(x, y, rad)
			if err := cw.Write([]string{f(x), f(y), f(lat), f(lon), f(g.Age[iy][ix]), f(g.Ejecta[iy][ix])}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
