package viz

import (
	"fmt"
	"sort"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/icestrat/internal/sim"
	"github.com/san-kum/icestrat/internal/strat"
)

const (
	plotHeight = 12
	plotWidth  = 80
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan,
	asciigraph.Yellow,
	asciigraph.Green,
	asciigraph.Magenta,
	asciigraph.Red,
	asciigraph.Blue,
}

// Cumulative returns the running sum of v.
func Cumulative(v []float64) []float64 {
	out := make([]float64, len(v))
	var acc float64
	for i, x := range v {
		acc += x
		out[i] = acc
	}
	return out
}

func timeCaption(label string, times []float64) string {
	if len(times) == 0 {
		return label
	}
	return fmt.Sprintf("%s, %.2f Ga to %.2f Ga", label, times[0]/1e9, times[len(times)-1]/1e9)
}

// SeriesPlot plots one series, oldest step on the left.
func SeriesPlot(values []float64, caption string) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(caption),
	)
}

// ColumnPlot plots the cumulative ice and ejecta thickness [m] of a column.
func ColumnPlot(col *strat.Column, times []float64) string {
	if col == nil || len(col.Ice) == 0 {
		return ""
	}
	return asciigraph.PlotMany([][]float64{Cumulative(col.Ice), Cumulative(col.Ejecta)},
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.SeriesColors(seriesColors[0], seriesColors[1]),
		asciigraph.SeriesLegends("ice", "ejecta"),
		asciigraph.Caption(timeCaption(col.Name+" cumulative thickness [m]", times)),
	)
}

// ModulePlot plots the cumulative ice delivered by each source and the
// gardening depth, averaged over an ensemble.
func ModulePlot(s *sim.ModuleSummary) string {
	if s == nil || len(s.Ice) == 0 {
		return ""
	}
	names := make([]string, 0, len(s.Ice))
	for name := range s.Ice {
		names = append(names, name)
	}
	sort.Strings(names)

	data := make([][]float64, 0, len(names)+1)
	colors := make([]asciigraph.AnsiColor, 0, len(names)+1)
	for i, name := range names {
		data = append(data, Cumulative(s.Ice[name]))
		colors = append(colors, seriesColors[i%len(seriesColors)])
	}
	data = append(data, Cumulative(s.Overturn))
	colors = append(colors, asciigraph.White)
	legends := append(append([]string{}, names...), "gardening")

	return asciigraph.PlotMany(data,
		asciigraph.Height(plotHeight+4),
		asciigraph.Width(plotWidth),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(legends...),
		asciigraph.Caption(timeCaption("cumulative ice delivered and gardened [m]", s.Time)),
	)
}
