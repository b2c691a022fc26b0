// Package export writes run results as standalone SVG figures.
package export

import (
	"fmt"
	"html"
	"strings"

	"github.com/san-kum/icestrat/internal/strat"
)

const (
	iceColor    = "#aee6ff"
	ejectaColor = "#6b5a4a"
	background  = "#0a0a0a"
	textColor   = "#cccccc"
)

// ColumnSVG draws a stratigraphic column with depth increasing downwards.
// Each layer is split into its ejecta cap above and its ice below.
func ColumnSVG(name string, layers []strat.Layer, width, height int) string {
	var total float64
	for _, l := range layers {
		total += l.Thickness()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<text x="%d" y="16" fill="%s" font-family="monospace" font-size="12" text-anchor="middle">%s</text>
`, width, height, width, height, background, width/2, textColor, html.EscapeString(name))

	const top = 24
	colX, colW := float64(width)*0.3, float64(width)*0.4
	plotH := float64(height - top - 8)

	if total > 0 {
		scale := plotH / total
		// youngest layer sits at the top
		for i := len(layers) - 1; i >= 0; i-- {
			l := layers[i]
			y := top + l.Depth*scale
			if l.Ejecta > 0 {
				fmt.Fprintf(&sb, `<rect x="%.1f" y="%.2f" width="%.1f" height="%.2f" fill="%s"/>
`, colX, y, colW, l.Ejecta*scale, ejectaColor)
			}
			if l.Ice > 0 {
				fmt.Fprintf(&sb, `<rect x="%.1f" y="%.2f" width="%.1f" height="%.2f" fill="%s"/>
`, colX, y+l.Ejecta*scale, colW, l.Ice*scale, iceColor)
			}
		}
		fmt.Fprintf(&sb, `<text x="%.1f" y="%d" fill="%s" font-family="monospace" font-size="10" text-anchor="end">%.3g m</text>
`, colX-4, height-8, textColor, total)
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// SeriesSVG draws values against times as a polyline, oldest on the left.
func SeriesSVG(times, values []float64, width, height int, strokeColor string) string {
	if len(times) < 2 || len(times) != len(values) {
		return ""
	}

	minX, maxX := times[0], times[0]
	minY, maxY := values[0], values[0]
	for i := range times {
		if times[i] < minX {
			minX = times[i]
		}
		if times[i] > maxX {
			maxX = times[i]
		}
		if values[i] < minY {
			minY = values[i]
		}
		if values[i] > maxY {
			maxY = values[i]
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, strokeColor)

	for i := range times {
		// ages decrease left to right
		x := (maxX - times[i]) / rangeX * float64(width)
		y := float64(height) - (values[i]-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
