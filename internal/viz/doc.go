// Package viz renders runs in the terminal.
//
//   - [ColumnPlot] and [ModulePlot]: asciigraph line charts over model time
//   - [StratColumn]: a stratigraphic column, youngest layer on top
//   - [MetricsTable]: per cold trap metric tables
//   - [ProgressModel]: a Bubble Tea progress view for ensembles
//
// Colors come from the current [Theme]; ice rich layers are drawn in the
// theme's ice color and ejecta rich layers in its regolith color.
package viz
