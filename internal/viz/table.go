package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/san-kum/icestrat/internal/aggregate"
	"github.com/san-kum/icestrat/internal/strat"
)

func newTable(headers ...string) *table.Table {
	border := lipgloss.NewStyle().Foreground(CurrentTheme.Muted)
	header := lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Primary).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(border).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == 0 {
				return cell.Foreground(CurrentTheme.Text)
			}
			return cell.Foreground(CurrentTheme.Secondary)
		})
}

func fmtNum(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4g", v)
}

// MetricsTable lists metric values per cold trap in the order given. Metric
// columns are sorted by name.
func MetricsTable(metrics map[string]map[string]float64, coldtraps []string) string {
	names := map[string]bool{}
	for _, ms := range metrics {
		for name := range ms {
			names[name] = true
		}
	}
	cols := make([]string, 0, len(names))
	for name := range names {
		cols = append(cols, name)
	}
	sort.Strings(cols)

	t := newTable(append([]string{"coldtrap"}, cols...)...)
	for _, ct := range coldtraps {
		ms, ok := metrics[ct]
		if !ok {
			continue
		}
		row := []string{ct}
		for _, c := range cols {
			v, ok := ms[c]
			if !ok {
				v = math.NaN()
			}
			row = append(row, fmtNum(v))
		}
		t.Row(row...)
	}
	return t.String()
}

// SummaryTable renders aggregated rows.
func SummaryTable(rows []aggregate.Row) string {
	t := newTable("run", "coldtrap", "n", "mean", "median", "p5", "p95", "max")
	for _, r := range rows {
		t.Row(r.RunName, r.Coldtrap, fmt.Sprint(r.N),
			fmtNum(r.Mean), fmtNum(r.Median), fmtNum(r.P5), fmtNum(r.P95), fmtNum(r.Max))
	}
	return t.String()
}

// ComparisonTable renders two runs side by side.
func ComparisonTable(a, b string, cmp []aggregate.Comparison) string {
	t := newTable("coldtrap", a+" median", b+" median", "ratio")
	for _, c := range cmp {
		t.Row(c.Coldtrap, fmtNum(c.A.Median), fmtNum(c.B.Median), fmtNum(c.Ratio))
	}
	return t.String()
}

// StratColumn draws layers youngest first, one line per layer. The bar is
// colored between the theme's regolith and ice colors by ice fraction.
func StratColumn(name string, layers []strat.Layer, barWidth int) string {
	var b strings.Builder
	b.WriteString(Title.Render(name) + "\n")
	if len(layers) == 0 {
		b.WriteString(Subtle.Render("  no layers") + "\n")
		return b.String()
	}

	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		frac := l.IcePct() / 100
		bar := lipgloss.NewStyle().
			Foreground(Blend(CurrentTheme.Regolith, CurrentTheme.Ice, frac)).
			Render(strings.Repeat("█", barWidth))
		src := l.Source
		if src == "" {
			src = "uncapped"
		}
		fmt.Fprintf(&b, "%s %s %s %s\n",
			MetricLabel.Render(fmt.Sprintf("%9.2f m", l.Depth)),
			bar,
			MetricValue.Render(fmt.Sprintf("%6.2f%% ice", l.IcePct())),
			Subtle.Render(fmt.Sprintf("%.3g m, %.2f to %.2f Ga, %s", l.Thickness(), l.TimeBot/1e9, l.TimeTop/1e9, src)),
		)
	}
	return b.String()
}
