package strat

// Layer is the ice accumulated between two ejecta deposits, capped by the
// later deposit. Times are ages [yr]; Depth is the depth [m] of its top.
type Layer struct {
	Ice     float64
	Ejecta  float64
	Source  string
	TimeBot float64
	TimeTop float64
	Depth   float64
}

func (l Layer) Thickness() float64 { return l.Ice + l.Ejecta }

// IcePct is the ice percentage of the layer.
func (l Layer) IcePct() float64 {
	if th := l.Thickness(); th > 0 {
		return 100 * l.Ice / th
	}
	return 0
}

// Layers condenses a column into layers, oldest first. A layer ends at every
// ejecta deposit; ice above the last deposit forms a final uncapped layer.
func Layers(c *Column, times []float64) []Layer {
	var layers []Layer
	var acc float64
	start := c.Formation
	for k := c.Formation; k < len(c.Ice); k++ {
		acc += c.Ice[k]
		if c.Ejecta[k] <= 0 {
			continue
		}
		layers = append(layers, Layer{
			Ice:     acc,
			Ejecta:  c.Ejecta[k],
			Source:  c.Source[k],
			TimeBot: times[start],
			TimeTop: times[k],
		})
		acc = 0
		start = k + 1
	}
	if acc > 0 && start < len(c.Ice) {
		layers = append(layers, Layer{
			Ice:     acc,
			TimeBot: times[start],
			TimeTop: times[len(times)-1],
		})
	}

	var depth float64
	for i := len(layers) - 1; i >= 0; i-- {
		layers[i].Depth = depth
		depth += layers[i].Thickness()
	}
	return layers
}
