package strat

// Column is the ice and ejecta record of one cold trap, indexed by timestep.
// Within a timestep, ejecta lies on top of the ice deposited in it.
type Column struct {
	Name      string
	Formation int
	Ice       []float64 // [m]
	Ejecta    []float64 // [m]
	Source    []string  // crater contributing the most ejecta
}

func NewColumn(name string, formation, steps int) *Column {
	return &Column{
		Name:      name,
		Formation: formation,
		Ice:       make([]float64, steps),
		Ejecta:    make([]float64, steps),
		Source:    make([]string, steps),
	}
}

// RemoveOverturn gardens ice from the top of the column down to depth [m]
// below the surface at step t. Ejecta thicker than the remaining depth
// shields everything beneath it. It returns the ice removed.
func (c *Column) RemoveOverturn(t int, depth float64) float64 {
	var removed float64
	remaining := depth
	for k := t; k >= c.Formation && remaining > 0; k-- {
		if c.Ejecta[k] >= remaining {
			break
		}
		remaining -= c.Ejecta[k]
		if c.Ice[k] >= remaining {
			c.Ice[k] -= remaining
			removed += remaining
			break
		}
		remaining -= c.Ice[k]
		removed += c.Ice[k]
		c.Ice[k] = 0
	}
	return removed
}

// RemoveBsed volatilizes frac of the ice within depth [m] of the surface at
// step t. Ejecta in that depth is mixed but kept. It returns the ice removed.
func (c *Column) RemoveBsed(t int, depth, frac float64) float64 {
	if frac <= 0 || depth <= 0 {
		return 0
	}
	var removed float64
	remaining := depth
	for k := t; k >= c.Formation && remaining > 0; k-- {
		remaining -= c.Ejecta[k]
		if remaining <= 0 {
			break
		}
		inDepth := c.Ice[k]
		if inDepth > remaining {
			inDepth = remaining
		}
		loss := frac * inDepth
		c.Ice[k] -= loss
		removed += loss
		remaining -= inDepth
	}
	return removed
}

func (c *Column) TotalIce() float64 {
	var s float64
	for _, v := range c.Ice {
		s += v
	}
	return s
}

func (c *Column) TotalEjecta() float64 {
	var s float64
	for _, v := range c.Ejecta {
		s += v
	}
	return s
}

// Thickness is the full depth of the column.
func (c *Column) Thickness() float64 {
	return c.TotalIce() + c.TotalEjecta()
}

// IceWithin is the ice [m] in the top depth [m] of the column.
func (c *Column) IceWithin(depth float64) float64 {
	var ice float64
	remaining := depth
	for k := len(c.Ice) - 1; k >= 0 && remaining > 0; k-- {
		remaining -= c.Ejecta[k]
		if remaining <= 0 {
			break
		}
		v := c.Ice[k]
		if v > remaining {
			v = remaining
		}
		ice += v
		remaining -= v
	}
	return ice
}
