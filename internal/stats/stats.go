// Package stats holds the small set of distributions and summaries the model
// samples from: truncated normals, speed mixtures, Poisson counts and
// percentiles.
package stats

import (
	"math"
	"math/rand"
	"sort"
)

// TruncNormal is a normal distribution restricted to [Lo, Hi].
type TruncNormal struct {
	Mu, Sigma float64
	Lo, Hi    float64
}

func stdCDF(z float64) float64 { return 0.5 * math.Erfc(-z/math.Sqrt2) }

func stdPDF(z float64) float64 { return math.Exp(-0.5*z*z) / math.Sqrt(2*math.Pi) }

func (d TruncNormal) mass() float64 {
	return stdCDF((d.Hi-d.Mu)/d.Sigma) - stdCDF((d.Lo-d.Mu)/d.Sigma)
}

func (d TruncNormal) PDF(x float64) float64 {
	if x < d.Lo || x > d.Hi {
		return 0
	}
	z := d.mass()
	if z <= 0 {
		return 0
	}
	return stdPDF((x-d.Mu)/d.Sigma) / d.Sigma / z
}

func (d TruncNormal) CDF(x float64) float64 {
	switch {
	case x <= d.Lo:
		return 0
	case x >= d.Hi:
		return 1
	}
	z := d.mass()
	if z <= 0 {
		return 0
	}
	return (stdCDF((x-d.Mu)/d.Sigma) - stdCDF((d.Lo-d.Mu)/d.Sigma)) / z
}

// Sample draws by rejection, falling back to inverse-CDF bisection when the
// interval sits far in a tail.
func (d TruncNormal) Sample(rng *rand.Rand) float64 {
	if d.Sigma <= 0 {
		return math.Min(math.Max(d.Mu, d.Lo), d.Hi)
	}
	for i := 0; i < 64; i++ {
		x := d.Mu + d.Sigma*rng.NormFloat64()
		if x >= d.Lo && x <= d.Hi {
			return x
		}
	}
	return d.quantile(rng.Float64())
}

func (d TruncNormal) quantile(p float64) float64 {
	lo, hi := d.Lo, d.Hi
	for i := 0; i < 100; i++ {
		mid := 0.5 * (lo + hi)
		if d.CDF(mid) < p {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi)
}

// Mixture is a weighted sum of truncated normals.
type Mixture struct {
	Components []TruncNormal
	Weights    []float64
}

func (m Mixture) norm() float64 {
	var s float64
	for _, w := range m.Weights {
		s += w
	}
	return s
}

func (m Mixture) PDF(x float64) float64 {
	var p float64
	for i, c := range m.Components {
		p += m.Weights[i] * c.PDF(x)
	}
	return p / m.norm()
}

func (m Mixture) CDF(x float64) float64 {
	var p float64
	for i, c := range m.Components {
		p += m.Weights[i] * c.CDF(x)
	}
	return p / m.norm()
}

// SF is the survival function 1 - CDF.
func (m Mixture) SF(x float64) float64 { return 1 - m.CDF(x) }

func (m Mixture) Sample(rng *rand.Rand) float64 {
	u := rng.Float64() * m.norm()
	for i, w := range m.Weights {
		if u < w {
			return m.Components[i].Sample(rng)
		}
		u -= w
	}
	return m.Components[len(m.Components)-1].Sample(rng)
}

// Poisson draws a count with mean lambda. Large means use a rounded normal.
func Poisson(lambda float64, rng *rand.Rand) int {
	if lambda <= 0 {
		return 0
	}
	if lambda > 30 {
		n := math.Round(lambda + math.Sqrt(lambda)*rng.NormFloat64())
		if n < 0 {
			return 0
		}
		return int(n)
	}
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}

// Percentile returns the q-th percentile (0-100) by linear interpolation.
// The input is not modified.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	if q <= 0 {
		return s[0]
	}
	if q >= 100 {
		return s[len(s)-1]
	}
	pos := q / 100 * float64(len(s)-1)
	i := int(pos)
	frac := pos - float64(i)
	if i+1 >= len(s) {
		return s[i]
	}
	return s[i] + frac*(s[i+1]-s[i])
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var s float64
	for _, v := range values {
		s += v
	}
	return s / float64(len(values))
}
