package stats

import (
	"math"
	"math/rand"
	"testing"
)

func TestTruncNormal_Bounds(t *testing.T) {
	d := TruncNormal{Mu: 0, Sigma: 1, Lo: -0.5, Hi: 2}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		x := d.Sample(rng)
		if x < d.Lo || x > d.Hi {
			t.Fatalf("sample %f outside [%f, %f]", x, d.Lo, d.Hi)
		}
	}
	if d.CDF(d.Lo) != 0 || d.CDF(d.Hi) != 1 {
		t.Error("CDF should be 0 at Lo and 1 at Hi")
	}
	if d.PDF(-1) != 0 {
		t.Error("PDF should vanish outside the interval")
	}
}

func TestTruncNormal_Tail(t *testing.T) {
	d := TruncNormal{Mu: 0, Sigma: 1, Lo: 6, Hi: 7}
	rng := rand.New(rand.NewSource(2))

	x := d.Sample(rng)
	if x < 6 || x > 7 {
		t.Errorf("tail sample %f outside [6, 7]", x)
	}
}

func TestMixture_Normalised(t *testing.T) {
	m := Mixture{
		Components: []TruncNormal{
			{Mu: 20, Sigma: 5, Lo: 2, Hi: 72},
			{Mu: 54, Sigma: 9, Lo: 2, Hi: 72},
		},
		Weights: []float64{1, 1},
	}

	// Trapezoid integral of the PDF over the support.
	var area float64
	n := 7000
	h := 70.0 / float64(n)
	for i := 0; i < n; i++ {
		x0 := 2 + float64(i)*h
		area += 0.5 * h * (m.PDF(x0) + m.PDF(x0+h))
	}
	if math.Abs(area-1) > 1e-3 {
		t.Errorf("expected pdf to integrate to 1, got %f", area)
	}
	if math.Abs(m.SF(40)+m.CDF(40)-1) > 1e-12 {
		t.Error("SF + CDF should be 1")
	}
}

func TestPoisson_Mean(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, lambda := range []float64{0.5, 5, 100} {
		var sum int
		n := 20000
		for i := 0; i < n; i++ {
			sum += Poisson(lambda, rng)
		}
		mean := float64(sum) / float64(n)
		if math.Abs(mean-lambda)/lambda > 0.05 {
			t.Errorf("lambda %g: sample mean %g", lambda, mean)
		}
	}
	if Poisson(0, rng) != 0 {
		t.Error("zero mean should give zero")
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{5, 1, 3, 2, 4}
	tests := []struct {
		q, want float64
	}{
		{0, 1}, {50, 3}, {100, 5}, {25, 2}, {90, 4.6},
	}
	for _, tt := range tests {
		if got := Percentile(values, tt.q); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Percentile(%g) = %g, want %g", tt.q, got, tt.want)
		}
	}
	if values[0] != 5 {
		t.Error("Percentile must not sort its input")
	}
	if !math.IsNaN(Percentile(nil, 50)) {
		t.Error("empty input should give NaN")
	}
}
