package strat_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/craters"
	"github.com/san-kum/icestrat/internal/ejecta"
	"github.com/san-kum/icestrat/internal/strat"
)

var _ = Describe("Column", func() {
	var col *strat.Column

	BeforeEach(func() {
		col = strat.NewColumn("ct", 0, 4)
		col.Ice = []float64{1, 1, 1, 1}
		col.Ejecta = []float64{0, 0.5, 0, 0}
	})

	It("gardens ice from the top down", func() {
		removed := col.RemoveOverturn(3, 1.5)
		Expect(removed).To(BeNumerically("~", 1.5, 1e-12))
		Expect(col.Ice[3]).To(BeZero())
		Expect(col.Ice[2]).To(BeNumerically("~", 0.5, 1e-12))
		Expect(col.Ice[1]).To(Equal(1.0))
	})

	It("stops gardening at thick enough ejecta", func() {
		removed := col.RemoveOverturn(3, 2.4)
		Expect(removed).To(BeNumerically("~", 2.0, 1e-12))
		Expect(col.Ice[1]).To(Equal(1.0))
		Expect(col.Ice[0]).To(Equal(1.0))
	})

	It("shields ice under ejecta thicker than the gardening depth", func() {
		col.Ejecta[3] = 1
		Expect(col.RemoveOverturn(3, 0.8)).To(BeZero())
		Expect(col.TotalIce()).To(Equal(4.0))
	})

	It("never gardens below the formation step", func() {
		col.Formation = 2
		col.RemoveOverturn(3, 100)
		Expect(col.Ice[1]).To(Equal(1.0))
		Expect(col.Ice[0]).To(Equal(1.0))
	})

	It("volatilizes a fraction of the ice within the bsed depth", func() {
		removed := col.RemoveBsed(3, 1.5, 0.5)
		Expect(removed).To(BeNumerically("~", 0.75, 1e-12))
		Expect(col.Ice[3]).To(BeNumerically("~", 0.5, 1e-12))
		Expect(col.Ice[2]).To(BeNumerically("~", 0.75, 1e-12))
		Expect(col.Ice[1]).To(Equal(1.0))
	})

	It("counts ejecta towards the bsed depth", func() {
		col.Ejecta[3] = 1
		Expect(col.RemoveBsed(3, 1, 1)).To(BeZero())
	})

	It("reports ice in the top of the column", func() {
		Expect(col.IceWithin(2)).To(BeNumerically("~", 2, 1e-12))
		Expect(col.IceWithin(3)).To(BeNumerically("~", 2.5, 1e-12))
		Expect(col.IceWithin(100)).To(Equal(4.0))
	})
})

var _ = Describe("Layers", func() {
	times := []float64{40, 30, 20, 10}

	It("splits at every ejecta deposit", func() {
		col := strat.NewColumn("ct", 0, 4)
		col.Ice = []float64{1, 2, 3, 4}
		col.Ejecta = []float64{0, 0.5, 0, 0}
		col.Source[1] = "A"

		layers := strat.Layers(col, times)
		Expect(layers).To(HaveLen(2))

		Expect(layers[0].Ice).To(Equal(3.0))
		Expect(layers[0].Ejecta).To(Equal(0.5))
		Expect(layers[0].Source).To(Equal("A"))
		Expect(layers[0].TimeBot).To(Equal(40.0))
		Expect(layers[0].TimeTop).To(Equal(30.0))
		Expect(layers[0].Depth).To(Equal(7.0))

		Expect(layers[1].Ice).To(Equal(7.0))
		Expect(layers[1].Ejecta).To(BeZero())
		Expect(layers[1].Depth).To(BeZero())
		Expect(layers[1].IcePct()).To(Equal(100.0))
	})

	It("computes ice percentage", func() {
		l := strat.Layer{Ice: 1, Ejecta: 3}
		Expect(l.IcePct()).To(Equal(25.0))
		Expect(strat.Layer{}.IcePct()).To(BeZero())
	})
})

type stepCounter struct{ n int }

func (s *stepCounter) OnStep(int, float64, []*strat.Column) { s.n++ }

var _ = Describe("Model", func() {
	var (
		cfg *config.Config
		in  strat.Inputs
	)

	BeforeEach(func() {
		cfg = config.DefaultConfig()
		cfg.TimeStart = 100e6
		cfg.Timestep = 10e6
		n := cfg.NumSteps()

		in = strat.Inputs{
			Time: cfg.TimeArray(),
			Craters: craters.List{
				{Name: "Old", Age: 90e6, Rad: 1e3},
				{Name: "Trap", Age: 80e6, Rad: 5e3, IsColdtrap: true},
				{Name: "Young", Age: 40e6, Rad: 2e3},
			},
			Coldtraps: craters.List{{Name: "Trap", Age: 80e6}},
			Dists:     [][]float64{{10e3}, {math.NaN()}, {5e3}},
			Thick:     [][]float64{{0.4}, {0}, {0.3}},
			Ice:       [][]float64{make([]float64, n)},
			Overturn:  make([]float64, n),
		}
		for i := range in.Overturn {
			in.Ice[0][i] = 0.1
			in.Overturn[i] = 0.05
		}
	})

	run := func() []*strat.Column {
		m, err := strat.New(cfg, in)
		Expect(err).NotTo(HaveOccurred())
		cols, _, err := m.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(cols).To(HaveLen(1))
		return cols
	}

	It("accumulates nothing before the cold trap forms", func() {
		col := run()[0]
		formation := cfg.TimeIndex(80e6)
		Expect(col.Formation).To(Equal(formation))
		for i := 0; i < formation; i++ {
			Expect(col.Ice[i]).To(BeZero())
			Expect(col.Ejecta[i]).To(BeZero())
		}
	})

	It("conserves delivered ice when losses are disabled", func() {
		cfg.ImpactGardening = false
		cfg.BallisticSed = false
		col := run()[0]

		var delivered float64
		for i := col.Formation; i < len(in.Time); i++ {
			delivered += in.Ice[0][i]
		}
		Expect(col.TotalIce()).To(BeNumerically("~", delivered, 1e-12))
		Expect(col.TotalEjecta()).To(BeNumerically("~", 0.3, 1e-12))
		Expect(col.Source[cfg.TimeIndex(40e6)]).To(Equal("Young"))
	})

	It("never keeps more ice than was delivered", func() {
		col := run()[0]
		var delivered float64
		for i := col.Formation; i < len(in.Time); i++ {
			delivered += in.Ice[0][i]
		}
		Expect(col.TotalIce()).To(BeNumerically("<", delivered))
		for i := range col.Ice {
			Expect(col.Ice[i]).To(BeNumerically(">=", 0))
			Expect(col.Ejecta[i]).To(BeNumerically(">=", 0))
		}
	})

	It("records the energy of arriving ejecta", func() {
		m, err := strat.New(cfg, in)
		Expect(err).NotTo(HaveOccurred())
		_, losses, err := m.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		young := cfg.TimeIndex(40e6)
		Expect(losses.EjectaEnergy[0][young]).To(BeNumerically("~", ejecta.ArrivalEnergy(0.3, 5e3, cfg), 1e-9))
		Expect(losses.EjectaEnergy[0][cfg.TimeIndex(60e6)]).To(BeZero())
	})

	It("notifies observers every step", func() {
		m, err := strat.New(cfg, in)
		Expect(err).NotTo(HaveOccurred())
		obs := &stepCounter{}
		m.AddObserver(obs)
		_, _, err = m.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(obs.n).To(Equal(len(in.Time)))
	})

	It("stops when the context is canceled", func() {
		m, err := strat.New(cfg, in)
		Expect(err).NotTo(HaveOccurred())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err = m.Run(ctx)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})

	It("rejects mismatched inputs", func() {
		in.Ice[0] = in.Ice[0][:2]
		_, err := strat.New(cfg, in)
		Expect(errors.Is(err, strat.ErrShapeMismatch)).To(BeTrue())

		in.Ice = nil
		_, err = strat.New(cfg, in)
		Expect(errors.Is(err, strat.ErrShapeMismatch)).To(BeTrue())
	})

	It("delivers each cold trap its own ice", func() {
		cfg.ImpactGardening = false
		cfg.BallisticSed = false
		n := len(in.Time)
		in.Coldtraps = craters.List{{Name: "Trap", Age: 80e6}, {Name: "Far", Age: 80e6}}
		in.Dists = [][]float64{{10e3, 50e3}, {math.NaN(), 20e3}, {5e3, 60e3}}
		in.Thick = [][]float64{{0.4, 0}, {0, 0}, {0.3, 0}}
		in.Ice = [][]float64{make([]float64, n), make([]float64, n)}
		for i := 0; i < n; i++ {
			in.Ice[0][i] = 0.1
			in.Ice[1][i] = 0.05
		}

		m, err := strat.New(cfg, in)
		Expect(err).NotTo(HaveOccurred())
		cols, _, err := m.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(cols).To(HaveLen(2))
		Expect(cols[0].TotalIce()).To(BeNumerically("~", 2*cols[1].TotalIce(), 1e-12))
	})
})
