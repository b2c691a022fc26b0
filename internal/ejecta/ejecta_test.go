package ejecta_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/icestrat/internal/config"
	"github.com/san-kum/icestrat/internal/craters"
	"github.com/san-kum/icestrat/internal/ejecta"
)

var _ = Describe("Thickness", func() {
	var cfg *config.Config
	const rad = 10e3

	BeforeEach(func() {
		cfg = config.DefaultConfig()
	})

	It("is zero inside the crater", func() {
		Expect(ejecta.Thickness(rad/2, rad, cfg)).To(BeZero())
	})

	It("is zero for NaN distances", func() {
		Expect(ejecta.Thickness(math.NaN(), rad, cfg)).To(BeZero())
	})

	It("matches the rim value a*R^b", func() {
		want := cfg.EjectaA * math.Pow(rad, cfg.EjectaB)
		Expect(ejecta.Thickness(rad, rad, cfg)).To(BeNumerically("~", want, 1e-9))
	})

	It("decreases with distance", func() {
		prev := ejecta.Thickness(rad, rad, cfg)
		for d := 1.5 * rad; d <= 4*rad; d += rad / 2 {
			th := ejecta.Thickness(d, rad, cfg)
			Expect(th).To(BeNumerically("<", prev))
			prev = th
		}
	})

	It("is cut off beyond ejecta_threshold radii", func() {
		Expect(ejecta.Thickness(5*rad, rad, cfg)).To(BeZero())
		cfg.EjectaThreshold = -1
		Expect(ejecta.Thickness(5*rad, rad, cfg)).To(BeNumerically(">", 0))
	})

	It("builds a matrix over craters and cold traps", func() {
		list := craters.List{{Name: "a", Rad: rad}, {Name: "b", Rad: 2 * rad}}
		dists := [][]float64{{2 * rad, math.NaN()}, {3 * rad, 100 * rad}}

		m := ejecta.ThicknessMatrix(list, dists, cfg)
		Expect(m).To(HaveLen(2))
		Expect(m[0][0]).To(BeNumerically(">", 0))
		Expect(m[0][1]).To(BeZero())
		Expect(m[1][1]).To(BeZero())
	})
})

var _ = Describe("Ballistic sedimentation", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.DefaultConfig()
	})

	It("increases launch speed with distance", func() {
		v1 := ejecta.BallisticVelocity(10e3, cfg)
		v2 := ejecta.BallisticVelocity(100e3, cfg)
		Expect(v1).To(BeNumerically(">", 0))
		Expect(v2).To(BeNumerically(">", v1))
	})

	It("computes kinetic energy", func() {
		Expect(ejecta.KineticEnergy(2, 3)).To(Equal(9.0))
	})

	It("gives the energy of an arriving deposit", func() {
		v := ejecta.BallisticVelocity(50e3, cfg)
		want := ejecta.KineticEnergy(0.2*cfg.BulkDensity, v)
		Expect(ejecta.ArrivalEnergy(0.2, 50e3, cfg)).To(BeNumerically("~", want, 1e-9*want))
		Expect(ejecta.ArrivalEnergy(0.2, 100e3, cfg)).To(BeNumerically(">", want))
		Expect(ejecta.ArrivalEnergy(0, 50e3, cfg)).To(BeZero())
		Expect(ejecta.ArrivalEnergy(0.2, math.NaN(), cfg)).To(BeZero())
	})

	It("has a monotonic mixing ratio", func() {
		Expect(ejecta.MixingRatio(1e3, cfg)).To(BeNumerically("~", cfg.MixingRatioA, 1e-12))
		Expect(ejecta.MixingRatio(200e3, cfg)).To(BeNumerically(">", ejecta.MixingRatio(50e3, cfg)))
		Expect(ejecta.MixingRatio(math.NaN(), cfg)).To(BeZero())
	})

	It("scales reworked depth by the mixing ratio", func() {
		Expect(ejecta.BsedDepth(2, 1.5)).To(Equal(3.0))
	})

	DescribeTable("volatilized fraction",
		func(ejTemp, mr, want float64) {
			Expect(ejecta.VolatilizedFrac(ejTemp, mr, cfg)).To(BeNumerically("~", want, 1e-9))
		},
		Entry("cold ejecta", 100.0, 1.0, 0.0),
		Entry("hot unmixed ejecta", 420.0, 0.0, 1.0),
		Entry("halfway", 155.0, 0.0, 0.5),
		Entry("mixing cools", 200.0, 1.0, 0.5),
	)

	It("uses bsed_loss_frac when set", func() {
		cfg.BsedLossFrac = 0.5
		Expect(ejecta.VolatilizedFrac(1000, 0, cfg)).To(Equal(0.5))
	})

	It("picks basin ejecta temperatures", func() {
		Expect(ejecta.Temp(craters.Crater{}, cfg)).To(Equal(cfg.PolarEjectaTemp))
		Expect(ejecta.Temp(craters.Crater{IsBasin: true}, cfg)).To(Equal(cfg.BasinEjectaTempCold))
		cfg.BasinWarm = true
		Expect(ejecta.Temp(craters.Crater{IsBasin: true}, cfg)).To(Equal(cfg.BasinEjectaTempWarm))
	})
})
