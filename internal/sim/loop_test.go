package sim_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gridsim/internal/field"
	"github.com/san-kum/gridsim/internal/sim"
)

var sumPlusOne = field.RuleFunc(func(dst, center field.Cell, n []field.Cell, dt float64) error {
	sum := 0.0
	for _, nb := range n {
		sum += nb[0]
	}
	dst[0] = sum + 1
	return nil
})

type phaseProbe struct {
	loop   *sim.Loop
	phases []sim.Phase
}

func (p *phaseProbe) OnCycleComplete(snap field.Snapshot, anomalies int) {
	p.phases = append(p.phases, p.loop.Phase())
}

type countMetric struct {
	cycles int
	resets int
}

func (m *countMetric) Name() string   { return "cycles" }
func (m *countMetric) Value() float64 { return float64(m.cycles) }
func (m *countMetric) Reset()         { m.cycles = 0; m.resets++ }
func (m *countMetric) OnCycleComplete(snap field.Snapshot, anomalies int) {
	m.cycles++
}

func newGrid(init field.InitFunc) *field.Grid {
	g, err := field.New(field.Shape{3, 3}, 1, init)
	Expect(err).NotTo(HaveOccurred())
	return g
}

var _ = Describe("Loop", func() {
	var (
		grid    *field.Grid
		stepper *field.Stepper
		cfg     sim.Config
	)

	BeforeEach(func() {
		grid = newGrid(nil)
		stepper = field.NewStepper(field.VonNeumann(2), field.Fixed)
		cfg = sim.Config{Dt: 1, Bound: 10}
	})

	Describe("construction", func() {
		It("rejects invalid configs", func() {
			for _, bad := range []sim.Config{
				{Dt: 0, Bound: 1},
				{Dt: -1, Bound: 1},
				{Dt: math.NaN(), Bound: 1},
				{Dt: 1, Bound: -1},
				{Dt: 1, Bound: math.Inf(1)},
			} {
				_, err := sim.New(grid, stepper, sumPlusOne, bad)
				Expect(err).To(MatchError(sim.ErrInvalidConfig))
			}
		})

		It("rejects a missing rule", func() {
			_, err := sim.New(grid, stepper, nil, cfg)
			Expect(err).To(MatchError(sim.ErrInvalidConfig))
		})

		It("clamps anomalies already present in the initial grid", func() {
			grid = newGrid(func(c field.Coord) field.Cell {
				if c[0] == 1 && c[1] == 1 {
					return field.Cell{50}
				}
				return field.Cell{0}
			})
			loop, err := sim.New(grid, stepper, sumPlusOne, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(loop.InitialRepairs()).To(Equal(1))
			Expect(loop.Snapshot().Cell(field.Coord{1, 1})).To(Equal(field.Cell{10}))
			Expect(loop.Phase()).To(Equal(sim.Idle))
		})
	})

	Describe("RunOneCycle", func() {
		It("exports after detecting when nothing is out of bounds", func() {
			loop, err := sim.New(grid, stepper, sumPlusOne, cfg)
			Expect(err).NotTo(HaveOccurred())
			probe := &phaseProbe{loop: loop}
			loop.AddObserver(probe)

			cycle, err := loop.RunOneCycle()
			Expect(err).NotTo(HaveOccurred())
			Expect(cycle.Anomalies).To(Equal(0))
			Expect(cycle.Repaired).To(Equal(0))
			Expect(cycle.Snapshot.Step).To(Equal(1))
			Expect(probe.phases).To(Equal([]sim.Phase{sim.Exported}))
		})

		It("repairs the center once it exceeds the bound", func() {
			loop, err := sim.New(grid, stepper, sumPlusOne, cfg)
			Expect(err).NotTo(HaveOccurred())

			var anomalies []int
			loop.AddObserver(sim.ObserverFunc(func(snap field.Snapshot, n int) {
				anomalies = append(anomalies, n)
			}))

			var last *sim.Cycle
			for i := 0; i < 3; i++ {
				last, err = loop.RunOneCycle()
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(anomalies).To(Equal([]int{0, 0, 5}))
			Expect(last.Repaired).To(Equal(5))
			Expect(last.Snapshot.Cell(field.Coord{1, 1})).To(Equal(field.Cell{10}))
			Expect(last.Snapshot.Cell(field.Coord{0, 0})).To(Equal(field.Cell{9}))
			Expect(last.Snapshot.MaxAbs()).To(BeNumerically("<=", 10))
		})

		It("rolls back and returns to idle when the rule fails", func() {
			boom := errors.New("boom")
			calls := 0
			flaky := field.RuleFunc(func(dst, center field.Cell, n []field.Cell, dt float64) error {
				calls++
				if calls == 5 {
					return boom
				}
				dst[0] = center[0] + 1
				return nil
			})

			loop, err := sim.New(grid, stepper, flaky, cfg)
			Expect(err).NotTo(HaveOccurred())
			before := loop.Snapshot()

			_, err = loop.RunOneCycle()
			Expect(err).To(MatchError(boom))
			Expect(err).To(MatchError(field.ErrStepComputation))

			var stepErr *field.StepComputationError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal(1))

			Expect(loop.Phase()).To(Equal(sim.Idle))
			Expect(loop.Snapshot()).To(Equal(before))

			cycle, err := loop.RunOneCycle()
			Expect(err).NotTo(HaveOccurred())
			Expect(cycle.Snapshot.Step).To(Equal(1))
		})

		It("refuses to step after Stop", func() {
			loop, err := sim.New(grid, stepper, sumPlusOne, cfg)
			Expect(err).NotTo(HaveOccurred())
			loop.Stop()

			_, err = loop.RunOneCycle()
			Expect(err).To(MatchError(sim.ErrStopped))
			Expect(loop.Clock().Step).To(Equal(0))
			Expect(loop.Phase()).To(Equal(sim.Idle))
		})
	})

	Describe("Run", func() {
		It("stops at the budget and reports metrics", func() {
			loop, err := sim.New(grid, stepper, sumPlusOne, cfg)
			Expect(err).NotTo(HaveOccurred())
			metric := &countMetric{}
			loop.AddMetric(metric)

			result, err := loop.Run(context.Background(), 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Cycles).To(Equal(4))
			Expect(result.Stopped).To(BeFalse())
			Expect(result.Final.Step).To(Equal(4))
			Expect(result.Metrics).To(HaveKeyWithValue("cycles", 4.0))
			Expect(metric.resets).To(Equal(1))
			Expect(loop.Phase()).To(Equal(sim.Idle))
		})

		It("honours Stop between cycles", func() {
			loop, err := sim.New(grid, stepper, sumPlusOne, cfg)
			Expect(err).NotTo(HaveOccurred())
			loop.AddObserver(sim.ObserverFunc(func(snap field.Snapshot, n int) {
				if snap.Step == 2 {
					loop.Stop()
				}
			}))

			result, err := loop.Run(context.Background(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Stopped).To(BeTrue())
			Expect(result.Cycles).To(Equal(2))
		})

		It("returns the context error with a partial result", func() {
			loop, err := sim.New(grid, stepper, sumPlusOne, cfg)
			Expect(err).NotTo(HaveOccurred())
			ctx, cancel := context.WithCancel(context.Background())
			loop.AddObserver(sim.ObserverFunc(func(snap field.Snapshot, n int) {
				if snap.Step == 3 {
					cancel()
				}
			}))

			result, err := loop.Run(ctx, 100)
			Expect(err).To(MatchError(context.Canceled))
			Expect(result.Cycles).To(Equal(3))
		})

		It("keeps every cell inside the bound after each cycle", func() {
			loop, err := sim.New(grid, stepper, sumPlusOne, cfg)
			Expect(err).NotTo(HaveOccurred())
			loop.AddObserver(sim.ObserverFunc(func(snap field.Snapshot, n int) {
				Expect(snap.MaxAbs()).To(BeNumerically("<=", cfg.Bound))
			}))

			_, err = loop.Run(context.Background(), 20)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Recorder", func() {
		It("keeps every Nth snapshot", func() {
			loop, err := sim.New(grid, stepper, sumPlusOne, cfg)
			Expect(err).NotTo(HaveOccurred())
			rec := sim.NewRecorder(2)
			rec.Record(loop.Snapshot())
			loop.AddObserver(rec)

			_, err = loop.Run(context.Background(), 5)
			Expect(err).NotTo(HaveOccurred())

			steps := []int{}
			for _, s := range rec.History() {
				steps = append(steps, s.Step)
			}
			Expect(steps).To(Equal([]int{0, 2, 4}))
		})

		It("keeps its own copy of each snapshot", func() {
			loop, err := sim.New(grid, stepper, sumPlusOne, cfg)
			Expect(err).NotTo(HaveOccurred())
			rec := sim.NewRecorder(1)
			loop.AddObserver(rec)

			cycle, err := loop.RunOneCycle()
			Expect(err).NotTo(HaveOccurred())
			cycle.Snapshot.Values[0] = 99

			history := rec.History()
			Expect(history).To(HaveLen(1))
			Expect(history[0].Values[0]).To(Equal(1.0))
		})
	})
})
