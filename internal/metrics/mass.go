package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/gridsim/internal/field"
	"github.com/san-kum/gridsim/internal/sim"
)

var (
	_ sim.Metric = (*Energy)(nil)
	_ sim.Metric = (*EnergyDrift)(nil)
	_ sim.Metric = (*Stability)(nil)
	_ sim.Metric = (*AnomalyRate)(nil)
	_ sim.Metric = (*Peak)(nil)
	_ sim.Metric = (*Mass)(nil)
)

// Mass reports the largest absolute change in the sum of component 0 from
// the first observed cycle. Conservative rules under periodic or zero-flux
// boundaries keep it near zero.
type Mass struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewMass() *Mass {
	return &Mass{name: "mass_drift"}
}

func (m *Mass) Name() string { return m.name }

func (m *Mass) OnCycleComplete(snap field.Snapshot, anomalies int) {
	total := floats.Sum(snap.Component(0))
	if m.samples == 0 {
		m.initial = total
	}
	m.samples++
	m.maxDrift = math.Max(m.maxDrift, math.Abs(total-m.initial))
}

func (m *Mass) Value() float64 { return m.maxDrift }

func (m *Mass) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}

// Names lists every metric New understands.
func Names() []string {
	return []string{"energy", "energy_drift", "stability", "anomaly_rate", "peak", "mass_drift"}
}

// New builds a metric by name, or returns nil.
func New(name string) sim.Metric {
	switch name {
	case "energy":
		return NewEnergy()
	case "energy_drift":
		return NewEnergyDrift()
	case "stability":
		return NewStability()
	case "anomaly_rate":
		return NewAnomalyRate()
	case "peak":
		return NewPeak()
	case "mass_drift":
		return NewMass()
	}
	return nil
}
