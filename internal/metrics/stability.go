package metrics

import "github.com/san-kum/gridsim/internal/field"

// Stability is the fraction of cycles that needed no repair.
type Stability struct {
	name       string
	violations int
	samples    int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string { return s.name }

func (s *Stability) OnCycleComplete(snap field.Snapshot, anomalies int) {
	s.samples++
	if anomalies > 0 {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// AnomalyRate is the mean number of flagged cells per cell per cycle.
type AnomalyRate struct {
	name    string
	flagged int
	cells   int
}

func NewAnomalyRate() *AnomalyRate {
	return &AnomalyRate{name: "anomaly_rate"}
}

func (a *AnomalyRate) Name() string { return a.name }

func (a *AnomalyRate) OnCycleComplete(snap field.Snapshot, anomalies int) {
	a.flagged += anomalies
	a.cells += snap.Len()
}

func (a *AnomalyRate) Value() float64 {
	if a.cells == 0 {
		return 0
	}
	return float64(a.flagged) / float64(a.cells)
}

func (a *AnomalyRate) Reset() {
	a.flagged = 0
	a.cells = 0
}

// Peak is the largest absolute value seen in any exported snapshot.
type Peak struct {
	name string
	max  float64
}

func NewPeak() *Peak {
	return &Peak{name: "peak"}
}

func (p *Peak) Name() string { return p.name }

func (p *Peak) OnCycleComplete(snap field.Snapshot, anomalies int) {
	if m := snap.MaxAbs(); m > p.max {
		p.max = m
	}
}

func (p *Peak) Value() float64 { return p.max }
func (p *Peak) Reset()         { p.max = 0 }
