package rules

import "github.com/san-kum/gridsim/internal/field"

// NeighborSum sets every component to the sum of the neighbors' components
// plus Offset. It grows without limit and is mostly useful for exercising the
// repair path.
type NeighborSum struct {
	Offset float64
}

func NewNeighborSum(offset float64) *NeighborSum {
	return &NeighborSum{Offset: offset}
}

func (s *NeighborSum) Apply(dst, center field.Cell, neighbors []field.Cell, dt float64) error {
	for i := range dst {
		sum := s.Offset
		for _, n := range neighbors {
			sum += n[i]
		}
		dst[i] = sum
	}
	return nil
}

func (s *NeighborSum) GetParams() map[string]float64 {
	return map[string]float64{"offset": s.Offset}
}

func (s *NeighborSum) SetParam(name string, v float64) error {
	if name != "offset" {
		return unknownParam("neighbor_sum", name, s.GetParams())
	}
	s.Offset = v
	return nil
}

// Decay scales every component by (1 - Rate*dt).
type Decay struct {
	Rate float64
}

func NewDecay(rate float64) *Decay {
	return &Decay{Rate: rate}
}

func (d *Decay) Apply(dst, center field.Cell, _ []field.Cell, dt float64) error {
	f := 1 - d.Rate*dt
	for i := range dst {
		dst[i] = center[i] * f
	}
	return nil
}

func (d *Decay) GetParams() map[string]float64 {
	return map[string]float64{"rate": d.Rate}
}

func (d *Decay) SetParam(name string, v float64) error {
	if name != "rate" {
		return unknownParam("decay", name, d.GetParams())
	}
	d.Rate = v
	return nil
}
