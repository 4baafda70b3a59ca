package rules

import "github.com/san-kum/gridsim/internal/field"

// Diffusion applies u' = u + Rate*dt*(sum(n) - len(n)*u) to every component.
// The explicit scheme is stable for Rate*dt*len(n) <= 1.
type Diffusion struct {
	Rate float64
}

func NewDiffusion(rate float64) *Diffusion {
	return &Diffusion{Rate: rate}
}

func (d *Diffusion) Apply(dst, center field.Cell, neighbors []field.Cell, dt float64) error {
	k := d.Rate * dt
	for i := range dst {
		lap := -float64(len(neighbors)) * center[i]
		for _, n := range neighbors {
			lap += n[i]
		}
		dst[i] = center[i] + k*lap
	}
	return nil
}

func (d *Diffusion) GetParams() map[string]float64 {
	return map[string]float64{"rate": d.Rate}
}

func (d *Diffusion) SetParam(name string, v float64) error {
	switch name {
	case "rate":
		d.Rate = v
	default:
		return unknownParam("diffusion", name, d.GetParams())
	}
	return nil
}
