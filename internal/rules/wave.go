package rules

import "github.com/san-kum/gridsim/internal/field"

// Wave propagates a damped wave. Cells hold (displacement, velocity); the
// velocity is advanced first and the displacement uses the new velocity.
type Wave struct {
	Speed, Damping float64
}

func NewWave(speed, damping float64) *Wave {
	return &Wave{Speed: speed, Damping: damping}
}

func (w *Wave) Width() int { return 2 }

func (w *Wave) Apply(dst, center field.Cell, neighbors []field.Cell, dt float64) error {
	if err := checkWidth("wave", 2, dst, center); err != nil {
		return err
	}
	u, v := center[0], center[1]
	lap := -float64(len(neighbors)) * u
	for _, n := range neighbors {
		lap += n[0]
	}
	v += dt * (w.Speed*w.Speed*lap - w.Damping*v)
	dst[0] = u + dt*v
	dst[1] = v
	return nil
}

func (w *Wave) GetParams() map[string]float64 {
	return map[string]float64{"speed": w.Speed, "damping": w.Damping}
}

func (w *Wave) SetParam(name string, v float64) error {
	switch name {
	case "speed":
		w.Speed = v
	case "damping":
		w.Damping = v
	default:
		return unknownParam("wave", name, w.GetParams())
	}
	return nil
}
