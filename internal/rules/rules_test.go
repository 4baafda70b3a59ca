package rules

import (
	"math"
	"testing"

	"github.com/san-kum/gridsim/internal/field"
)

func cells(vals ...float64) []field.Cell {
	out := make([]field.Cell, len(vals))
	for i, v := range vals {
		out[i] = field.Cell{v}
	}
	return out
}

func TestDiffusion_Apply(t *testing.T) {
	d := NewDiffusion(0.25)
	dst := make(field.Cell, 1)

	if err := d.Apply(dst, field.Cell{1}, cells(0, 0, 0, 0), 1); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if dst[0] != 0 {
		t.Errorf("expected full spread to 0, got %f", dst[0])
	}

	if err := d.Apply(dst, field.Cell{2}, cells(2, 2, 2, 2), 0.1); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if dst[0] != 2 {
		t.Errorf("uniform field should be stationary, got %f", dst[0])
	}
}

func TestDiffusion_ConservesMassWithPeriodicBoundary(t *testing.T) {
	g, _ := field.New(field.Shape{8, 8}, 1, func(c field.Coord) field.Cell {
		if c[0] == 3 && c[1] == 4 {
			return field.Cell{64}
		}
		return field.Cell{0}
	})
	st := field.NewStepper(field.VonNeumann(2), field.Periodic)
	d := NewDiffusion(0.2)

	for i := 0; i < 50; i++ {
		if err := st.Step(g, 1, d); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	snap := field.TakeSnapshot(g, st.Clock())
	if mass := snap.Mean(0) * 64; math.Abs(mass-64) > 1e-9 {
		t.Errorf("mass not conserved: %f", mass)
	}
	if snap.MaxAbs() >= 64 {
		t.Error("peak did not spread")
	}
}

func TestWave_Apply(t *testing.T) {
	w := NewWave(1, 0)
	dst := make(field.Cell, 2)
	n := []field.Cell{{1, 0}, {1, 0}}

	if err := w.Apply(dst, field.Cell{0, 0}, n, 0.1); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if math.Abs(dst[1]-0.2) > 1e-12 {
		t.Errorf("velocity = %f, want 0.2", dst[1])
	}
	if math.Abs(dst[0]-0.02) > 1e-12 {
		t.Errorf("displacement = %f, want 0.02", dst[0])
	}

	if err := w.Apply(make(field.Cell, 1), field.Cell{0}, nil, 0.1); err == nil {
		t.Error("expected width error for single-component cells")
	}
}

func TestRandomWalk_Seeded(t *testing.T) {
	run := func(seed int64) []float64 {
		r := NewSeededRandomWalk(0.5, 1, seed)
		out := make([]float64, 0, 10)
		dst := make(field.Cell, 1)
		center := field.Cell{0}
		for i := 0; i < 10; i++ {
			if err := r.Apply(dst, center, cells(1, -1), 0.1); err != nil {
				t.Fatalf("apply failed: %v", err)
			}
			out = append(out, dst[0])
			center = field.Cell{dst[0]}
		}
		return out
	}

	a, b, c := run(7), run(7), run(8)
	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverged at %d: %f vs %f", i, a[i], b[i])
		}
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical sequences")
	}

	if err := NewRandomWalk(1, 1, nil).Apply(make(field.Cell, 1), field.Cell{0}, nil, 1); err == nil {
		t.Error("expected error without a random source")
	}
}

func TestNeighborSumAndDecay(t *testing.T) {
	dst := make(field.Cell, 1)

	_ = NewNeighborSum(1).Apply(dst, field.Cell{9}, cells(1, 2, 3), 1)
	if dst[0] != 7 {
		t.Errorf("neighbor sum = %f, want 7", dst[0])
	}

	_ = NewDecay(0.5).Apply(dst, field.Cell{4}, nil, 1)
	if dst[0] != 2 {
		t.Errorf("decay = %f, want 2", dst[0])
	}
}

func TestConfigurable(t *testing.T) {
	tests := []struct {
		name  string
		rule  Configurable
		param string
	}{
		{"diffusion", NewDiffusion(0.1), "rate"},
		{"wave", NewWave(1, 0), "damping"},
		{"random_walk", NewSeededRandomWalk(1, 1, 1), "sigma"},
		{"neighbor_sum", NewNeighborSum(1), "offset"},
		{"decay", NewDecay(0.1), "rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.rule.SetParam(tt.param, 0.75); err != nil {
				t.Fatalf("SetParam failed: %v", err)
			}
			if got := tt.rule.GetParams()[tt.param]; got != 0.75 {
				t.Errorf("param %s = %f, want 0.75", tt.param, got)
			}
			if err := tt.rule.SetParam("nope", 1); err == nil {
				t.Error("expected error for unknown param")
			}
		})
	}
}
