package field

import (
	"errors"
	"math"
	"testing"
)

func sumPlusOne(dst, center Cell, neighbors []Cell, dt float64) error {
	sum := 0.0
	for _, n := range neighbors {
		sum += n[0]
	}
	dst[0] = sum + 1
	return nil
}

func mustGet(t *testing.T, g *Grid, c ...int) float64 {
	t.Helper()
	v, err := g.Get(Coord(c))
	if err != nil {
		t.Fatalf("get %v: %v", c, err)
	}
	return v[0]
}

func TestStepper_SumPlusOneFixedBoundary(t *testing.T) {
	g, _ := New(Shape{3, 3}, 1, nil)
	st := NewStepper(VonNeumann(2), Fixed)
	rule := RuleFunc(sumPlusOne)

	want := []struct {
		corner, edge, center float64
	}{
		{1, 1, 1},
		{3, 4, 5},
		{9, 12, 17},
	}

	for i, w := range want {
		if err := st.Step(g, 1, rule); err != nil {
			t.Fatalf("step %d: %v", i+1, err)
		}
		if got := mustGet(t, g, 0, 0); got != w.corner {
			t.Errorf("step %d corner = %v, want %v", i+1, got, w.corner)
		}
		if got := mustGet(t, g, 0, 1); got != w.edge {
			t.Errorf("step %d edge = %v, want %v", i+1, got, w.edge)
		}
		if got := mustGet(t, g, 1, 1); got != w.center {
			t.Errorf("step %d center = %v, want %v", i+1, got, w.center)
		}
	}

	if c := st.Clock(); c.Step != 3 || c.Time != 3 {
		t.Errorf("clock = %+v, want step 3 time 3", c)
	}
}

func TestStepper_DoubleBuffered(t *testing.T) {
	// A shift rule copies the left neighbor. With in-place updates the first
	// value would smear across the whole row in a single pass.
	g, _ := New(Shape{1, 4}, 1, func(c Coord) Cell {
		if c[1] == 0 {
			return Cell{1}
		}
		return Cell{0}
	})
	st := NewStepper(VonNeumann(2), Fixed)
	shift := RuleFunc(func(dst, center Cell, n []Cell, dt float64) error {
		dst[0] = n[2][0]
		return nil
	})

	if err := st.Step(g, 1, shift); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	want := []float64{0, 1, 0, 0}
	for i, w := range want {
		if got := mustGet(t, g, 0, i); got != w {
			t.Errorf("cell %d = %v, want %v", i, got, w)
		}
	}
}

func TestStepper_Boundaries(t *testing.T) {
	// 1-D grid [1 2 3]; the rule records the left neighbor of each cell.
	left := RuleFunc(func(dst, center Cell, n []Cell, dt float64) error {
		dst[0] = n[0][0]
		return nil
	})
	right := RuleFunc(func(dst, center Cell, n []Cell, dt float64) error {
		dst[0] = n[1][0]
		return nil
	})

	tests := []struct {
		boundary Boundary
		rule     Rule
		want     []float64
	}{
		{Reflect, left, []float64{2, 1, 2}},
		{Reflect, right, []float64{2, 3, 2}},
		{ZeroFlux, left, []float64{1, 1, 2}},
		{ZeroFlux, right, []float64{2, 3, 3}},
		{Fixed, left, []float64{0, 1, 2}},
		{Fixed, right, []float64{2, 3, 0}},
		{Periodic, left, []float64{3, 1, 2}},
		{Periodic, right, []float64{2, 3, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.boundary.String(), func(t *testing.T) {
			g, _ := New(Shape{3}, 1, func(c Coord) Cell { return Cell{float64(c[0] + 1)} })
			st := NewStepper(VonNeumann(1), tt.boundary)
			if err := st.Step(g, 1, tt.rule); err != nil {
				t.Fatalf("step failed: %v", err)
			}
			for i, w := range tt.want {
				if got := mustGet(t, g, i); got != w {
					t.Errorf("cell %d = %v, want %v", i, got, w)
				}
			}
		})
	}
}

func TestStepper_NoPartialCommit(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		rule Rule
		want error
	}{
		{"error", RuleFunc(func(dst, center Cell, n []Cell, dt float64) error {
			dst[0] = 100
			if center[0] == 4 {
				return boom
			}
			return nil
		}), boom},
		{"panic", RuleFunc(func(dst, center Cell, n []Cell, dt float64) error {
			dst[0] = 100
			if center[0] == 4 {
				panic("bad cell")
			}
			return nil
		}), ErrStepComputation},
		{"nan", RuleFunc(func(dst, center Cell, n []Cell, dt float64) error {
			dst[0] = 100
			if center[0] == 4 {
				dst[0] = math.NaN()
			}
			return nil
		}), ErrNonFinite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := New(Shape{3, 3}, 1, func(c Coord) Cell { return Cell{float64(c[0]*3 + c[1])} })
			before := g.Clone()
			st := NewStepper(VonNeumann(2), Reflect)

			err := st.Step(g, 0.5, tt.rule)
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var stepErr *StepComputationError
			if !errors.As(err, &stepErr) {
				t.Fatalf("expected *StepComputationError, got %T", err)
			}
			if !errors.Is(err, ErrStepComputation) || !errors.Is(err, tt.want) {
				t.Errorf("error %v does not match %v", err, tt.want)
			}
			if stepErr.Step != 1 {
				t.Errorf("expected step 1, got %d", stepErr.Step)
			}
			if len(stepErr.Coord) != 2 || stepErr.Coord[0] != 1 || stepErr.Coord[1] != 1 {
				t.Errorf("expected coord [1 1], got %v", stepErr.Coord)
			}

			if !g.Equal(before) {
				t.Error("grid changed after failed step")
			}
			if c := st.Clock(); c.Step != 0 || c.Time != 0 {
				t.Errorf("clock advanced after failed step: %+v", c)
			}
		})
	}
}

func TestStepper_InvalidTimestep(t *testing.T) {
	g, _ := New(Shape{2, 2}, 1, nil)
	st := NewStepper(VonNeumann(2), Reflect)

	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := st.Step(g, dt, RuleFunc(sumPlusOne)); !errors.Is(err, ErrInvalidTimestep) {
			t.Errorf("dt=%v: expected ErrInvalidTimestep, got %v", dt, err)
		}
	}
}

func TestStepper_StencilRankMismatch(t *testing.T) {
	g, _ := New(Shape{2, 2}, 1, nil)
	st := NewStepper(VonNeumann(3), Reflect)
	if err := st.Step(g, 1, RuleFunc(sumPlusOne)); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("expected ErrInvalidShape, got %v", err)
	}
}

func TestStencils(t *testing.T) {
	tests := []struct {
		name    string
		stencil Stencil
		size    int
	}{
		{"von neumann 1d", VonNeumann(1), 2},
		{"von neumann 2d", VonNeumann(2), 4},
		{"von neumann 3d", VonNeumann(3), 6},
		{"moore 1d", Moore(1), 2},
		{"moore 2d", Moore(2), 8},
		{"moore 3d", Moore(3), 26},
	}
	for _, tt := range tests {
		if len(tt.stencil) != tt.size {
			t.Errorf("%s: expected %d offsets, got %d", tt.name, tt.size, len(tt.stencil))
		}
	}

	vn := VonNeumann(2)
	want := []Offset{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	for i, off := range want {
		if vn[i][0] != off[0] || vn[i][1] != off[1] {
			t.Errorf("VonNeumann(2)[%d] = %v, want %v", i, vn[i], off)
		}
	}
}

func TestParseBoundary(t *testing.T) {
	tests := []struct {
		in   string
		want Boundary
	}{
		{"reflect", Reflect},
		{"mirror", Reflect},
		{"zero_flux", ZeroFlux},
		{"fixed", Fixed},
		{"periodic", Periodic},
	}
	for _, tt := range tests {
		got, err := ParseBoundary(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseBoundary(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseBoundary("sideways"); err == nil {
		t.Error("expected error for unknown boundary")
	}
}
