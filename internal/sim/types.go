package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/gridsim/internal/field"
)

var (
	// ErrStopped is returned by RunOneCycle once Stop has been called.
	ErrStopped = errors.New("sim: loop stopped")

	// ErrInvalidConfig indicates a loop configuration that cannot run.
	ErrInvalidConfig = errors.New("sim: invalid config")
)

// Phase is the loop's position in the step/detect/repair/export cycle.
type Phase int

const (
	Idle Phase = iota
	Stepping
	Detecting
	Repairing
	Exported
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Stepping:
		return "stepping"
	case Detecting:
		return "detecting"
	case Repairing:
		return "repairing"
	case Exported:
		return "exported"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

type Config struct {
	Dt    float64
	Bound float64
}

func DefaultConfig() Config {
	return Config{
		Dt:    0.1,
		Bound: 10.0,
	}
}

// Observer is notified after every completed cycle. The snapshot is the one
// returned in Cycle and is shared with every other observer; observers that
// keep or modify it must Clone it first.
type Observer interface {
	OnCycleComplete(snap field.Snapshot, anomalies int)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(snap field.Snapshot, anomalies int)

func (f ObserverFunc) OnCycleComplete(snap field.Snapshot, anomalies int) { f(snap, anomalies) }

// Metric is an Observer that reduces a run to a single number.
type Metric interface {
	Observer
	Name() string
	Value() float64
	Reset()
}

// Cycle describes one completed step/detect/repair/export pass.
type Cycle struct {
	Snapshot  field.Snapshot
	Anomalies int
	Repaired  int
}

type Result struct {
	Cycles    int
	Anomalies int
	Repaired  int
	Stopped   bool
	Final     field.Snapshot
	Metrics   map[string]float64
}
