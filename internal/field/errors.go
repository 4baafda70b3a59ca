package field

import (
	"errors"
	"fmt"
)

// Domain errors for grid operations.
var (
	// ErrInvalidShape indicates a grid shape or cell width that cannot be allocated.
	ErrInvalidShape = errors.New("field: invalid shape")

	// ErrOutOfBounds indicates a coordinate outside the grid extent.
	ErrOutOfBounds = errors.New("field: coordinate out of bounds")

	// ErrStepComputation indicates the update rule failed and the step was rolled back.
	ErrStepComputation = errors.New("field: step computation failed")

	// ErrInvalidTimestep indicates a non-positive or non-finite dt.
	ErrInvalidTimestep = errors.New("field: timestep must be positive and finite")

	// ErrNonFinite indicates a rule produced NaN.
	ErrNonFinite = errors.New("field: rule produced NaN")
)

// InvalidShapeError reports a construction-time shape problem.
type InvalidShapeError struct {
	Shape  Shape
	Width  int
	Reason string
}

func (e *InvalidShapeError) Error() string {
	return fmt.Sprintf("field: invalid shape %v (width %d): %s", []int(e.Shape), e.Width, e.Reason)
}

func (e *InvalidShapeError) Unwrap() error { return ErrInvalidShape }

// OutOfBoundsError reports an access outside the grid extent. It is always a
// caller bug.
type OutOfBoundsError struct {
	Coord Coord
	Shape Shape
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("field: coordinate %v outside grid %v", []int(e.Coord), []int(e.Shape))
}

func (e *OutOfBoundsError) Unwrap() error { return ErrOutOfBounds }

// StepComputationError wraps a failure inside the update rule. The grid is
// left exactly as it was before the step.
type StepComputationError struct {
	Step    int
	Coord   Coord
	Wrapped error
}

func (e *StepComputationError) Error() string {
	if e.Coord == nil {
		return fmt.Sprintf("field: step %d aborted: %v", e.Step, e.Wrapped)
	}
	return fmt.Sprintf("field: step %d aborted at %v: %v", e.Step, []int(e.Coord), e.Wrapped)
}

// Unwrap exposes both the sentinel and the rule's own error.
func (e *StepComputationError) Unwrap() []error {
	return []error{ErrStepComputation, e.Wrapped}
}
