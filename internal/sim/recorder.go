package sim

import "github.com/san-kum/gridsim/internal/field"

// Recorder keeps every Nth exported snapshot as run history.
type Recorder struct {
	every   int
	seen    int
	history []field.Snapshot
}

// NewRecorder records every cycle when every <= 1.
func NewRecorder(every int) *Recorder {
	if every < 1 {
		every = 1
	}
	return &Recorder{every: every}
}

// Record appends a copy of snap unconditionally, e.g. the initial state.
func (r *Recorder) Record(snap field.Snapshot) {
	r.history = append(r.history, snap.Clone())
}

func (r *Recorder) OnCycleComplete(snap field.Snapshot, anomalies int) {
	r.seen++
	if r.seen%r.every == 0 {
		r.history = append(r.history, snap.Clone())
	}
}

func (r *Recorder) History() []field.Snapshot { return r.history }

func (r *Recorder) Reset() {
	r.seen = 0
	r.history = nil
}
