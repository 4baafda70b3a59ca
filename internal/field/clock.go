package field

// Clock counts committed steps and accumulated simulation time. Only the
// Stepper advances it, and only when a step commits.
type Clock struct {
	Step int     `json:"step"`
	Time float64 `json:"time"`
}
