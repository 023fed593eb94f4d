package domain

import "time"

// RunStatus is the state of the animation driver for one session.
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status ends a run.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ChainPolicy decides which prior node a new step is linked to.
type ChainPolicy string

const (
	// ChainLinear links every step to the node created immediately before it.
	ChainLinear ChainPolicy = "linear"

	// ChainBranchByKind hangs retrieval and data steps from the most recent
	// reasoning node, and everything else from the previous node.
	ChainBranchByKind ChainPolicy = "branch"
)

// ParseChainPolicy maps a flag value to a policy. Empty means linear.
func ParseChainPolicy(s string) (ChainPolicy, bool) {
	switch ChainPolicy(s) {
	case "", ChainLinear:
		return ChainLinear, true
	case ChainBranchByKind:
		return ChainBranchByKind, true
	}
	return "", false
}

// RunRequest describes one visualization run.
type RunRequest struct {
	Query    string        `json:"query"`
	Steps    int           `json:"steps"`
	Delay    time.Duration `json:"delay"`
	Chaining ChainPolicy   `json:"chaining,omitempty"`
}

// RunResult summarizes the outcome of the latest run.
type RunResult struct {
	RunID      string    `json:"run_id,omitempty"`
	Query      string    `json:"query,omitempty"`
	Status     RunStatus `json:"status"`
	Applied    int       `json:"applied"`
	Err        string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Duration returns how long the run took, or zero while it is still running.
func (r RunResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
