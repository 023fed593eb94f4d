package domain

import "time"

// RunRecord is the archived outcome of a finished run.
type RunRecord struct {
	SessionID  string     `json:"session_id"`
	RunID      string     `json:"run_id"`
	Query      string     `json:"query"`
	Status     RunStatus  `json:"status"`
	Err        string     `json:"error,omitempty"`
	Snapshot   Snapshot   `json:"snapshot"`
	Log        []LogEntry `json:"log"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// NewRunRecord builds an archive record from a finished run.
func NewRunRecord(sessionID string, result RunResult, snap Snapshot, log []LogEntry) *RunRecord {
	entries := make([]LogEntry, len(log))
	copy(entries, log)
	return &RunRecord{
		SessionID:  sessionID,
		RunID:      result.RunID,
		Query:      result.Query,
		Status:     result.Status,
		Err:        result.Err,
		Snapshot:   snap.Clone(),
		Log:        entries,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}
}

// Clone returns a deep copy of the record.
func (r *RunRecord) Clone() *RunRecord {
	c := *r
	c.Snapshot = r.Snapshot.Clone()
	c.Log = make([]LogEntry, len(r.Log))
	copy(c.Log, r.Log)
	return &c
}
