package domain

// GraphDiff represents the changes between two snapshots of the same session.
// It is serialized to JSON for partial updates on streaming clients.
type GraphDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// Reset is set when the new snapshot does not extend the old one.
	// Clients must drop their local graph before applying Nodes and Edges.
	Reset bool `json:"reset,omitempty"`

	// Nodes and Edges contain only the appended items (or everything on Reset).
	Nodes []Node `json:"nodes,omitempty"`
	Edges []Edge `json:"edges,omitempty"`

	// Status changed?
	Status *RunStatus `json:"status,omitempty"`
}

// Diff calculates the difference between old and new.
// A nil old snapshot yields a diff carrying the entire new graph.
// The graph is append-only within a run, so anything that is not a strict
// extension of old is reported as a reset.
func Diff(sessionID string, old *Snapshot, new Snapshot) *GraphDiff {
	diff := &GraphDiff{SessionID: sessionID}

	if old == nil || !isPrefix(*old, new) {
		diff.Reset = old != nil
		diff.Nodes = cloneNodes(new.Nodes)
		diff.Edges = cloneEdges(new.Edges)
		if old == nil && diff.IsEmpty() {
			return nil
		}
		return diff
	}

	diff.Nodes = cloneNodes(new.Nodes[len(old.Nodes):])
	diff.Edges = cloneEdges(new.Edges[len(old.Edges):])

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// WithStatus attaches a status change to the diff, creating one if needed.
func (d *GraphDiff) WithStatus(sessionID string, status RunStatus) *GraphDiff {
	if d == nil {
		d = &GraphDiff{SessionID: sessionID}
	}
	d.Status = &status
	return d
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *GraphDiff) IsEmpty() bool {
	return !d.Reset && len(d.Nodes) == 0 && len(d.Edges) == 0 && d.Status == nil
}

func isPrefix(old, new Snapshot) bool {
	if len(old.Nodes) > len(new.Nodes) || len(old.Edges) > len(new.Edges) {
		return false
	}
	for i := range old.Nodes {
		if old.Nodes[i].ID != new.Nodes[i].ID {
			return false
		}
	}
	for i := range old.Edges {
		if old.Edges[i] != new.Edges[i] {
			return false
		}
	}
	return true
}

func cloneNodes(in []Node) []Node {
	if len(in) == 0 {
		return nil
	}
	out := make([]Node, len(in))
	copy(out, in)
	return out
}

func cloneEdges(in []Edge) []Edge {
	if len(in) == 0 {
		return nil
	}
	out := make([]Edge, len(in))
	copy(out, in)
	return out
}
