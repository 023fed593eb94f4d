package domain

import (
	"math"
	"unicode/utf8"
)

// Node represents one reasoning unit in the graph.
// ID, Kind and Seq never change after creation.
type Node struct {
	ID          string  `json:"id" yaml:"id"`
	Label       string  `json:"label" yaml:"label"`
	Kind        Kind    `json:"kind" yaml:"kind"`
	Description string  `json:"description" yaml:"description"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`

	// GroupIndex cycles through the palette when kind-based coloring is unavailable.
	GroupIndex int `json:"group" yaml:"group"`

	// Seq is the zero-based creation order within the session.
	Seq int `json:"seq" yaml:"seq"`
}

// Edge is a directed link from a parent node to the node derived from it.
type Edge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// LogEntry is the textual audit record written alongside every node.
type LogEntry struct {
	StepIndex int    `json:"step" yaml:"step"`
	Kind      Kind   `json:"kind" yaml:"kind"`
	Label     string `json:"label" yaml:"label"`
}

// Snapshot is a copy of the graph at one point in time.
type Snapshot struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Nodes: make([]Node, len(s.Nodes)),
		Edges: make([]Edge, len(s.Edges)),
	}
	copy(out.Nodes, s.Nodes)
	copy(out.Edges, s.Edges)
	return out
}

// Node returns the node with the given id.
func (s Snapshot) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// TruncateLabel shortens a label to MaxLabelLength runes, appending LabelEllipsis when cut.
func TruncateLabel(label string) string {
	if utf8.RuneCountInString(label) <= MaxLabelLength {
		return label
	}
	runes := []rune(label)
	return string(runes[:MaxLabelLength]) + LabelEllipsis
}

// ResolveConfidence applies the default to a missing confidence and clamps it to [0,1].
func ResolveConfidence(c *float64) float64 {
	if c == nil {
		return DefaultConfidence
	}
	v := *c
	switch {
	case math.IsNaN(v):
		return DefaultConfidence
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// TailLog returns the last n entries (all of them when n <= 0).
func TailLog(entries []LogEntry, n int) []LogEntry {
	if n <= 0 || n >= len(entries) {
		out := make([]LogEntry, len(entries))
		copy(out, entries)
		return out
	}
	out := make([]LogEntry, n)
	copy(out, entries[len(entries)-n:])
	return out
}
