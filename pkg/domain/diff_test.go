package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	root := Node{ID: "n0", Label: "Query: q", Kind: KindInput, Confidence: 1}
	a := Node{ID: "n1", Label: "A", Kind: KindReasoning, Confidence: 0.9, Seq: 1, GroupIndex: 1}
	b := Node{ID: "n2", Label: "B", Kind: KindRetrieval, Confidence: 0.8, Seq: 2, GroupIndex: 2}

	one := Snapshot{Nodes: []Node{root}}
	two := Snapshot{Nodes: []Node{root, a}, Edges: []Edge{{Source: "n0", Target: "n1"}}}
	three := Snapshot{
		Nodes: []Node{root, a, b},
		Edges: []Edge{{Source: "n0", Target: "n1"}, {Source: "n1", Target: "n2"}},
	}
	other := Snapshot{Nodes: []Node{{ID: "x0", Kind: KindInput}}}

	tests := []struct {
		name      string
		old       *Snapshot
		new       Snapshot
		wantNil   bool
		wantReset bool
		wantNodes []string
		wantEdges int
	}{
		{name: "Initial Load (Old is Nil)", old: nil, new: two, wantNodes: []string{"n0", "n1"}, wantEdges: 1},
		{name: "Initial Load of Empty Graph", old: nil, new: Snapshot{}, wantNil: true},
		{name: "No Changes", old: &two, new: two, wantNil: true},
		{name: "Append One Step", old: &two, new: three, wantNodes: []string{"n2"}, wantEdges: 1},
		{name: "Append From Root", old: &one, new: three, wantNodes: []string{"n1", "n2"}, wantEdges: 2},
		{name: "Reset To Different Graph", old: &three, new: other, wantReset: true, wantNodes: []string{"x0"}},
		{name: "Reset To Empty Graph", old: &three, new: Snapshot{}, wantReset: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff("sess-1", tt.old, tt.new)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("Diff() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Diff() = nil, want a diff")
			}
			if got.SessionID != "sess-1" {
				t.Errorf("SessionID = %q", got.SessionID)
			}
			if got.Reset != tt.wantReset {
				t.Errorf("Reset = %v, want %v", got.Reset, tt.wantReset)
			}
			var ids []string
			for _, n := range got.Nodes {
				ids = append(ids, n.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.wantNodes, ",") {
				t.Errorf("Nodes = %v, want %v", ids, tt.wantNodes)
			}
			if len(got.Edges) != tt.wantEdges {
				t.Errorf("Edges = %d, want %d", len(got.Edges), tt.wantEdges)
			}
		})
	}
}

func TestDiff_DoesNotAliasInput(t *testing.T) {
	snap := Snapshot{Nodes: []Node{{ID: "n0", Label: "root"}}}
	diff := Diff("s", nil, snap)
	diff.Nodes[0].Label = "mutated"
	if snap.Nodes[0].Label != "root" {
		t.Error("Diff must copy nodes, input was mutated")
	}
}

func TestGraphDiff_WithStatusJSON(t *testing.T) {
	var d *GraphDiff
	d = d.WithStatus("sess-1", StatusCompleted)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, `"status":"completed"`) {
		t.Errorf("expected status in %s", got)
	}
	if strings.Contains(got, `"nodes"`) || strings.Contains(got, `"reset"`) {
		t.Errorf("expected empty fields to be omitted in %s", got)
	}
}
