package projector_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/projector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Nodes: []domain.Node{
			{ID: "r", Label: "Query: What is consciousness?", Kind: domain.KindInput, Description: "What is consciousness?", Confidence: 1, Seq: 0},
			{ID: "a", Label: "A", Kind: domain.KindReasoning, Description: "desc A", Confidence: 0.9, Seq: 1, GroupIndex: 1},
			{ID: "b", Label: "B", Kind: domain.KindRetrieval, Description: "desc B", Confidence: 0.8, Seq: 2, GroupIndex: 2},
			{ID: "c", Label: "C", Kind: domain.KindDecision, Description: "desc C", Confidence: 1, Seq: 3, GroupIndex: 3},
		},
		Edges: []domain.Edge{{Source: "r", Target: "a"}, {Source: "a", Target: "b"}, {Source: "b", Target: "c"}},
	}
}

func TestProject_Mapping(t *testing.T) {
	v := projector.Project(sampleSnapshot())

	require.Len(t, v.Nodes, 4)
	require.Len(t, v.Links, 3)

	assert.Equal(t, projector.Color(domain.KindInput), v.Nodes[0].Color)
	assert.Equal(t, "#ffffff", v.Nodes[0].Color)
	assert.Equal(t, "#4e79ff", v.Nodes[1].Color)
	assert.InDelta(t, 9.0, v.Nodes[1].Size, 1e-9)
	assert.InDelta(t, 8.0, v.Nodes[2].Size, 1e-9)
	assert.Equal(t, "desc C", v.Nodes[3].Description)
	assert.Equal(t, domain.KindDecision, v.Nodes[3].Kind)

	assert.Equal(t, projector.VisualLink{Source: "r", Target: "a", Width: projector.LinkWidth, Opacity: projector.LinkOpacity}, v.Links[0])
}

func TestColor_CoversEveryKind(t *testing.T) {
	seen := map[string]domain.Kind{}
	for _, k := range domain.Kinds() {
		c := projector.Color(k)
		assert.NotEqual(t, projector.FallbackColor, c, "kind %s needs a color", k)
		if prev, dup := seen[c]; dup {
			t.Errorf("kinds %s and %s share color %s", prev, k, c)
		}
		seen[c] = k
	}
	assert.Equal(t, projector.FallbackColor, projector.Color("mystery"))
}

func TestProject_Deterministic(t *testing.T) {
	snap := sampleSnapshot()
	first, err := json.Marshal(projector.Project(snap))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		again, err := json.Marshal(projector.Project(snap))
		require.NoError(t, err)
		if !bytes.Equal(first, again) {
			t.Fatalf("projection %d differs:\n%s\n%s", i, first, again)
		}
	}
}

func TestProject_EmptyGraphEncodesArrays(t *testing.T) {
	data, err := json.Marshal(projector.Project(domain.Snapshot{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"links":[]}`, string(data))
}

func TestProject_RendererContractFields(t *testing.T) {
	data, err := json.Marshal(projector.Project(sampleSnapshot()))
	require.NoError(t, err)

	var raw struct {
		Nodes []map[string]any `json:"nodes"`
		Links []map[string]any `json:"links"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"id", "label", "color", "size", "description", "kind"} {
		assert.Contains(t, raw.Nodes[0], key)
	}
	for _, key := range []string{"source", "target"} {
		assert.Contains(t, raw.Links[0], key)
	}
}

func TestMermaid(t *testing.T) {
	got := projector.Mermaid(sampleSnapshot(), &projector.MermaidOverlay{CurrentNode: "c"})

	for _, want := range []string{
		"graph TD",
		`n0(("Query: What is consciousness?"))`,
		`n1["A"]`,
		`n2[("B")]`,
		`n3{"C"}`,
		"n0 --> n1",
		"n2 --> n3",
		"class n1 reasoning;",
		"classDef input fill:#ffffff",
		"class n3 current;",
	} {
		assert.Contains(t, got, want)
	}
}

func TestMermaid_EscapesLabels(t *testing.T) {
	snap := domain.Snapshot{Nodes: []domain.Node{
		{ID: "x", Label: `say "hi"` + "\nnow", Kind: domain.KindError},
	}}
	got := projector.Mermaid(snap, nil)
	assert.Contains(t, got, `n0>"say 'hi' now"]`)
	assert.NotContains(t, got, "current")
}

func TestWritePage(t *testing.T) {
	var buf bytes.Buffer
	err := projector.WritePage(&buf, projector.PageOptions{SnapshotURL: "/sessions/s1/snapshot"})
	require.NoError(t, err)

	page := buf.String()
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "Cognitive Cartography")
	// html/template escapes the URL for the script context, so only check its segments.
	assert.Contains(t, page, "const snapshotURL = ")
	assert.Contains(t, page, "s1")
	assert.Contains(t, page, "3d-force-graph")
}
