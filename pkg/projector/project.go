package projector

import "github.com/aretw0/cartography/pkg/domain"

// Display constants shared by every projection.
const (
	// SizeScale multiplies a node's confidence to obtain its rendered size.
	SizeScale = 10.0

	// LinkWidth and LinkOpacity are applied to every link.
	LinkWidth   = 2.0
	LinkOpacity = 0.5

	// FallbackColor is used for kinds outside the color table.
	FallbackColor = "#9e9e9e"
)

// Palette is cycled by GroupIndex for renderers that color by group instead of kind.
var Palette = [domain.PaletteSize]string{"#ff6b6b", "#4ecdc4", "#45b7d1", "#ffa07a", "#98d8c8"}

// Color returns the fixed display color of a kind.
func Color(kind domain.Kind) string {
	switch kind {
	case domain.KindInput:
		return "#ffffff"
	case domain.KindReasoning:
		return "#4e79ff"
	case domain.KindRetrieval:
		return "#ffa500"
	case domain.KindData:
		return "#9b59b6"
	case domain.KindDecision:
		return "#2ecc71"
	case domain.KindError:
		return "#ff4d4d"
	}
	return FallbackColor
}

// VisualNode is the renderer-facing view of a node.
type VisualNode struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	Color       string      `json:"color"`
	Size        float64     `json:"size"`
	Description string      `json:"description"`
	Kind        domain.Kind `json:"kind"`
	Group       int         `json:"group"`
	GroupColor  string      `json:"groupColor"`
}

// VisualLink is the renderer-facing view of an edge.
type VisualLink struct {
	Source  string  `json:"source"`
	Target  string  `json:"target"`
	Width   float64 `json:"width"`
	Opacity float64 `json:"opacity"`
}

// Visual is a full frame for the renderer.
type Visual struct {
	Nodes []VisualNode `json:"nodes"`
	Links []VisualLink `json:"links"`
}

// Project maps a snapshot to a renderer frame. Slices are always non-nil so an
// empty graph encodes as empty arrays.
func Project(snap domain.Snapshot) Visual {
	v := Visual{
		Nodes: make([]VisualNode, 0, len(snap.Nodes)),
		Links: make([]VisualLink, 0, len(snap.Edges)),
	}
	for _, n := range snap.Nodes {
		v.Nodes = append(v.Nodes, ProjectNode(n))
	}
	for _, e := range snap.Edges {
		v.Links = append(v.Links, ProjectEdge(e))
	}
	return v
}

// ProjectNode maps a single node, used for incremental frames.
func ProjectNode(n domain.Node) VisualNode {
	return VisualNode{
		ID:          n.ID,
		Label:       n.Label,
		Color:       Color(n.Kind),
		Size:        n.Confidence * SizeScale,
		Description: n.Description,
		Kind:        n.Kind,
		Group:       n.GroupIndex,
		GroupColor:  Palette[((n.GroupIndex%domain.PaletteSize)+domain.PaletteSize)%domain.PaletteSize],
	}
}

// ProjectEdge maps a single edge.
func ProjectEdge(e domain.Edge) VisualLink {
	return VisualLink{
		Source:  e.Source,
		Target:  e.Target,
		Width:   LinkWidth,
		Opacity: LinkOpacity,
	}
}
