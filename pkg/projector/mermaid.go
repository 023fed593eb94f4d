package projector

import (
	"fmt"
	"strings"

	"github.com/aretw0/cartography/pkg/domain"
)

// MermaidOverlay highlights run progress on the exported chart.
type MermaidOverlay struct {
	// CurrentNode is the most recently added node (the "thinking" frontier).
	CurrentNode string
}

// Mermaid produces a Mermaid flowchart from a snapshot.
// It applies semantic shapes per kind:
// - Input: ((Circle))
// - Retrieval / Data: [(Database)]
// - Decision: {Rhombus}
// - Error: >Flag]
// - Default: [Rectangle]
// and one classDef per kind using the projection color table.
func Mermaid(snap domain.Snapshot, overlay *MermaidOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	aliases := make(map[string]string, len(snap.Nodes))
	for i, node := range snap.Nodes {
		// Node ids may be UUIDs; Mermaid ids are positional aliases.
		alias := fmt.Sprintf("n%d", i)
		aliases[node.ID] = alias

		opener, closer := "[", "]"
		switch node.Kind {
		case domain.KindInput:
			opener, closer = "((", "))"
		case domain.KindRetrieval, domain.KindData:
			opener, closer = "[(", ")]"
		case domain.KindDecision:
			opener, closer = "{", "}"
		case domain.KindError:
			opener, closer = ">", "]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", alias, opener, escapeMermaidLabel(node.Label), closer)
	}

	for _, e := range snap.Edges {
		src, ok1 := aliases[e.Source]
		dst, ok2 := aliases[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", src, dst)
	}

	if len(snap.Nodes) > 0 {
		sb.WriteString("\n    %% Kind Styles\n")
		for _, k := range domain.Kinds() {
			fmt.Fprintf(&sb, "    classDef %s fill:%s,stroke:#333,color:#000;\n", k, Color(k))
		}
		for _, node := range snap.Nodes {
			fmt.Fprintf(&sb, "    class %s %s;\n", aliases[node.ID], classFor(node.Kind))
		}
	}

	if overlay != nil && overlay.CurrentNode != "" {
		if alias, ok := aliases[overlay.CurrentNode]; ok {
			sb.WriteString("    classDef current stroke:#fbc02d,stroke-width:4px;\n")
			fmt.Fprintf(&sb, "    class %s current;\n", alias)
		}
	}

	return sb.String()
}

func classFor(k domain.Kind) string {
	if k.Valid() {
		return string(k)
	}
	return "reasoning"
}

func escapeMermaidLabel(label string) string {
	s := strings.ReplaceAll(label, "\"", "'")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
