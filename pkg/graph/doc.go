/*
Package graph implements the Graph Session Store.

A Session is the sole owner of one visualization's graph: the ordered node
sequence, the edges linking each node to its parent and the textual log written
in lockstep with every node. It is append-only; the only removal path is Reset,
which clears everything and starts a fresh identity epoch.

	s := graph.New()
	root, _ := s.AddNode("Query: why?", domain.KindInput, "why?", nil, "")
	_, _ = s.AddNode("Analyzing", domain.KindReasoning, "...", domain.Confidence(0.9), root)
	snap := s.Snapshot()
*/
package graph
