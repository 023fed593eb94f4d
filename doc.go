/*
Package cartography animates the reasoning of an AI system as a growing graph.

A query becomes the root node; a step source (a mock, a scripted scenario, an
external process or an LLM) yields reasoning steps that are appended one at a
time, each linked to an earlier node. The resulting graph is projected into a
renderer-friendly frame (colors per kind, sizes per confidence) that a 3D
force-directed view, a Mermaid diagram or a terminal log can display.

# Concept

The building blocks live under pkg/:

  - pkg/graph holds the append-only graph of one session. Every edge refers to
    existing nodes and node ids are never reused, even across resets.
  - pkg/driver paces a step source into a graph. It is a small state machine
    (idle, running, completed, failed, cancelled) with at most one run at a time.
  - pkg/projector maps snapshots to visual frames, Mermaid and an HTML viewer.
  - pkg/session multiplexes many sessions behind the HTTP and MCP adapters.

This package wires a single session together for library and CLI use.

# Usage

	v := cartography.New(mock.New())
	res, err := v.Run(ctx, domain.RunRequest{Query: "Why is the sky blue?", Steps: 5})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Status, len(v.Snapshot().Nodes))
	fmt.Print(v.Mermaid())

Runs started with Start continue in the background; Cancel stops them and Wait
blocks until they finish. Reset clears the graph of an idle visualizer.
*/
package cartography
