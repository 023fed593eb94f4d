/*
Package domain contains the core model of a reasoning-graph session.

It defines the closed set of node kinds, the append-only graph entities and the
records exchanged between the step sources, the animation driver and the
presentation surfaces. The package is pure: no I/O, no persistence, no clocks
beyond the timestamps carried by records.

# Key Entities

  - Kind: Closed classification of a node (input, reasoning, retrieval, data, decision, error).
  - Node / Edge: Graph vertex and directed parent link.
  - LogEntry: Textual audit record appended in lockstep with every node.
  - Step: One reasoning step emitted by a step source.
  - Snapshot: Defensive copy of the graph handed to projectors and renderers.
  - RunStatus / RunResult: The animation driver state machine and its outcome.
*/
package domain
