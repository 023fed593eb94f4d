/*
Package projector turns graph snapshots into renderer-ready records.

Projection is a pure function: no I/O, no randomness, no clocks. The same
snapshot always yields byte-identical JSON, so renderers can diff frames and
tests can compare output directly.

The package also ships two presentation helpers built on the same mapping: a
Mermaid flowchart export and a minimal HTML page that binds the snapshot shape
to the 3d-force-graph browser renderer.
*/
package projector
