/*
Package session manages the live visualization sessions of a process.

Each session owns an independent graph store and animation driver; nothing
mutable is shared between sessions. When a run finishes the Manager can archive
its final graph into a ports.RunStore so it outlives the session.
*/
package session
