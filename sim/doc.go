// Package sim provides the execution engine for non-deterministic Turing
// machine simulation.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - table.go: Transition table, grouped by (state, symbol), with accepting-state marks
//   - tape.go: Segmented, bidirectionally growable tape backed by an Arena
//   - handle.go: Reference-counted TapeHandle and the copy-before-divergence rule
//   - simulator.go: The round loop that advances every live branch by one step
//
// # Architecture
//
// A run explores every computation path breadth-first. One round advances every
// branch in the current Frontier by exactly one machine step; successors go into
// the next Frontier and the two are swapped at the round boundary. The iteration
// limit is checked only there, so it bounds path length rather than total work.
//
// Branches share tapes through TapeHandle until they would diverge. A branch whose
// transition rewrites the symbol under the head gets a private tape (in place when
// it is the sole owner, a clone otherwise); branches that leave the symbol
// unchanged keep sharing the parent's tape.
//
// Sub-packages:
//   - sim/machine/: Machine description parsing (text and YAML forms)
//   - sim/trace/: Per-round and per-branch trace recording
//
// # Verdicts
//
// ACCEPT as soon as any branch enters an accepting state, REJECT when the
// frontier empties, UNDEFINED when the limit is reached with branches alive.
package sim
