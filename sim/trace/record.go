// Package trace provides round-by-round recording of a machine run.
// This package has no dependencies on sim/ and stores pure data types.
package trace

// RoundRecord captures what happened to the frontier in one round.
type RoundRecord struct {
	Round    int64
	Frontier int // branches entering the round
	Spawned  int // successors enqueued for the next round
	Died     int // branches with no matching transition
	Forks    int // branches with two or more matching transitions
	Clones   int // tape copies made during the round
}

// BranchRecord captures a single branch step.
type BranchRecord struct {
	Round   int64
	State   int
	Cursor  int
	Read    byte
	Matches int // transitions matching (State, Read)
}
