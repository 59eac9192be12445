// Implements the Frontier, which holds the branches alive entering a round.
// Successors are enqueued into the next round's frontier.

package sim

import (
	"fmt"
	"strings"
)

// Branch is one live computation path: the state the machine is in, where the
// head is, and the tape it observes.
type Branch struct {
	State  State
	Cursor int
	Tape   *TapeHandle
	Round  int64 // round in which the branch was created
}

func (b *Branch) String() string {
	return fmt.Sprintf("{q%d @%d r%d}", b.State, b.Cursor, b.Round)
}

// Frontier represents a FIFO queue of branches waiting to take their next step.
// The scheduler drains one frontier per round while filling the next one, then
// swaps them at the round boundary.
type Frontier struct {
	queue []*Branch // FIFO queue of branches
	head  int       // index of the front element
}

// Enqueue adds a branch to the back of the frontier.
func (f *Frontier) Enqueue(b *Branch) {
	if b == nil {
		panic("Enqueue: branch must not be nil")
	}
	f.queue = append(f.queue, b)
}

func (f *Frontier) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range f.Items() {
		sb.WriteString(val.String())
		if i < f.Len()-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of branches in the frontier.
func (f *Frontier) Len() int {
	return len(f.queue) - f.head
}

// Peek returns the branch at the front without removing it.
// Returns nil if the frontier is empty.
func (f *Frontier) Peek() *Branch {
	if f.Len() == 0 {
		return nil
	}
	return f.queue[f.head]
}

// Items returns the frontier contents for iteration.
// The returned slice is the frontier's internal storage -- callers MUST NOT
// append to or reslice it.
func (f *Frontier) Items() []*Branch {
	return f.queue[f.head:]
}

// Dequeue removes the branch at the front. Ownership of its tape reference
// moves to the caller.
func (f *Frontier) Dequeue() *Branch {
	if f.Len() == 0 {
		return nil
	}
	b := f.queue[f.head]
	f.queue[f.head] = nil
	f.head++
	if f.head == len(f.queue) {
		f.Reset()
	}
	return b
}

// Reset empties the frontier, keeping its storage for reuse. It does not
// release tape references; use ReleaseAll for that.
func (f *Frontier) Reset() {
	clear(f.queue)
	f.queue = f.queue[:0]
	f.head = 0
}

// ReleaseAll drops the tape reference of every queued branch and empties the
// frontier. It returns the number of branches abandoned.
func (f *Frontier) ReleaseAll() int {
	n := f.Len()
	for _, b := range f.Items() {
		b.Tape.Release()
	}
	f.Reset()
	return n
}
