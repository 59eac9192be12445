package sim

import "fmt"

// TapeHandle is a reference-counted owner of a Tape. Every live branch that
// observes the tape holds one reference.
//
// The tape is mutated in place only while exactly one branch holds it; a
// branch that must write while others still observe the tape first takes a
// private copy through MutableView. The tape is freed when the last reference
// is released.
type TapeHandle struct {
	tape *Tape
	refs int
}

// NewTapeHandle wraps t with a single reference owned by the caller.
func NewTapeHandle(t *Tape) *TapeHandle {
	if t == nil {
		panic("NewTapeHandle: tape must not be nil")
	}
	return &TapeHandle{tape: t, refs: 1}
}

// Tape returns the underlying tape for reading. Callers MUST NOT write to it
// unless they obtained the handle from MutableView.
func (h *TapeHandle) Tape() *Tape {
	return h.tape
}

// Refs returns the number of live references.
func (h *TapeHandle) Refs() int {
	return h.refs
}

// Acquire registers one more observer and returns h.
func (h *TapeHandle) Acquire() *TapeHandle {
	if h.refs <= 0 {
		panic("TapeHandle: Acquire on released handle")
	}
	h.refs++
	return h
}

// Release drops one reference and frees the tape when none remain.
func (h *TapeHandle) Release() {
	if h.refs <= 0 {
		panic("TapeHandle: Release on released handle")
	}
	h.refs--
	if h.refs == 0 {
		h.tape.Free()
		h.tape = nil
	}
}

// MutableView consumes the caller's reference and returns writersAhead+1
// handles, each exclusively owned by the caller (refs == 1), so that every
// sibling about to write gets a tape no other live branch observes.
//
// If the caller was the sole owner, the first view is h itself and mutation
// happens in place; the others are clones. Otherwise every view is a clone and
// h's count is decremented on the caller's behalf.
//
// On error every view produced so far is released along with the caller's
// reference, so no tape leaks.
func (h *TapeHandle) MutableView(writersAhead int) ([]*TapeHandle, error) {
	if writersAhead < 0 {
		panic(fmt.Sprintf("MutableView: writersAhead must be >= 0, got %d", writersAhead))
	}
	if h.refs <= 0 {
		panic("TapeHandle: MutableView on released handle")
	}

	views := make([]*TapeHandle, 0, writersAhead+1)
	clones := writersAhead + 1
	if h.refs == 1 {
		clones = writersAhead
	}
	for i := 0; i < clones; i++ {
		c, err := h.tape.Clone()
		if err != nil {
			for _, v := range views {
				v.Release()
			}
			h.Release()
			return nil, err
		}
		views = append(views, NewTapeHandle(c))
	}

	if h.refs == 1 {
		// sole owner keeps writing to the original
		return append([]*TapeHandle{h}, views...), nil
	}
	h.Release()
	return views, nil
}
