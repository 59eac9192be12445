package sim

// Tape is an unbounded sequence of symbols indexed by integer position. It is
// stored as a doubly linked chain of fixed-size segments covering
// [low, low+segments*segmentSize); a segment is added on one side only when an
// access falls outside that range. Positions are global, so they stay valid
// across growth on either side and across Clone.
type Tape struct {
	arena *Arena
	blank Symbol

	head     *segment // leftmost segment
	tail     *segment // rightmost segment
	low      int      // global position of head.cells[0]
	segments int

	// last accessed segment and its base position; the head moves one cell per
	// step, so this makes sequential access O(1)
	cur     *segment
	curBase int
}

// NewTape creates a tape holding input at positions 0..len(input)-1, with
// blank everywhere else.
func NewTape(arena *Arena, blank Symbol, input []Symbol) (*Tape, error) {
	t := &Tape{arena: arena, blank: blank}
	seg, err := arena.alloc(blank)
	if err != nil {
		return nil, err
	}
	t.head, t.tail, t.cur = seg, seg, seg
	t.segments = 1
	arena.liveTapes++

	for i, s := range input {
		if err := t.Write(i, s); err != nil {
			t.Free()
			return nil, err
		}
	}
	return t, nil
}

// Blank returns the tape's blank symbol.
func (t *Tape) Blank() Symbol { return t.blank }

// Segments returns the number of materialized segments.
func (t *Tape) Segments() int { return t.segments }

// Bounds returns the materialized range [low, high] (inclusive).
func (t *Tape) Bounds() (low, high int) {
	return t.low, t.low + t.segments*t.arena.segmentSize - 1
}

// prependSegment links one new blank segment to the left of head.
func (t *Tape) prependSegment() error {
	seg, err := t.arena.alloc(t.blank)
	if err != nil {
		return err
	}
	seg.right = t.head
	t.head.left = seg
	t.head = seg
	t.low -= t.arena.segmentSize
	t.segments++
	return nil
}

// appendSegment links one new blank segment to the right of tail.
func (t *Tape) appendSegment() error {
	seg, err := t.arena.alloc(t.blank)
	if err != nil {
		return err
	}
	seg.left = t.tail
	t.tail.right = seg
	t.tail = seg
	t.segments++
	return nil
}

// locate returns the segment holding pos and the offset of pos within it,
// growing the tape one segment at a time until pos is covered.
func (t *Tape) locate(pos int) (*segment, int, error) {
	if t.head == nil {
		panic("Tape: access after Free")
	}
	size := t.arena.segmentSize
	for pos < t.low {
		if err := t.prependSegment(); err != nil {
			return nil, 0, err
		}
	}
	for _, high := t.Bounds(); pos > high; _, high = t.Bounds() {
		if err := t.appendSegment(); err != nil {
			return nil, 0, err
		}
	}

	// walk from the cached segment toward pos
	seg, base := t.cur, t.curBase
	if seg == nil {
		seg, base = t.head, t.low
	}
	for pos < base {
		seg = seg.left
		base -= size
	}
	for pos >= base+size {
		seg = seg.right
		base += size
	}
	t.cur, t.curBase = seg, base
	return seg, pos - base, nil
}

// Read returns the symbol at pos, materializing blank segments if pos lies
// outside the current range.
func (t *Tape) Read(pos int) (Symbol, error) {
	seg, off, err := t.locate(pos)
	if err != nil {
		return 0, err
	}
	return seg.cells[off], nil
}

// Write stores sym at pos, materializing blank segments if needed.
func (t *Tape) Write(pos int, sym Symbol) error {
	seg, off, err := t.locate(pos)
	if err != nil {
		return err
	}
	seg.cells[off] = sym
	return nil
}

// Clone returns an independent deep copy of every segment. The copy covers the
// same global range, so a cursor position is valid in it unchanged.
func (t *Tape) Clone() (*Tape, error) {
	if t.head == nil {
		panic("Tape: Clone after Free")
	}
	c := &Tape{arena: t.arena, blank: t.blank, low: t.low}
	t.arena.liveTapes++
	for src := t.head; src != nil; src = src.right {
		seg, err := t.arena.alloc(t.blank)
		if err != nil {
			c.Free()
			return nil, err
		}
		copy(seg.cells, src.cells)
		if c.tail == nil {
			c.head = seg
		} else {
			seg.left = c.tail
			c.tail.right = seg
		}
		c.tail = seg
		c.segments++
		if src == t.cur {
			c.cur, c.curBase = seg, t.curBase
		}
	}
	return c, nil
}

// Free returns every segment to the arena. The tape must not be used again.
func (t *Tape) Free() {
	if t.arena == nil {
		return
	}
	for seg := t.head; seg != nil; {
		next := seg.right
		t.arena.release(seg)
		seg = next
	}
	t.arena.liveTapes--
	t.head, t.tail, t.cur = nil, nil, nil
	t.segments = 0
	t.arena = nil
}

// Snapshot returns the materialized symbols from low to high.
func (t *Tape) Snapshot() []Symbol {
	out := make([]Symbol, 0, t.segments*t.arena.segmentSize)
	for seg := t.head; seg != nil; seg = seg.right {
		out = append(out, seg.cells...)
	}
	return out
}

// String renders the tape with blank margins trimmed.
func (t *Tape) String() string {
	if t.head == nil {
		return "<freed>"
	}
	snap := t.Snapshot()
	lo, hi := 0, len(snap)
	for lo < hi && snap[lo] == t.blank {
		lo++
	}
	for hi > lo && snap[hi-1] == t.blank {
		hi--
	}
	if lo == hi {
		return string([]byte{'[', byte(t.blank), ']'})
	}
	buf := make([]byte, hi-lo)
	for i, s := range snap[lo:hi] {
		buf[i] = byte(s)
	}
	return string(buf)
}
