package sim

import (
	"errors"
	"fmt"
)

// ErrOutOfMemory is returned when a tape cannot grow or be cloned because the
// arena's segment budget is exhausted.
var ErrOutOfMemory = errors.New("tape arena out of memory")

// DefaultSegmentSize is the number of symbols per tape segment.
const DefaultSegmentSize = 512

// segment is a fixed-capacity block of tape cells. While attached to a tape,
// left/right link it to its neighbours; while free, prevFree/nextFree link it
// into the arena's free list.
type segment struct {
	cells    []Symbol
	left     *segment
	right    *segment
	prevFree *segment
	nextFree *segment
}

// Arena hands out tape segments of one fixed size and recycles the segments of
// freed tapes. It is the single allocation point for every tape of a run, so
// it also enforces the run's memory budget.
//
// Thread-safety: NOT thread-safe. A run and its arena belong to one goroutine.
type Arena struct {
	segmentSize int
	maxSegments int // 0 = unbounded

	freeHead *segment
	freeTail *segment
	freeCnt  int

	liveSegments int // segments currently attached to a tape
	peakSegments int
	allocated    int // segments ever created (recycling does not count)
	liveTapes    int
}

// NewArena creates an Arena. segmentSize <= 0 selects DefaultSegmentSize;
// maxSegments <= 0 means no budget.
func NewArena(segmentSize, maxSegments int) *Arena {
	if segmentSize <= 0 {
		segmentSize = DefaultSegmentSize
	}
	if maxSegments < 0 {
		maxSegments = 0
	}
	return &Arena{segmentSize: segmentSize, maxSegments: maxSegments}
}

// SegmentSize returns the number of symbols per segment.
func (a *Arena) SegmentSize() int { return a.segmentSize }

// LiveSegments returns the number of segments attached to live tapes.
func (a *Arena) LiveSegments() int { return a.liveSegments }

// PeakSegments returns the highest LiveSegments observed.
func (a *Arena) PeakSegments() int { return a.peakSegments }

// Allocated returns the number of segments ever created by this arena.
func (a *Arena) Allocated() int { return a.allocated }

// FreeSegments returns the number of segments waiting for reuse.
func (a *Arena) FreeSegments() int { return a.freeCnt }

// LiveTapes returns the number of tapes created and not yet freed.
func (a *Arena) LiveTapes() int { return a.liveTapes }

// appendToFreeList inserts a segment at the tail of the free list.
func (a *Arena) appendToFreeList(seg *segment) {
	seg.nextFree = nil
	if a.freeTail != nil {
		a.freeTail.nextFree = seg
		seg.prevFree = a.freeTail
		a.freeTail = seg
	} else {
		a.freeHead = seg
		a.freeTail = seg
		seg.prevFree = nil
	}
	a.freeCnt++
}

// popFreeSegment detaches the head of the free list, or returns nil.
func (a *Arena) popFreeSegment() *segment {
	seg := a.freeHead
	if seg == nil {
		return nil
	}
	a.freeHead = seg.nextFree
	if a.freeHead != nil {
		a.freeHead.prevFree = nil
	} else {
		a.freeTail = nil
	}
	seg.nextFree = nil
	seg.prevFree = nil
	a.freeCnt--
	return seg
}

// alloc returns a blank segment, reusing a freed one when available.
func (a *Arena) alloc(blank Symbol) (*segment, error) {
	if a.maxSegments > 0 && a.liveSegments >= a.maxSegments {
		return nil, fmt.Errorf("%w: %d segments of %d symbols in use", ErrOutOfMemory, a.liveSegments, a.segmentSize)
	}
	seg := a.popFreeSegment()
	if seg == nil {
		seg = &segment{cells: make([]Symbol, a.segmentSize)}
		a.allocated++
	}
	for i := range seg.cells {
		seg.cells[i] = blank
	}
	a.liveSegments++
	if a.liveSegments > a.peakSegments {
		a.peakSegments = a.liveSegments
	}
	return seg, nil
}

// release returns a segment to the free list.
func (a *Arena) release(seg *segment) {
	seg.left = nil
	seg.right = nil
	a.liveSegments--
	a.appendToFreeList(seg)
}
