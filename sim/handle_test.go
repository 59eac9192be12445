package sim

import (
	"errors"
	"testing"
)

func TestTapeHandle_AcquireRelease_FreesOnLastReference(t *testing.T) {
	// GIVEN a handle shared by three observers
	arena, tape := newTestTape(t, 4, "ab")
	h := NewTapeHandle(tape)
	h.Acquire()
	h.Acquire()
	if h.Refs() != 3 {
		t.Fatalf("Refs() = %d, want 3", h.Refs())
	}

	// WHEN all but one release
	h.Release()
	h.Release()

	// THEN the tape is still live until the last release
	if arena.LiveTapes() != 1 {
		t.Errorf("LiveTapes() = %d, want 1 before last release", arena.LiveTapes())
	}
	h.Release()
	if arena.LiveTapes() != 0 || arena.LiveSegments() != 0 {
		t.Errorf("after last release: tapes %d, segments %d", arena.LiveTapes(), arena.LiveSegments())
	}
	if h.Tape() != nil {
		t.Error("Tape() should be nil once released")
	}
}

func TestTapeHandle_ReleaseTwice_Panics(t *testing.T) {
	_, tape := newTestTape(t, 4, "")
	h := NewTapeHandle(tape)
	h.Release()
	defer func() {
		if recover() == nil {
			t.Error("expected panic on second Release")
		}
	}()
	h.Release()
}

func TestTapeHandle_MutableView_SoleOwnerKeepsOriginal(t *testing.T) {
	// GIVEN a handle with a single owner
	arena, tape := newTestTape(t, 4, "abc")
	h := NewTapeHandle(tape)

	// WHEN two more writers need views
	views, err := h.MutableView(2)
	if err != nil {
		t.Fatal(err)
	}

	// THEN the original comes first and two clones follow
	if len(views) != 3 {
		t.Fatalf("len(views) = %d, want 3", len(views))
	}
	if views[0] != h {
		t.Error("sole owner should receive the original handle first")
	}
	for i, v := range views {
		if v.Refs() != 1 {
			t.Errorf("views[%d].Refs() = %d, want 1", i, v.Refs())
		}
	}
	if arena.LiveTapes() != 3 {
		t.Errorf("LiveTapes() = %d, want 3", arena.LiveTapes())
	}

	// AND writes through one view are invisible to the others
	_ = views[1].Tape().Write(0, 'X')
	if views[0].Tape().String() != "abc" || views[1].Tape().String() != "Xbc" || views[2].Tape().String() != "abc" {
		t.Errorf("views = %q %q %q", views[0].Tape(), views[1].Tape(), views[2].Tape())
	}
	releaseViews(views)
	if arena.LiveTapes() != 0 {
		t.Errorf("LiveTapes() = %d, want 0", arena.LiveTapes())
	}
}

func TestTapeHandle_MutableView_SharedCopiesEveryView(t *testing.T) {
	// GIVEN a handle that another branch also observes
	arena, tape := newTestTape(t, 4, "abc")
	h := NewTapeHandle(tape)
	other := h.Acquire()

	// WHEN one writer asks for a view
	views, err := h.MutableView(0)
	if err != nil {
		t.Fatal(err)
	}

	// THEN it gets a private clone and the other observer is untouched
	if len(views) != 1 || views[0] == h {
		t.Fatalf("expected one fresh clone, got %v", views)
	}
	if other.Refs() != 1 {
		t.Errorf("shared handle Refs() = %d, want 1", other.Refs())
	}
	_ = views[0].Tape().Write(1, 'Z')
	if other.Tape().String() != "abc" {
		t.Errorf("observer saw the write: %q", other.Tape())
	}
	views[0].Release()
	other.Release()
	if arena.LiveTapes() != 0 {
		t.Errorf("LiveTapes() = %d, want 0", arena.LiveTapes())
	}
}

func TestTapeHandle_MutableView_OutOfMemoryReleasesEverything(t *testing.T) {
	// GIVEN an arena with room for two single-segment tapes
	arena := NewArena(4, 2)
	tape, err := NewTape(arena, DefaultBlank, SymbolsOf("ab"))
	if err != nil {
		t.Fatal(err)
	}
	h := NewTapeHandle(tape)

	// WHEN three views are requested
	_, err = h.MutableView(2)

	// THEN the clone failure is reported and no tape survives
	if !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("MutableView error = %v, want ErrOutOfMemory", err)
	}
	if arena.LiveTapes() != 0 || arena.LiveSegments() != 0 {
		t.Errorf("leaked: tapes %d, segments %d", arena.LiveTapes(), arena.LiveSegments())
	}
}
