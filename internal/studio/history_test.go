package studio

import "testing"

func entries(h *History) string {
	var out string
	for _, e := range h.entries {
		out += string(e)
	}
	return out
}

func TestHistoryPushDropsRedoTail(t *testing.T) {
	var h History
	h.Push([]byte("a"))
	h.Push([]byte("b"))
	h.Push([]byte("c"))
	if !h.Undo() || !h.Undo() {
		t.Fatal("undo failed")
	}
	h.Push([]byte("d"))

	if got := entries(&h); got != "ad" {
		t.Errorf("entries = %q, want %q", got, "ad")
	}
	if h.Pointer() != 1 || h.CanRedo() {
		t.Errorf("pointer = %d canRedo = %v", h.Pointer(), h.CanRedo())
	}
}

func TestHistoryUndoRedoBounds(t *testing.T) {
	var h History
	if h.Undo() || h.Redo() || h.Current() != nil {
		t.Fatal("empty history must not move")
	}
	h.Reset([]byte("x"))
	if h.Undo() || h.Redo() {
		t.Error("single entry must not move")
	}
	h.Push([]byte("y"))
	if !h.Undo() || string(h.Current()) != "x" {
		t.Errorf("current after undo = %q", h.Current())
	}
	if !h.Redo() || string(h.Current()) != "y" {
		t.Errorf("current after redo = %q", h.Current())
	}
}

func TestHistorySnapshotIsolation(t *testing.T) {
	var h History
	h.Push([]byte("a"))
	h.Push([]byte("b"))
	h.Undo()
	snap := h.Snapshot()

	// Pushing after an undo reuses the backing array unless it was clipped.
	h.Push([]byte("c"))
	h.Push([]byte("d"))

	h.Restore(snap)
	if got := entries(&h); got != "ab" {
		t.Errorf("restored entries = %q, want %q", got, "ab")
	}
	if h.Pointer() != 0 {
		t.Errorf("restored pointer = %d", h.Pointer())
	}
}

func TestHistoryTruncate(t *testing.T) {
	var h History
	h.Truncate()
	for _, e := range []string{"a", "b", "c"} {
		h.Push([]byte(e))
	}
	h.Undo()
	h.Truncate()
	if got := entries(&h); got != "ab" || h.CanRedo() {
		t.Errorf("entries = %q canRedo = %v", got, h.CanRedo())
	}
}
