package studio

import "slices"

// History is the undo/redo stack of result images. Entries are never
// modified once pushed; a snapshot therefore shares them safely.
//
// Invariant: 0 <= pointer < len(entries) whenever entries is non-empty.
type History struct {
	entries [][]byte
	pointer int
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Pointer returns the index of the current entry.
func (h *History) Pointer() int { return h.pointer }

// Current returns the entry at the pointer, or nil when empty.
func (h *History) Current() []byte {
	if len(h.entries) == 0 {
		return nil
	}
	return h.entries[h.pointer]
}

// Reset replaces the history with a single entry.
func (h *History) Reset(img []byte) {
	h.entries = [][]byte{img}
	h.pointer = 0
}

// Clear empties the history.
func (h *History) Clear() {
	h.entries = nil
	h.pointer = 0
}

// Push discards everything after the pointer, appends img and moves the
// pointer to it.
func (h *History) Push(img []byte) {
	if len(h.entries) == 0 {
		h.Reset(img)
		return
	}
	// Clip so the append never writes into an array a snapshot still holds.
	h.entries = append(slices.Clip(h.entries[:h.pointer+1]), img)
	h.pointer = len(h.entries) - 1
}

func (h *History) CanUndo() bool { return h.pointer > 0 }

func (h *History) CanRedo() bool { return h.pointer < len(h.entries)-1 }

// Undo moves the pointer back. It reports whether it moved.
func (h *History) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	h.pointer--
	return true
}

// Redo moves the pointer forward. It reports whether it moved.
func (h *History) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	h.pointer++
	return true
}

// Truncate drops the entries after the pointer.
func (h *History) Truncate() {
	if len(h.entries) == 0 {
		return
	}
	h.entries = slices.Clip(h.entries[:h.pointer+1])
}

// Snapshot returns an independent copy of the entry list and pointer.
func (h *History) Snapshot() History {
	return History{entries: slices.Clone(h.entries), pointer: h.pointer}
}

// Restore replaces h with snap.
func (h *History) Restore(snap History) {
	h.entries = slices.Clone(snap.entries)
	h.pointer = snap.pointer
}
