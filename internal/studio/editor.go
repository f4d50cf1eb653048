package studio

import (
	"context"
	"strings"

	"github.com/fpang/toon-nation/internal/imaging"
)

// EditSuggestions are the canned AI edit prompts offered in the editor.
var EditSuggestions = []string{
	"add sunglasses",
	"change hair to blue",
	"make the background a galaxy",
	"add a cool hat",
	"give them a smiling expression",
	"change shirt color to red",
	"add a sci-fi visor",
	"put them in a futuristic city",
	"make them look older",
	"add a scar on their face",
	"give them a pirate eye patch",
	"surround them with glowing butterflies",
}

// StartEditing enters edit mode and remembers the history so that
// CancelEditing can restore it exactly.
func (s *Studio) StartEditing() error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.history.Current() == nil {
		s.mu.Unlock()
		return ErrNoResult
	}
	s.editSnapshot = s.history.Snapshot()
	s.editing = true
	s.mu.Unlock()
	s.notify()
	return nil
}

// CancelEditing leaves edit mode and restores the history and pointer as
// they were at StartEditing.
func (s *Studio) CancelEditing() error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if !s.editing {
		s.mu.Unlock()
		return nil
	}
	s.history.Restore(s.editSnapshot)
	s.leaveEditingLocked()
	s.mu.Unlock()
	s.notify()
	return nil
}

// DoneEditing leaves edit mode keeping the entries up to the pointer.
// Outside edit mode it does nothing.
func (s *Studio) DoneEditing() error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if !s.editing {
		s.mu.Unlock()
		return nil
	}
	s.history.Truncate()
	s.leaveEditingLocked()
	s.mu.Unlock()
	s.notify()
	return nil
}

// Undo steps back one entry. It reports whether the pointer moved.
func (s *Studio) Undo() bool {
	s.mu.Lock()
	moved := !s.busy && s.history.Undo()
	s.mu.Unlock()
	if moved {
		s.notify()
	}
	return moved
}

// Redo steps forward one entry. It reports whether the pointer moved.
func (s *Studio) Redo() bool {
	s.mu.Lock()
	moved := !s.busy && s.history.Redo()
	s.mu.Unlock()
	if moved {
		s.notify()
	}
	return moved
}

// AIEdit applies a free-text instruction to the current entry.
func (s *Studio) AIEdit(ctx context.Context, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ErrEmptyPrompt
	}
	return s.edit(ctx, msgAIEdit, func(ctx context.Context, current []byte) ([]byte, error) {
		return s.gen.EditImage(ctx, current, resultMIME, prompt)
	})
}

// ApplyFilter applies a filter expression (see imaging.Presets).
func (s *Studio) ApplyFilter(ctx context.Context, expr string) error {
	return s.edit(ctx, msgFilter, func(_ context.Context, current []byte) ([]byte, error) {
		return imaging.ApplyFilter(current, expr)
	})
}

// ApplyAdjustments rotates and tone-adjusts the current entry.
func (s *Studio) ApplyAdjustments(ctx context.Context, a imaging.Adjustments) error {
	return s.edit(ctx, msgAdjust, func(_ context.Context, current []byte) ([]byte, error) {
		return imaging.ApplyAdjustments(current, a)
	})
}

// Crop cuts the current entry to r.
func (s *Studio) Crop(ctx context.Context, r imaging.Rect) error {
	return s.edit(ctx, msgCrop, func(_ context.Context, current []byte) ([]byte, error) {
		return imaging.Crop(current, r)
	})
}

// edit runs fn on the current entry and pushes the result. A failure while
// in edit mode returns to Success with the message shown inline.
func (s *Studio) edit(ctx context.Context, message string, fn func(context.Context, []byte) ([]byte, error)) error {
	s.mu.Lock()
	current := s.history.Current()
	if current == nil {
		s.mu.Unlock()
		return ErrNoResult
	}
	j, err := s.beginLocked(ctx, message, -1)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.notify()

	out, err := fn(j.ctx, current)

	s.mu.Lock()
	if !s.endLocked(j) {
		s.mu.Unlock()
		return ErrCanceled
	}
	if err != nil {
		s.failLocked(err, s.editing)
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.history.Push(out)
	s.state = StateSuccess
	s.mu.Unlock()
	s.notify()
	return nil
}
