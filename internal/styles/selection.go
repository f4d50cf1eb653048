package styles

import (
	"errors"
	"fmt"
	"slices"
)

// MaxSelected is the number of styles that can be blended at once.
const MaxSelected = 2

var (
	// ErrUnknownStyle is returned for keys outside the catalog.
	ErrUnknownStyle = errors.New("unknown style")
	// ErrProRequired is returned when a free session picks a pro style.
	ErrProRequired = errors.New("this style requires Pro")
)

// Selection is an ordered set of 1..MaxSelected style keys, oldest first.
// The zero value is not valid; use NewSelection.
type Selection struct {
	keys []string
}

// NewSelection builds a selection from keys, keeping at most the last
// MaxSelected. With no keys it falls back to DefaultKey.
func NewSelection(keys ...string) Selection {
	var s Selection
	for _, k := range keys {
		if !slices.Contains(s.keys, k) {
			s.keys = append(s.keys, k)
		}
	}
	if len(s.keys) == 0 {
		s.keys = []string{DefaultKey}
	}
	if len(s.keys) > MaxSelected {
		s.keys = s.keys[len(s.keys)-MaxSelected:]
	}
	return s
}

// Keys returns a copy of the selected keys, oldest first.
func (s Selection) Keys() []string {
	return slices.Clone(s.keys)
}

// Contains reports whether key is selected.
func (s Selection) Contains(key string) bool {
	return slices.Contains(s.keys, key)
}

// Len returns the number of selected styles.
func (s Selection) Len() int {
	return len(s.keys)
}

// Toggle deselects key if it is selected, unless it is the last one left.
// Otherwise it appends key and evicts the oldest entry beyond MaxSelected.
// Pro styles can only be added when pro is true.
func (s *Selection) Toggle(key string, pro bool) error {
	style, ok := Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStyle, key)
	}

	if i := slices.Index(s.keys, key); i >= 0 {
		if len(s.keys) > 1 {
			s.keys = slices.Delete(s.keys, i, i+1)
		}
		return nil
	}

	if style.Pro && !pro {
		return fmt.Errorf("%w: %s", ErrProRequired, style.Name)
	}

	s.keys = append(s.keys, key)
	if len(s.keys) > MaxSelected {
		s.keys = slices.Clone(s.keys[len(s.keys)-MaxSelected:])
	}
	return nil
}
