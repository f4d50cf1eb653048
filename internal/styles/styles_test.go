package styles

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestCatalog(t *testing.T) {
	all := All()
	if len(all) != 32 {
		t.Fatalf("expected 32 styles, got %d", len(all))
	}
	seen := make(map[string]bool)
	for _, s := range all {
		if seen[s.Key] {
			t.Errorf("duplicate key %q", s.Key)
		}
		seen[s.Key] = true
		if !strings.HasPrefix(s.Preview, "https://") || !strings.HasSuffix(s.Preview, ".png") {
			t.Errorf("%s: bad preview %q", s.Key, s.Preview)
		}
	}

	if s, ok := Lookup("cartoon"); !ok || s.Name != "Vibrant Cartoon" || s.Pro {
		t.Errorf("Lookup(cartoon) = %+v, %v", s, ok)
	}
	if s, ok := Lookup("ghibli"); !ok || !s.Pro {
		t.Errorf("ghibli should be pro: %+v", s)
	}
	if len(Categories()) != 5 {
		t.Errorf("expected 5 categories, got %d", len(Categories()))
	}
}

func TestNames(t *testing.T) {
	got := Names([]string{"pixelArt", "mystery"})
	want := []string{"Pixel Art", "mystery"}
	if !slices.Equal(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
}

func TestAnimationStyles(t *testing.T) {
	anim := AnimationStyles()
	if len(anim) != 2 || anim[0].Key != "subtleAnimation" || anim[1].Key != "characterLoop" {
		t.Errorf("unexpected animation styles %+v", anim)
	}
	if !IsAnimation("characterLoop") || IsAnimation("cartoon") {
		t.Error("IsAnimation mismatch")
	}
}

func TestPreviewURLsDistinct(t *testing.T) {
	urls := PreviewURLs()
	if len(urls) >= len(All()) {
		t.Errorf("expected shared previews to be deduplicated, got %d urls", len(urls))
	}
	seen := make(map[string]bool)
	for _, u := range urls {
		if seen[u] {
			t.Errorf("duplicate url %s", u)
		}
		seen[u] = true
	}
}

func TestSelectionEvictsOldest(t *testing.T) {
	s := NewSelection()
	if !slices.Equal(s.Keys(), []string{"cartoon"}) {
		t.Fatalf("default selection = %v", s.Keys())
	}

	mustToggle(t, &s, "watercolor", false)
	mustToggle(t, &s, "pixelArt", false)

	if !slices.Equal(s.Keys(), []string{"watercolor", "pixelArt"}) {
		t.Errorf("after third pick = %v, want [watercolor pixelArt]", s.Keys())
	}
}

func TestSelectionKeepsLastOne(t *testing.T) {
	s := NewSelection("chibi")
	mustToggle(t, &s, "chibi", false)
	if !slices.Equal(s.Keys(), []string{"chibi"}) {
		t.Errorf("deselecting the last style must be a no-op, got %v", s.Keys())
	}

	mustToggle(t, &s, "popArt", false)
	mustToggle(t, &s, "chibi", false)
	if !slices.Equal(s.Keys(), []string{"popArt"}) {
		t.Errorf("got %v, want [popArt]", s.Keys())
	}
}

func TestSelectionBoundsUnderRandomToggles(t *testing.T) {
	s := NewSelection()
	keys := []string{"cartoon", "shonen", "seinen", "cartoon", "lowPoly", "lowPoly", "shonen", "glitchArt", "glitchArt", "glitchArt"}
	for _, k := range keys {
		mustToggle(t, &s, k, false)
		if s.Len() < 1 || s.Len() > MaxSelected {
			t.Fatalf("selection size %d out of bounds after %s", s.Len(), k)
		}
	}
}

func TestSelectionProGate(t *testing.T) {
	s := NewSelection()
	if err := s.Toggle("marvel", false); !errors.Is(err, ErrProRequired) {
		t.Errorf("expected ErrProRequired, got %v", err)
	}
	if s.Contains("marvel") {
		t.Error("pro style must not be added for a free session")
	}
	mustToggle(t, &s, "marvel", true)
	if !s.Contains("marvel") {
		t.Error("pro session should add pro style")
	}
	if err := s.Toggle("nope", true); !errors.Is(err, ErrUnknownStyle) {
		t.Errorf("expected ErrUnknownStyle, got %v", err)
	}
}

func TestNewSelectionTrims(t *testing.T) {
	s := NewSelection("cartoon", "chibi", "pixelArt", "pixelArt")
	if !slices.Equal(s.Keys(), []string{"chibi", "pixelArt"}) {
		t.Errorf("got %v", s.Keys())
	}
}

func TestKeysIsCopy(t *testing.T) {
	s := NewSelection("cartoon")
	k := s.Keys()
	k[0] = "mutated"
	if s.Keys()[0] != "cartoon" {
		t.Error("Keys must return a copy")
	}
}

func mustToggle(t *testing.T, s *Selection, key string, pro bool) {
	t.Helper()
	if err := s.Toggle(key, pro); err != nil {
		t.Fatalf("Toggle(%q): %v", key, err)
	}
}
