package assets

import (
	"strings"
	"testing"
)

func TestRenderToonifyPrompt(t *testing.T) {
	got := RenderToonifyPrompt(StylizeData{
		Styles:       []string{"Vibrant Cartoon", "Pixel Art"},
		ShotType:     "head-shot",
		Intensity:    70,
		FaceFidelity: 80,
		Emotion:      "joyful",
	})

	wants := []string{
		"in a blended style of: Vibrant Cartoon × Pixel Art.",
		"- **Character Consistency (Toon-ID):** 80%",
		"- **Shot Type:** head-shot",
		"- **Intensity:** 70%",
		"- **Emotion / Facial Expression:** joyful",
		"A tight head-and-shoulders shot.",
	}
	for _, w := range wants {
		if !strings.Contains(got, w) {
			t.Errorf("prompt missing %q\n%s", w, got)
		}
	}
	for _, absent := range []string{"Pose / Stance", "New Outfit", "Background World", "Lighting FX"} {
		if strings.Contains(got, absent) {
			t.Errorf("prompt should not contain unset modifier %q", absent)
		}
	}
	for i, l := range strings.Split(got, "\n") {
		if strings.TrimSpace(l) == "" {
			t.Errorf("line %d is blank", i)
		}
	}
}

func TestRenderToonifyPromptNoStyles(t *testing.T) {
	got := RenderToonifyPrompt(StylizeData{ShotType: "full-body", Intensity: 50, FaceFidelity: 50})
	if !strings.HasPrefix(got, "Create a portrait of the person in the image.\n") {
		t.Errorf("unexpected opening: %q", strings.SplitN(got, "\n", 2)[0])
	}
	if !strings.Contains(got, "Full-body if possible, otherwise a tight waist-up shot.") {
		t.Error("full-body composition missing")
	}
}

func TestRenderScratchPrompt(t *testing.T) {
	got := RenderScratchPrompt(StylizeData{
		Prompt:    "a wizard cat",
		Styles:    []string{"Claymation"},
		ShotType:  "full-body",
		Intensity: 50,
		Outfit:    "a tuxedo",
	})
	if !strings.HasPrefix(got, "Create a character portrait of a wizard cat in a blended style of: Claymation.") {
		t.Errorf("unexpected opening: %q", strings.SplitN(got, "\n", 2)[0])
	}
	if !strings.Contains(got, "- **Outfit:** a tuxedo") {
		t.Error("outfit modifier missing")
	}
	if strings.Contains(got, "Toon-ID") {
		t.Error("scratch prompt must not carry a face fidelity instruction")
	}
}

func TestRenderCaptionPrompt(t *testing.T) {
	got := RenderCaptionPrompt([]string{"Pop Art", "Chibi"}, "sleepy", "")
	want := "Generate a short, fun, and witty caption for a cartoon image. The style is a mix of Pop Art and Chibi. The character has a sleepy expression. The caption should be one sentence and enclosed in quotes."
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestRenderAnimatePrompt(t *testing.T) {
	got := RenderAnimatePrompt("Subtle Animation")
	want := "Create a short, looping animation of this character. The style of animation should be Subtle Animation."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStaticPrompts(t *testing.T) {
	if !strings.Contains(FaceSwapPrompt, "first image (the target image)") {
		t.Error("face swap prompt must define roles by position")
	}
	if !strings.Contains(UpscalePrompt, "4096x4096px") {
		t.Error("upscale prompt missing target resolution")
	}
}
