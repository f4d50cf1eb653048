package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fpang/toon-nation/internal/gemini"
	"github.com/fpang/toon-nation/internal/store"
	"github.com/fpang/toon-nation/internal/studio"
)

// stubGenerator answers every image request with the same PNG.
type stubGenerator struct {
	png []byte
}

func (g stubGenerator) Stylize(context.Context, []byte, string, gemini.StylizeOptions) ([]byte, error) {
	return g.png, nil
}

func (g stubGenerator) GenerateFromPrompt(context.Context, string, gemini.StylizeOptions) ([]byte, error) {
	return g.png, nil
}

func (g stubGenerator) EditImage(context.Context, []byte, string, string) ([]byte, error) {
	return g.png, nil
}

func (g stubGenerator) FaceSwap(context.Context, []byte, string, []byte, string) ([]byte, error) {
	return g.png, nil
}

func (g stubGenerator) Upscale(context.Context, []byte, string) ([]byte, error) {
	return g.png, nil
}

func (g stubGenerator) Caption(context.Context, []string, string, string) (string, error) {
	return "Hero of the day!", nil
}

func (g stubGenerator) Animate(_ context.Context, _ []byte, _, _ string, onProgress gemini.ProgressFunc) ([]byte, error) {
	onProgress(50, "Adding a little magic...")
	return []byte("mp4"), nil
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 6, 4))
	for i := range img.Pix {
		img.Pix[i] = 180
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func runScript(t *testing.T, script string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	pic := testPNG(t)
	photo := filepath.Join(dir, "me.png")
	if err := os.WriteFile(photo, pic, 0600); err != nil {
		t.Fatal(err)
	}

	st := store.NewFileStore(filepath.Join(dir, "creations"))
	if err := st.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	var out bytes.Buffer
	outDir := filepath.Join(dir, "out")
	sh := newShell(strings.NewReader(strings.ReplaceAll(script, "$PHOTO", photo)), &out, outDir)
	sh.interrupt = context.WithCancel
	sh.studio = studio.New(stubGenerator{png: pic}, st, studio.Options{Pro: true, OnChange: sh.onChange})

	sh.run(context.Background())
	sh.studio.WaitCaptions()
	return out.String(), outDir
}

func TestShellSession(t *testing.T) {
	out, outDir := runScript(t, `open $PHOTO
select shonen
toonify
edit
filter sepia
crop 0,0,3,2
undo
done
download
animate
save
gallery
quit
`)

	for _, want := range []string{
		"Photo ready.",
		"Styles: Vibrant Cartoon + Shōnen Anime",
		"Toonifying your image...",
		"Done. Entry 1 of 1.",
		"Done. Entry 2 of 2.",
		"Done. Entry 3 of 3.",
		"Adding a little magic...",
		"Saved as #1",
		"#1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	for _, name := range []string{"toon-nation.png", videoName} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestShellReportsErrors(t *testing.T) {
	out, _ := runScript(t, `toonify
select nope
crop 1,2
intensity lots
bogus
`)
	for _, want := range []string{
		"Error: no image selected",
		"unknown style",
		"crop rectangle must be x,y,width,height",
		`"lots" is not a number`,
		`Unknown command "bogus"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestShellDeleteAsksFirst(t *testing.T) {
	out, _ := runScript(t, `open $PHOTO
toonify
save
delete 1
n
gallery
delete 1
y
gallery
`)
	if !strings.Contains(out, "Delete creation #1? [y/N]") {
		t.Errorf("no confirmation prompt:\n%s", out)
	}
	if strings.Count(out, "Deleted #1.") != 1 {
		t.Errorf("expected exactly one deletion:\n%s", out)
	}
	if !strings.Contains(out, "Your gallery is empty.") {
		t.Errorf("gallery not empty after delete:\n%s", out)
	}
}

func TestSplitPairs(t *testing.T) {
	got := splitPairs("emotion=very happy outfit=red cape")
	if len(got) != 2 || got[0] != "emotion=very happy" || got[1] != "outfit=red cape" {
		t.Errorf("splitPairs = %q", got)
	}
}
