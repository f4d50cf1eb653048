package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func solidPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) *image.NRGBA {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not PNG: %v", err)
	}
	return toNRGBA(img)
}

func TestResize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"landscape over limit", 2000, 1000, 1024, 512},
		{"portrait under limit", 500, 800, 500, 800},
		{"portrait over limit", 1000, 3000, 341, 1024},
		{"square over limit", 1500, 1500, 1024, 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := solidPNG(t, tt.w, tt.h, color.NRGBA{200, 100, 50, 255})
			out, err := Resize(in, 1024)
			if err != nil {
				t.Fatalf("Resize: %v", err)
			}
			if format := sniff(out); format != "jpeg" {
				t.Errorf("expected JPEG output, got %s", format)
			}
			w, h, err := Dimensions(out)
			if err != nil {
				t.Fatal(err)
			}
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func sniff(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "invalid"
	}
	return format
}

func TestFitDimensions(t *testing.T) {
	if w, h := FitDimensions(1025, 1, 1024); w != 1024 || h != 1 {
		t.Errorf("thin strip: got %dx%d", w, h)
	}
	if w, h := FitDimensions(1024, 1024, 1024); w != 1024 || h != 1024 {
		t.Errorf("exact fit: got %dx%d", w, h)
	}
}

func TestResizeRejectsGarbage(t *testing.T) {
	_, err := Resize([]byte("not an image"), 1024)
	if err == nil || !strings.Contains(err.Error(), "failed to load image for resizing") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestCrop(t *testing.T) {
	in := solidPNG(t, 100, 80, color.NRGBA{10, 20, 30, 255})
	out, err := Crop(in, Rect{X: 10, Y: 5, Width: 40, Height: 30})
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	img := decodePNG(t, out)
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("got %v, want 40x30", img.Bounds())
	}
	if c := img.NRGBAAt(0, 0); c != (color.NRGBA{10, 20, 30, 255}) {
		t.Errorf("pixel = %v", c)
	}

	// Rect extending past the source keeps the requested size.
	out, err = Crop(in, Rect{X: 90, Y: 70, Width: 20, Height: 20})
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	img = decodePNG(t, out)
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 20 {
		t.Errorf("got %v, want 20x20", img.Bounds())
	}
	if c := img.NRGBAAt(15, 15); c.A != 0 {
		t.Errorf("outside pixel should be transparent, got %v", c)
	}

	if _, err := Crop(in, Rect{Width: 0, Height: 10}); err == nil {
		t.Error("expected error for empty rect")
	}
}

func TestApplyFilter(t *testing.T) {
	in := solidPNG(t, 4, 4, color.NRGBA{200, 100, 50, 255})

	tests := []struct {
		name string
		expr string
		want func(color.NRGBA) bool
	}{
		{"none", "none", func(c color.NRGBA) bool { return c == color.NRGBA{200, 100, 50, 255} }},
		{"grayscale", "grayscale(100%)", func(c color.NRGBA) bool { return c.R == c.G && c.G == c.B }},
		{"invert", "invert(100%)", func(c color.NRGBA) bool { return c == color.NRGBA{55, 155, 205, 255} }},
		{"brightness", "brightness(50%)", func(c color.NRGBA) bool { return c == color.NRGBA{100, 50, 25, 255} }},
		{"opacity", "opacity(0.5)", func(c color.NRGBA) bool { return c.A == 128 }},
		{"combined", "invert(100%) grayscale(100%) contrast(200%)", func(c color.NRGBA) bool { return c.R == c.G && c.G == c.B }},
		{"hue full turn", "hue-rotate(1turn)", func(c color.NRGBA) bool { return near(c.R, 200) && near(c.G, 100) && near(c.B, 50) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ApplyFilter(in, tt.expr)
			if err != nil {
				t.Fatalf("ApplyFilter(%q): %v", tt.expr, err)
			}
			c := decodePNG(t, out).NRGBAAt(1, 1)
			if !tt.want(c) {
				t.Errorf("ApplyFilter(%q) pixel = %v", tt.expr, c)
			}
		})
	}
}

func near(got, want uint8) bool {
	d := int(got) - int(want)
	return d >= -2 && d <= 2
}

func TestParseFilterPresetsAndErrors(t *testing.T) {
	for _, p := range Presets {
		if _, err := ParseFilter(p.Expr); err != nil {
			t.Errorf("preset %s: %v", p.Name, err)
		}
	}
	for _, bad := range []string{"blur(5px)", "sepia(", "sepia(abc)", "sepia(50%) garbage", "brightness(-1)"} {
		if _, err := ParseFilter(bad); err == nil {
			t.Errorf("ParseFilter(%q) expected error", bad)
		}
	}
}

func TestApplyAdjustmentsRotation(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	red := color.NRGBA{255, 0, 0, 255}
	img.SetNRGBA(0, 0, red)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		rotation     int
		wantW, wantH int
		redX, redY   int
	}{
		{0, 3, 2, 0, 0},
		{90, 2, 3, 1, 0},
		{180, 3, 2, 2, 1},
		{270, 2, 3, 0, 2},
	}
	for _, tt := range tests {
		adj := DefaultAdjustments()
		adj.Rotation = tt.rotation
		out, err := ApplyAdjustments(buf.Bytes(), adj)
		if err != nil {
			t.Fatalf("rotation %d: %v", tt.rotation, err)
		}
		got := decodePNG(t, out)
		if got.Bounds().Dx() != tt.wantW || got.Bounds().Dy() != tt.wantH {
			t.Errorf("rotation %d: size %v, want %dx%d", tt.rotation, got.Bounds(), tt.wantW, tt.wantH)
		}
		if c := got.NRGBAAt(tt.redX, tt.redY); c != red {
			t.Errorf("rotation %d: pixel (%d,%d) = %v, want red", tt.rotation, tt.redX, tt.redY, c)
		}
	}
}

func TestApplyAdjustmentsValidation(t *testing.T) {
	in := solidPNG(t, 2, 2, color.NRGBA{1, 2, 3, 255})
	if _, err := ApplyAdjustments(in, Adjustments{Rotation: 45, Brightness: 100, Contrast: 100, Saturation: 100}); err == nil {
		t.Error("expected error for 45 degree rotation")
	}
	if _, err := ApplyAdjustments(in, Adjustments{Brightness: -5, Contrast: 100, Saturation: 100}); err == nil {
		t.Error("expected error for negative brightness")
	}
}

func TestAcquire(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(path, solidPNG(t, 8, 8, color.NRGBA{0, 0, 0, 255}), 0600); err != nil {
		t.Fatal(err)
	}

	up, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if up.MIMEType != "image/png" {
		t.Errorf("MIMEType = %s", up.MIMEType)
	}

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Acquire(txt); err == nil {
		t.Error("expected error for a text file")
	}
	if _, err := Acquire(dir); err == nil {
		t.Error("expected error for a directory")
	}
}

func TestDataURI(t *testing.T) {
	if got := DataURI("image/png", []byte("hi")); got != "data:image/png;base64,aGk=" {
		t.Errorf("DataURI = %q", got)
	}
}
