// Package imaging implements the in-memory image operations of the studio:
// resize on upload, crop, CSS-style filters and rotation/tone adjustments.
//
// Every function takes encoded image bytes and returns freshly encoded bytes;
// nothing is shared between calls.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

// JPEGQuality is used whenever an upload is re-encoded.
const JPEGQuality = 90

// MIME types produced by this package.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

// decode returns the image and its format name. op names the calling
// operation in the error.
func decode(data []byte, op string) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load image for %s: %w", op, err)
	}
	return img, nil
}

// Dimensions returns the pixel size of an encoded image without decoding
// the pixel data.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// toNRGBA copies img into a zero-origin non-premultiplied buffer.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
