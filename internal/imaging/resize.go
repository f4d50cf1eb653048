package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// Resize scales data so that its longer edge is at most maxDimension,
// preserving aspect ratio, and re-encodes it as JPEG. Images that already
// fit keep their dimensions but are still re-encoded.
func Resize(data []byte, maxDimension int) ([]byte, error) {
	if maxDimension <= 0 {
		return nil, fmt.Errorf("invalid max dimension %d", maxDimension)
	}
	img, err := decode(data, "resizing")
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	origWidth, origHeight := bounds.Dx(), bounds.Dy()
	newWidth, newHeight := FitDimensions(origWidth, origHeight, maxDimension)

	// JPEG has no alpha; flatten onto an opaque canvas first.
	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	if newWidth == origWidth && newHeight == origHeight {
		draw.Draw(resized, resized.Bounds(), img, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	}

	out, err := encodeJPEG(resized, JPEGQuality)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("output_size", len(out)).
		Msg("Image resized")

	return out, nil
}

// FitDimensions computes the output size for Resize. The longer edge is
// clamped to maxDimension and the shorter edge rounded to the nearest pixel;
// a square image is treated as portrait.
func FitDimensions(width, height, maxDimension int) (int, int) {
	if width > height {
		if width > maxDimension {
			height = int(math.Round(float64(height) * float64(maxDimension) / float64(width)))
			width = maxDimension
		}
	} else if height > maxDimension {
		width = int(math.Round(float64(width) * float64(maxDimension) / float64(height)))
		height = maxDimension
	}
	return max(width, 1), max(height, 1)
}
