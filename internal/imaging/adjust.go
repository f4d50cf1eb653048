package imaging

import (
	"fmt"
	"image"
)

// Adjustments are the manual tweaks offered in the editor. Tone values are
// percentages where 100 means unchanged.
type Adjustments struct {
	Rotation   int `json:"rotation"`
	Brightness int `json:"brightness"`
	Contrast   int `json:"contrast"`
	Saturation int `json:"saturation"`
}

// DefaultAdjustments is the identity adjustment.
func DefaultAdjustments() Adjustments {
	return Adjustments{Rotation: 0, Brightness: 100, Contrast: 100, Saturation: 100}
}

// FilterExpr renders the tone part of a as a filter expression.
func (a Adjustments) FilterExpr() string {
	return fmt.Sprintf("brightness(%d%%) contrast(%d%%) saturate(%d%%)", a.Brightness, a.Contrast, a.Saturation)
}

// ApplyAdjustments rotates data clockwise by a.Rotation and then applies the
// tone adjustments. For 90 and 270 degrees the output width and height are
// swapped. The result is PNG.
func ApplyAdjustments(data []byte, a Adjustments) ([]byte, error) {
	switch a.Rotation {
	case 0, 90, 180, 270:
	default:
		return nil, fmt.Errorf("invalid rotation %d (want 0, 90, 180 or 270)", a.Rotation)
	}
	if a.Brightness < 0 || a.Contrast < 0 || a.Saturation < 0 {
		return nil, fmt.Errorf("adjustment percentages must not be negative")
	}
	ops, err := ParseFilter(a.FilterExpr())
	if err != nil {
		return nil, err
	}

	img, err := decode(data, "editing")
	if err != nil {
		return nil, err
	}
	out := rotate(toNRGBA(img), a.Rotation)
	applyOps(out, ops)
	return encodePNG(out)
}

// rotate turns src clockwise by deg, which must be a multiple of 90.
func rotate(src *image.NRGBA, deg int) *image.NRGBA {
	if deg == 0 {
		return src
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	var dst *image.NRGBA
	if deg == 180 {
		dst = image.NewNRGBA(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewNRGBA(image.Rect(0, 0, h, w))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.NRGBAAt(x, y)
			switch deg {
			case 90:
				dst.SetNRGBA(h-1-y, x, c)
			case 180:
				dst.SetNRGBA(w-1-x, h-1-y, c)
			case 270:
				dst.SetNRGBA(y, w-1-x, c)
			}
		}
	}
	return dst
}
