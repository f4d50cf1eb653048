package imaging

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Rect is a crop rectangle in source pixel coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Crop extracts r from data and returns it as PNG. The output is always
// exactly r.Width x r.Height; areas of r outside the source stay transparent.
func Crop(data []byte, r Rect) ([]byte, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("invalid crop size %dx%d", r.Width, r.Height)
	}
	img, err := decode(data, "cropping")
	if err != nil {
		return nil, err
	}

	src := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(src.Min.X+r.X, src.Min.Y+r.Y), draw.Src)
	return encodePNG(dst)
}
