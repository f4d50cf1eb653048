package imaging

import (
	"fmt"
	"image"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Presets are the named filters offered in the editor.
var Presets = []Preset{
	{Name: "None", Expr: "none"},
	{Name: "Sepia", Expr: "sepia(100%)"},
	{Name: "Grayscale", Expr: "grayscale(100%)"},
	{Name: "Invert", Expr: "invert(100%)"},
	{Name: "Psychedelic", Expr: "hue-rotate(180deg) saturate(250%) contrast(120%)"},
	{Name: "Toasty", Expr: "sepia(60%) saturate(200%) contrast(150%) brightness(90%)"},
	{Name: "Deep Fried", Expr: "saturate(500%) contrast(200%) brightness(80%)"},
	{Name: "X-Ray", Expr: "invert(100%) grayscale(100%) contrast(200%)"},
	{Name: "Alien", Expr: "hue-rotate(90deg) saturate(150%)"},
}

// Preset is a named filter expression.
type Preset struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}

// ColorOp transforms one non-premultiplied pixel with components in [0,1].
type ColorOp func(r, g, b, a float64) (float64, float64, float64, float64)

var filterFuncPattern = regexp.MustCompile(`^\s*([a-z-]+)\(\s*([^()]*?)\s*\)`)

// ParseFilter validates a CSS filter expression such as
// "sepia(60%) contrast(150%)". "none" and "" yield no operations.
func ParseFilter(expr string) ([]ColorOp, error) {
	rest := strings.TrimSpace(expr)
	if rest == "" || rest == "none" {
		return nil, nil
	}

	var ops []ColorOp
	for rest != "" {
		m := filterFuncPattern.FindStringSubmatch(rest)
		if m == nil {
			return nil, fmt.Errorf("invalid filter expression near %q", rest)
		}
		op, err := filterOp(m[1], m[2])
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		rest = strings.TrimSpace(rest[len(m[0]):])
	}
	return ops, nil
}

func filterOp(name, arg string) (ColorOp, error) {
	if name == "hue-rotate" {
		deg, err := parseAngle(arg)
		if err != nil {
			return nil, err
		}
		return hueRotate(deg), nil
	}

	amount, err := parseAmount(arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	switch name {
	case "grayscale":
		return grayscale(math.Min(amount, 1)), nil
	case "sepia":
		return sepia(math.Min(amount, 1)), nil
	case "saturate":
		return saturate(amount), nil
	case "invert":
		a := math.Min(amount, 1)
		return perChannel(func(c float64) float64 { return a*(1-c) + (1-a)*c }), nil
	case "brightness":
		return perChannel(func(c float64) float64 { return c * amount }), nil
	case "contrast":
		return perChannel(func(c float64) float64 { return (c-0.5)*amount + 0.5 }), nil
	case "opacity":
		a := math.Min(amount, 1)
		return func(r, g, b, al float64) (float64, float64, float64, float64) { return r, g, b, al * a }, nil
	default:
		return nil, fmt.Errorf("unsupported filter function %q", name)
	}
}

// parseAmount accepts "", "0.5" or "50%". An empty argument means 1.
func parseAmount(arg string) (float64, error) {
	if arg == "" {
		return 1, nil
	}
	scale := 1.0
	if strings.HasSuffix(arg, "%") {
		arg = strings.TrimSuffix(arg, "%")
		scale = 0.01
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid amount %q", arg)
	}
	return v * scale, nil
}

// parseAngle accepts deg, rad and turn units; a bare number is degrees.
func parseAngle(arg string) (float64, error) {
	if arg == "" {
		return 0, nil
	}
	units := []struct {
		suffix string
		toDeg  float64
	}{{"deg", 1}, {"rad", 180 / math.Pi}, {"turn", 360}}
	for _, u := range units {
		if strings.HasSuffix(arg, u.suffix) {
			v, err := strconv.ParseFloat(strings.TrimSuffix(arg, u.suffix), 64)
			if err != nil {
				return 0, fmt.Errorf("invalid angle %q", arg)
			}
			return v * u.toDeg, nil
		}
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid angle %q", arg)
	}
	return v, nil
}

func perChannel(f func(float64) float64) ColorOp {
	return func(r, g, b, a float64) (float64, float64, float64, float64) {
		return f(r), f(g), f(b), a
	}
}

// matrixOp applies a 3x3 color matrix.
func matrixOp(m [9]float64) ColorOp {
	return func(r, g, b, a float64) (float64, float64, float64, float64) {
		return m[0]*r + m[1]*g + m[2]*b,
			m[3]*r + m[4]*g + m[5]*b,
			m[6]*r + m[7]*g + m[8]*b,
			a
	}
}

// Matrices follow the Filter Effects Module Level 1 definitions.
func grayscale(a float64) ColorOp {
	s := 1 - a
	return matrixOp([9]float64{
		0.2126 + 0.7874*s, 0.7152 - 0.7152*s, 0.0722 - 0.0722*s,
		0.2126 - 0.2126*s, 0.7152 + 0.2848*s, 0.0722 - 0.0722*s,
		0.2126 - 0.2126*s, 0.7152 - 0.7152*s, 0.0722 + 0.9278*s,
	})
}

func sepia(a float64) ColorOp {
	s := 1 - a
	return matrixOp([9]float64{
		0.393 + 0.607*s, 0.769 - 0.769*s, 0.189 - 0.189*s,
		0.349 - 0.349*s, 0.686 + 0.314*s, 0.168 - 0.168*s,
		0.272 - 0.272*s, 0.534 - 0.534*s, 0.131 + 0.869*s,
	})
}

func saturate(s float64) ColorOp {
	return matrixOp([9]float64{
		0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s,
		0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s,
		0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s,
	})
}

func hueRotate(deg float64) ColorOp {
	rad := deg * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	return matrixOp([9]float64{
		0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928,
		0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283,
		0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072,
	})
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// applyOps runs ops in order on every pixel of img, clamping after each step.
func applyOps(img *image.NRGBA, ops []ColorOp) {
	if len(ops) == 0 {
		return
	}
	for i := 0; i+3 < len(img.Pix); i += 4 {
		r := float64(img.Pix[i]) / 255
		g := float64(img.Pix[i+1]) / 255
		b := float64(img.Pix[i+2]) / 255
		a := float64(img.Pix[i+3]) / 255
		for _, op := range ops {
			r, g, b, a = op(r, g, b, a)
			r, g, b, a = clamp01(r), clamp01(g), clamp01(b), clamp01(a)
		}
		img.Pix[i] = uint8(math.Round(r * 255))
		img.Pix[i+1] = uint8(math.Round(g * 255))
		img.Pix[i+2] = uint8(math.Round(b * 255))
		img.Pix[i+3] = uint8(math.Round(a * 255))
	}
}

// ApplyFilter applies a CSS filter expression to data and returns PNG.
func ApplyFilter(data []byte, expr string) ([]byte, error) {
	ops, err := ParseFilter(expr)
	if err != nil {
		return nil, err
	}
	img, err := decode(data, "filtering")
	if err != nil {
		return nil, err
	}
	out := toNRGBA(img)
	applyOps(out, ops)
	return encodePNG(out)
}
