package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/taigrr/painter/pkg/geom"
)

// Color is an alias for color.RGBA for convenience.
type Color = color.RGBA

// Colors for convenience
var (
	ColorBlack      = color.RGBA{0, 0, 0, 255}
	ColorWhite      = color.RGBA{255, 255, 255, 255}
	ColorFallback   = geom.DefaultColor
	ColorBackground = color.RGBA{30, 30, 40, 255}
)

// RGB creates a color from RGB values.
func RGB(r, g, b uint8) color.RGBA {
	return color.RGBA{r, g, b, 255}
}

// ParseColor parses a CSS-style color string. Supported forms are "#rgb",
// "#rrggbb", "hsl(h, s%, l%)", "hsla(h, s%, l%, a)" and "r,g,b".
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasPrefix(s, "#"):
		c, err := colorful.Hex(s)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
		}
		return toRGBA(c, 1), nil
	case strings.HasPrefix(s, "hsla(") && strings.HasSuffix(s, ")"):
		args, err := parseArgs(s[len("hsla("):len(s)-1], 4)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
		}
		return toRGBA(colorful.Hsl(args[0], args[1], args[2]), args[3]), nil
	case strings.HasPrefix(s, "hsl(") && strings.HasSuffix(s, ")"):
		args, err := parseArgs(s[len("hsl("):len(s)-1], 3)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
		}
		return toRGBA(colorful.Hsl(args[0], args[1], args[2]), 1), nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return color.RGBA{}, fmt.Errorf("parse color %q: unsupported format", s)
	}
	var rgb [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
		}
		rgb[i] = uint8(v)
	}
	return RGB(rgb[0], rgb[1], rgb[2]), nil
}

// parseArgs reads n comma separated numbers. Values ending in % are scaled
// to [0, 1]; the hue is taken as is.
func parseArgs(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d arguments, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		p = strings.TrimSpace(p)
		percent := strings.HasSuffix(p, "%")
		v, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
		if err != nil {
			return nil, err
		}
		if percent {
			v /= 100
		}
		out[i] = v
	}
	return out, nil
}

// toRGBA converts c with a straight alpha to a premultiplied color.RGBA.
func toRGBA(c colorful.Color, alpha float64) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	a := uint8(math.Round(math.Max(0, math.Min(1, alpha)) * 255))
	return color.RGBAModel.Convert(color.NRGBA{r, g, b, a}).(color.RGBA)
}

// Palette returns the default color for the i-th model: hue steps of 100
// degrees at full saturation.
func Palette(i int) color.RGBA {
	return toRGBA(colorful.Hsl(math.Mod(float64(i)*100, 360), 1, 0.5), 1)
}

// Shade scales the brightness of c by intensity in [0, 1], keeping alpha.
func Shade(c color.RGBA, intensity float64) color.RGBA {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return c
	}
	intensity = math.Max(0, math.Min(1, intensity))
	shaded := colorful.Color{R: cf.R * intensity, G: cf.G * intensity, B: cf.B * intensity}
	return toRGBA(shaded, float64(c.A)/255)
}

// Hex formats c as "#rrggbb".
func Hex(c color.Color) string {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return "none"
	}
	return cf.Hex()
}
