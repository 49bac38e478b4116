package render

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/taigrr/painter/pkg/math3d"
)

// SVG is a Backend that records a frame as an SVG document. Every polygon
// becomes a <polygon> element filled with the fill style and outlined with
// the stroke style.
type SVG struct {
	Background color.Color

	width, height int
	buf           bytes.Buffer
	canvas        *svg.SVG
	fill, stroke  string
	ended         bool
}

// NewSVG creates an SVG backend with a width x height viewport.
func NewSVG(width, height int) *SVG {
	s := &SVG{
		Background: ColorBackground,
		width:      width,
		height:     height,
	}
	s.SetFillStyle(ColorFallback)
	s.SetStrokeStyle(ColorBlack)
	s.Clear()
	return s
}

// Size implements Backend.
func (s *SVG) Size() (width, height int) {
	return s.width, s.height
}

// Clear implements Backend by starting a new document.
func (s *SVG) Clear() {
	s.buf.Reset()
	s.canvas = svg.New(&s.buf)
	s.canvas.Start(s.width, s.height)
	if s.Background != nil {
		s.canvas.Rect(0, 0, s.width, s.height, paint("fill", s.Background))
	}
	s.ended = false
}

// SetBackground implements Backgrounder. Nil leaves the page transparent.
func (s *SVG) SetBackground(c color.Color) {
	s.Background = c
}

// SetFillStyle implements Backend.
func (s *SVG) SetFillStyle(c color.Color) {
	s.fill = paint("fill", c)
}

// SetStrokeStyle implements Backend.
func (s *SVG) SetStrokeStyle(c color.Color) {
	s.stroke = paint("stroke", c)
}

// FillPolygon implements Backend.
func (s *SVG) FillPolygon(points []math3d.Vec2) {
	if len(points) < 3 || s.ended {
		return
	}
	xs := make([]int, len(points))
	ys := make([]int, len(points))
	for i, p := range points {
		xs[i] = int(math.Round(p.X))
		ys[i] = int(math.Round(p.Y))
	}
	s.canvas.Polygon(xs, ys, s.fill+";"+s.stroke)
}

// WriteTo finishes the document and writes it to w. Drawing resumes after the
// next Clear.
func (s *SVG) WriteTo(w io.Writer) (int64, error) {
	if !s.ended {
		s.canvas.End()
		s.ended = true
	}
	n, err := w.Write(s.buf.Bytes())
	if err != nil {
		return int64(n), fmt.Errorf("write svg: %w", err)
	}
	return int64(n), nil
}

// paint renders c as an SVG presentation property, adding an opacity for
// translucent colors.
func paint(prop string, c color.Color) string {
	if c == nil {
		return prop + ":none"
	}
	_, _, _, a := c.RGBA()
	if a == 0 {
		return prop + ":none"
	}
	style := prop + ":" + Hex(c)
	if a < 0xffff {
		style += fmt.Sprintf(";%s-opacity:%.3g", prop, float64(a)/0xffff)
	}
	return style
}
