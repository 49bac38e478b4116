package render

import (
	"image/color"

	"github.com/taigrr/painter/pkg/geom"
	"github.com/taigrr/painter/pkg/math3d"
)

// Backend is a drawing surface that fills polygons in call order, later
// polygons on top. Points passed to FillPolygon are in pixels with the origin
// at the top left.
type Backend interface {
	Size() (width, height int)
	Clear()
	SetFillStyle(c color.Color)
	SetStrokeStyle(c color.Color)
	FillPolygon(points []math3d.Vec2)
}

// ToPixels maps a point in normalized device coordinates to a width x height
// viewport, flipping y so +1 is the top row.
func ToPixels(p math3d.Vec2, width, height int) math3d.Vec2 {
	return math3d.V2(
		(p.X+1)*0.5*float64(width),
		(1-p.Y)*0.5*float64(height),
	)
}

// Backgrounder is implemented by backends whose Clear paints a background.
type Backgrounder interface {
	SetBackground(c color.Color)
}

// Paint clears b and draws polys in order, each filled with its own color and
// outlined with stroke. A transparent fill is passed on as is. Polygons with fewer than three surviving points are
// skipped.
func Paint(b Backend, stroke color.Color, polys []geom.Polygon2D) int {
	b.Clear()
	w, h := b.Size()

	drawn := 0
	for _, p := range polys {
		if !p.Drawable() {
			continue
		}
		src := p.Points()
		pts := make([]math3d.Vec2, len(src))
		for i, pt := range src {
			pts[i] = ToPixels(pt, w, h)
		}

		b.SetStrokeStyle(stroke)
		b.SetFillStyle(p.Color)
		b.FillPolygon(pts)
		drawn++
	}
	return drawn
}
