package geom

import (
	"image/color"
	"slices"

	"github.com/taigrr/painter/pkg/math3d"
)

// Polygon2D is a projected polygon ready to be handed to a rendering
// backend. Points are in normalized device coordinates.
type Polygon2D struct {
	ID    string
	Color color.RGBA

	points []math3d.Vec2
	center math3d.Vec2
}

// NewPolygon2D creates a projected polygon and computes its center.
func NewPolygon2D(c color.RGBA, points ...math3d.Vec2) Polygon2D {
	p := Polygon2D{Color: c, points: slices.Clone(points)}
	for _, pt := range p.points {
		p.center = p.center.Add(pt)
	}
	if len(p.points) > 0 {
		p.center = p.center.Scale(1 / float64(len(p.points)))
	}
	return p
}

// Points returns a copy of the projected vertices.
func (p Polygon2D) Points() []math3d.Vec2 {
	return slices.Clone(p.points)
}

// Len returns the number of vertices.
func (p Polygon2D) Len() int {
	return len(p.points)
}

// Center returns the centroid of the projected vertices.
func (p Polygon2D) Center() math3d.Vec2 {
	return p.center
}

// Drawable reports whether enough vertices survived projection to fill.
func (p Polygon2D) Drawable() bool {
	return len(p.points) >= 3
}
