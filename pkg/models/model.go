// Package models provides the 3D models a scene is built from: a point
// table, faces indexing into it, and a pose in world space.
package models

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/taigrr/painter/pkg/geom"
	"github.com/taigrr/painter/pkg/math3d"
)

// ErrBadFace is returned by Validate for faces that cannot form a polygon.
var ErrBadFace = errors.New("bad face")

// Model is a polyhedron in local coordinates placed in the world by a
// translation and an axis-angle rotation.
type Model struct {
	ID     string
	Points []math3d.Vec3
	Faces  [][]int // counter-clockwise seen from outside

	Position math3d.Vec3
	Axis     math3d.Vec3
	Angle    float64 // radians

	// Color fills every face. Nil leaves the choice to the scene.
	Color *color.RGBA
}

// NewModel creates a model at the origin.
func NewModel(id string, points []math3d.Vec3, faces [][]int) *Model {
	return &Model{
		ID:     id,
		Points: points,
		Faces:  faces,
		Axis:   math3d.Up(),
	}
}

// Validate checks that every face has at least three in-range indices.
func (m *Model) Validate() error {
	if len(m.Faces) == 0 {
		return fmt.Errorf("model %q: %w: no faces", m.ID, ErrBadFace)
	}
	for i, f := range m.Faces {
		if len(f) < 3 {
			return fmt.Errorf("model %q face %d: %w: %d points", m.ID, i, ErrBadFace, len(f))
		}
		for _, idx := range f {
			if idx < 0 || idx >= len(m.Points) {
				return fmt.Errorf("model %q face %d: %w: index %d out of range", m.ID, i, ErrBadFace, idx)
			}
		}
	}
	return nil
}

// Matrix returns the local-to-world transform.
func (m *Model) Matrix() math3d.Mat4 {
	mat := math3d.Translate(m.Position)
	if m.Angle != 0 && m.Axis.LenSq() > 0 {
		mat = mat.Mul(math3d.Rotate(m.Axis, m.Angle))
	}
	return mat
}

// WorldPoints returns the point table mapped into world space.
func (m *Model) WorldPoints() []math3d.Vec3 {
	mat := m.Matrix()
	out := make([]math3d.Vec3, len(m.Points))
	for i, p := range m.Points {
		out[i] = mat.MulVec3(p)
	}
	return out
}

// Polygons returns one world-space polygon per face with ids "#<id>.<face>".
// Faces with out-of-range indices are skipped.
func (m *Model) Polygons() []geom.Polygon {
	world := m.WorldPoints()
	polys := make([]geom.Polygon, 0, len(m.Faces))

faces:
	for i, f := range m.Faces {
		ring := make([]math3d.Vec3, len(f))
		for j, idx := range f {
			if idx < 0 || idx >= len(world) {
				continue faces
			}
			ring[j] = world[idx]
		}
		p := geom.NewPolygon(ring...)
		p.ID = fmt.Sprintf("#%s.%d", m.ID, i)
		if m.Color != nil {
			p.Color = *m.Color
		}
		polys = append(polys, p)
	}
	return polys
}

// Bounds returns the local axis-aligned bounding box.
func (m *Model) Bounds() (min, max math3d.Vec3) {
	if len(m.Points) == 0 {
		return
	}
	min, max = m.Points[0], m.Points[0]
	for _, p := range m.Points[1:] {
		min = min.Min(p)
		max = max.Max(p)
	}
	return min, max
}

// Center returns the center of the local bounding box.
func (m *Model) Center() math3d.Vec3 {
	min, max := m.Bounds()
	return min.Add(max).Scale(0.5)
}

// Size returns the dimensions of the local bounding box.
func (m *Model) Size() math3d.Vec3 {
	min, max := m.Bounds()
	return max.Sub(min)
}

// Normalize recenters the point table on the origin and scales it so the
// largest dimension equals size. Empty or flat-zero models are left alone.
func (m *Model) Normalize(size float64) {
	extent := m.Size()
	largest := max(extent.X, extent.Y, extent.Z)
	if largest == 0 {
		return
	}
	center := m.Center()
	scale := size / largest
	for i, p := range m.Points {
		m.Points[i] = p.Sub(center).Scale(scale)
	}
}

// Clone creates a deep copy of the model.
func (m *Model) Clone() *Model {
	clone := *m
	clone.Points = append([]math3d.Vec3(nil), m.Points...)
	clone.Faces = make([][]int, len(m.Faces))
	for i, f := range m.Faces {
		clone.Faces[i] = append([]int(nil), f...)
	}
	return &clone
}

// Cube builds a w×h×d box centered on the origin with six quad faces.
func Cube(id string, w, h, d float64) *Model {
	points := make([]math3d.Vec3, 8)
	for i := range points {
		x, y, z := -w/2, -h/2, -d/2
		if i&1 != 0 {
			x = w / 2
		}
		if i&2 != 0 {
			y = h / 2
		}
		if i&4 != 0 {
			z = d / 2
		}
		points[i] = math3d.V3(x, y, z)
	}

	return NewModel(id, points, [][]int{
		{0, 2, 3, 1}, // -z
		{4, 5, 7, 6}, // +z
		{0, 4, 6, 2}, // -x
		{1, 3, 7, 5}, // +x
		{0, 1, 5, 4}, // -y
		{2, 6, 7, 3}, // +y
	})
}

// Sphere builds a UV sphere of the given radius centered on the origin.
// rings counts latitude bands (at least 2) and segments longitude slices (at
// least 3). The bands touching the poles are triangles, the rest are quads.
func Sphere(id string, radius float64, rings, segments int) *Model {
	rings, segments = max(rings, 2), max(segments, 3)

	points := make([]math3d.Vec3, 0, 2+(rings-1)*segments)
	points = append(points, math3d.V3(0, radius, 0))
	for i := 1; i < rings; i++ {
		theta := math.Pi * float64(i) / float64(rings)
		for j := range segments {
			phi := 2 * math.Pi * float64(j) / float64(segments)
			points = append(points, math3d.V3(
				radius*math.Sin(theta)*math.Cos(phi),
				radius*math.Cos(theta),
				radius*math.Sin(theta)*math.Sin(phi),
			))
		}
	}
	south := len(points)
	points = append(points, math3d.V3(0, -radius, 0))

	// at returns the index of point j on ring i, 1 <= i < rings.
	at := func(i, j int) int {
		return 1 + (i-1)*segments + j%segments
	}

	faces := make([][]int, 0, rings*segments)
	for j := range segments {
		faces = append(faces, []int{0, at(1, j+1), at(1, j)})
	}
	for i := 1; i < rings-1; i++ {
		for j := range segments {
			faces = append(faces, []int{at(i, j), at(i, j+1), at(i+1, j+1), at(i+1, j)})
		}
	}
	for j := range segments {
		faces = append(faces, []int{at(rings-1, j), at(rings-1, j+1), south})
	}
	return NewModel(id, points, faces)
}
