// Package geom provides planar polygons in 3D space and the clipping
// operations the BSP builder relies on.
package geom

import (
	"fmt"
	"image/color"
	"slices"

	"github.com/taigrr/painter/pkg/math3d"
)

const (
	// ContainEpsilon is the tolerance of the edge half-plane test in
	// ContainsPoint. It is absolute and applied to an unnormalized cross
	// product, so it only stays meaningful for moderately scaled coordinates.
	ContainEpsilon = 1e-6

	// PlaneEpsilon is the distance under which a vertex counts as lying on a
	// splitting plane.
	PlaneEpsilon = 1e-9
)

// Side classifies a point or polygon against a plane.
type Side int

const (
	Coplanar Side = iota
	Front
	Back
	Spanning
)

func (s Side) String() string {
	switch s {
	case Coplanar:
		return "coplanar"
	case Front:
		return "front"
	case Back:
		return "back"
	case Spanning:
		return "spanning"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Projector maps a 3D point into normalized device coordinates. Points that
// cannot be projected come back as math3d.NaN3.
type Projector interface {
	ProjectPoint(p math3d.Vec3) math3d.Vec3
}

// DefaultColor is the color of a polygon nobody colored.
var DefaultColor = color.RGBA{204, 0, 0, 255}

// Polygon is a planar ring of points. The normal and center are computed
// once by NewPolygon; splitting always produces new polygons.
type Polygon struct {
	ID    string
	Color color.RGBA

	points []math3d.Vec3
	normal math3d.Vec3
	center math3d.Vec3
}

// NewPolygon creates a polygon from an ordered ring of coplanar points.
// Fewer than three points, or collinear points, give a NaN normal.
func NewPolygon(points ...math3d.Vec3) Polygon {
	p := Polygon{Color: DefaultColor, points: slices.Clone(points)}
	p.normal = newellNormal(p.points)
	p.center = centroid(p.points)
	return p
}

// newellNormal sums the cross products of successive edge pairs and
// normalizes the result. Counter-clockwise rings (seen from the normal) give
// a normal pointing toward the viewer.
func newellNormal(points []math3d.Vec3) math3d.Vec3 {
	var n math3d.Vec3
	count := len(points)
	for i := range count {
		p1 := points[i]
		p2 := points[(i+1)%count]
		p3 := points[(i+2)%count]
		n = n.Add(p2.Sub(p1).Cross(p3.Sub(p1)))
	}
	return n.Normalize()
}

func centroid(points []math3d.Vec3) math3d.Vec3 {
	var c math3d.Vec3
	for _, p := range points {
		c = c.Add(p)
	}
	return c.Div(float64(len(points)))
}

// derive returns a fresh polygon over points carrying p's color and the given
// id suffix.
func (p Polygon) derive(suffix string, points []math3d.Vec3) Polygon {
	q := NewPolygon(points...)
	q.ID = p.ID + suffix
	q.Color = p.Color
	return q
}

// Points returns a copy of the polygon's vertices.
func (p Polygon) Points() []math3d.Vec3 {
	return slices.Clone(p.points)
}

// Len returns the number of vertices.
func (p Polygon) Len() int {
	return len(p.points)
}

// Normal returns the unit normal.
func (p Polygon) Normal() math3d.Vec3 {
	return p.normal
}

// Center returns the centroid of the vertices.
func (p Polygon) Center() math3d.Vec3 {
	return p.center
}

// Plane returns the supporting plane with unit normal through the center.
func (p Polygon) Plane() math3d.Plane {
	return math3d.PlaneFromNormal(p.normal, p.center)
}

// Degenerate reports whether the polygon has no usable plane.
func (p Polygon) Degenerate() bool {
	return len(p.points) < 3 || p.normal.IsNaN() || p.center.IsNaN()
}

// Area returns the area of the polygon.
func (p Polygon) Area() float64 {
	var sum math3d.Vec3
	count := len(p.points)
	for i := range count {
		sum = sum.Add(p.points[i].Cross(p.points[(i+1)%count]))
	}
	return sum.Len() / 2
}

// Transform returns a copy with every vertex mapped through m as a point.
func (p Polygon) Transform(m math3d.Mat4) Polygon {
	points := make([]math3d.Vec3, len(p.points))
	for i, v := range p.points {
		points[i] = m.MulVec3(v)
	}
	q := NewPolygon(points...)
	q.ID = p.ID
	q.Color = p.Color
	return q
}

// ContainsPoint reports whether point lies inside the polygon, using a
// half-plane test per edge. Points on the boundary are inside. Only convex
// polygons are supported.
func (p Polygon) ContainsPoint(point math3d.Vec3) bool {
	return containsPoint(p.points, p.normal, point)
}

func containsPoint(ring []math3d.Vec3, normal, point math3d.Vec3) bool {
	count := len(ring)
	for i := range count {
		p1 := ring[i]
		p2 := ring[(i+1)%count]
		cross := p2.Sub(p1).Cross(point.Sub(p1))
		if normal.Dot(cross) < -ContainEpsilon {
			return false
		}
	}
	return true
}

// Classify reports on which side of plane the polygon lies.
func (p Polygon) Classify(plane math3d.Plane) Side {
	var front, back bool
	for _, v := range p.points {
		switch d := plane.SignedDistance(v); {
		case d > PlaneEpsilon:
			front = true
		case d < -PlaneEpsilon:
			back = true
		}
	}
	switch {
	case front && back:
		return Spanning
	case front:
		return Front
	case back:
		return Back
	default:
		return Coplanar
	}
}

// SplitByPlane partitions p along an infinite plane. If p does not cross the
// plane it is returned alone. Otherwise the result is [before, after] where
// before lies on the side the plane normal points to.
func SplitByPlane(p Polygon, plane math3d.Plane) []Polygon {
	if p.Classify(plane) != Spanning {
		return []Polygon{p}
	}
	before, after := partition(p.points, plane, func(a, b math3d.Vec3, da, db float64) math3d.Vec3 {
		return a.Lerp(b, da/(da-db))
	})
	return []Polygon{p.derive(".before", before), p.derive(".after", after)}
}

// Intersect splits a against the supporting plane of clip, defined by clip's
// first three points. A crossing is only found strictly inside one of a's
// edges, and the split happens only if at least one crossing lies within
// clip's footprint. Without a split the result is [a]; otherwise it is
// [before, after] with before on the side of clip's normal.
func Intersect(a, clip Polygon) []Polygon {
	if clip.Len() < 3 {
		return []Polygon{a}
	}
	c0, c1, c2 := clip.points[0], clip.points[1], clip.points[2]
	plane := math3d.PlaneFromPoints(c0, c1, c2)
	if a.Classify(plane) != Spanning {
		return []Polygon{a}
	}

	accepted := false
	before, after := partition(a.points, plane, func(p1, p2 math3d.Vec3, da, db float64) math3d.Vec3 {
		hit, t, ok := math3d.IntersectLine(p1, p2.Sub(p1), c0, c1, c2)
		if !ok || t <= 0 || t >= 1 {
			// rounding pushed the hit outside the edge; fall back to the
			// distance ratio which is bounded by construction
			hit = p1.Lerp(p2, da/(da-db))
		}
		if clip.ContainsPoint(hit) {
			accepted = true
		}
		return hit
	})
	if !accepted {
		return []Polygon{a}
	}
	return []Polygon{a.derive(".before", before), a.derive(".after", after)}
}

// partition walks the ring once, sending each vertex to the side it lies on
// and inserting a crossing point on every edge with a strict sign change.
// Vertices on the plane go to both rings.
func partition(
	ring []math3d.Vec3,
	plane math3d.Plane,
	cross func(a, b math3d.Vec3, da, db float64) math3d.Vec3,
) (before, after []math3d.Vec3) {
	count := len(ring)
	dist := make([]float64, count)
	for i, v := range ring {
		dist[i] = plane.SignedDistance(v)
	}

	for i := range count {
		j := (i + 1) % count
		a, da := ring[i], dist[i]
		b, db := ring[j], dist[j]

		switch {
		case da > PlaneEpsilon:
			before = append(before, a)
		case da < -PlaneEpsilon:
			after = append(after, a)
		default:
			before = append(before, a)
			after = append(after, a)
		}

		if (da > PlaneEpsilon && db < -PlaneEpsilon) || (da < -PlaneEpsilon && db > PlaneEpsilon) {
			hit := cross(a, b, da, db)
			before = append(before, hit)
			after = append(after, hit)
		}
	}
	return before, after
}

// Triangulate splits the polygon into triangles by ear clipping. An ear is
// cut when the midpoint of the chord skipping a vertex lies inside the
// remaining ring. If a full pass finds no ear the rest is fanned out from
// its first vertex.
func (p Polygon) Triangulate() []Polygon {
	if len(p.points) < 3 {
		return nil
	}
	ring := slices.Clone(p.points)
	tris := make([]Polygon, 0, len(ring)-2)
	emit := func(a, b, c math3d.Vec3) {
		tris = append(tris, p.derive(fmt.Sprintf(".%d", len(tris)), []math3d.Vec3{a, b, c}))
	}

	for len(ring) > 3 {
		found := false
		for i := range ring {
			prev := ring[i]
			skip := (i + 1) % len(ring)
			next := ring[(i+2)%len(ring)]
			mid := prev.Lerp(next, 0.5)

			rest := slices.Delete(slices.Clone(ring), skip, skip+1)
			if !containsPoint(rest, p.normal, mid) {
				continue
			}
			emit(prev, ring[skip], next)
			ring = rest
			found = true
			break
		}
		if !found {
			for i := 1; i+1 < len(ring); i++ {
				emit(ring[0], ring[i], ring[i+1])
			}
			return tris
		}
	}
	emit(ring[0], ring[1], ring[2])
	return tris
}

// Project maps every vertex through projector and drops the ones that could
// not be projected. A nil projector drops the z coordinate.
func (p Polygon) Project(projector Projector) Polygon2D {
	points := make([]math3d.Vec2, 0, len(p.points))
	for _, v := range p.points {
		if projector != nil {
			v = projector.ProjectPoint(v)
		}
		pt := math3d.V2(v.X, v.Y)
		if pt.IsNaN() {
			continue
		}
		points = append(points, pt)
	}
	q := NewPolygon2D(p.Color, points...)
	q.ID = p.ID
	return q
}
