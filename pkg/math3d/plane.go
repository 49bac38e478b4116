package math3d

import "math"

// ParallelEpsilon is the smallest |n·d| for which a line is considered to
// cross a plane rather than run parallel to it.
const ParallelEpsilon = 1e-6

// Plane represents a plane in 3D space using the equation: Ax + By + Cz + D = 0
// where (A, B, C) is the normal and D is the distance from origin.
type Plane struct {
	Normal Vec3
	D      float64
}

// PlaneFromPoints returns the plane through v0, v1 and v2 with normal
// (v1-v0) × (v2-v0). The normal is not normalized.
func PlaneFromPoints(v0, v1, v2 Vec3) Plane {
	n := v1.Sub(v0).Cross(v2.Sub(v0))
	return Plane{Normal: n, D: -n.Dot(v0)}
}

// PlaneFromNormal returns the plane with normal n passing through p.
func PlaneFromNormal(n, p Vec3) Plane {
	return Plane{Normal: n, D: -n.Dot(p)}
}

// Normalize normalizes the plane equation so the normal has unit length.
func (p *Plane) Normalize() {
	l := p.Normal.Len()
	if l == 0 {
		return
	}
	p.Normal = p.Normal.Scale(1.0 / l)
	p.D /= l
}

// SignedDistance returns the signed distance from the plane to a point,
// scaled by the normal's length.
// Positive = in front (same side as normal), negative = behind.
func (p Plane) SignedDistance(point Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// IntersectLine intersects the infinite line point + t*direction with the
// plane through v0, v1 and v2. It returns the intersection, the line
// parameter t and whether the line crosses the plane at all; a line
// parallel to the plane reports ok == false. Negative t is accepted.
func IntersectLine(point, direction, v0, v1, v2 Vec3) (hit Vec3, t float64, ok bool) {
	n := v1.Sub(v0).Cross(v2.Sub(v0))
	denom := n.Dot(direction)
	if math.Abs(denom) < ParallelEpsilon || math.IsNaN(denom) {
		return Vec3{}, 0, false
	}
	t = n.Dot(v0.Sub(point)) / denom
	return point.Add(direction.Scale(t)), t, true
}

// IntersectRay is IntersectLine restricted to the ray starting at origin:
// hits behind the origin (t < 0) are reported as no intersection.
func IntersectRay(origin, direction, v0, v1, v2 Vec3) (Vec3, bool) {
	hit, t, ok := IntersectLine(origin, direction, v0, v1, v2)
	if !ok || t < 0 {
		return Vec3{}, false
	}
	return hit, true
}
