package render

import (
	"math"

	"github.com/taigrr/painter/pkg/geom"
	"github.com/taigrr/painter/pkg/math3d"
)

// Rasterizer draws view-space polygons with a per-pixel depth test. It needs
// no ordering at all, which makes it the reference the painter's output is
// checked against.
type Rasterizer struct {
	camera  *Camera
	fb      *Framebuffer
	zbuffer []float64 // Depth buffer (1D array, row-major)
	Stats   RasterStats
}

// RasterStats counts rasterizer work since the last ClearDepth.
type RasterStats struct {
	Triangles int // Triangles submitted
	Rejected  int // Triangles dropped because a vertex is behind the camera
	Pixels    int // Pixels that passed the depth test
}

// NewRasterizer creates a new rasterizer.
func NewRasterizer(camera *Camera, fb *Framebuffer) *Rasterizer {
	r := &Rasterizer{
		camera: camera,
		fb:     fb,
	}
	r.Resize()
	return r
}

// Resize resizes the rasterizer's buffer to match the framebuffer.
func (r *Rasterizer) Resize() {
	r.zbuffer = make([]float64, r.fb.Width*r.fb.Height)
	r.ClearDepth()
}

// ClearDepth clears the Z-buffer (call before each frame).
func (r *Rasterizer) ClearDepth() {
	r.Stats = RasterStats{}
	// Use copy-doubling for faster clearing
	n := len(r.zbuffer)
	if n == 0 {
		return
	}
	r.zbuffer[0] = math.MaxFloat64
	for i := 1; i < n; i *= 2 {
		copy(r.zbuffer[i:], r.zbuffer[:i])
	}
}

func (r *Rasterizer) depthAt(x, y int) float64 {
	return r.zbuffer[y*r.fb.Width+x]
}

func (r *Rasterizer) setDepth(x, y int, z float64) {
	r.zbuffer[y*r.fb.Width+x] = z
}

// screenVertex holds a vertex transformed to screen space.
type screenVertex struct {
	X, Y float64 // Screen coordinates
	Z    float64 // Depth (for Z-buffer)
}

// DrawPolygon triangulates a view-space polygon and rasterizes it in its own
// flat color.
func (r *Rasterizer) DrawPolygon(p geom.Polygon) {
	for _, tri := range p.Triangulate() {
		pts := tri.Points()
		r.DrawTriangle(pts[0], pts[1], pts[2], p.Color)
	}
}

// DrawTriangle rasterizes a single view-space triangle. Both windings are
// drawn.
func (r *Rasterizer) DrawTriangle(v0, v1, v2 math3d.Vec3, c Color) {
	r.Stats.Triangles++

	proj := r.camera.ProjectionMatrix()
	var sv [3]screenVertex
	for i, v := range [3]math3d.Vec3{v0, v1, v2} {
		clipPos := proj.MulVec4(math3d.V4FromV3(v, 1))
		// Without polygon clipping a vertex behind the eye has no
		// meaningful screen position.
		if clipPos.W <= 0 {
			r.Stats.Rejected++
			return
		}
		ndc := clipPos.PerspectiveDivide()
		px := ToPixels(math3d.V2(ndc.X, ndc.Y), r.fb.Width, r.fb.Height)
		sv[i] = screenVertex{X: px.X, Y: px.Y, Z: ndc.Z}
	}

	// Find bounding box
	minX := int(math.Max(0, math.Floor(min3(sv[0].X, sv[1].X, sv[2].X))))
	maxX := int(math.Min(float64(r.fb.Width-1), math.Ceil(max3(sv[0].X, sv[1].X, sv[2].X))))
	minY := int(math.Max(0, math.Floor(min3(sv[0].Y, sv[1].Y, sv[2].Y))))
	maxY := int(math.Min(float64(r.fb.Height-1), math.Ceil(max3(sv[0].Y, sv[1].Y, sv[2].Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5

			bc := barycentric(
				sv[0].X, sv[0].Y,
				sv[1].X, sv[1].Y,
				sv[2].X, sv[2].Y,
				px, py,
			)

			// Degenerate triangles give NaN and fail this test too
			if !(bc.X >= 0 && bc.Y >= 0 && bc.Z >= 0) {
				continue
			}

			// NDC depth is affine in screen space
			z := bc.X*sv[0].Z + bc.Y*sv[1].Z + bc.Z*sv[2].Z
			if z < -1 || z > 1 || z >= r.depthAt(x, y) {
				continue
			}

			r.setDepth(x, y, z)
			r.fb.SetPixel(x, y, c)
			r.Stats.Pixels++
		}
	}
}

// barycentric calculates barycentric coordinates for point (px, py) in triangle.
func barycentric(x0, y0, x1, y1, x2, y2, px, py float64) math3d.Vec3 {
	v0x, v0y := x2-x0, y2-y0
	v1x, v1y := x1-x0, y1-y0
	v2x, v2y := px-x0, py-y0

	dot00 := v0x*v0x + v0y*v0y
	dot01 := v0x*v1x + v0y*v1y
	dot02 := v0x*v2x + v0y*v2y
	dot11 := v1x*v1x + v1y*v1y
	dot12 := v1x*v2x + v1y*v2y

	invDenom := 1.0 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	return math3d.V3(1-u-v, v, u)
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}
