// Package scene turns a camera and a list of models into an ordered sequence
// of 2D polygons once per frame, and hands that sequence to a backend.
//
// The pipeline for a frame is: place every model in the world, optionally
// cull and shade its faces, move them into view space, optionally clip them
// against the near plane, build a fresh BSP tree, walk it back to front and
// project each polygon.
package scene

import (
	"context"
	"image/color"
	"log/slog"
	"math"

	"github.com/taigrr/painter/pkg/bsp"
	"github.com/taigrr/painter/pkg/geom"
	"github.com/taigrr/painter/pkg/math3d"
	"github.com/taigrr/painter/pkg/models"
	"github.com/taigrr/painter/pkg/render"
)

// Traversal selects the view rule used to walk the tree.
type Traversal int

const (
	// TraverseView uses the fixed view vector (0, 0, -1) at every node.
	TraverseView Traversal = iota
	// TraverseEye uses the direction from each node toward the eye, which is
	// exact for perspective cameras.
	TraverseEye
)

func (t Traversal) String() string {
	if t == TraverseEye {
		return "eye"
	}
	return "view"
}

// Options control the optional stages of the frame pipeline. The zero value
// is the plain pipeline: no culling, no lighting, no near clipping, first
// polygon as root and infinite-plane splits.
type Options struct {
	Split     bsp.SplitMode
	Nearest   bool // pick the polygon nearest the eye as each node's root
	Traversal Traversal

	Cull     bool // drop models and faces outside the view frustum
	ClipNear bool // cut faces at the near plane instead of losing vertices

	Lighting bool
	LightDir math3d.Vec3 // toward the light, world space
}

// DefaultLight is the light direction used when Options.LightDir is zero.
var DefaultLight = math3d.V3(0.5, 1, -0.8).Normalize()

// Stats describes the last frame.
type Stats struct {
	Models   int // models considered
	Faces    int // faces produced by those models
	Culled   int // faces dropped by frustum culling
	Clipped  int // faces dropped or cut by the near plane
	Nodes    int
	Depth    int
	Splits   int
	Polygons int // polygons and fragments in the tree
	Drawable int // projected polygons with at least three points
}

// Scene holds everything needed to draw a frame.
type Scene struct {
	Camera  *render.Camera
	Models  []*models.Model
	Options Options

	Background color.RGBA
	Stroke     color.Color // outline color, nil for none

	Logger *slog.Logger

	stats Stats
	dirty bool
}

// New creates a scene viewed through camera. The scene watches the camera
// and reports Dirty after every camera change.
func New(camera *render.Camera, ms ...*models.Model) *Scene {
	s := &Scene{
		Camera:     camera,
		Models:     ms,
		Background: render.ColorBackground,
		Stroke:     render.ColorBlack,
		dirty:      true,
	}
	camera.OnChange(func(*render.Camera) { s.dirty = true })
	return s
}

// Dirty reports whether the camera or the scene changed since the last
// Render.
func (s *Scene) Dirty() bool {
	return s.dirty
}

// Invalidate marks the scene for redraw, e.g. after models were moved.
func (s *Scene) Invalidate() {
	s.dirty = true
}

// Stats returns the statistics of the last frame.
func (s *Scene) Stats() Stats {
	return s.stats
}

func (s *Scene) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// colorOf returns the color of the i-th model, falling back to the palette.
func colorOf(m *models.Model, i int) color.RGBA {
	if m.Color != nil {
		return *m.Color
	}
	return render.Palette(i)
}

// ViewPolygons returns the faces of every model in view space, after the
// culling, lighting and near clipping stages.
func (s *Scene) ViewPolygons() []geom.Polygon {
	s.stats = Stats{}
	return s.collect(&s.stats)
}

func (s *Scene) collect(st *Stats) []geom.Polygon {
	view := s.Camera.ViewMatrix()
	var frustum render.Frustum
	if s.Options.Cull {
		frustum = s.Camera.Frustum()
	}
	light := s.Options.LightDir
	if light.LenSq() == 0 {
		light = DefaultLight
	}
	light = light.Normalize()

	var nearPlane math3d.Plane
	if s.Options.ClipNear {
		near, _ := s.Camera.ClipPlanes()
		nearPlane = math3d.PlaneFromNormal(math3d.V3(0, 0, 1), math3d.V3(0, 0, near))
	}

	var out []geom.Polygon
	for i, m := range s.Models {
		st.Models++
		polys := m.Polygons()
		st.Faces += len(polys)

		if s.Options.Cull {
			box := render.NewAABB(m.Bounds()).Transform(m.Matrix())
			if !frustum.IntersectAABB(box) {
				st.Culled += len(polys)
				continue
			}
		}

		c := colorOf(m, i)
		for _, p := range polys {
			if p.Degenerate() {
				continue
			}
			if s.Options.Cull && !frustum.IntersectsSphere(p.Center(), radius(p)) {
				st.Culled++
				continue
			}

			p.Color = c
			if s.Options.Lighting {
				p.Color = render.Shade(c, lightIntensity(p.Normal(), light))
			}

			vp := p.Transform(view)
			if s.Options.ClipNear {
				var ok bool
				if vp, ok = clipNear(vp, nearPlane); !ok {
					st.Clipped++
					continue
				}
				if vp.ID != p.ID {
					st.Clipped++
				}
			}
			out = append(out, vp)
		}
	}
	return out
}

// lightIntensity is ambient plus diffuse: 0.3 + 0.7 * max(0, n·l).
func lightIntensity(normal, light math3d.Vec3) float64 {
	return 0.3 + 0.7*max(0, normal.Dot(light))
}

// radius returns the largest distance from the polygon's center to a vertex.
func radius(p geom.Polygon) float64 {
	var r float64
	for _, v := range p.Points() {
		r = max(r, v.Distance(p.Center()))
	}
	return r
}

// clipNear keeps the part of a view-space polygon in front of the near
// plane. ok is false when nothing is left.
func clipNear(p geom.Polygon, near math3d.Plane) (geom.Polygon, bool) {
	switch p.Classify(near) {
	case geom.Back:
		return geom.Polygon{}, false
	case geom.Spanning:
		return geom.SplitByPlane(p, near)[0], true
	default:
		return p, true
	}
}

// Order builds the BSP tree over view-space polygons and returns them back
// to front.
func (s *Scene) Order(polys []geom.Polygon) []geom.Polygon {
	opts := []bsp.Option{bsp.WithSplit(s.Options.Split)}
	if s.Options.Nearest {
		opts = append(opts, bsp.WithRoot(bsp.Nearest(math3d.Zero3())))
	}
	tree := bsp.Build(polys, opts...)

	s.stats.Nodes = tree.Nodes()
	s.stats.Depth = tree.Depth()
	s.stats.Splits = tree.Splits()
	s.stats.Polygons = tree.Len()

	ordered := make([]geom.Polygon, 0, tree.Len())
	visit := func(p geom.Polygon) { ordered = append(ordered, p) }
	if s.Options.Traversal == TraverseEye {
		tree.TraverseFrom(math3d.Zero3(), visit)
	} else {
		tree.Traverse(math3d.V3(0, 0, -1), visit)
	}
	return ordered
}

// Frame computes the ordered, projected polygons for the current camera.
func (s *Scene) Frame() []geom.Polygon2D {
	ordered := s.Order(s.ViewPolygons())

	out := make([]geom.Polygon2D, 0, len(ordered))
	for _, p := range ordered {
		q := p.Project(s.Camera)
		if q.Drawable() {
			s.stats.Drawable++
		}
		out = append(out, q)
	}

	log := s.logger()
	log.Debug("frame",
		"models", s.stats.Models,
		"faces", s.stats.Faces,
		"culled", s.stats.Culled,
		"clipped", s.stats.Clipped,
		"nodes", s.stats.Nodes,
		"depth", s.stats.Depth,
		"splits", s.stats.Splits,
		"drawable", s.stats.Drawable,
	)
	if log.Enabled(context.Background(), slog.LevelDebug) {
		ids := make([]string, len(ordered))
		for i, p := range ordered {
			ids[i] = p.ID
		}
		log.Debug("order", "ids", ids)
	}
	return out
}

// fit matches the camera's aspect ratio to the backend viewport.
func (s *Scene) fit(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if aspect := float64(width) / float64(height); math.Abs(aspect-s.Camera.AspectRatio()) > 1e-9 {
		s.Camera.SetViewport(width, height)
	}
}

// Render paints a frame on b and returns the number of polygons drawn.
func (s *Scene) Render(b render.Backend) int {
	s.fit(b.Size())
	if bg, ok := b.(render.Backgrounder); ok {
		bg.SetBackground(s.Background)
	}

	drawn := render.Paint(b, s.Stroke, s.Frame())
	s.dirty = false
	return drawn
}

// RenderDepth draws the same view-space polygons with the z-buffer
// rasterizer instead of the BSP order. It is the reference the painter's
// output is checked against.
func (s *Scene) RenderDepth(fb *render.Framebuffer) render.RasterStats {
	s.fit(fb.Size())
	fb.SetBackground(s.Background)
	fb.Clear()

	r := render.NewRasterizer(s.Camera, fb)
	for _, p := range s.ViewPolygons() {
		r.DrawPolygon(p)
	}
	s.dirty = false
	return r.Stats
}

// Pick returns the nearest view-space polygon under a point given in
// normalized device coordinates.
func (s *Scene) Pick(ndc math3d.Vec2) (geom.Polygon, bool) {
	half := math.Tan(s.Camera.FOV() / 2)
	dir := math3d.V3(ndc.X*half*s.Camera.AspectRatio(), ndc.Y*half, 1)

	var (
		best  geom.Polygon
		found bool
		depth = math.Inf(1)
	)
	for _, p := range s.collect(&Stats{}) {
		pts := p.Points()
		hit, ok := math3d.IntersectRay(math3d.Zero3(), dir, pts[0], pts[1], pts[2])
		if !ok || hit.Z >= depth || !p.ContainsPoint(hit) {
			continue
		}
		best, depth, found = p, hit.Z, true
	}
	return best, found
}
