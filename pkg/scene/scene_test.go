package scene

import (
	"bytes"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taigrr/painter/pkg/geom"
	"github.com/taigrr/painter/pkg/math3d"
	"github.com/taigrr/painter/pkg/models"
	"github.com/taigrr/painter/pkg/render"
)

// panel is a single square facing the camera (normal -z) at depth z.
func panel(id string, x, z, half float64) *models.Model {
	return models.NewModel(id, []math3d.Vec3{
		math3d.V3(x-half, -half, z),
		math3d.V3(x-half, half, z),
		math3d.V3(x+half, half, z),
		math3d.V3(x+half, -half, z),
	}, [][]int{{0, 1, 2, 3}})
}

func ids2D(polys []geom.Polygon2D) []string {
	out := make([]string, len(polys))
	for i, p := range polys {
		out[i] = p.ID
	}
	return out
}

func TestFarBeforeNear(t *testing.T) {
	for _, tr := range []Traversal{TraverseView, TraverseEye} {
		for _, reversed := range []bool{false, true} {
			name := tr.String()
			if reversed {
				name += "/reversed"
			}
			t.Run(name, func(t *testing.T) {
				near, far := panel("near", 0, 3, 0.5), panel("far", 0.3, 6, 1)
				s := New(render.NewCamera(), near, far)
				if reversed {
					s.Models = []*models.Model{far, near}
				}
				s.Options.Traversal = tr

				assert.Equal(t, []string{"#far.0", "#near.0"}, ids2D(s.Frame()))
			})
		}
	}
}

func TestFramePaletteAndStats(t *testing.T) {
	cube := models.Cube("box", 2, 2, 2)
	cube.Position = math3d.V3(0, 0, 6)
	tinted := panel("tinted", 0, 10, 3)
	tint := render.RGB(1, 2, 3)
	tinted.Color = &tint

	s := New(render.NewCamera(), cube, tinted)
	polys := s.Frame()

	st := s.Stats()
	assert.Equal(t, 2, st.Models)
	assert.Equal(t, 7, st.Faces)
	assert.Equal(t, 7, st.Polygons)
	assert.Equal(t, 7, len(polys))
	assert.Equal(t, 7, st.Nodes)
	assert.Zero(t, st.Splits)
	assert.Positive(t, st.Depth)

	for _, p := range polys {
		switch {
		case strings.HasPrefix(p.ID, "#box"):
			assert.Equal(t, render.Palette(0), p.Color, p.ID)
		case strings.HasPrefix(p.ID, "#tinted"):
			assert.Equal(t, tint, p.Color, p.ID)
		}
	}
	// the backdrop is farthest away and painted first
	assert.Equal(t, "#tinted.0", polys[0].ID)
	// the face nearest the camera is painted last
	assert.Equal(t, "#box.0", polys[len(polys)-1].ID)
}

func TestLighting(t *testing.T) {
	front := panel("front", 0, 5, 1) // normal -z
	back := models.NewModel("back", []math3d.Vec3{
		math3d.V3(-1, -1, 8), math3d.V3(1, -1, 8), math3d.V3(1, 1, 8), math3d.V3(-1, 1, 8),
	}, [][]int{{0, 1, 2, 3}}) // normal +z
	white := render.RGB(200, 200, 200)
	front.Color, back.Color = &white, &white

	s := New(render.NewCamera(), front, back)
	s.Options.Lighting = true
	s.Options.LightDir = math3d.V3(0, 0, -1)

	colors := map[string]render.Color{}
	for _, p := range s.ViewPolygons() {
		colors[p.ID] = p.Color
	}
	assert.Equal(t, white, colors["#front.0"])
	assert.Equal(t, render.Shade(white, 0.3), colors["#back.0"])

	assert.InDelta(t, 1.0, lightIntensity(math3d.V3(0, 1, 0), math3d.V3(0, 1, 0)), 1e-12)
	assert.InDelta(t, 0.65, lightIntensity(math3d.V3(0, 1, 0), math3d.V3(0, 0.5, math.Sqrt(3)/2)), 1e-12)
}

func TestCull(t *testing.T) {
	visible := models.Cube("visible", 1, 1, 1)
	visible.Position = math3d.V3(0, 0, 5)
	hidden := models.Cube("hidden", 1, 1, 1)
	hidden.Position = math3d.V3(100, 0, 5)
	behind := models.Cube("behind", 1, 1, 1)
	behind.Position = math3d.V3(0, 0, -5)

	s := New(render.NewCamera(), visible, hidden, behind)
	assert.Len(t, s.ViewPolygons(), 18)

	s.Options.Cull = true
	polys := s.ViewPolygons()
	assert.Len(t, polys, 6)
	assert.Equal(t, 12, s.Stats().Culled)
	for _, p := range polys {
		assert.True(t, strings.HasPrefix(p.ID, "#visible"), p.ID)
	}
}

func TestClipNear(t *testing.T) {
	floor := models.NewModel("floor", []math3d.Vec3{
		math3d.V3(-1, -1, -5), math3d.V3(1, -1, -5), math3d.V3(1, -1, 5), math3d.V3(-1, -1, 5),
	}, [][]int{{0, 1, 2, 3}})
	behind := panel("behind", 0, -2, 1)

	s := New(render.NewCamera(), floor, behind)
	near, _ := s.Camera.ClipPlanes()

	require.Len(t, s.ViewPolygons(), 2)

	s.Options.ClipNear = true
	polys := s.ViewPolygons()
	require.Len(t, polys, 1)
	assert.Equal(t, "#floor.0.before", polys[0].ID)
	for _, v := range polys[0].Points() {
		assert.GreaterOrEqual(t, v.Z, near-1e-9)
	}
	assert.Equal(t, 2, s.Stats().Clipped)
}

func TestPick(t *testing.T) {
	s := New(render.NewCamera(), panel("far", 0, 5, 1), panel("near", 0, 3, 0.5))

	p, ok := s.Pick(math3d.V2(0, 0))
	require.True(t, ok)
	assert.Equal(t, "#near.0", p.ID)

	p, ok = s.Pick(math3d.V2(0.329, 0))
	require.True(t, ok)
	assert.Equal(t, "#far.0", p.ID)

	_, ok = s.Pick(math3d.V2(0.9, 0.9))
	assert.False(t, ok)
}

func TestDirty(t *testing.T) {
	s := New(render.NewCamera(), panel("p", 0, 5, 1))
	assert.True(t, s.Dirty())

	s.Render(render.NewSVG(40, 40))
	assert.False(t, s.Dirty())

	s.Camera.MoveForward(1)
	assert.True(t, s.Dirty())

	s.Render(render.NewSVG(40, 40))
	s.Invalidate()
	assert.True(t, s.Dirty())
}

func TestRenderFitsViewport(t *testing.T) {
	s := New(render.NewCamera(), panel("p", 0, 5, 1))
	drawn := s.Render(render.NewSVG(200, 100))
	assert.Equal(t, 1, drawn)
	assert.Equal(t, 2.0, s.Camera.AspectRatio())
	assert.Equal(t, drawn, s.Stats().Drawable)
}

func TestDebugOrderLog(t *testing.T) {
	var buf bytes.Buffer
	s := New(render.NewCamera(), panel("near", 0, 3, 0.5), panel("far", 0, 6, 1))
	s.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s.Frame()
	out := buf.String()
	assert.Contains(t, out, "msg=frame")
	assert.Contains(t, out, "msg=order")
	assert.Less(t, strings.Index(out, "#far.0"), strings.Index(out, "#near.0"))

	buf.Reset()
	s.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	s.Frame()
	assert.Empty(t, buf.String())
}

// uniform reports whether the 3x3 neighborhood of (x, y) has one color.
func uniform(fb *render.Framebuffer, x, y int) bool {
	c := fb.GetPixel(x, y)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if fb.GetPixel(x+dx, y+dy) != c {
				return false
			}
		}
	}
	return true
}

func TestPainterMatchesDepthBuffer(t *testing.T) {
	a := models.Cube("a", 2, 2, 2)
	a.Angle = math.Pi / 6
	b := models.Cube("b", 2, 2, 2)
	b.Position = math3d.V3(1.5, 0.5, 3)
	c := models.Cube("c", 1, 1, 1)
	c.Position = math3d.V3(-1.2, -0.3, -1.5)
	c.Axis = math3d.V3(1, 1, 0)
	c.Angle = math.Pi / 4
	wall := models.NewModel("wall", []math3d.Vec3{
		math3d.V3(-3, -2, -1), math3d.V3(-3, 2, -1), math3d.V3(3, 2, 4), math3d.V3(3, -2, 4),
	}, [][]int{{0, 1, 2, 3}})

	cam := render.NewCamera()
	cam.SetPosition(math3d.V3(0, 0, -8))

	s := New(cam, a, b, c, wall)
	s.Stroke = nil
	s.Options.Lighting = true
	s.Options.Traversal = TraverseEye

	const w, h = 128, 96
	painted := render.NewFramebuffer(w, h)
	s.Render(painted)
	require.Positive(t, s.Stats().Splits, "the wall should cut through the cubes")

	depth := render.NewFramebuffer(w, h)
	s.RenderDepth(depth)

	var checked, mismatched int
	colors := map[render.Color]bool{}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			colors[depth.GetPixel(x, y)] = true
			// edges and split seams are anti-aliased in the painted image
			if !uniform(depth, x, y) || !uniform(painted, x, y) {
				continue
			}
			checked++
			if painted.GetPixel(x, y) != depth.GetPixel(x, y) {
				mismatched++
			}
		}
	}

	require.Greater(t, len(colors), 5, "scene should show several faces")
	require.Greater(t, checked, w*h/3)
	assert.LessOrEqual(t, mismatched, checked/100, "%d of %d interior pixels differ", mismatched, checked)
}

func BenchmarkFrame(b *testing.B) {
	var ms []*models.Model
	for i := range 8 {
		m := models.Cube("c", 1, 1, 1)
		m.Position = math3d.V3(float64(i%4)-1.5, float64(i/4)-0.5, 4+float64(i))
		m.Angle = float64(i) * 0.3
		ms = append(ms, m)
	}
	s := New(render.NewCamera(), ms...)
	s.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	for b.Loop() {
		_ = s.Frame()
	}
}
