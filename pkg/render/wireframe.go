package render

import (
	"image/color"

	"github.com/taigrr/painter/pkg/math3d"
)

// Wireframe draws polygon outlines without filling them. It implements
// Backend on top of a Framebuffer, which makes BSP splits visible.
type Wireframe struct {
	fb     *Framebuffer
	stroke color.RGBA
}

// NewWireframe creates a new wireframe renderer.
func NewWireframe(fb *Framebuffer) *Wireframe {
	return &Wireframe{
		fb:     fb,
		stroke: ColorWhite,
	}
}

// Size implements Backend.
func (w *Wireframe) Size() (width, height int) {
	return w.fb.Size()
}

// Clear implements Backend.
func (w *Wireframe) Clear() {
	w.fb.Clear()
}

// SetBackground implements Backgrounder for the underlying framebuffer.
func (w *Wireframe) SetBackground(c color.Color) {
	w.fb.SetBackground(c)
}

// SetFillStyle implements Backend. Outlines are drawn in the fill color so
// polygons stay distinguishable.
func (w *Wireframe) SetFillStyle(c color.Color) {
	if c == nil {
		return
	}
	w.stroke = color.RGBAModel.Convert(c).(color.RGBA)
}

// SetStrokeStyle implements Backend. It is ignored.
func (w *Wireframe) SetStrokeStyle(color.Color) {}

// FillPolygon implements Backend by drawing the outline only.
func (w *Wireframe) FillPolygon(points []math3d.Vec2) {
	if len(points) < 2 {
		return
	}
	w.fb.DrawOutline(points, w.stroke)
}

// DrawLine3D draws a world-space line seen through camera. The line is
// skipped unless both endpoints project.
func (w *Wireframe) DrawLine3D(camera *Camera, p1, p2 math3d.Vec3, c color.RGBA) {
	a := camera.ProjectPoint(camera.TransformPoint(p1))
	b := camera.ProjectPoint(camera.TransformPoint(p2))
	if a.IsNaN() || b.IsNaN() {
		return
	}
	pa := ToPixels(math3d.V2(a.X, a.Y), w.fb.Width, w.fb.Height)
	pb := ToPixels(math3d.V2(b.X, b.Y), w.fb.Width, w.fb.Height)
	w.fb.DrawLine(round(pa.X), round(pa.Y), round(pb.X), round(pb.Y), c)
}

// DrawAxes draws the coordinate axes at the origin.
func (w *Wireframe) DrawAxes(camera *Camera, length float64) {
	origin := math3d.Zero3()
	w.DrawLine3D(camera, origin, math3d.V3(length, 0, 0), RGB(255, 0, 0)) // X axis
	w.DrawLine3D(camera, origin, math3d.V3(0, length, 0), RGB(0, 255, 0)) // Y axis
	w.DrawLine3D(camera, origin, math3d.V3(0, 0, length), RGB(0, 0, 255)) // Z axis
}
