package render

import (
	"math"

	"github.com/taigrr/painter/pkg/math3d"
)

// Camera represents a perspective viewer with a position and a view direction.
// View space has the camera at the origin looking down +Z with +Y up.
//
// Every mutator recomputes the cached matrices before returning and then
// notifies the observers registered with OnChange.
type Camera struct {
	position  math3d.Vec3
	direction math3d.Vec3

	// Orientation angles in degrees, kept in sync by SetDirectionFromAngles.
	pitch float64
	yaw   float64

	// Projection parameters
	fov    float64 // Vertical field of view in radians
	aspect float64 // Width / Height
	near   float64
	far    float64

	viewMatrix     math3d.Mat4
	projMatrix     math3d.Mat4
	viewProjMatrix math3d.Mat4

	observers []observer
	nextID    int
}

type observer struct {
	id int
	fn func(*Camera)
}

// MaxPitch is the pitch limit in degrees.
const MaxPitch = 90.0

// NewCamera creates a camera at the origin looking down +Z.
func NewCamera() *Camera {
	c := &Camera{
		direction: math3d.V3(0, 0, 1),
		fov:       math.Pi / 3, // 60 degrees
		aspect:    1,
		near:      0.1,
		far:       1000,
	}
	c.recompute()
	return c
}

// OnChange registers fn to be called after every mutation. The returned
// function removes the registration.
func (c *Camera) OnChange(fn func(*Camera)) (unsubscribe func()) {
	c.nextID++
	id := c.nextID
	c.observers = append(c.observers, observer{id: id, fn: fn})
	return func() {
		for i, o := range c.observers {
			if o.id == id {
				c.observers = append(c.observers[:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

func (c *Camera) changed() {
	c.recompute()
	for _, o := range c.observers {
		o.fn(c)
	}
}

func (c *Camera) recompute() {
	c.viewMatrix = math3d.LookDirection(c.position, c.direction, math3d.Up())
	// LookDirection yields a +Z forward view space while Perspective expects
	// the viewer to look down -Z, so flip depth before projecting.
	c.projMatrix = math3d.Perspective(c.fov, c.aspect, c.near, c.far).Mul(math3d.Scale(math3d.V3(1, 1, -1)))
	c.viewProjMatrix = c.projMatrix.Mul(c.viewMatrix)
}

// Position returns the camera position in world space.
func (c *Camera) Position() math3d.Vec3 {
	return c.position
}

// Direction returns the unit view direction in world space.
func (c *Camera) Direction() math3d.Vec3 {
	return c.direction
}

// Pitch returns the pitch in degrees.
func (c *Camera) Pitch() float64 {
	return c.pitch
}

// Yaw returns the yaw in degrees.
func (c *Camera) Yaw() float64 {
	return c.yaw
}

// FOV returns the vertical field of view in radians.
func (c *Camera) FOV() float64 {
	return c.fov
}

// AspectRatio returns width / height.
func (c *Camera) AspectRatio() float64 {
	return c.aspect
}

// ClipPlanes returns the near and far clipping distances.
func (c *Camera) ClipPlanes() (near, far float64) {
	return c.near, c.far
}

// SetPosition sets the camera position.
func (c *Camera) SetPosition(pos math3d.Vec3) {
	c.position = pos
	c.changed()
}

// SetDirection sets the view direction. It is normalized; a zero vector is
// ignored.
func (c *Camera) SetDirection(dir math3d.Vec3) {
	if dir.LenSq() == 0 {
		return
	}
	c.direction = dir.Normalize()
	c.pitch = math.Asin(math.Max(-1, math.Min(1, c.direction.Y))) * 180 / math.Pi
	c.yaw = math.Atan2(c.direction.X, c.direction.Z) * 180 / math.Pi
	c.changed()
}

// SetDirectionFromAngles points the camera using pitch and yaw in degrees.
// Pitch is clamped to ±MaxPitch. Yaw 0 looks down +Z, yaw 90 down +X.
func (c *Camera) SetDirectionFromAngles(pitch, yaw float64) {
	c.pitch = math.Max(math.Min(pitch, MaxPitch), -MaxPitch)
	c.yaw = yaw

	p := c.pitch * math.Pi / 180
	y := c.yaw * math.Pi / 180
	c.direction = math3d.V3(
		math.Cos(p)*math.Sin(y),
		math.Sin(p),
		math.Cos(p)*math.Cos(y),
	)
	c.changed()
}

// SetPitch sets the pitch in degrees, keeping the yaw.
func (c *Camera) SetPitch(pitch float64) {
	c.SetDirectionFromAngles(pitch, c.yaw)
}

// SetYaw sets the yaw in degrees, keeping the pitch.
func (c *Camera) SetYaw(yaw float64) {
	c.SetDirectionFromAngles(c.pitch, yaw)
}

// SetFOV sets the vertical field of view (in radians).
func (c *Camera) SetFOV(fov float64) {
	c.fov = fov
	c.changed()
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	c.aspect = aspect
	c.changed()
}

// SetViewport sets the aspect ratio from a viewport size in pixels.
func (c *Camera) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.SetAspectRatio(float64(width) / float64(height))
}

// SetClipPlanes sets the near and far clipping planes.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.near = near
	c.far = far
	c.changed()
}

// Forward returns the forward direction vector.
func (c *Camera) Forward() math3d.Vec3 {
	return c.direction
}

// Right returns the right direction vector.
func (c *Camera) Right() math3d.Vec3 {
	return math3d.V3(c.viewMatrix[0], c.viewMatrix[4], c.viewMatrix[8])
}

// Up returns the up direction vector.
func (c *Camera) Up() math3d.Vec3 {
	return math3d.V3(c.viewMatrix[1], c.viewMatrix[5], c.viewMatrix[9])
}

// ViewMatrix returns the world to view space matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	return c.viewMatrix
}

// ProjectionMatrix returns the view to clip space matrix.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	return c.projMatrix
}

// ViewProjectionMatrix returns the combined view-projection matrix.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	return c.viewProjMatrix
}

// TransformPoint maps a world point into view space.
func (c *Camera) TransformPoint(p math3d.Vec3) math3d.Vec3 {
	return c.viewMatrix.MulVec3(p)
}

// ProjectPoint maps a view-space point to normalized device coordinates.
// Points behind the camera or outside the [-1, 1] cube on any axis come back
// as math3d.NaN3.
func (c *Camera) ProjectPoint(p math3d.Vec3) math3d.Vec3 {
	clip := c.projMatrix.MulVec4(math3d.V4FromV3(p, 1))
	if clip.W <= 0 {
		return math3d.NaN3()
	}
	ndc := clip.PerspectiveDivide()
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < -1 || ndc.Z > 1 {
		return math3d.NaN3()
	}
	return ndc
}

// MoveForward moves the camera forward (or backward if negative).
func (c *Camera) MoveForward(distance float64) {
	c.SetPosition(c.position.Add(c.Forward().Scale(distance)))
}

// MoveRight moves the camera right (or left if negative).
func (c *Camera) MoveRight(distance float64) {
	c.SetPosition(c.position.Add(c.Right().Scale(distance)))
}

// MoveUp moves the camera up (or down if negative).
func (c *Camera) MoveUp(distance float64) {
	c.SetPosition(c.position.Add(math3d.Up().Scale(distance)))
}

// Rotate turns the camera by the given angles in degrees.
func (c *Camera) Rotate(deltaPitch, deltaYaw float64) {
	c.SetDirectionFromAngles(c.pitch+deltaPitch, c.yaw+deltaYaw)
}

// LookAt makes the camera look at a target point.
func (c *Camera) LookAt(target math3d.Vec3) {
	c.SetDirection(target.Sub(c.position))
}

// Frustum returns the current view frustum in world space.
func (c *Camera) Frustum() Frustum {
	return NewFrustumFromMatrix(c.viewProjMatrix)
}
