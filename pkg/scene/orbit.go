package scene

import (
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/taigrr/painter/pkg/math3d"
	"github.com/taigrr/painter/pkg/render"
)

// Axis tracks one orbit angle and its angular velocity. The velocity decays
// toward zero through a critically damped spring.
type Axis struct {
	Position float64 // degrees
	Velocity float64 // degrees per frame

	spring harmonica.Spring
	accel  float64
}

// NewAxis creates an axis stepped at fps frames per second.
func NewAxis(fps int) Axis {
	return Axis{
		// frequency 4 is a moderate decay, damping 1 never overshoots
		spring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update advances the axis by one frame.
func (a *Axis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.accel = a.spring.Update(a.Velocity, a.accel, 0)
}

// Moving reports whether the axis still has noticeable velocity.
func (a *Axis) Moving() bool {
	return math.Abs(a.Velocity) > 1e-3
}

// Orbit moves a camera around a target on a sphere, with spring-damped
// pitch and yaw.
type Orbit struct {
	Target   math3d.Vec3
	Distance float64
	MinDist  float64
	MaxDist  float64

	Pitch, Yaw Axis

	fps int
}

// maxOrbitPitch stays short of the pole, where the view basis flips.
const maxOrbitPitch = 89.0

// NewOrbit creates an orbit around target at the given distance.
func NewOrbit(target math3d.Vec3, distance float64, fps int) *Orbit {
	return &Orbit{
		Target:   target,
		Distance: distance,
		MinDist:  1,
		MaxDist:  100,
		Pitch:    NewAxis(fps),
		Yaw:      NewAxis(fps),
		fps:      fps,
	}
}

// Impulse adds angular velocity in degrees per frame.
func (o *Orbit) Impulse(pitch, yaw float64) {
	o.Pitch.Velocity += pitch
	o.Yaw.Velocity += yaw
}

// Zoom changes the distance to the target by delta, within the limits.
func (o *Orbit) Zoom(delta float64) {
	o.Distance = min(max(o.Distance+delta, o.MinDist), o.MaxDist)
}

// Update advances both axes by one frame.
func (o *Orbit) Update() {
	o.Pitch.Update()
	o.Yaw.Update()
	o.Pitch.Position = min(max(o.Pitch.Position, -maxOrbitPitch), maxOrbitPitch)
}

// Moving reports whether either axis is still in motion.
func (o *Orbit) Moving() bool {
	return o.Pitch.Moving() || o.Yaw.Moving()
}

// Reset stops the orbit and returns both angles to zero.
func (o *Orbit) Reset() {
	o.Pitch = NewAxis(o.fps)
	o.Yaw = NewAxis(o.fps)
}

// Apply places cam on the orbit sphere looking at the target.
func (o *Orbit) Apply(cam *render.Camera) {
	cam.SetDirectionFromAngles(o.Pitch.Position, o.Yaw.Position)
	cam.SetPosition(o.Target.Sub(cam.Direction().Scale(o.Distance)))
}
