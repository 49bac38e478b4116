package render

import (
	"math"
	"testing"

	"github.com/taigrr/painter/pkg/math3d"
)

func TestProjectPointRoundTrip(t *testing.T) {
	cam := NewCamera()
	cam.SetPosition(math3d.V3(3, -2, 7))
	cam.SetDirection(math3d.V3(1, 0, 1))

	ahead := cam.Position().Add(cam.Direction().Scale(0.5))
	ndc := cam.ProjectPoint(cam.TransformPoint(ahead))
	if ndc.IsNaN() {
		t.Fatal("point ahead of the camera should project")
	}
	if math.Abs(ndc.X) > 1e-9 || math.Abs(ndc.Y) > 1e-9 {
		t.Errorf("point on the view axis = %v, want screen center", ndc)
	}
	if ndc.Z < -1 || ndc.Z > 1 {
		t.Errorf("depth = %v, want within [-1, 1]", ndc.Z)
	}

	behind := cam.Position().Sub(cam.Direction().Scale(0.5))
	if got := cam.ProjectPoint(cam.TransformPoint(behind)); !got.IsNaN() {
		t.Errorf("point behind the camera = %v, want NaN", got)
	}
}

func TestProjectPointRejects(t *testing.T) {
	cam := NewCamera()
	cam.SetClipPlanes(1, 10)

	tests := []struct {
		name    string
		point   math3d.Vec3
		visible bool
	}{
		{"center", math3d.V3(0, 0, 5), true},
		{"right of center", math3d.V3(1, 0, 5), true},
		{"behind", math3d.V3(0, 0, -5), false},
		{"before near plane", math3d.V3(0, 0, 0.5), false},
		{"beyond far plane", math3d.V3(0, 0, 20), false},
		{"outside left edge", math3d.V3(-20, 0, 5), false},
		{"outside top edge", math3d.V3(0, 20, 5), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := cam.ProjectPoint(tc.point)
			if got.IsNaN() == tc.visible {
				t.Errorf("ProjectPoint(%v) = %v, visible want %v", tc.point, got, tc.visible)
			}
		})
	}

	// +X is to the right and +Y is up on screen
	if p := cam.ProjectPoint(math3d.V3(1, 1, 5)); p.X <= 0 || p.Y <= 0 {
		t.Errorf("ProjectPoint((1, 1, 5)) = %v, want upper right quadrant", p)
	}
}

func TestTransformPoint(t *testing.T) {
	cam := NewCamera()
	cam.SetPosition(math3d.V3(0, 0, -10))

	got := cam.TransformPoint(math3d.Zero3())
	if !got.ApproxEqual(math3d.V3(0, 0, 10), 1e-9) {
		t.Errorf("origin in view space = %v, want (0, 0, 10)", got)
	}
}

func TestSetDirectionFromAngles(t *testing.T) {
	tests := []struct {
		name       string
		pitch, yaw float64
		wantPitch  float64
		want       math3d.Vec3
	}{
		{"straight ahead", 0, 0, 0, math3d.V3(0, 0, 1)},
		{"yaw right", 0, 90, 0, math3d.V3(1, 0, 0)},
		{"yaw back", 0, 180, 0, math3d.V3(0, 0, -1)},
		{"pitch up", 45, 0, 45, math3d.V3(0, math.Sqrt2/2, math.Sqrt2/2)},
		{"pitch clamped", 120, 0, 90, math3d.V3(0, 1, 0)},
		{"pitch clamped down", -100, 0, -90, math3d.V3(0, -1, 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cam := NewCamera()
			cam.SetDirectionFromAngles(tc.pitch, tc.yaw)

			if cam.Pitch() != tc.wantPitch {
				t.Errorf("pitch = %v, want %v", cam.Pitch(), tc.wantPitch)
			}
			if !cam.Direction().ApproxEqual(tc.want, 1e-9) {
				t.Errorf("direction = %v, want %v", cam.Direction(), tc.want)
			}
			for i, v := range cam.ViewMatrix() {
				if math.IsNaN(v) {
					t.Fatalf("view matrix element %d is NaN", i)
				}
			}
		})
	}
}

func TestSetDirectionKeepsAngles(t *testing.T) {
	cam := NewCamera()
	cam.SetDirection(math3d.V3(1, 0, 0))
	if math.Abs(cam.Yaw()-90) > 1e-9 || math.Abs(cam.Pitch()) > 1e-9 {
		t.Errorf("pitch, yaw = %v, %v, want 0, 90", cam.Pitch(), cam.Yaw())
	}

	cam.SetPitch(30)
	if math.Abs(cam.Yaw()-90) > 1e-9 {
		t.Errorf("SetPitch changed yaw to %v", cam.Yaw())
	}

	// zero directions are ignored
	before := cam.Direction()
	cam.SetDirection(math3d.Zero3())
	if cam.Direction() != before {
		t.Errorf("direction = %v after zero SetDirection, want %v", cam.Direction(), before)
	}
}

func TestMutatorsRecomputeEagerly(t *testing.T) {
	cam := NewCamera()
	view := cam.ViewMatrix()
	proj := cam.ProjectionMatrix()

	cam.SetPosition(math3d.V3(1, 2, 3))
	if cam.ViewMatrix() == view {
		t.Error("SetPosition did not update the view matrix")
	}

	cam.SetFOV(math.Pi / 2)
	if cam.ProjectionMatrix() == proj {
		t.Error("SetFOV did not update the projection matrix")
	}

	if cam.ViewProjectionMatrix() != cam.ProjectionMatrix().Mul(cam.ViewMatrix()) {
		t.Error("view-projection matrix is stale")
	}

	cam.SetViewport(200, 100)
	if cam.AspectRatio() != 2 {
		t.Errorf("aspect = %v, want 2", cam.AspectRatio())
	}
	cam.SetViewport(0, 100)
	if cam.AspectRatio() != 2 {
		t.Errorf("empty viewport changed aspect to %v", cam.AspectRatio())
	}
}

func TestOnChange(t *testing.T) {
	cam := NewCamera()

	var a, b int
	unsubA := cam.OnChange(func(*Camera) { a++ })
	cam.OnChange(func(c *Camera) {
		if c.Position() != math3d.V3(1, 0, 0) && b == 0 {
			t.Errorf("observer saw position %v before update", c.Position())
		}
		b++
	})

	cam.SetPosition(math3d.V3(1, 0, 0))
	cam.SetFOV(1)
	if a != 2 || b != 2 {
		t.Errorf("calls = %d, %d, want 2, 2", a, b)
	}

	unsubA()
	unsubA()
	cam.SetYaw(10)
	if a != 2 || b != 3 {
		t.Errorf("calls after unsubscribe = %d, %d, want 2, 3", a, b)
	}
}

func TestCameraMovement(t *testing.T) {
	cam := NewCamera()
	cam.SetDirectionFromAngles(0, 90)

	cam.MoveForward(2)
	if !cam.Position().ApproxEqual(math3d.V3(2, 0, 0), 1e-9) {
		t.Errorf("after MoveForward = %v, want (2, 0, 0)", cam.Position())
	}

	cam.MoveRight(1)
	if !cam.Position().ApproxEqual(math3d.V3(2, 0, -1), 1e-9) {
		t.Errorf("after MoveRight = %v, want (2, 0, -1)", cam.Position())
	}

	cam.MoveUp(3)
	if !cam.Position().ApproxEqual(math3d.V3(2, 3, -1), 1e-9) {
		t.Errorf("after MoveUp = %v, want (2, 3, -1)", cam.Position())
	}

	cam.Rotate(10, -90)
	if cam.Pitch() != 10 || cam.Yaw() != 0 {
		t.Errorf("after Rotate pitch, yaw = %v, %v, want 10, 0", cam.Pitch(), cam.Yaw())
	}
}
