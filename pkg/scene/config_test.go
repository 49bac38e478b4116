package scene

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taigrr/painter/pkg/bsp"
	"github.com/taigrr/painter/pkg/math3d"
	"github.com/taigrr/painter/pkg/render"
)

const sample = `
[camera]
position = [0, 2, -10]
direction = [0, 0, 1]
fov = 45
near = 0.5
far = 200

[render]
width = 320
height = 200
background = "#102030"
stroke = "none"
lighting = true
cull = true
clip_near = true
split = "footprint"
root = "nearest"
traversal = "view"

[[models]]
id = "box"
kind = "cube"
size = [2, 1, 3]
position = [1, 0, 0]
axis = [0, 1, 0]
angle = 90
color = "hsl(120, 100%, 50%)"

[[models]]
kind = "cube"
`

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, [3]float64{0, 2, -10}, cfg.Camera.Position)
	assert.Equal(t, 45.0, cfg.Camera.FOV)
	assert.Equal(t, 320, cfg.Render.Width)
	assert.True(t, cfg.Render.ClipNear)
	require.Len(t, cfg.Models, 2)
	assert.Equal(t, "box", cfg.Models[0].ID)
	assert.Equal(t, [3]float64{2, 1, 3}, cfg.Models[0].Size)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader("[[models]]\nkind = \"cube\"\n"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Camera, cfg.Camera)
	assert.Equal(t, def.Render, cfg.Render)
	assert.NoError(t, cfg.Validate())
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("[render]\nwidht = 10\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("[render\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"no models", func(c *Config) { c.Models = nil }, ErrNoModels},
		{"unknown kind", func(c *Config) { c.Models[0].Kind = "cone" }, ErrUnknownKind},
		{"split mode", func(c *Config) { c.Render.Split = "diagonal" }, ErrBadSplitMode},
		{"root policy", func(c *Config) { c.Render.Root = "last" }, ErrBadRootPolicy},
		{"traversal", func(c *Config) { c.Render.Traversal = "sideways" }, ErrBadTraversal},
		{"width", func(c *Config) { c.Render.Width = 0 }, ErrBadSize},
		{"cube size", func(c *Config) { c.Models[0].Size = [3]float64{1, -1, 1} }, ErrBadSize},
		{"sphere size", func(c *Config) {
			c.Models[0].Kind = "sphere"
			c.Models[0].Size[0] = -2
		}, ErrBadSize},
		{"clip planes", func(c *Config) { c.Camera.Far = c.Camera.Near }, ErrBadCameraPlanes},
		{"zero fov", func(c *Config) { c.Camera.FOV = 0 }, ErrBadFOV},
		{"negative fov", func(c *Config) { c.Camera.FOV = -30 }, ErrBadFOV},
		{"straight fov", func(c *Config) { c.Camera.FOV = 180 }, ErrBadFOV},
		{"gltf path", func(c *Config) { c.Models[0].Kind = "gltf" }, ErrMissingPath},
		{"duplicate id", func(c *Config) {
			c.Models = append(c.Models, ModelConfig{ID: "model0", Kind: "cube"})
		}, ErrDuplicateID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Models = []ModelConfig{{Kind: "cube"}}
			tc.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.want)
		})
	}
}

func TestBuildSphere(t *testing.T) {
	cfg := Default()
	cfg.Models = []ModelConfig{{ID: "ball", Kind: "sphere", Size: [3]float64{4}}}

	s, err := cfg.Build(".", nil)
	require.NoError(t, err)
	require.Len(t, s.Models, 1)

	ball := s.Models[0]
	assert.Len(t, ball.Faces, sphereRings*sphereSegments)
	assert.InDelta(t, 4, ball.Size().Y, 1e-9, "size is the diameter")
	assert.NotEmpty(t, s.Frame())
}

func TestBuild(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	s, err := cfg.Build(".", nil)
	require.NoError(t, err)

	assert.Equal(t, render.RGB(0x10, 0x20, 0x30), s.Background)
	assert.Nil(t, s.Stroke)
	assert.Equal(t, bsp.SplitFootprint, s.Options.Split)
	assert.True(t, s.Options.Nearest)
	assert.Equal(t, TraverseView, s.Options.Traversal)
	assert.True(t, s.Options.Cull)
	assert.True(t, s.Options.Lighting)

	assert.Equal(t, 1.6, s.Camera.AspectRatio())
	assert.InDelta(t, 0.25*3.141592653589793, s.Camera.FOV(), 1e-12)
	near, far := s.Camera.ClipPlanes()
	assert.Equal(t, 0.5, near)
	assert.Equal(t, 200.0, far)

	require.Len(t, s.Models, 2)
	box := s.Models[0]
	require.NotNil(t, box.Color)
	assert.Equal(t, render.RGB(0, 255, 0), *box.Color)
	assert.Equal(t, math3d.V3(1, 0, 0), box.Position)
	assert.InDelta(t, 3.141592653589793/2, box.Angle, 1e-12)
	assert.Equal(t, math3d.V3(2, 1, 3), box.Size())

	second := s.Models[1]
	assert.Equal(t, "model1", second.ID)
	assert.Equal(t, math3d.V3(1, 1, 1), second.Size())
	assert.Nil(t, second.Color, "no color leaves the palette in charge")
}

func TestBuildTransparentColor(t *testing.T) {
	cfg := Default()
	cfg.Models = []ModelConfig{{ID: "glass", Kind: "cube", Color: "hsla(0, 0%, 0%, 0)"}}

	s, err := cfg.Build(".", nil)
	require.NoError(t, err)
	require.NotNil(t, s.Models[0].Color)
	assert.Equal(t, color.RGBA{}, *s.Models[0].Color)

	for _, p := range s.ViewPolygons() {
		assert.Equal(t, color.RGBA{}, p.Color, "%s took a palette color", p.ID)
	}
}

func TestBuildAngles(t *testing.T) {
	cfg, err := Parse(strings.NewReader("[camera]\npitch = 0\nyaw = 90\n[[models]]\n"))
	require.NoError(t, err)

	s, err := cfg.Build(".", nil)
	require.NoError(t, err)
	assert.True(t, s.Camera.Direction().ApproxEqual(math3d.V3(1, 0, 0), 1e-9))
}

func TestBuildBadColor(t *testing.T) {
	cfg := Default()
	cfg.Models = []ModelConfig{{Kind: "cube", Color: "chartreuse-ish"}}
	_, err := cfg.Build(".", nil)
	assert.Error(t, err)

	cfg = Default()
	cfg.Models = []ModelConfig{{Kind: "cube"}}
	cfg.Render.Background = "nope"
	_, err = cfg.Build(".", nil)
	assert.Error(t, err)
}

func TestBuildGLTF(t *testing.T) {
	dir := t.TempDir()

	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {4, 0, 0}, {4, 4, 0}, {0, 4, 0}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2, 0, 2, 3})
	prim := &gltf.Primitive{Indices: gltf.Index(idx)}
	prim.Attributes = map[string]int{gltf.POSITION: pos}
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{prim}}}
	require.NoError(t, gltf.SaveBinary(doc, filepath.Join(dir, "quad.glb")))

	conf := `
[[models]]
id = "quad"
kind = "gltf"
path = "quad.glb"
size = [2, 2, 2]
`
	path := filepath.Join(dir, "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	s, err := cfg.Build(filepath.Dir(path), nil)
	require.NoError(t, err)

	require.Len(t, s.Models, 1)
	m := s.Models[0]
	assert.Equal(t, "quad", m.ID)
	assert.Len(t, m.Faces, 2)
	assert.True(t, m.Size().ApproxEqual(math3d.V3(2, 2, 0), 1e-6), "size %v", m.Size())

	cfg.Models[0].Path = "missing.glb"
	_, err = cfg.Build(dir, nil)
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.toml")
	require.NoError(t, os.WriteFile(path, []byte("[render]\nwidth = 10\n"), 0o644))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrNoModels)
}

const sampleYAML = `
camera:
  position: [0, 2, -10]
  pitch: 10
  fov: 45
render:
  width: 320
  height: 200
  clip_near: true
  split: footprint
models:
  - id: box
    size: [2, 1, 3]
    color: "#00ff00"
  - kind: cube
`

func TestLoadRejectsBadFOV(t *testing.T) {
	for _, fov := range []string{"0", "-30", "200"} {
		t.Run(fov, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scene.toml")
			conf := "[camera]\nfov = " + fov + "\n[[models]]\nkind = \"cube\"\n"
			require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))

			_, err := Load(path)
			assert.ErrorIs(t, err, ErrBadFOV)
		})
	}
}

func TestParseYAML(t *testing.T) {
	cfg, err := ParseYAML(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, [3]float64{0, 2, -10}, cfg.Camera.Position)
	require.NotNil(t, cfg.Camera.Pitch)
	assert.Equal(t, 10.0, *cfg.Camera.Pitch)
	assert.Equal(t, 45.0, cfg.Camera.FOV)
	assert.Equal(t, 1000.0, cfg.Camera.Far, "unset keys keep their defaults")
	assert.True(t, cfg.Render.ClipNear)
	assert.Equal(t, "footprint", cfg.Render.Split)
	require.Len(t, cfg.Models, 2)
	assert.Equal(t, "box", cfg.Models[0].ID)
	assert.NoError(t, cfg.Validate())

	_, err = ParseYAML(strings.NewReader("render:\n  widht: 10\n"))
	assert.Error(t, err, "unknown keys are rejected")

	cfg, err = ParseYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Render.Width)

	// TOML syntax in a .yml file is a decode error
	path = filepath.Join(t.TempDir(), "scene.yml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadDemoScene(t *testing.T) {
	path := filepath.Join("..", "..", "scenes", "demo.toml")
	cfg, err := Load(path)
	require.NoError(t, err)

	s, err := cfg.Build(filepath.Dir(path), nil)
	require.NoError(t, err)
	assert.Len(t, s.Models, 5)

	fb := render.NewFramebuffer(160, 120)
	assert.Positive(t, s.Render(fb))
}
