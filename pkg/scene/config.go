package scene

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/taigrr/painter/pkg/bsp"
	"github.com/taigrr/painter/pkg/math3d"
	"github.com/taigrr/painter/pkg/models"
	"github.com/taigrr/painter/pkg/render"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoModels        = errors.New("scene has no models")
	ErrUnknownKind     = errors.New("unknown model kind")
	ErrBadSplitMode    = errors.New("bad split mode")
	ErrBadRootPolicy   = errors.New("bad root policy")
	ErrBadTraversal    = errors.New("bad traversal")
	ErrBadSize         = errors.New("bad size")
	ErrMissingPath     = errors.New("model path missing")
	ErrDuplicateID     = errors.New("duplicate model id")
	ErrBadCameraPlanes = errors.New("bad clip planes")
	ErrBadFOV          = errors.New("bad field of view")
)

// Config is the scene description, read from TOML or YAML.
type Config struct {
	Camera CameraConfig  `toml:"camera" yaml:"camera"`
	Render RenderConfig  `toml:"render" yaml:"render"`
	Models []ModelConfig `toml:"models" yaml:"models"`
}

// CameraConfig places the camera. Pitch and Yaw, when set, take precedence
// over Direction.
type CameraConfig struct {
	Position  [3]float64 `toml:"position" yaml:"position"`
	Direction [3]float64 `toml:"direction" yaml:"direction"`
	Pitch     *float64   `toml:"pitch" yaml:"pitch"`
	Yaw       *float64   `toml:"yaw" yaml:"yaw"`
	FOV       float64    `toml:"fov" yaml:"fov"` // degrees
	Near      float64    `toml:"near" yaml:"near"`
	Far       float64    `toml:"far" yaml:"far"`
}

// RenderConfig sets the output size and the pipeline options.
type RenderConfig struct {
	Width      int        `toml:"width" yaml:"width"`
	Height     int        `toml:"height" yaml:"height"`
	Background string     `toml:"background" yaml:"background"`
	Stroke     string     `toml:"stroke" yaml:"stroke"`
	Lighting   bool       `toml:"lighting" yaml:"lighting"`
	Light      [3]float64 `toml:"light" yaml:"light"`
	Cull       bool       `toml:"cull" yaml:"cull"`
	ClipNear   bool       `toml:"clip_near" yaml:"clip_near"`
	Split      string     `toml:"split" yaml:"split"`
	Root       string     `toml:"root" yaml:"root"`
	Traversal  string     `toml:"traversal" yaml:"traversal"`
}

// ModelConfig describes one model.
type ModelConfig struct {
	ID       string     `toml:"id" yaml:"id"`
	Kind     string     `toml:"kind" yaml:"kind"`
	Size     [3]float64 `toml:"size" yaml:"size"` // sphere: diameter in the first component
	Path     string     `toml:"path" yaml:"path"`
	Position [3]float64 `toml:"position" yaml:"position"`
	Axis     [3]float64 `toml:"axis" yaml:"axis"`
	Angle    float64    `toml:"angle" yaml:"angle"` // degrees
	Color    string     `toml:"color" yaml:"color"`
}

// Default returns the configuration used for keys a file leaves out.
func Default() Config {
	return Config{
		Camera: CameraConfig{
			Position:  [3]float64{0, 0, -8},
			Direction: [3]float64{0, 0, 1},
			FOV:       60,
			Near:      0.1,
			Far:       1000,
		},
		Render: RenderConfig{
			Width:      800,
			Height:     600,
			Background: render.Hex(render.ColorBackground),
			Stroke:     render.Hex(render.ColorBlack),
			Split:      "plane",
			Root:       "first",
			Traversal:  "eye",
		},
	}
}

// Parse decodes a configuration over the defaults. Unknown keys are errors.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("decode config at %d:%d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// ParseYAML is Parse for YAML documents. The keys are the same as in TOML.
func ParseYAML(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Load reads and validates the configuration file at path. Files ending in
// .yaml or .yml are YAML, anything else is TOML.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	parse := Parse
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parse = ParseYAML
	}
	cfg, err := parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration without loading any model files.
func (c Config) Validate() error {
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadSize, c.Render.Width, c.Render.Height)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("%w: near %v, far %v", ErrBadCameraPlanes, c.Camera.Near, c.Camera.Far)
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 || math.IsNaN(c.Camera.FOV) {
		return fmt.Errorf("%w: %v degrees, want (0, 180)", ErrBadFOV, c.Camera.FOV)
	}
	if _, err := parseSplit(c.Render.Split); err != nil {
		return err
	}
	if _, err := parseRoot(c.Render.Root); err != nil {
		return err
	}
	if _, err := parseTraversal(c.Render.Traversal); err != nil {
		return err
	}
	if len(c.Models) == 0 {
		return ErrNoModels
	}

	seen := make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		id := m.id(i)
		if seen[id] {
			return fmt.Errorf("%w: %q", ErrDuplicateID, id)
		}
		seen[id] = true

		switch m.Kind {
		case "cube", "":
			if m.Size[0] < 0 || m.Size[1] < 0 || m.Size[2] < 0 {
				return fmt.Errorf("model %q: %w: %v", id, ErrBadSize, m.Size)
			}
		case "sphere":
			if m.Size[0] < 0 {
				return fmt.Errorf("model %q: %w: %v", id, ErrBadSize, m.Size)
			}
		case "gltf":
			if m.Path == "" {
				return fmt.Errorf("model %q: %w", id, ErrMissingPath)
			}
		default:
			return fmt.Errorf("model %q: %w: %q", id, ErrUnknownKind, m.Kind)
		}
	}
	return nil
}

func (m ModelConfig) id(i int) string {
	if m.ID != "" {
		return m.ID
	}
	return fmt.Sprintf("model%d", i)
}

func parseSplit(s string) (bsp.SplitMode, error) {
	switch strings.ToLower(s) {
	case "plane", "":
		return bsp.SplitPlane, nil
	case "footprint":
		return bsp.SplitFootprint, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadSplitMode, s)
}

func parseRoot(s string) (nearest bool, err error) {
	switch strings.ToLower(s) {
	case "first", "":
		return false, nil
	case "nearest":
		return true, nil
	}
	return false, fmt.Errorf("%w: %q", ErrBadRootPolicy, s)
}

func parseTraversal(s string) (Traversal, error) {
	switch strings.ToLower(s) {
	case "eye", "":
		return TraverseEye, nil
	case "view":
		return TraverseView, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadTraversal, s)
}

func vec(v [3]float64) math3d.Vec3 {
	return math3d.V3(v[0], v[1], v[2])
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// NewCamera builds the configured camera.
func (c Config) NewCamera() *render.Camera {
	cam := render.NewCamera()
	cam.SetClipPlanes(c.Camera.Near, c.Camera.Far)
	cam.SetFOV(radians(c.Camera.FOV))
	cam.SetViewport(c.Render.Width, c.Render.Height)
	cam.SetPosition(vec(c.Camera.Position))

	if c.Camera.Pitch != nil || c.Camera.Yaw != nil {
		var pitch, yaw float64
		if c.Camera.Pitch != nil {
			pitch = *c.Camera.Pitch
		}
		if c.Camera.Yaw != nil {
			yaw = *c.Camera.Yaw
		}
		cam.SetDirectionFromAngles(pitch, yaw)
	} else {
		cam.SetDirection(vec(c.Camera.Direction))
	}
	return cam
}

// Build validates the configuration, loads every model and returns the
// scene. Relative glTF paths are resolved against dir.
func (c Config) Build(dir string, logger *slog.Logger) (*Scene, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	ms := make([]*models.Model, 0, len(c.Models))
	for i, mc := range c.Models {
		m, err := mc.build(i, dir)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded model", "id", m.ID, "points", len(m.Points), "faces", len(m.Faces))
		ms = append(ms, m)
	}

	s := New(c.NewCamera(), ms...)
	s.Logger = logger

	var err error
	if s.Background, err = render.ParseColor(c.Render.Background); err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	if c.Render.Stroke == "" || c.Render.Stroke == "none" {
		s.Stroke = nil
	} else if s.Stroke, err = parseColor(c.Render.Stroke); err != nil {
		return nil, fmt.Errorf("stroke: %w", err)
	}

	s.Options.Split, _ = parseSplit(c.Render.Split)
	s.Options.Nearest, _ = parseRoot(c.Render.Root)
	s.Options.Traversal, _ = parseTraversal(c.Render.Traversal)
	s.Options.Cull = c.Render.Cull
	s.Options.ClipNear = c.Render.ClipNear
	s.Options.Lighting = c.Render.Lighting
	s.Options.LightDir = vec(c.Render.Light)
	return s, nil
}

// parseColor returns a color.Color so a nil stroke stays a nil interface.
func parseColor(s string) (color.Color, error) {
	c, err := render.ParseColor(s)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Tessellation of "sphere" models.
const (
	sphereRings    = 8
	sphereSegments = 12
)

func (mc ModelConfig) build(i int, dir string) (*models.Model, error) {
	id := mc.id(i)

	var m *models.Model
	switch mc.Kind {
	case "cube", "":
		size := vec(mc.Size)
		if size.LenSq() == 0 {
			size = math3d.V3(1, 1, 1)
		}
		m = models.Cube(id, size.X, size.Y, size.Z)
	case "sphere":
		d := mc.Size[0]
		if d == 0 {
			d = 1
		}
		m = models.Sphere(id, d/2, sphereRings, sphereSegments)
	case "gltf":
		path := mc.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		loader := models.NewGLTFLoader()
		if s := vec(mc.Size); s.LenSq() > 0 {
			loader.Size = max(s.X, s.Y, s.Z)
		}
		var err error
		if m, err = loader.Load(path); err != nil {
			return nil, fmt.Errorf("model %q: %w", id, err)
		}
		m.ID = id
	default:
		return nil, fmt.Errorf("model %q: %w: %q", id, ErrUnknownKind, mc.Kind)
	}

	m.Position = vec(mc.Position)
	if axis := vec(mc.Axis); axis.LenSq() > 0 {
		m.Axis = axis
	}
	m.Angle = radians(mc.Angle)

	if mc.Color != "" {
		c, err := render.ParseColor(mc.Color)
		if err != nil {
			return nil, fmt.Errorf("model %q color: %w", id, err)
		}
		m.Color = &c
	}
	return m, nil
}
