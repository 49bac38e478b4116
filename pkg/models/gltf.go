package models

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/taigrr/painter/pkg/math3d"
)

// GLTFLoader loads glTF/GLB files into a single Model.
type GLTFLoader struct {
	// Size, when positive, recenters the model and scales its largest
	// dimension to Size.
	Size float64
}

// NewGLTFLoader creates a loader that normalizes models to unit size.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{Size: 1}
}

// LoadGLB loads a glTF or GLB file with the default loader.
func LoadGLB(path string) (*Model, error) {
	return NewGLTFLoader().Load(path)
}

// Load reads every triangle primitive of every mesh in the document into one
// model named after the file.
func (l *GLTFLoader) Load(path string) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := l.FromDocument(id, doc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return m, nil
}

// FromDocument converts an already decoded document.
func (l *GLTFLoader) FromDocument(id string, doc *gltf.Document) (*Model, error) {
	m := NewModel(id, nil, nil)

	for _, mesh := range doc.Meshes {
		if err := l.processMesh(doc, mesh, m); err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", mesh.Name, err)
		}
	}
	if len(m.Faces) == 0 {
		return nil, fmt.Errorf("%w: no triangles", ErrBadFace)
	}

	if l.Size > 0 {
		m.Normalize(l.Size)
	}
	return m, nil
}

// processMesh appends the geometry of one glTF mesh.
func (l *GLTFLoader) processMesh(doc *gltf.Document, mesh *gltf.Mesh, m *Model) error {
	for _, prim := range mesh.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			// lines and points have no area to paint
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var indices []uint32
		if prim.Indices != nil {
			indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
		}

		appendTriangles(m, positions, indices)
	}
	return nil
}

// appendTriangles adds positions to the point table and one face per index
// triple. Without indices the positions are taken as consecutive triangles.
// glTF front faces are counter-clockwise, which is the winding Model keeps.
func appendTriangles(m *Model, positions [][3]float32, indices []uint32) {
	base := len(m.Points)
	for _, p := range positions {
		m.Points = append(m.Points, math3d.V3(float64(p[0]), float64(p[1]), float64(p[2])))
	}

	if indices == nil {
		for i := 0; i+2 < len(positions); i += 3 {
			m.Faces = append(m.Faces, []int{base + i, base + i + 1, base + i + 2})
		}
		return
	}

	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := int(indices[i]), int(indices[i+1]), int(indices[i+2])
		if a >= len(positions) || b >= len(positions) || c >= len(positions) {
			continue
		}
		m.Faces = append(m.Faces, []int{base + a, base + b, base + c})
	}
}
