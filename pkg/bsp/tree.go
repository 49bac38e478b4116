// Package bsp builds binary space partitioning trees over polygons and walks
// them in painter's order.
package bsp

import (
	"fmt"
	"math"

	"github.com/taigrr/painter/pkg/geom"
	"github.com/taigrr/painter/pkg/math3d"
)

// SplitMode selects how non-root polygons are cut by a node's plane.
type SplitMode int

const (
	// SplitPlane cuts against the root's infinite supporting plane.
	SplitPlane SplitMode = iota
	// SplitFootprint cuts only when a crossing lies within the root polygon
	// itself (geom.Intersect). Cheaper trees, but a polygon that spans the
	// plane outside the root's footprint is ordered by its center alone.
	SplitFootprint
)

func (m SplitMode) String() string {
	switch m {
	case SplitPlane:
		return "plane"
	case SplitFootprint:
		return "footprint"
	default:
		return fmt.Sprintf("SplitMode(%d)", int(m))
	}
}

// RootPolicy picks the index of the polygon that becomes a node's root.
// It is called with a non-empty slice.
type RootPolicy func(polys []geom.Polygon) int

// First picks the first polygon.
func First(polys []geom.Polygon) int {
	return 0
}

// Nearest picks the polygon whose center is closest to viewpoint.
func Nearest(viewpoint math3d.Vec3) RootPolicy {
	return func(polys []geom.Polygon) int {
		best, bestDist := 0, math.Inf(1)
		for i, p := range polys {
			if d := p.Center().Sub(viewpoint).LenSq(); d < bestDist {
				best, bestDist = i, d
			}
		}
		return best
	}
}

// Option configures Build.
type Option func(*options)

type options struct {
	root  RootPolicy
	split SplitMode
}

// WithRoot sets the root selection policy. The default is First.
func WithRoot(policy RootPolicy) Option {
	return func(o *options) {
		if policy != nil {
			o.root = policy
		}
	}
}

// WithSplit sets the split mode. The default is SplitPlane.
func WithSplit(mode SplitMode) Option {
	return func(o *options) {
		o.split = mode
	}
}

// Node is one partition of the tree. Front and Back index into the tree's
// node slice; -1 means the subtree is empty.
type Node struct {
	Polygon  geom.Polygon
	Coplanar []geom.Polygon
	Front    int
	Back     int
}

// Tree is a BSP tree stored as a flat node arena.
type Tree struct {
	nodes  []Node
	root   int
	splits int
	opts   options
}

// Build partitions polys into a new tree. Polygons must not be degenerate;
// filter them with geom.Polygon.Degenerate first.
func Build(polys []geom.Polygon, opts ...Option) *Tree {
	t := &Tree{
		nodes: make([]Node, 0, len(polys)),
		root:  -1,
		opts:  options{root: First, split: SplitPlane},
	}
	for _, opt := range opts {
		opt(&t.opts)
	}
	t.root = t.build(polys)
	return t
}

func (t *Tree) build(polys []geom.Polygon) int {
	if len(polys) == 0 {
		return -1
	}

	ri := t.opts.root(polys)
	root := polys[ri]
	plane := root.Plane()

	idx := len(t.nodes)
	t.nodes = append(t.nodes, Node{Polygon: root, Front: -1, Back: -1})

	var front, back, coplanar []geom.Polygon
	for i, p := range polys {
		if i == ri {
			continue
		}
		var parts []geom.Polygon
		switch t.opts.split {
		case SplitFootprint:
			parts = geom.Intersect(p, root)
		default:
			parts = geom.SplitByPlane(p, plane)
		}
		if len(parts) > 1 {
			t.splits++
		}

		for _, frag := range parts {
			switch classify(root, plane, frag) {
			case geom.Front:
				front = append(front, frag)
			case geom.Back:
				back = append(back, frag)
			default:
				coplanar = append(coplanar, frag)
			}
		}
	}

	// children are appended after this node, so take indexes instead of
	// holding a pointer into the arena
	f := t.build(front)
	b := t.build(back)
	t.nodes[idx].Front = f
	t.nodes[idx].Back = b
	t.nodes[idx].Coplanar = coplanar
	return idx
}

// classify places a fragment relative to root. A fragment whose center lies
// on the plane without being coplanar is placed by its farthest vertex.
func classify(root geom.Polygon, plane math3d.Plane, frag geom.Polygon) geom.Side {
	if frag.Classify(plane) == geom.Coplanar {
		return geom.Coplanar
	}
	s := root.Normal().Dot(root.Center().Sub(frag.Center()))
	switch {
	case s < 0:
		return geom.Front
	case s > 0:
		return geom.Back
	}

	var far float64
	for _, v := range frag.Points() {
		if d := plane.SignedDistance(v); math.Abs(d) > math.Abs(far) {
			far = d
		}
	}
	if far > 0 {
		return geom.Front
	}
	return geom.Back
}

// Traverse visits every polygon once. view points from the scene toward the
// viewer; for a camera looking down +z that is (0, 0, -1), which yields
// back-to-front order.
func (t *Tree) Traverse(view math3d.Vec3, visit func(geom.Polygon)) {
	t.walk(t.root, func(math3d.Vec3) math3d.Vec3 { return view }, visit)
}

// TraverseFrom is Traverse for a viewer at eye. Each node uses the direction
// from its root's center toward eye, which keeps the order exact under
// perspective.
func (t *Tree) TraverseFrom(eye math3d.Vec3, visit func(geom.Polygon)) {
	t.walk(t.root, func(center math3d.Vec3) math3d.Vec3 { return eye.Sub(center) }, visit)
}

func (t *Tree) walk(idx int, view func(center math3d.Vec3) math3d.Vec3, visit func(geom.Polygon)) {
	if idx < 0 {
		return
	}
	n := &t.nodes[idx]
	near, far := n.Back, n.Front
	if n.Polygon.Normal().Dot(view(n.Polygon.Center())) < 0 {
		near, far = n.Front, n.Back
	}

	t.walk(near, view, visit)
	visit(n.Polygon)
	for _, p := range n.Coplanar {
		visit(p)
	}
	t.walk(far, view, visit)
}

// Polygons returns every polygon in the order Traverse visits them.
func (t *Tree) Polygons(view math3d.Vec3) []geom.Polygon {
	out := make([]geom.Polygon, 0, t.Len())
	t.Traverse(view, func(p geom.Polygon) {
		out = append(out, p)
	})
	return out
}

// Root returns the index of the root node, or -1 for an empty tree.
func (t *Tree) Root() int {
	return t.root
}

// Node returns the node at index i.
func (t *Tree) Node(i int) Node {
	return t.nodes[i]
}

// Nodes returns the number of nodes.
func (t *Tree) Nodes() int {
	return len(t.nodes)
}

// Len returns the number of polygons and fragments stored in the tree.
func (t *Tree) Len() int {
	n := len(t.nodes)
	for i := range t.nodes {
		n += len(t.nodes[i].Coplanar)
	}
	return n
}

// Splits returns how many input polygons or fragments were cut in two.
func (t *Tree) Splits() int {
	return t.splits
}

// Depth returns the number of nodes on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	return t.depth(t.root)
}

func (t *Tree) depth(idx int) int {
	if idx < 0 {
		return 0
	}
	return 1 + max(t.depth(t.nodes[idx].Front), t.depth(t.nodes[idx].Back))
}
