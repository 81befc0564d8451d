package mesh

import (
	"fmt"
	"math"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/kenaz/bvh"
	"github.com/golang/geo/r3"
)

// Tree is a bounding volume hierarchy whose leaves are mesh triangle
// indices.
type Tree = bvh.Tree[float64, int]

// TreeOptions configures the hierarchy built over a mesh.
type TreeOptions struct {
	TreeType int
	Axis     int
	Epsilon  float64
}

// DefaultTreeOptions returns a quad tree of 8-DOP bounds.
func DefaultTreeOptions() TreeOptions {
	return TreeOptions{
		TreeType: 4,
		Axis:     8,
		Epsilon:  0.0001,
	}
}

// Validate returns an error typed ErrTypeInvalidTreeOptions when the options
// can't be used to build a hierarchy.
func (o TreeOptions) Validate() error {
	if o.TreeType < bvh.MinTreeType || o.TreeType > bvh.MaxTreeType {
		return errors.Newf("tree type must be between %d and %d", bvh.MinTreeType, bvh.MaxTreeType).
			WithType(ErrTypeInvalidTreeOptions).
			WithTag("tree_type", o.TreeType)
	}

	if !bvh.SupportedAxis(o.Axis) {
		return errors.New("axis must be one of 6, 8, 14, 18 or 26").
			WithType(ErrTypeInvalidTreeOptions).
			WithTag("axis", o.Axis)
	}

	if o.Epsilon < 0 || math.IsNaN(o.Epsilon) || math.IsInf(o.Epsilon, 0) {
		return errors.New("epsilon must be a positive number").
			WithType(ErrTypeInvalidTreeOptions).
			WithTag("epsilon", fmt.Sprint(o.Epsilon))
	}
	return nil
}

// ToVec3 converts a golang/geo vector to a bvh vector.
func ToVec3(v r3.Vector) bvh.Vec3[float64] {
	return bvh.Vec3[float64]{v.X, v.Y, v.Z}
}

// FromVec3 converts a bvh vector to a golang/geo vector.
func FromVec3(v bvh.Vec3[float64]) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

func (m *Mesh) trianglePoints(i int) []bvh.Vec3[float64] {
	a, b, c := m.Vertices(i)
	return []bvh.Vec3[float64]{ToVec3(a), ToVec3(b), ToVec3(c)}
}

// BuildTree indexes the mesh triangles. The leaf of the i-th triangle holds i
// and is inserted at position i.
func (m *Mesh) BuildTree(opts TreeOptions) *Tree {
	start := time.Now()

	t := bvh.New[float64, int](len(m.Triangles), opts.Epsilon, opts.TreeType, opts.Axis)
	for i := range m.Triangles {
		t.Insert(i, m.trianglePoints(i))
	}
	t.Balance()

	logs.WithTag("triangles", len(m.Triangles)).
		WithTag("tree_type", opts.TreeType).
		WithTag("axis", opts.Axis).
		WithTag("depth", t.Depth()).
		WithTag("duration", time.Since(start)).
		Debug("mesh tree built")
	return t
}

// RayCast returns the closest triangle hit by the ray starting at origin in
// the direction dir.
func (m *Mesh) RayCast(t *Tree, origin, dir r3.Vector) (bvh.RayHit[float64, int], bool) {
	return t.RayCast(ToVec3(origin), ToVec3(dir), m.rayCastTriangle)
}

func (m *Mesh) rayCastTriangle(tri int, origin, dir bvh.Vec3[float64]) (bvh.RayHit[float64, int], bool) {
	a, b, c := m.Vertices(tri)
	va, vb, vc := ToVec3(a), ToVec3(b), ToVec3(c)

	dist, ok := bvh.RayTriangle(origin, dir, va, vb, vc)
	if !ok {
		return bvh.RayHit[float64, int]{}, false
	}

	return bvh.RayHit[float64, int]{
		Elem:   tri,
		Point:  origin.Add(dir.Mul(dist)),
		Normal: bvh.TriangleNormal(va, vb, vc),
		Dist:   dist,
	}, true
}

// Nearest returns the triangle closest to co within maxDist.
func (m *Mesh) Nearest(t *Tree, co r3.Vector, maxDist float64) (bvh.Nearest[float64, int], bool) {
	return t.FindNearest(ToVec3(co), maxDist*maxDist, m.nearestTriangle)
}

func (m *Mesh) nearestTriangle(tri int, co bvh.Vec3[float64], nearest *bvh.Nearest[float64, int]) {
	a, b, c := m.Vertices(tri)
	va, vb, vc := ToVec3(a), ToVec3(b), ToVec3(c)

	p := bvh.NearestPointOnTriangle(co, va, vb, vc)
	if d := p.DistSqr(co); d < nearest.DistSq {
		nearest.Set(tri, p, bvh.TriangleNormal(va, vb, vc), d)
	}
}

// Overlap returns the pairs of triangles of m and other whose leaf bounds
// overlap. When exact is true, only pairs whose triangles share a point are
// kept. Passing the same mesh and tree twice reports each pair of distinct
// triangles once.
func (m *Mesh) Overlap(t *Tree, other *Mesh, otherTree *Tree, exact bool) []bvh.Overlap[int] {
	if !exact {
		return t.Overlap(otherTree, nil)
	}

	return t.Overlap(otherTree, func(a, b int) bool {
		a0, a1, a2 := m.Vertices(a)
		b0, b1, b2 := other.Vertices(b)
		return TrianglesIntersect(
			[3]r3.Vector{a0, a1, a2},
			[3]r3.Vector{b0, b1, b2},
		)
	})
}

// MoveTriangle moves the vertices of the i-th triangle and refits its leaf.
// Other triangles sharing the moved positions are refitted too. When swept is
// true, the leaves contain both the old and the new positions. Call
// Tree.UpdateTree once all the triangles are moved.
func (m *Mesh) MoveTriangle(t *Tree, i int, to [3]r3.Vector, swept bool) error {
	if i < 0 || i >= len(m.Triangles) {
		return errors.New("triangle index out of range").
			WithType(bvh.ErrTypeIndexOutOfRange).
			WithTag("triangle", i).
			WithTag("triangle_count", len(m.Triangles))
	}

	moved := make(map[int]struct{}, 3)
	var previous []bvh.Vec3[float64]
	for j, v := range m.Triangles[i].V {
		previous = append(previous, ToVec3(m.Positions[v]))
		m.Positions[v] = to[j]
		moved[v] = struct{}{}
	}

	for j, tri := range m.Triangles {
		if !tri.usesAny(moved) {
			continue
		}

		var sweep []bvh.Vec3[float64]
		if swept && j == i {
			sweep = previous
		}
		if err := t.UpdateNode(j, m.trianglePoints(j), sweep); err != nil {
			return errors.New("refitting triangle failed").
				WithTag("triangle", j).
				WithType(errors.Type(err)).
				Wrap(err)
		}
	}
	return nil
}

func (t Triangle) usesAny(positions map[int]struct{}) bool {
	for _, v := range t.V {
		if _, ok := positions[v]; ok {
			return true
		}
	}
	return false
}
