// Package mesh loads triangle meshes and indexes their faces in a k-DOP
// bounding volume hierarchy.
package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/samber/lo"
)

// Triangle is a triangle of a mesh. Faces with more than 3 vertices are split
// into several triangles sharing the same Face.
type Triangle struct {
	// Index of the OBJ face the triangle comes from.
	Face int

	// Indices of the triangle positions.
	V [3]int
}

// Mesh is a triangle mesh.
type Mesh struct {
	Positions []r3.Vector
	Triangles []Triangle

	// Number of faces before triangulation.
	FaceCount int
}

// FromOBJ builds a triangle mesh from OBJ content. Polygons are triangulated
// as fans around their first vertex. Lines are ignored.
func FromOBJ(obj *OBJ) *Mesh {
	m := &Mesh{
		Positions: append([]r3.Vector(nil), obj.Positions...),
		FaceCount: len(obj.Faces),
	}

	for i, face := range obj.Faces {
		pos := lo.Map(face, func(fv FaceVertex, _ int) int {
			return fv.Pos
		})

		for j := 1; j+1 < len(pos); j++ {
			m.Triangles = append(m.Triangles, Triangle{
				Face: i,
				V:    [3]int{pos[0], pos[j], pos[j+1]},
			})
		}
	}

	return m
}

// ToOBJ returns the OBJ content of the mesh, one face per triangle.
func (m *Mesh) ToOBJ() *OBJ {
	return &OBJ{
		Positions: append([]r3.Vector(nil), m.Positions...),
		Faces: lo.Map(m.Triangles, func(t Triangle, _ int) []FaceVertex {
			return lo.Map(t.V[:], func(v int, _ int) FaceVertex {
				return FaceVertex{Pos: v, UV: NoIndex, Normal: NoIndex}
			})
		}),
	}
}

// Vertices returns the positions of the i-th triangle.
func (m *Mesh) Vertices(i int) (a, b, c r3.Vector) {
	t := m.Triangles[i]
	return m.Positions[t.V[0]], m.Positions[t.V[1]], m.Positions[t.V[2]]
}

// Normal returns the unit normal of the i-th triangle. Degenerated triangles
// have a zero normal.
func (m *Mesh) Normal(i int) r3.Vector {
	a, b, c := m.Vertices(i)
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Norm2() == 0 {
		return r3.Vector{}
	}
	return n.Normalize()
}

// Area returns the total area of the triangles.
func (m *Mesh) Area() float64 {
	return lo.SumBy(lo.Range(len(m.Triangles)), func(i int) float64 {
		a, b, c := m.Vertices(i)
		return b.Sub(a).Cross(c.Sub(a)).Norm() / 2
	})
}

// Bounds returns the corners of the axis aligned box containing the
// positions. It returns false when the mesh has no position.
func (m *Mesh) Bounds() (r3.Vector, r3.Vector, bool) {
	if len(m.Positions) == 0 {
		return r3.Vector{}, r3.Vector{}, false
	}

	lower := r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	upper := r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, p := range m.Positions {
		lower = r3.Vector{X: math.Min(lower.X, p.X), Y: math.Min(lower.Y, p.Y), Z: math.Min(lower.Z, p.Z)}
		upper = r3.Vector{X: math.Max(upper.X, p.X), Y: math.Max(upper.Y, p.Y), Z: math.Max(upper.Z, p.Z)}
	}
	return lower, upper, true
}

// ApplyModelMatrix transforms the positions with the given model matrix.
func (m *Mesh) ApplyModelMatrix(model mgl64.Mat4) {
	for i, p := range m.Positions {
		m.Positions[i] = transform(model, p)
	}
}

// UnapplyModelMatrix transforms the positions with the inverse of the given
// model matrix.
func (m *Mesh) UnapplyModelMatrix(model mgl64.Mat4) {
	m.ApplyModelMatrix(model.Inv())
}

func transform(model mgl64.Mat4, p r3.Vector) r3.Vector {
	v := model.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	if v[3] != 0 && v[3] != 1 {
		v = v.Mul(1 / v[3])
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}
