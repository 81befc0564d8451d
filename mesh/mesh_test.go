package mesh

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"
)

func loadCube(t *testing.T) *Mesh {
	obj, err := ReadFile(filepath.Join("testdata", "cube.obj"))
	require.NoError(t, err)
	return FromOBJ(obj)
}

func requireVectorInDelta(t *testing.T, expected, actual r3.Vector) {
	require.InDelta(t, expected.X, actual.X, 1e-9)
	require.InDelta(t, expected.Y, actual.Y, 1e-9)
	require.InDelta(t, expected.Z, actual.Z, 1e-9)
}

func TestFromOBJ(t *testing.T) {
	m := loadCube(t)
	require.Equal(t, 6, m.FaceCount)
	require.Len(t, m.Triangles, 12)
	require.Len(t, m.Positions, 8)

	require.Equal(t, Triangle{Face: 0, V: [3]int{0, 1, 2}}, m.Triangles[0])
	require.Equal(t, Triangle{Face: 0, V: [3]int{0, 2, 3}}, m.Triangles[1])
	require.Equal(t, Triangle{Face: 5, V: [3]int{4, 1, 0}}, m.Triangles[11])

	t.Run("pentagon fan", func(t *testing.T) {
		obj := &OBJ{
			Positions: make([]r3.Vector, 5),
			Faces: [][]FaceVertex{{
				{Pos: 0}, {Pos: 1}, {Pos: 2}, {Pos: 3}, {Pos: 4},
			}},
		}

		m := FromOBJ(obj)
		require.Equal(t, []Triangle{
			{Face: 0, V: [3]int{0, 1, 2}},
			{Face: 0, V: [3]int{0, 2, 3}},
			{Face: 0, V: [3]int{0, 3, 4}},
		}, m.Triangles)
	})
}

func TestMeshToOBJ(t *testing.T) {
	m := loadCube(t)

	obj := m.ToOBJ()
	require.Len(t, obj.Faces, 12)
	require.Equal(t, m.Positions, obj.Positions)
	require.Equal(t, FaceVertex{Pos: 2, UV: NoIndex, Normal: NoIndex}, obj.Faces[0][2])
	require.NoError(t, obj.Validate())
}

func TestMeshGeometry(t *testing.T) {
	m := loadCube(t)

	require.InDelta(t, 6, m.Area(), 1e-9)
	requireVectorInDelta(t, r3.Vector{X: 0, Y: 0, Z: 1}, m.Normal(0))
	requireVectorInDelta(t, r3.Vector{X: 1, Y: 0, Z: 0}, m.Normal(4))

	lower, upper, ok := m.Bounds()
	require.True(t, ok)
	require.Equal(t, r3.Vector{X: -0.5, Y: -0.5, Z: -0.5}, lower)
	require.Equal(t, r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}, upper)

	_, _, ok = (&Mesh{}).Bounds()
	require.False(t, ok)

	degenerated := &Mesh{
		Positions: []r3.Vector{{X: 0}, {X: 1}, {X: 2}},
		Triangles: []Triangle{{V: [3]int{0, 1, 2}}},
	}
	require.Equal(t, r3.Vector{}, degenerated.Normal(0))
}

func TestMeshModelMatrix(t *testing.T) {
	m := loadCube(t)
	original := append([]r3.Vector(nil), m.Positions...)

	model := mgl64.Translate3D(1, 2, 3).Mul4(mgl64.Scale3D(2, 2, 2))
	m.ApplyModelMatrix(model)

	lower, upper, ok := m.Bounds()
	require.True(t, ok)
	requireVectorInDelta(t, r3.Vector{X: 0, Y: 1, Z: 2}, lower)
	requireVectorInDelta(t, r3.Vector{X: 2, Y: 3, Z: 4}, upper)
	require.InDelta(t, 24, m.Area(), 1e-9)

	m.UnapplyModelMatrix(model)
	for i := range original {
		requireVectorInDelta(t, original[i], m.Positions[i])
	}
}
