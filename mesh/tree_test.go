package mesh

import (
	"math/rand"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/kenaz/bvh"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"
)

func TestMeshBuildTree(t *testing.T) {
	m := loadCube(t)

	for _, axis := range []int{6, 8, 14, 18, 26} {
		opts := DefaultTreeOptions()
		opts.Axis = axis

		tree := m.BuildTree(opts)
		require.Equal(t, 12, tree.Len())
		require.Equal(t, axis, tree.Axis())

		lower, upper, ok := tree.MinMaxBounds()
		require.True(t, ok)
		requireVectorInDelta(t, r3.Vector{X: -0.5001, Y: -0.5001, Z: -0.5001}, FromVec3(lower))
		requireVectorInDelta(t, r3.Vector{X: 0.5001, Y: 0.5001, Z: 0.5001}, FromVec3(upper))
	}
}

func TestMeshRayCast(t *testing.T) {
	m := loadCube(t)
	tree := m.BuildTree(DefaultTreeOptions())

	t.Run("front face", func(t *testing.T) {
		hit, ok := m.RayCast(tree, r3.Vector{X: 0.1, Y: 0.2, Z: 5}, r3.Vector{Z: -1})
		require.True(t, ok)
		require.InDelta(t, 4.5, hit.Dist, 1e-9)
		require.Equal(t, 0, m.Triangles[hit.Elem].Face)
		requireVectorInDelta(t, r3.Vector{X: 0.1, Y: 0.2, Z: 0.5}, FromVec3(hit.Point))
		requireVectorInDelta(t, r3.Vector{Z: 1}, FromVec3(hit.Normal))
	})

	t.Run("from inside", func(t *testing.T) {
		hit, ok := m.RayCast(tree, r3.Vector{X: 0.1, Y: 0.1, Z: 0.1}, r3.Vector{X: 1})
		require.True(t, ok)
		require.InDelta(t, 0.4, hit.Dist, 1e-9)
		require.Equal(t, 2, m.Triangles[hit.Elem].Face)
	})

	t.Run("miss", func(t *testing.T) {
		_, ok := m.RayCast(tree, r3.Vector{X: 2, Y: 2, Z: 5}, r3.Vector{Z: -1})
		require.False(t, ok)

		_, ok = m.RayCast(tree, r3.Vector{Z: 5}, r3.Vector{Z: 1})
		require.False(t, ok)
	})
}

func TestMeshNearest(t *testing.T) {
	m := loadCube(t)
	tree := m.BuildTree(DefaultTreeOptions())

	t.Run("above front face", func(t *testing.T) {
		nearest, ok := m.Nearest(tree, r3.Vector{X: 0.1, Y: -0.2, Z: 2}, 10)
		require.True(t, ok)
		require.InDelta(t, 2.25, nearest.DistSq, 1e-9)
		require.Equal(t, 0, m.Triangles[nearest.Elem].Face)
		requireVectorInDelta(t, r3.Vector{X: 0.1, Y: -0.2, Z: 0.5}, FromVec3(nearest.Point))
	})

	t.Run("right face", func(t *testing.T) {
		nearest, ok := m.Nearest(tree, r3.Vector{X: 2, Y: 0.2, Z: 0.1}, 10)
		require.True(t, ok)
		require.InDelta(t, 2.25, nearest.DistSq, 1e-9)
		require.Equal(t, 2, m.Triangles[nearest.Elem].Face)
		requireVectorInDelta(t, r3.Vector{X: 0.5, Y: 0.2, Z: 0.1}, FromVec3(nearest.Point))
	})

	t.Run("corner", func(t *testing.T) {
		nearest, ok := m.Nearest(tree, r3.Vector{X: 1.5, Y: 1.5, Z: 1.5}, 10)
		require.True(t, ok)
		require.InDelta(t, 3, nearest.DistSq, 1e-9)
		requireVectorInDelta(t, r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}, FromVec3(nearest.Point))
	})

	t.Run("out of range", func(t *testing.T) {
		_, ok := m.Nearest(tree, r3.Vector{Z: 2}, 1)
		require.False(t, ok)
	})

	t.Run("matches brute force", func(t *testing.T) {
		rng := rand.New(rand.NewSource(3))
		for i := 0; i < 50; i++ {
			co := r3.Vector{
				X: rng.Float64()*6 - 3,
				Y: rng.Float64()*6 - 3,
				Z: rng.Float64()*6 - 3,
			}

			best := -1.0
			for j := range m.Triangles {
				a, b, c := m.Vertices(j)
				p := bvh.NearestPointOnTriangle(ToVec3(co), ToVec3(a), ToVec3(b), ToVec3(c))
				if d := p.DistSqr(ToVec3(co)); best < 0 || d < best {
					best = d
				}
			}

			nearest, ok := m.Nearest(tree, co, 100)
			require.True(t, ok)
			require.InDelta(t, best, nearest.DistSq, 1e-9)
		}
	})
}

func TestMeshOverlap(t *testing.T) {
	m := loadCube(t)
	tree := m.BuildTree(DefaultTreeOptions())

	t.Run("intersecting cubes", func(t *testing.T) {
		other := loadCube(t)
		other.ApplyModelMatrix(mgl64.Translate3D(0.75, 0.1, 0.2))
		otherTree := other.BuildTree(DefaultTreeOptions())

		exact := m.Overlap(tree, other, otherTree, true)
		require.NotEmpty(t, exact)

		bounds := m.Overlap(tree, other, otherTree, false)
		require.GreaterOrEqual(t, len(bounds), len(exact))

		for _, pair := range exact {
			require.Contains(t, bounds, pair)
		}
	})

	t.Run("distant cubes", func(t *testing.T) {
		other := loadCube(t)
		other.ApplyModelMatrix(mgl64.Translate3D(5, 0, 0))
		otherTree := other.BuildTree(DefaultTreeOptions())

		require.Empty(t, m.Overlap(tree, other, otherTree, false))
		require.Empty(t, m.Overlap(tree, other, otherTree, true))
	})

	t.Run("self", func(t *testing.T) {
		pairs := m.Overlap(tree, m, tree, true)
		require.NotEmpty(t, pairs)
		for _, p := range pairs {
			require.Less(t, p.A, p.B)
		}

		// Both triangles of a face share an edge.
		require.Contains(t, pairs, bvh.Overlap[int]{A: 0, B: 1})
	})
}

func TestMeshMoveTriangle(t *testing.T) {
	t.Run("move up", func(t *testing.T) {
		m := loadCube(t)
		tree := m.BuildTree(DefaultTreeOptions())

		a, b, c := m.Vertices(0)
		up := r3.Vector{Z: 10}
		err := m.MoveTriangle(tree, 0, [3]r3.Vector{a.Add(up), b.Add(up), c.Add(up)}, false)
		require.NoError(t, err)
		tree.UpdateTree()

		hit, ok := m.RayCast(tree, r3.Vector{X: 0.25, Y: -0.25, Z: 20}, r3.Vector{Z: -1})
		require.True(t, ok)
		require.Equal(t, 0, hit.Elem)
		require.InDelta(t, 9.5, hit.Dist, 1e-9)

		_, upper, ok := tree.MinMaxBounds()
		require.True(t, ok)
		require.InDelta(t, 10.5001, upper[2], 1e-9)
	})

	t.Run("swept", func(t *testing.T) {
		m := loadCube(t)
		tree := m.BuildTree(DefaultTreeOptions())

		a, b, c := m.Vertices(0)
		up := r3.Vector{Z: 10}
		err := m.MoveTriangle(tree, 0, [3]r3.Vector{a.Add(up), b.Add(up), c.Add(up)}, true)
		require.NoError(t, err)
		tree.UpdateTree()

		var leaf bvh.NodeInfo[float64, int]
		tree.Walk(func(n bvh.NodeInfo[float64, int]) bool {
			if n.Leaf && n.Elem == 0 {
				leaf = n
			}
			return true
		})
		require.InDelta(t, 0.4999, leaf.Min[2], 1e-9)
		require.InDelta(t, 10.5001, leaf.Max[2], 1e-9)
	})

	t.Run("out of range", func(t *testing.T) {
		m := loadCube(t)
		tree := m.BuildTree(DefaultTreeOptions())

		err := m.MoveTriangle(tree, 12, [3]r3.Vector{}, false)
		require.Error(t, err)
		require.True(t, errors.IsType(err, bvh.ErrTypeIndexOutOfRange))
	})
}

func TestTreeOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    TreeOptions
		isValid bool
	}{
		{
			name:    "default",
			opts:    DefaultTreeOptions(),
			isValid: true,
		},
		{
			name:    "binary tree of 26-DOP",
			opts:    TreeOptions{TreeType: 2, Axis: 26},
			isValid: true,
		},
		{
			name: "tree type too small",
			opts: TreeOptions{TreeType: 1, Axis: 8},
		},
		{
			name: "tree type too large",
			opts: TreeOptions{TreeType: 33, Axis: 8},
		},
		{
			name: "unsupported axis",
			opts: TreeOptions{TreeType: 4, Axis: 10},
		},
		{
			name: "negative epsilon",
			opts: TreeOptions{TreeType: 4, Axis: 8, Epsilon: -1},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.opts.Validate()
			if test.isValid {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.IsType(err, ErrTypeInvalidTreeOptions))
		})
	}
}
