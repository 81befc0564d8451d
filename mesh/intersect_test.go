package mesh

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"
)

func TestTrianglesIntersect(t *testing.T) {
	base := [3]r3.Vector{
		{X: -1, Y: -1, Z: 0},
		{X: 1, Y: -1, Z: 0},
		{X: 0, Y: 1, Z: 0},
	}

	shift := func(tri [3]r3.Vector, v r3.Vector) [3]r3.Vector {
		return [3]r3.Vector{tri[0].Add(v), tri[1].Add(v), tri[2].Add(v)}
	}

	tests := []struct {
		name      string
		other     [3]r3.Vector
		intersect bool
	}{
		{
			name: "crossing",
			other: [3]r3.Vector{
				{X: 0, Y: -0.5, Z: -1},
				{X: 0, Y: -0.5, Z: 1},
				{X: 0, Y: 0.5, Z: 0},
			},
			intersect: true,
		},
		{
			name:      "above",
			other:     shift(base, r3.Vector{Z: 5}),
			intersect: false,
		},
		{
			name: "crossing the plane away from the triangle",
			other: [3]r3.Vector{
				{X: 5, Y: 0, Z: -1},
				{X: 5, Y: 0, Z: 1},
				{X: 6, Y: 0, Z: 0},
			},
			intersect: false,
		},
		{
			name: "touching a vertex",
			other: [3]r3.Vector{
				{X: 0, Y: 1, Z: 0},
				{X: 0, Y: 2, Z: 1},
				{X: 1, Y: 2, Z: 1},
			},
			intersect: true,
		},
		{
			name:      "coplanar overlapping",
			other:     shift(base, r3.Vector{X: 0.5}),
			intersect: true,
		},
		{
			name:      "coplanar disjoint",
			other:     shift(base, r3.Vector{X: 5}),
			intersect: false,
		},
		{
			name: "coplanar inside",
			other: [3]r3.Vector{
				{X: -0.1, Y: -0.1, Z: 0},
				{X: 0.1, Y: -0.1, Z: 0},
				{X: 0, Y: 0.1, Z: 0},
			},
			intersect: true,
		},
		{
			name: "degenerated",
			other: [3]r3.Vector{
				{X: 0, Y: 0, Z: -1},
				{X: 0, Y: 0, Z: 0},
				{X: 0, Y: 0, Z: 1},
			},
			intersect: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.intersect, TrianglesIntersect(base, test.other))
			require.Equal(t, test.intersect, TrianglesIntersect(test.other, base))
		})
	}
}
