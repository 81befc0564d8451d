package bvh

import (
	"github.com/aukilabs/kenaz/bvh/arena"
	"golang.org/x/exp/constraints"
)

// Nearest is the closest element found so far by a nearest point search.
type Nearest[T constraints.Float, E any] struct {
	Elem   E
	Point  Vec3[T]
	Normal Vec3[T]

	// Squared distance between the query point and Point. Before anything is
	// found, it holds the search budget.
	DistSq T

	found bool
}

// Set records elem as the closest element.
func (n *Nearest[T, E]) Set(elem E, point, normal Vec3[T], distSq T) {
	n.Elem = elem
	n.Point = point
	n.Normal = normal
	n.DistSq = distSq
	n.found = true
}

// Found reports whether an element was recorded.
func (n *Nearest[T, E]) Found() bool {
	return n.found
}

// NearestFunc measures the distance between co and the element of a leaf
// that may be closer than the current nearest element. It calls Set on
// nearest when it is.
type NearestFunc[T constraints.Float, E any] func(elem E, co Vec3[T], nearest *Nearest[T, E])

// FindNearest returns the element closest to co within the squared distance
// distSq. Each leaf whose bounds are closer than the current best is measured
// with fn. When fn is nil, distances are measured to the leaf bounds.
func (t *Tree[T, E]) FindNearest(co Vec3[T], distSq T, fn NearestFunc[T, E]) (Nearest[T, E], bool) {
	root, ok := t.root()
	if !ok {
		return Nearest[T, E]{}, false
	}

	var proj [numKDOPAxes]T
	for i := 0; i < t.stopAxis; i++ {
		proj[i] = project(co, i)
	}

	if co.DistSqr(t.node(root).bv.nearestPoint(co)) >= distSq {
		return Nearest[T, E]{}, false
	}

	nearest := Nearest[T, E]{DistSq: distSq}
	t.findNearestDFS(root, co, &proj, fn, &nearest)
	if !nearest.found {
		return Nearest[T, E]{}, false
	}
	return nearest, true
}

// FindNearestBounds returns the leaf whose bounds are the closest to co
// within the squared distance distSq.
func (t *Tree[T, E]) FindNearestBounds(co Vec3[T], distSq T) (Nearest[T, E], bool) {
	return t.FindNearest(co, distSq, nil)
}

func (t *Tree[T, E]) findNearestDFS(idx arena.Index, co Vec3[T], proj *[numKDOPAxes]T, fn NearestFunc[T, E], nearest *Nearest[T, E]) {
	n := t.node(idx)

	if n.isLeaf() {
		if fn != nil {
			fn(n.elem, co, nearest)
			return
		}

		p := n.bv.nearestPoint(co)
		nearest.Set(n.elem, p, Vec3[T]{}, co.DistSqr(p))
		return
	}

	visit := func(c arena.Index) {
		if co.DistSqr(t.node(c).bv.nearestPoint(co)) >= nearest.DistSq {
			return
		}
		t.findNearestDFS(c, co, proj, fn, nearest)
	}

	// Start with the side of the split the point is on.
	if proj[n.mainAxis] <= t.node(n.children[0]).bv.max(n.mainAxis) {
		for i := 0; i < n.totnode; i++ {
			visit(n.children[i])
		}
		return
	}
	for i := n.totnode - 1; i >= 0; i-- {
		visit(n.children[i])
	}
}
