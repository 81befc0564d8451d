package bvh

import (
	"github.com/aukilabs/kenaz/bvh/arena"
	"golang.org/x/exp/constraints"
)

// Overlap is a pair of elements whose leaf bounds intersect.
type Overlap[E any] struct {
	A E
	B E
}

// OverlapFunc decides whether a pair of elements with intersecting bounds is
// reported.
type OverlapFunc[E any] func(a, b E) bool

// Overlap returns the pairs of elements of t and other whose leaf bounds
// intersect and, when fn is not nil, for which fn returns true. A is always
// the element from t and B the one from other.
//
// When other is t, a leaf never overlaps itself and each pair is reported
// once.
//
// Overlap panics when one tree uses 14 axes and the other 18.
func (t *Tree[T, E]) Overlap(other *Tree[T, E], fn OverlapFunc[E]) []Overlap[E] {
	if t.axis != other.axis &&
		(t.axis == 14 || other.axis == 14) &&
		(t.axis == 18 || other.axis == 18) {
		panic("bvh: trees not compatible for overlap check")
	}

	root1, ok := t.root()
	if !ok {
		return nil
	}
	root2, ok := other.root()
	if !ok {
		return nil
	}

	o := overlapTraversal[T, E]{
		tree1:     t,
		tree2:     other,
		startAxis: min(t.startAxis, other.startAxis),
		stopAxis:  min(t.stopAxis, other.stopAxis),
		fn:        fn,
	}

	if !t.node(root1).bv.overlaps(other.node(root2).bv, o.startAxis, o.stopAxis) {
		return nil
	}

	o.traverse(root1, root2)
	return o.pairs
}

type overlapTraversal[T constraints.Float, E any] struct {
	tree1     *Tree[T, E]
	tree2     *Tree[T, E]
	startAxis int
	stopAxis  int
	fn        OverlapFunc[E]
	pairs     []Overlap[E]
}

func (o *overlapTraversal[T, E]) traverse(idx1, idx2 arena.Index) {
	n1 := o.tree1.node(idx1)
	n2 := o.tree2.node(idx2)
	if !n1.bv.overlaps(n2.bv, o.startAxis, o.stopAxis) {
		return
	}

	if !n1.isLeaf() {
		for _, c := range n1.children[:n1.totnode] {
			o.traverse(c, idx2)
		}
		return
	}

	if !n2.isLeaf() {
		for _, c := range n2.children[:n2.totnode] {
			o.traverse(idx1, c)
		}
		return
	}

	// Within a single tree every pair is visited in both orders.
	if o.tree1 == o.tree2 && idx1 >= idx2 {
		return
	}

	if o.fn != nil && !o.fn(n1.elem, n2.elem) {
		return
	}
	o.pairs = append(o.pairs, Overlap[E]{A: n1.elem, B: n2.elem})
}
