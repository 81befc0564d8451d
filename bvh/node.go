package bvh

import (
	"github.com/aukilabs/kenaz/bvh/arena"
	"golang.org/x/exp/constraints"
)

type node[T constraints.Float, E any] struct {
	children []arena.Index
	parent   arena.Index
	bv       bounds[T]

	// Set on leaves only.
	elem    E
	hasElem bool

	// Number of used children, 0 on leaves.
	totnode int

	// Cardinal direction the node was split on.
	mainAxis int
}

func newNode[T constraints.Float, E any](numBounds, treeType int) node[T, E] {
	children := make([]arena.Index, treeType)
	for i := range children {
		children[i] = arena.Unknown
	}

	return node[T, E]{
		children: children,
		parent:   arena.Unknown,
		bv:       make(bounds[T], numBounds),
	}
}

func (n *node[T, E]) isLeaf() bool {
	return n.totnode == 0
}
