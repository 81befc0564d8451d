// Package bvh implements a bounding volume hierarchy over k-DOP (discrete
// oriented polytope) bounding volumes.
//
// A tree is filled once with Insert, built with Balance, and then queried with
// RayCast, FindNearest or Overlap. Leaves can be refitted afterwards with
// UpdateNode followed by UpdateTree.
//
// A Tree is not safe for concurrent use.
package bvh

import (
	"fmt"

	"github.com/aukilabs/kenaz/bvh/arena"
	"golang.org/x/exp/constraints"
)

const (
	// MinTreeType is the smallest supported number of children per branch.
	MinTreeType = 2

	// MaxTreeType is the largest supported number of children per branch.
	MaxTreeType = 32
)

// Tree is a bounding volume hierarchy whose leaves hold elements of type E.
type Tree[T constraints.Float, E any] struct {
	// Handles of leaves in [0, totleaf) followed by handles of branches in
	// [totleaf, totleaf+totbranch). The root is at totleaf.
	nodes []arena.Index
	store *arena.Arena[node[T, E]]

	epsilon   T
	totleaf   int
	totbranch int
	maxSize   int
	startAxis int
	stopAxis  int
	axis      int
	treeType  int
	balanced  bool
}

// New creates an empty tree that can hold up to maxSize leaves.
//
// treeType is the number of children of each branch and must be in
// [MinTreeType, MaxTreeType]. axis is the number of k-DOP bounds and must be
// one of 6, 8, 14, 18 or 26. Leaves are inflated by epsilon, which is never
// less than the machine epsilon of T.
//
// New panics when treeType or axis are not supported.
func New[T constraints.Float, E any](maxSize int, epsilon T, treeType, axis int) *Tree[T, E] {
	if treeType < MinTreeType || treeType > MaxTreeType {
		panic(fmt.Sprintf("bvh: tree type must be >= %d and <= %d, got %d", MinTreeType, MaxTreeType, treeType))
	}
	if maxSize < 0 {
		panic(fmt.Sprintf("bvh: negative max size %d", maxSize))
	}

	startAxis, stopAxis := axisRange(axis)
	epsilon = max(epsilon, machineEpsilon[T]())

	numNodes := maxSize + implicitNeededBranches(treeType, maxSize) + treeType
	nodes := make([]arena.Index, numNodes)
	store := arena.New[node[T, E]](numNodes)
	for i := range nodes {
		nodes[i] = arena.Unknown
		store.Insert(newNode[T, E](2*stopAxis, treeType))
	}

	return &Tree[T, E]{
		nodes:     nodes,
		store:     store,
		epsilon:   epsilon,
		maxSize:   maxSize,
		startAxis: startAxis,
		stopAxis:  stopAxis,
		axis:      axis,
		treeType:  treeType,
	}
}

// Insert adds a leaf holding elem whose bounds contain the given points.
// Leaves are numbered in insertion order, starting at 0.
//
// Insert panics when called after Balance or when the tree is full.
func (t *Tree[T, E]) Insert(elem E, points []Vec3[T]) {
	if t.balanced {
		panic("bvh: insert called after balance")
	}
	if t.totleaf >= t.maxSize {
		panic(fmt.Sprintf("bvh: tree is full (%d leaves)", t.maxSize))
	}

	idx := t.store.IndexAt(t.totleaf)
	t.nodes[t.totleaf] = idx
	t.totleaf++

	n := t.node(idx)
	n.bv.reset(0, t.stopAxis)
	n.bv.extend(0, t.stopAxis, points)
	n.bv.inflate(0, t.stopAxis, t.epsilon)
	n.elem = elem
	n.hasElem = true
}

// Balance builds the branches over the inserted leaves. It must be called
// once, after all the leaves are inserted.
//
// Balance panics when called more than once.
func (t *Tree[T, E]) Balance() {
	if t.balanced {
		panic("bvh: balance called more than once")
	}
	t.balanced = true

	if t.totleaf == 0 {
		return
	}

	t.divideNodes(t.totleaf-1, t.totleaf)

	// A single leaf still gets a root.
	t.totbranch = max(1, implicitNeededBranches(t.treeType, t.totleaf))
	for i := 0; i < t.totbranch; i++ {
		t.nodes[t.totleaf+i] = t.store.IndexAt(t.totleaf + i)
	}
}

// UpdateNode recomputes the bounds of the leaf inserted at the given
// position so they contain points, and moving when it is not empty. Call
// UpdateTree once all the leaves are updated.
//
// It returns an error typed ErrTypeIndexOutOfRange when index does not refer
// to an inserted leaf, and ErrTypeDifferentNumPoints when moving is not empty
// and its size differs from points.
func (t *Tree[T, E]) UpdateNode(index int, points, moving []Vec3[T]) error {
	if index < 0 || index >= t.totleaf {
		return errIndexOutOfRange(index, t.totleaf)
	}
	if len(moving) != 0 && len(points) != len(moving) {
		return errDifferentNumPoints(len(points), len(moving))
	}

	n := t.node(t.store.IndexAt(index))
	n.bv.reset(0, t.stopAxis)
	n.bv.extend(0, t.stopAxis, points)
	n.bv.extend(0, t.stopAxis, moving)
	n.bv.inflate(0, t.stopAxis, t.epsilon)
	return nil
}

// UpdateTree refits every branch to its children, from the deepest ones up to
// the root. The tree topology is left untouched.
func (t *Tree[T, E]) UpdateTree() {
	if t.totleaf == 0 {
		return
	}

	for i := t.totleaf + t.totbranch - 1; i >= t.totleaf; i-- {
		t.joinNode(i)
	}
}

func (t *Tree[T, E]) joinNode(position int) {
	n := t.node(t.nodes[position])
	n.bv.reset(0, t.stopAxis)

	for _, c := range n.children[:n.totnode] {
		n.bv.union(t.node(c).bv, 0, t.stopAxis)
	}
}

// Len returns the number of inserted leaves.
func (t *Tree[T, E]) Len() int {
	return t.totleaf
}

// BranchCount returns the number of branches. It is 0 until the tree is
// balanced.
func (t *Tree[T, E]) BranchCount() int {
	return t.totbranch
}

// Cap returns the maximum number of leaves.
func (t *Tree[T, E]) Cap() int {
	return t.maxSize
}

func (t *Tree[T, E]) TreeType() int {
	return t.treeType
}

func (t *Tree[T, E]) Axis() int {
	return t.axis
}

func (t *Tree[T, E]) Epsilon() T {
	return t.epsilon
}

// Balanced reports whether Balance was called.
func (t *Tree[T, E]) Balanced() bool {
	return t.balanced
}

// MinMaxBounds returns the corners of the box containing every leaf. It
// returns false when the tree has no root.
func (t *Tree[T, E]) MinMaxBounds() (Vec3[T], Vec3[T], bool) {
	root, ok := t.root()
	if !ok {
		return Vec3[T]{}, Vec3[T]{}, false
	}

	bv := t.node(root).bv
	return Vec3[T]{bv[0], bv[2], bv[4]}, Vec3[T]{bv[1], bv[3], bv[5]}, true
}

// NodeInfo describes a node visited by Walk.
type NodeInfo[T constraints.Float, E any] struct {
	Depth    int
	Min      Vec3[T]
	Max      Vec3[T]
	Leaf     bool
	Elem     E
	Children int
}

// Walk visits the nodes depth first, starting at the root at depth 0. The
// children of a node are skipped when fn returns false.
func (t *Tree[T, E]) Walk(fn func(NodeInfo[T, E]) bool) {
	root, ok := t.root()
	if !ok {
		return
	}
	t.walk(root, 0, fn)
}

func (t *Tree[T, E]) walk(idx arena.Index, depth int, fn func(NodeInfo[T, E]) bool) {
	n := t.node(idx)
	info := NodeInfo[T, E]{
		Depth:    depth,
		Min:      Vec3[T]{n.bv[0], n.bv[2], n.bv[4]},
		Max:      Vec3[T]{n.bv[1], n.bv[3], n.bv[5]},
		Leaf:     n.isLeaf(),
		Elem:     n.elem,
		Children: n.totnode,
	}
	if !fn(info) {
		return
	}

	for _, c := range n.children[:n.totnode] {
		t.walk(c, depth+1, fn)
	}
}

// Depth returns the number of levels below the root.
func (t *Tree[T, E]) Depth() int {
	var depth int
	t.Walk(func(n NodeInfo[T, E]) bool {
		depth = max(depth, n.Depth)
		return true
	})
	return depth
}

func (t *Tree[T, E]) root() (arena.Index, bool) {
	if !t.balanced || t.totleaf == 0 {
		return arena.Unknown, false
	}
	return t.nodes[t.totleaf], true
}

func (t *Tree[T, E]) node(idx arena.Index) *node[T, E] {
	return t.store.MustGet(idx)
}

// implicitNeededBranches returns the number of branches of a treeType-ary
// tree holding the given number of leaves.
func implicitNeededBranches(treeType, leafs int) int {
	return max(1, leafs+treeType-3) / (treeType - 1)
}
