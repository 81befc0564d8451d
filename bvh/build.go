package bvh

import "github.com/aukilabs/kenaz/bvh/arena"

const maxBuildDepth = 32

// buildHelper describes the implicit layout of a balanced tree: the leaf
// range owned by any subtree is derived from its depth and its position in
// its level.
type buildHelper struct {
	totleafs int

	// Minimum number of leaves reachable from a node at a given depth.
	leafsPerChild [maxBuildDepth]int

	// Number of nodes at a given depth.
	branchesOnLevel [maxBuildDepth]int

	// Number of leaves placed on the level that is not completely filled.
	remainLeafs int
}

func newBuildHelper(treeType, totleafs int) buildHelper {
	h := buildHelper{totleafs: totleafs}

	// Smallest power of treeType that holds every leaf.
	h.leafsPerChild[0] = 1
	for h.leafsPerChild[0] < totleafs {
		h.leafsPerChild[0] *= treeType
	}

	h.branchesOnLevel[0] = 1
	for depth := 1; depth < maxBuildDepth && h.leafsPerChild[depth-1] != 0; depth++ {
		h.branchesOnLevel[depth] = h.branchesOnLevel[depth-1] * treeType
		h.leafsPerChild[depth] = h.leafsPerChild[depth-1] / treeType
	}

	remain := totleafs - h.leafsPerChild[1]
	nnodes := (remain + treeType - 2) / (treeType - 1)
	h.remainLeafs = remain + nnodes
	return h
}

// leafsIndex returns the position of the first leaf owned by the childIndex
// node of the given depth.
func (h *buildHelper) leafsIndex(depth, childIndex int) int {
	minLeafIndex := childIndex * h.leafsPerChild[depth-1]
	if minLeafIndex <= h.remainLeafs {
		return minLeafIndex
	}
	if h.leafsPerChild[depth] != 0 {
		return h.totleafs - (h.branchesOnLevel[depth-1]-childIndex)*h.leafsPerChild[depth]
	}
	return h.remainLeafs
}

type divideLevel struct {
	helper           *buildHelper
	branchesStart    int
	treeOffset       int
	depth            int
	first            int
	firstOfNextLevel int
}

// divideNodes creates the branches level by level, from the root down. The
// branch numbered j (starting at 1) is stored at branchesStart+j.
func (t *Tree[T, E]) divideNodes(branchesStart, numLeafs int) {
	if numLeafs == 1 {
		rootIdx := t.store.IndexAt(branchesStart + 1)
		t.refitHull(rootIdx, 0, numLeafs)

		root := t.node(rootIdx)
		root.mainAxis = root.bv.largestAxis() / 2
		root.totnode = 1
		root.children[0] = t.nodes[0]
		t.node(t.nodes[0]).parent = rootIdx
		t.nodes[1] = rootIdx
		return
	}

	helper := newBuildHelper(t.treeType, numLeafs)
	numBranches := implicitNeededBranches(t.treeType, numLeafs)

	level := divideLevel{
		helper:        &helper,
		branchesStart: branchesStart,
		treeOffset:    2 - t.treeType,
	}

	for i, depth := 1, 1; i <= numBranches; depth++ {
		firstOfNextLevel := i*t.treeType + level.treeOffset
		stop := min(firstOfNextLevel, numBranches+1)

		level.depth = depth
		level.first = i
		level.firstOfNextLevel = firstOfNextLevel

		for j := i; j < stop; j++ {
			t.divideBranch(&level, j)
		}

		i = firstOfNextLevel
	}
}

func (t *Tree[T, E]) divideBranch(level *divideLevel, j int) {
	h := level.helper
	parentLevelIndex := j - level.first

	begin := h.leafsIndex(level.depth, parentLevelIndex)
	end := h.leafsIndex(level.depth, parentLevelIndex+1)

	parentIdx := t.store.IndexAt(level.branchesStart + j)
	t.refitHull(parentIdx, begin, end)

	parent := t.node(parentIdx)
	splitAxis := parent.bv.largestAxis()
	parent.mainAxis = splitAxis / 2

	// Each child must get the leaves it would get if the range was sorted, so
	// partitioning around the child boundaries is enough.
	var nth [MaxTreeType + 1]int
	nth[0] = begin
	nth[t.treeType] = end
	for k := 1; k < t.treeType; k++ {
		childIndex := j*t.treeType + level.treeOffset + k
		nth[k] = h.leafsIndex(level.depth+1, childIndex-level.firstOfNextLevel)
	}
	t.splitLeafs(nth[:t.treeType+1], splitAxis)

	totnode := 0
	for k := 0; k < t.treeType; k++ {
		childIndex := j*t.treeType + level.treeOffset + k
		childLevelIndex := childIndex - level.firstOfNextLevel

		childBegin := h.leafsIndex(level.depth+1, childLevelIndex)
		childEnd := h.leafsIndex(level.depth+1, childLevelIndex+1)

		childIdx := arena.Unknown
		switch n := childEnd - childBegin; {
		case n > 1:
			childIdx = t.store.IndexAt(level.branchesStart + childIndex)
		case n == 1:
			childIdx = t.nodes[childBegin]
		}
		if !childIdx.Valid() {
			break
		}

		parent.children[k] = childIdx
		t.node(childIdx).parent = parentIdx
		totnode++
	}

	parent.totnode = totnode
}

// refitHull sets the bounds of the node to the union of the leaves in
// [begin, end).
func (t *Tree[T, E]) refitHull(idx arena.Index, begin, end int) {
	n := t.node(idx)
	n.bv.reset(0, t.stopAxis)

	for _, leaf := range t.nodes[begin:end] {
		n.bv.union(t.node(leaf).bv, 0, t.stopAxis)
	}
}

func (t *Tree[T, E]) splitLeafs(nth []int, splitAxis int) {
	partitions := len(nth) - 1
	for i := 0; i < partitions-1; i++ {
		if nth[i] >= nth[partitions] {
			break
		}
		t.partitionNthElement(nth[i], nth[partitions], nth[i+1], splitAxis)
	}
}

// partitionNthElement reorders the leaves in [begin, end) so that the ones
// before n have a key lower or equal to the ones after it.
func (t *Tree[T, E]) partitionNthElement(begin, end, n, axis int) {
	for end-begin > 3 {
		pivot := t.medianOf3(begin, (begin+end)/2, end-1, axis)
		cut := t.partition(begin, end, pivot, axis)
		if cut <= n {
			begin = cut
		} else {
			end = cut
		}
	}

	t.insertionSort(begin, end, axis)
}

func (t *Tree[T, E]) key(position, axis int) T {
	return t.node(t.nodes[position]).bv[axis]
}

func (t *Tree[T, E]) partition(lo, hi int, pivot arena.Index, axis int) int {
	x := t.node(pivot).bv[axis]
	i, j := lo, hi

	for {
		for t.key(i, axis) < x {
			i++
		}

		j--
		for x < t.key(j, axis) {
			j--
		}

		if i >= j {
			return i
		}

		t.nodes[i], t.nodes[j] = t.nodes[j], t.nodes[i]
		i++
	}
}

func (t *Tree[T, E]) medianOf3(lo, mid, hi, axis int) arena.Index {
	klo := t.key(lo, axis)
	kmid := t.key(mid, axis)
	khi := t.key(hi, axis)

	if kmid < klo {
		if khi < kmid {
			return t.nodes[mid]
		}
		if khi < klo {
			return t.nodes[hi]
		}
		return t.nodes[lo]
	}

	if khi < kmid {
		if khi < klo {
			return t.nodes[lo]
		}
		return t.nodes[hi]
	}
	return t.nodes[mid]
}

func (t *Tree[T, E]) insertionSort(lo, hi, axis int) {
	for i := lo; i < hi; i++ {
		idx := t.nodes[i]
		k := t.node(idx).bv[axis]

		j := i
		for j != lo && k < t.key(j-1, axis) {
			t.nodes[j] = t.nodes[j-1]
			j--
		}
		t.nodes[j] = idx
	}
}
