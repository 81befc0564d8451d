package bvh

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// The k-DOP directions. Trees use a contiguous range of them selected by
// their axis count.
var kdopAxes = [13][3]int8{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
	{1, 1, 1},
	{1, -1, 1},
	{1, 1, -1},
	{1, -1, -1},
	{1, 1, 0},
	{1, 0, 1},
	{0, 1, 1},
	{1, -1, 0},
	{1, 0, -1},
	{0, 1, -1},
}

const numKDOPAxes = len(kdopAxes)

// SupportedAxis reports whether axis is a supported number of k-DOP bounds.
func SupportedAxis(axis int) bool {
	switch axis {
	case 6, 8, 14, 18, 26:
		return true
	default:
		return false
	}
}

// axisRange returns the range of k-DOP directions used by a tree configured
// with the given axis count.
func axisRange(axis int) (start, stop int) {
	switch axis {
	case 26:
		return 0, 13
	case 18:
		return 7, 13
	case 14:
		return 0, 7
	case 8:
		return 0, 4
	case 6:
		return 0, 3
	default:
		panic(fmt.Sprintf("bvh: unsupported axis %d, must be one of 6, 8, 14, 18 or 26", axis))
	}
}

// project returns the dot product of p with the k-DOP direction i.
func project[T constraints.Float](p Vec3[T], i int) T {
	a := kdopAxes[i]
	return p[0]*T(a[0]) + p[1]*T(a[1]) + p[2]*T(a[2])
}

// Bounds are interleaved (min, max) pairs, one pair per k-DOP direction.
type bounds[T constraints.Float] []T

func (bv bounds[T]) min(axis int) T {
	return bv[2*axis]
}

func (bv bounds[T]) max(axis int) T {
	return bv[2*axis+1]
}

// reset sets every interval in [start, stop) to an empty one so that any
// extension replaces it.
func (bv bounds[T]) reset(start, stop int) {
	m := maxValue[T]()
	for i := start; i < stop; i++ {
		bv[2*i] = m
		bv[2*i+1] = -m
	}
}

// extend grows the intervals in [start, stop) to contain the projections of
// the given points.
func (bv bounds[T]) extend(start, stop int, points []Vec3[T]) {
	for _, p := range points {
		for i := start; i < stop; i++ {
			d := project(p, i)
			if d < bv[2*i] {
				bv[2*i] = d
			}
			if d > bv[2*i+1] {
				bv[2*i+1] = d
			}
		}
	}
}

// union grows the intervals in [start, stop) to contain the ones of o.
func (bv bounds[T]) union(o bounds[T], start, stop int) {
	for i := start; i < stop; i++ {
		if o[2*i] < bv[2*i] {
			bv[2*i] = o[2*i]
		}
		if o[2*i+1] > bv[2*i+1] {
			bv[2*i+1] = o[2*i+1]
		}
	}
}

func (bv bounds[T]) inflate(start, stop int, epsilon T) {
	for i := start; i < stop; i++ {
		bv[2*i] -= epsilon
		bv[2*i+1] += epsilon
	}
}

// overlaps reports whether bv and o intersect on every direction in
// [start, stop).
func (bv bounds[T]) overlaps(o bounds[T], start, stop int) bool {
	for i := start; i < stop; i++ {
		if bv[2*i] > o[2*i+1] || o[2*i] > bv[2*i+1] {
			return false
		}
	}
	return true
}

// nearestPoint clamps p into the cardinal intervals.
func (bv bounds[T]) nearestPoint(p Vec3[T]) Vec3[T] {
	var n Vec3[T]
	for i := 0; i < 3; i++ {
		v := p[i]
		if bv[2*i] > v {
			v = bv[2*i]
		}
		if bv[2*i+1] < v {
			v = bv[2*i+1]
		}
		n[i] = v
	}
	return n
}

// largestAxis returns the position of the max bound of the cardinal
// direction with the greatest extent. Ties resolve to the later direction.
func (bv bounds[T]) largestAxis() int {
	x := bv[1] - bv[0]
	y := bv[3] - bv[2]
	z := bv[5] - bv[4]

	if x > y {
		if x > z {
			return 1
		}
		return 5
	}
	if y > z {
		return 3
	}
	return 5
}

// rayHit returns the entry distance of the ray described by r into the
// cardinal slabs of bv. It fails when the ray misses or when the entry is
// beyond dist.
func (bv bounds[T]) rayHit(r *rayCast[T], dist T) (T, bool) {
	t1x := (bv[r.index[0]] - r.origin[0]) * r.idot[0]
	t2x := (bv[r.index[1]] - r.origin[0]) * r.idot[0]
	t1y := (bv[r.index[2]] - r.origin[1]) * r.idot[1]
	t2y := (bv[r.index[3]] - r.origin[1]) * r.idot[1]
	t1z := (bv[r.index[4]] - r.origin[2]) * r.idot[2]
	t2z := (bv[r.index[5]] - r.origin[2]) * r.idot[2]

	if t1x > t2y || t2x < t1y || t1x > t2z || t2x < t1z || t1y > t2z || t2y < t1z {
		return 0, false
	}
	if t2x < 0 || t2y < 0 || t2z < 0 {
		return 0, false
	}
	if t1x > dist || t1y > dist || t1z > dist {
		return 0, false
	}
	return max(t1x, t1y, t1z), true
}
