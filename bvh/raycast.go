package bvh

import (
	"github.com/aukilabs/kenaz/bvh/arena"
	"golang.org/x/exp/constraints"
)

// RayHit describes where a ray hits an element.
type RayHit[T constraints.Float, E any] struct {
	Elem   E
	Point  Vec3[T]
	Normal Vec3[T]
	Dist   T
}

// RayCastFunc tests a ray against the element of a leaf whose bounds the ray
// crosses. It returns false when the ray misses the element.
type RayCastFunc[T constraints.Float, E any] func(elem E, origin, dir Vec3[T]) (RayHit[T, E], bool)

type rayCast[T constraints.Float] struct {
	origin Vec3[T]
	dir    Vec3[T]

	// Ray direction dotted with the cardinal directions, and its inverse.
	dot  [3]T
	idot [3]T

	// Bound positions of the near and far slabs, per cardinal direction.
	index [6]int
}

func newRayCast[T constraints.Float](origin, dir Vec3[T]) rayCast[T] {
	r := rayCast[T]{
		origin: origin,
		dir:    dir,
	}

	for i := 0; i < 3; i++ {
		r.dot[i] = project(dir, i)
		if abs(r.dot[i]) < machineEpsilon[T]() {
			r.dot[i] = 0
			r.idot[i] = maxValue[T]()
		} else {
			r.idot[i] = 1 / r.dot[i]
		}

		var far int
		if r.idot[i] < 0 {
			far = 1
		}
		r.index[2*i] = 2*i + far
		r.index[2*i+1] = 2*i + 1 - far
	}

	return r
}

// RayCast returns the closest element hit by the ray starting at origin in
// the direction dir. Each leaf whose bounds the ray crosses is tested with
// fn. When fn is nil, the hit is reported on the leaf bounds.
func (t *Tree[T, E]) RayCast(origin, dir Vec3[T], fn RayCastFunc[T, E]) (RayHit[T, E], bool) {
	root, ok := t.root()
	if !ok {
		return RayHit[T, E]{}, false
	}

	r := newRayCast(origin, dir)
	hit := RayHit[T, E]{Dist: maxValue[T]()}
	var found bool

	t.rayCastTraverse(root, &r, fn, &hit, &found)
	if !found {
		return RayHit[T, E]{}, false
	}
	return hit, true
}

// RayCastBounds returns the closest leaf whose bounds are hit by the ray
// starting at origin in the direction dir.
func (t *Tree[T, E]) RayCastBounds(origin, dir Vec3[T]) (RayHit[T, E], bool) {
	return t.RayCast(origin, dir, nil)
}

func (t *Tree[T, E]) rayCastTraverse(idx arena.Index, r *rayCast[T], fn RayCastFunc[T, E], hit *RayHit[T, E], found *bool) {
	n := t.node(idx)

	dist, ok := n.bv.rayHit(r, hit.Dist)
	if !ok || dist >= hit.Dist {
		return
	}

	if n.isLeaf() {
		if fn == nil {
			*hit = RayHit[T, E]{
				Elem:  n.elem,
				Point: r.origin.Add(r.dir.Mul(dist)),
				Dist:  dist,
			}
			*found = true
			return
		}

		if h, ok := fn(n.elem, r.origin, r.dir); ok && h.Dist < hit.Dist {
			*hit = h
			*found = true
		}
		return
	}

	// Front to back.
	if r.dot[n.mainAxis] > 0 {
		for i := 0; i < n.totnode; i++ {
			t.rayCastTraverse(n.children[i], r, fn, hit, found)
		}
		return
	}
	for i := n.totnode - 1; i >= 0; i-- {
		t.rayCastTraverse(n.children[i], r, fn, hit, found)
	}
}
