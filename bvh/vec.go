package bvh

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Vec3 is a 3D vector. Its layout matches mgl32.Vec3 and mgl64.Vec3 so they
// convert to each other directly.
type Vec3[T constraints.Float] [3]T

func (v Vec3[T]) Add(u Vec3[T]) Vec3[T] {
	return Vec3[T]{v[0] + u[0], v[1] + u[1], v[2] + u[2]}
}

func (v Vec3[T]) Sub(u Vec3[T]) Vec3[T] {
	return Vec3[T]{v[0] - u[0], v[1] - u[1], v[2] - u[2]}
}

func (v Vec3[T]) Mul(s T) Vec3[T] {
	return Vec3[T]{v[0] * s, v[1] * s, v[2] * s}
}

func (v Vec3[T]) Dot(u Vec3[T]) T {
	return v[0]*u[0] + v[1]*u[1] + v[2]*u[2]
}

func (v Vec3[T]) Cross(u Vec3[T]) Vec3[T] {
	return Vec3[T]{
		v[1]*u[2] - v[2]*u[1],
		v[2]*u[0] - v[0]*u[2],
		v[0]*u[1] - v[1]*u[0],
	}
}

// LenSqr returns the squared length of v.
func (v Vec3[T]) LenSqr() T {
	return v.Dot(v)
}

func (v Vec3[T]) Len() T {
	return T(math.Sqrt(float64(v.LenSqr())))
}

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vec3[T]) Normalize() Vec3[T] {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Mul(1 / l)
}

// DistSqr returns the squared distance between v and u.
func (v Vec3[T]) DistSqr(u Vec3[T]) T {
	return v.Sub(u).LenSqr()
}

// is32 reports whether T has single precision.
func is32[T constraints.Float]() bool {
	v := float64(1<<24 + 1)
	return float64(T(v)) != v
}

// machineEpsilon returns the difference between 1 and the next representable
// value of T.
func machineEpsilon[T constraints.Float]() T {
	if is32[T]() {
		return T(math.Nextafter32(1, 2) - 1)
	}
	return T(math.Nextafter(1, 2) - 1)
}

// maxValue returns the largest finite value of T.
func maxValue[T constraints.Float]() T {
	m := math.MaxFloat64
	if is32[T]() {
		m = math.MaxFloat32
	}
	return T(m)
}

func abs[T constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}
