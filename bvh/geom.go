package bvh

import "golang.org/x/exp/constraints"

// NearestPointOnTriangle returns the point of the triangle (a, b, c) closest
// to p.
func NearestPointOnTriangle[T constraints.Float](p, a, b, c Vec3[T]) Vec3[T] {
	ab := b.Sub(a)
	ac := c.Sub(a)

	// Vertex region outside a.
	ap := p.Sub(a)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	// Vertex region outside b.
	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	// Edge region of ab.
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v))
	}

	// Vertex region outside c.
	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	// Edge region of ac.
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w))
	}

	// Edge region of bc.
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w))
	}

	// Face region.
	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}

// RayTriangle returns the distance along dir at which the ray starting at
// origin crosses the triangle (a, b, c). Both faces of the triangle are hit.
func RayTriangle[T constraints.Float](origin, dir, a, b, c Vec3[T]) (T, bool) {
	eps := machineEpsilon[T]()

	ab := b.Sub(a)
	ac := c.Sub(a)
	pvec := dir.Cross(ac)

	det := ab.Dot(pvec)
	if abs(det) < eps {
		return 0, false
	}
	invDet := 1 / det

	tvec := origin.Sub(a)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}

	qvec := tvec.Cross(ab)
	v := dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}

	dist := ac.Dot(qvec) * invDet
	if dist < 0 {
		return 0, false
	}
	return dist, true
}

// TriangleNormal returns the unit normal of the triangle (a, b, c) following
// the counter-clockwise winding.
func TriangleNormal[T constraints.Float](a, b, c Vec3[T]) Vec3[T] {
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}
