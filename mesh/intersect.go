package mesh

import (
	"math"

	"github.com/aukilabs/kenaz/bvh"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

const floatEpsilon = 1e-9

// TrianglesIntersect reports whether two triangles share at least one point.
// Degenerated triangles never intersect.
func TrianglesIntersect(a, b [3]r3.Vector) bool {
	na := planeNormal(a)
	nb := planeNormal(b)
	if na.Norm2() == 0 || nb.Norm2() == 0 {
		return false
	}

	// Each triangle must cross or touch the plane of the other.
	db := signedDistances(b, a[0], na)
	if sameSide(db) {
		return false
	}
	if da := signedDistances(a, b[0], nb); sameSide(da) {
		return false
	}

	if math.Abs(db[0]) < floatEpsilon && math.Abs(db[1]) < floatEpsilon && math.Abs(db[2]) < floatEpsilon {
		return coplanarTrianglesIntersect(a, b, na)
	}

	for i := 0; i < 3; i++ {
		j := (i + 1) % 3
		if segmentHitsTriangle(a[i], a[j], b) || segmentHitsTriangle(b[i], b[j], a) {
			return true
		}
	}
	return false
}

func planeNormal(t [3]r3.Vector) r3.Vector {
	return t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
}

func signedDistances(t [3]r3.Vector, planePt, normal r3.Vector) [3]float64 {
	n := normal.Normalize()
	return [3]float64{
		n.Dot(t[0].Sub(planePt)),
		n.Dot(t[1].Sub(planePt)),
		n.Dot(t[2].Sub(planePt)),
	}
}

func sameSide(d [3]float64) bool {
	return (d[0] > floatEpsilon && d[1] > floatEpsilon && d[2] > floatEpsilon) ||
		(d[0] < -floatEpsilon && d[1] < -floatEpsilon && d[2] < -floatEpsilon)
}

func segmentHitsTriangle(p, q r3.Vector, t [3]r3.Vector) bool {
	dist, ok := bvh.RayTriangle(ToVec3(p), ToVec3(q.Sub(p)), ToVec3(t[0]), ToVec3(t[1]), ToVec3(t[2]))
	return ok && dist <= 1
}

func coplanarTrianglesIntersect(a, b [3]r3.Vector, normal r3.Vector) bool {
	pa := projectTriangle(a, normal)
	pb := projectTriangle(b, normal)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if segmentsIntersect(pa[i], pa[(i+1)%3], pb[j], pb[(j+1)%3]) {
				return true
			}
		}
	}

	// One triangle inside the other.
	return pointInTriangle(pa[0], pb) || pointInTriangle(pb[0], pa)
}

// projectTriangle drops the dominant axis of the normal.
func projectTriangle(t [3]r3.Vector, normal r3.Vector) [3]r2.Point {
	var res [3]r2.Point
	for i, p := range t {
		switch normal.Abs().LargestComponent() {
		case r3.XAxis:
			res[i] = r2.Point{X: p.Y, Y: p.Z}
		case r3.YAxis:
			res[i] = r2.Point{X: p.X, Y: p.Z}
		default:
			res[i] = r2.Point{X: p.X, Y: p.Y}
		}
	}
	return res
}

func orient(a, b, c r2.Point) float64 {
	return b.Sub(a).Cross(c.Sub(a))
}

func segmentsIntersect(p1, p2, q1, q2 r2.Point) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)

	if ((d1 > floatEpsilon && d2 < -floatEpsilon) || (d1 < -floatEpsilon && d2 > floatEpsilon)) &&
		((d3 > floatEpsilon && d4 < -floatEpsilon) || (d3 < -floatEpsilon && d4 > floatEpsilon)) {
		return true
	}

	return (math.Abs(d1) <= floatEpsilon && onSegment(q1, q2, p1)) ||
		(math.Abs(d2) <= floatEpsilon && onSegment(q1, q2, p2)) ||
		(math.Abs(d3) <= floatEpsilon && onSegment(p1, p2, q1)) ||
		(math.Abs(d4) <= floatEpsilon && onSegment(p1, p2, q2))
}

func onSegment(a, b, p r2.Point) bool {
	return p.X >= math.Min(a.X, b.X)-floatEpsilon && p.X <= math.Max(a.X, b.X)+floatEpsilon &&
		p.Y >= math.Min(a.Y, b.Y)-floatEpsilon && p.Y <= math.Max(a.Y, b.Y)+floatEpsilon
}

func pointInTriangle(p r2.Point, t [3]r2.Point) bool {
	d0 := orient(t[0], t[1], p)
	d1 := orient(t[1], t[2], p)
	d2 := orient(t[2], t[0], p)

	hasNeg := d0 < -floatEpsilon || d1 < -floatEpsilon || d2 < -floatEpsilon
	hasPos := d0 > floatEpsilon || d1 > floatEpsilon || d2 > floatEpsilon
	return !(hasNeg && hasPos)
}
