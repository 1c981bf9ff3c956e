// Package gjk implements the Gilbert-Johnson-Keerthi (GJK) distance algorithm in 2D.
//
// GJK walks the Minkowski difference B - A of two convex shapes, keeping the edge (v0, v1)
// closest to the origin. When the shapes are separated it converges on the closest features
// and returns the closest points, the separating normal and the distance. When the origin
// ends up inside a triangle of support points, the shapes overlap and the triangle is handed
// to EPA to measure the penetration.
//
// Each support point carries the index of the vertex it came from on both shapes. The indexes
// of the final edge are packed into a collision id; passing the id of the previous step back
// to GJK restarts the search from the same features, which usually converges immediately.
//
// Every orientation decision goes through geom.CheckPointGreater, so the same inputs give
// the same answer on every platform.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Lembcke: Chipmunk2D collision (cpCollision.c)
package gjk

import (
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxIterations bounds the number of edge refinements.
const MaxIterations = 30

// fallbackAxis starts the search when the shapes give no direction to start from.
var fallbackAxis = mgl64.Vec2{1, 0}

// Shape is a convex shape as seen by GJK. actor.Shape implements it.
type Shape interface {
	// SupportPoint returns the vertex furthest along n and its index
	SupportPoint(n mgl64.Vec2) (mgl64.Vec2, int)
	// ShapePoint returns vertex i, used to restart from a cached id
	ShapePoint(i int) mgl64.Vec2
	BB() geom.BB
}

// MinkowskiPoint is a point of the Minkowski difference B - A, with the points of A and B it came from.
type MinkowskiPoint struct {
	A, B mgl64.Vec2
	AB   mgl64.Vec2
	ID   uint32
}

// NewMinkowskiPoint combines vertex ia of A at a with vertex ib of B at b.
func NewMinkowskiPoint(a mgl64.Vec2, ia int, b mgl64.Vec2, ib int) MinkowskiPoint {
	return MinkowskiPoint{
		A:  a,
		B:  b,
		AB: b.Sub(a),
		ID: uint32(ia&0xFF)<<8 | uint32(ib&0xFF),
	}
}

// Context holds the two shapes being compared.
type Context struct {
	A, B Shape
}

// Support returns the point of B - A furthest along n.
func (c *Context) Support(n mgl64.Vec2) MinkowskiPoint {
	a, ia := c.A.SupportPoint(geom.Neg(n))
	b, ib := c.B.SupportPoint(n)
	return NewMinkowskiPoint(a, ia, b, ib)
}

// Simplex is the triangle of support points that contains the origin when the shapes overlap.
type Simplex struct {
	Points [3]MinkowskiPoint
	Count  int
}

func (s *Simplex) Reset() {
	s.Count = 0
}

// ClosestPoints is the result of GJK or EPA.
// N points from A to B. D is the distance between the shapes, negative when they overlap.
type ClosestPoints struct {
	A, B mgl64.Vec2
	N    mgl64.Vec2
	D    float64
	ID   uint32
}

// ClosestT returns the position in [-1, 1] of the point of segment (a, b) closest to the origin.
// A degenerate segment returns 1, its b end.
func ClosestT(a, b mgl64.Vec2) float64 {
	delta := b.Sub(a)
	lenSqr := delta.LenSqr()
	if lenSqr == 0 {
		return 1
	}
	return -mgl64.Clamp(delta.Dot(a.Add(b))/lenSqr, -1, 1)
}

// LerpT interpolates a (t = -1) to b (t = 1).
func LerpT(a, b mgl64.Vec2, t float64) mgl64.Vec2 {
	ht := 0.5 * t
	return a.Mul(0.5 - ht).Add(b.Mul(0.5 + ht))
}

// ClosestDist is the squared distance from the origin to segment (v0, v1).
func ClosestDist(v0, v1 mgl64.Vec2) float64 {
	return LerpT(v0, v1, ClosestT(v0, v1)).LenSqr()
}

// NewClosestPoints measures the edge (v0, v1) of the Minkowski difference.
func NewClosestPoints(v0, v1 MinkowskiPoint) ClosestPoints {
	t := ClosestT(v0.AB, v1.AB)
	p := LerpT(v0.AB, v1.AB, t)

	pa := LerpT(v0.A, v1.A, t)
	pb := LerpT(v0.B, v1.B, t)
	id := (v0.ID&0xFFFF)<<16 | (v1.ID & 0xFFFF)

	delta := v1.AB.Sub(v0.AB)
	n := geom.NormalizeSafe(geom.RPerp(delta))
	d := n.Dot(p)

	// overlapping shapes, or a closest point inside the edge: the edge normal is the axis
	if delta != (mgl64.Vec2{}) && (d <= 0 || (-1 < t && t < 1)) {
		return ClosestPoints{A: pa, B: pb, N: n, D: d, ID: id}
	}

	// vertex/vertex: the axis is not an edge normal of the difference
	d2 := p.Len()
	return ClosestPoints{A: pa, B: pb, N: p.Mul(1 / (d2 + geom.Epsilon)), D: d2, ID: id}
}

// GJK finds the closest points of the shapes in ctx. id is the collision id of the previous
// step, or 0. When the shapes overlap, GJK reports true and simplex holds the triangle
// enclosing the origin for EPA; the returned points are then meaningless.
func GJK(ctx *Context, id uint32, simplex *Simplex) (ClosestPoints, bool) {
	simplex.Reset()

	var v0, v1 MinkowskiPoint
	if id != 0 {
		v0 = cachedPoint(ctx, int(id>>24&0xFF), int(id>>16&0xFF))
		v1 = cachedPoint(ctx, int(id>>8&0xFF), int(id&0xFF))
	} else {
		axis := geom.Perp(ctx.A.BB().Center().Sub(ctx.B.BB().Center()))
		if axis == (mgl64.Vec2{}) {
			// concentric bounding boxes
			axis = fallbackAxis
		}
		v0 = ctx.Support(axis)
		v1 = ctx.Support(geom.Neg(axis))
	}

	for i := 1; i <= MaxIterations; {
		// origin behind the edge: flip it
		if geom.CheckPointGreater(v1.AB, v0.AB, geom.Zero) {
			v0, v1 = v1, v0
			continue
		}

		t := ClosestT(v0.AB, v1.AB)
		var n mgl64.Vec2
		if -1 < t && t < 1 {
			n = geom.Perp(v1.AB.Sub(v0.AB))
		} else {
			n = geom.Neg(LerpT(v0.AB, v1.AB, t))
		}
		if n == (mgl64.Vec2{}) {
			n = searchAxis(v0.AB, v1.AB)
		}
		p := ctx.Support(n)

		if geom.CheckPointGreater(p.AB, v0.AB, geom.Zero) && geom.CheckPointGreater(v1.AB, p.AB, geom.Zero) {
			simplex.Points = [3]MinkowskiPoint{v0, p, v1}
			simplex.Count = 3
			return ClosestPoints{}, true
		}

		// p is no closer than the current edge
		if geom.CheckAxis(v0.AB, v1.AB, p.AB, n) {
			return NewClosestPoints(v0, v1), false
		}

		if ClosestDist(v0.AB, p.AB) < ClosestDist(p.AB, v1.AB) {
			v1 = p
		} else {
			v0 = p
		}
		i++
	}

	return NewClosestPoints(v0, v1), false
}

// searchAxis replaces a null search direction, found when the origin is a vertex of the edge.
func searchAxis(v0, v1 mgl64.Vec2) mgl64.Vec2 {
	if delta := v1.Sub(v0); delta != (mgl64.Vec2{}) {
		return geom.Perp(delta)
	}
	return fallbackAxis
}

func cachedPoint(ctx *Context, ia, ib int) MinkowskiPoint {
	return NewMinkowskiPoint(ctx.A.ShapePoint(ia), ia, ctx.B.ShapePoint(ib), ib)
}
