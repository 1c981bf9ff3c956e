// Package geom holds the 2D math shared by every other package: vector helpers on top of mgl64.Vec2,
// affine transforms, bounding boxes, the robust orientation predicate, convex hulls and mass helpers.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon guards divisions by lengths that can collapse to zero.
const Epsilon = 1e-300

var Zero = mgl64.Vec2{0, 0}

// Cross returns the z component of the 3D cross product of a and b.
func Cross(a, b mgl64.Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// Perp rotates v by 90 degrees counter-clockwise.
func Perp(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-v[1], v[0]}
}

// RPerp rotates v by 90 degrees clockwise.
func RPerp(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{v[1], -v[0]}
}

func Neg(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-v[0], -v[1]}
}

// Rotate uses complex multiplication to rotate v by rot, rot being a unit vector (cos, sin).
func Rotate(v, rot mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{v[0]*rot[0] - v[1]*rot[1], v[0]*rot[1] + v[1]*rot[0]}
}

// Unrotate is the inverse of Rotate.
func Unrotate(v, rot mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{v[0]*rot[0] + v[1]*rot[1], v[1]*rot[0] - v[0]*rot[1]}
}

// ForAngle returns the unit vector pointing at angle a (radians).
func ForAngle(a float64) mgl64.Vec2 {
	sin, cos := math.Sincos(a)
	return mgl64.Vec2{cos, sin}
}

func ToAngle(v mgl64.Vec2) float64 {
	return math.Atan2(v[1], v[0])
}

// NormalizeSafe never returns NaN: the zero vector normalizes to the zero vector.
func NormalizeSafe(v mgl64.Vec2) mgl64.Vec2 {
	return v.Mul(1.0 / (v.Len() + Epsilon))
}

func Lerp(a, b mgl64.Vec2, t float64) mgl64.Vec2 {
	return a.Mul(1.0 - t).Add(b.Mul(t))
}

// LerpConst moves a towards b by at most d.
func LerpConst(a, b mgl64.Vec2, d float64) mgl64.Vec2 {
	return a.Add(ClampLen(b.Sub(a), d))
}

// Project returns the projection of a onto b.
func Project(a, b mgl64.Vec2) mgl64.Vec2 {
	return b.Mul(a.Dot(b) / b.Dot(b))
}

// ClampLen limits the length of v to l.
func ClampLen(v mgl64.Vec2, l float64) mgl64.Vec2 {
	if v.Dot(v) > l*l {
		return NormalizeSafe(v).Mul(l)
	}
	return v
}

func Dist(a, b mgl64.Vec2) float64 {
	return a.Sub(b).Len()
}

func DistSq(a, b mgl64.Vec2) float64 {
	return a.Sub(b).LenSqr()
}

// Near reports whether a and b are closer than d.
func Near(a, b mgl64.Vec2, d float64) bool {
	return DistSq(a, b) < d*d
}

// Clamp01 clamps f to [0, 1].
func Clamp01(f float64) float64 {
	return mgl64.Clamp(f, 0, 1)
}

// ClosestPointOnSegment returns the point of segment [a, b] closest to p.
func ClosestPointOnSegment(p, a, b mgl64.Vec2) mgl64.Vec2 {
	delta := a.Sub(b)
	t := Clamp01(delta.Dot(p.Sub(b)) / (delta.LenSqr() + Epsilon))
	return b.Add(delta.Mul(t))
}

// IsFinite reports whether both components of v are finite numbers.
func IsFinite(v mgl64.Vec2) bool {
	return !math.IsNaN(v[0]) && !math.IsNaN(v[1]) && !math.IsInf(v[0], 0) && !math.IsInf(v[1], 0)
}
