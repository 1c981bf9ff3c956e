package geom

import "github.com/go-gl/mathgl/mgl64"

// CheckPointGreater reports whether c lies strictly to the left of the directed line a->b.
//
// It is the sign of twice the signed area of the triangle (a, b, c), written in a symmetric form so the
// result does not depend on which endpoint is used as the origin. Each product goes through an explicit
// float64 conversion: Go only fuses x*y+z into an FMA when the product is not
// explicitly rounded, and fusing would change the sign for nearly collinear inputs.
func CheckPointGreater(a, b, c mgl64.Vec2) bool {
	lhs := float64((b[1] - a[1]) * (a[0] + b[0] - 2*c[0]))
	rhs := float64((b[0] - a[0]) * (a[1] + b[1] - 2*c[1]))
	return lhs > rhs
}

// CheckAxis reports whether p is no further along n than the edge (v0, v1),
// meaning p does not improve the edge as a support of the Minkowski difference.
func CheckAxis(v0, v1, p, n mgl64.Vec2) bool {
	return float64(p.Dot(n)) <= max(float64(v0.Dot(n)), float64(v1.Dot(n)))
}

// Orientation returns +1 when c is left of a->b, -1 when it is right of it, and 0 when collinear.
func Orientation(a, b, c mgl64.Vec2) int {
	switch {
	case CheckPointGreater(a, b, c):
		return 1
	case CheckPointGreater(b, a, c):
		return -1
	default:
		return 0
	}
}
