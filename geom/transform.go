package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a 2D affine transform stored as a homogeneous mgl64.Mat3 (column major):
//
//	[a c tx]
//	[b d ty]
//	[0 0 1 ]
type Transform struct {
	M mgl64.Mat3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{M: mgl64.Ident3()}
}

// NewTransform builds a transform from its matrix coefficients.
func NewTransform(a, b, c, d, tx, ty float64) Transform {
	return Transform{M: mgl64.Mat3{a, b, 0, c, d, 0, tx, ty, 1}}
}

// NewTransformTranspose builds a transform from row major coefficients.
func NewTransformTranspose(a, c, tx, b, d, ty float64) Transform {
	return NewTransform(a, b, c, d, tx, ty)
}

func Translate(v mgl64.Vec2) Transform {
	return Transform{M: mgl64.Translate2D(v[0], v[1])}
}

func Scale(sx, sy float64) Transform {
	return Transform{M: mgl64.Scale2D(sx, sy)}
}

func RotateTransform(radians float64) Transform {
	return Transform{M: mgl64.HomogRotate2D(radians)}
}

// Rigid is a rotation by radians followed by a translation.
func Rigid(translate mgl64.Vec2, radians float64) Transform {
	return Transform{M: mgl64.Translate2D(translate[0], translate[1]).Mul3(mgl64.HomogRotate2D(radians))}
}

// BodyTransform is the world transform of a body whose center of gravity cog (body space) sits at p
// with rotation rot (cos, sin).
func BodyTransform(p, rot, cog mgl64.Vec2) Transform {
	return NewTransformTranspose(
		rot[0], -rot[1], p[0]-(cog[0]*rot[0]-cog[1]*rot[1]),
		rot[1], rot[0], p[1]-(cog[0]*rot[1]+cog[1]*rot[0]),
	)
}

// Ortho maps bb onto the [-1, 1] square.
func Ortho(bb BB) Transform {
	return NewTransformTranspose(
		2.0/(bb.R-bb.L), 0.0, -(bb.R+bb.L)/(bb.R-bb.L),
		0.0, 2.0/(bb.T-bb.B), -(bb.T+bb.B)/(bb.T-bb.B),
	)
}

// BoneScale maps the unit x axis onto the segment from v0 to v1.
func BoneScale(v0, v1 mgl64.Vec2) Transform {
	d := v1.Sub(v0)
	return NewTransformTranspose(
		d[0], -d[1], v0[0],
		d[1], d[0], v0[1],
	)
}

// Axial maps the x axis to the ray from pivot along the unit vector axis.
func Axial(axis, pivot mgl64.Vec2) Transform {
	return NewTransformTranspose(
		axis[0], -axis[1], pivot[0],
		axis[1], axis[0], pivot[1],
	)
}

// Point transforms a point (translation applied).
func (t Transform) Point(p mgl64.Vec2) mgl64.Vec2 {
	return t.M.Mul3x1(p.Vec3(1)).Vec2()
}

// Vect transforms a vector (translation ignored).
func (t Transform) Vect(v mgl64.Vec2) mgl64.Vec2 {
	return t.M.Mul3x1(v.Vec3(0)).Vec2()
}

// Translation returns the (tx, ty) column.
func (t Transform) Translation() mgl64.Vec2 {
	return mgl64.Vec2{t.M[6], t.M[7]}
}

// BB returns the bounding box of bb after transformation.
func (t Transform) BB(bb BB) BB {
	center := bb.Center()
	hw := (bb.R - bb.L) * 0.5
	hh := (bb.T - bb.B) * 0.5

	a, b := t.M[0]*hw, t.M[3]*hh
	d, e := t.M[1]*hw, t.M[4]*hh
	hwMax := math.Max(math.Abs(a+b), math.Abs(a-b))
	hhMax := math.Max(math.Abs(d+e), math.Abs(d-e))

	return NewBBForExtents(t.Point(center), hwMax, hhMax)
}

// Mul composes two transforms: the result applies u first, then t.
func (t Transform) Mul(u Transform) Transform {
	return Transform{M: t.M.Mul3(u.M)}
}

// Inverse returns the inverse transform. A singular transform yields the zero matrix.
func (t Transform) Inverse() Transform {
	return Transform{M: t.M.Inv()}
}

// Wrap expresses inner in the space of outer: outer⁻¹ · inner · outer.
func Wrap(outer, inner Transform) Transform {
	return outer.Inverse().Mul(inner.Mul(outer))
}

// WrapInverse is outer · inner · outer⁻¹.
func WrapInverse(outer, inner Transform) Transform {
	return outer.Mul(inner.Mul(outer.Inverse()))
}

// ApproxEqual reports whether every coefficient of t is within threshold of the one of u.
func (t Transform) ApproxEqual(u Transform, threshold float64) bool {
	for i := range t.M {
		if math.Abs(t.M[i]-u.M[i]) > threshold {
			return false
		}
	}
	return true
}
