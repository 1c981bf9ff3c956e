package constraint

import (
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// BiasCoef converts an error bias into the fraction of the error corrected during a step of dt.
func BiasCoef(errorBias, dt float64) float64 {
	return 1 - math.Pow(errorBias, dt)
}

// anchorOffset returns the world offset of a local anchor from the center of gravity.
func anchorOffset(body *actor.Body, anchor mgl64.Vec2) mgl64.Vec2 {
	return body.Transform().Vect(anchor.Sub(body.CenterOfGravity()))
}

// RelativeVelocity is the velocity of the point r2 of b relative to the point r1 of a.
func RelativeVelocity(a, b *actor.Body, r1, r2 mgl64.Vec2) mgl64.Vec2 {
	v1 := a.Velocity.Add(geom.Perp(r1).Mul(a.AngularVelocity))
	v2 := b.Velocity.Add(geom.Perp(r2).Mul(b.AngularVelocity))
	return v2.Sub(v1)
}

func NormalRelativeVelocity(a, b *actor.Body, r1, r2, n mgl64.Vec2) float64 {
	return RelativeVelocity(a, b, r1, r2).Dot(n)
}

// ApplyImpulses applies -j to a at r1 and j to b at r2.
func ApplyImpulses(a, b *actor.Body, r1, r2, j mgl64.Vec2) {
	a.ApplyImpulse(r1, geom.Neg(j))
	b.ApplyImpulse(r2, j)
}

func ApplyBiasImpulses(a, b *actor.Body, r1, r2, j mgl64.Vec2) {
	a.ApplyBiasImpulse(r1, geom.Neg(j))
	b.ApplyBiasImpulse(r2, j)
}

// KScalarBody is the inverse effective mass of a body along n at the offset r.
func KScalarBody(body *actor.Body, r, n mgl64.Vec2) float64 {
	rcn := geom.Cross(r, n)
	return body.InverseMass() + body.InverseMoment()*rcn*rcn
}

// KScalar is the inverse effective mass of the pair along n.
func KScalar(a, b *actor.Body, r1, r2, n mgl64.Vec2) float64 {
	return KScalarBody(a, r1, n) + KScalarBody(b, r2, n)
}

// KTensor returns the inverse of the 2x2 effective mass matrix of the pair at r1 and r2.
// It is the zero matrix when the pair cannot move.
func KTensor(a, b *actor.Body, r1, r2 mgl64.Vec2) mgl64.Mat2 {
	mSum := a.InverseMass() + b.InverseMass()

	k11, k12, k21, k22 := mSum, 0.0, 0.0, mSum

	aInv := a.InverseMoment()
	k11 += aInv * r1.Y() * r1.Y()
	k12 += -aInv * r1.X() * r1.Y()
	k21 += -aInv * r1.X() * r1.Y()
	k22 += aInv * r1.X() * r1.X()

	bInv := b.InverseMoment()
	k11 += bInv * r2.Y() * r2.Y()
	k12 += -bInv * r2.X() * r2.Y()
	k21 += -bInv * r2.X() * r2.Y()
	k22 += bInv * r2.X() * r2.X()

	// mgl64 matrices are column major
	return mgl64.Mat2{k11, k21, k12, k22}.Inv()
}

// clampBias limits a bias velocity to [-maxBias, maxBias].
func clampBias(bias, maxBias float64) float64 {
	return mgl64.Clamp(bias, -maxBias, maxBias)
}

// applyAngularImpulse applies the angular impulse -j to a and j to b.
func applyAngularImpulse(a, b *actor.Body, j float64) {
	a.AngularVelocity -= j * a.InverseMoment()
	b.AngularVelocity += j * b.InverseMoment()
}

// momentSum returns the inverse of the summed inverse moments of the pair.
func momentSum(a, b *actor.Body) float64 {
	return 1 / (a.InverseMoment() + b.InverseMoment())
}
