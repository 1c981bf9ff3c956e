package constraint

import (
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// PinJoint keeps the anchors of two bodies at a fixed distance, like a massless rod.
type PinJoint struct {
	ConstraintBase

	AnchorA, AnchorB mgl64.Vec2
	Dist             float64

	r1, r2 mgl64.Vec2
	n      mgl64.Vec2
	nMass  float64

	jnAcc float64
	bias  float64
}

// NewPinJoint joins anchorA of a to anchorB of b, both in body local coordinates. The distance
// is measured from the current positions of the bodies.
func NewPinJoint(a, b *actor.Body, anchorA, anchorB mgl64.Vec2) *PinJoint {
	joint := &PinJoint{
		ConstraintBase: newBase(a, b),
		AnchorA:        anchorA,
		AnchorB:        anchorB,
	}

	if a != nil && b != nil {
		joint.Dist = geom.Dist(a.LocalToWorld(anchorA), b.LocalToWorld(anchorB))
	}

	return joint
}

func (j *PinJoint) PreStep(dt float64) {
	a, b := j.a, j.b

	j.r1 = anchorOffset(a, j.AnchorA)
	j.r2 = anchorOffset(b, j.AnchorB)

	delta := b.Center().Add(j.r2).Sub(a.Center().Add(j.r1))
	dist := delta.Len()
	if dist != 0 {
		j.n = delta.Mul(1 / dist)
	} else {
		j.n = mgl64.Vec2{}
	}

	j.nMass = 1 / KScalar(a, b, j.r1, j.r2, j.n)
	j.bias = clampBias(-BiasCoef(j.ErrorBias, dt)*(dist-j.Dist)/dt, j.MaxBias)
}

func (j *PinJoint) ApplyCachedImpulse(dtCoef float64) {
	ApplyImpulses(j.a, j.b, j.r1, j.r2, j.n.Mul(j.jnAcc*dtCoef))
}

func (j *PinJoint) ApplyImpulse(dt float64) {
	vrn := NormalRelativeVelocity(j.a, j.b, j.r1, j.r2, j.n)

	jnMax := j.MaxForce * dt
	jn := (j.bias - vrn) * j.nMass
	jnOld := j.jnAcc
	j.jnAcc = mgl64.Clamp(jnOld+jn, -jnMax, jnMax)

	ApplyImpulses(j.a, j.b, j.r1, j.r2, j.n.Mul(j.jnAcc-jnOld))
}

func (j *PinJoint) Impulse() float64 {
	return math.Abs(j.jnAcc)
}
