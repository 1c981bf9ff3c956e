package constraint

import (
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// SlideJoint keeps the distance between two anchors within [Min, Max], like a chain.
type SlideJoint struct {
	ConstraintBase

	AnchorA, AnchorB mgl64.Vec2
	Min, Max         float64

	r1, r2 mgl64.Vec2
	n      mgl64.Vec2
	nMass  float64

	jnAcc float64
	bias  float64
}

func NewSlideJoint(a, b *actor.Body, anchorA, anchorB mgl64.Vec2, minDist, maxDist float64) *SlideJoint {
	return &SlideJoint{
		ConstraintBase: newBase(a, b),
		AnchorA:        anchorA,
		AnchorB:        anchorB,
		Min:            minDist,
		Max:            maxDist,
	}
}

func (j *SlideJoint) PreStep(dt float64) {
	a, b := j.a, j.b

	j.r1 = anchorOffset(a, j.AnchorA)
	j.r2 = anchorOffset(b, j.AnchorB)

	delta := b.Center().Add(j.r2).Sub(a.Center().Add(j.r1))
	dist := delta.Len()

	var pdist float64
	switch {
	case dist > j.Max:
		pdist = dist - j.Max
		j.n = geom.NormalizeSafe(delta)
	case dist < j.Min:
		pdist = j.Min - dist
		j.n = geom.Neg(geom.NormalizeSafe(delta))
	default:
		// within the limits: the joint is inactive this step
		j.n = mgl64.Vec2{}
		j.jnAcc = 0
	}

	j.nMass = 1 / KScalar(a, b, j.r1, j.r2, j.n)
	j.bias = clampBias(-BiasCoef(j.ErrorBias, dt)*pdist/dt, j.MaxBias)
}

func (j *SlideJoint) ApplyCachedImpulse(dtCoef float64) {
	ApplyImpulses(j.a, j.b, j.r1, j.r2, j.n.Mul(j.jnAcc*dtCoef))
}

func (j *SlideJoint) ApplyImpulse(dt float64) {
	if j.n == (mgl64.Vec2{}) {
		return
	}

	vrn := RelativeVelocity(j.a, j.b, j.r1, j.r2).Dot(j.n)

	jn := (j.bias - vrn) * j.nMass
	jnOld := j.jnAcc
	j.jnAcc = mgl64.Clamp(jnOld+jn, -j.MaxForce*dt, 0)

	ApplyImpulses(j.a, j.b, j.r1, j.r2, j.n.Mul(j.jnAcc-jnOld))
}

func (j *SlideJoint) Impulse() float64 {
	return math.Abs(j.jnAcc)
}
