package constraint

import (
	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// PivotJoint pins two bodies together at a shared point they rotate around.
type PivotJoint struct {
	ConstraintBase

	AnchorA, AnchorB mgl64.Vec2

	r1, r2 mgl64.Vec2
	k      mgl64.Mat2

	jAcc mgl64.Vec2
	bias mgl64.Vec2
}

// NewPivotJoint joins a and b at the world point pivot.
func NewPivotJoint(a, b *actor.Body, pivot mgl64.Vec2) *PivotJoint {
	var anchorA, anchorB mgl64.Vec2
	if a != nil {
		anchorA = a.WorldToLocal(pivot)
	}
	if b != nil {
		anchorB = b.WorldToLocal(pivot)
	}

	return NewPivotJoint2(a, b, anchorA, anchorB)
}

// NewPivotJoint2 joins a and b with anchors given in body local coordinates.
func NewPivotJoint2(a, b *actor.Body, anchorA, anchorB mgl64.Vec2) *PivotJoint {
	return &PivotJoint{
		ConstraintBase: newBase(a, b),
		AnchorA:        anchorA,
		AnchorB:        anchorB,
	}
}

func (j *PivotJoint) PreStep(dt float64) {
	a, b := j.a, j.b

	j.r1 = anchorOffset(a, j.AnchorA)
	j.r2 = anchorOffset(b, j.AnchorB)

	j.k = KTensor(a, b, j.r1, j.r2)

	delta := b.Center().Add(j.r2).Sub(a.Center().Add(j.r1))
	j.bias = geom.ClampLen(delta.Mul(-BiasCoef(j.ErrorBias, dt)/dt), j.MaxBias)
}

func (j *PivotJoint) ApplyCachedImpulse(dtCoef float64) {
	ApplyImpulses(j.a, j.b, j.r1, j.r2, j.jAcc.Mul(dtCoef))
}

func (j *PivotJoint) ApplyImpulse(dt float64) {
	vr := RelativeVelocity(j.a, j.b, j.r1, j.r2)

	impulse := j.k.Mul2x1(j.bias.Sub(vr))
	jOld := j.jAcc
	j.jAcc = geom.ClampLen(j.jAcc.Add(impulse), j.MaxForce*dt)

	ApplyImpulses(j.a, j.b, j.r1, j.r2, j.jAcc.Sub(jOld))
}

func (j *PivotJoint) Impulse() float64 {
	return j.jAcc.Len()
}
