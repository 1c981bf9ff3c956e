package constraint

import (
	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// GrooveJoint lets an anchor of b slide along a groove (a segment) fixed on a.
type GrooveJoint struct {
	ConstraintBase

	grooveA, grooveB mgl64.Vec2
	grooveN          mgl64.Vec2
	AnchorB          mgl64.Vec2

	grooveTN mgl64.Vec2
	clamp    float64
	r1, r2   mgl64.Vec2
	k        mgl64.Mat2

	jAcc mgl64.Vec2
	bias mgl64.Vec2
}

// NewGrooveJoint creates a groove from grooveA to grooveB on a, and the sliding anchor on b.
// All the points are in body local coordinates.
func NewGrooveJoint(a, b *actor.Body, grooveA, grooveB, anchorB mgl64.Vec2) *GrooveJoint {
	joint := &GrooveJoint{
		ConstraintBase: newBase(a, b),
		AnchorB:        anchorB,
	}
	joint.SetGroove(grooveA, grooveB)

	return joint
}

func (j *GrooveJoint) GrooveA() mgl64.Vec2 {
	return j.grooveA
}

func (j *GrooveJoint) GrooveB() mgl64.Vec2 {
	return j.grooveB
}

// SetGroove moves the groove on a.
func (j *GrooveJoint) SetGroove(grooveA, grooveB mgl64.Vec2) {
	j.grooveA = grooveA
	j.grooveB = grooveB
	j.grooveN = geom.Perp(geom.NormalizeSafe(grooveB.Sub(grooveA)))
	j.ActivateBodies()
}

func (j *GrooveJoint) PreStep(dt float64) {
	a, b := j.a, j.b

	// groove in world space
	ta := a.LocalToWorld(j.grooveA)
	tb := a.LocalToWorld(j.grooveB)
	n := a.Transform().Vect(j.grooveN)
	d := ta.Dot(n)

	j.grooveTN = n
	j.r2 = anchorOffset(b, j.AnchorB)

	// the point of the groove closest to the anchor of b, clamped to its ends
	td := geom.Cross(b.Center().Add(j.r2), n)
	switch {
	case td <= geom.Cross(ta, n):
		j.clamp = 1
		j.r1 = ta.Sub(a.Center())
	case td >= geom.Cross(tb, n):
		j.clamp = -1
		j.r1 = tb.Sub(a.Center())
	default:
		j.clamp = 0
		j.r1 = geom.Perp(n).Mul(-td).Add(n.Mul(d)).Sub(a.Center())
	}

	j.k = KTensor(a, b, j.r1, j.r2)

	delta := b.Center().Add(j.r2).Sub(a.Center().Add(j.r1))
	j.bias = geom.ClampLen(delta.Mul(-BiasCoef(j.ErrorBias, dt)/dt), j.MaxBias)
}

func (j *GrooveJoint) ApplyCachedImpulse(dtCoef float64) {
	ApplyImpulses(j.a, j.b, j.r1, j.r2, j.jAcc.Mul(dtCoef))
}

// constrain drops the part of the impulse pulling the anchor past an end of the groove.
func (j *GrooveJoint) constrain(impulse mgl64.Vec2, dt float64) mgl64.Vec2 {
	n := j.grooveTN

	clamped := geom.Project(impulse, n)
	if j.clamp*geom.Cross(impulse, n) > 0 {
		clamped = impulse
	}

	return geom.ClampLen(clamped, j.MaxForce*dt)
}

func (j *GrooveJoint) ApplyImpulse(dt float64) {
	vr := RelativeVelocity(j.a, j.b, j.r1, j.r2)

	impulse := j.k.Mul2x1(j.bias.Sub(vr))
	jOld := j.jAcc
	j.jAcc = j.constrain(jOld.Add(impulse), dt)

	ApplyImpulses(j.a, j.b, j.r1, j.r2, j.jAcc.Sub(jOld))
}

func (j *GrooveJoint) Impulse() float64 {
	return j.jAcc.Len()
}
