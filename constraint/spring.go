package constraint

import (
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// SpringForceFunc returns the force of a spring stretched to dist.
type SpringForceFunc func(spring *DampedSpring, dist float64) float64

// SpringTorqueFunc returns the torque of a rotary spring at the relative angle of its bodies.
type SpringTorqueFunc func(spring *DampedRotarySpring, relativeAngle float64) float64

// DefaultSpringForce is Hooke's law.
func DefaultSpringForce(spring *DampedSpring, dist float64) float64 {
	return (spring.RestLength - dist) * spring.Stiffness
}

func DefaultSpringTorque(spring *DampedRotarySpring, relativeAngle float64) float64 {
	return (relativeAngle - spring.RestAngle) * spring.Stiffness
}

// DampedSpring pulls two anchors toward RestLength. The spring force is applied once per step;
// only the damping is solved iteratively.
type DampedSpring struct {
	ConstraintBase

	AnchorA, AnchorB mgl64.Vec2
	RestLength       float64
	Stiffness        float64
	Damping          float64
	ForceFunc        SpringForceFunc

	targetVrn float64
	vCoef     float64

	r1, r2 mgl64.Vec2
	nMass  float64
	n      mgl64.Vec2

	jAcc float64
}

func NewDampedSpring(a, b *actor.Body, anchorA, anchorB mgl64.Vec2, restLength, stiffness, damping float64) *DampedSpring {
	return &DampedSpring{
		ConstraintBase: newBase(a, b),
		AnchorA:        anchorA,
		AnchorB:        anchorB,
		RestLength:     restLength,
		Stiffness:      stiffness,
		Damping:        damping,
		ForceFunc:      DefaultSpringForce,
	}
}

func (s *DampedSpring) PreStep(dt float64) {
	a, b := s.a, s.b

	s.r1 = anchorOffset(a, s.AnchorA)
	s.r2 = anchorOffset(b, s.AnchorB)

	delta := b.Center().Add(s.r2).Sub(a.Center().Add(s.r1))
	dist := delta.Len()
	if dist != 0 {
		s.n = delta.Mul(1 / dist)
	} else {
		s.n = mgl64.Vec2{}
	}

	k := KScalar(a, b, s.r1, s.r2, s.n)
	s.nMass = 1 / k

	s.targetVrn = 0
	s.vCoef = 1 - math.Exp(-s.Damping*dt*k)

	force := s.ForceFunc(s, dist)
	s.jAcc = force * dt
	ApplyImpulses(a, b, s.r1, s.r2, s.n.Mul(s.jAcc))
}

func (s *DampedSpring) ApplyCachedImpulse(float64) {}

func (s *DampedSpring) ApplyImpulse(float64) {
	vrn := NormalRelativeVelocity(s.a, s.b, s.r1, s.r2, s.n)

	// the damping is a velocity target, so the impulse needs no clamping
	vDamp := (s.targetVrn - vrn) * s.vCoef
	s.targetVrn = vrn + vDamp

	jDamp := vDamp * s.nMass
	s.jAcc += jDamp
	ApplyImpulses(s.a, s.b, s.r1, s.r2, s.n.Mul(jDamp))
}

func (s *DampedSpring) Impulse() float64 {
	return s.jAcc
}

// DampedRotarySpring pulls the relative angle of two bodies toward RestAngle.
type DampedRotarySpring struct {
	ConstraintBase

	RestAngle  float64
	Stiffness  float64
	Damping    float64
	TorqueFunc SpringTorqueFunc

	targetWrn float64
	wCoef     float64
	iSum      float64

	jAcc float64
}

func NewDampedRotarySpring(a, b *actor.Body, restAngle, stiffness, damping float64) *DampedRotarySpring {
	return &DampedRotarySpring{
		ConstraintBase: newBase(a, b),
		RestAngle:      restAngle,
		Stiffness:      stiffness,
		Damping:        damping,
		TorqueFunc:     DefaultSpringTorque,
	}
}

func (s *DampedRotarySpring) PreStep(dt float64) {
	a, b := s.a, s.b

	moment := a.InverseMoment() + b.InverseMoment()
	s.iSum = 1 / moment

	s.wCoef = 1 - math.Exp(-s.Damping*dt*moment)
	s.targetWrn = 0

	jSpring := s.TorqueFunc(s, a.Angle()-b.Angle()) * dt
	s.jAcc = jSpring

	a.AngularVelocity -= jSpring * a.InverseMoment()
	b.AngularVelocity += jSpring * b.InverseMoment()
}

func (s *DampedRotarySpring) ApplyCachedImpulse(float64) {}

func (s *DampedRotarySpring) ApplyImpulse(float64) {
	a, b := s.a, s.b

	wrn := a.AngularVelocity - b.AngularVelocity

	wDamp := (s.targetWrn - wrn) * s.wCoef
	s.targetWrn = wrn + wDamp

	jDamp := wDamp * s.iSum
	s.jAcc += jDamp

	a.AngularVelocity += jDamp * a.InverseMoment()
	b.AngularVelocity -= jDamp * b.InverseMoment()
}

func (s *DampedRotarySpring) Impulse() float64 {
	return s.jAcc
}
