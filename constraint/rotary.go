package constraint

import (
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// RotaryLimitJoint keeps the relative angle of two bodies (b - a) within [Min, Max].
type RotaryLimitJoint struct {
	ConstraintBase

	Min, Max float64

	iSum float64
	bias float64
	jAcc float64
}

func NewRotaryLimitJoint(a, b *actor.Body, minAngle, maxAngle float64) *RotaryLimitJoint {
	return &RotaryLimitJoint{
		ConstraintBase: newBase(a, b),
		Min:            minAngle,
		Max:            maxAngle,
	}
}

func (j *RotaryLimitJoint) PreStep(dt float64) {
	a, b := j.a, j.b

	dist := b.Angle() - a.Angle()
	var pdist float64
	if dist > j.Max {
		pdist = j.Max - dist
	} else if dist < j.Min {
		pdist = j.Min - dist
	}

	j.iSum = momentSum(a, b)
	j.bias = clampBias(-BiasCoef(j.ErrorBias, dt)*pdist/dt, j.MaxBias)

	// within the limits: drop the accumulated impulse
	if j.bias == 0 {
		j.jAcc = 0
	}
}

func (j *RotaryLimitJoint) ApplyCachedImpulse(dtCoef float64) {
	applyAngularImpulse(j.a, j.b, j.jAcc*dtCoef)
}

func (j *RotaryLimitJoint) ApplyImpulse(dt float64) {
	if j.bias == 0 {
		return
	}

	wr := j.b.AngularVelocity - j.a.AngularVelocity
	jMax := j.MaxForce * dt

	impulse := -(j.bias + wr) * j.iSum
	jOld := j.jAcc
	if j.bias < 0 {
		j.jAcc = mgl64.Clamp(jOld+impulse, 0, jMax)
	} else {
		j.jAcc = mgl64.Clamp(jOld+impulse, -jMax, 0)
	}

	applyAngularImpulse(j.a, j.b, j.jAcc-jOld)
}

func (j *RotaryLimitJoint) Impulse() float64 {
	return math.Abs(j.jAcc)
}

// RotaryLockJoint keeps the relative angle of two bodies (b - a) equal to Offset.
type RotaryLockJoint struct {
	ConstraintBase

	Offset float64

	iSum float64
	bias float64
	jAcc float64
}

func NewRotaryLockJoint(a, b *actor.Body, offset float64) *RotaryLockJoint {
	return &RotaryLockJoint{
		ConstraintBase: newBase(a, b),
		Offset:         offset,
	}
}

func (j *RotaryLockJoint) PreStep(dt float64) {
	a, b := j.a, j.b

	j.iSum = momentSum(a, b)
	j.bias = clampBias(-BiasCoef(j.ErrorBias, dt)*(b.Angle()-a.Angle()-j.Offset)/dt, j.MaxBias)
}

func (j *RotaryLockJoint) ApplyCachedImpulse(dtCoef float64) {
	applyAngularImpulse(j.a, j.b, j.jAcc*dtCoef)
}

func (j *RotaryLockJoint) ApplyImpulse(dt float64) {
	wr := j.b.AngularVelocity - j.a.AngularVelocity
	jMax := j.MaxForce * dt

	impulse := (j.bias - wr) * j.iSum
	jOld := j.jAcc
	j.jAcc = mgl64.Clamp(jOld+impulse, -jMax, jMax)

	applyAngularImpulse(j.a, j.b, j.jAcc-jOld)
}

func (j *RotaryLockJoint) Impulse() float64 {
	return math.Abs(j.jAcc)
}

// SimpleMotor drives the relative angular velocity of two bodies (b - a) toward -Rate.
// Use MaxForce to limit the torque of the motor.
type SimpleMotor struct {
	ConstraintBase

	Rate float64

	iSum float64
	jAcc float64
}

func NewSimpleMotor(a, b *actor.Body, rate float64) *SimpleMotor {
	return &SimpleMotor{
		ConstraintBase: newBase(a, b),
		Rate:           rate,
	}
}

func (m *SimpleMotor) PreStep(float64) {
	m.iSum = momentSum(m.a, m.b)
}

func (m *SimpleMotor) ApplyCachedImpulse(dtCoef float64) {
	applyAngularImpulse(m.a, m.b, m.jAcc*dtCoef)
}

func (m *SimpleMotor) ApplyImpulse(dt float64) {
	wr := m.b.AngularVelocity - m.a.AngularVelocity + m.Rate
	jMax := m.MaxForce * dt

	impulse := -wr * m.iSum
	jOld := m.jAcc
	m.jAcc = mgl64.Clamp(jOld+impulse, -jMax, jMax)

	applyAngularImpulse(m.a, m.b, m.jAcc-jOld)
}

func (m *SimpleMotor) Impulse() float64 {
	return math.Abs(m.jAcc)
}

// GearJoint keeps the angular velocity ratio of two bodies constant: b turns at a / Ratio.
type GearJoint struct {
	ConstraintBase

	Phase float64

	ratio, ratioInv float64

	iSum float64
	bias float64
	jAcc float64
}

func NewGearJoint(a, b *actor.Body, phase, ratio float64) *GearJoint {
	return &GearJoint{
		ConstraintBase: newBase(a, b),
		Phase:          phase,
		ratio:          ratio,
		ratioInv:       1 / ratio,
	}
}

func (g *GearJoint) Ratio() float64 {
	return g.ratio
}

func (g *GearJoint) SetRatio(ratio float64) {
	g.ratio = ratio
	g.ratioInv = 1 / ratio
	g.ActivateBodies()
}

func (g *GearJoint) PreStep(dt float64) {
	a, b := g.a, g.b

	g.iSum = 1 / (a.InverseMoment()*g.ratioInv + g.ratio*b.InverseMoment())
	g.bias = clampBias(-BiasCoef(g.ErrorBias, dt)*(b.Angle()*g.ratio-a.Angle()-g.Phase)/dt, g.MaxBias)
}

func (g *GearJoint) apply(j float64) {
	g.a.AngularVelocity -= j * g.a.InverseMoment() * g.ratioInv
	g.b.AngularVelocity += j * g.b.InverseMoment()
}

func (g *GearJoint) ApplyCachedImpulse(dtCoef float64) {
	g.apply(g.jAcc * dtCoef)
}

func (g *GearJoint) ApplyImpulse(dt float64) {
	wr := g.b.AngularVelocity*g.ratio - g.a.AngularVelocity
	jMax := g.MaxForce * dt

	impulse := (g.bias - wr) * g.iSum
	jOld := g.jAcc
	g.jAcc = mgl64.Clamp(jOld+impulse, -jMax, jMax)

	g.apply(g.jAcc - jOld)
}

func (g *GearJoint) Impulse() float64 {
	return math.Abs(g.jAcc)
}

// RatchetJoint works like a socket wrench: b may turn freely in one direction relative to a,
// and clicks every Ratchet radians in the other.
type RatchetJoint struct {
	ConstraintBase

	Angle   float64
	Phase   float64
	Ratchet float64

	iSum float64
	bias float64
	jAcc float64
}

func NewRatchetJoint(a, b *actor.Body, phase, ratchet float64) *RatchetJoint {
	joint := &RatchetJoint{
		ConstraintBase: newBase(a, b),
		Phase:          phase,
		Ratchet:        ratchet,
	}

	if b != nil {
		joint.Angle += b.Angle()
	}
	if a != nil {
		joint.Angle -= a.Angle()
	}

	return joint
}

func (r *RatchetJoint) PreStep(dt float64) {
	a, b := r.a, r.b

	delta := b.Angle() - a.Angle()
	diff := r.Angle - delta

	var pdist float64
	if diff*r.Ratchet > 0 {
		pdist = diff
	} else {
		r.Angle = math.Floor((delta-r.Phase)/r.Ratchet)*r.Ratchet + r.Phase
	}

	r.iSum = momentSum(a, b)
	r.bias = clampBias(-BiasCoef(r.ErrorBias, dt)*pdist/dt, r.MaxBias)

	if r.bias == 0 {
		r.jAcc = 0
	}
}

func (r *RatchetJoint) ApplyCachedImpulse(dtCoef float64) {
	applyAngularImpulse(r.a, r.b, r.jAcc*dtCoef)
}

func (r *RatchetJoint) ApplyImpulse(dt float64) {
	if r.bias == 0 {
		return
	}

	wr := r.b.AngularVelocity - r.a.AngularVelocity
	jMax := r.MaxForce * dt

	impulse := -(r.bias + wr) * r.iSum
	jOld := r.jAcc
	r.jAcc = mgl64.Clamp((jOld+impulse)*r.Ratchet, 0, jMax*math.Abs(r.Ratchet)) / r.Ratchet

	applyAngularImpulse(r.a, r.b, r.jAcc-jOld)
}

func (r *RatchetJoint) Impulse() float64 {
	return math.Abs(r.jAcc)
}
