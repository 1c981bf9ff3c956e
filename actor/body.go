package actor

import (
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeKinematic bodies move with their own velocity and are not affected by forces or collisions
	// They have infinite mass and never fall asleep
	BodyTypeKinematic

	// BodyTypeStatic bodies are immovable and have infinite mass (e.g., ground, walls)
	BodyTypeStatic
)

func (t BodyType) String() string {
	switch t {
	case BodyTypeDynamic:
		return "dynamic"
	case BodyTypeKinematic:
		return "kinematic"
	case BodyTypeStatic:
		return "static"
	default:
		return fmt.Sprintf("BodyType(%d)", int(t))
	}
}

// Owner is the space a body or a shape has been added to.
type Owner interface {
	ActivateBody(body *Body)
	ActivateStatic(body *Body, filter Shape)
	SleepBody(body *Body) error
}

// VelocityFunc integrates the velocity of a body over dt.
type VelocityFunc func(body *Body, gravity mgl64.Vec2, damping, dt float64)

// PositionFunc integrates the position of a body over dt.
type PositionFunc func(body *Body, dt float64)

// Body is a rigid body. Its position is the world position of its center of gravity;
// Position and SetPosition work with the body origin instead.
type Body struct {
	// Linear motion
	Velocity     mgl64.Vec2
	BiasVelocity mgl64.Vec2

	// Angular motion
	AngularVelocity     float64
	BiasAngularVelocity float64

	// VelocityLimit and AngularVelocityLimit clamp the result of UpdateVelocity
	VelocityLimit        float64
	AngularVelocityLimit float64

	VelocityFunc VelocityFunc
	PositionFunc PositionFunc

	IsSleeping bool
	IdleTime   float64

	UserData any

	bodyType BodyType

	mass, invMass     float64
	moment, invMoment float64

	cog       mgl64.Vec2
	position  mgl64.Vec2
	angle     float64
	transform geom.Transform

	force  mgl64.Vec2
	torque float64

	owner  Owner
	shapes []Shape
}

func newBody(bodyType BodyType) *Body {
	body := &Body{
		bodyType:             bodyType,
		transform:            geom.Identity(),
		VelocityLimit:        math.Inf(1),
		AngularVelocityLimit: math.Inf(1),
		VelocityFunc:         (*Body).UpdateVelocity,
		PositionFunc:         (*Body).UpdatePosition,
	}

	if bodyType != BodyTypeDynamic {
		body.mass, body.moment = math.Inf(1), math.Inf(1)
	}
	if bodyType == BodyTypeStatic {
		body.IdleTime = math.Inf(1)
	}

	return body
}

// NewBody creates a dynamic body with the given mass and moment of inertia.
func NewBody(mass, moment float64) (*Body, error) {
	body := newBody(BodyTypeDynamic)
	if err := body.SetMass(mass); err != nil {
		return nil, err
	}
	if err := body.SetMoment(moment); err != nil {
		return nil, err
	}

	return body, nil
}

// NewKinematicBody creates a body moved only by its velocity.
func NewKinematicBody() *Body {
	return newBody(BodyTypeKinematic)
}

// NewStaticBody creates an immovable body.
func NewStaticBody() *Body {
	return newBody(BodyTypeStatic)
}

func (b *Body) Type() BodyType {
	return b.bodyType
}

func (b *Body) Owner() Owner {
	return b.owner
}

// SetOwner is called by the space when the body is added (owner != nil) or removed (owner == nil).
func (b *Body) SetOwner(owner Owner) {
	b.owner = owner
}

func (b *Body) Mass() float64 {
	return b.mass
}

func (b *Body) InverseMass() float64 {
	return b.invMass
}

func (b *Body) SetMass(mass float64) error {
	if b.bodyType != BodyTypeDynamic {
		return fmt.Errorf("%w: %s bodies have infinite mass", ErrInvalidMass, b.bodyType)
	}
	if !(mass > 0) || math.IsInf(mass, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidMass, mass)
	}

	b.Activate()
	b.mass, b.invMass = mass, 1/mass
	return nil
}

func (b *Body) Moment() float64 {
	return b.moment
}

func (b *Body) InverseMoment() float64 {
	return b.invMoment
}

func (b *Body) SetMoment(moment float64) error {
	if b.bodyType != BodyTypeDynamic {
		return fmt.Errorf("%w: %s bodies have infinite moment", ErrInvalidMoment, b.bodyType)
	}
	if !(moment > 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidMoment, moment)
	}

	b.Activate()
	b.moment, b.invMoment = moment, 1/moment
	return nil
}

// CenterOfGravity returns the center of gravity in body local coordinates.
func (b *Body) CenterOfGravity() mgl64.Vec2 {
	return b.cog
}

// SetCenterOfGravity moves the center of gravity in local coordinates; the world position of the
// center of gravity stays in place, so the body origin moves instead.
func (b *Body) SetCenterOfGravity(cog mgl64.Vec2) {
	b.Activate()
	b.cog = cog
	b.updateTransform()
}

// Center returns the world position of the center of gravity.
func (b *Body) Center() mgl64.Vec2 {
	return b.position
}

// Position returns the world position of the body origin.
func (b *Body) Position() mgl64.Vec2 {
	return b.transform.Translation()
}

func (b *Body) SetPosition(position mgl64.Vec2) {
	b.Activate()
	b.position = b.transform.Vect(b.cog).Add(position)
	b.updateTransform()
}

func (b *Body) Angle() float64 {
	return b.angle
}

func (b *Body) SetAngle(angle float64) {
	b.Activate()
	b.angle = angle
	b.updateTransform()
}

// Rotation returns the unit vector (cos, sin) of the body angle.
func (b *Body) Rotation() mgl64.Vec2 {
	return mgl64.Vec2{b.transform.M[0], b.transform.M[1]}
}

// Transform maps body local coordinates to world coordinates.
func (b *Body) Transform() geom.Transform {
	return b.transform
}

func (b *Body) updateTransform() {
	b.transform = geom.BodyTransform(b.position, geom.ForAngle(b.angle), b.cog)
}

func (b *Body) SetVelocity(velocity mgl64.Vec2) {
	b.Activate()
	b.Velocity = velocity
}

func (b *Body) SetAngularVelocity(w float64) {
	b.Activate()
	b.AngularVelocity = w
}

func (b *Body) Force() mgl64.Vec2 {
	return b.force
}

func (b *Body) SetForce(force mgl64.Vec2) {
	b.Activate()
	b.force = force
}

func (b *Body) Torque() float64 {
	return b.torque
}

func (b *Body) SetTorque(torque float64) {
	b.Activate()
	b.torque = torque
}

// LocalToWorld converts a point in body coordinates to world coordinates.
func (b *Body) LocalToWorld(point mgl64.Vec2) mgl64.Vec2 {
	return b.transform.Point(point)
}

// WorldToLocal converts a world point to body coordinates.
func (b *Body) WorldToLocal(point mgl64.Vec2) mgl64.Vec2 {
	return b.transform.Inverse().Point(point)
}

// ApplyForceAtWorldPoint accumulates a world force applied at a world point.
func (b *Body) ApplyForceAtWorldPoint(force, point mgl64.Vec2) {
	b.Activate()
	b.force = b.force.Add(force)

	r := point.Sub(b.position)
	b.torque += geom.Cross(r, force)
}

// ApplyForceAtLocalPoint accumulates a body-relative force applied at a local point.
func (b *Body) ApplyForceAtLocalPoint(force, point mgl64.Vec2) {
	b.ApplyForceAtWorldPoint(b.transform.Vect(force), b.transform.Point(point))
}

// ApplyImpulseAtWorldPoint changes the velocity immediately.
func (b *Body) ApplyImpulseAtWorldPoint(impulse, point mgl64.Vec2) {
	b.Activate()

	r := point.Sub(b.position)
	b.ApplyImpulse(r, impulse)
}

func (b *Body) ApplyImpulseAtLocalPoint(impulse, point mgl64.Vec2) {
	b.ApplyImpulseAtWorldPoint(b.transform.Vect(impulse), b.transform.Point(point))
}

// ApplyImpulse applies j at the offset r from the center of gravity, without waking the body.
func (b *Body) ApplyImpulse(r, j mgl64.Vec2) {
	b.Velocity = b.Velocity.Add(j.Mul(b.invMass))
	b.AngularVelocity += b.invMoment * geom.Cross(r, j)
}

// ApplyBiasImpulse is the position correction counterpart of ApplyImpulse.
func (b *Body) ApplyBiasImpulse(r, j mgl64.Vec2) {
	b.BiasVelocity = b.BiasVelocity.Add(j.Mul(b.invMass))
	b.BiasAngularVelocity += b.invMoment * geom.Cross(r, j)
}

// VelocityAtWorldPoint returns the velocity of the body at a world point.
func (b *Body) VelocityAtWorldPoint(point mgl64.Vec2) mgl64.Vec2 {
	r := point.Sub(b.position)
	return b.Velocity.Add(geom.Perp(r).Mul(b.AngularVelocity))
}

func (b *Body) VelocityAtLocalPoint(point mgl64.Vec2) mgl64.Vec2 {
	return b.VelocityAtWorldPoint(b.transform.Point(point))
}

// KineticEnergy is twice the actual kinetic energy; only relative values matter for sleeping.
func (b *Body) KineticEnergy() float64 {
	vsq := b.Velocity.Dot(b.Velocity)
	wsq := b.AngularVelocity * b.AngularVelocity

	var e float64
	if vsq != 0 {
		e += vsq * b.mass
	}
	if wsq != 0 {
		e += wsq * b.moment
	}
	return e
}

// UpdateVelocity is the default velocity integrator.
func (b *Body) UpdateVelocity(gravity mgl64.Vec2, damping, dt float64) {
	if b.bodyType == BodyTypeKinematic {
		return
	}

	v := b.Velocity.Mul(damping).Add(gravity.Add(b.force.Mul(b.invMass)).Mul(dt))
	b.Velocity = geom.ClampLen(v, b.VelocityLimit)

	w := b.AngularVelocity*damping + b.torque*b.invMoment*dt
	b.AngularVelocity = mgl64.Clamp(w, -b.AngularVelocityLimit, b.AngularVelocityLimit)

	b.force = mgl64.Vec2{}
	b.torque = 0
}

// UpdatePosition is the default position integrator. The bias velocities are consumed.
func (b *Body) UpdatePosition(dt float64) {
	b.position = b.position.Add(b.Velocity.Add(b.BiasVelocity).Mul(dt))
	b.angle += (b.AngularVelocity + b.BiasAngularVelocity) * dt
	b.updateTransform()

	b.BiasVelocity = mgl64.Vec2{}
	b.BiasAngularVelocity = 0
}

// Activate wakes the body and the island it belongs to.
func (b *Body) Activate() {
	if b.bodyType != BodyTypeDynamic {
		return
	}

	b.IdleTime = 0
	if b.owner != nil && b.IsSleeping {
		b.owner.ActivateBody(b)
	}
}

// ActivateStatic wakes every body touching this static body. When filter is not nil,
// only the bodies touching that shape are woken.
func (b *Body) ActivateStatic(filter Shape) {
	if b.bodyType != BodyTypeStatic || b.owner == nil {
		return
	}
	b.owner.ActivateStatic(b, filter)
}

// Sleep forces the body to sleep immediately, in an island of its own.
func (b *Body) Sleep() error {
	if b.owner == nil {
		return ErrNotInSpace
	}
	return b.owner.SleepBody(b)
}

// Shapes iterates the shapes attached to the body.
func (b *Body) Shapes() iter.Seq[Shape] {
	return func(yield func(Shape) bool) {
		for _, shape := range b.shapes {
			if !yield(shape) {
				return
			}
		}
	}
}

func (b *Body) ShapeCount() int {
	return len(b.shapes)
}

// AttachShape is called by the space when one of the body shapes is added.
func (b *Body) AttachShape(shape Shape) {
	if !slices.Contains(b.shapes, shape) {
		b.shapes = append(b.shapes, shape)
	}
}

// DetachShape is called by the space when one of the body shapes is removed.
func (b *Body) DetachShape(shape Shape) {
	b.shapes = slices.DeleteFunc(b.shapes, func(s Shape) bool {
		return s == shape
	})
}
