package feather2d

import (
	"fmt"
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/constraint"
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// ArbiterState is the lifecycle of the contact between two shapes.
type ArbiterState int

const (
	// ArbiterStateFirstCollision is the state of an arbiter during the first step its shapes touch
	ArbiterStateFirstCollision ArbiterState = iota
	// ArbiterStateNormal is the state of an arbiter touching for more than one step
	ArbiterStateNormal
	// ArbiterStateIgnore is set by Ignore, or when Begin rejected the pair, until the shapes separate
	ArbiterStateIgnore
	// ArbiterStateCached is the state of an arbiter whose shapes stopped touching; it is kept a few
	// steps so a contact that comes back quickly keeps its impulses
	ArbiterStateCached
	// ArbiterStateInvalidated is the state of an arbiter whose shape was removed
	ArbiterStateInvalidated
)

func (s ArbiterState) String() string {
	switch s {
	case ArbiterStateFirstCollision:
		return "first_collision"
	case ArbiterStateNormal:
		return "normal"
	case ArbiterStateIgnore:
		return "ignore"
	case ArbiterStateCached:
		return "cached"
	case ArbiterStateInvalidated:
		return "invalidated"
	default:
		return fmt.Sprintf("ArbiterState(%d)", int(s))
	}
}

// contact is a persistent contact point. r1 and r2 are the offsets of the points from the centers
// of gravity of body A and B.
type contact struct {
	r1, r2 mgl64.Vec2

	nMass, tMass float64
	bounce       float64
	bias         float64

	jnAcc, jtAcc float64
	jBias        float64

	hash uint64
}

// ContactPoint is a contact point in world coordinates. Distance is negative when the shapes overlap.
type ContactPoint struct {
	PointA, PointB mgl64.Vec2
	Distance       float64
}

// ContactPointSet is the contact manifold of an arbiter, seen from its first shape.
type ContactPointSet struct {
	Count  int
	Normal mgl64.Vec2
	Points [MaxContactsPerArbiter]ContactPoint
}

// Arbiter tracks the contact between a pair of shapes for as long as they touch.
// Its contacts carry their accumulated impulses from one step to the next.
type Arbiter struct {
	// Elasticity and Friction are the products of the shape values; handlers may override them
	// in PreSolve, they are recomputed on every step
	Elasticity float64
	Friction   float64

	UserData any

	a, b         actor.Shape
	bodyA, bodyB *actor.Body

	handler            *CollisionHandler
	handlerA, handlerB *CollisionHandler
	swapped            bool

	contacts [MaxContactsPerArbiter]contact
	count    int
	n        mgl64.Vec2

	surfaceVr mgl64.Vec2

	stamp uint64
	state ArbiterState
	// began is set while a begin event is waiting for its separate event
	began bool
}

func (arb *Arbiter) init(a, b actor.Shape) {
	*arb = Arbiter{
		a:        a,
		b:        b,
		bodyA:    a.Body(),
		bodyB:    b.Body(),
		handlerA: doNothingHandler,
		handlerB: doNothingHandler,
		state:    ArbiterStateFirstCollision,
	}
}

func (arb *Arbiter) State() ArbiterState {
	return arb.state
}

// Shapes returns the shapes in the order of the collision handler types.
func (arb *Arbiter) Shapes() (actor.Shape, actor.Shape) {
	if arb.swapped {
		return arb.b, arb.a
	}
	return arb.a, arb.b
}

// Bodies returns the bodies in the order of the collision handler types.
func (arb *Arbiter) Bodies() (*actor.Body, *actor.Body) {
	a, b := arb.Shapes()
	return a.Body(), b.Body()
}

// Normal points from the first shape to the second one.
func (arb *Arbiter) Normal() mgl64.Vec2 {
	if arb.swapped {
		return geom.Neg(arb.n)
	}
	return arb.n
}

// Count is the number of contact points, 0 once the shapes separated.
func (arb *Arbiter) Count() int {
	if arb.state < ArbiterStateCached {
		return arb.count
	}
	return 0
}

func (arb *Arbiter) SurfaceVelocity() mgl64.Vec2 {
	if arb.swapped {
		return geom.Neg(arb.surfaceVr)
	}
	return arb.surfaceVr
}

// SetSurfaceVelocity overrides the relative surface velocity of the pair for the current step.
func (arb *Arbiter) SetSurfaceVelocity(vr mgl64.Vec2) {
	if arb.swapped {
		vr = geom.Neg(vr)
	}
	arb.surfaceVr = vr
}

// ContactPointSet returns the contact points in world coordinates.
func (arb *Arbiter) ContactPointSet() ContactPointSet {
	set := ContactPointSet{
		Count:  arb.Count(),
		Normal: arb.Normal(),
	}

	n := arb.n
	for i := 0; i < set.Count; i++ {
		p1 := arb.bodyA.Center().Add(arb.contacts[i].r1)
		p2 := arb.bodyB.Center().Add(arb.contacts[i].r2)

		if arb.swapped {
			set.Points[i].PointA, set.Points[i].PointB = p2, p1
		} else {
			set.Points[i].PointA, set.Points[i].PointB = p1, p2
		}
		set.Points[i].Distance = p2.Sub(p1).Dot(n)
	}

	return set
}

// SetContactPointSet replaces the contact points and the normal, typically from PreSolve.
// The number of points cannot change.
func (arb *Arbiter) SetContactPointSet(set ContactPointSet) error {
	if set.Count != arb.count {
		return fmt.Errorf("%w: contact count %d, the arbiter has %d", ErrInvalidParameter, set.Count, arb.count)
	}

	for i := 0; i < set.Count; i++ {
		p1, p2 := set.Points[i].PointA, set.Points[i].PointB
		if arb.swapped {
			p1, p2 = p2, p1
		}
		arb.contacts[i].r1 = p1.Sub(arb.bodyA.Center())
		arb.contacts[i].r2 = p2.Sub(arb.bodyB.Center())
	}

	arb.n = set.Normal
	if arb.swapped {
		arb.n = geom.Neg(set.Normal)
	}
	return nil
}

// TotalImpulse is the impulse applied by the contacts during the last step, on the first shape.
func (arb *Arbiter) TotalImpulse() mgl64.Vec2 {
	var sum mgl64.Vec2
	for i := 0; i < arb.Count(); i++ {
		con := &arb.contacts[i]
		sum = sum.Add(geom.Rotate(arb.n, mgl64.Vec2{con.jnAcc, con.jtAcc}))
	}

	if arb.swapped {
		return sum
	}
	return geom.Neg(sum)
}

// TotalKE estimates the kinetic energy lost by the collision during the last step.
func (arb *Arbiter) TotalKE() float64 {
	eCoef := (1 - arb.Elasticity) / (1 + arb.Elasticity)

	var sum float64
	for i := 0; i < arb.Count(); i++ {
		con := &arb.contacts[i]
		sum += eCoef*con.jnAcc*con.jnAcc/con.nMass + con.jtAcc*con.jtAcc/con.tMass
	}
	return sum
}

// Ignore drops the contacts until the shapes separate. It always returns false so a callback can
// end with `return arb.Ignore()`.
func (arb *Arbiter) Ignore() bool {
	arb.state = ArbiterStateIgnore
	return false
}

// IsFirstContact reports whether this is the first step the shapes touch.
func (arb *Arbiter) IsFirstContact() bool {
	return arb.state == ArbiterStateFirstCollision
}

// IsRemoval reports whether Separate is being called because a shape was removed.
func (arb *Arbiter) IsRemoval() bool {
	return arb.state == ArbiterStateInvalidated
}

// The wildcard calls run the wildcard handler of each shape from a pair handler.
// Handler B sees the arbiter with its shapes swapped.

func (arb *Arbiter) CallWildcardBeginA(space *Space) bool {
	return arb.handlerA.begin(arb, space)
}

func (arb *Arbiter) CallWildcardBeginB(space *Space) bool {
	arb.swapped = !arb.swapped
	ok := arb.handlerB.begin(arb, space)
	arb.swapped = !arb.swapped
	return ok
}

func (arb *Arbiter) CallWildcardPreSolveA(space *Space) bool {
	return arb.handlerA.preSolve(arb, space)
}

func (arb *Arbiter) CallWildcardPreSolveB(space *Space) bool {
	arb.swapped = !arb.swapped
	ok := arb.handlerB.preSolve(arb, space)
	arb.swapped = !arb.swapped
	return ok
}

func (arb *Arbiter) CallWildcardPostSolveA(space *Space) {
	arb.handlerA.postSolve(arb, space)
}

func (arb *Arbiter) CallWildcardPostSolveB(space *Space) {
	arb.swapped = !arb.swapped
	arb.handlerB.postSolve(arb, space)
	arb.swapped = !arb.swapped
}

func (arb *Arbiter) CallWildcardSeparateA(space *Space) {
	arb.handlerA.separate(arb, space)
}

func (arb *Arbiter) CallWildcardSeparateB(space *Space) {
	arb.swapped = !arb.swapped
	arb.handlerB.separate(arb, space)
	arb.swapped = !arb.swapped
}

// update replaces the contacts with the result of the narrow phase. Contacts matching a previous
// one by feature hash keep its accumulated impulses.
func (arb *Arbiter) update(info *collisionInfo, space *Space) {
	a, b := info.a, info.b

	// same type pairs may come in any order
	arb.a, arb.bodyA = a, a.Body()
	arb.b, arb.bodyB = b, b.Body()

	var contacts [MaxContactsPerArbiter]contact
	for i, c := range info.contacts {
		con := contact{
			r1:   c.A.Sub(arb.bodyA.Center()),
			r2:   c.B.Sub(arb.bodyB.Center()),
			hash: c.Hash,
		}

		for j := 0; j < arb.count; j++ {
			if old := &arb.contacts[j]; old.hash == con.hash {
				con.jnAcc = old.jnAcc
				con.jtAcc = old.jtAcc
			}
		}
		contacts[i] = con
	}
	arb.contacts = contacts
	arb.count = len(info.contacts)
	arb.n = info.n

	sa, sb := a.Base(), b.Base()
	arb.Elasticity = sa.Elasticity * sb.Elasticity
	arb.Friction = sa.Friction * sb.Friction

	surfaceVr := sb.SurfaceVelocity.Sub(sa.SurfaceVelocity)
	arb.surfaceVr = surfaceVr.Sub(info.n.Mul(surfaceVr.Dot(info.n)))

	typeA, typeB := sa.CollisionType, sb.CollisionType
	arb.handler = space.lookupHandler(typeA, typeB, space.defaultHandler)

	// the default handler uses the wildcard for its first type and never swaps
	arb.swapped = typeA != arb.handler.TypeA && arb.handler.TypeA != WildcardCollisionType
	if arb.swapped {
		typeA, typeB = typeB, typeA
	}
	arb.handlerA = space.lookupHandler(typeA, WildcardCollisionType, doNothingHandler)
	arb.handlerB = space.lookupHandler(typeB, WildcardCollisionType, doNothingHandler)

	if arb.state == ArbiterStateCached {
		arb.state = ArbiterStateFirstCollision
	}
}

// preStep computes the effective masses, the position correction bias and the restitution target.
func (arb *Arbiter) preStep(dt, slop, bias float64) {
	a, b := arb.bodyA, arb.bodyB
	n := arb.n
	bodyDelta := b.Center().Sub(a.Center())

	for i := 0; i < arb.count; i++ {
		con := &arb.contacts[i]

		con.nMass = 1 / constraint.KScalar(a, b, con.r1, con.r2, n)
		con.tMass = 1 / constraint.KScalar(a, b, con.r1, con.r2, geom.Perp(n))

		dist := con.r2.Sub(con.r1).Add(bodyDelta).Dot(n)
		con.bias = -bias * math.Min(0, dist+slop) / dt
		con.jBias = 0

		con.bounce = constraint.NormalRelativeVelocity(a, b, con.r1, con.r2, n) * arb.Elasticity
	}
}

// applyCachedImpulse warm starts the contacts with the impulses of the previous step.
func (arb *Arbiter) applyCachedImpulse(dtCoef float64) {
	if arb.IsFirstContact() {
		return
	}

	a, b := arb.bodyA, arb.bodyB
	for i := 0; i < arb.count; i++ {
		con := &arb.contacts[i]
		j := geom.Rotate(arb.n, mgl64.Vec2{con.jnAcc, con.jtAcc})
		constraint.ApplyImpulses(a, b, con.r1, con.r2, j.Mul(dtCoef))
	}
}

// applyImpulse runs one solver iteration over the contacts: the bias impulse corrects the overlap,
// the normal impulse stops the approach and the friction impulse is bounded by Friction * jnAcc.
func (arb *Arbiter) applyImpulse() {
	a, b := arb.bodyA, arb.bodyB
	n := arb.n
	t := geom.Perp(n)

	for i := 0; i < arb.count; i++ {
		con := &arb.contacts[i]
		r1, r2 := con.r1, con.r2

		vb1 := a.BiasVelocity.Add(geom.Perp(r1).Mul(a.BiasAngularVelocity))
		vb2 := b.BiasVelocity.Add(geom.Perp(r2).Mul(b.BiasAngularVelocity))
		vr := constraint.RelativeVelocity(a, b, r1, r2).Add(arb.surfaceVr)

		vbn := vb2.Sub(vb1).Dot(n)
		vrn := vr.Dot(n)
		vrt := vr.Dot(t)

		jbn := (con.bias - vbn) * con.nMass
		jbnOld := con.jBias
		con.jBias = math.Max(jbnOld+jbn, 0)

		jn := -(con.bounce + vrn) * con.nMass
		jnOld := con.jnAcc
		con.jnAcc = math.Max(jnOld+jn, 0)

		jtMax := arb.Friction * con.jnAcc
		jt := -vrt * con.tMass
		jtOld := con.jtAcc
		con.jtAcc = mgl64.Clamp(jtOld+jt, -jtMax, jtMax)

		constraint.ApplyBiasImpulses(a, b, r1, r2, n.Mul(con.jBias-jbnOld))
		constraint.ApplyImpulses(a, b, r1, r2, geom.Rotate(n, mgl64.Vec2{con.jnAcc - jnOld, con.jtAcc - jtOld}))
	}
}

// arbiterKey identifies the arbiter of a shape pair regardless of the order of the shapes.
type arbiterKey struct {
	a, b actor.Shape
}

func makeArbiterKey(a, b actor.Shape) arbiterKey {
	if b.HashID() < a.HashID() {
		a, b = b, a
	}
	return arbiterKey{a: a, b: b}
}
