package feather2d

import (
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/constraint"
)

// Step advances the simulation by dt seconds. A zero dt does nothing.
//
// The step runs in phases:
//   - the shape geometry of the awake bodies is refreshed and the broad phase reports the
//     overlapping pairs, which go through the narrow phase and update their arbiters;
//   - sleeping islands touched by an awake body wake up, and stale arbiters separate or expire;
//   - the contacts and constraints are prepared, the velocities integrated, the cached impulses
//     applied and the solver iterated;
//   - the positions are integrated and the idle bodies may fall asleep.
//
// The space stays locked during the step: additions and removals must go through
// AddPostStepCallback. Callbacks and events run once the step is over.
func (s *Space) Step(dt float64) {
	if dt == 0 {
		return
	}
	if debugAsserts {
		assertf(dt > 0 && !math.IsInf(dt, 0), "invalid time step %v", dt)
	}

	s.stamp++
	s.prevDt, s.currDt = s.currDt, dt

	// broad and narrow phase
	s.lock()
	{
		clear(s.arbiters)
		s.arbiters = s.arbiters[:0]

		s.cacheAwakeShapes()
		s.dynamicShapes.ReindexQuery(s.collideShapes)
	}
	s.unlock(false)

	s.processContacts()

	s.lock()
	{
		s.filterArbiters()
		s.solve(dt)
		s.integratePositions(dt)
		s.updateSleep(dt)
	}
	s.unlock(true)
}

// cacheAwakeShapes refreshes the bounding boxes and world geometry of the shapes of the awake bodies.
func (s *Space) cacheAwakeShapes() {
	shapes := s.awakeShapes[:0]
	s.dynamicShapes.Each(func(shape actor.Shape) {
		shapes = append(shapes, shape)
	})

	task(s.workers, shapes, func(shape actor.Shape) {
		shape.CacheBB(shape.Body().Transform())
	})

	clear(shapes)
	s.awakeShapes = shapes[:0]
}

// rejectPair tells whether a pair reported by the broad phase cannot collide.
func (s *Space) rejectPair(a, b actor.Shape) bool {
	bodyA, bodyB := a.Body(), b.Body()
	if bodyA == bodyB {
		return true
	}
	if a.Base().Filter.Reject(b.Base().Filter) {
		return true
	}
	if !a.BB().Intersects(b.BB()) {
		return true
	}

	for _, c := range s.bodyConstraints[bodyA] {
		base := c.Base()
		if !base.CollideBodies && base.Other(bodyA) == bodyB {
			return true
		}
	}
	return false
}

// collideShapes is called by the broad phase for every overlapping pair.
func (s *Space) collideShapes(a, b actor.Shape, id uint32) uint32 {
	if s.rejectPair(a, b) {
		return id
	}

	info := s.narrow.collide(a, b, id)
	if len(info.contacts) == 0 {
		return info.id
	}

	key := makeArbiterKey(info.a, info.b)
	arb, ok := s.cachedArbiters[key]
	if !ok {
		arb = s.newArbiter(info.a, info.b)
		s.cachedArbiters[key] = arb
		s.arbiterCache = append(s.arbiterCache, arb)
	}
	arb.update(&info, s)

	if arb.state == ArbiterStateFirstCollision {
		if arb.handler.begin(arb, s) {
			s.events.emitBegin(arb)
		} else {
			arb.Ignore()
		}
	}

	sensor := info.a.Base().Sensor || info.b.Base().Sensor
	rigid := math.IsInf(info.a.Body().Mass(), 1) && math.IsInf(info.b.Body().Mass(), 1)

	if arb.state != ArbiterStateIgnore && arb.handler.preSolve(arb, s) && arb.state != ArbiterStateIgnore && !sensor && !rigid {
		s.arbiters = append(s.arbiters, arb)
	} else {
		arb.count = 0
		if arb.state != ArbiterStateIgnore {
			arb.state = ArbiterStateNormal
		}
	}

	arb.stamp = s.stamp
	return info.id
}

func (s *Space) newArbiter(a, b actor.Shape) *Arbiter {
	var arb *Arbiter
	if n := len(s.pooledArbiters); n > 0 {
		arb = s.pooledArbiters[n-1]
		s.pooledArbiters[n-1] = nil
		s.pooledArbiters = s.pooledArbiters[:n-1]
	} else {
		arb = new(Arbiter)
	}

	arb.init(a, b)
	return arb
}

// filterArbiters separates the arbiters not refreshed by the last narrow phase, and recycles
// those left untouched for CollisionPersistence steps.
func (s *Space) filterArbiters() {
	n := 0
	for _, arb := range s.arbiterCache {
		// the sensor and ignored arbiters of sleeping bodies are kept as they are
		if restingBody(arb.bodyA) && restingBody(arb.bodyB) {
			s.arbiterCache[n] = arb
			n++
			continue
		}

		ticks := s.stamp - arb.stamp

		if ticks >= 1 && arb.state != ArbiterStateCached {
			arb.state = ArbiterStateCached
			arb.handler.separate(arb, s)
			s.events.emitSeparate(arb)
		}

		if ticks >= s.collisionPersistence {
			delete(s.cachedArbiters, makeArbiterKey(arb.a, arb.b))
			s.pooledArbiters = append(s.pooledArbiters, arb)
			continue
		}

		s.arbiterCache[n] = arb
		n++
	}
	clear(s.arbiterCache[n:])
	s.arbiterCache = s.arbiterCache[:n]
}

func restingBody(body *actor.Body) bool {
	return body.Type() == actor.BodyTypeStatic || body.IsSleeping
}

// solve runs the sequential impulse solver over the contacts and the active constraints.
func (s *Space) solve(dt float64) {
	constraints := s.activeConstraints[:0]
	for _, c := range s.constraints {
		base := c.Base()
		if base.BodyA().IsSleeping || base.BodyB().IsSleeping {
			continue
		}
		constraints = append(constraints, c)
	}
	defer func() {
		clear(constraints)
		s.activeConstraints = constraints[:0]
	}()

	slop := s.collisionSlop
	biasCoef := 1 - math.Pow(s.collisionBias, dt)
	for _, arb := range s.arbiters {
		arb.preStep(dt, slop, biasCoef)
	}

	for _, c := range constraints {
		if preSolve := c.Base().PreSolve; preSolve != nil {
			preSolve(c, s)
		}
		c.PreStep(dt)
	}

	damping := math.Pow(s.damping, dt)
	for _, body := range s.bodies {
		if body.IsSleeping {
			continue
		}
		body.VelocityFunc(body, s.gravity, damping, dt)
	}

	dtCoef := 0.0
	if s.prevDt != 0 {
		dtCoef = dt / s.prevDt
	}
	for _, arb := range s.arbiters {
		arb.applyCachedImpulse(dtCoef)
	}
	for _, c := range constraints {
		c.ApplyCachedImpulse(dtCoef)
	}

	for range s.iterations {
		for _, arb := range s.arbiters {
			arb.applyImpulse()
		}
		for _, c := range constraints {
			c.ApplyImpulse(dt)
		}
	}

	for _, c := range constraints {
		if postSolve := c.Base().PostSolve; postSolve != nil {
			postSolve(c, s)
		}
	}

	for _, arb := range s.arbiters {
		arb.handler.postSolve(arb, s)
		arb.state = ArbiterStateNormal
	}
}

// integratePositions moves the awake bodies and refreshes the geometry of their shapes so
// queries between steps see the new positions.
func (s *Space) integratePositions(dt float64) {
	for _, body := range s.bodies {
		if body.IsSleeping {
			continue
		}
		body.PositionFunc(body, dt)

		if debugAsserts {
			assertBody(body)
		}
	}

	s.cacheAwakeShapes()
}

// assertBody checks the sanity of a body after integration.
func assertBody(body *actor.Body) {
	assertf(!math.IsNaN(body.Velocity.X()) && !math.IsNaN(body.Velocity.Y()), "body velocity is NaN")
	assertf(!math.IsNaN(body.AngularVelocity), "body angular velocity is NaN")
	assertf(!math.IsNaN(body.Position().X()) && !math.IsNaN(body.Position().Y()), "body position is NaN")
	assertf(body.Mass() == math.Inf(1) || body.Mass()*body.InverseMass() > 0.999, "body mass and inverse mass disagree")
}

var _ constraint.Space = (*Space)(nil)
var _ actor.Owner = (*Space)(nil)
