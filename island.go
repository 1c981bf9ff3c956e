package feather2d

import (
	"slices"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// island is a group of sleeping bodies connected by contacts or constraints. It keeps the
// arbiters of its contacts so they resume with their impulses when the island wakes.
type island struct {
	bodies   []*actor.Body
	arbiters []*Arbiter
}

// unionFind groups the awake dynamic bodies of a step into islands. The root of a set is its
// lowest index, so islands come out in the order of the bodies.
type unionFind struct {
	parent  []int
	index   map[*actor.Body]int
	members [][]*actor.Body
}

func (u *unionFind) reset(bodies []*actor.Body) {
	if u.index == nil {
		u.index = make(map[*actor.Body]int, len(bodies))
	}
	clear(u.index)

	u.parent = u.parent[:0]
	for i, body := range bodies {
		u.parent = append(u.parent, i)
		u.index[body] = i
	}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

// link merges the sets of a and b. Bodies outside of the set (static, kinematic or sleeping)
// are ignored.
func (u *unionFind) link(a, b *actor.Body) {
	i, okA := u.index[a]
	j, okB := u.index[b]
	if !okA || !okB {
		return
	}

	ri, rj := u.find(i), u.find(j)
	switch {
	case ri < rj:
		u.parent[rj] = ri
	case rj < ri:
		u.parent[ri] = rj
	}
}

// groups returns the members of every set, indexed by root.
func (u *unionFind) groups(bodies []*actor.Body) [][]*actor.Body {
	for len(u.members) < len(bodies) {
		u.members = append(u.members, nil)
	}
	for i := range bodies {
		u.members[i] = u.members[i][:0]
	}

	for i, body := range bodies {
		root := u.find(i)
		u.members[root] = append(u.members[root], body)
	}
	return u.members[:len(bodies)]
}

// touchKinematic resets the idle time of a dynamic body in contact with a kinematic one, which
// may start moving at any time.
func touchKinematic(a, b *actor.Body) {
	if a.Type() == actor.BodyTypeKinematic && b.Type() == actor.BodyTypeDynamic {
		b.IdleTime = 0
	}
	if b.Type() == actor.BodyTypeKinematic && a.Type() == actor.BodyTypeDynamic {
		a.IdleTime = 0
	}
}

// processContacts runs between the narrow phase and the solver. A sleeping body touched by an
// awake one wakes with its island; the woken arbiters join the solver for this step.
func (s *Space) processContacts() {
	// bodies put to sleep by hand wake up even when automatic sleeping is off
	if !s.sleepEnabled() && len(s.islands) == 0 {
		return
	}

	// waking islands may append arbiters
	for i := 0; i < len(s.arbiters); i++ {
		arb := s.arbiters[i]
		a, b := arb.bodyA, arb.bodyB

		touchKinematic(a, b)
		if a.IsSleeping {
			s.wakeIsland(a)
		}
		if b.IsSleeping {
			s.wakeIsland(b)
		}
	}

	for _, c := range s.constraints {
		base := c.Base()
		a, b := base.BodyA(), base.BodyB()

		touchKinematic(a, b)
		// a constraint cannot link a moving body to a sleeping one
		if a.IsSleeping && !b.IsSleeping && b.Type() != actor.BodyTypeStatic {
			s.wakeIsland(a)
		}
		if b.IsSleeping && !a.IsSleeping && a.Type() != actor.BodyTypeStatic {
			s.wakeIsland(b)
		}
	}
}

// updateSleep accumulates the idle time of the awake bodies, then puts to sleep the islands whose
// bodies all stayed idle for SleepTimeThreshold.
func (s *Space) updateSleep(dt float64) {
	if !s.sleepEnabled() {
		return
	}

	dvsq := s.idleSpeedThreshold * s.idleSpeedThreshold
	if s.idleSpeedThreshold == 0 {
		dvsq = s.gravity.LenSqr() * dt * dt
	}

	awake := make([]*actor.Body, 0, len(s.bodies))
	for _, body := range s.bodies {
		if body.Type() != actor.BodyTypeDynamic || body.IsSleeping {
			continue
		}

		keThreshold := 0.0
		if dvsq != 0 {
			keThreshold = body.Mass() * dvsq
		}
		if body.KineticEnergy() > keThreshold {
			body.IdleTime = 0
		} else {
			body.IdleTime += dt
		}
		awake = append(awake, body)
	}

	s.uf.reset(awake)
	for _, arb := range s.arbiters {
		touchKinematic(arb.bodyA, arb.bodyB)
		s.uf.link(arb.bodyA, arb.bodyB)
	}
	for _, c := range s.constraints {
		base := c.Base()
		touchKinematic(base.BodyA(), base.BodyB())
		s.uf.link(base.BodyA(), base.BodyB())
	}

	slept := false
	for root, members := range s.uf.groups(awake) {
		if len(members) == 0 || s.uf.find(root) != root {
			continue
		}

		idle := true
		for _, body := range members {
			if body.IdleTime < s.sleepTimeThreshold {
				idle = false
				break
			}
		}
		if idle {
			s.sleepIsland(slices.Clone(members))
			slept = true
		}
	}

	if slept {
		s.parkArbiters()
	}
}

// sleepIsland stops the bodies and moves their shapes to the static index.
func (s *Space) sleepIsland(bodies []*actor.Body) {
	isl := &island{bodies: bodies}

	for _, body := range bodies {
		body.IsSleeping = true
		body.Velocity = mgl64.Vec2{}
		body.AngularVelocity = 0
		s.sleeping[body] = isl

		for shape := range body.Shapes() {
			id := shape.HashID()
			_ = s.dynamicShapes.Remove(shape, id)
			shape.CacheBB(body.Transform())
			_ = s.staticShapes.Insert(shape, id)
		}
		s.events.emitSleep(body)
	}
	s.islands = append(s.islands, isl)

	s.logger.Debug("island asleep", zap.Int("bodies", len(bodies)))
}

// parkArbiters moves the cached arbiters whose bodies are all asleep (or static) to their island.
func (s *Space) parkArbiters() {
	n := 0
	for _, arb := range s.arbiterCache {
		if isl := s.parkingIsland(arb); isl != nil {
			delete(s.cachedArbiters, makeArbiterKey(arb.a, arb.b))
			isl.arbiters = append(isl.arbiters, arb)
			continue
		}
		s.arbiterCache[n] = arb
		n++
	}
	clear(s.arbiterCache[n:])
	s.arbiterCache = s.arbiterCache[:n]
}

func (s *Space) parkingIsland(arb *Arbiter) *island {
	if arb.state == ArbiterStateCached {
		return nil
	}

	a, b := arb.bodyA, arb.bodyB
	islA, islB := s.sleeping[a], s.sleeping[b]
	staticA := a.Type() == actor.BodyTypeStatic
	staticB := b.Type() == actor.BodyTypeStatic

	switch {
	case islA != nil && (islB == islA || staticB):
		return islA
	case islB != nil && staticA:
		return islB
	default:
		return nil
	}
}

// wakeIsland wakes every body of the island of body and restores its arbiters.
func (s *Space) wakeIsland(body *actor.Body) {
	isl := s.sleeping[body]
	if isl == nil {
		return
	}
	s.islands = slices.DeleteFunc(s.islands, func(other *island) bool { return other == isl })

	for _, b := range isl.bodies {
		delete(s.sleeping, b)
		b.IsSleeping = false
		b.IdleTime = 0

		for shape := range b.Shapes() {
			id := shape.HashID()
			_ = s.staticShapes.Remove(shape, id)
			shape.CacheBB(b.Transform())
			_ = s.dynamicShapes.Insert(shape, id)
		}
		s.events.emitWake(b)
	}

	for _, arb := range isl.arbiters {
		key := makeArbiterKey(arb.a, arb.b)
		if _, ok := s.cachedArbiters[key]; ok {
			// the pair touched again through another path
			s.pooledArbiters = append(s.pooledArbiters, arb)
			continue
		}

		arb.stamp = s.stamp
		s.cachedArbiters[key] = arb
		s.arbiterCache = append(s.arbiterCache, arb)
		if arb.count > 0 && arb.state < ArbiterStateIgnore {
			s.arbiters = append(s.arbiters, arb)
		}
	}

	s.logger.Debug("island awake", zap.Int("bodies", len(isl.bodies)), zap.Int("arbiters", len(isl.arbiters)))
}
