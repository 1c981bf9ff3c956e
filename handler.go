package feather2d

import (
	"github.com/akmonengine/feather2d/actor"
)

// WildcardCollisionType matches any collision type in a handler registered with AddWildcardHandler.
const WildcardCollisionType = ^actor.CollisionType(0)

// CollisionBeginFunc is called on the first step two shapes touch. Returning false ignores the
// pair until it separates.
type CollisionBeginFunc func(arb *Arbiter, space *Space, userData any) bool

// CollisionPreSolveFunc is called on every step the shapes touch, before the solver. Returning
// false skips the contacts for this step.
type CollisionPreSolveFunc func(arb *Arbiter, space *Space, userData any) bool

// CollisionPostSolveFunc is called after the solver; the impulses of the arbiter are known.
type CollisionPostSolveFunc func(arb *Arbiter, space *Space, userData any)

// CollisionSeparateFunc is called once the shapes stop touching, or when one of them is removed.
type CollisionSeparateFunc func(arb *Arbiter, space *Space, userData any)

// CollisionHandler holds the callbacks of the shape pairs whose collision types match TypeA and TypeB.
//
// A nil callback falls back to the default behavior. For pair handlers and the default handler it
// runs the wildcard handlers of both types; for wildcard handlers it accepts the collision and
// does nothing else.
type CollisionHandler struct {
	TypeA, TypeB actor.CollisionType

	Begin     CollisionBeginFunc
	PreSolve  CollisionPreSolveFunc
	PostSolve CollisionPostSolveFunc
	Separate  CollisionSeparateFunc

	UserData any

	wildcard bool
}

// doNothingHandler stands for a missing wildcard handler.
var doNothingHandler = &CollisionHandler{TypeA: WildcardCollisionType, TypeB: WildcardCollisionType, wildcard: true}

func (h *CollisionHandler) begin(arb *Arbiter, space *Space) bool {
	if h.Begin != nil {
		return h.Begin(arb, space, h.UserData)
	}
	if h.wildcard {
		return true
	}
	return arb.CallWildcardBeginA(space) && arb.CallWildcardBeginB(space)
}

func (h *CollisionHandler) preSolve(arb *Arbiter, space *Space) bool {
	if h.PreSolve != nil {
		return h.PreSolve(arb, space, h.UserData)
	}
	if h.wildcard {
		return true
	}
	return arb.CallWildcardPreSolveA(space) && arb.CallWildcardPreSolveB(space)
}

func (h *CollisionHandler) postSolve(arb *Arbiter, space *Space) {
	if h.PostSolve != nil {
		h.PostSolve(arb, space, h.UserData)
		return
	}
	if !h.wildcard {
		arb.CallWildcardPostSolveA(space)
		arb.CallWildcardPostSolveB(space)
	}
}

func (h *CollisionHandler) separate(arb *Arbiter, space *Space) {
	if h.Separate != nil {
		h.Separate(arb, space, h.UserData)
		return
	}
	if !h.wildcard {
		arb.CallWildcardSeparateA(space)
		arb.CallWildcardSeparateB(space)
	}
}

// handlerKey identifies a pair of collision types regardless of their order.
type handlerKey struct {
	a, b actor.CollisionType
}

func makeHandlerKey(a, b actor.CollisionType) handlerKey {
	if b < a {
		a, b = b, a
	}
	return handlerKey{a: a, b: b}
}

// AddCollisionHandler returns the handler of the pair (a, b), creating it when needed.
// The returned handler can be modified in place.
func (s *Space) AddCollisionHandler(a, b actor.CollisionType) *CollisionHandler {
	key := makeHandlerKey(a, b)
	if handler, ok := s.handlers[key]; ok {
		return handler
	}

	handler := &CollisionHandler{TypeA: a, TypeB: b}
	s.handlers[key] = handler
	return handler
}

// AddWildcardHandler returns the handler called for any pair involving a shape of collision type t.
func (s *Space) AddWildcardHandler(t actor.CollisionType) *CollisionHandler {
	key := makeHandlerKey(t, WildcardCollisionType)
	if handler, ok := s.handlers[key]; ok {
		return handler
	}

	handler := &CollisionHandler{TypeA: t, TypeB: WildcardCollisionType, wildcard: true}
	s.handlers[key] = handler
	return handler
}

// DefaultHandler returns the handler used by the pairs without a handler of their own.
func (s *Space) DefaultHandler() *CollisionHandler {
	return s.defaultHandler
}

func (s *Space) lookupHandler(a, b actor.CollisionType, fallback *CollisionHandler) *CollisionHandler {
	if handler, ok := s.handlers[makeHandlerKey(a, b)]; ok {
		return handler
	}
	return fallback
}
