// Package constraint implements the joints solved by the sequential impulse solver.
//
// Every joint follows the same three phase protocol, driven by the space once per step:
//   - PreStep computes the anchors in world space, the effective mass along the constrained
//     direction and the bias velocity that corrects the positional error.
//   - ApplyCachedImpulse re-applies the impulse accumulated during the previous step, scaled by
//     the ratio of the time steps (warm starting).
//   - ApplyImpulse is called once per solver iteration: it computes the impulse needed to
//     satisfy the velocity constraint, clamps the accumulated total, and applies the difference.
//
// The accumulated impulse is kept between steps and exposed by Impulse so a caller can detect
// an overloaded joint and break it (see Breakable).
package constraint

import (
	"errors"
	"math"

	"github.com/akmonengine/feather2d/actor"
)

var (
	ErrSameBody = errors.New("constraint: both bodies are the same")
	ErrNilBody  = errors.New("constraint: nil body")
)

// DefaultErrorBias is the fraction of the positional error left after one second: 10% of the
// error is corrected every 1/60th of a second.
var DefaultErrorBias = math.Pow(1-0.1, 60)

// Space is the part of the simulation space visible to constraint callbacks.
type Space interface {
	// AddPostStepCallback schedules fn to run once the current step is over. Callbacks are
	// deduplicated by key; it returns false when key was already registered.
	AddPostStepCallback(key any, fn func()) bool
	RemoveConstraint(c Constraint) error
	// CurrentTimeStep is the dt of the step in progress, or of the last one.
	CurrentTimeStep() float64
}

// SolveFunc is called before (PreSolve) or after (PostSolve) the solver runs.
type SolveFunc func(c Constraint, space Space)

type Constraint interface {
	Base() *ConstraintBase

	// PreStep prepares the constraint for the solver iterations of a step of duration dt.
	PreStep(dt float64)
	// ApplyCachedImpulse applies the impulse of the previous step, scaled by dtCoef.
	ApplyCachedImpulse(dtCoef float64)
	// ApplyImpulse runs one solver iteration.
	ApplyImpulse(dt float64)
	// Impulse is the magnitude of the impulse applied during the last step.
	Impulse() float64
}

// ConstraintBase holds the state shared by all the joints.
type ConstraintBase struct {
	// MaxForce is the maximum force the constraint can use to act on the bodies.
	MaxForce float64
	// ErrorBias is the fraction of the joint error left uncorrected after one second.
	ErrorBias float64
	// MaxBias is the maximum speed at which the joint corrects its error.
	MaxBias float64
	// CollideBodies tells whether the two bodies may still collide with each other.
	CollideBodies bool

	PreSolve  SolveFunc
	PostSolve SolveFunc

	UserData any

	a, b  *actor.Body
	space Space
}

func newBase(a, b *actor.Body) ConstraintBase {
	return ConstraintBase{
		MaxForce:      math.Inf(1),
		ErrorBias:     DefaultErrorBias,
		MaxBias:       math.Inf(1),
		CollideBodies: true,
		a:             a,
		b:             b,
	}
}

func (c *ConstraintBase) Base() *ConstraintBase {
	return c
}

func (c *ConstraintBase) BodyA() *actor.Body {
	return c.a
}

func (c *ConstraintBase) BodyB() *actor.Body {
	return c.b
}

// Space returns the space the constraint was added to, or nil.
func (c *ConstraintBase) Space() Space {
	return c.space
}

// SetSpace is called by the space when the constraint is added (space != nil) or removed.
func (c *ConstraintBase) SetSpace(space Space) {
	c.space = space
}

// ActivateBodies wakes both bodies. Joint setters call it so a sleeping island notices the change.
func (c *ConstraintBase) ActivateBodies() {
	if c.a != nil {
		c.a.Activate()
	}
	if c.b != nil {
		c.b.Activate()
	}
}

// Validate reports whether the two bodies can be jointed.
func (c *ConstraintBase) Validate() error {
	if c.a == nil || c.b == nil {
		return ErrNilBody
	}
	if c.a == c.b {
		return ErrSameBody
	}
	return nil
}

// Other returns the body at the other end of the constraint.
func (c *ConstraintBase) Other(body *actor.Body) *actor.Body {
	if c.a == body {
		return c.b
	}
	return c.a
}
