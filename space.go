package feather2d

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/config"
	"github.com/akmonengine/feather2d/constraint"
	"github.com/akmonengine/feather2d/geom"
	"github.com/akmonengine/feather2d/index"
	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type postStepCallback struct {
	key any
	fn  func()
}

// Space owns the bodies, shapes and constraints of a simulation and advances them with Step.
//
// A space is not safe for concurrent use. Independent spaces can be stepped in parallel with
// StepParallel.
type Space struct {
	id     uuid.UUID
	logger *zap.Logger

	gravity              mgl64.Vec2
	damping              float64
	iterations           int
	idleSpeedThreshold   float64
	sleepTimeThreshold   float64
	collisionSlop        float64
	collisionBias        float64
	collisionPersistence uint64
	workers              int

	stamp          uint64
	currDt, prevDt float64

	staticBody *actor.Body

	// bodies holds the dynamic and kinematic bodies, asleep or not
	bodies          []*actor.Body
	staticBodies    []*actor.Body
	shapes          []actor.Shape
	constraints     []constraint.Constraint
	bodyConstraints map[*actor.Body][]constraint.Constraint

	dynamicShapes index.SpatialIndex[actor.Shape]
	staticShapes  index.SpatialIndex[actor.Shape]

	cachedArbiters map[arbiterKey]*Arbiter
	// arbiterCache lists cachedArbiters in insertion order
	arbiterCache   []*Arbiter
	arbiters       []*Arbiter
	pooledArbiters []*Arbiter

	islands  []*island
	sleeping map[*actor.Body]*island
	roused   []*actor.Body

	handlers       map[handlerKey]*CollisionHandler
	defaultHandler *CollisionHandler

	events Events

	locked          int
	postStep        []postStepCallback
	postStepKeys    map[any]struct{}
	runningPostStep bool

	narrow      *narrowPhase
	queryNarrow *narrowPhase
	uf          unionFind

	// scratch buffers reused between steps
	awakeShapes       []actor.Shape
	activeConstraints []constraint.Constraint

	shapeCounter uint64
}

// NewSpace creates an empty space with the default parameters, modified by opts.
func NewSpace(opts ...Option) (*Space, error) {
	st := settings{
		config: config.Default(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&st)
	}

	if err := st.config.Validate(); err != nil {
		return nil, err
	}
	if st.logger == nil {
		st.logger = zap.NewNop()
	}

	id := uuid.New()
	cfg := st.config
	s := &Space{
		id:                   id,
		logger:               st.logger.With(zap.Stringer("space", id)),
		gravity:              mgl64.Vec2{cfg.Gravity.X, cfg.Gravity.Y},
		damping:              cfg.Damping,
		iterations:           cfg.Iterations,
		idleSpeedThreshold:   cfg.IdleSpeedThreshold,
		sleepTimeThreshold:   cfg.SleepTimeThreshold,
		collisionSlop:        cfg.CollisionSlop,
		collisionBias:        cfg.CollisionBias,
		collisionPersistence: cfg.CollisionPersistence,
		workers:              cfg.Workers,
		bodyConstraints:      make(map[*actor.Body][]constraint.Constraint),
		cachedArbiters:       make(map[arbiterKey]*Arbiter),
		sleeping:             make(map[*actor.Body]*island),
		handlers:             make(map[handlerKey]*CollisionHandler),
		defaultHandler:       &CollisionHandler{TypeA: WildcardCollisionType, TypeB: WildcardCollisionType},
		events:               NewEvents(),
		postStepKeys:         make(map[any]struct{}),
		narrow:               newNarrowPhase(),
		queryNarrow:          newNarrowPhase(),
	}
	s.setupIndexes(cfg.Index)

	s.staticBody = actor.NewStaticBody()
	s.staticBody.SetOwner(s)

	s.logger.Debug("space created",
		zap.Int("iterations", s.iterations),
		zap.String("index", cfg.Index.Kind),
		zap.Int("workers", s.workers),
	)
	return s, nil
}

// NewSpaceFromConfig creates a space from a loaded configuration. opts apply on top of it.
func NewSpaceFromConfig(cfg config.Space, opts ...Option) (*Space, error) {
	return NewSpace(append([]Option{WithConfig(cfg)}, opts...)...)
}

func (s *Space) setupIndexes(cfg config.Index) {
	bbfunc := func(shape actor.Shape) geom.BB {
		return shape.BB()
	}

	if cfg.Kind == config.IndexSpatialHash {
		static := index.NewSpatialHash[actor.Shape](cfg.CellSize, cfg.Cells, bbfunc, nil)
		s.staticShapes = static
		s.dynamicShapes = index.NewSpatialHash[actor.Shape](cfg.CellSize, cfg.Cells, bbfunc, static)
		return
	}

	static := index.NewBBTree[actor.Shape](bbfunc, nil)
	dynamic := index.NewBBTree[actor.Shape](bbfunc, static)
	dynamic.SetVelocityFunc(func(shape actor.Shape) mgl64.Vec2 {
		return shape.Body().Velocity
	})
	s.staticShapes = static
	s.dynamicShapes = dynamic
}

func (s *Space) ID() uuid.UUID {
	return s.id
}

// StaticBody is the static body owned by the space, for shapes that never move.
func (s *Space) StaticBody() *actor.Body {
	return s.staticBody
}

// Events returns the event bus of the space. Events are delivered once the current step is over.
func (s *Space) Events() *Events {
	return &s.events
}

func (s *Space) Gravity() mgl64.Vec2 {
	return s.gravity
}

// SetGravity changes the gravity and wakes every body so resting piles feel the change.
func (s *Space) SetGravity(gravity mgl64.Vec2) {
	s.gravity = gravity
	for _, body := range s.bodies {
		body.Activate()
	}
}

func (s *Space) Damping() float64 {
	return s.damping
}

func (s *Space) SetDamping(damping float64) error {
	if math.IsNaN(damping) || math.IsInf(damping, 0) || damping < 0 {
		return fmt.Errorf("%w: damping %v", ErrInvalidParameter, damping)
	}
	s.damping = damping
	return nil
}

func (s *Space) Iterations() int {
	return s.iterations
}

func (s *Space) SetIterations(iterations int) error {
	if iterations <= 0 {
		return fmt.Errorf("%w: iterations %d", ErrInvalidParameter, iterations)
	}
	s.iterations = iterations
	return nil
}

func (s *Space) IdleSpeedThreshold() float64 {
	return s.idleSpeedThreshold
}

// SetIdleSpeedThreshold sets the speed under which a body counts as idle. 0 derives it from the gravity.
func (s *Space) SetIdleSpeedThreshold(threshold float64) error {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < 0 {
		return fmt.Errorf("%w: idle speed threshold %v", ErrInvalidParameter, threshold)
	}
	s.idleSpeedThreshold = threshold
	return nil
}

func (s *Space) SleepTimeThreshold() float64 {
	return s.sleepTimeThreshold
}

// SetSleepTimeThreshold sets how long an island stays idle before sleeping. +Inf disables sleeping.
func (s *Space) SetSleepTimeThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold <= 0 {
		return fmt.Errorf("%w: sleep time threshold %v", ErrInvalidParameter, threshold)
	}
	s.sleepTimeThreshold = threshold
	return nil
}

func (s *Space) CollisionSlop() float64 {
	return s.collisionSlop
}

// SetCollisionSlop sets the overlap allowed between shapes before the solver pushes them apart.
func (s *Space) SetCollisionSlop(slop float64) error {
	if math.IsNaN(slop) || math.IsInf(slop, 0) || slop < 0 {
		return fmt.Errorf("%w: collision slop %v", ErrInvalidParameter, slop)
	}
	s.collisionSlop = slop
	return nil
}

func (s *Space) CollisionBias() float64 {
	return s.collisionBias
}

// SetCollisionBias sets the fraction of the overlap left uncorrected after one second.
func (s *Space) SetCollisionBias(bias float64) error {
	if math.IsNaN(bias) || bias < 0 || bias > 1 {
		return fmt.Errorf("%w: collision bias %v", ErrInvalidParameter, bias)
	}
	s.collisionBias = bias
	return nil
}

func (s *Space) CollisionPersistence() uint64 {
	return s.collisionPersistence
}

func (s *Space) SetCollisionPersistence(steps uint64) error {
	if steps == 0 {
		return fmt.Errorf("%w: collision persistence must be at least 1", ErrInvalidParameter)
	}
	s.collisionPersistence = steps
	return nil
}

// CurrentTimeStep is the dt of the step in progress, or of the last one.
func (s *Space) CurrentTimeStep() float64 {
	return s.currDt
}

// Stamp counts the steps taken so far.
func (s *Space) Stamp() uint64 {
	return s.stamp
}

// Locked reports whether the space is stepping or iterating, when bodies, shapes and constraints
// cannot be added or removed. Use AddPostStepCallback instead.
func (s *Space) Locked() bool {
	return s.locked > 0
}

func (s *Space) sleepEnabled() bool {
	return !math.IsInf(s.sleepTimeThreshold, 1)
}

func (s *Space) checkUnlocked(op string) error {
	if s.locked > 0 {
		s.logger.Warn("space is locked", zap.String("op", op))
		return fmt.Errorf("%w: %s", ErrSpaceLocked, op)
	}
	return nil
}

// ============================================================================
// Bodies
// ============================================================================

// AddBody adds a body to the space. Its shapes are added separately with AddShape.
func (s *Space) AddBody(body *actor.Body) error {
	if body == nil {
		return fmt.Errorf("%w: nil body", ErrInvalidParameter)
	}
	if err := s.checkUnlocked("add body"); err != nil {
		return err
	}
	if body.Owner() != nil {
		return ErrBodyInSpace
	}

	if body.Type() == actor.BodyTypeStatic {
		s.staticBodies = append(s.staticBodies, body)
	} else {
		s.bodies = append(s.bodies, body)
	}
	body.SetOwner(s)

	s.logger.Debug("body added", zap.Stringer("type", body.Type()))
	return nil
}

// RemoveBody removes a body and its shapes. Its constraints must be removed first.
func (s *Space) RemoveBody(body *actor.Body) error {
	if err := s.checkUnlocked("remove body"); err != nil {
		return err
	}
	if body == nil || body.Owner() != s || body == s.staticBody {
		return ErrBodyNotInSpace
	}
	if len(s.bodyConstraints[body]) > 0 {
		return ErrBodyHasConstraints
	}

	body.Activate()
	for _, shape := range slices.Collect(body.Shapes()) {
		if err := s.RemoveShape(shape); err != nil {
			return err
		}
	}

	if body.Type() == actor.BodyTypeStatic {
		s.staticBodies = slices.DeleteFunc(s.staticBodies, func(b *actor.Body) bool { return b == body })
	} else {
		s.bodies = slices.DeleteFunc(s.bodies, func(b *actor.Body) bool { return b == body })
	}
	delete(s.bodyConstraints, body)
	body.SetOwner(nil)

	s.logger.Debug("body removed", zap.Stringer("type", body.Type()))
	return nil
}

func (s *Space) ContainsBody(body *actor.Body) bool {
	return body != nil && body.Owner() == s
}

// ============================================================================
// Shapes
// ============================================================================

// AddShape adds a shape whose body was already added to the space (or is the space static body).
func (s *Space) AddShape(shape actor.Shape) error {
	if shape == nil || shape.Body() == nil {
		return fmt.Errorf("%w: shape without a body", ErrInvalidParameter)
	}
	if err := s.checkUnlocked("add shape"); err != nil {
		return err
	}
	if shape.Base().Owner() != nil {
		return ErrShapeInSpace
	}

	body := shape.Body()
	if body.Owner() != s {
		return ErrBodyNotInSpace
	}

	isStatic := body.Type() == actor.BodyTypeStatic
	if !isStatic {
		body.Activate()
	}
	shape.CacheBB(body.Transform())

	target := s.dynamicShapes
	if isStatic || body.IsSleeping {
		target = s.staticShapes
	}

	var id uint64
	for {
		id = s.newShapeID()
		err := target.Insert(shape, id)
		if err == nil {
			break
		}
		if !errors.Is(err, index.ErrDuplicate) {
			return err
		}
	}

	shape.Base().SetOwner(s, id)
	body.AttachShape(shape)
	s.shapes = append(s.shapes, shape)

	s.logger.Debug("shape added", zap.Stringer("type", shape.Type()), zap.Uint64("hash", id))
	return nil
}

// newShapeID derives the shape hashes from a counter so two identical scenes index their shapes
// the same way.
func (s *Space) newShapeID() uint64 {
	var buf [8]byte
	for {
		s.shapeCounter++
		binary.LittleEndian.PutUint64(buf[:], s.shapeCounter)
		if id := xxhash.Sum64(buf[:]); id != 0 {
			return id
		}
	}
}

// RemoveShape removes a shape. The arbiters it was part of run their Separate callbacks.
func (s *Space) RemoveShape(shape actor.Shape) error {
	if err := s.checkUnlocked("remove shape"); err != nil {
		return err
	}
	if shape == nil || shape.Base().Owner() != s {
		return ErrShapeNotInSpace
	}

	body := shape.Body()
	if body.Type() == actor.BodyTypeStatic {
		body.ActivateStatic(shape)
	} else {
		body.Activate()
	}

	s.lock()
	s.filterArbitersFor(body, shape)

	id := shape.HashID()
	if s.dynamicShapes.Contains(shape, id) {
		_ = s.dynamicShapes.Remove(shape, id)
	} else {
		_ = s.staticShapes.Remove(shape, id)
	}

	body.DetachShape(shape)
	shape.Base().SetOwner(nil, 0)
	s.shapes = slices.DeleteFunc(s.shapes, func(other actor.Shape) bool { return other == shape })
	s.unlock(true)

	s.logger.Debug("shape removed", zap.Stringer("type", shape.Type()), zap.Uint64("hash", id))
	return nil
}

func (s *Space) ContainsShape(shape actor.Shape) bool {
	return shape != nil && shape.Base().Owner() == s
}

// filterArbitersFor drops the arbiters of body, limited to those of shape when it is not nil.
// The arbiters still touching run their Separate callbacks first.
func (s *Space) filterArbitersFor(body *actor.Body, shape actor.Shape) {
	matches := func(arb *Arbiter) bool {
		if shape != nil {
			return arb.a == shape || arb.b == shape
		}
		return arb.bodyA == body || arb.bodyB == body
	}

	n := 0
	for _, arb := range s.arbiterCache {
		if !matches(arb) {
			s.arbiterCache[n] = arb
			n++
			continue
		}

		if arb.state != ArbiterStateCached {
			arb.state = ArbiterStateInvalidated
			arb.handler.separate(arb, s)
			s.events.emitSeparate(arb)
		}

		delete(s.cachedArbiters, makeArbiterKey(arb.a, arb.b))
		s.pooledArbiters = append(s.pooledArbiters, arb)
	}
	clear(s.arbiterCache[n:])
	s.arbiterCache = s.arbiterCache[:n]

	s.arbiters = slices.DeleteFunc(s.arbiters, matches)

	// a sleeping island may still hold arbiters of a static shape
	for _, isl := range s.islands {
		isl.arbiters = slices.DeleteFunc(isl.arbiters, matches)
	}
}

// ReindexShape refreshes the bounding box of a shape after its body was moved by hand.
func (s *Space) ReindexShape(shape actor.Shape) error {
	if err := s.checkUnlocked("reindex shape"); err != nil {
		return err
	}
	if shape == nil || shape.Base().Owner() != s {
		return ErrShapeNotInSpace
	}

	shape.CacheBB(shape.Body().Transform())
	s.dynamicShapes.ReindexObject(shape, shape.HashID())
	s.staticShapes.ReindexObject(shape, shape.HashID())
	return nil
}

func (s *Space) ReindexShapesForBody(body *actor.Body) error {
	if body == nil || body.Owner() != s {
		return ErrBodyNotInSpace
	}
	for shape := range body.Shapes() {
		if err := s.ReindexShape(shape); err != nil {
			return err
		}
	}
	return nil
}

// ReindexStatic refreshes every static shape. Call it after moving static bodies.
func (s *Space) ReindexStatic() error {
	if err := s.checkUnlocked("reindex static"); err != nil {
		return err
	}

	s.staticShapes.Each(func(shape actor.Shape) {
		shape.CacheBB(shape.Body().Transform())
	})
	s.staticShapes.Reindex()
	return nil
}

// ============================================================================
// Constraints
// ============================================================================

// AddConstraint adds a joint between two bodies of the space and wakes them.
func (s *Space) AddConstraint(c constraint.Constraint) error {
	if c == nil {
		return fmt.Errorf("%w: nil constraint", ErrInvalidParameter)
	}
	if err := s.checkUnlocked("add constraint"); err != nil {
		return err
	}

	base := c.Base()
	if base.Space() != nil {
		return ErrConstraintInSpace
	}
	if err := base.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	a, b := base.BodyA(), base.BodyB()
	if a.Owner() != s || b.Owner() != s {
		return ErrBodyNotInSpace
	}

	a.Activate()
	b.Activate()
	s.constraints = append(s.constraints, c)
	s.bodyConstraints[a] = append(s.bodyConstraints[a], c)
	s.bodyConstraints[b] = append(s.bodyConstraints[b], c)
	base.SetSpace(s)

	s.logger.Debug("constraint added", zap.String("kind", fmt.Sprintf("%T", c)))
	return nil
}

// RemoveConstraint removes a joint and wakes its bodies.
func (s *Space) RemoveConstraint(c constraint.Constraint) error {
	if err := s.checkUnlocked("remove constraint"); err != nil {
		return err
	}
	if c == nil || c.Base().Space() != constraint.Space(s) {
		return ErrConstraintNotInSpace
	}

	base := c.Base()
	base.ActivateBodies()

	isC := func(other constraint.Constraint) bool { return other == c }
	s.constraints = slices.DeleteFunc(s.constraints, isC)
	for _, body := range []*actor.Body{base.BodyA(), base.BodyB()} {
		remaining := slices.DeleteFunc(s.bodyConstraints[body], isC)
		if len(remaining) == 0 {
			delete(s.bodyConstraints, body)
		} else {
			s.bodyConstraints[body] = remaining
		}
	}
	base.SetSpace(nil)

	s.logger.Debug("constraint removed", zap.String("kind", fmt.Sprintf("%T", c)))
	return nil
}

func (s *Space) ContainsConstraint(c constraint.Constraint) bool {
	return c != nil && c.Base().Space() == constraint.Space(s)
}

// BodyConstraints iterates the constraints attached to body.
func (s *Space) BodyConstraints(body *actor.Body) iter.Seq[constraint.Constraint] {
	return iterate(s, s.bodyConstraints[body])
}

// ============================================================================
// Iteration
// ============================================================================

// iterate walks a snapshot of items with the space locked.
func iterate[T any](s *Space, items []T) iter.Seq[T] {
	return func(yield func(T) bool) {
		s.lock()
		defer s.unlock(true)

		for _, item := range slices.Clone(items) {
			if !yield(item) {
				return
			}
		}
	}
}

// Bodies iterates the dynamic and kinematic bodies, sleeping or not.
func (s *Space) Bodies() iter.Seq[*actor.Body] {
	return iterate(s, s.bodies)
}

// StaticBodies iterates the static bodies added with AddBody; the space static body is not included.
func (s *Space) StaticBodies() iter.Seq[*actor.Body] {
	return iterate(s, s.staticBodies)
}

func (s *Space) Shapes() iter.Seq[actor.Shape] {
	return iterate(s, s.shapes)
}

func (s *Space) Constraints() iter.Seq[constraint.Constraint] {
	return iterate(s, s.constraints)
}

// Arbiters iterates the arbiters solved during the last step.
func (s *Space) Arbiters() iter.Seq[*Arbiter] {
	return iterate(s, s.arbiters)
}

// ============================================================================
// Locking and post-step callbacks
// ============================================================================

func (s *Space) lock() {
	s.locked++
}

// unlock releases one lock level. The last release wakes the bodies activated while locked, then
// runs the post-step callbacks and delivers the events when runPostStep is set.
func (s *Space) unlock(runPostStep bool) {
	s.locked--
	if debugAsserts {
		assertf(s.locked >= 0, "space unlocked more often than locked")
	}
	if s.locked > 0 {
		return
	}

	for i := 0; i < len(s.roused); i++ {
		s.wakeIsland(s.roused[i])
	}
	clear(s.roused)
	s.roused = s.roused[:0]

	if !runPostStep || s.runningPostStep {
		return
	}

	s.runningPostStep = true
	// callbacks may queue more callbacks
	for i := 0; i < len(s.postStep); i++ {
		s.postStep[i].fn()
	}
	clear(s.postStep)
	s.postStep = s.postStep[:0]
	clear(s.postStepKeys)
	s.runningPostStep = false

	s.events.flush()
}

// AddPostStepCallback schedules fn to run once the current step is over, when the space can be
// modified again. Callbacks are deduplicated by key: it returns false when key is already
// scheduled. Outside of a step fn runs immediately.
func (s *Space) AddPostStepCallback(key any, fn func()) bool {
	if s.locked == 0 && !s.runningPostStep {
		fn()
		return true
	}

	if _, ok := s.postStepKeys[key]; ok {
		return false
	}
	s.postStepKeys[key] = struct{}{}
	s.postStep = append(s.postStep, postStepCallback{key: key, fn: fn})
	return true
}

// ============================================================================
// Activation (actor.Owner)
// ============================================================================

// ActivateBody wakes the island of body. While the space is locked the wake up is delayed until
// the lock is released.
func (s *Space) ActivateBody(body *actor.Body) {
	if body.Owner() != s || !body.IsSleeping {
		return
	}

	if s.locked > 0 {
		if !slices.Contains(s.roused, body) {
			s.roused = append(s.roused, body)
		}
		return
	}

	s.lock()
	s.wakeIsland(body)
	s.unlock(true)
}

// ActivateStatic wakes the bodies touching the static body, or only its shape filter when not nil.
func (s *Space) ActivateStatic(body *actor.Body, filter actor.Shape) {
	if body.Type() != actor.BodyTypeStatic {
		return
	}

	var touching []*actor.Body
	visit := func(arb *Arbiter) {
		if arb.bodyA != body && arb.bodyB != body {
			return
		}
		if filter != nil && arb.a != filter && arb.b != filter {
			return
		}
		if arb.bodyA == body {
			touching = append(touching, arb.bodyB)
		} else {
			touching = append(touching, arb.bodyA)
		}
	}

	for _, arb := range s.arbiterCache {
		visit(arb)
	}
	for _, isl := range s.islands {
		for _, arb := range isl.arbiters {
			visit(arb)
		}
	}

	for _, other := range touching {
		other.Activate()
	}
}

// SleepBody puts body to sleep immediately, in an island of its own.
func (s *Space) SleepBody(body *actor.Body) error {
	if body.Type() != actor.BodyTypeDynamic {
		return ErrStaticSleep
	}
	if body.Owner() != s {
		return ErrBodyNotInSpace
	}
	if err := s.checkUnlocked("sleep body"); err != nil {
		return err
	}
	if body.IsSleeping {
		return nil
	}

	s.lock()
	s.sleepIsland([]*actor.Body{body})
	s.parkArbiters()
	s.unlock(true)
	return nil
}

// ActivateShapesTouchingShape wakes the bodies whose shapes overlap shape.
func (s *Space) ActivateShapesTouchingShape(shape actor.Shape) {
	if !s.sleepEnabled() {
		return
	}

	var touching []*actor.Body
	for other := range s.ShapeQuery(shape) {
		touching = append(touching, other.Body())
	}
	for _, body := range touching {
		body.Activate()
	}
}
