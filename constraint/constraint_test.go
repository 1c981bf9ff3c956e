package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	testDt         = 1.0 / 60
	testIterations = 10
)

var testGravity = mgl64.Vec2{0, -10}

// Test helpers

func createBody(t *testing.T, position mgl64.Vec2) *actor.Body {
	t.Helper()

	body, err := actor.NewBody(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	body.SetPosition(position)

	return body
}

func vec2Near(a, b mgl64.Vec2, tolerance float64) bool {
	return math.Abs(a.X()-b.X()) <= tolerance && math.Abs(a.Y()-b.Y()) <= tolerance
}

// simulate runs the solver on a single constraint the way the space does.
func simulate(c Constraint, steps int, gravity mgl64.Vec2) {
	bodies := []*actor.Body{c.Base().BodyA(), c.Base().BodyB()}

	prevDt := 0.0
	for i := 0; i < steps; i++ {
		c.PreStep(testDt)

		for _, body := range bodies {
			if body.Type() == actor.BodyTypeDynamic {
				body.UpdateVelocity(gravity, 1, testDt)
			}
		}

		dtCoef := 0.0
		if prevDt != 0 {
			dtCoef = testDt / prevDt
		}
		c.ApplyCachedImpulse(dtCoef)

		for j := 0; j < testIterations; j++ {
			c.ApplyImpulse(testDt)
		}

		for _, body := range bodies {
			if body.Type() == actor.BodyTypeDynamic {
				body.UpdatePosition(testDt)
			}
		}
		prevDt = testDt
	}
}

// =============================================================================
// Solver helpers
// =============================================================================

func TestBiasCoef(t *testing.T) {
	if got := BiasCoef(DefaultErrorBias, testDt); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("BiasCoef = %v, want 0.1", got)
	}
	if got := BiasCoef(DefaultErrorBias, 0); got != 0 {
		t.Errorf("BiasCoef(dt = 0) = %v, want 0", got)
	}
}

func TestKScalar(t *testing.T) {
	static := actor.NewStaticBody()
	body := createBody(t, mgl64.Vec2{})

	tests := []struct {
		name string
		r, n mgl64.Vec2
		want float64
	}{
		{"through the center", mgl64.Vec2{}, mgl64.Vec2{1, 0}, 1},
		{"along the lever", mgl64.Vec2{1, 0}, mgl64.Vec2{1, 0}, 1},
		{"across the lever", mgl64.Vec2{1, 0}, mgl64.Vec2{0, 1}, 2},
		{"long lever", mgl64.Vec2{2, 0}, mgl64.Vec2{0, 1}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KScalar(static, body, mgl64.Vec2{}, tt.r, tt.n); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("KScalar = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKTensor(t *testing.T) {
	static := actor.NewStaticBody()
	body, err := actor.NewBody(1, 2)
	if err != nil {
		t.Fatal(err)
	}

	// K = diag(1, 1.5) for an offset along x and an inverse moment of 0.5
	k := KTensor(static, body, mgl64.Vec2{}, mgl64.Vec2{1, 0})
	want := mgl64.Mat2{1, 0, 0, 2.0 / 3}
	for i := range k {
		if math.Abs(k[i]-want[i]) > 1e-12 {
			t.Errorf("KTensor = %v, want %v", k, want)
			break
		}
	}

	// the tensor inverts the effective mass along any direction
	r := mgl64.Vec2{0.3, -0.7}
	k = KTensor(static, body, mgl64.Vec2{}, r)
	for _, n := range []mgl64.Vec2{{1, 0}, {0, 1}, geom.NormalizeSafe(mgl64.Vec2{1, 1})} {
		j := k.Mul2x1(n)
		if got := j.Dot(n); got <= 0 {
			t.Errorf("n = %v: expected a positive definite tensor, got %v", n, got)
		}
	}
}

func TestRelativeVelocity(t *testing.T) {
	a := createBody(t, mgl64.Vec2{})
	b := createBody(t, mgl64.Vec2{})
	a.Velocity = mgl64.Vec2{1, 0}
	b.AngularVelocity = 2

	got := RelativeVelocity(a, b, mgl64.Vec2{}, mgl64.Vec2{1, 0})
	if want := (mgl64.Vec2{-1, 2}); !vec2Near(got, want, 1e-12) {
		t.Errorf("RelativeVelocity = %v, want %v", got, want)
	}
}

func TestBase_Validate(t *testing.T) {
	a := createBody(t, mgl64.Vec2{})
	b := createBody(t, mgl64.Vec2{})

	tests := []struct {
		name string
		c    Constraint
		want error
	}{
		{"valid", NewPinJoint(a, b, mgl64.Vec2{}, mgl64.Vec2{}), nil},
		{"same body", NewPinJoint(a, a, mgl64.Vec2{}, mgl64.Vec2{}), ErrSameBody},
		{"nil body", NewSimpleMotor(a, nil, 1), ErrNilBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Base().Validate(); got != tt.want {
				t.Errorf("Validate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBase_Defaults(t *testing.T) {
	c := NewPivotJoint(createBody(t, mgl64.Vec2{}), actor.NewStaticBody(), mgl64.Vec2{})
	base := c.Base()

	if !math.IsInf(base.MaxForce, 1) || !math.IsInf(base.MaxBias, 1) {
		t.Errorf("expected infinite MaxForce and MaxBias, got %v and %v", base.MaxForce, base.MaxBias)
	}
	if base.ErrorBias != DefaultErrorBias {
		t.Errorf("ErrorBias = %v, want %v", base.ErrorBias, DefaultErrorBias)
	}
	if !base.CollideBodies {
		t.Error("expected CollideBodies to default to true")
	}
	if base.Other(base.BodyA()) != base.BodyB() || base.Other(base.BodyB()) != base.BodyA() {
		t.Error("Other should return the opposite body")
	}
}

// =============================================================================
// Joints
// =============================================================================

func TestPinJoint(t *testing.T) {
	static := actor.NewStaticBody()
	body := createBody(t, mgl64.Vec2{0, -2})
	body.Velocity = mgl64.Vec2{2, 0}

	joint := NewPinJoint(static, body, mgl64.Vec2{}, mgl64.Vec2{})
	if math.Abs(joint.Dist-2) > 1e-12 {
		t.Fatalf("Dist = %v, want 2", joint.Dist)
	}

	for i := 0; i < 10; i++ {
		simulate(joint, 30, testGravity)

		if d := body.Center().Len(); math.Abs(d-2) > 0.05 {
			t.Fatalf("after %d steps: distance = %v, want 2", (i+1)*30, d)
		}
	}
	if joint.Impulse() <= 0 {
		t.Error("expected the joint to carry the body")
	}
}

func TestSlideJoint(t *testing.T) {
	static := actor.NewStaticBody()
	body := createBody(t, mgl64.Vec2{0, -1})

	joint := NewSlideJoint(static, body, mgl64.Vec2{}, mgl64.Vec2{}, 0.5, 2)

	// free fall inside the limits
	simulate(joint, 5, testGravity)
	if joint.Impulse() != 0 {
		t.Errorf("expected no impulse within the limits, got %v", joint.Impulse())
	}

	simulate(joint, 300, testGravity)
	if d := body.Center().Len(); d > 2.05 || d < 1.9 {
		t.Errorf("distance = %v, want about 2", d)
	}
	// hanging at rest: the joint carries the weight, m g dt per step
	if got, want := joint.Impulse(), 10*testDt; math.Abs(got-want) > 0.02 {
		t.Errorf("Impulse = %v, want about %v", got, want)
	}
	if v := body.Velocity.Len(); v > 0.05 {
		t.Errorf("velocity = %v, want about 0", v)
	}
}

func TestSlideJoint_Min(t *testing.T) {
	static := actor.NewStaticBody()
	body := createBody(t, mgl64.Vec2{0, -1})
	body.Velocity = mgl64.Vec2{0, 5}

	joint := NewSlideJoint(static, body, mgl64.Vec2{}, mgl64.Vec2{}, 0.5, 2)

	for i := 0; i < 60; i++ {
		simulate(joint, 1, mgl64.Vec2{})
		if d := body.Center().Len(); d < 0.4 {
			t.Fatalf("step %d: distance = %v, want at least 0.5", i, d)
		}
	}
	if v := body.Velocity.Y(); v > 0.05 {
		t.Errorf("velocity = %v, want the body stopped at the minimum distance", v)
	}
}

func TestPivotJoint(t *testing.T) {
	static := actor.NewStaticBody()
	body := createBody(t, mgl64.Vec2{})
	body.Velocity = mgl64.Vec2{1, 0}
	pivot := mgl64.Vec2{0, 1}

	joint := NewPivotJoint(static, body, pivot)
	if !vec2Near(joint.AnchorB, pivot, 1e-12) {
		t.Fatalf("AnchorB = %v, want %v", joint.AnchorB, pivot)
	}

	simulate(joint, 300, testGravity)

	if d := geom.Dist(body.LocalToWorld(joint.AnchorB), pivot); d > 0.02 {
		t.Errorf("anchor drifted %v away from the pivot", d)
	}
	if body.AngularVelocity == 0 {
		t.Error("expected the body to swing around the pivot")
	}
}

func TestGrooveJoint(t *testing.T) {
	static := actor.NewStaticBody()
	body := createBody(t, mgl64.Vec2{})
	body.Velocity = mgl64.Vec2{3, 0}

	joint := NewGrooveJoint(static, body, mgl64.Vec2{-5, 0}, mgl64.Vec2{5, 0}, mgl64.Vec2{})

	simulate(joint, 60, testGravity)
	if y := body.Center().Y(); math.Abs(y) > 0.02 {
		t.Errorf("body left the groove: y = %v", y)
	}
	if x := body.Center().X(); math.Abs(x-3) > 0.05 {
		t.Errorf("x = %v, want about 3 after sliding freely for a second", x)
	}

	// the end of the groove stops the body; the position bias corrects the overshoot with a
	// velocity, so the body then drifts back slowly
	simulate(joint, 240, testGravity)
	if x := body.Center().X(); x > 5.06 || x < 3.9 {
		t.Errorf("x = %v, want the body stopped at the end of the groove", x)
	}
	if vx := body.Velocity.X(); vx > 1e-6 || vx < -0.35 {
		t.Errorf("velocity = %v, want at most the overshoot correction back into the groove", vx)
	}
}

func TestDampedSpring(t *testing.T) {
	static := actor.NewStaticBody()
	body := createBody(t, mgl64.Vec2{3, 0})

	spring := NewDampedSpring(static, body, mgl64.Vec2{}, mgl64.Vec2{}, 1, 50, 5)

	simulate(spring, 600, mgl64.Vec2{})
	if d := body.Center().Len(); math.Abs(d-1) > 0.05 {
		t.Errorf("distance = %v, want the rest length 1", d)
	}
}

func TestDampedSpring_ForceFunc(t *testing.T) {
	static := actor.NewStaticBody()
	body := createBody(t, mgl64.Vec2{3, 0})

	spring := NewDampedSpring(static, body, mgl64.Vec2{}, mgl64.Vec2{}, 1, 50, 0)
	called := false
	spring.ForceFunc = func(s *DampedSpring, dist float64) float64 {
		called = true
		return 0
	}

	simulate(spring, 10, mgl64.Vec2{})
	if !called {
		t.Error("expected the custom force function to be used")
	}
	if !vec2Near(body.Center(), mgl64.Vec2{3, 0}, 1e-12) {
		t.Errorf("body moved to %v without any force", body.Center())
	}
}

func TestDampedRotarySpring(t *testing.T) {
	static := actor.NewStaticBody()
	body := createBody(t, mgl64.Vec2{})
	body.SetAngle(1)

	spring := NewDampedRotarySpring(static, body, 0, 20, 5)

	simulate(spring, 600, mgl64.Vec2{})
	if a := body.Angle(); math.Abs(a) > 0.05 {
		t.Errorf("angle = %v, want 0", a)
	}
}

func TestRotaryLimitJoint(t *testing.T) {
	static := actor.NewStaticBody()
	body := createBody(t, mgl64.Vec2{})
	body.AngularVelocity = 5

	joint := NewRotaryLimitJoint(static, body, -0.5, 0.5)

	// the limit stops the spin; the bias corrects the overshoot of the last step with a
	// velocity, so the body then turns back slowly
	tests := []struct {
		name       string
		w          float64
		limit      float64
		minW, maxW float64
	}{
		{"max", 5, 0.5, -0.55, 1e-6},
		{"min", -5, -0.5, -1e-6, 0.55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body.AngularVelocity = tt.w

			for i := 0; i < 60; i++ {
				simulate(joint, 1, mgl64.Vec2{})
				// at most one step past the limit
				if a := body.Angle(); math.Abs(a) > 0.5+5*testDt+1e-9 {
					t.Fatalf("step %d: angle = %v, want within one step of the limit %v", i, a, tt.limit)
				}
			}
			if w := body.AngularVelocity; w < tt.minW || w > tt.maxW {
				t.Errorf("angular velocity = %v, want in [%v, %v]", w, tt.minW, tt.maxW)
			}
		})
	}
}

func TestRotaryLockJoint(t *testing.T) {
	static := actor.NewStaticBody()
	body := createBody(t, mgl64.Vec2{})

	joint := NewRotaryLockJoint(static, body, 0.3)

	simulate(joint, 120, mgl64.Vec2{})
	if a := body.Angle(); math.Abs(a-0.3) > 0.01 {
		t.Errorf("angle = %v, want 0.3", a)
	}
}

func TestSimpleMotor(t *testing.T) {
	static := actor.NewStaticBody()
	body := createBody(t, mgl64.Vec2{})

	motor := NewSimpleMotor(static, body, 2)

	simulate(motor, 10, mgl64.Vec2{})
	if w := body.AngularVelocity; math.Abs(w+2) > 1e-9 {
		t.Errorf("angular velocity = %v, want -2", w)
	}
}

func TestSimpleMotor_MaxForce(t *testing.T) {
	static := actor.NewStaticBody()
	body := createBody(t, mgl64.Vec2{})

	motor := NewSimpleMotor(static, body, 2)
	motor.MaxForce = 6

	// a torque of 6 on a moment of 1 accelerates by 0.1 per step
	simulate(motor, 1, mgl64.Vec2{})
	if w := body.AngularVelocity; math.Abs(w+0.1) > 1e-9 {
		t.Errorf("angular velocity = %v, want -0.1", w)
	}
	if got := motor.Impulse() / testDt; got > motor.MaxForce+1e-9 {
		t.Errorf("force = %v exceeds MaxForce %v", got, motor.MaxForce)
	}
}

func TestGearJoint(t *testing.T) {
	a := createBody(t, mgl64.Vec2{})
	b := createBody(t, mgl64.Vec2{3, 0})
	a.AngularVelocity = 4

	gear := NewGearJoint(a, b, 0, 2)

	simulate(gear, 120, mgl64.Vec2{})
	if w := a.AngularVelocity - b.AngularVelocity*gear.Ratio(); math.Abs(w) > 1e-3 {
		t.Errorf("velocity ratio off by %v", w)
	}
	if e := b.Angle()*gear.Ratio() - a.Angle(); math.Abs(e) > 0.01 {
		t.Errorf("angle ratio off by %v", e)
	}

	gear.SetRatio(4)
	if gear.Ratio() != 4 {
		t.Errorf("Ratio = %v, want 4", gear.Ratio())
	}
}

func TestRatchetJoint(t *testing.T) {
	t.Run("turns freely forward", func(t *testing.T) {
		static := actor.NewStaticBody()
		body := createBody(t, mgl64.Vec2{})
		body.AngularVelocity = 3

		joint := NewRatchetJoint(static, body, 0, math.Pi/4)

		simulate(joint, 60, mgl64.Vec2{})
		if a := body.Angle(); math.Abs(a-3) > 1e-9 {
			t.Errorf("angle = %v, want 3", a)
		}
	})

	t.Run("blocks backward", func(t *testing.T) {
		static := actor.NewStaticBody()
		body := createBody(t, mgl64.Vec2{})
		body.AngularVelocity = -3

		joint := NewRatchetJoint(static, body, 0, math.Pi/4)

		simulate(joint, 60, mgl64.Vec2{})
		if a := body.Angle(); a < -0.1 {
			t.Errorf("angle = %v, want held near 0", a)
		}
	})
}

func TestPinJoint_MaxForce(t *testing.T) {
	static := actor.NewStaticBody()
	body := createBody(t, mgl64.Vec2{0, -1})

	joint := NewPinJoint(static, body, mgl64.Vec2{}, mgl64.Vec2{})
	joint.MaxForce = 5

	for i := 0; i < 30; i++ {
		simulate(joint, 1, testGravity)
		if f := joint.Impulse() / testDt; f > joint.MaxForce+1e-9 {
			t.Fatalf("step %d: force %v exceeds MaxForce %v", i, f, joint.MaxForce)
		}
	}

	// gravity pulls with 10, the joint holds back 5
	if y := body.Center().Y(); y > -1.5 {
		t.Errorf("y = %v, expected the overloaded joint to stretch", y)
	}
}

// =============================================================================
// Breakable
// =============================================================================

type fakeSpace struct {
	dt        float64
	callbacks map[any]func()
	order     []any
	removed   []Constraint
}

func newFakeSpace(dt float64) *fakeSpace {
	return &fakeSpace{dt: dt, callbacks: map[any]func(){}}
}

func (s *fakeSpace) AddPostStepCallback(key any, fn func()) bool {
	if _, ok := s.callbacks[key]; ok {
		return false
	}
	s.callbacks[key] = fn
	s.order = append(s.order, key)
	return true
}

func (s *fakeSpace) RemoveConstraint(c Constraint) error {
	s.removed = append(s.removed, c)
	c.Base().SetSpace(nil)
	return nil
}

func (s *fakeSpace) CurrentTimeStep() float64 {
	return s.dt
}

func (s *fakeSpace) flush() {
	for _, key := range s.order {
		s.callbacks[key]()
	}
	s.callbacks = map[any]func(){}
	s.order = nil
}

func TestBreakable(t *testing.T) {
	tests := []struct {
		name      string
		gravity   mgl64.Vec2
		wantBreak bool
	}{
		{"holds under its limit", mgl64.Vec2{0, -1}, false},
		{"breaks when overloaded", mgl64.Vec2{0, -100}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			space := newFakeSpace(testDt)
			static := actor.NewStaticBody()
			body := createBody(t, mgl64.Vec2{0, -1})

			joint := NewPinJoint(static, body, mgl64.Vec2{}, mgl64.Vec2{})
			joint.MaxForce = 20
			Breakable(joint, 0.9)
			joint.SetSpace(space)

			for i := 0; i < 10 && joint.Space() != nil; i++ {
				simulate(joint, 1, tt.gravity)
				joint.PostSolve(joint, space)
				space.flush()
			}

			if broken := len(space.removed) > 0; broken != tt.wantBreak {
				t.Errorf("broken = %v, want %v", broken, tt.wantBreak)
			}
			if tt.wantBreak && len(space.removed) != 1 {
				t.Errorf("joint removed %d times", len(space.removed))
			}
		})
	}
}

func TestBreakable_KeepsPostSolve(t *testing.T) {
	space := newFakeSpace(testDt)
	motor := NewSimpleMotor(createBody(t, mgl64.Vec2{}), actor.NewStaticBody(), 1)

	calls := 0
	motor.PostSolve = func(Constraint, Space) { calls++ }
	Breakable(motor, 0.5)

	motor.PostSolve(motor, space)
	if calls != 1 {
		t.Errorf("previous PostSolve called %d times, want 1", calls)
	}
}
