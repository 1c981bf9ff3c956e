package main

import (
	"fmt"
	"math"

	"github.com/akmonengine/feather2d"
	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	ballType actor.CollisionType = iota + 1
	slopeType
)

// ContactDebugger prints what the space reports about the contacts of the ball
type ContactDebugger struct {
	contacts int
}

func (d *ContactDebugger) Begin(arb *feather2d.Arbiter, _ *feather2d.Space, _ any) bool {
	a, b := arb.Shapes()
	fmt.Printf("🎯 Begin: %v body touches %v body\n", a.Body().Type(), b.Body().Type())
	return true
}

func (d *ContactDebugger) PostSolve(arb *feather2d.Arbiter, _ *feather2d.Space, _ any) {
	d.contacts++
	if d.contacts%30 != 0 {
		return
	}

	set := arb.ContactPointSet()
	fmt.Printf("🔧 Contact: %d point(s), normal %v, impulse %v\n", set.Count, set.Normal, arb.TotalImpulse())
	for i := range set.Count {
		fmt.Printf("   Point %d: A=%v B=%v distance=%.6f\n", i, set.Points[i].PointA, set.Points[i].PointB, set.Points[i].Distance)
	}
}

func (d *ContactDebugger) Separate(_ *feather2d.Arbiter, _ *feather2d.Space, _ any) {
	fmt.Println("👋 Separate")
}

// SetupScene creates a 30 degree slope with a ball resting at its top
func SetupScene() (*feather2d.Space, *actor.Body, error) {
	space, err := feather2d.NewSpace(
		feather2d.WithGravity(mgl64.Vec2{0, -9.81}),
		feather2d.WithSleepTimeThreshold(0.5),
	)
	if err != nil {
		return nil, nil, err
	}

	angle := math.Pi / 6
	down := mgl64.Vec2{math.Cos(angle), -math.Sin(angle)}
	slope, err := actor.NewSegment(space.StaticBody(), down.Mul(-10), down.Mul(10), 0)
	if err != nil {
		return nil, nil, err
	}
	slope.Friction = 1
	slope.CollisionType = slopeType
	if err := space.AddShape(slope); err != nil {
		return nil, nil, err
	}

	// the end of the slope
	floor, err := actor.NewSegment(space.StaticBody(), down.Mul(10), down.Mul(10).Add(mgl64.Vec2{20, 0}), 0)
	if err != nil {
		return nil, nil, err
	}
	floor.Friction = 1
	floor.SetNeighbors(down.Mul(-10), down.Mul(10).Add(mgl64.Vec2{40, 0}))
	if err := space.AddShape(floor); err != nil {
		return nil, nil, err
	}

	radius, mass := 0.5, 1.0
	ball, err := actor.NewBody(mass, geom.MomentForCircle(mass, 0, radius, mgl64.Vec2{}))
	if err != nil {
		return nil, nil, err
	}
	ball.SetPosition(down.Mul(-8).Add(geom.Perp(down).Mul(radius)))
	if err := space.AddBody(ball); err != nil {
		return nil, nil, err
	}

	shape, err := actor.NewCircle(ball, radius, mgl64.Vec2{})
	if err != nil {
		return nil, nil, err
	}
	shape.Friction = 1
	shape.Elasticity = 0.2
	shape.CollisionType = ballType
	if err := space.AddShape(shape); err != nil {
		return nil, nil, err
	}

	return space, ball, nil
}

func main() {
	fmt.Println("🧪 Ball rolling down a slope")
	fmt.Println("============================")

	space, ball, err := SetupScene()
	if err != nil {
		fmt.Println("setup failed:", err)
		return
	}

	debugger := &ContactDebugger{}
	handler := space.AddCollisionHandler(ballType, slopeType)
	handler.Begin = debugger.Begin
	handler.PostSolve = debugger.PostSolve
	handler.Separate = debugger.Separate

	space.Events().Subscribe(feather2d.EventSleep, func(event feather2d.Event) {
		fmt.Printf("💤 Body asleep at %v\n", event.(feather2d.SleepEvent).Body.Position())
	})

	const dt float64 = 1.0 / 60.0
	const maxSteps int = 600

	for step := 0; step < maxSteps; step++ {
		space.Step(dt)

		if step%30 == 0 {
			fmt.Printf("Step %3d: position=%v angle=%.3f velocity=%v angular=%.3f\n",
				step, ball.Position(), ball.Angle(), ball.Velocity, ball.AngularVelocity)
		}
		if ball.IsSleeping {
			break
		}
	}

	fmt.Println("Done!")
}
