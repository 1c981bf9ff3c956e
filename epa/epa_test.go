package epa

import (
	"math"
	"testing"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

func createBox(t testing.TB, position mgl64.Vec2, width, height, radius float64, hashid uint64) *actor.Polygon {
	t.Helper()

	body := actor.NewKinematicBody()
	body.SetPosition(position)
	box, err := actor.NewBox(body, width, height, radius)
	if err != nil {
		t.Fatal(err)
	}
	box.SetOwner(nil, hashid)
	box.CacheBB(body.Transform())

	return box
}

func createSegment(t testing.TB, a, b mgl64.Vec2, radius float64, hashid uint64) *actor.Segment {
	t.Helper()

	seg, err := actor.NewSegment(actor.NewStaticBody(), a, b, radius)
	if err != nil {
		t.Fatal(err)
	}
	seg.SetOwner(nil, hashid)
	seg.CacheBB(seg.Body().Transform())

	return seg
}

// collide runs GJK, then EPA when the shapes overlap.
func collide(t testing.TB, a, b gjk.Shape) gjk.ClosestPoints {
	t.Helper()

	ctx := &gjk.Context{A: a, B: b}
	var simplex gjk.Simplex
	points, overlap := gjk.GJK(ctx, 0, &simplex)
	if !overlap {
		return points
	}

	return NewPolytope().EPA(ctx, &simplex)
}

func TestEPA(t *testing.T) {
	tests := []struct {
		name  string
		a, b  gjk.Shape
		wantD float64
		wantN mgl64.Vec2
	}{
		{
			name:  "boxes overlapping along x",
			a:     createBox(t, mgl64.Vec2{0, 0}, 2, 2, 0, 1),
			b:     createBox(t, mgl64.Vec2{1.5, 0}, 2, 2, 0, 2),
			wantD: -0.5,
			wantN: mgl64.Vec2{1, 0},
		},
		{
			name:  "boxes overlapping along y",
			a:     createBox(t, mgl64.Vec2{0, 0}, 2, 2, 0, 1),
			b:     createBox(t, mgl64.Vec2{0, 1.8}, 2, 2, 0, 2),
			wantD: -0.2,
			wantN: mgl64.Vec2{0, 1},
		},
		{
			name:  "small box inside a large one",
			a:     createBox(t, mgl64.Vec2{0, 0}, 4, 4, 0, 1),
			b:     createBox(t, mgl64.Vec2{0.2, 0.1}, 1, 1, 0, 2),
			wantD: -2.3,
			wantN: mgl64.Vec2{1, 0},
		},
		{
			name:  "box resting in a segment",
			a:     createSegment(t, mgl64.Vec2{-3, 0}, mgl64.Vec2{3, 0}, 0, 1),
			b:     createBox(t, mgl64.Vec2{0, 0.9}, 2, 2, 0, 2),
			wantD: -0.1,
			wantN: mgl64.Vec2{0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := collide(t, tt.a, tt.b)

			if math.Abs(points.D-tt.wantD) > 1e-9 {
				t.Errorf("D = %v, want %v", points.D, tt.wantD)
			}
			if math.Abs(points.N.X()-tt.wantN.X()) > 1e-9 || math.Abs(points.N.Y()-tt.wantN.Y()) > 1e-9 {
				t.Errorf("N = %v, want %v", points.N, tt.wantN)
			}
			if points.ID == 0 {
				t.Error("expected a non zero collision id")
			}
		})
	}
}

func TestEPA_ReusesPolytope(t *testing.T) {
	polytope := NewPolytope()
	a := createBox(t, mgl64.Vec2{0, 0}, 2, 2, 0, 1)

	for _, x := range []float64{1.5, 1.2, 1.9} {
		b := createBox(t, mgl64.Vec2{x, 0}, 2, 2, 0, 2)
		ctx := &gjk.Context{A: a, B: b}

		var simplex gjk.Simplex
		if _, overlap := gjk.GJK(ctx, 0, &simplex); !overlap {
			t.Fatalf("x = %v: expected overlap", x)
		}

		points := polytope.EPA(ctx, &simplex)
		if want := x - 2; math.Abs(points.D-want) > 1e-9 {
			t.Errorf("x = %v: D = %v, want %v", x, points.D, want)
		}
		if polytope.Count() < 3 {
			t.Errorf("x = %v: polytope has %d vertexes", x, polytope.Count())
		}
	}
}

func BenchmarkEPA(b *testing.B) {
	ctx := &gjk.Context{
		A: createBox(b, mgl64.Vec2{0, 0}, 2, 2, 0, 1),
		B: createBox(b, mgl64.Vec2{1.5, 0.3}, 2, 2, 0, 2),
	}
	polytope := NewPolytope()
	var simplex gjk.Simplex

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, overlap := gjk.GJK(ctx, 0, &simplex); overlap {
			polytope.EPA(ctx, &simplex)
		}
	}
}
