package geom

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// =============================================================================
// BB Intersection Tests
// =============================================================================

func TestBBIntersects_Separated(t *testing.T) {
	tests := []struct {
		name string
		bb1  BB
		bb2  BB
	}{
		{"Separated on X axis (positive)", NewBB(0, 0, 1, 1), NewBB(2, 0, 3, 1)},
		{"Separated on X axis (negative)", NewBB(0, 0, 1, 1), NewBB(-2, 0, -1, 1)},
		{"Separated on Y axis (positive)", NewBB(0, 0, 1, 1), NewBB(0, 2, 1, 3)},
		{"Separated on Y axis (negative)", NewBB(0, 0, 1, 1), NewBB(0, -2, 1, -1)},
		{"Diagonal", NewBB(0, 0, 1, 1), NewBB(1.5, 1.5, 2, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.bb1.Intersects(tt.bb2) {
				t.Errorf("BBs should not intersect")
			}
			if tt.bb2.Intersects(tt.bb1) {
				t.Errorf("BBs should not intersect (symmetry test)")
			}
		})
	}
}

func TestBBIntersects_Overlapping(t *testing.T) {
	tests := []struct {
		name string
		bb1  BB
		bb2  BB
	}{
		{"Partial overlap", NewBB(0, 0, 2, 2), NewBB(1, 1, 3, 3)},
		{"Contained", NewBB(0, 0, 4, 4), NewBB(1, 1, 2, 2)},
		{"Edge touching", NewBB(0, 0, 1, 1), NewBB(1, 0, 2, 1)},
		{"Corner touching", NewBB(0, 0, 1, 1), NewBB(1, 1, 2, 2)},
		{"Zero area inside", NewBB(0, 0, 1, 1), NewBB(0.5, 0.5, 0.5, 0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.bb1.Intersects(tt.bb2) || !tt.bb2.Intersects(tt.bb1) {
				t.Errorf("BBs should intersect")
			}
		})
	}
}

func TestBBMerge_ContainsBoth(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	randomBB := func() BB {
		x, y := rng.Float64()*200-100, rng.Float64()*200-100
		return NewBBForExtents(mgl64.Vec2{x, y}, rng.Float64()*10, rng.Float64()*10)
	}

	for i := 0; i < 500; i++ {
		a, b := randomBB(), randomBB()
		merged := a.Merge(b)

		if !merged.Contains(a) || !merged.Contains(b) {
			t.Fatalf("merge of %v and %v = %v does not contain both", a, b, merged)
		}
		if merged.Area() != a.MergedArea(b) {
			t.Errorf("MergedArea = %v, want %v", a.MergedArea(b), merged.Area())
		}
	}
}

func TestEmptyBB(t *testing.T) {
	empty := EmptyBB()
	if !empty.IsEmpty() {
		t.Errorf("EmptyBB should be empty")
	}

	bb := NewBB(-1, -2, 3, 4)
	if empty.Merge(bb) != bb {
		t.Errorf("merging into EmptyBB = %v, want %v", empty.Merge(bb), bb)
	}

	expanded := empty.Expand(mgl64.Vec2{1, 2})
	if expanded != NewBB(1, 2, 1, 2) {
		t.Errorf("Expand on EmptyBB = %v, want a point box", expanded)
	}
}

func TestBBContainsVect(t *testing.T) {
	bb := NewBB(-1, -1, 1, 1)
	tests := []struct {
		name     string
		point    mgl64.Vec2
		expected bool
	}{
		{"center", mgl64.Vec2{0, 0}, true},
		{"corner", mgl64.Vec2{1, 1}, true},
		{"edge midpoint", mgl64.Vec2{-1, 0}, true},
		{"outside x", mgl64.Vec2{1.01, 0}, false},
		{"outside y", mgl64.Vec2{0, -1.01}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bb.ContainsVect(tt.point); got != tt.expected {
				t.Errorf("ContainsVect(%v) = %v, want %v", tt.point, got, tt.expected)
			}
		})
	}
}

func TestBBSegmentQuery(t *testing.T) {
	bb := NewBB(0, 0, 2, 2)
	tests := []struct {
		name     string
		a, b     mgl64.Vec2
		expected float64
	}{
		{"enters left edge", mgl64.Vec2{-2, 1}, mgl64.Vec2{2, 1}, 0.5},
		{"starts inside", mgl64.Vec2{1, 1}, mgl64.Vec2{5, 1}, 0},
		{"vertical from below", mgl64.Vec2{1, -2}, mgl64.Vec2{1, 2}, 0.5},
		{"misses above", mgl64.Vec2{-2, 3}, mgl64.Vec2{4, 3}, math.Inf(1)},
		{"too short", mgl64.Vec2{-4, 1}, mgl64.Vec2{-1, 1}, math.Inf(1)},
		{"parallel outside", mgl64.Vec2{3, -1}, mgl64.Vec2{3, 4}, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bb.SegmentQuery(tt.a, tt.b)
			if math.IsInf(tt.expected, 1) {
				if !math.IsInf(got, 1) {
					t.Errorf("SegmentQuery = %v, want miss", got)
				}
				if bb.IntersectsSegment(tt.a, tt.b) {
					t.Errorf("IntersectsSegment should be false")
				}
				return
			}
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("SegmentQuery = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBBClampAndWrap(t *testing.T) {
	bb := NewBB(0, 0, 10, 10)

	if got := bb.ClampVect(mgl64.Vec2{-5, 15}); got != (mgl64.Vec2{0, 10}) {
		t.Errorf("ClampVect = %v", got)
	}

	got := bb.WrapVect(mgl64.Vec2{12, -3})
	if math.Abs(got[0]-2) > 1e-12 || math.Abs(got[1]-7) > 1e-12 {
		t.Errorf("WrapVect = %v, want (2, 7)", got)
	}
}

func TestBBProximityAndOffset(t *testing.T) {
	a := NewBB(0, 0, 2, 2)
	b := a.Offset(mgl64.Vec2{3, -1})

	if b != NewBB(3, -1, 5, 1) {
		t.Errorf("Offset = %v", b)
	}
	if p := a.Proximity(b); p != 8 {
		t.Errorf("Proximity = %v, want 8", p)
	}
}
