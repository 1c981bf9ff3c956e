package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestRotateUnrotate(t *testing.T) {
	rot := ForAngle(0.7)
	v := mgl64.Vec2{3, -2}

	rotated := Rotate(v, rot)
	if math.Abs(rotated.Len()-v.Len()) > 1e-12 {
		t.Errorf("Rotate changed the length: %v -> %v", v.Len(), rotated.Len())
	}
	if back := Unrotate(rotated, rot); !vec2Equal(back, v, 1e-12) {
		t.Errorf("Unrotate(Rotate(v)) = %v, want %v", back, v)
	}
	if a := ToAngle(Rotate(mgl64.Vec2{1, 0}, rot)); math.Abs(a-0.7) > 1e-12 {
		t.Errorf("ToAngle = %v, want 0.7", a)
	}
}

func TestPerp(t *testing.T) {
	v := mgl64.Vec2{2, 1}

	if Cross(v, Perp(v)) <= 0 {
		t.Errorf("Perp should turn counter-clockwise")
	}
	if Cross(v, RPerp(v)) >= 0 {
		t.Errorf("RPerp should turn clockwise")
	}
	if v.Dot(Perp(v)) != 0 || v.Dot(RPerp(v)) != 0 {
		t.Errorf("perpendiculars should be orthogonal")
	}
}

func TestNormalizeSafe(t *testing.T) {
	if n := NormalizeSafe(Zero); n != Zero {
		t.Errorf("NormalizeSafe(0) = %v, want 0", n)
	}
	if n := NormalizeSafe(mgl64.Vec2{3, 4}); !vec2Equal(n, mgl64.Vec2{0.6, 0.8}, 1e-12) {
		t.Errorf("NormalizeSafe = %v", n)
	}
}

func TestClampLenAndLerpConst(t *testing.T) {
	if v := ClampLen(mgl64.Vec2{3, 4}, 10); v != (mgl64.Vec2{3, 4}) {
		t.Errorf("short vectors are untouched, got %v", v)
	}
	if v := ClampLen(mgl64.Vec2{3, 4}, 1); math.Abs(v.Len()-1) > 1e-12 {
		t.Errorf("ClampLen length = %v, want 1", v.Len())
	}

	a, b := mgl64.Vec2{0, 0}, mgl64.Vec2{10, 0}
	if v := LerpConst(a, b, 2); !vec2Equal(v, mgl64.Vec2{2, 0}, 1e-12) {
		t.Errorf("LerpConst = %v, want (2, 0)", v)
	}
	if v := LerpConst(a, b, 20); !vec2Equal(v, b, 1e-12) {
		t.Errorf("LerpConst overshoot = %v, want %v", v, b)
	}
}

func TestClosestPointOnSegment(t *testing.T) {
	a, b := mgl64.Vec2{0, 0}, mgl64.Vec2{4, 0}
	tests := []struct {
		name     string
		point    mgl64.Vec2
		expected mgl64.Vec2
	}{
		{"above middle", mgl64.Vec2{1, 3}, mgl64.Vec2{1, 0}},
		{"past b", mgl64.Vec2{7, 1}, mgl64.Vec2{4, 0}},
		{"before a", mgl64.Vec2{-2, -2}, mgl64.Vec2{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClosestPointOnSegment(tt.point, a, b); !vec2Equal(got, tt.expected, 1e-12) {
				t.Errorf("ClosestPointOnSegment = %v, want %v", got, tt.expected)
			}
		})
	}

	// degenerate segment
	if got := ClosestPointOnSegment(mgl64.Vec2{5, 5}, a, a); got != a {
		t.Errorf("degenerate segment = %v, want %v", got, a)
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(mgl64.Vec2{1, -1}) {
		t.Errorf("(1, -1) is finite")
	}
	if IsFinite(mgl64.Vec2{math.NaN(), 0}) || IsFinite(mgl64.Vec2{0, math.Inf(-1)}) {
		t.Errorf("NaN and Inf are not finite")
	}
}
