package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BB is an axis-aligned bounding box: left, bottom, right, top.
type BB struct {
	L, B, R, T float64
}

// NewBB returns a bounding box from its edges.
func NewBB(l, b, r, t float64) BB {
	return BB{L: l, B: b, R: r, T: t}
}

// EmptyBB is made of inverted infinities, so merging anything into it yields that thing.
func EmptyBB() BB {
	return BB{L: math.Inf(1), B: math.Inf(1), R: math.Inf(-1), T: math.Inf(-1)}
}

// NewBBForExtents returns a box centered on c with half width hw and half height hh.
func NewBBForExtents(c mgl64.Vec2, hw, hh float64) BB {
	return BB{L: c[0] - hw, B: c[1] - hh, R: c[0] + hw, T: c[1] + hh}
}

// NewBBForCircle returns the box fitting a circle.
func NewBBForCircle(p mgl64.Vec2, r float64) BB {
	return NewBBForExtents(p, r, r)
}

// IsEmpty reports whether the box holds no point.
func (bb BB) IsEmpty() bool {
	return bb.L > bb.R || bb.B > bb.T
}

// Intersects checks if two boxes overlap, touching edges included.
func (bb BB) Intersects(other BB) bool {
	return bb.L <= other.R && other.L <= bb.R && bb.B <= other.T && other.B <= bb.T
}

// Contains checks if other lies completely inside bb.
func (bb BB) Contains(other BB) bool {
	return bb.L <= other.L && bb.R >= other.R && bb.B <= other.B && bb.T >= other.T
}

// ContainsVect checks if a point is inside the box.
func (bb BB) ContainsVect(v mgl64.Vec2) bool {
	return bb.L <= v[0] && bb.R >= v[0] && bb.B <= v[1] && bb.T >= v[1]
}

// Merge returns the smallest box containing both boxes.
func (bb BB) Merge(other BB) BB {
	return BB{
		L: math.Min(bb.L, other.L),
		B: math.Min(bb.B, other.B),
		R: math.Max(bb.R, other.R),
		T: math.Max(bb.T, other.T),
	}
}

// Expand grows the box to include v.
func (bb BB) Expand(v mgl64.Vec2) BB {
	return BB{
		L: math.Min(bb.L, v[0]),
		B: math.Min(bb.B, v[1]),
		R: math.Max(bb.R, v[0]),
		T: math.Max(bb.T, v[1]),
	}
}

func (bb BB) Center() mgl64.Vec2 {
	return mgl64.Vec2{(bb.L + bb.R) * 0.5, (bb.B + bb.T) * 0.5}
}

func (bb BB) Area() float64 {
	return (bb.R - bb.L) * (bb.T - bb.B)
}

// MergedArea is the area of bb merged with other, without building the box.
func (bb BB) MergedArea(other BB) float64 {
	return (math.Max(bb.R, other.R) - math.Min(bb.L, other.L)) * (math.Max(bb.T, other.T) - math.Min(bb.B, other.B))
}

// Proximity is a cheap distance between box centers (times two, Manhattan).
func (bb BB) Proximity(other BB) float64 {
	return math.Abs(bb.L+bb.R-other.L-other.R) + math.Abs(bb.B+bb.T-other.B-other.T)
}

// SegmentQuery returns the fraction along the segment a->b where it enters the box,
// or +Inf when the segment misses it.
func (bb BB) SegmentQuery(a, b mgl64.Vec2) float64 {
	delta := b.Sub(a)
	tmin := math.Inf(-1)
	tmax := math.Inf(1)

	if delta[0] == 0.0 {
		if a[0] < bb.L || bb.R < a[0] {
			return math.Inf(1)
		}
	} else {
		t1 := (bb.L - a[0]) / delta[0]
		t2 := (bb.R - a[0]) / delta[0]
		tmin = math.Max(tmin, math.Min(t1, t2))
		tmax = math.Min(tmax, math.Max(t1, t2))
	}

	if delta[1] == 0.0 {
		if a[1] < bb.B || bb.T < a[1] {
			return math.Inf(1)
		}
	} else {
		t1 := (bb.B - a[1]) / delta[1]
		t2 := (bb.T - a[1]) / delta[1]
		tmin = math.Max(tmin, math.Min(t1, t2))
		tmax = math.Min(tmax, math.Max(t1, t2))
	}

	if tmin <= tmax && 0.0 <= tmax && tmin <= 1.0 {
		return math.Max(tmin, 0.0)
	}
	return math.Inf(1)
}

// IntersectsSegment checks if the segment a->b touches the box.
func (bb BB) IntersectsSegment(a, b mgl64.Vec2) bool {
	return !math.IsInf(bb.SegmentQuery(a, b), 1)
}

// ClampVect returns the point of the box closest to v.
func (bb BB) ClampVect(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{mgl64.Clamp(v[0], bb.L, bb.R), mgl64.Clamp(v[1], bb.B, bb.T)}
}

// WrapVect wraps v into the box, as on a torus.
func (bb BB) WrapVect(v mgl64.Vec2) mgl64.Vec2 {
	dx := math.Abs(bb.R - bb.L)
	modx := math.Mod(v[0]-bb.L, dx)
	x := modx
	if modx <= 0.0 {
		x += dx
	}

	dy := math.Abs(bb.T - bb.B)
	mody := math.Mod(v[1]-bb.B, dy)
	y := mody
	if mody <= 0.0 {
		y += dy
	}

	return mgl64.Vec2{x + bb.L, y + bb.B}
}

// Offset translates the box by v.
func (bb BB) Offset(v mgl64.Vec2) BB {
	return BB{L: bb.L + v[0], B: bb.B + v[1], R: bb.R + v[0], T: bb.T + v[1]}
}
