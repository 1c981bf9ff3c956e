package actor

import (
	"fmt"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Segment is a beveled line segment: a capsule of the given radius between A and B.
type Segment struct {
	ShapeBase

	a, b, n mgl64.Vec2
	radius  float64

	// neighbor tangents, for smooth collisions along a chain of segments
	aTangent, bTangent mgl64.Vec2

	// world space
	ta, tb, tn           mgl64.Vec2
	taTangent, tbTangent mgl64.Vec2
}

func NewSegment(body *Body, a, b mgl64.Vec2, radius float64) (*Segment, error) {
	if err := checkFinite(a[0], a[1], b[0], b[1], radius); err != nil {
		return nil, err
	}
	if radius < 0 {
		return nil, fmt.Errorf("%w: negative radius %v", ErrInvalidGeometry, radius)
	}

	s := &Segment{
		ShapeBase: newShapeBase(body),
		a:         a,
		b:         b,
		n:         geom.RPerp(geom.NormalizeSafe(b.Sub(a))),
		radius:    radius,
	}
	s.CacheBB(body.Transform())

	return s, nil
}

func (s *Segment) Type() ShapeType {
	return ShapeTypeSegment
}

func (s *Segment) A() mgl64.Vec2 {
	return s.a
}

func (s *Segment) B() mgl64.Vec2 {
	return s.b
}

func (s *Segment) Normal() mgl64.Vec2 {
	return s.n
}

func (s *Segment) WorldA() mgl64.Vec2 {
	return s.ta
}

func (s *Segment) WorldB() mgl64.Vec2 {
	return s.tb
}

func (s *Segment) WorldNormal() mgl64.Vec2 {
	return s.tn
}

func (s *Segment) Radius() float64 {
	return s.radius
}

// SetNeighbors declares the endpoints of the previous and next segments of a chain.
// Collisions against the inner endcaps are then ignored.
func (s *Segment) SetNeighbors(prev, next mgl64.Vec2) {
	s.aTangent = prev.Sub(s.a)
	s.bTangent = next.Sub(s.b)
	s.CacheBB(s.body.Transform())
}

// WorldTangents returns the neighbor tangents in world space; zero when no neighbor was set.
func (s *Segment) WorldTangents() (mgl64.Vec2, mgl64.Vec2) {
	return s.taTangent, s.tbTangent
}

func (s *Segment) CacheBB(transform geom.Transform) geom.BB {
	s.bb = s.cacheData(transform)
	return s.bb
}

func (s *Segment) cacheData(transform geom.Transform) geom.BB {
	s.ta = transform.Point(s.a)
	s.tb = transform.Point(s.b)
	s.tn = transform.Vect(s.n)
	s.taTangent = transform.Vect(s.aTangent)
	s.tbTangent = transform.Vect(s.bTangent)

	bb := geom.NewBB(min(s.ta[0], s.tb[0]), min(s.ta[1], s.tb[1]), max(s.ta[0], s.tb[0]), max(s.ta[1], s.tb[1]))
	return geom.NewBB(bb.L-s.radius, bb.B-s.radius, bb.R+s.radius, bb.T+s.radius)
}

func (s *Segment) PointQuery(p mgl64.Vec2) PointQueryInfo {
	closest := geom.ClosestPointOnSegment(p, s.ta, s.tb)
	delta := p.Sub(closest)
	d := delta.Len()

	info := PointQueryInfo{
		Shape:    s,
		Point:    closest,
		Distance: d - s.radius,
		Gradient: s.tn,
	}
	if d > 0 {
		g := delta.Mul(1 / d)
		info.Point = closest.Add(g.Mul(s.radius))
		if d > magicEpsilon {
			info.Gradient = g
		}
	}

	return info
}

func (s *Segment) SegmentQuery(a, b mgl64.Vec2, radius float64) (SegmentQueryInfo, bool) {
	info := noSegmentHit(b)

	n := s.tn
	d := s.ta.Sub(a).Dot(n)
	r := s.radius + radius

	flippedN := n
	if d > 0 {
		flippedN = geom.Neg(n)
	}
	segOffset := flippedN.Mul(r).Sub(a)

	// endpoints relative to a, pushed out by the thickness
	segA := s.ta.Add(segOffset)
	segB := s.tb.Add(segOffset)
	delta := b.Sub(a)

	if geom.Cross(delta, segA)*geom.Cross(delta, segB) <= 0 {
		dOffset := d + r
		if d > 0 {
			dOffset = d - r
		}
		ad := -dOffset
		bd := delta.Dot(n) - dOffset

		if ad*bd < 0 {
			t := ad / (ad - bd)
			info = SegmentQueryInfo{
				Shape:  s,
				Point:  geom.Lerp(a, b, t).Sub(flippedN.Mul(radius)),
				Normal: flippedN,
				Alpha:  t,
			}
			return info, true
		}
	} else if r != 0 {
		info1, info2 := noSegmentHit(b), noSegmentHit(b)
		hit1 := circleSegmentQuery(s, s.ta, s.radius, a, b, radius, &info1)
		hit2 := circleSegmentQuery(s, s.tb, s.radius, a, b, radius, &info2)

		if hit1 && (!hit2 || info1.Alpha < info2.Alpha) {
			return info1, true
		}
		if hit2 {
			return info2, true
		}
	}

	return info, false
}

func (s *Segment) SupportPoint(n mgl64.Vec2) (mgl64.Vec2, int) {
	if s.ta.Dot(n) > s.tb.Dot(n) {
		return s.ta, 0
	}
	return s.tb, 1
}

func (s *Segment) ShapePoint(i int) mgl64.Vec2 {
	if i == 0 {
		return s.ta
	}
	return s.tb
}

func (s *Segment) Area() float64 {
	return geom.AreaForSegment(s.a, s.b, s.radius)
}

func (s *Segment) Moment(mass float64) float64 {
	return geom.MomentForSegment(mass, s.a, s.b, s.radius)
}
