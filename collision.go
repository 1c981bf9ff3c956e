package feather2d

import (
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/epa"
	"github.com/akmonengine/feather2d/geom"
	"github.com/akmonengine/feather2d/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxContactsPerArbiter is the maximum number of contact points between two shapes.
const MaxContactsPerArbiter = 2

// collisionInfo is the result of the narrow phase for a pair of shapes.
// The normal points from a to b; the contacts are absolute world points on the surface of a and b.
type collisionInfo struct {
	a, b     actor.Shape
	id       uint32
	n        mgl64.Vec2
	contacts []epa.Contact
}

// narrowPhase holds the scratch reused by every collision test of a space.
type narrowPhase struct {
	ctx      gjk.Context
	simplex  gjk.Simplex
	polytope *epa.Polytope
	buffer   [MaxContactsPerArbiter]epa.Contact
}

func newNarrowPhase() *narrowPhase {
	return &narrowPhase{polytope: epa.NewPolytope()}
}

type collisionFunc func(np *narrowPhase, info *collisionInfo)

// collisionFuncs is indexed by a.Type() + b.Type()*NumShapeTypes, with a.Type() <= b.Type().
var collisionFuncs = [actor.NumShapeTypes * actor.NumShapeTypes]collisionFunc{
	(*narrowPhase).circleToCircle, nil, nil,
	(*narrowPhase).circleToSegment, (*narrowPhase).segmentToSegment, nil,
	(*narrowPhase).circleToPolygon, (*narrowPhase).segmentToPolygon, (*narrowPhase).polygonToPolygon,
}

// collide runs the narrow phase on a pair of shapes. id is the collision id cached on the pair
// by the broad phase. The shapes are ordered by type first: info.a and info.b tell the final order.
// The contacts of the returned info are only valid until the next call.
func (np *narrowPhase) collide(a, b actor.Shape, id uint32) collisionInfo {
	if a.Type() > b.Type() {
		a, b = b, a
	}

	info := collisionInfo{a: a, b: b, id: id, contacts: np.buffer[:0]}
	if fn := collisionFuncs[a.Type()+b.Type()*actor.NumShapeTypes]; fn != nil {
		fn(np, &info)
	}

	return info
}

// closestPoints runs GJK on the pair, and EPA when the shapes overlap.
// The id of the closest features is stored back in info for the next step.
func (np *narrowPhase) closestPoints(info *collisionInfo) gjk.ClosestPoints {
	np.ctx = gjk.Context{A: info.a, B: info.b}

	points, overlap := gjk.GJK(&np.ctx, info.id, &np.simplex)
	if overlap {
		points = np.polytope.EPA(&np.ctx, &np.simplex)
	}
	info.id = points.ID

	return points
}

func (info *collisionInfo) pushCircles(p1, p2 mgl64.Vec2, r1, r2 float64) {
	mindist := r1 + r2
	delta := p2.Sub(p1)
	distsq := delta.LenSqr()
	if distsq >= mindist*mindist {
		return
	}

	dist := math.Sqrt(distsq)
	n := mgl64.Vec2{1, 0}
	if dist != 0 {
		n = delta.Mul(1 / dist)
	}

	info.n = n
	info.contacts = append(info.contacts, epa.Contact{A: p1.Add(n.Mul(r1)), B: p2.Sub(n.Mul(r2))})
}

func (np *narrowPhase) circleToCircle(info *collisionInfo) {
	c1 := info.a.(*actor.Circle)
	c2 := info.b.(*actor.Circle)

	info.pushCircles(c1.WorldCenter(), c2.WorldCenter(), c1.Radius(), c2.Radius())
}

func (np *narrowPhase) circleToSegment(info *collisionInfo) {
	circle := info.a.(*actor.Circle)
	seg := info.b.(*actor.Segment)

	segA, segB := seg.WorldA(), seg.WorldB()
	center := circle.WorldCenter()

	segDelta := segB.Sub(segA)
	closestT := geom.Clamp01(segDelta.Dot(center.Sub(segA)) / (segDelta.LenSqr() + geom.Epsilon))
	closest := segA.Add(segDelta.Mul(closestT))

	mindist := circle.Radius() + seg.Radius()
	delta := closest.Sub(center)
	distsq := delta.LenSqr()
	if distsq >= mindist*mindist {
		return
	}

	dist := math.Sqrt(distsq)
	// coincident shapes: push along the segment normal
	n := seg.WorldNormal()
	if dist != 0 {
		n = delta.Mul(1 / dist)
	}

	// reject the endcap collisions hidden by a neighbor segment
	tangentA, tangentB := seg.WorldTangents()
	if (closestT == 0 && n.Dot(tangentA) < 0) || (closestT == 1 && n.Dot(tangentB) < 0) {
		return
	}

	info.n = n
	info.contacts = append(info.contacts, epa.Contact{
		A: center.Add(n.Mul(circle.Radius())),
		B: closest.Sub(n.Mul(seg.Radius())),
	})
}

// endcapHidden reports whether p is an endpoint of seg whose neighbor tangent faces n.
// sign is 1 when seg is shape A of the pair, -1 when it is shape B.
func endcapHidden(seg *actor.Segment, p, n mgl64.Vec2, sign float64) bool {
	tangentA, tangentB := seg.WorldTangents()
	return (p == seg.WorldA() && sign*n.Dot(tangentA) > 0) ||
		(p == seg.WorldB() && sign*n.Dot(tangentB) > 0)
}

func (np *narrowPhase) segmentToSegment(info *collisionInfo) {
	seg1 := info.a.(*actor.Segment)
	seg2 := info.b.(*actor.Segment)

	points := np.closestPoints(info)
	n := points.N
	if points.D > seg1.Radius()+seg2.Radius() {
		return
	}
	if endcapHidden(seg1, points.A, n, 1) || endcapHidden(seg2, points.B, n, -1) {
		return
	}

	info.n = n
	info.contacts = epa.ContactPoints(epa.SupportEdgeForSegment(seg1, n), epa.SupportEdgeForSegment(seg2, geom.Neg(n)), points, info.contacts)
}

func (np *narrowPhase) circleToPolygon(info *collisionInfo) {
	circle := info.a.(*actor.Circle)
	poly := info.b.(*actor.Polygon)

	points := np.closestPoints(info)
	if points.D > circle.Radius()+poly.Radius() {
		return
	}

	n := points.N
	info.n = n
	info.contacts = append(info.contacts, epa.Contact{
		A: points.A.Add(n.Mul(circle.Radius())),
		B: points.B.Sub(n.Mul(poly.Radius())),
	})
}

func (np *narrowPhase) segmentToPolygon(info *collisionInfo) {
	seg := info.a.(*actor.Segment)
	poly := info.b.(*actor.Polygon)

	mindist := seg.Radius() + poly.Radius()
	if segmentSeparated(seg, poly, mindist) || polygonSeparated(poly, []mgl64.Vec2{seg.WorldA(), seg.WorldB()}, mindist) {
		return
	}

	points := np.closestPoints(info)
	n := points.N
	if points.D > mindist || endcapHidden(seg, points.A, n, 1) {
		return
	}

	info.n = n
	info.contacts = epa.ContactPoints(epa.SupportEdgeForSegment(seg, n), epa.SupportEdgeForPolygon(poly, geom.Neg(n)), points, info.contacts)
}

func (np *narrowPhase) polygonToPolygon(info *collisionInfo) {
	poly1 := info.a.(*actor.Polygon)
	poly2 := info.b.(*actor.Polygon)

	mindist := poly1.Radius() + poly2.Radius()
	if polygonsSeparated(poly1, poly2, mindist) || polygonsSeparated(poly2, poly1, mindist) {
		return
	}

	points := np.closestPoints(info)
	if points.D > mindist {
		return
	}

	n := points.N
	info.n = n
	info.contacts = epa.ContactPoints(epa.SupportEdgeForPolygon(poly1, n), epa.SupportEdgeForPolygon(poly2, geom.Neg(n)), points, info.contacts)
}

// polygonsSeparated is the separating axis test over the edge planes of poly:
// it reports whether one of them has every vertex of other further than mindist in front of it.
func polygonsSeparated(poly, other *actor.Polygon, mindist float64) bool {
	for i := range poly.Count() {
		n := poly.WorldNormal(i)
		deepest := other.WorldVertex(other.SupportIndex(geom.Neg(n)))
		if n.Dot(deepest.Sub(poly.WorldVertex(i))) > mindist {
			return true
		}
	}
	return false
}

// polygonSeparated is polygonsSeparated against a set of points.
func polygonSeparated(poly *actor.Polygon, points []mgl64.Vec2, mindist float64) bool {
	for i := range poly.Count() {
		n := poly.WorldNormal(i)
		v := poly.WorldVertex(i)

		separated := true
		for _, p := range points {
			if n.Dot(p.Sub(v)) <= mindist {
				separated = false
				break
			}
		}
		if separated {
			return true
		}
	}
	return false
}

// segmentSeparated tests both sides of the segment as separating axes.
func segmentSeparated(seg *actor.Segment, poly *actor.Polygon, mindist float64) bool {
	a := seg.WorldA()
	for _, n := range [2]mgl64.Vec2{seg.WorldNormal(), geom.Neg(seg.WorldNormal())} {
		deepest := poly.WorldVertex(poly.SupportIndex(geom.Neg(n)))
		if n.Dot(deepest.Sub(a)) > mindist {
			return true
		}
	}
	return false
}

// pointSet converts the result of the narrow phase to a contact point set seen from shape a,
// which may have been swapped with info.b by collide.
func (info *collisionInfo) pointSet(a actor.Shape) ContactPointSet {
	swapped := info.a != a
	set := ContactPointSet{
		Count:  len(info.contacts),
		Normal: info.n,
	}
	if swapped {
		set.Normal = geom.Neg(info.n)
	}

	for i, c := range info.contacts {
		p1, p2 := c.A, c.B
		if swapped {
			p1, p2 = p2, p1
		}
		set.Points[i] = ContactPoint{
			PointA:   p1,
			PointB:   p2,
			Distance: p2.Sub(p1).Dot(set.Normal),
		}
	}
	return set
}

// Collide runs the narrow phase on two shapes, in or out of a space, using the transforms of
// their bodies. The normal of the set points from a to b.
func Collide(a, b actor.Shape) ContactPointSet {
	a.CacheBB(a.Body().Transform())
	b.CacheBB(b.Body().Transform())

	info := newNarrowPhase().collide(a, b, 0)
	return info.pointSet(a)
}
