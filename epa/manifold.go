package epa

import (
	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/geom"
	"github.com/akmonengine/feather2d/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const hashCoef = 3344921057

// HashPair combines two hash values; the result does not depend on their order.
func HashPair(a, b uint64) uint64 {
	return a*hashCoef ^ b*hashCoef
}

// EdgePoint is an edge vertex and the hash of the feature it belongs to.
type EdgePoint struct {
	P    mgl64.Vec2
	Hash uint64
}

// Edge is a support edge of a shape: the edge most aligned with a direction.
type Edge struct {
	A, B EdgePoint
	R    float64
	N    mgl64.Vec2
}

// Contact is a contact point found by clipping, as absolute world points on the surface of A and B.
type Contact struct {
	A, B mgl64.Vec2
	Hash uint64
}

// SupportEdgeForPolygon returns the polygon edge whose normal is closest to n.
func SupportEdgeForPolygon(poly *actor.Polygon, n mgl64.Vec2) Edge {
	count := poly.Count()
	i1 := poly.SupportIndex(n)
	i0 := (i1 - 1 + count) % count
	i2 := (i1 + 1) % count

	hashid := poly.HashID()
	if n.Dot(poly.WorldNormal(i1)) > n.Dot(poly.WorldNormal(i2)) {
		return Edge{
			A: EdgePoint{poly.WorldVertex(i0), HashPair(hashid, uint64(i0))},
			B: EdgePoint{poly.WorldVertex(i1), HashPair(hashid, uint64(i1))},
			R: poly.Radius(),
			N: poly.WorldNormal(i1),
		}
	}

	return Edge{
		A: EdgePoint{poly.WorldVertex(i1), HashPair(hashid, uint64(i1))},
		B: EdgePoint{poly.WorldVertex(i2), HashPair(hashid, uint64(i2))},
		R: poly.Radius(),
		N: poly.WorldNormal(i2),
	}
}

// SupportEdgeForSegment returns the side of the segment facing n.
func SupportEdgeForSegment(seg *actor.Segment, n mgl64.Vec2) Edge {
	hashid := seg.HashID()
	if seg.WorldNormal().Dot(n) > 0 {
		return Edge{
			A: EdgePoint{seg.WorldA(), HashPair(hashid, 0)},
			B: EdgePoint{seg.WorldB(), HashPair(hashid, 1)},
			R: seg.Radius(),
			N: seg.WorldNormal(),
		}
	}

	return Edge{
		A: EdgePoint{seg.WorldB(), HashPair(hashid, 1)},
		B: EdgePoint{seg.WorldA(), HashPair(hashid, 0)},
		R: seg.Radius(),
		N: geom.Neg(seg.WorldNormal()),
	}
}

// ContactPoints clips e1 (on A) and e2 (on B) against each other along points.N and appends
// up to two contacts to contacts. Nothing is appended when the edges are further apart than
// their radii.
func ContactPoints(e1, e2 Edge, points gjk.ClosestPoints, contacts []Contact) []Contact {
	mindist := e1.R + e2.R
	if points.D > mindist {
		return contacts
	}

	n := points.N

	// distances along the axis parallel to n
	dE1A := geom.Cross(e1.A.P, n)
	dE1B := geom.Cross(e1.B.P, n)
	dE2A := geom.Cross(e2.A.P, n)
	dE2B := geom.Cross(e2.B.P, n)

	e1Denom := 1 / (dE1B - dE1A + geom.Epsilon)
	e2Denom := 1 / (dE2B - dE2A + geom.Epsilon)

	// project the endpoints of each edge onto the other one, then keep the pairs that overlap along n
	{
		p1 := n.Mul(e1.R).Add(geom.Lerp(e1.A.P, e1.B.P, geom.Clamp01((dE2B-dE1A)*e1Denom)))
		p2 := n.Mul(-e2.R).Add(geom.Lerp(e2.A.P, e2.B.P, geom.Clamp01((dE1A-dE2A)*e2Denom)))
		if p2.Sub(p1).Dot(n) <= 0 {
			contacts = append(contacts, Contact{A: p1, B: p2, Hash: HashPair(e1.A.Hash, e2.B.Hash)})
		}
	}
	{
		p1 := n.Mul(e1.R).Add(geom.Lerp(e1.A.P, e1.B.P, geom.Clamp01((dE2A-dE1A)*e1Denom)))
		p2 := n.Mul(-e2.R).Add(geom.Lerp(e2.A.P, e2.B.P, geom.Clamp01((dE1B-dE2A)*e2Denom)))
		if p2.Sub(p1).Dot(n) <= 0 {
			contacts = append(contacts, Contact{A: p1, B: p2, Hash: HashPair(e1.B.Hash, e2.A.Hash)})
		}
	}

	return contacts
}
