// Package epa implements the Expanding Polytope Algorithm for computing penetration depth in 2D,
// and the edge clipping that turns a separating axis into contact points.
//
// EPA is run after GJK finds a triangle of the Minkowski difference containing the origin.
// The hull is expanded toward the boundary of the difference, one support point at a time,
// along the normal of its edge closest to the origin. When no support point lies beyond that
// edge, the edge is the minimum separating axis: its normal is the contact normal and its
// distance to the origin is the penetration depth.
//
// ContactPoints then clips the support edges of both shapes against each other along that
// axis, producing up to two contacts, each tagged with a hash of the vertexes it came from so
// the arbiter can match it with the contact of the previous step.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
//   - Lembcke: Chipmunk2D collision (cpCollision.c)
package epa

import (
	"github.com/akmonengine/feather2d/geom"
	"github.com/akmonengine/feather2d/gjk"
)

const (
	// MaxIterations limits polytope expansion to prevent infinite loops.
	// The best edge found so far is returned when it is reached.
	MaxIterations = 30

	polytopeInitialCapacity = 8
)

// EPA expands the triangle found by GJK and returns the closest points of the overlapping shapes.
// The returned distance is negative: it is minus the penetration depth.
func (p *Polytope) EPA(ctx *gjk.Context, simplex *gjk.Simplex) gjk.ClosestPoints {
	p.Reset(simplex)

	for iteration := 1; ; iteration++ {
		mini := p.closestEdge()
		v0 := p.hull[mini]
		v1 := p.hull[(mini+1)%len(p.hull)]

		point := ctx.Support(geom.Perp(v1.AB.Sub(v0.AB)))

		// the new point must lie strictly outside the edge
		duplicate := point.ID == v0.ID || point.ID == v1.ID
		if duplicate || !geom.CheckPointGreater(v0.AB, v1.AB, point.AB) || iteration >= MaxIterations {
			return gjk.NewClosestPoints(v0, v1)
		}

		p.insert(point, mini)
	}
}
