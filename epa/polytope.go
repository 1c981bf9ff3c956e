package epa

import (
	"math"

	"github.com/akmonengine/feather2d/geom"
	"github.com/akmonengine/feather2d/gjk"
)

// Polytope is the convex hull expanded by EPA, kept counter-clockwise.
// Its buffers are reused between calls; a Polytope must not be shared between goroutines.
type Polytope struct {
	hull []gjk.MinkowskiPoint
	next []gjk.MinkowskiPoint
}

// NewPolytope allocates a polytope with room for the initial triangle and a few expansions.
func NewPolytope() *Polytope {
	return &Polytope{
		hull: make([]gjk.MinkowskiPoint, 0, polytopeInitialCapacity),
		next: make([]gjk.MinkowskiPoint, 0, polytopeInitialCapacity),
	}
}

func (p *Polytope) Reset(simplex *gjk.Simplex) {
	p.hull = append(p.hull[:0], simplex.Points[:simplex.Count]...)
	p.next = p.next[:0]
}

// Count returns the number of hull vertexes.
func (p *Polytope) Count() int {
	return len(p.hull)
}

// closestEdge returns the index i of the hull edge (i, i+1) closest to the origin.
func (p *Polytope) closestEdge() int {
	count := len(p.hull)
	mini := 0
	minDist := math.Inf(1)

	for j, i := 0, count-1; j < count; i, j = j, j+1 {
		if d := gjk.ClosestDist(p.hull[i].AB, p.hull[j].AB); d < minDist {
			minDist = d
			mini = i
		}
	}

	return mini
}

// insert rebuilds the hull with point added after edge mini, dropping the vertexes it hides.
func (p *Polytope) insert(point gjk.MinkowskiPoint, mini int) {
	count := len(p.hull)

	next := append(p.next[:0], point)
	for i := 0; i < count; i++ {
		index := (mini + 1 + i) % count

		h0 := next[len(next)-1].AB
		h1 := p.hull[index].AB
		h2 := point.AB
		if i+1 < count {
			h2 = p.hull[(index+1)%count].AB
		}

		if geom.CheckPointGreater(h0, h2, h1) {
			next = append(next, p.hull[index])
		}
	}

	p.hull, p.next = next, p.hull
}
