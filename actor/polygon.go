package actor

import (
	"fmt"
	"math"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Polygon is a convex polygon with counter-clockwise vertices, optionally rounded by a radius.
// Edge i runs from vertex i-1 to vertex i; normals[i] is its outward normal.
type Polygon struct {
	ShapeBase

	verts   []mgl64.Vec2
	normals []mgl64.Vec2
	radius  float64

	// world space
	tverts   []mgl64.Vec2
	tnormals []mgl64.Vec2
}

// NewPolygon builds a polygon from the convex hull of verts, transformed by transform.
func NewPolygon(body *Body, verts []mgl64.Vec2, transform geom.Transform, radius float64) (*Polygon, error) {
	transformed := make([]mgl64.Vec2, len(verts))
	for i, v := range verts {
		transformed[i] = transform.Point(v)
	}

	hull, _ := geom.ConvexHull(transformed, 0)
	return NewPolygonRaw(body, hull, radius)
}

// NewPolygonRaw builds a polygon without computing the hull: verts must already be convex and counter-clockwise.
func NewPolygonRaw(body *Body, verts []mgl64.Vec2, radius float64) (*Polygon, error) {
	if len(verts) == 0 {
		return nil, fmt.Errorf("%w: no vertices", ErrDegeneratePolygon)
	}
	if err := checkFinite(radius); err != nil {
		return nil, err
	}
	for _, v := range verts {
		if !geom.IsFinite(v) {
			return nil, ErrInvalidGeometry
		}
	}
	if radius < 0 {
		return nil, fmt.Errorf("%w: negative radius %v", ErrInvalidGeometry, radius)
	}

	count := len(verts)
	if count >= 3 {
		for i := range verts {
			a, b, c := verts[i], verts[(i+1)%count], verts[(i+2)%count]
			if geom.Cross(b.Sub(a), c.Sub(b)) < 0 {
				return nil, fmt.Errorf("%w: vertices are not convex and counter-clockwise", ErrDegeneratePolygon)
			}
		}
	}
	if area := geom.AreaForPoly(verts, radius); !(area > 0) {
		return nil, fmt.Errorf("%w: area %v", ErrDegeneratePolygon, area)
	}

	p := &Polygon{
		ShapeBase: newShapeBase(body),
		verts:     make([]mgl64.Vec2, count),
		normals:   make([]mgl64.Vec2, count),
		radius:    radius,
		tverts:    make([]mgl64.Vec2, count),
		tnormals:  make([]mgl64.Vec2, count),
	}
	for i := range verts {
		a := verts[(i-1+count)%count]
		b := verts[i]
		p.verts[i] = b
		p.normals[i] = geom.NormalizeSafe(geom.RPerp(b.Sub(a)))
	}
	p.CacheBB(body.Transform())

	return p, nil
}

// NewBox creates a box of the given size centered on the body origin.
func NewBox(body *Body, width, height, radius float64) (*Polygon, error) {
	hw, hh := width/2, height/2
	return NewBoxBB(body, geom.NewBB(-hw, -hh, hw, hh), radius)
}

// NewBoxBB creates a box covering bb in body coordinates.
func NewBoxBB(body *Body, bb geom.BB, radius float64) (*Polygon, error) {
	verts := []mgl64.Vec2{
		{bb.R, bb.B},
		{bb.R, bb.T},
		{bb.L, bb.T},
		{bb.L, bb.B},
	}
	return NewPolygonRaw(body, verts, radius)
}

func (p *Polygon) Type() ShapeType {
	return ShapeTypePolygon
}

func (p *Polygon) Count() int {
	return len(p.verts)
}

// Vertex returns vertex i in body coordinates.
func (p *Polygon) Vertex(i int) mgl64.Vec2 {
	return p.verts[i]
}

func (p *Polygon) WorldVertex(i int) mgl64.Vec2 {
	return p.tverts[i]
}

// WorldNormal returns the normal of the edge ending at vertex i.
func (p *Polygon) WorldNormal(i int) mgl64.Vec2 {
	return p.tnormals[i]
}

func (p *Polygon) Radius() float64 {
	return p.radius
}

func (p *Polygon) CacheBB(transform geom.Transform) geom.BB {
	p.bb = p.cacheData(transform)
	return p.bb
}

func (p *Polygon) cacheData(transform geom.Transform) geom.BB {
	bb := geom.EmptyBB()
	for i := range p.verts {
		v := transform.Point(p.verts[i])
		p.tverts[i] = v
		p.tnormals[i] = transform.Vect(p.normals[i])
		bb = bb.Expand(v)
	}

	r := p.radius
	return geom.NewBB(bb.L-r, bb.B-r, bb.R+r, bb.T+r)
}

func (p *Polygon) PointQuery(point mgl64.Vec2) PointQueryInfo {
	count := len(p.tverts)
	v0 := p.tverts[count-1]

	minDist := math.Inf(1)
	var closestPoint, closestNormal mgl64.Vec2
	outside := false

	for i := 0; i < count; i++ {
		v1 := p.tverts[i]
		outside = outside || p.tnormals[i].Dot(point.Sub(v1)) > 0

		closest := geom.ClosestPointOnSegment(point, v0, v1)
		if dist := geom.Dist(point, closest); dist < minDist {
			minDist = dist
			closestPoint = closest
			closestNormal = p.tnormals[i]
		}

		v0 = v1
	}

	dist := -minDist
	if outside {
		dist = minDist
	}

	info := PointQueryInfo{
		Shape:    p,
		Point:    closestPoint,
		Distance: dist - p.radius,
		Gradient: closestNormal,
	}
	// the closest edge normal is used when the point sits on the boundary
	if minDist > magicEpsilon {
		g := point.Sub(closestPoint).Mul(1 / dist)
		info.Point = closestPoint.Add(g.Mul(p.radius))
		info.Gradient = g
	}

	return info
}

func (p *Polygon) SegmentQuery(a, b mgl64.Vec2, radius float64) (SegmentQueryInfo, bool) {
	info := noSegmentHit(b)
	hit := false

	count := len(p.tverts)
	rsum := p.radius + radius

	for i := 0; i < count; i++ {
		n := p.tnormals[i]
		an := a.Dot(n)
		d := an - p.tverts[i].Dot(n) - rsum
		if d < 0 {
			continue
		}

		bn := b.Dot(n)
		t := d / (an - bn)
		if t < 0 || 1 < t || t >= info.Alpha && hit {
			continue
		}

		point := geom.Lerp(a, b, t)
		dt := geom.Cross(n, point)
		dtMin := geom.Cross(n, p.tverts[(i-1+count)%count])
		dtMax := geom.Cross(n, p.tverts[i])

		if dtMin <= dt && dt <= dtMax {
			info = SegmentQueryInfo{
				Shape:  p,
				Point:  point.Sub(n.Mul(radius)),
				Normal: n,
				Alpha:  t,
			}
			hit = true
		}
	}

	// rounded corners
	if rsum > 0 {
		for i := 0; i < count; i++ {
			corner := noSegmentHit(b)
			if circleSegmentQuery(p, p.tverts[i], p.radius, a, b, radius, &corner) && (!hit || corner.Alpha < info.Alpha) {
				info = corner
				hit = true
			}
		}
	}

	return info, hit
}

func (p *Polygon) SupportPoint(n mgl64.Vec2) (mgl64.Vec2, int) {
	i := p.SupportIndex(n)
	return p.tverts[i], i
}

// SupportIndex returns the index of the world vertex furthest along n.
func (p *Polygon) SupportIndex(n mgl64.Vec2) int {
	best := math.Inf(-1)
	index := 0
	for i, v := range p.tverts {
		if d := v.Dot(n); d > best {
			best = d
			index = i
		}
	}
	return index
}

func (p *Polygon) ShapePoint(i int) mgl64.Vec2 {
	if i >= len(p.tverts) {
		i = 0
	}
	return p.tverts[i]
}

func (p *Polygon) Area() float64 {
	return geom.AreaForPoly(p.verts, p.radius)
}

func (p *Polygon) Moment(mass float64) float64 {
	return geom.MomentForPoly(mass, p.verts, geom.Zero, p.radius)
}
