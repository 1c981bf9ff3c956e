package actor

import (
	"fmt"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Circle is a circle of Radius centered on Offset in body coordinates.
type Circle struct {
	ShapeBase

	center mgl64.Vec2
	radius float64

	// world center
	tc mgl64.Vec2
}

func NewCircle(body *Body, radius float64, offset mgl64.Vec2) (*Circle, error) {
	if err := checkFinite(radius, offset[0], offset[1]); err != nil {
		return nil, err
	}
	if radius < 0 {
		return nil, fmt.Errorf("%w: negative radius %v", ErrInvalidGeometry, radius)
	}

	c := &Circle{
		ShapeBase: newShapeBase(body),
		center:    offset,
		radius:    radius,
	}
	c.CacheBB(body.Transform())

	return c, nil
}

func (c *Circle) Type() ShapeType {
	return ShapeTypeCircle
}

// Offset returns the center in body coordinates.
func (c *Circle) Offset() mgl64.Vec2 {
	return c.center
}

// WorldCenter returns the center cached by the last CacheBB.
func (c *Circle) WorldCenter() mgl64.Vec2 {
	return c.tc
}

func (c *Circle) Radius() float64 {
	return c.radius
}

func (c *Circle) CacheBB(transform geom.Transform) geom.BB {
	c.bb = c.cacheData(transform)
	return c.bb
}

func (c *Circle) cacheData(transform geom.Transform) geom.BB {
	c.tc = transform.Point(c.center)
	return geom.NewBBForCircle(c.tc, c.radius)
}

func (c *Circle) PointQuery(p mgl64.Vec2) PointQueryInfo {
	delta := p.Sub(c.tc)
	d := delta.Len()

	rOverD := c.radius
	if d > 0 {
		rOverD = c.radius / d
	}

	// up when the point sits on the center
	gradient := mgl64.Vec2{0, 1}
	if d > magicEpsilon {
		gradient = delta.Mul(1 / d)
	}

	return PointQueryInfo{
		Shape:    c,
		Point:    c.tc.Add(delta.Mul(rOverD)),
		Distance: d - c.radius,
		Gradient: gradient,
	}
}

func (c *Circle) SegmentQuery(a, b mgl64.Vec2, radius float64) (SegmentQueryInfo, bool) {
	info := noSegmentHit(b)
	hit := circleSegmentQuery(c, c.tc, c.radius, a, b, radius, &info)
	return info, hit
}

func (c *Circle) SupportPoint(mgl64.Vec2) (mgl64.Vec2, int) {
	return c.tc, 0
}

func (c *Circle) ShapePoint(int) mgl64.Vec2 {
	return c.tc
}

func (c *Circle) Area() float64 {
	return geom.AreaForCircle(0, c.radius)
}

func (c *Circle) Moment(mass float64) float64 {
	return geom.MomentForCircle(mass, 0, c.radius, c.center)
}
