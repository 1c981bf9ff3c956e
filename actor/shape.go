package actor

import (
	"fmt"
	"math"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
// The order matters: the narrow phase sorts shape pairs by type
type ShapeType int

const (
	ShapeTypeCircle ShapeType = iota
	ShapeTypeSegment
	ShapeTypePolygon

	NumShapeTypes
)

func (t ShapeType) String() string {
	switch t {
	case ShapeTypeCircle:
		return "circle"
	case ShapeTypeSegment:
		return "segment"
	case ShapeTypePolygon:
		return "polygon"
	default:
		return fmt.Sprintf("ShapeType(%d)", int(t))
	}
}

// CollisionType selects the collision handler of a shape pair.
type CollisionType uint64

// magicEpsilon is the distance under which point queries fall back to a feature normal.
const magicEpsilon = 1e-5

// Shape is the interface implemented by *Circle, *Segment and *Polygon.
type Shape interface {
	Type() ShapeType
	Base() *ShapeBase
	Body() *Body
	BB() geom.BB
	HashID() uint64

	// CacheBB transforms the shape geometry to world space with transform and returns the new bounding box
	CacheBB(transform geom.Transform) geom.BB
	PointQuery(p mgl64.Vec2) PointQueryInfo
	// SegmentQuery sweeps a circle of the given radius from a to b
	SegmentQuery(a, b mgl64.Vec2, radius float64) (SegmentQueryInfo, bool)

	// SupportPoint returns the world vertex furthest along n, and its index
	SupportPoint(n mgl64.Vec2) (mgl64.Vec2, int)
	ShapePoint(i int) mgl64.Vec2

	Radius() float64
	Area() float64
	// Moment is the moment of inertia of the shape for the given mass, around the body origin
	Moment(mass float64) float64

	cacheData(transform geom.Transform) geom.BB
}

// ShapeBase holds the state common to every shape.
type ShapeBase struct {
	Sensor          bool
	Elasticity      float64
	Friction        float64
	SurfaceVelocity mgl64.Vec2
	CollisionType   CollisionType
	Filter          ShapeFilter
	UserData        any

	body   *Body
	bb     geom.BB
	hashid uint64
	owner  Owner
}

func newShapeBase(body *Body) ShapeBase {
	return ShapeBase{
		body:   body,
		bb:     geom.EmptyBB(),
		Filter: ShapeFilterAll,
	}
}

func (s *ShapeBase) Base() *ShapeBase {
	return s
}

func (s *ShapeBase) Body() *Body {
	return s.body
}

func (s *ShapeBase) BB() geom.BB {
	return s.bb
}

func (s *ShapeBase) HashID() uint64 {
	return s.hashid
}

func (s *ShapeBase) Owner() Owner {
	return s.owner
}

// SetOwner is called by the space when the shape is added (owner != nil) or removed (owner == nil).
func (s *ShapeBase) SetOwner(owner Owner, hashid uint64) {
	s.owner = owner
	s.hashid = hashid
}

// ShapeFilter decides which shapes may collide.
// Shapes sharing a non zero Group never collide; otherwise each Categories must match the other Mask.
type ShapeFilter struct {
	Group      uint
	Categories uint32
	Mask       uint32
}

const AllCategories = ^uint32(0)

var (
	ShapeFilterAll  = ShapeFilter{Group: 0, Categories: AllCategories, Mask: AllCategories}
	ShapeFilterNone = ShapeFilter{Group: 0, Categories: ^AllCategories, Mask: ^AllCategories}
)

func (f ShapeFilter) Reject(other ShapeFilter) bool {
	return (f.Group != 0 && f.Group == other.Group) ||
		(f.Categories&other.Mask) == 0 ||
		(other.Categories&f.Mask) == 0
}

// PointQueryInfo is the result of a point query.
// Distance is negative when the point is inside the shape.
type PointQueryInfo struct {
	Shape    Shape
	Point    mgl64.Vec2
	Distance float64
	Gradient mgl64.Vec2
}

// SegmentQueryInfo is the result of a segment query. Alpha is the fraction along the segment.
type SegmentQueryInfo struct {
	Shape  Shape
	Point  mgl64.Vec2
	Normal mgl64.Vec2
	Alpha  float64
}

func noSegmentHit(b mgl64.Vec2) SegmentQueryInfo {
	return SegmentQueryInfo{Point: b, Alpha: 1}
}

// circleSegmentQuery sweeps a circle of radius r2 from a to b against a circle of radius r1 at center.
func circleSegmentQuery(shape Shape, center mgl64.Vec2, r1 float64, a, b mgl64.Vec2, r2 float64, info *SegmentQueryInfo) bool {
	da := a.Sub(center)
	db := b.Sub(center)
	rsum := r1 + r2

	qa := da.Dot(da) - 2*da.Dot(db) + db.Dot(db)
	qb := da.Dot(db) - da.Dot(da)
	det := qb*qb - qa*(da.Dot(da)-rsum*rsum)
	if det < 0 {
		return false
	}

	t := (-qb - math.Sqrt(det)) / qa
	if !(0 <= t && t <= 1) {
		return false
	}

	n := geom.NormalizeSafe(geom.Lerp(da, db, t))
	*info = SegmentQueryInfo{
		Shape:  shape,
		Point:  geom.Lerp(a, b, t).Sub(n.Mul(r2)),
		Normal: n,
		Alpha:  t,
	}
	return true
}

func checkFinite(values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidGeometry
		}
	}
	return nil
}
