package feather2d

import (
	"iter"
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Queries lock the space while they run: shapes cannot be added or removed from the loop body,
// use AddPostStepCallback instead.

// PointQuery iterates the shapes closer to p than maxDistance, sensors included. A point inside a
// shape has a negative distance.
func (s *Space) PointQuery(p mgl64.Vec2, maxDistance float64, filter actor.ShapeFilter) iter.Seq[actor.PointQueryInfo] {
	return func(yield func(actor.PointQueryInfo) bool) {
		s.lock()
		defer s.unlock(true)

		bb := geom.NewBBForCircle(p, math.Max(maxDistance, 0))
		done := false
		visit := func(shape actor.Shape) {
			if done || shape.Base().Filter.Reject(filter) {
				return
			}

			info := shape.PointQuery(p)
			if info.Distance < maxDistance && !yield(info) {
				done = true
			}
		}

		s.dynamicShapes.Query(bb, visit)
		if !done {
			s.staticShapes.Query(bb, visit)
		}
	}
}

// PointQueryNearest returns the non sensor shape closest to p within maxDistance.
func (s *Space) PointQueryNearest(p mgl64.Vec2, maxDistance float64, filter actor.ShapeFilter) (actor.PointQueryInfo, bool) {
	s.lock()
	defer s.unlock(true)

	nearest := actor.PointQueryInfo{Distance: maxDistance}
	visit := func(shape actor.Shape) {
		if shape.Base().Sensor || shape.Base().Filter.Reject(filter) {
			return
		}
		if info := shape.PointQuery(p); info.Distance < nearest.Distance {
			nearest = info
		}
	}

	bb := geom.NewBBForCircle(p, math.Max(maxDistance, 0))
	s.dynamicShapes.Query(bb, visit)
	s.staticShapes.Query(bb, visit)

	return nearest, nearest.Shape != nil
}

// SegmentQuery iterates the shapes hit by the segment a->b swept by radius, sensors included.
// The hits are not sorted.
func (s *Space) SegmentQuery(a, b mgl64.Vec2, radius float64, filter actor.ShapeFilter) iter.Seq[actor.SegmentQueryInfo] {
	return func(yield func(actor.SegmentQueryInfo) bool) {
		s.lock()
		defer s.unlock(true)

		done := false
		visit := func(shape actor.Shape) float64 {
			if done {
				return 0
			}
			if shape.Base().Filter.Reject(filter) {
				return 1
			}

			if info, ok := shape.SegmentQuery(a, b, radius); ok && !yield(info) {
				done = true
				return 0
			}
			return 1
		}

		s.staticShapes.SegmentQuery(a, b, 1, visit)
		if !done {
			s.dynamicShapes.SegmentQuery(a, b, 1, visit)
		}
	}
}

// SegmentQueryFirst returns the first non sensor shape hit by the segment a->b swept by radius.
func (s *Space) SegmentQueryFirst(a, b mgl64.Vec2, radius float64, filter actor.ShapeFilter) (actor.SegmentQueryInfo, bool) {
	s.lock()
	defer s.unlock(true)

	first := actor.SegmentQueryInfo{Point: b, Alpha: 1}
	visit := func(shape actor.Shape) float64 {
		if shape.Base().Sensor || shape.Base().Filter.Reject(filter) {
			return first.Alpha
		}
		if info, ok := shape.SegmentQuery(a, b, radius); ok && info.Alpha < first.Alpha {
			first = info
		}
		return first.Alpha
	}

	s.staticShapes.SegmentQuery(a, b, 1, visit)
	s.dynamicShapes.SegmentQuery(a, b, first.Alpha, visit)

	return first, first.Shape != nil
}

// BBQuery iterates the shapes whose bounding box overlaps bb.
func (s *Space) BBQuery(bb geom.BB, filter actor.ShapeFilter) iter.Seq[actor.Shape] {
	return func(yield func(actor.Shape) bool) {
		s.lock()
		defer s.unlock(true)

		done := false
		visit := func(shape actor.Shape) {
			if done || !bb.Intersects(shape.BB()) || shape.Base().Filter.Reject(filter) {
				return
			}
			if !yield(shape) {
				done = true
			}
		}

		s.dynamicShapes.Query(bb, visit)
		if !done {
			s.staticShapes.Query(bb, visit)
		}
	}
}

// ShapeQuery iterates the shapes of the space overlapping shape, with the contact points seen from
// shape. shape does not need to be in the space; its body transform is used as is.
func (s *Space) ShapeQuery(shape actor.Shape) iter.Seq2[actor.Shape, ContactPointSet] {
	return func(yield func(actor.Shape, ContactPointSet) bool) {
		body := shape.Body()
		if body != nil {
			shape.CacheBB(body.Transform())
		}
		bb := shape.BB()

		s.lock()
		defer s.unlock(true)

		done := false
		visit := func(other actor.Shape) {
			if done || other == shape || shape.Base().Filter.Reject(other.Base().Filter) {
				return
			}

			info := s.queryNarrow.collide(shape, other, 0)
			if len(info.contacts) == 0 {
				return
			}
			if !yield(other, info.pointSet(shape)) {
				done = true
			}
		}

		s.dynamicShapes.Query(bb, visit)
		if !done {
			s.staticShapes.Query(bb, visit)
		}
	}
}
