// Package index provides the broad phase: spatial indexes that keep the bounding boxes of a set of objects
// and report the pairs whose boxes overlap.
//
// Two implementations share the SpatialIndex contract:
//   - BBTree, a dynamic bounding box tree. Leaves are fattened so objects can move a little without being
//     reinserted, and the overlapping pairs of unmoved leaves are cached between steps.
//   - SpatialHash, a uniform grid hashed into a power of two table, rebuilt on every ReindexQuery.
//
// A dynamic index can be bound to a static one at construction. ReindexQuery then reports the
// dynamic/dynamic pairs and the dynamic/static pairs in one pass.
package index

import (
	"errors"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrDuplicate = errors.New("index: hash already present")
	ErrNotFound  = errors.New("index: object not found")
)

// BBFunc returns the current bounding box of an object.
type BBFunc[T comparable] func(obj T) geom.BB

// VelocityFunc returns the velocity of an object, used by BBTree to fatten leaves along the motion.
type VelocityFunc[T comparable] func(obj T) mgl64.Vec2

// PairFunc is called for every potentially colliding pair. id is the collision id cached on the pair
// (0 for a new pair); the returned id is stored back for the next step.
type PairFunc[T comparable] func(a, b T, id uint32) uint32

// QueryFunc is called for every object whose box overlaps the query.
type QueryFunc[T comparable] func(obj T)

// SegmentQueryFunc is called for every object the segment may hit. It returns the fraction along the
// segment where the object was hit (or 1), which shortens the rest of the query.
type SegmentQueryFunc[T comparable] func(obj T) float64

// SpatialIndex is the contract shared by BBTree and SpatialHash.
// Objects are identified by their hash, which must be unique within an index.
type SpatialIndex[T comparable] interface {
	Count() int
	// Each iterates the objects in insertion order.
	Each(fn func(obj T))
	Contains(obj T, hash uint64) bool

	Insert(obj T, hash uint64) error
	Remove(obj T, hash uint64) error

	// Reindex refreshes the box of every object.
	Reindex()
	ReindexObject(obj T, hash uint64)
	// ReindexQuery refreshes every box, then reports each overlapping pair once,
	// including the pairs against the bound static index.
	ReindexQuery(fn PairFunc[T])

	Query(bb geom.BB, fn QueryFunc[T])
	// SegmentQuery reports the objects along a->b, nearest boxes first when the index can order them.
	// Boxes entered after tExit are skipped.
	SegmentQuery(a, b mgl64.Vec2, tExit float64, fn SegmentQueryFunc[T])

	bind(dynamic SpatialIndex[T])
}

type indexBase[T comparable] struct {
	bbfunc  BBFunc[T]
	static  SpatialIndex[T]
	dynamic SpatialIndex[T]
}

func (b *indexBase[T]) setup(bbfunc BBFunc[T], static SpatialIndex[T], self SpatialIndex[T]) {
	b.bbfunc = bbfunc
	b.static = static
	if static != nil {
		static.bind(self)
	}
}

func (b *indexBase[T]) bind(dynamic SpatialIndex[T]) {
	b.dynamic = dynamic
}

// collideStatic queries static with the box of every object of dynamic.
func collideStatic[T comparable](dynamic SpatialIndex[T], bbfunc BBFunc[T], static SpatialIndex[T], fn PairFunc[T]) {
	if static == nil || static.Count() == 0 {
		return
	}

	dynamic.Each(func(obj T) {
		static.Query(bbfunc(obj), func(other T) {
			fn(obj, other, 0)
		})
	})
}

func voidPairFunc[T comparable](_, _ T, id uint32) uint32 {
	return id
}
