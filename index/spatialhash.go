package index

import (
	"math"
	"slices"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// cellKey is the integer coordinate of a grid cell.
type cellKey struct {
	X, Y int
}

type hashEntry[T comparable] struct {
	obj   T
	hash  uint64
	bb    geom.BB
	stamp uint64

	prev *hashEntry[T]
	next *hashEntry[T]
}

// SpatialHash is a uniform grid hashed into a power of two table of cells.
// It suits scenes of many objects of similar size; the table is rebuilt on every ReindexQuery.
type SpatialHash[T comparable] struct {
	indexBase[T]

	cellSize float64
	cells    [][]*hashEntry[T]
	cellMask int

	entries map[uint64]*hashEntry[T]
	head    *hashEntry[T]
	tail    *hashEntry[T]

	// stamp marks the entries already visited by the current query
	stamp uint64
}

// NewSpatialHash creates a spatial hash of numCells cells (rounded up to a power of two) of side cellSize.
func NewSpatialHash[T comparable](cellSize float64, numCells int, bbfunc BBFunc[T], static SpatialIndex[T]) *SpatialHash[T] {
	hash := &SpatialHash[T]{
		entries: make(map[uint64]*hashEntry[T]),
	}
	hash.setup(bbfunc, static, hash)
	hash.Resize(cellSize, numCells)

	return hash
}

// nextPowerOfTwo rounds n up to the next power of two.
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}

// Resize changes the cell size and the table size, then rehashes every object.
func (h *SpatialHash[T]) Resize(cellSize float64, numCells int) {
	numCells = nextPowerOfTwo(numCells)

	h.cellSize = cellSize
	h.cells = make([][]*hashEntry[T], numCells)
	for i := range h.cells {
		h.cells[i] = make([]*hashEntry[T], 0, 8)
	}
	h.cellMask = numCells - 1

	for e := h.head; e != nil; e = e.next {
		h.insertCells(e)
	}
}

func (h *SpatialHash[T]) Count() int {
	return len(h.entries)
}

func (h *SpatialHash[T]) Each(fn func(obj T)) {
	for e := h.head; e != nil; e = e.next {
		fn(e.obj)
	}
}

func (h *SpatialHash[T]) Contains(obj T, hash uint64) bool {
	e, ok := h.entries[hash]
	return ok && e.obj == obj
}

func (h *SpatialHash[T]) Insert(obj T, hash uint64) error {
	if _, ok := h.entries[hash]; ok {
		return ErrDuplicate
	}

	e := &hashEntry[T]{obj: obj, hash: hash, bb: h.bbfunc(obj)}
	h.entries[hash] = e

	e.prev = h.tail
	if h.tail != nil {
		h.tail.next = e
	} else {
		h.head = e
	}
	h.tail = e

	h.insertCells(e)
	return nil
}

func (h *SpatialHash[T]) Remove(obj T, hash uint64) error {
	e, ok := h.entries[hash]
	if !ok || e.obj != obj {
		return ErrNotFound
	}

	h.removeCells(e)
	delete(h.entries, hash)

	if e.prev != nil {
		e.prev.next = e.next
	} else {
		h.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		h.tail = e.prev
	}

	return nil
}

func (h *SpatialHash[T]) Reindex() {
	h.clearCells()
	for e := h.head; e != nil; e = e.next {
		e.bb = h.bbfunc(e.obj)
		h.insertCells(e)
	}
}

func (h *SpatialHash[T]) ReindexObject(obj T, hash uint64) {
	e, ok := h.entries[hash]
	if !ok || e.obj != obj {
		return
	}

	h.removeCells(e)
	e.bb = h.bbfunc(obj)
	h.insertCells(e)
}

// ReindexQuery rebuilds the table. Each entry is matched against the entries hashed before it,
// so a pair is reported once, in insertion order.
func (h *SpatialHash[T]) ReindexQuery(fn PairFunc[T]) {
	h.clearCells()

	for e := h.head; e != nil; e = e.next {
		e.bb = h.bbfunc(e.obj)
		h.stamp++
		e.stamp = h.stamp

		h.eachCell(e.bb, func(idx int) {
			for _, other := range h.cells[idx] {
				if other.stamp == h.stamp {
					continue
				}
				other.stamp = h.stamp

				if e.bb.Intersects(other.bb) {
					fn(other.obj, e.obj, 0)
				}
			}
			h.cells[idx] = append(h.cells[idx], e)
		})
	}

	collideStatic[T](h, h.bbfunc, h.static, fn)
}

func (h *SpatialHash[T]) Query(bb geom.BB, fn QueryFunc[T]) {
	h.stamp++

	h.eachCell(bb, func(idx int) {
		for _, e := range h.cells[idx] {
			if e.stamp == h.stamp {
				continue
			}
			e.stamp = h.stamp

			if e.bb.Intersects(bb) {
				fn(e.obj)
			}
		}
	})
}

// SegmentQuery walks the cells crossed by a->b in order.
func (h *SpatialHash[T]) SegmentQuery(a, b mgl64.Vec2, tExit float64, fn SegmentQueryFunc[T]) {
	h.stamp++

	a = a.Mul(1 / h.cellSize)
	b = b.Mul(1 / h.cellSize)

	cellX, cellY := int(math.Floor(a[0])), int(math.Floor(a[1]))

	var incX, incY int
	var tempH, tempV float64
	if b[0] > a[0] {
		incX, tempH = 1, math.Floor(a[0]+1)-a[0]
	} else {
		incX, tempH = -1, a[0]-math.Floor(a[0])
	}
	if b[1] > a[1] {
		incY, tempV = 1, math.Floor(a[1]+1)-a[1]
	} else {
		incY, tempV = -1, a[1]-math.Floor(a[1])
	}

	dx, dy := math.Abs(b[0]-a[0]), math.Abs(b[1]-a[1])
	dtdx, dtdy := math.Inf(1), math.Inf(1)
	if dx != 0 {
		dtdx = 1 / dx
	}
	if dy != 0 {
		dtdy = 1 / dy
	}

	// 0 * Inf would be NaN for axis aligned segments
	nextH, nextV := dtdx, dtdy
	if tempH != 0 {
		nextH = tempH * dtdx
	}
	if tempV != 0 {
		nextV = tempV * dtdy
	}

	for t := 0.0; t < tExit; {
		tExit = math.Min(tExit, h.segmentQueryCell(h.hashCell(cellKey{cellX, cellY}), fn))

		if nextV < nextH {
			cellY += incY
			t = nextV
			nextV += dtdy
		} else {
			cellX += incX
			t = nextH
			nextH += dtdx
		}
	}
}

func (h *SpatialHash[T]) segmentQueryCell(idx int, fn SegmentQueryFunc[T]) float64 {
	t := 1.0
	for _, e := range h.cells[idx] {
		if e.stamp == h.stamp {
			continue
		}
		e.stamp = h.stamp
		t = math.Min(t, fn(e.obj))
	}
	return t
}

// worldToCell converts a world position to cell coordinates.
func (h *SpatialHash[T]) worldToCell(pos mgl64.Vec2) cellKey {
	return cellKey{
		X: int(math.Floor(pos[0] / h.cellSize)),
		Y: int(math.Floor(pos[1] / h.cellSize)),
	}
}

// hashCell maps a cell to its slot in the table.
func (h *SpatialHash[T]) hashCell(key cellKey) int {
	return ((key.X * 73856093) ^ (key.Y * 19349663)) & h.cellMask
}

// eachCell calls fn with the slot of every cell covered by bb.
// A box spanning more cells than the table holds visits every slot once instead.
func (h *SpatialHash[T]) eachCell(bb geom.BB, fn func(idx int)) {
	minCell := h.worldToCell(mgl64.Vec2{bb.L, bb.B})
	maxCell := h.worldToCell(mgl64.Vec2{bb.R, bb.T})

	width, height := maxCell.X-minCell.X+1, maxCell.Y-minCell.Y+1
	if width <= 0 || height <= 0 {
		return
	}
	if width > len(h.cells) || height > len(h.cells) || width*height > len(h.cells) {
		for idx := range h.cells {
			fn(idx)
		}
		return
	}

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			fn(h.hashCell(cellKey{x, y}))
		}
	}
}

func (h *SpatialHash[T]) insertCells(e *hashEntry[T]) {
	h.eachCell(e.bb, func(idx int) {
		if !slices.Contains(h.cells[idx], e) {
			h.cells[idx] = append(h.cells[idx], e)
		}
	})
}

func (h *SpatialHash[T]) removeCells(e *hashEntry[T]) {
	h.eachCell(e.bb, func(idx int) {
		h.cells[idx] = slices.DeleteFunc(h.cells[idx], func(other *hashEntry[T]) bool {
			return other == e
		})
	})
}

func (h *SpatialHash[T]) clearCells() {
	for i := range h.cells {
		clear(h.cells[i])
		h.cells[i] = h.cells[i][:0]
	}
}
