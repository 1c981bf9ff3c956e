package geom

import "github.com/go-gl/mathgl/mgl64"

// ConvexHull returns the counter-clockwise convex hull of verts using QuickHull.
// Points closer than tol to a hull edge are dropped. first is the index, in verts,
// of the first hull vertex (the left-most, lowest one).
func ConvexHull(verts []mgl64.Vec2, tol float64) (hull []mgl64.Vec2, first int) {
	if len(verts) == 0 {
		return nil, 0
	}

	work := make([]mgl64.Vec2, len(verts))
	copy(work, verts)

	start, end := loopIndexes(work)
	if start == end {
		// every point is the same
		return []mgl64.Vec2{work[0]}, 0
	}

	work[0], work[start] = work[start], work[0]
	if end == 0 {
		end = start
	}
	work[1], work[end] = work[end], work[1]

	a, b := work[0], work[1]
	hull = make([]mgl64.Vec2, 0, len(verts))
	hull = append(hull, a)
	hull = qhullReduce(tol, work[2:], a, b, a, hull)

	return hull, start
}

// loopIndexes finds the indexes of the left-most (then lowest) and right-most (then highest) points.
func loopIndexes(verts []mgl64.Vec2) (start, end int) {
	lo, hi := verts[0], verts[0]
	for i, v := range verts[1:] {
		if v[0] < lo[0] || (v[0] == lo[0] && v[1] < lo[1]) {
			lo = v
			start = i + 1
		} else if v[0] > hi[0] || (v[0] == hi[0] && v[1] > hi[1]) {
			hi = v
			end = i + 1
		}
	}
	return start, end
}

// qhullPartition moves the points strictly right of a->b to the front of verts, the furthest one first,
// and returns how many there are.
func qhullPartition(verts []mgl64.Vec2, a, b mgl64.Vec2, tol float64) int {
	if len(verts) == 0 {
		return 0
	}

	maxValue := 0.0
	pivot := 0
	delta := b.Sub(a)
	valueTol := tol * delta.Len()

	head := 0
	for tail := len(verts) - 1; head <= tail; {
		value := Cross(verts[head].Sub(a), delta)
		if value > valueTol {
			if value > maxValue {
				maxValue = value
				pivot = head
			}
			head++
		} else {
			verts[head], verts[tail] = verts[tail], verts[head]
			tail--
		}
	}

	if pivot != 0 {
		verts[0], verts[pivot] = verts[pivot], verts[0]
	}
	return head
}

// qhullReduce appends the hull chain running from a (exclusive) through pivot to b (exclusive).
// verts holds the remaining candidates right of a->b.
func qhullReduce(tol float64, verts []mgl64.Vec2, a, pivot, b mgl64.Vec2, out []mgl64.Vec2) []mgl64.Vec2 {
	leftCount := qhullPartition(verts, a, pivot, tol)
	if leftCount > 0 {
		out = qhullReduce(tol, verts[1:leftCount], a, verts[0], pivot, out)
	}

	out = append(out, pivot)

	right := verts[leftCount:]
	rightCount := qhullPartition(right, pivot, b, tol)
	if rightCount > 0 {
		out = qhullReduce(tol, right[1:rightCount], pivot, right[0], b, out)
	}
	return out
}
