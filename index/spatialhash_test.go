package index

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

func TestWorldToCell(t *testing.T) {
	grid := NewSpatialHash(1.0, 16, testBB, nil)

	tests := []struct {
		name     string
		position mgl64.Vec2
		expected cellKey
	}{
		{"origin", mgl64.Vec2{0, 0}, cellKey{0, 0}},
		{"positive", mgl64.Vec2{1.5, 2.3}, cellKey{1, 2}},
		{"negative", mgl64.Vec2{-1.5, -2.3}, cellKey{-2, -3}},
		{"fractional", mgl64.Vec2{0.5, 0.5}, cellKey{0, 0}},
		{"large", mgl64.Vec2{100.7, -200.3}, cellKey{100, -201}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := grid.worldToCell(tt.position)
			if result != tt.expected {
				t.Errorf("worldToCell(%v) = %v, want %v", tt.position, result, tt.expected)
			}
		})
	}
}

func TestHashCell(t *testing.T) {
	grid := NewSpatialHash(1.0, 16, testBB, nil) // 16 cells, mask = 15

	tests := []struct {
		name     string
		key      cellKey
		expected int
	}{
		{"origin", cellKey{0, 0}, 0},
		{"simple", cellKey{1, 2}, 3},
		{"negative", cellKey{-1, -2}, 1},
		{"large", cellKey{100, 200}, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := grid.hashCell(tt.key)
			if result < 0 || result >= len(grid.cells) {
				t.Errorf("hashCell(%v) = %d, out of range [0, %d)", tt.key, result, len(grid.cells))
			}
			if result != tt.expected {
				t.Errorf("hashCell(%v) = %d, want %d", tt.key, result, tt.expected)
			}
		})
	}
}

func TestHashCellDistribution(t *testing.T) {
	grid := NewSpatialHash(1.0, 1024, testBB, nil)

	cellCounts := make(map[int]int)
	for x := -200; x <= 200; x++ {
		for y := -200; y <= 200; y++ {
			cellCounts[grid.hashCell(cellKey{x, y})]++
		}
	}

	minCount := int(^uint(0) >> 1)
	maxCount := 0
	for _, count := range cellCounts {
		minCount = min(minCount, count)
		maxCount = max(maxCount, count)
	}

	t.Logf("Hash distribution: min=%d, max=%d, avg=%.1f", minCount, maxCount, float64(401*401)/float64(len(cellCounts)))

	if len(cellCounts) < 512 {
		t.Errorf("only %d of 1024 cells are used", len(cellCounts))
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct{ in, expected int }{
		{0, 1}, {1, 1}, {3, 4}, {16, 16}, {17, 32}, {1000, 1024},
	}

	for _, tt := range tests {
		if got := nextPowerOfTwo(tt.in); got != tt.expected {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", tt.in, got, tt.expected)
		}
	}
}

func TestSpatialHash_InsertRemove(t *testing.T) {
	grid := NewSpatialHash(2.0, 64, testBB, nil)
	a := &testObject{id: 1, bb: geom.NewBB(0, 0, 1, 1)}

	if err := grid.Insert(a, 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := grid.Insert(a, 1); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate hash: got %v, want ErrDuplicate", err)
	}

	found := 0
	grid.Query(geom.NewBB(0.5, 0.5, 0.6, 0.6), func(*testObject) { found++ })
	if found != 1 {
		t.Errorf("Query found %d objects, want 1", found)
	}

	if err := grid.Remove(a, 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := grid.Remove(a, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove: got %v, want ErrNotFound", err)
	}

	found = 0
	grid.Query(geom.NewBB(0.5, 0.5, 0.6, 0.6), func(*testObject) { found++ })
	if found != 0 || grid.Count() != 0 {
		t.Errorf("removed object is still indexed")
	}
}

func TestSpatialHash_ReindexQueryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	static := NewSpatialHash(4.0, 256, testBB, nil)
	grid := NewSpatialHash(4.0, 256, testBB, static)

	var staticObjects []*testObject
	for i := 0; i < 20; i++ {
		obj := randomObject(rng, 1000+i)
		staticObjects = append(staticObjects, obj)
		_ = static.Insert(obj, uint64(obj.id))
	}

	var objects []*testObject
	for i := 0; i < 150; i++ {
		obj := randomObject(rng, i)
		objects = append(objects, obj)
		_ = grid.Insert(obj, uint64(i))
	}

	for step := 0; step < 10; step++ {
		for _, obj := range objects {
			obj.bb = obj.bb.Offset(mgl64.Vec2{rng.Float64()*2 - 1, rng.Float64()*2 - 1})
		}

		reported := collectPairs(t, grid)
		expected := bruteForcePairs(objects, staticObjects)

		if len(reported) != len(expected) {
			t.Fatalf("step %d: %d pairs reported, want %d", step, len(reported), len(expected))
		}
		for key := range expected {
			if !reported[key] {
				t.Fatalf("step %d: pair %v was not reported", step, key)
			}
		}
	}
}

func TestSpatialHash_DynamicTreeStaticHash(t *testing.T) {
	static := NewSpatialHash(4.0, 64, testBB, nil)
	tree := NewBBTree(testBB, static)

	ground := &testObject{id: 2, bb: geom.NewBB(-10, -1, 10, 0.5)}
	_ = static.Insert(ground, 2)
	ball := &testObject{id: 1, bb: geom.NewBB(0, 0, 1, 1)}
	_ = tree.Insert(ball, 1)

	if pairs := collectPairs(t, tree); len(pairs) != 1 || !pairs[pairKey{1, 2}] {
		t.Errorf("pairs = %v, want the ball/ground pair", pairs)
	}
}

func TestSpatialHash_SegmentQuery(t *testing.T) {
	grid := NewSpatialHash(1.0, 128, testBB, nil)
	near := &testObject{id: 1, bb: geom.NewBB(2, -0.5, 3, 0.5)}
	far := &testObject{id: 2, bb: geom.NewBB(7, -0.5, 8, 0.5)}
	off := &testObject{id: 3, bb: geom.NewBB(4, 5, 5, 6)}
	_ = grid.Insert(far, 2)
	_ = grid.Insert(near, 1)
	_ = grid.Insert(off, 3)

	a, b := mgl64.Vec2{0.5, 0}, mgl64.Vec2{10.5, 0}

	var visited []int
	grid.SegmentQuery(a, b, 1, func(obj *testObject) float64 {
		visited = append(visited, obj.id)
		return 1
	})
	if len(visited) != 2 || visited[0] != 1 || visited[1] != 2 {
		t.Errorf("visited = %v, want [1 2] in order", visited)
	}

	// the first hit shortens the walk
	visited = visited[:0]
	grid.SegmentQuery(a, b, 1, func(obj *testObject) float64 {
		visited = append(visited, obj.id)
		return obj.bb.SegmentQuery(a, b)
	})
	if len(visited) != 1 || visited[0] != 1 {
		t.Errorf("visited = %v, want [1]", visited)
	}
}

func TestSpatialHash_ResizeKeepsObjects(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	grid := NewSpatialHash(1.0, 16, testBB, nil)

	var objects []*testObject
	for i := 0; i < 50; i++ {
		obj := randomObject(rng, i)
		objects = append(objects, obj)
		_ = grid.Insert(obj, uint64(i))
	}

	grid.Resize(8.0, 512)

	for _, obj := range objects {
		found := false
		grid.Query(obj.bb, func(other *testObject) { found = found || other == obj })
		if !found {
			t.Fatalf("object %d lost after Resize", obj.id)
		}
	}
}
