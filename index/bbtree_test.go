package index

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

type testObject struct {
	id       int
	bb       geom.BB
	velocity mgl64.Vec2
}

func testBB(obj *testObject) geom.BB {
	return obj.bb
}

func randomObject(rng *rand.Rand, id int) *testObject {
	center := mgl64.Vec2{rng.Float64()*100 - 50, rng.Float64()*100 - 50}
	return &testObject{
		id: id,
		bb: geom.NewBBForExtents(center, 0.5+rng.Float64()*3, 0.5+rng.Float64()*3),
	}
}

type pairKey struct {
	a, b int
}

func newPairKey(a, b *testObject) pairKey {
	if a.id > b.id {
		a, b = b, a
	}
	return pairKey{a.id, b.id}
}

// checkTree walks the tree and verifies the parent links, the internal boxes and the leaf set.
func checkTree[T comparable](t *testing.T, tree *BBTree[T]) {
	t.Helper()

	leaves := 0
	var walk func(n *node[T])
	walk = func(n *node[T]) {
		if n.isLeaf() {
			leaves++
			if got, ok := tree.leaves[n.hash]; !ok || got != n {
				t.Fatalf("leaf %d is not registered", n.hash)
			}
			return
		}

		if n.a.parent != n || n.b.parent != n {
			t.Fatalf("broken parent link")
		}
		if !n.bb.Contains(n.a.bb) || !n.bb.Contains(n.b.bb) {
			t.Fatalf("internal box %v does not contain its children %v, %v", n.bb, n.a.bb, n.b.bb)
		}
		walk(n.a)
		walk(n.b)
	}

	if tree.root != nil {
		if tree.root.parent != nil {
			t.Fatalf("root has a parent")
		}
		walk(tree.root)
	}

	if leaves != tree.Count() {
		t.Fatalf("tree holds %d leaves, Count() = %d", leaves, tree.Count())
	}

	ordered := 0
	tree.Each(func(T) { ordered++ })
	if ordered != tree.Count() {
		t.Fatalf("Each visited %d objects, Count() = %d", ordered, tree.Count())
	}
}

func TestBBTree_InsertRemove(t *testing.T) {
	tree := NewBBTree(testBB, nil)
	a := &testObject{id: 1, bb: geom.NewBB(0, 0, 1, 1)}
	b := &testObject{id: 2, bb: geom.NewBB(5, 5, 6, 6)}

	if err := tree.Insert(a, 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tree.Insert(b, 2); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := tree.Insert(b, 1); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate hash: got %v, want ErrDuplicate", err)
	}
	if !tree.Contains(a, 1) || tree.Contains(b, 1) {
		t.Errorf("Contains should match both the object and the hash")
	}

	if err := tree.Remove(a, 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := tree.Remove(a, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove: got %v, want ErrNotFound", err)
	}

	if tree.Count() != 1 || tree.root.obj != b {
		t.Errorf("b should be the only leaf left")
	}
	checkTree(t, tree)
}

func TestBBTree_EachInsertionOrder(t *testing.T) {
	tree := NewBBTree(testBB, nil)
	rng := rand.New(rand.NewSource(1))

	objects := make([]*testObject, 20)
	for i := range objects {
		objects[i] = randomObject(rng, i)
		_ = tree.Insert(objects[i], uint64(i))
	}
	_ = tree.Remove(objects[5], 5)

	var ids []int
	tree.Each(func(obj *testObject) { ids = append(ids, obj.id) })

	expected := 0
	for _, id := range ids {
		if expected == 5 {
			expected++
		}
		if id != expected {
			t.Fatalf("Each order = %v", ids)
		}
		expected++
	}
}

func TestBBTree_RandomConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tree := NewBBTree(testBB, nil)

	live := make(map[uint64]*testObject)
	next := 0

	for step := 0; step < 2000; step++ {
		switch op := rng.Intn(10); {
		case op < 5 || len(live) == 0:
			obj := randomObject(rng, next)
			if err := tree.Insert(obj, uint64(next)); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			live[uint64(next)] = obj
			next++
		case op < 8:
			for hash, obj := range live {
				if err := tree.Remove(obj, hash); err != nil {
					t.Fatalf("Remove: %v", err)
				}
				delete(live, hash)
				break
			}
		default:
			for hash, obj := range live {
				obj.bb = obj.bb.Offset(mgl64.Vec2{rng.Float64()*10 - 5, rng.Float64()*10 - 5})
				tree.ReindexObject(obj, hash)
				break
			}
		}

		if step%100 == 0 {
			checkTree(t, tree)
		}
	}

	checkTree(t, tree)
	for hash, obj := range live {
		if !tree.Contains(obj, hash) {
			t.Fatalf("object %d is missing", obj.id)
		}
		if !tree.leaves[hash].bb.Contains(obj.bb) {
			t.Fatalf("leaf box does not contain object %d", obj.id)
		}
	}
}

// collectPairs runs one ReindexQuery and fails on pairs reported twice.
func collectPairs(t *testing.T, index SpatialIndex[*testObject]) map[pairKey]bool {
	t.Helper()

	pairs := make(map[pairKey]bool)
	index.ReindexQuery(func(a, b *testObject, id uint32) uint32 {
		key := newPairKey(a, b)
		if pairs[key] {
			t.Fatalf("pair %v reported twice", key)
		}
		pairs[key] = true
		return id
	})
	return pairs
}

func bruteForcePairs(objects []*testObject, static []*testObject) map[pairKey]bool {
	pairs := make(map[pairKey]bool)
	for i, a := range objects {
		for _, b := range objects[i+1:] {
			if a.bb.Intersects(b.bb) {
				pairs[newPairKey(a, b)] = true
			}
		}
		for _, b := range static {
			if a.bb.Intersects(b.bb) {
				pairs[newPairKey(a, b)] = true
			}
		}
	}
	return pairs
}

func TestBBTree_ReindexQueryReportsOverlaps(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	static := NewBBTree(testBB, nil)
	tree := NewBBTree(testBB, static)

	var staticObjects []*testObject
	for i := 0; i < 30; i++ {
		obj := randomObject(rng, 1000+i)
		staticObjects = append(staticObjects, obj)
		_ = static.Insert(obj, uint64(obj.id))
	}

	var objects []*testObject
	for i := 0; i < 100; i++ {
		obj := randomObject(rng, i)
		objects = append(objects, obj)
		_ = tree.Insert(obj, uint64(i))
	}

	for step := 0; step < 20; step++ {
		// move a few objects, the others stay and replay their cached pairs
		for _, obj := range objects {
			if rng.Intn(4) == 0 {
				obj.bb = obj.bb.Offset(mgl64.Vec2{rng.Float64()*4 - 2, rng.Float64()*4 - 2})
			}
		}

		reported := collectPairs(t, tree)
		for key := range bruteForcePairs(objects, staticObjects) {
			if !reported[key] {
				t.Fatalf("step %d: overlapping pair %v was not reported", step, key)
			}
		}

		// without fattening, a reported pair overlaps through the leaf boxes
		for key := range reported {
			if key.a >= 1000 && key.b >= 1000 {
				t.Fatalf("static pair %v reported", key)
			}
		}
	}
}

func TestBBTree_StaticInsertAfterDynamic(t *testing.T) {
	static := NewBBTree(testBB, nil)
	tree := NewBBTree(testBB, static)

	ball := &testObject{id: 1, bb: geom.NewBB(0, 0, 1, 1)}
	_ = tree.Insert(ball, 1)

	ground := &testObject{id: 2, bb: geom.NewBB(-10, -1, 10, 0.5)}
	_ = static.Insert(ground, 2)

	for i := 0; i < 3; i++ {
		if pairs := collectPairs(t, tree); !pairs[pairKey{1, 2}] || len(pairs) != 1 {
			t.Fatalf("iteration %d: pairs = %v, want the ball/ground pair only", i, pairs)
		}
	}

	_ = static.Remove(ground, 2)
	if pairs := collectPairs(t, tree); len(pairs) != 0 {
		t.Errorf("after removing the ground pairs = %v", pairs)
	}
}

func TestBBTree_CachedPairID(t *testing.T) {
	tree := NewBBTree(testBB, nil)
	a := &testObject{id: 1, bb: geom.NewBB(0, 0, 2, 2)}
	b := &testObject{id: 2, bb: geom.NewBB(1, 1, 3, 3)}
	_ = tree.Insert(a, 1)
	_ = tree.Insert(b, 2)

	var ids []uint32
	for i := 0; i < 3; i++ {
		tree.ReindexQuery(func(_, _ *testObject, id uint32) uint32 {
			ids = append(ids, id)
			return id + 7
		})
	}

	if len(ids) != 3 || ids[0] != 0 || ids[1] != 7 || ids[2] != 14 {
		t.Errorf("cached ids = %v, want [0 7 14]", ids)
	}
}

func TestBBTree_VelocityFattening(t *testing.T) {
	tree := NewBBTree(testBB, nil)
	tree.SetVelocityFunc(func(obj *testObject) mgl64.Vec2 { return obj.velocity })

	obj := &testObject{id: 1, bb: geom.NewBB(0, 0, 10, 10), velocity: mgl64.Vec2{50, 0}}
	_ = tree.Insert(obj, 1)

	leaf := tree.leaves[1].bb
	expected := geom.NewBB(-1, -1, 15, 11)
	if leaf != expected {
		t.Errorf("leaf box = %v, want %v", leaf, expected)
	}

	// a small move stays inside the fat box
	obj.bb = obj.bb.Offset(mgl64.Vec2{3, 0})
	if tree.leafUpdate(tree.leaves[1]) {
		t.Errorf("leaf should not move while inside its fat box")
	}

	obj.bb = obj.bb.Offset(mgl64.Vec2{3, 0})
	if !tree.leafUpdate(tree.leaves[1]) {
		t.Errorf("leaf should move once it escapes its fat box")
	}
}

func TestBBTree_Queries(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	tree := NewBBTree(testBB, nil)

	var objects []*testObject
	for i := 0; i < 200; i++ {
		obj := randomObject(rng, i)
		objects = append(objects, obj)
		_ = tree.Insert(obj, uint64(i))
	}

	query := geom.NewBB(-10, -10, 10, 10)
	found := make(map[int]bool)
	tree.Query(query, func(obj *testObject) { found[obj.id] = true })
	for _, obj := range objects {
		if obj.bb.Intersects(query) != found[obj.id] {
			t.Fatalf("Query mismatch for object %d", obj.id)
		}
	}

	a, b := mgl64.Vec2{-60, -40}, mgl64.Vec2{60, 45}
	hit := make(map[int]bool)
	tree.SegmentQuery(a, b, 1, func(obj *testObject) float64 {
		hit[obj.id] = true
		return 1
	})
	for _, obj := range objects {
		if obj.bb.SegmentQuery(a, b) < 1 && !hit[obj.id] {
			t.Fatalf("SegmentQuery missed object %d", obj.id)
		}
	}
}

func TestBBTree_SegmentQueryShrinks(t *testing.T) {
	tree := NewBBTree(testBB, nil)
	near := &testObject{id: 1, bb: geom.NewBB(1, -1, 2, 1)}
	far := &testObject{id: 2, bb: geom.NewBB(8, -1, 9, 1)}
	_ = tree.Insert(far, 2)
	_ = tree.Insert(near, 1)

	var visited []int
	tree.SegmentQuery(mgl64.Vec2{0, 0}, mgl64.Vec2{10, 0}, 1, func(obj *testObject) float64 {
		visited = append(visited, obj.id)
		return obj.bb.SegmentQuery(mgl64.Vec2{0, 0}, mgl64.Vec2{10, 0})
	})

	if len(visited) != 1 || visited[0] != 1 {
		t.Errorf("visited = %v, want only the near object", visited)
	}
}

func TestBBTree_Optimize(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	tree := NewBBTree(testBB, nil)

	var objects []*testObject
	for i := 0; i < 300; i++ {
		obj := randomObject(rng, i)
		objects = append(objects, obj)
		_ = tree.Insert(obj, uint64(i))
	}

	query := geom.NewBB(0, 0, 25, 25)
	before := 0
	tree.Query(query, func(*testObject) { before++ })

	tree.Optimize()
	checkTree(t, tree)

	after := 0
	tree.Query(query, func(*testObject) { after++ })
	if before != after {
		t.Errorf("Optimize changed the query result: %d -> %d", before, after)
	}

	// the tree keeps working after a rebuild
	_ = tree.Remove(objects[0], 0)
	_ = tree.Insert(randomObject(rng, 999), 999)
	checkTree(t, tree)
}
