package index

import (
	"math"
	"slices"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// fatCoef is the fraction of a box extent (and of the velocity) added around a leaf.
const fatCoef = 0.1

type node[T comparable] struct {
	bb     geom.BB
	parent *node[T]

	// internal nodes
	a, b *node[T]

	// leaves
	obj      T
	hash     uint64
	stamp    uint64
	pairs    *pair[T]
	prevLeaf *node[T]
	nextLeaf *node[T]
}

func (n *node[T]) isLeaf() bool {
	return n.a == nil
}

func (n *node[T]) setA(value *node[T]) {
	n.a = value
	value.parent = n
}

func (n *node[T]) setB(value *node[T]) {
	n.b = value
	value.parent = n
}

func (n *node[T]) other(child *node[T]) *node[T] {
	if n.a == child {
		return n.b
	}
	return n.a
}

// A pair is threaded into the pair lists of both its leaves.
type thread[T comparable] struct {
	prev *pair[T]
	leaf *node[T]
	next *pair[T]
}

type pair[T comparable] struct {
	a, b thread[T]
	id   uint32
}

func (t thread[T]) unlink() {
	next, prev := t.next, t.prev

	if next != nil {
		if next.a.leaf == t.leaf {
			next.a.prev = prev
		} else {
			next.b.prev = prev
		}
	}

	if prev != nil {
		if prev.a.leaf == t.leaf {
			prev.a.next = next
		} else {
			prev.b.next = next
		}
	} else {
		t.leaf.pairs = next
	}
}

// BBTree is a dynamic AABB tree.
// Leaves store a fattened box; an object is only reinserted once its box leaves the fattened one.
type BBTree[T comparable] struct {
	indexBase[T]
	velocityFunc VelocityFunc[T]

	leaves map[uint64]*node[T]
	head   *node[T]
	tail   *node[T]
	root   *node[T]

	nodePool []*node[T]
	pairPool []*pair[T]

	stamp uint64
}

// NewBBTree creates a tree. When static is not nil, it is bound to the new tree:
// ReindexQuery will also report the pairs between the two indexes.
func NewBBTree[T comparable](bbfunc BBFunc[T], static SpatialIndex[T]) *BBTree[T] {
	tree := &BBTree[T]{
		leaves: make(map[uint64]*node[T]),
	}
	tree.setup(bbfunc, static, tree)

	return tree
}

// SetVelocityFunc enables fattening the leaves along the velocity of their objects.
func (tree *BBTree[T]) SetVelocityFunc(fn VelocityFunc[T]) {
	tree.velocityFunc = fn
}

func (tree *BBTree[T]) Count() int {
	return len(tree.leaves)
}

func (tree *BBTree[T]) Each(fn func(obj T)) {
	for leaf := tree.head; leaf != nil; leaf = leaf.nextLeaf {
		fn(leaf.obj)
	}
}

func (tree *BBTree[T]) Contains(obj T, hash uint64) bool {
	leaf, ok := tree.leaves[hash]
	return ok && leaf.obj == obj
}

func (tree *BBTree[T]) Insert(obj T, hash uint64) error {
	if _, ok := tree.leaves[hash]; ok {
		return ErrDuplicate
	}

	leaf := tree.newNode()
	leaf.obj = obj
	leaf.hash = hash
	leaf.bb = tree.getBB(obj)

	tree.leaves[hash] = leaf
	tree.linkLeaf(leaf)

	tree.root = tree.subtreeInsert(tree.root, leaf)
	leaf.stamp = tree.masterTree().stamp
	tree.leafAddPairs(leaf)
	tree.incrementStamp()

	return nil
}

func (tree *BBTree[T]) Remove(obj T, hash uint64) error {
	leaf, ok := tree.leaves[hash]
	if !ok || leaf.obj != obj {
		return ErrNotFound
	}

	delete(tree.leaves, hash)
	tree.unlinkLeaf(leaf)

	tree.root = tree.subtreeRemove(tree.root, leaf)
	tree.pairsClear(leaf)
	tree.recycleNode(leaf)

	return nil
}

func (tree *BBTree[T]) Reindex() {
	for leaf := tree.head; leaf != nil; leaf = leaf.nextLeaf {
		if tree.leafUpdate(leaf) {
			tree.leafAddPairs(leaf)
		}
	}
	tree.incrementStamp()
}

func (tree *BBTree[T]) ReindexObject(obj T, hash uint64) {
	leaf, ok := tree.leaves[hash]
	if !ok || leaf.obj != obj {
		return
	}

	if tree.leafUpdate(leaf) {
		tree.leafAddPairs(leaf)
	}
	tree.incrementStamp()
}

func (tree *BBTree[T]) ReindexQuery(fn PairFunc[T]) {
	if tree.root == nil {
		return
	}

	// leafUpdate may change the root, don't cache it
	for leaf := tree.head; leaf != nil; leaf = leaf.nextLeaf {
		tree.leafUpdate(leaf)
	}

	staticTree, staticIsTree := tree.static.(*BBTree[T])
	var staticRoot *node[T]
	if staticIsTree {
		staticRoot = staticTree.root
	}

	ctx := markContext[T]{tree: tree, staticRoot: staticRoot, fn: fn}
	ctx.markSubtree(tree.root)

	if tree.static != nil && !staticIsTree {
		collideStatic[T](tree, tree.bbfunc, tree.static, fn)
	}

	tree.incrementStamp()
}

func (tree *BBTree[T]) Query(bb geom.BB, fn QueryFunc[T]) {
	if tree.root != nil {
		subtreeQuery(tree.root, bb, fn)
	}
}

func (tree *BBTree[T]) SegmentQuery(a, b mgl64.Vec2, tExit float64, fn SegmentQueryFunc[T]) {
	if tree.root != nil {
		subtreeSegmentQuery(tree.root, a, b, tExit, fn)
	}
}

// Optimize rebuilds the tree top-down, splitting the leaves on the longest axis of their bounds.
// Useful after inserting many static objects at once.
func (tree *BBTree[T]) Optimize() {
	if tree.root == nil {
		return
	}

	nodes := make([]*node[T], 0, tree.Count())
	for leaf := tree.head; leaf != nil; leaf = leaf.nextLeaf {
		nodes = append(nodes, leaf)
	}

	tree.subtreeRecycle(tree.root)
	tree.root = tree.partitionNodes(nodes)
	tree.root.parent = nil
}

// masterTree is the tree owning the stamp: the bound dynamic tree for a static tree, itself otherwise.
func (tree *BBTree[T]) masterTree() *BBTree[T] {
	if dynamicTree, ok := tree.dynamic.(*BBTree[T]); ok {
		return dynamicTree
	}
	return tree
}

func (tree *BBTree[T]) incrementStamp() {
	tree.masterTree().stamp++
}

func (tree *BBTree[T]) getBB(obj T) geom.BB {
	bb := tree.bbfunc(obj)
	if tree.velocityFunc == nil {
		return bb
	}

	x := (bb.R - bb.L) * fatCoef
	y := (bb.T - bb.B) * fatCoef
	v := tree.velocityFunc(obj).Mul(fatCoef)

	return geom.NewBB(
		bb.L+math.Min(-x, v[0]),
		bb.B+math.Min(-y, v[1]),
		bb.R+math.Max(x, v[0]),
		bb.T+math.Max(y, v[1]),
	)
}

// ============================================================================
// Nodes
// ============================================================================

func (tree *BBTree[T]) newNode() *node[T] {
	if n := len(tree.nodePool); n > 0 {
		node := tree.nodePool[n-1]
		tree.nodePool = tree.nodePool[:n-1]
		return node
	}
	return &node[T]{}
}

func (tree *BBTree[T]) newInternal(a, b *node[T]) *node[T] {
	n := tree.newNode()
	n.bb = a.bb.Merge(b.bb)
	n.setA(a)
	n.setB(b)
	return n
}

func (tree *BBTree[T]) recycleNode(n *node[T]) {
	*n = node[T]{}
	tree.nodePool = append(tree.nodePool, n)
}

func (tree *BBTree[T]) subtreeRecycle(n *node[T]) {
	if n.isLeaf() {
		return
	}
	tree.subtreeRecycle(n.a)
	tree.subtreeRecycle(n.b)
	tree.recycleNode(n)
}

func (tree *BBTree[T]) linkLeaf(leaf *node[T]) {
	leaf.prevLeaf = tree.tail
	if tree.tail != nil {
		tree.tail.nextLeaf = leaf
	} else {
		tree.head = leaf
	}
	tree.tail = leaf
}

func (tree *BBTree[T]) unlinkLeaf(leaf *node[T]) {
	if leaf.prevLeaf != nil {
		leaf.prevLeaf.nextLeaf = leaf.nextLeaf
	} else {
		tree.head = leaf.nextLeaf
	}
	if leaf.nextLeaf != nil {
		leaf.nextLeaf.prevLeaf = leaf.prevLeaf
	} else {
		tree.tail = leaf.prevLeaf
	}
	leaf.prevLeaf, leaf.nextLeaf = nil, nil
}

// subtreeInsert descends towards the child whose area grows the least, proximity breaking ties.
func (tree *BBTree[T]) subtreeInsert(subtree, leaf *node[T]) *node[T] {
	if subtree == nil {
		return leaf
	}
	if subtree.isLeaf() {
		return tree.newInternal(leaf, subtree)
	}

	costA := subtree.b.bb.Area() + subtree.a.bb.MergedArea(leaf.bb)
	costB := subtree.a.bb.Area() + subtree.b.bb.MergedArea(leaf.bb)

	if costA == costB {
		costA = subtree.a.bb.Proximity(leaf.bb)
		costB = subtree.b.bb.Proximity(leaf.bb)
	}

	if costB < costA {
		subtree.setB(tree.subtreeInsert(subtree.b, leaf))
	} else {
		subtree.setA(tree.subtreeInsert(subtree.a, leaf))
	}

	subtree.bb = subtree.bb.Merge(leaf.bb)
	return subtree
}

// subtreeRemove detaches leaf, its sibling takes the place of their parent.
func (tree *BBTree[T]) subtreeRemove(subtree, leaf *node[T]) *node[T] {
	if leaf == subtree {
		return nil
	}

	parent := leaf.parent
	leaf.parent = nil

	if parent == subtree {
		other := subtree.other(leaf)
		other.parent = subtree.parent
		tree.recycleNode(subtree)
		return other
	}

	tree.replaceChild(parent.parent, parent, parent.other(leaf))
	return subtree
}

func (tree *BBTree[T]) replaceChild(parent, child, value *node[T]) {
	if parent.a == child {
		tree.recycleNode(parent.a)
		parent.setA(value)
	} else {
		tree.recycleNode(parent.b)
		parent.setB(value)
	}

	for n := parent; n != nil; n = n.parent {
		n.bb = n.a.bb.Merge(n.b.bb)
	}
}

func (tree *BBTree[T]) partitionNodes(nodes []*node[T]) *node[T] {
	count := len(nodes)
	switch count {
	case 1:
		return nodes[0]
	case 2:
		return tree.newInternal(nodes[0], nodes[1])
	}

	bb := nodes[0].bb
	for _, n := range nodes[1:] {
		bb = bb.Merge(n.bb)
	}

	splitWidth := bb.R-bb.L > bb.T-bb.B

	bounds := make([]float64, 0, count*2)
	for _, n := range nodes {
		if splitWidth {
			bounds = append(bounds, n.bb.L, n.bb.R)
		} else {
			bounds = append(bounds, n.bb.B, n.bb.T)
		}
	}
	slices.Sort(bounds)
	split := (bounds[count-1] + bounds[count]) * 0.5

	a, b := bb, bb
	if splitWidth {
		a.R, b.L = split, split
	} else {
		a.T, b.B = split, split
	}

	right := count
	for left := 0; left < right; {
		n := nodes[left]
		if n.bb.MergedArea(b) < n.bb.MergedArea(a) {
			right--
			nodes[left], nodes[right] = nodes[right], n
		} else {
			left++
		}
	}

	if right == 0 || right == count {
		// every leaf landed on one side, fall back to incremental insertion
		var root *node[T]
		for _, n := range nodes {
			n.parent = nil
			root = tree.subtreeInsert(root, n)
		}
		return root
	}

	return tree.newInternal(tree.partitionNodes(nodes[:right]), tree.partitionNodes(nodes[right:]))
}

// leafUpdate reinserts leaf when its object escaped the fattened box. It reports whether it moved.
func (tree *BBTree[T]) leafUpdate(leaf *node[T]) bool {
	bb := tree.bbfunc(leaf.obj)
	if leaf.bb.Contains(bb) {
		return false
	}

	leaf.bb = tree.getBB(leaf.obj)

	root := tree.subtreeRemove(tree.root, leaf)
	tree.root = tree.subtreeInsert(root, leaf)

	tree.pairsClear(leaf)
	leaf.stamp = tree.masterTree().stamp

	return true
}

// ============================================================================
// Pairs
// ============================================================================

func (tree *BBTree[T]) pairInsert(a, b *node[T]) {
	nextA, nextB := a.pairs, b.pairs

	var p *pair[T]
	if n := len(tree.pairPool); n > 0 {
		p = tree.pairPool[n-1]
		tree.pairPool = tree.pairPool[:n-1]
	} else {
		p = &pair[T]{}
	}

	*p = pair[T]{
		a: thread[T]{leaf: a, next: nextA},
		b: thread[T]{leaf: b, next: nextB},
	}
	a.pairs, b.pairs = p, p

	if nextA != nil {
		if nextA.a.leaf == a {
			nextA.a.prev = p
		} else {
			nextA.b.prev = p
		}
	}

	if nextB != nil {
		if nextB.a.leaf == b {
			nextB.a.prev = p
		} else {
			nextB.b.prev = p
		}
	}
}

func (tree *BBTree[T]) pairsClear(leaf *node[T]) {
	p := leaf.pairs
	leaf.pairs = nil

	for p != nil {
		var next *pair[T]
		if p.a.leaf == leaf {
			next = p.a.next
			p.b.unlink()
		} else {
			next = p.b.next
			p.a.unlink()
		}

		*p = pair[T]{}
		tree.pairPool = append(tree.pairPool, p)
		p = next
	}
}

// leafAddPairs caches the pairs of a freshly inserted or moved leaf.
// A static leaf is matched against the bound dynamic tree.
func (tree *BBTree[T]) leafAddPairs(leaf *node[T]) {
	if tree.dynamic != nil {
		if dynamicTree, ok := tree.dynamic.(*BBTree[T]); ok && dynamicTree.root != nil {
			ctx := markContext[T]{tree: dynamicTree, fn: voidPairFunc[T]}
			ctx.markLeafQuery(dynamicTree.root, leaf, true)
		}
		return
	}

	var staticRoot *node[T]
	if staticTree, ok := tree.static.(*BBTree[T]); ok {
		staticRoot = staticTree.root
	}

	ctx := markContext[T]{tree: tree, staticRoot: staticRoot, fn: voidPairFunc[T]}
	ctx.markLeaf(leaf)
}

type markContext[T comparable] struct {
	tree       *BBTree[T]
	staticRoot *node[T]
	fn         PairFunc[T]
}

func (ctx *markContext[T]) markSubtree(subtree *node[T]) {
	if subtree.isLeaf() {
		ctx.markLeaf(subtree)
		return
	}
	ctx.markSubtree(subtree.a)
	ctx.markSubtree(subtree.b)
}

// markLeaf finds the pairs of a leaf moved during this stamp, or replays the cached pairs of an unmoved one.
func (ctx *markContext[T]) markLeaf(leaf *node[T]) {
	if leaf.stamp == ctx.tree.masterTree().stamp {
		if ctx.staticRoot != nil {
			ctx.markLeafQuery(ctx.staticRoot, leaf, false)
		}

		for n := leaf; n.parent != nil; n = n.parent {
			if n == n.parent.a {
				ctx.markLeafQuery(n.parent.b, leaf, true)
			} else {
				ctx.markLeafQuery(n.parent.a, leaf, false)
			}
		}
		return
	}

	for p := leaf.pairs; p != nil; {
		if leaf == p.b.leaf {
			p.id = ctx.fn(p.a.leaf.obj, leaf.obj, p.id)
			p = p.b.next
		} else {
			p = p.a.next
		}
	}
}

func (ctx *markContext[T]) markLeafQuery(subtree, leaf *node[T], left bool) {
	if !leaf.bb.Intersects(subtree.bb) {
		return
	}

	if !subtree.isLeaf() {
		ctx.markLeafQuery(subtree.a, leaf, left)
		ctx.markLeafQuery(subtree.b, leaf, left)
		return
	}

	if left {
		ctx.tree.pairInsert(leaf, subtree)
		return
	}

	if subtree.stamp < leaf.stamp {
		ctx.tree.pairInsert(subtree, leaf)
	}
	ctx.fn(leaf.obj, subtree.obj, 0)
}

// ============================================================================
// Queries
// ============================================================================

func subtreeQuery[T comparable](subtree *node[T], bb geom.BB, fn QueryFunc[T]) {
	if !subtree.bb.Intersects(bb) {
		return
	}

	if subtree.isLeaf() {
		fn(subtree.obj)
		return
	}
	subtreeQuery(subtree.a, bb, fn)
	subtreeQuery(subtree.b, bb, fn)
}

func subtreeSegmentQuery[T comparable](subtree *node[T], a, b mgl64.Vec2, tExit float64, fn SegmentQueryFunc[T]) float64 {
	if subtree.isLeaf() {
		return fn(subtree.obj)
	}

	first, second := subtree.a, subtree.b
	tFirst := first.bb.SegmentQuery(a, b)
	tSecond := second.bb.SegmentQuery(a, b)
	if tSecond <= tFirst {
		first, second = second, first
		tFirst, tSecond = tSecond, tFirst
	}

	if tFirst < tExit {
		tExit = math.Min(tExit, subtreeSegmentQuery(first, a, b, tExit, fn))
	}
	if tSecond < tExit {
		tExit = math.Min(tExit, subtreeSegmentQuery(second, a, b, tExit, fn))
	}

	return tExit
}
