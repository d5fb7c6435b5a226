package broad

import (
	"github.com/akmonengine/impulse/actor"
)

const nullNode = -1

// node of the bounding volume hierarchy. Leaves hold a proxy index, internal
// nodes always have two children.
type node struct {
	aabb   actor.AABB
	parent int
	left   int
	right  int
	height int
	proxy  int
}

func (n *node) isLeaf() bool {
	return n.left == nullNode
}

// tree is a dynamic AABB tree balanced by rotations, with insertion guided by
// the surface area heuristic. Nodes live in a slab with a free list.
type tree struct {
	nodes []node
	free  []int
	root  int
}

func newTree() tree {
	return tree{root: nullNode}
}

func (t *tree) allocate() int {
	if n := len(t.free); n > 0 {
		index := t.free[n-1]
		t.free = t.free[:n-1]
		t.nodes[index] = node{parent: nullNode, left: nullNode, right: nullNode, proxy: -1}
		return index
	}
	t.nodes = append(t.nodes, node{parent: nullNode, left: nullNode, right: nullNode, proxy: -1})
	return len(t.nodes) - 1
}

func (t *tree) release(index int) {
	t.nodes[index] = node{parent: nullNode, left: nullNode, right: nullNode, proxy: -1, height: -1}
	t.free = append(t.free, index)
}

// insert creates a leaf for proxy with the given fat AABB
func (t *tree) insert(proxy int, aabb actor.AABB) int {
	leaf := t.allocate()
	t.nodes[leaf].aabb = aabb
	t.nodes[leaf].proxy = proxy
	t.insertLeaf(leaf)
	return leaf
}

func (t *tree) remove(leaf int) {
	t.removeLeaf(leaf)
	t.release(leaf)
}

// move replaces the AABB of a leaf, re-inserting it
func (t *tree) move(leaf int, aabb actor.AABB) {
	t.removeLeaf(leaf)
	t.nodes[leaf].aabb = aabb
	t.insertLeaf(leaf)
}

func (t *tree) insertLeaf(leaf int) {
	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	// ========== Find the best sibling ==========
	leafAABB := t.nodes[leaf].aabb
	index := t.root
	for !t.nodes[index].isLeaf() {
		left := t.nodes[index].left
		right := t.nodes[index].right

		area := t.nodes[index].aabb.SurfaceArea()
		combinedArea := t.nodes[index].aabb.Merge(leafAABB).SurfaceArea()

		// Cost of creating a new parent for this node and the new leaf
		cost := 2 * combinedArea
		// Minimum cost of pushing the leaf further down the tree
		inheritanceCost := 2 * (combinedArea - area)

		costLeft := t.descendCost(left, leafAABB) + inheritanceCost
		costRight := t.descendCost(right, leafAABB) + inheritanceCost

		if cost < costLeft && cost < costRight {
			break
		}

		if costLeft < costRight {
			index = left
		} else {
			index = right
		}
	}
	sibling := index

	// ========== Create a new parent ==========
	oldParent := t.nodes[sibling].parent
	newParent := t.allocate()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].aabb = leafAABB.Merge(t.nodes[sibling].aabb)
	t.nodes[newParent].height = t.nodes[sibling].height + 1

	if oldParent != nullNode {
		if t.nodes[oldParent].left == sibling {
			t.nodes[oldParent].left = newParent
		} else {
			t.nodes[oldParent].right = newParent
		}
	} else {
		t.root = newParent
	}
	t.nodes[newParent].left = sibling
	t.nodes[newParent].right = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	t.refit(t.nodes[leaf].parent)
}

func (t *tree) descendCost(index int, aabb actor.AABB) float64 {
	merged := aabb.Merge(t.nodes[index].aabb).SurfaceArea()
	if t.nodes[index].isLeaf() {
		return merged
	}
	return merged - t.nodes[index].aabb.SurfaceArea()
}

func (t *tree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].left
	if sibling == leaf {
		sibling = t.nodes[parent].right
	}

	if grandParent != nullNode {
		if t.nodes[grandParent].left == parent {
			t.nodes[grandParent].left = sibling
		} else {
			t.nodes[grandParent].right = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.release(parent)
		t.refit(grandParent)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.release(parent)
	}
	t.nodes[leaf].parent = nullNode
}

// refit walks back to the root, fixing heights and AABBs and rebalancing
func (t *tree) refit(index int) {
	for index != nullNode {
		index = t.balance(index)

		left := t.nodes[index].left
		right := t.nodes[index].right
		t.nodes[index].height = 1 + max(t.nodes[left].height, t.nodes[right].height)
		t.nodes[index].aabb = t.nodes[left].aabb.Merge(t.nodes[right].aabb)

		index = t.nodes[index].parent
	}
}

// balance performs a left or right rotation if node a is imbalanced and
// returns the new root of the subtree.
func (t *tree) balance(a int) int {
	nodeA := &t.nodes[a]
	if nodeA.isLeaf() || nodeA.height < 2 {
		return a
	}

	b, c := nodeA.left, nodeA.right
	diff := t.nodes[c].height - t.nodes[b].height

	switch {
	case diff > 1:
		// Rotate c up
		f, g := t.nodes[c].left, t.nodes[c].right
		t.swapUp(a, c)

		if t.nodes[f].height > t.nodes[g].height {
			t.nodes[c].right = f
			t.nodes[a].right = g
			t.nodes[g].parent = a
			t.fix(a, b, g)
			t.fix(c, a, f)
		} else {
			t.nodes[c].right = g
			t.nodes[a].right = f
			t.nodes[f].parent = a
			t.fix(a, b, f)
			t.fix(c, a, g)
		}
		return c

	case diff < -1:
		// Rotate b up
		d, e := t.nodes[b].left, t.nodes[b].right
		t.swapUp(a, b)

		if t.nodes[d].height > t.nodes[e].height {
			t.nodes[b].right = d
			t.nodes[a].left = e
			t.nodes[e].parent = a
			t.fix(a, c, e)
			t.fix(b, a, d)
		} else {
			t.nodes[b].right = e
			t.nodes[a].left = d
			t.nodes[d].parent = a
			t.fix(a, c, d)
			t.fix(b, a, e)
		}
		return b
	}

	return a
}

// swapUp makes child take the place of its parent a, with a as its left child
func (t *tree) swapUp(a, child int) {
	t.nodes[child].left = a
	t.nodes[child].parent = t.nodes[a].parent
	t.nodes[a].parent = child

	if parent := t.nodes[child].parent; parent != nullNode {
		if t.nodes[parent].left == a {
			t.nodes[parent].left = child
		} else {
			t.nodes[parent].right = child
		}
	} else {
		t.root = child
	}
}

// fix recomputes the bounds of index from two of its children
func (t *tree) fix(index, x, y int) {
	t.nodes[index].aabb = t.nodes[x].aabb.Merge(t.nodes[y].aabb)
	t.nodes[index].height = 1 + max(t.nodes[x].height, t.nodes[y].height)
}

// query calls f for every leaf whose AABB overlaps aabb. stack is reused
// scratch space and is returned for the next call.
func (t *tree) query(aabb actor.AABB, stack []int, f func(leaf int)) []int {
	if t.root == nullNode {
		return stack
	}

	stack = append(stack[:0], t.root)
	for len(stack) > 0 {
		index := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[index]
		if !n.aabb.Overlaps(aabb) {
			continue
		}
		if n.isLeaf() {
			f(index)
			continue
		}
		// Right first so that the left subtree is visited first
		stack = append(stack, n.right, n.left)
	}
	return stack
}

// raycast visits the tree in pre-order and calls f for every leaf whose AABB
// the ray crosses.
func (t *tree) raycast(ray actor.Ray, stack []int, f func(leaf int)) []int {
	if t.root == nullNode {
		return stack
	}

	stack = append(stack[:0], t.root)
	for len(stack) > 0 {
		index := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[index]
		if _, hit := n.aabb.IntersectsRay(ray); !hit {
			continue
		}
		if n.isLeaf() {
			f(index)
			continue
		}
		stack = append(stack, n.right, n.left)
	}
	return stack
}
