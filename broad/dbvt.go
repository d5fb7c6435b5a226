// Package broad finds the pairs of bodies whose bounding boxes are close
// enough to need an exact collision test.
package broad

import (
	"github.com/akmonengine/impulse/actor"
)

// DefaultMargin inflates the leaf AABBs, so that small motions do not touch
// the tree.
const DefaultMargin = 0.08

// Dispatcher creates the per-pair state of the broad phase
type Dispatcher[D any] interface {
	// Dispatch builds the state of a new pair
	Dispatch(a, b actor.Body) D
	// IsValid filters pairs before any state is created
	IsValid(a, b actor.Body) bool
}

// Pair is an entry of the proximity cache. A and B are ordered by handle.
type Pair[D any] struct {
	A    actor.Body
	B    actor.Body
	Data D
}

type pairKey struct {
	a, b actor.Handle
}

func keyOf(a, b actor.Body) pairKey {
	a, b = actor.BodyPair(a, b)
	return pairKey{a.Handle(), b.Handle()}
}

// proxy binds a body to its leaf
type proxy struct {
	body   actor.Body
	leaf   int
	active bool
	moved  bool
}

// DBVT is a broad phase on a dynamic bounding volume tree. It keeps a cache of
// the pairs of bodies whose fat AABBs overlap, each pair carrying the state D
// built by the dispatcher.
type DBVT[D any] struct {
	dispatcher Dispatcher[D]
	margin     float64

	tree    tree
	proxies []proxy
	free    []int
	byBody  map[actor.Handle]int

	pairs     []*Pair[D]
	pairIndex map[pairKey]int

	stack []int
}

// NewDBVT creates an empty broad phase. margin <= 0 selects DefaultMargin.
func NewDBVT[D any](dispatcher Dispatcher[D], margin float64) *DBVT[D] {
	if margin <= 0 {
		margin = DefaultMargin
	}
	return &DBVT[D]{
		dispatcher: dispatcher,
		margin:     margin,
		tree:       newTree(),
		byBody:     make(map[actor.Handle]int),
		pairIndex:  make(map[pairKey]int),
	}
}

func (bf *DBVT[D]) Margin() float64 {
	return bf.margin
}

// Len returns the number of bodies in the tree
func (bf *DBVT[D]) Len() int {
	return len(bf.byBody)
}

func (bf *DBVT[D]) NumPairs() int {
	return len(bf.pairs)
}

func (bf *DBVT[D]) Contains(body actor.Body) bool {
	_, ok := bf.byBody[body.Handle()]
	return ok
}

// FatAABB returns the inflated box stored for body
func (bf *DBVT[D]) FatAABB(body actor.Body) (actor.AABB, bool) {
	index, ok := bf.byBody[body.Handle()]
	if !ok {
		return actor.AABB{}, false
	}
	return bf.tree.nodes[bf.proxies[index].leaf].aabb, true
}

// ============================================================================
// Add / Remove
// ============================================================================

// Add inserts body in the tree. Its pairs are created by the next Update.
// Adding a body twice is a no-op.
func (bf *DBVT[D]) Add(body actor.Body) {
	if bf.Contains(body) {
		return
	}

	p := proxy{body: body, active: body.IsActive(), moved: true}
	var index int
	if n := len(bf.free); n > 0 {
		index = bf.free[n-1]
		bf.free = bf.free[:n-1]
		bf.proxies[index] = p
	} else {
		index = len(bf.proxies)
		bf.proxies = append(bf.proxies, p)
	}

	bf.proxies[index].leaf = bf.tree.insert(index, body.AABB().Loosened(bf.margin))
	bf.byBody[body.Handle()] = index
}

// Remove takes body out of the tree and drops every pair it belongs to
func (bf *DBVT[D]) Remove(body actor.Body) {
	index, ok := bf.byBody[body.Handle()]
	if !ok {
		return
	}

	bf.tree.remove(bf.proxies[index].leaf)
	bf.proxies[index] = proxy{leaf: nullNode}
	bf.free = append(bf.free, index)
	delete(bf.byBody, body.Handle())

	bf.removePairs(func(p *Pair[D]) bool {
		return p.A == body || p.B == body
	})
}

// ============================================================================
// Update
// ============================================================================

// Update re-inserts the bodies whose AABB escaped their fat AABB, then
// refreshes the pair cache around them. Bodies that stayed inside their fat
// AABB cost a containment test.
func (bf *DBVT[D]) Update() {
	moved := false
	for i := range bf.proxies {
		p := &bf.proxies[i]
		if p.body == nil {
			continue
		}

		aabb := p.body.AABB()
		if !bf.tree.nodes[p.leaf].aabb.Contains(aabb) {
			bf.tree.move(p.leaf, aabb.Loosened(bf.margin))
			p.moved = true
		}
		moved = moved || p.moved
	}

	if !moved {
		return
	}

	// Pairs whose fat AABBs separated
	bf.removePairs(func(pair *Pair[D]) bool {
		pa := &bf.proxies[bf.byBody[pair.A.Handle()]]
		pb := &bf.proxies[bf.byBody[pair.B.Handle()]]
		if !pa.moved && !pb.moved {
			return false
		}
		return !bf.tree.nodes[pa.leaf].aabb.Overlaps(bf.tree.nodes[pb.leaf].aabb)
	})

	// New pairs around the moved proxies
	for i := range bf.proxies {
		p := &bf.proxies[i]
		if p.body == nil || !p.moved {
			continue
		}

		body := p.body
		fat := bf.tree.nodes[p.leaf].aabb
		bf.stack = bf.tree.query(fat, bf.stack, func(leaf int) {
			other := bf.proxies[bf.tree.nodes[leaf].proxy].body
			if other == body {
				return
			}
			bf.addPair(body, other)
		})
	}

	for i := range bf.proxies {
		bf.proxies[i].moved = false
	}
}

func (bf *DBVT[D]) addPair(a, b actor.Body) {
	key := keyOf(a, b)
	if _, ok := bf.pairIndex[key]; ok {
		return
	}
	if !bf.dispatcher.IsValid(a, b) {
		return
	}

	a, b = actor.BodyPair(a, b)
	bf.pairIndex[key] = len(bf.pairs)
	bf.pairs = append(bf.pairs, &Pair[D]{A: a, B: b, Data: bf.dispatcher.Dispatch(a, b)})
}

// removePairs drops the pairs matching drop, keeping the others in order
func (bf *DBVT[D]) removePairs(drop func(p *Pair[D]) bool) {
	kept := bf.pairs[:0]
	for _, p := range bf.pairs {
		if drop(p) {
			delete(bf.pairIndex, keyOf(p.A, p.B))
			continue
		}
		bf.pairIndex[keyOf(p.A, p.B)] = len(kept)
		kept = append(kept, p)
	}
	for i := len(kept); i < len(bf.pairs); i++ {
		bf.pairs[i] = nil
	}
	bf.pairs = kept
}

// ============================================================================
// Pairs
// ============================================================================

// ForEachPair calls f on every cached pair with at least one active body, in
// a deterministic order.
func (bf *DBVT[D]) ForEachPair(f func(a, b actor.Body, data *D)) {
	for _, p := range bf.pairs {
		if !bf.isActive(p.A) && !bf.isActive(p.B) {
			continue
		}
		f(p.A, p.B, &p.Data)
	}
}

// Pair returns the cached state of the pair (a, b), if any
func (bf *DBVT[D]) Pair(a, b actor.Body) (*D, bool) {
	index, ok := bf.pairIndex[keyOf(a, b)]
	if !ok {
		return nil, false
	}
	return &bf.pairs[index].Data, true
}

func (bf *DBVT[D]) isActive(body actor.Body) bool {
	index, ok := bf.byBody[body.Handle()]
	return ok && bf.proxies[index].active
}

// Activate marks body as awake and re-emits every pair it belongs to
func (bf *DBVT[D]) Activate(body actor.Body, f func(a, b actor.Body, data *D)) {
	index, ok := bf.byBody[body.Handle()]
	if !ok {
		return
	}
	bf.proxies[index].active = true

	for _, p := range bf.pairs {
		if p.A == body || p.B == body {
			f(p.A, p.B, &p.Data)
		}
	}
}

// Deactivate marks body as asleep: its pairs with other sleeping or static
// bodies are no longer iterated.
func (bf *DBVT[D]) Deactivate(body actor.Body) {
	if index, ok := bf.byBody[body.Handle()]; ok {
		bf.proxies[index].active = false
	}
}

// ============================================================================
// Queries
// ============================================================================

// InterferencesWithRay appends every body whose fat AABB the ray crosses
func (bf *DBVT[D]) InterferencesWithRay(ray actor.Ray, out *[]actor.Body) {
	bf.stack = bf.tree.raycast(ray, bf.stack, func(leaf int) {
		*out = append(*out, bf.proxies[bf.tree.nodes[leaf].proxy].body)
	})
}

// InterferencesWithAABB appends every body whose fat AABB overlaps aabb
func (bf *DBVT[D]) InterferencesWithAABB(aabb actor.AABB, out *[]actor.Body) {
	bf.stack = bf.tree.query(aabb, bf.stack, func(leaf int) {
		*out = append(*out, bf.proxies[bf.tree.nodes[leaf].proxy].body)
	})
}
