package actor

type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// Registry is a slab of values addressed by generational handles. Iteration
// follows slot order, which keeps the simulation deterministic.
type Registry[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Insert stores value and returns its handle. Freed slots are reused with a
// bumped generation.
func (r *Registry[T]) Insert(value T) Handle {
	var index uint32
	if n := len(r.free); n > 0 {
		index = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		index = uint32(len(r.slots))
		r.slots = append(r.slots, slot[T]{})
	}

	s := &r.slots[index]
	s.generation++
	s.value = value
	s.occupied = true
	r.count++

	return Handle{Index: index, Generation: s.generation}
}

func (r *Registry[T]) Get(h Handle) (T, bool) {
	var zero T
	if !r.Contains(h) {
		return zero, false
	}
	return r.slots[h.Index].value, true
}

func (r *Registry[T]) Contains(h Handle) bool {
	if !h.IsValid() || int(h.Index) >= len(r.slots) {
		return false
	}
	s := r.slots[h.Index]
	return s.occupied && s.generation == h.Generation
}

// Remove frees the slot of h. Stale handles are reported with false.
func (r *Registry[T]) Remove(h Handle) (T, bool) {
	var zero T
	if !r.Contains(h) {
		return zero, false
	}

	s := &r.slots[h.Index]
	value := s.value
	s.value = zero
	s.occupied = false
	r.free = append(r.free, h.Index)
	r.count--

	return value, true
}

func (r *Registry[T]) Len() int {
	return r.count
}

// Each visits live values in slot order
func (r *Registry[T]) Each(f func(h Handle, value T)) {
	for i := range r.slots {
		s := &r.slots[i]
		if s.occupied {
			f(Handle{Index: uint32(i), Generation: s.generation}, s.value)
		}
	}
}
