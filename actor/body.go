package actor

import "fmt"

// Handle identifies a body inside a Registry. The generation detects reuse of
// a slot after removal, so the zero Handle never refers to a live object.
type Handle struct {
	Index      uint32
	Generation uint32
}

func (h Handle) IsValid() bool {
	return h.Generation != 0
}

// Less orders handles by slot, then by generation
func (h Handle) Less(other Handle) bool {
	if h.Index != other.Index {
		return h.Index < other.Index
	}
	return h.Generation < other.Generation
}

func (h Handle) String() string {
	return fmt.Sprintf("#%d.%d", h.Index, h.Generation)
}

// Activation is the sleep state of a body
type Activation int

const (
	// Active bodies are integrated and solved
	Active Activation = iota
	// Inactive bodies are asleep (or static): skipped by integrators and solvers
	Inactive
	// AlwaysActive bodies never fall asleep
	AlwaysActive
)

func (a Activation) String() string {
	switch a {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	case AlwaysActive:
		return "always-active"
	}
	return fmt.Sprintf("Activation(%d)", int(a))
}

// Body is the variant stored by the world: *RigidBody or *SoftBody.
type Body interface {
	Handle() Handle
	// SetHandle is called once by the world when the body is registered.
	SetHandle(h Handle)
	// AABB returns the last computed bounding box
	AABB() AABB
	// UpdateAABB recomputes the bounding box from the current pose
	UpdateAABB() AABB
	IsActive() bool
	// CanMove reports whether the body can ever be set in motion
	CanMove() bool

	body()
}

// BodyPair orders two bodies by handle, so a pair has a single representation
func BodyPair(a, b Body) (Body, Body) {
	if b.Handle().Less(a.Handle()) {
		return b, a
	}
	return a, b
}
