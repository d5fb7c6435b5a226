package detection

import (
	"slices"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"github.com/akmonengine/impulse/signal"
)

// JointManager emits a constraint per joint with an active body. Joints are
// registered through the constraint channels of the signal bus.
type JointManager struct {
	joints      []constraint.Joint
	constraints []constraint.JointConstraint

	events *signal.Emitter
	id     signal.SubscriberID
}

func NewJointManager(events *signal.Emitter) *JointManager {
	m := &JointManager{events: events, id: events.NewSubscriber()}

	events.OnConstraintAdded(m.id, m.addJoint)
	events.OnConstraintRemoved(m.id, m.removeJoint)
	events.OnBodyActivated(m.id, m.activate)

	return m
}

func (m *JointManager) Close() {
	m.events.UnsubscribeAll(m.id)
}

func (m *JointManager) Priority() float64 { return 50 }

func (m *JointManager) Joints() []constraint.Joint {
	return m.joints
}

func (m *JointManager) addJoint(joint constraint.Joint) {
	if slices.Contains(m.joints, joint) {
		return
	}
	m.joints = append(m.joints, joint)
}

func (m *JointManager) removeJoint(joint constraint.Joint) {
	if i := slices.Index(m.joints, joint); i >= 0 {
		m.joints = slices.Delete(m.joints, i, i+1)
	}
}

func (m *JointManager) Add(body actor.Body) {}

// Remove drops the joints attached to body
func (m *JointManager) Remove(body actor.Body) {
	rb, ok := body.(*actor.RigidBody)
	if !ok {
		return
	}
	m.joints = slices.DeleteFunc(m.joints, func(j constraint.Joint) bool {
		a, b := j.Bodies()
		return a == rb || b == rb
	})
}

func isJointActive(j constraint.Joint) bool {
	a, b := j.Bodies()
	return a.IsActive() || (b != nil && b.IsActive())
}

// Update refreshes the world anchors of the joints with an active body
func (m *JointManager) Update() {
	for _, j := range m.joints {
		if isJointActive(j) {
			j.Update()
		}
	}
}

// Interferences appends a constraint per joint with an active body
func (m *JointManager) Interferences(out *[]constraint.Constraint) {
	// Reserved up front: out keeps pointers into this slice
	m.constraints = slices.Grow(m.constraints[:0], len(m.joints))

	for _, j := range m.joints {
		if !isJointActive(j) {
			continue
		}
		a, b := j.Bodies()

		i := len(m.constraints)
		m.constraints = m.constraints[:i+1]
		c := &m.constraints[i]
		c.Joint, c.BodyA, c.BodyB = j, a, b
		c.Rows = j.Rows(c.Rows[:0])

		*out = append(*out, c)
	}
}

// activate emits the joints linking a body that just woke up to a sleeping
// one. Joints with an active body were already emitted during this step.
func (m *JointManager) activate(body actor.Body, out *[]constraint.Constraint) {
	if out == nil {
		return
	}
	for _, j := range m.joints {
		a, b := j.Bodies()
		var other *actor.RigidBody
		switch body {
		case actor.Body(a):
			other = b
		case actor.Body(b):
			other = a
		default:
			continue
		}
		if other != nil && other.IsActive() {
			continue
		}

		j.Update()
		c := &constraint.JointConstraint{Joint: j, BodyA: a, BodyB: b}
		c.Rows = j.Rows(nil)
		*out = append(*out, c)
	}
}
