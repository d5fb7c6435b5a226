// Package integration advances the velocities and poses of rigid bodies.
package integration

import (
	"github.com/akmonengine/impulse/actor"
)

// bodyList keeps the dynamic rigid bodies of a stage in insertion order
type bodyList struct {
	bodies []*actor.RigidBody
}

// add registers body if it is a dynamic rigid body and reports whether it did
func (l *bodyList) add(body actor.Body) bool {
	rb, ok := body.(*actor.RigidBody)
	if !ok || !rb.CanMove() {
		return false
	}
	if l.indexOf(rb) >= 0 {
		return false
	}
	l.bodies = append(l.bodies, rb)
	return true
}

// remove drops body and returns its former index, or -1
func (l *bodyList) remove(body actor.Body) int {
	rb, ok := body.(*actor.RigidBody)
	if !ok {
		return -1
	}
	i := l.indexOf(rb)
	if i < 0 {
		return -1
	}
	copy(l.bodies[i:], l.bodies[i+1:])
	l.bodies[len(l.bodies)-1] = nil
	l.bodies = l.bodies[:len(l.bodies)-1]
	return i
}

func (l *bodyList) indexOf(rb *actor.RigidBody) int {
	for i, b := range l.bodies {
		if b == rb {
			return i
		}
	}
	return -1
}

func (l *bodyList) len() int {
	return len(l.bodies)
}
