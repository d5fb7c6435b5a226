// Package signal is the event bus through which the pipeline stages learn
// about bodies and constraints being added, removed, woken up or put to sleep.
package signal

import (
	"fmt"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
)

// Channel identifies one of the six event streams
type Channel uint8

const (
	BODY_ACTIVATED Channel = iota
	BODY_DEACTIVATED
	BODY_ADDED
	BODY_REMOVED
	CONSTRAINT_ADDED
	CONSTRAINT_REMOVED

	numChannels
)

func (c Channel) String() string {
	switch c {
	case BODY_ACTIVATED:
		return "body_activated"
	case BODY_DEACTIVATED:
		return "body_deactivated"
	case BODY_ADDED:
		return "body_added"
	case BODY_REMOVED:
		return "body_removed"
	case CONSTRAINT_ADDED:
		return "constraint_added"
	case CONSTRAINT_REMOVED:
		return "constraint_removed"
	}
	return fmt.Sprintf("Channel(%d)", int(c))
}

// Event interface - all events implement this
type Event interface {
	Channel() Channel
}

// BodyActivatedEvent is emitted when a body wakes up. Listeners may append
// the constraints the body takes part in to Out.
type BodyActivatedEvent struct {
	Body actor.Body
	Out  *[]constraint.Constraint
}

func (e BodyActivatedEvent) Channel() Channel { return BODY_ACTIVATED }

type BodyDeactivatedEvent struct {
	Body actor.Body
}

func (e BodyDeactivatedEvent) Channel() Channel { return BODY_DEACTIVATED }

type BodyAddedEvent struct {
	Body actor.Body
}

func (e BodyAddedEvent) Channel() Channel { return BODY_ADDED }

type BodyRemovedEvent struct {
	Body actor.Body
}

func (e BodyRemovedEvent) Channel() Channel { return BODY_REMOVED }

// ConstraintAddedEvent announces a joint registered by the user
type ConstraintAddedEvent struct {
	Joint constraint.Joint
}

func (e ConstraintAddedEvent) Channel() Channel { return CONSTRAINT_ADDED }

type ConstraintRemovedEvent struct {
	Joint constraint.Joint
}

func (e ConstraintRemovedEvent) Channel() Channel { return CONSTRAINT_REMOVED }

// SubscriberID is the stable identity of a listener owner, used to
// unsubscribe.
type SubscriberID uint64

// Listener - callback for events
type Listener func(event Event)

type subscription struct {
	id       SubscriberID
	listener Listener
}

// Emitter dispatches events synchronously, to the listeners of a channel in
// subscription order. Events emitted by a listener are queued and delivered
// once the current event has reached every listener.
type Emitter struct {
	listeners [numChannels][]subscription
	queue     []Event
	emitting  bool
	nextID    SubscriberID
}

func NewEmitter() *Emitter {
	return &Emitter{queue: make([]Event, 0, 16)}
}

// NewSubscriber allocates a SubscriberID
func (e *Emitter) NewSubscriber() SubscriberID {
	e.nextID++
	return e.nextID
}

// Subscribe adds a listener to channel
func (e *Emitter) Subscribe(id SubscriberID, channel Channel, listener Listener) {
	e.listeners[channel] = append(e.listeners[channel], subscription{id: id, listener: listener})
}

// Unsubscribe removes the listeners of id on channel
func (e *Emitter) Unsubscribe(id SubscriberID, channel Channel) {
	// A fresh slice keeps an ongoing dispatch on the old one intact
	kept := make([]subscription, 0, len(e.listeners[channel]))
	for _, s := range e.listeners[channel] {
		if s.id != id {
			kept = append(kept, s)
		}
	}
	e.listeners[channel] = kept
}

// UnsubscribeAll removes the listeners of id on every channel
func (e *Emitter) UnsubscribeAll(id SubscriberID) {
	for c := Channel(0); c < numChannels; c++ {
		e.Unsubscribe(id, c)
	}
}

// NumListeners returns the number of listeners on channel
func (e *Emitter) NumListeners(channel Channel) int {
	return len(e.listeners[channel])
}

// Emit delivers event, or queues it when called from a listener
func (e *Emitter) Emit(event Event) {
	e.queue = append(e.queue, event)
	if e.emitting {
		return
	}

	e.emitting = true
	for i := 0; i < len(e.queue); i++ {
		event := e.queue[i]
		for _, s := range e.listeners[event.Channel()] {
			s.listener(event)
		}
	}
	clear(e.queue)
	e.queue = e.queue[:0]
	e.emitting = false
}

// ============================================================================
// Typed helpers
// ============================================================================

func (e *Emitter) OnBodyActivated(id SubscriberID, f func(body actor.Body, out *[]constraint.Constraint)) {
	e.Subscribe(id, BODY_ACTIVATED, func(event Event) {
		ev := event.(BodyActivatedEvent)
		f(ev.Body, ev.Out)
	})
}

func (e *Emitter) OnBodyDeactivated(id SubscriberID, f func(body actor.Body)) {
	e.Subscribe(id, BODY_DEACTIVATED, func(event Event) {
		f(event.(BodyDeactivatedEvent).Body)
	})
}

func (e *Emitter) OnBodyAdded(id SubscriberID, f func(body actor.Body)) {
	e.Subscribe(id, BODY_ADDED, func(event Event) {
		f(event.(BodyAddedEvent).Body)
	})
}

func (e *Emitter) OnBodyRemoved(id SubscriberID, f func(body actor.Body)) {
	e.Subscribe(id, BODY_REMOVED, func(event Event) {
		f(event.(BodyRemovedEvent).Body)
	})
}

func (e *Emitter) OnConstraintAdded(id SubscriberID, f func(joint constraint.Joint)) {
	e.Subscribe(id, CONSTRAINT_ADDED, func(event Event) {
		f(event.(ConstraintAddedEvent).Joint)
	})
}

func (e *Emitter) OnConstraintRemoved(id SubscriberID, f func(joint constraint.Joint)) {
	e.Subscribe(id, CONSTRAINT_REMOVED, func(event Event) {
		f(event.(ConstraintRemovedEvent).Joint)
	})
}

func (e *Emitter) EmitBodyActivated(body actor.Body, out *[]constraint.Constraint) {
	e.Emit(BodyActivatedEvent{Body: body, Out: out})
}

func (e *Emitter) EmitBodyDeactivated(body actor.Body) {
	e.Emit(BodyDeactivatedEvent{Body: body})
}

func (e *Emitter) EmitBodyAdded(body actor.Body) {
	e.Emit(BodyAddedEvent{Body: body})
}

func (e *Emitter) EmitBodyRemoved(body actor.Body) {
	e.Emit(BodyRemovedEvent{Body: body})
}

func (e *Emitter) EmitConstraintAdded(joint constraint.Joint) {
	e.Emit(ConstraintAddedEvent{Joint: joint})
}

func (e *Emitter) EmitConstraintRemoved(joint constraint.Joint) {
	e.Emit(ConstraintRemovedEvent{Joint: joint})
}
