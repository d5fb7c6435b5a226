package detection

import (
	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/broad"
	"github.com/akmonengine/impulse/constraint"
	"github.com/akmonengine/impulse/signal"
	"github.com/go-logr/logr"
)

// BroadPhase is the broad phase driven by BodiesBodies
type BroadPhase = broad.DBVT[*Interference]

// RayHit is a body crossed by a ray, at ray.PointAt(T)
type RayHit struct {
	Body actor.Body
	T    float64
}

// BodiesBodies is the contact detector: it refreshes the narrow phase of
// every broad phase pair and emits a contact constraint per contact point.
type BodiesBodies struct {
	broad *BroadPhase
	// updateBF gives this detector the Add, Remove and Update calls of the
	// broad phase. Pair iteration is always done here.
	updateBF bool

	events *signal.Emitter
	id     signal.SubscriberID
	log    logr.Logger

	step       uint64
	candidates []actor.Body
}

// NewBodiesBodies creates the detector and subscribes it to the activation
// channels of events.
func NewBodiesBodies(events *signal.Emitter, bf *BroadPhase, updateBF bool, log logr.Logger) *BodiesBodies {
	d := &BodiesBodies{
		broad:    bf,
		updateBF: updateBF,
		events:   events,
		id:       events.NewSubscriber(),
		log:      log.WithName("bodies-bodies"),
	}

	events.OnBodyActivated(d.id, d.activate)
	events.OnBodyDeactivated(d.id, d.deactivate)

	return d
}

// Close unsubscribes the detector from the signal bus
func (d *BodiesBodies) Close() {
	d.events.UnsubscribeAll(d.id)
}

func (d *BodiesBodies) Priority() float64 { return 50 }

func (d *BodiesBodies) Add(body actor.Body) {
	if d.updateBF {
		d.broad.Add(body)
	}
}

func (d *BodiesBodies) Remove(body actor.Body) {
	if d.updateBF {
		d.broad.Remove(body)
	}
}

// Update runs the narrow phase on every pair with an active body
func (d *BodiesBodies) Update() {
	d.step++
	if d.updateBF {
		d.broad.Update()
	}

	d.broad.ForEachPair(func(a, b actor.Body, data **Interference) {
		d.updatePair(a, b, *data)
	})
}

func (d *BodiesBodies) updatePair(a, b actor.Body, it *Interference) {
	if !it.Supported() {
		return
	}
	rbA, rbB := a.(*actor.RigidBody), b.(*actor.RigidBody)

	err := it.Geom.Update(rbA.Transform, rbA.Shape(), rbB.Transform, rbB.Shape())
	it.stamp = d.step
	if err != nil && !it.reported {
		it.reported = true
		d.log.V(2).Info("narrow phase failed, pair skipped", "a", a.Handle(), "b", b.Handle(),
			"shapeA", rbA.Shape().Type(), "shapeB", rbB.Shape().Type(), "error", err.Error())
	}
}

// Interferences appends a contact constraint per contact of the pairs with
// an active body
func (d *BodiesBodies) Interferences(out *[]constraint.Constraint) {
	d.broad.ForEachPair(func(a, b actor.Body, data **Interference) {
		collect(a, b, *data, out)
	})
}

func collect(a, b actor.Body, it *Interference, out *[]constraint.Constraint) {
	if !it.Supported() {
		return
	}
	rbA, rbB := a.(*actor.RigidBody), b.(*actor.RigidBody)

	contacts := it.Geom.Contacts()
	for i := range contacts {
		*out = append(*out, &constraint.ContactConstraint{BodyA: rbA, BodyB: rbB, Contact: &contacts[i]})
	}
}

// activate re-emits the contacts of a body that just woke up. Pairs with an
// active body were already emitted by Interferences during this step.
func (d *BodiesBodies) activate(body actor.Body, out *[]constraint.Constraint) {
	d.broad.Activate(body, func(a, b actor.Body, data **Interference) {
		other := a
		if other == body {
			other = b
		}
		if other.IsActive() {
			return
		}

		it := *data
		// A pair refreshed during this step needs no new narrow phase
		if it.stamp != d.step {
			d.updatePair(a, b, it)
		}
		if out != nil {
			collect(a, b, it, out)
		}
	})
}

func (d *BodiesBodies) deactivate(body actor.Body) {
	d.broad.Deactivate(body)
}

// InterferencesWithRay appends every body crossed by ray with its exact time
// of impact. Soft bodies report the entry time of their bounding box.
func (d *BodiesBodies) InterferencesWithRay(ray actor.Ray, out *[]RayHit) {
	d.candidates = d.candidates[:0]
	d.broad.InterferencesWithRay(ray, &d.candidates)

	for _, body := range d.candidates {
		switch b := body.(type) {
		case *actor.RigidBody:
			if t, hit := b.Shape().RayCast(b.Transform, ray); hit {
				*out = append(*out, RayHit{Body: body, T: t})
			}
		default:
			if t, hit := body.AABB().IntersectsRay(ray); hit {
				*out = append(*out, RayHit{Body: body, T: t})
			}
		}
	}
}
