// Package impulse is a 3D rigid body physics engine. A World steps its bodies
// through a pipeline of integrators, detectors and solvers, ordered by
// priority.
package impulse

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"github.com/akmonengine/impulse/detection"
	"github.com/akmonengine/impulse/signal"
	"github.com/go-logr/logr"
)

// Stage is a component of the pipeline. It is told about every body of the
// world, and runs in increasing Priority order, ties in registration order.
type Stage interface {
	Add(body actor.Body)
	Remove(body actor.Body)
	Priority() float64
}

// Integrator moves the bodies. Update runs before detection (forces and
// velocities), UpdatePosition after the solvers.
type Integrator interface {
	Stage
	Update(dt float64)
	UpdatePosition(dt float64)
}

// Detector refreshes its state in Update, then appends the constraints of the
// step in Interferences.
type Detector interface {
	Stage
	Update()
	Interferences(out *[]constraint.Constraint)
}

// Solver consumes the constraints of the step
type Solver interface {
	Stage
	Solve(dt float64, constraints []constraint.Constraint)
}

// RayCaster is implemented by detectors able to answer ray queries
type RayCaster interface {
	InterferencesWithRay(ray actor.Ray, out *[]detection.RayHit)
}

type World struct {
	bodies *actor.Registry[actor.Body]
	events *signal.Emitter

	integrators []Integrator
	detectors   []Detector
	solvers     []Solver

	// registration order of every stage, used to break priority ties
	stages []Stage

	constraints []constraint.Constraint
	hits        []detection.RayHit

	log logr.Logger
}

// NewWorld creates an empty world without any stage. events may be nil.
func NewWorld(events *signal.Emitter, log logr.Logger) *World {
	if events == nil {
		events = signal.NewEmitter()
	}
	return &World{
		bodies: actor.NewRegistry[actor.Body](),
		events: events,
		log:    log.WithName("world"),
	}
}

func (w *World) Events() *signal.Emitter { return w.events }
func (w *World) Logger() logr.Logger     { return w.log }
func (w *World) NumBodies() int          { return w.bodies.Len() }

func (w *World) Integrators() []Integrator { return w.integrators }
func (w *World) Detectors() []Detector     { return w.detectors }
func (w *World) Solvers() []Solver         { return w.solvers }

// Body resolves a handle; stale handles return false
func (w *World) Body(h actor.Handle) (actor.Body, bool) {
	return w.bodies.Get(h)
}

// EachBody visits the bodies in handle order
func (w *World) EachBody(f func(body actor.Body)) {
	w.bodies.Each(func(_ actor.Handle, body actor.Body) {
		f(body)
	})
}

// ============================================================================
// Objects
// ============================================================================

// AddObject registers body and hands it to every stage. Adding a body twice
// panics with ErrDuplicateObject.
func (w *World) AddObject(body actor.Body) actor.Handle {
	if h := body.Handle(); h.IsValid() {
		if registered, ok := w.bodies.Get(h); ok && registered == body {
			w.fail(fmt.Errorf("body %v: %w", h, ErrDuplicateObject))
		}
	}

	h := w.bodies.Insert(body)
	body.SetHandle(h)
	body.UpdateAABB()

	for _, stage := range w.stages {
		stage.Add(body)
	}

	w.log.V(1).Info("body added", "body", h)
	w.events.EmitBodyAdded(body)

	return h
}

// RemoveObject unregisters the body of h from the world and from every stage.
// An unknown or stale handle panics with ErrUnknownObject.
func (w *World) RemoveObject(h actor.Handle) actor.Body {
	body, ok := w.bodies.Get(h)
	if !ok {
		w.fail(fmt.Errorf("handle %v: %w", h, ErrUnknownObject))
	}

	for _, stage := range w.stages {
		stage.Remove(body)
	}
	w.bodies.Remove(h)
	body.SetHandle(actor.Handle{})

	w.log.V(1).Info("body removed", "body", h)
	w.events.EmitBodyRemoved(body)

	return body
}

// ============================================================================
// Joints
// ============================================================================

// AddJoint announces joint to the pipeline. Both bodies must be registered.
func (w *World) AddJoint(joint constraint.Joint) {
	a, b := joint.Bodies()
	w.mustContain(a)
	if b != nil {
		w.mustContain(b)
	}
	w.events.EmitConstraintAdded(joint)
}

func (w *World) RemoveJoint(joint constraint.Joint) {
	w.events.EmitConstraintRemoved(joint)
}

func (w *World) mustContain(body *actor.RigidBody) {
	if body == nil {
		w.fail(fmt.Errorf("nil body: %w", ErrUnknownObject))
	}
	if registered, ok := w.bodies.Get(body.Handle()); !ok || registered != actor.Body(body) {
		w.fail(fmt.Errorf("body %v: %w", body.Handle(), ErrUnknownObject))
	}
}

// ============================================================================
// Stages
// ============================================================================

func (w *World) AddIntegrator(i Integrator) {
	w.addStage(i)
	w.integrators = sortStages(w, append(w.integrators, i))
}

func (w *World) AddDetector(d Detector) {
	w.addStage(d)
	w.detectors = sortStages(w, append(w.detectors, d))
}

func (w *World) AddSolver(s Solver) {
	w.addStage(s)
	w.solvers = sortStages(w, append(w.solvers, s))
}

// addStage registers s and hands it the bodies already in the world
func (w *World) addStage(s Stage) {
	if slices.Contains(w.stages, s) {
		w.fail(fmt.Errorf("stage %T: %w", s, ErrDuplicateObject))
	}
	w.stages = append(w.stages, s)

	w.bodies.Each(func(_ actor.Handle, body actor.Body) {
		s.Add(body)
	})
}

// sortStages orders by priority, then by registration
func sortStages[S Stage](w *World, stages []S) []S {
	slices.SortStableFunc(stages, func(a, b S) int {
		if c := cmp.Compare(a.Priority(), b.Priority()); c != 0 {
			return c
		}
		return cmp.Compare(slices.Index(w.stages, Stage(a)), slices.Index(w.stages, Stage(b)))
	})
	return stages
}

// ============================================================================
// Step
// ============================================================================

// Step advances the simulation by dt seconds
func (w *World) Step(dt float64) {
	if !(dt > 0) {
		return
	}

	for _, i := range w.integrators {
		i.Update(dt)
	}

	w.constraints = w.constraints[:0]
	for _, d := range w.detectors {
		d.Update()
		d.Interferences(&w.constraints)
	}

	for _, s := range w.solvers {
		s.Solve(dt, w.constraints)
	}

	for _, i := range w.integrators {
		i.UpdatePosition(dt)
	}
}

// ============================================================================
// Queries
// ============================================================================

// CastRay returns the bodies crossed by ray, sorted by time of impact. The
// slice is reused by the next call.
func (w *World) CastRay(ray actor.Ray) []detection.RayHit {
	w.hits = w.hits[:0]
	for _, d := range w.detectors {
		if caster, ok := d.(RayCaster); ok {
			caster.InterferencesWithRay(ray, &w.hits)
		}
	}

	slices.SortStableFunc(w.hits, func(a, b detection.RayHit) int {
		if c := cmp.Compare(a.T, b.T); c != 0 {
			return c
		}
		ha, hb := a.Body.Handle(), b.Body.Handle()
		switch {
		case ha.Less(hb):
			return -1
		case hb.Less(ha):
			return 1
		}
		return 0
	})
	return w.hits
}

// fail logs a programmer error and panics with it
func (w *World) fail(err error) {
	w.log.Error(err, "invalid world operation")
	panic(err)
}
