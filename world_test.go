package impulse

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"github.com/akmonengine/impulse/signal"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
)

const dt = 1.0 / 60.0

// ============================================================================
// Helpers
// ============================================================================

func newTestWorld(t *testing.T, cfg *Config) (*World, *Pipeline) {
	t.Helper()
	w, p, err := NewDefaultWorld(cfg, testr.New(t))
	if err != nil {
		t.Fatal(err)
	}
	return w, p
}

func zeroGravity() *Config {
	cfg := DefaultConfig()
	cfg.Gravity = mgl64.Vec3{}
	return cfg
}

func newBody(t *testing.T, shape actor.Shape, mass float64, bodyType actor.BodyType, restitution, friction float64, position mgl64.Vec3) *actor.RigidBody {
	t.Helper()
	rb, err := actor.NewRigidBody(shape, mass, bodyType, restitution, friction)
	if err != nil {
		t.Fatal(err)
	}
	rb.SetPosition(position)
	return rb
}

func newBall(t *testing.T, radius float64, position mgl64.Vec3) *actor.RigidBody {
	t.Helper()
	shape, err := actor.NewBall(radius)
	if err != nil {
		t.Fatal(err)
	}
	return newBody(t, shape, 1, actor.BodyTypeDynamic, 0, 0.5, position)
}

func newGround(t *testing.T) *actor.RigidBody {
	t.Helper()
	shape, err := actor.NewPlane(mgl64.Vec3{0, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	return newBody(t, shape, 0, actor.BodyTypeStatic, 0, 0.5, mgl64.Vec3{})
}

func newStaticBox(t *testing.T, halfExtents, position mgl64.Vec3) *actor.RigidBody {
	t.Helper()
	shape, err := actor.NewBox(halfExtents)
	if err != nil {
		t.Fatal(err)
	}
	return newBody(t, shape, 0, actor.BodyTypeStatic, 0, 0.5, position)
}

func steps(w *World, n int) {
	for i := 0; i < n; i++ {
		w.Step(dt)
	}
}

// mustPanic runs f and returns the error it panicked with
func mustPanic(t *testing.T, f func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic")
		}
		var ok bool
		if err, ok = r.(error); !ok {
			t.Fatalf("panic value %v is not an error", r)
		}
	}()
	f()
	return nil
}

func finite(v mgl64.Vec3) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// ============================================================================
// Objects
// ============================================================================

func TestAddRemoveObject(t *testing.T) {
	w, _ := newTestWorld(t, nil)

	var added, removed int
	id := w.Events().NewSubscriber()
	w.Events().OnBodyAdded(id, func(actor.Body) { added++ })
	w.Events().OnBodyRemoved(id, func(actor.Body) { removed++ })

	ball := newBall(t, 1, mgl64.Vec3{0, 5, 0})
	h := w.AddObject(ball)

	if !h.IsValid() || ball.Handle() != h {
		t.Fatalf("handle = %v, body handle = %v", h, ball.Handle())
	}
	if got, ok := w.Body(h); !ok || got != actor.Body(ball) {
		t.Fatal("Body() does not resolve the new handle")
	}
	if w.NumBodies() != 1 || added != 1 {
		t.Fatalf("bodies = %d, added events = %d", w.NumBodies(), added)
	}

	t.Run("duplicate", func(t *testing.T) {
		err := mustPanic(t, func() { w.AddObject(ball) })
		if !errors.Is(err, ErrDuplicateObject) {
			t.Errorf("err = %v, want ErrDuplicateObject", err)
		}
	})

	if got := w.RemoveObject(h); got != actor.Body(ball) {
		t.Fatal("RemoveObject returned another body")
	}
	if w.NumBodies() != 0 || removed != 1 {
		t.Fatalf("bodies = %d, removed events = %d", w.NumBodies(), removed)
	}
	if ball.Handle().IsValid() {
		t.Error("removed body kept its handle")
	}

	t.Run("stale handle", func(t *testing.T) {
		err := mustPanic(t, func() { w.RemoveObject(h) })
		if !errors.Is(err, ErrUnknownObject) {
			t.Errorf("err = %v, want ErrUnknownObject", err)
		}
	})

	t.Run("re-add", func(t *testing.T) {
		h2 := w.AddObject(ball)
		if h2 == h {
			t.Error("slot reuse must bump the generation")
		}
		if _, ok := w.Body(h); ok {
			t.Error("stale handle resolves after slot reuse")
		}
	})
}

func TestRemoveObjectDropsContacts(t *testing.T) {
	w, _ := newTestWorld(t, nil)

	ground := newGround(t)
	ball := newBall(t, 1, mgl64.Vec3{0, 1, 0})
	hg := w.AddObject(ground)
	w.AddObject(ball)

	steps(w, 30)
	rest := ball.Position().Y()
	if math.Abs(rest-1) > 0.1 {
		t.Fatalf("ball should rest on the ground, y = %v", rest)
	}

	w.RemoveObject(hg)
	steps(w, 30)
	if ball.Position().Y() > rest-1 {
		t.Errorf("ball should fall once the ground is gone, y = %v", ball.Position().Y())
	}
}

func TestAddJointRequiresRegisteredBodies(t *testing.T) {
	w, _ := newTestWorld(t, nil)

	a := newBall(t, 1, mgl64.Vec3{})
	b := newBall(t, 1, mgl64.Vec3{3, 0, 0})
	w.AddObject(a)

	err := mustPanic(t, func() {
		w.AddJoint(constraint.NewBallInSocket(a, b, mgl64.Vec3{1.5, 0, 0}))
	})
	if !errors.Is(err, ErrUnknownObject) {
		t.Errorf("err = %v, want ErrUnknownObject", err)
	}
}

// ============================================================================
// Stages
// ============================================================================

type recorder struct {
	calls *[]string
}

type fakeStage struct {
	recorder
	name     string
	priority float64
	bodies   int
}

func (s *fakeStage) Add(actor.Body)    { s.bodies++ }
func (s *fakeStage) Remove(actor.Body) { s.bodies-- }
func (s *fakeStage) Priority() float64 { return s.priority }

type fakeIntegrator struct{ fakeStage }

func (i *fakeIntegrator) Update(float64) { *i.calls = append(*i.calls, i.name+".Update") }
func (i *fakeIntegrator) UpdatePosition(float64) {
	*i.calls = append(*i.calls, i.name+".UpdatePosition")
}

type fakeDetector struct{ fakeStage }

func (d *fakeDetector) Update() { *d.calls = append(*d.calls, d.name+".Update") }
func (d *fakeDetector) Interferences(*[]constraint.Constraint) {
	*d.calls = append(*d.calls, d.name+".Interferences")
}

type fakeSolver struct{ fakeStage }

func (s *fakeSolver) Solve(float64, []constraint.Constraint) {
	*s.calls = append(*s.calls, s.name+".Solve")
}

func TestStageOrder(t *testing.T) {
	var calls []string
	stage := func(name string, priority float64) fakeStage {
		return fakeStage{recorder: recorder{calls: &calls}, name: name, priority: priority}
	}

	w := NewWorld(nil, testr.New(t))
	w.AddIntegrator(&fakeIntegrator{stage("late", 10)})
	w.AddIntegrator(&fakeIntegrator{stage("early", 0)})
	w.AddIntegrator(&fakeIntegrator{stage("tie", 10)})
	w.AddDetector(&fakeDetector{stage("islands", 75)})
	w.AddDetector(&fakeDetector{stage("pairs", 50)})
	w.AddSolver(&fakeSolver{stage("solver", 100)})

	w.Step(dt)

	want := []string{
		"early.Update", "late.Update", "tie.Update",
		"pairs.Update", "pairs.Interferences",
		"islands.Update", "islands.Interferences",
		"solver.Solve",
		"early.UpdatePosition", "late.UpdatePosition", "tie.UpdatePosition",
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("step order mismatch (-want +got):\n%s", diff)
	}

	t.Run("non positive dt", func(t *testing.T) {
		calls = calls[:0]
		w.Step(0)
		w.Step(-dt)
		if len(calls) != 0 {
			t.Errorf("Step must ignore dt <= 0, got %v", calls)
		}
	})
}

func TestStageReceivesExistingBodies(t *testing.T) {
	var calls []string
	w := NewWorld(nil, testr.New(t))
	w.AddObject(newBall(t, 1, mgl64.Vec3{}))
	h := w.AddObject(newBall(t, 1, mgl64.Vec3{5, 0, 0}))

	s := &fakeSolver{fakeStage{recorder: recorder{calls: &calls}, name: "solver"}}
	w.AddSolver(s)
	if s.bodies != 2 {
		t.Fatalf("stage got %d bodies, want 2", s.bodies)
	}

	w.RemoveObject(h)
	if s.bodies != 1 {
		t.Errorf("stage holds %d bodies after removal, want 1", s.bodies)
	}

	err := mustPanic(t, func() { w.AddSolver(s) })
	if !errors.Is(err, ErrDuplicateObject) {
		t.Errorf("err = %v, want ErrDuplicateObject", err)
	}
}

// ============================================================================
// Simulation
// ============================================================================

func TestFreeFall(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	ball := newBall(t, 1, mgl64.Vec3{0, 100, 0})
	w.AddObject(ball)

	const n = 60
	steps(w, n)

	// Semi-implicit Euler: y_n = y_0 - g·dt²·n(n+1)/2
	want := 100 + DefaultGravity*dt*dt*n*(n+1)/2
	if got := ball.Position().Y(); math.Abs(got-want) > 1e-9 {
		t.Errorf("y = %v, want %v", got, want)
	}
	if got := ball.Velocity.Y(); math.Abs(got-DefaultGravity*dt*n) > 1e-9 {
		t.Errorf("vy = %v, want %v", got, DefaultGravity*dt*n)
	}
}

func TestBallFallsOnPlane(t *testing.T) {
	if testing.Short() {
		t.Skip("600 steps")
	}

	w, _ := newTestWorld(t, nil)
	w.AddObject(newGround(t))
	ball := newBall(t, 1, mgl64.Vec3{0, 10, 0})
	w.AddObject(ball)

	steps(w, 600)

	if y := ball.Position().Y(); math.Abs(y-1) >= 0.05 {
		t.Errorf("y = %v, want 1 ± 0.05", y)
	}
	if v := ball.Velocity.Len(); v >= 0.05 {
		t.Errorf("|v| = %v, want < 0.05", v)
	}
}

func TestRestingBodyFallsAsleep(t *testing.T) {
	tests := []struct {
		name  string
		shape func() actor.Shape
	}{
		{"ball", func() actor.Shape { return mustShape(actor.NewBall(1)) }},
		{"box", func() actor.Shape { return mustShape(actor.NewBox(mgl64.Vec3{1, 1, 1})) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newTestWorld(t, nil)

			step := 0
			var deactivations []int
			id := w.Events().NewSubscriber()
			w.Events().OnBodyDeactivated(id, func(actor.Body) { deactivations = append(deactivations, step) })

			body := newBody(t, tt.shape(), 1, actor.BodyTypeDynamic, 0, 0.5, mgl64.Vec3{0, 1, 0})
			w.AddObject(newGround(t))
			w.AddObject(body)

			for step = 1; step <= 240; step++ {
				w.Step(dt)
			}

			if len(deactivations) != 1 {
				t.Fatalf("deactivations at steps %v, want exactly one", deactivations)
			}
			if deactivations[0] < 60 {
				t.Errorf("body fell asleep at step %d, before its energy decayed", deactivations[0])
			}
			if body.IsActive() {
				t.Error("body is still active")
			}
			if y := body.Position().Y(); math.Abs(y-1) > 0.1 {
				t.Errorf("body rests at y = %v", y)
			}

			body.ApplyImpulse(mgl64.Vec3{0, 5, 0}, body.Position())
			w.Step(dt)
			if !body.IsActive() {
				t.Error("impulse did not wake the body")
			}
		})
	}
}

func TestGroundStaysStill(t *testing.T) {
	w, _ := newTestWorld(t, nil)

	ground := newGround(t)
	box := newStaticBox(t, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{0, 1, 0})
	w.AddObject(ground)
	w.AddObject(box)
	for i := 0; i < 5; i++ {
		w.AddObject(newBall(t, 0.5, mgl64.Vec3{0, 3 + float64(i)*1.2, 0}))
	}

	steps(w, 120)

	if ground.Position() != (mgl64.Vec3{}) || box.Position() != (mgl64.Vec3{0, 1, 0}) {
		t.Errorf("static bodies moved: ground %v, box %v", ground.Position(), box.Position())
	}
	if ground.Velocity != (mgl64.Vec3{}) || box.Velocity != (mgl64.Vec3{}) {
		t.Error("static bodies gained velocity")
	}
}

func TestHeadOnElasticCollision(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		gap   float64
		eps   float64
	}{
		{"slow", 1, 0.5, 1e-6},
		{"fast", 10, 3, 1e-3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newTestWorld(t, zeroGravity())

			shape := mustShape(actor.NewBall(1))
			a := newBody(t, shape, 1, actor.BodyTypeDynamic, 1, 0, mgl64.Vec3{-1 - tt.gap/2, 0, 0})
			b := newBody(t, shape, 1, actor.BodyTypeDynamic, 1, 0, mgl64.Vec3{1 + tt.gap/2, 0, 0})
			a.SetVelocity(mgl64.Vec3{tt.speed, 0, 0})
			b.SetVelocity(mgl64.Vec3{-tt.speed, 0, 0})
			w.AddObject(a)
			w.AddObject(b)

			steps(w, 60)

			if !a.Velocity.ApproxEqualThreshold(mgl64.Vec3{-tt.speed, 0, 0}, tt.eps) ||
				!b.Velocity.ApproxEqualThreshold(mgl64.Vec3{tt.speed, 0, 0}, tt.eps) {
				t.Errorf("velocities = %v, %v, want swapped", a.Velocity, b.Velocity)
			}
			if ke, want := w.KineticEnergy(), tt.speed*tt.speed; math.Abs(ke-want) > tt.eps*want {
				t.Errorf("kinetic energy = %v, want %v", ke, want)
			}
		})
	}
}

func TestCCDPreventsTunnelling(t *testing.T) {
	t.Run("thin wall", func(t *testing.T) {
		for _, enabled := range []bool{true, false} {
			w, _ := newTestWorld(t, zeroGravity())

			wall := newStaticBox(t, mgl64.Vec3{5, 0.05, 5}, mgl64.Vec3{})
			bullet := newBall(t, 1, mgl64.Vec3{0, 5, 0})
			bullet.CCD = enabled
			bullet.SetVelocity(mgl64.Vec3{0, -600, 0})
			w.AddObject(wall)
			w.AddObject(bullet)

			w.Step(dt)

			y := bullet.Position().Y()
			if !enabled && y > -1 {
				t.Errorf("y = %v, the unclamped ball should cross the wall", y)
			}
			if enabled && y < 1.05-1e-6 {
				t.Errorf("y = %v, the swept ball went through the wall", y)
			}
		}
	})

	t.Run("plane", func(t *testing.T) {
		for _, enabled := range []bool{true, false} {
			w, _ := newTestWorld(t, nil)

			bullet := newBall(t, 0.1, mgl64.Vec3{0, 10, 0})
			bullet.CCD = enabled
			bullet.SetVelocity(mgl64.Vec3{0, -1000, 0})
			w.AddObject(newGround(t))
			w.AddObject(bullet)

			if !enabled {
				w.Step(dt)
				if y := bullet.Position().Y(); y >= 0 {
					t.Errorf("y = %v, the unclamped ball should go through the plane", y)
				}
				continue
			}

			for i := 0; i < 120; i++ {
				w.Step(dt)
				if y := bullet.Position().Y(); y < 0 {
					t.Fatalf("step %d: y = %v, the swept ball went through the plane", i, y)
				}
			}
		}
	})
}

func TestEnergyIsNotInjected(t *testing.T) {
	w, _ := newTestWorld(t, nil)

	ground := newGround(t)
	shape, _ := actor.NewBall(1)
	ball := newBody(t, shape, 1, actor.BodyTypeDynamic, 0.3, 0.6, mgl64.Vec3{0, 3, 0})
	w.AddObject(ground)
	w.AddObject(ball)

	energy := func() float64 {
		return ball.KineticEnergy() - DefaultGravity*ball.Mass()*ball.Position().Y()
	}

	initial := energy()
	for i := 0; i < 240; i++ {
		w.Step(dt)
		if e := energy(); e > initial+1e-9 {
			t.Fatalf("step %d: energy %v above initial %v", i, e, initial)
		}
	}
}

func TestPendulumKeepsItsLength(t *testing.T) {
	w, _ := newTestWorld(t, nil)

	bob := newBall(t, 0.25, mgl64.Vec3{1, 5, 0})
	w.AddObject(bob)
	joint := constraint.NewBallInSocket(bob, nil, mgl64.Vec3{0, 5, 0})
	w.AddJoint(joint)

	for i := 0; i < 180; i++ {
		w.Step(dt)
		joint.Update()
		if gap := joint.WorldAnchorA.Sub(joint.WorldAnchorB).Len(); gap > 0.05 {
			t.Fatalf("step %d: anchors %v apart", i, gap)
		}
	}
	if bob.Position().Y() > 5-1e-3 && bob.Velocity.Len() < 1e-3 {
		t.Error("pendulum never swung")
	}
}

// ============================================================================
// Queries
// ============================================================================

func TestCastRay(t *testing.T) {
	t.Run("sorted hits", func(t *testing.T) {
		w, _ := newTestWorld(t, zeroGravity())

		box := newStaticBox(t, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{10, 0, 0})
		ball := newBall(t, 1, mgl64.Vec3{5, 0, 0})
		w.AddObject(box)
		w.AddObject(ball)
		w.AddObject(newBall(t, 1, mgl64.Vec3{5, 5, 0}))
		w.Step(dt)

		hits := w.CastRay(actor.NewRay(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}))
		if len(hits) != 2 {
			t.Fatalf("hits = %d, want 2", len(hits))
		}
		if hits[0].Body != actor.Body(ball) || math.Abs(hits[0].T-4) > 1e-6 {
			t.Errorf("first hit = %v at t = %v, want the ball at 4", hits[0].Body.Handle(), hits[0].T)
		}
		if hits[1].Body != actor.Body(box) || math.Abs(hits[1].T-9) > 1e-6 {
			t.Errorf("second hit = %v at t = %v, want the box at 9", hits[1].Body.Handle(), hits[1].T)
		}
	})

	t.Run("straight down", func(t *testing.T) {
		w, _ := newTestWorld(t, zeroGravity())
		w.AddObject(newBall(t, 1, mgl64.Vec3{}))

		hits := w.CastRay(actor.NewRay(mgl64.Vec3{0, 5, 0}, mgl64.Vec3{0, -1, 0}))
		if len(hits) != 1 || math.Abs(hits[0].T-4) > 1e-6 {
			t.Errorf("hits = %+v, want one at t = 4", hits)
		}
	})
}

type shapeCounter map[string]int

func (c shapeCounter) AddPlane(*actor.RigidBody, *actor.Plane)       { c["plane"]++ }
func (c shapeCounter) AddCube(*actor.RigidBody, *actor.Box)          { c["box"]++ }
func (c shapeCounter) AddBall(*actor.RigidBody, *actor.Ball)         { c["ball"]++ }
func (c shapeCounter) AddCylinder(*actor.RigidBody, *actor.Cylinder) { c["cylinder"]++ }
func (c shapeCounter) AddCone(*actor.RigidBody, *actor.Cone)         { c["cone"]++ }

func TestVisitShapes(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	addScene(t, w, 4)

	soft, err := actor.NewSoftBody([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	w.AddObject(soft)

	got := shapeCounter{}
	w.VisitShapes(got)

	// Layers 0 to 3: boxes, cones, cylinders, balls
	want := shapeCounter{"plane": 1, "box": 16, "ball": 16, "cylinder": 16, "cone": 16}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("visited shapes mismatch (-want +got):\n%s", diff)
	}
}

// ============================================================================
// Scenes
// ============================================================================

// addScene stacks num³ bodies above a static plane, one shape per layer
func addScene(t *testing.T, w *World, num int) []*actor.RigidBody {
	t.Helper()
	w.AddObject(newBody(t, mustShape(actor.NewPlane(mgl64.Vec3{0, 1, 0})), 0, actor.BodyTypeStatic, 0.3, 0.6, mgl64.Vec3{}))

	const rad = 1.0
	shift := (rad + 0.08) * 2
	centerx := shift * float64(num) / 2
	centery := shift / 2

	var bodies []*actor.RigidBody
	for i := 0; i < num; i++ {
		for j := 0; j < num; j++ {
			for k := 0; k < num; k++ {
				position := mgl64.Vec3{
					float64(i)*shift - centerx,
					float64(j)*shift + centery,
					float64(k)*shift - centerx,
				}

				var shape actor.Shape
				switch {
				case j%4 == 0:
					shape = mustShape(actor.NewBox(mgl64.Vec3{rad, rad, rad}))
				case j%3 == 0:
					shape = mustShape(actor.NewBall(rad))
				case j%2 == 0:
					shape = mustShape(actor.NewCylinder(rad, rad))
				default:
					shape = mustShape(actor.NewCone(rad, rad))
				}

				rb := newBody(t, shape, 1, actor.BodyTypeDynamic, 0.3, 0.5, position)
				w.AddObject(rb)
				bodies = append(bodies, rb)
			}
		}
	}
	return bodies
}

func mustShape[S actor.Shape](shape S, err error) S {
	if err != nil {
		panic(fmt.Sprintf("shape: %v", err))
	}
	return shape
}

type snapshot struct {
	Positions []mgl64.Vec3
	Rotations []mgl64.Quat
}

func runScene(t *testing.T, num, n int) []snapshot {
	t.Helper()
	w, _ := newTestWorld(t, nil)
	bodies := addScene(t, w, num)

	var frames []snapshot
	for i := 0; i < n; i++ {
		w.Step(dt)
		var s snapshot
		for _, rb := range bodies {
			s.Positions = append(s.Positions, rb.Position())
			s.Rotations = append(s.Rotations, rb.Rotation())
		}
		frames = append(frames, s)
	}
	return frames
}

func TestDeterminism(t *testing.T) {
	first := runScene(t, 3, 120)
	second := runScene(t, 3, 120)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("two runs of the same scene diverged (-first +second):\n%s", diff)
	}
}

func TestPileSettles(t *testing.T) {
	if testing.Short() {
		t.Skip("large scene")
	}

	w, _ := newTestWorld(t, nil)
	bodies := addScene(t, w, 8)

	var sleeping int
	id := w.Events().NewSubscriber()
	w.Events().Subscribe(id, signal.BODY_DEACTIVATED, func(signal.Event) { sleeping++ })

	steps(w, 1200)

	moving := 0
	for _, rb := range bodies {
		p := rb.Position()
		if !finite(p) || !finite(rb.Velocity) {
			t.Fatalf("body %v diverged: %v", rb.Handle(), p)
		}
		if p.Y() < 0 {
			t.Errorf("body %v went through the ground: %v", rb.Handle(), p)
		}
		if vy := rb.Velocity.Y(); math.Abs(vy) >= 0.01 {
			t.Errorf("body %v at %v: vy = %v, want |vy| < 0.01", rb.Handle(), p, vy)
			moving++
		}
	}
	t.Logf("%d bodies, %d still moving, %d deactivations, kinetic energy %.4f", len(bodies), moving, sleeping, w.KineticEnergy())
}
