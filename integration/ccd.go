package integration

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultCCDEpsilon         = 0.01
	DefaultCCDMaxIterations   = 4
	DefaultCCDMotionThreshold = 0.5

	// advancementIterations bounds the conservative advancement against one
	// candidate
	advancementIterations = 32
	// contactDistance ends the advancement
	contactDistance = 1e-4
)

// BroadPhase is the part of the broad phase used by the swept ball: the tree
// maintenance calls and a box query.
type BroadPhase interface {
	Add(body actor.Body)
	Remove(body actor.Body)
	Update()
	InterferencesWithAABB(aabb actor.AABB, out *[]actor.Body)
}

// SweptBallMotionClamping prevents fast bodies from tunnelling. Each step the
// translation of a body flagged CCD is swept with its bounding ball against
// the broad phase; on a time of impact t in (0, 1] the body is moved back to
// max(0, t-Epsilon) of its motion.
type SweptBallMotionClamping struct {
	// Epsilon is removed from the time of impact
	Epsilon float64
	// MaxIterations bounds the sweeps of one body in one step
	MaxIterations int
	// MotionThreshold is the motion, relative to the bounding radius, under
	// which a body is not swept
	MotionThreshold float64

	broad        BroadPhase
	maintainTree bool

	bodies     bodyList
	starts     []mgl64.Vec3
	candidates []actor.Body
	simplex    *gjk.JohnsonSimplex
}

// NewSweptBallMotionClamping creates the CCD integrator on top of bf. When
// maintainTree is set, it owns the Add, Remove and Update calls of bf.
func NewSweptBallMotionClamping(bf BroadPhase, maintainTree bool) *SweptBallMotionClamping {
	return &SweptBallMotionClamping{
		Epsilon:         DefaultCCDEpsilon,
		MaxIterations:   DefaultCCDMaxIterations,
		MotionThreshold: DefaultCCDMotionThreshold,
		broad:           bf,
		maintainTree:    maintainTree,
		simplex:         gjk.NewJohnsonSimplex(),
	}
}

func (c *SweptBallMotionClamping) Priority() float64 { return 20 }

func (c *SweptBallMotionClamping) Add(body actor.Body) {
	if c.maintainTree {
		c.broad.Add(body)
	}
	if c.bodies.add(body) {
		c.starts = append(c.starts, mgl64.Vec3{})
	}
}

func (c *SweptBallMotionClamping) Remove(body actor.Body) {
	if c.maintainTree {
		c.broad.Remove(body)
	}
	if i := c.bodies.remove(body); i >= 0 {
		c.starts = append(c.starts[:i], c.starts[i+1:]...)
	}
}

// Update refreshes the tree and records the positions the sweeps start from
func (c *SweptBallMotionClamping) Update(dt float64) {
	if c.maintainTree {
		c.broad.Update()
	}
	for i, body := range c.bodies.bodies {
		c.starts[i] = body.Position()
	}
}

// UpdatePosition runs after the Euler integrator has moved the bodies
func (c *SweptBallMotionClamping) UpdatePosition(dt float64) {
	for i, body := range c.bodies.bodies {
		if !body.CCD || !body.IsActive() {
			continue
		}
		c.clamp(body, c.starts[i])
	}
}

func (c *SweptBallMotionClamping) clamp(body *actor.RigidBody, start mgl64.Vec3) {
	radius := body.Shape().BoundingRadius()

	for iteration := 0; iteration < c.MaxIterations; iteration++ {
		motion := body.Position().Sub(start)
		length := motion.Len()
		if length <= c.MotionThreshold*radius {
			return
		}

		toi, hit := c.firstImpact(body, start, motion, radius)
		if !hit {
			return
		}

		body.SetPosition(start.Add(motion.Mul(math.Max(0, toi-c.Epsilon))))

		// Drop the velocity that drove the ball into the obstacle
		direction := motion.Mul(1.0 / length)
		if along := body.Velocity.Dot(direction); along > 0 {
			body.Velocity = body.Velocity.Sub(direction.Mul(along))
		}
	}
}

// firstImpact returns the smallest time of impact in (0, 1] of the ball
// swept from start along motion, against the bodies around the sweep.
func (c *SweptBallMotionClamping) firstImpact(body *actor.RigidBody, start, motion mgl64.Vec3, radius float64) (float64, bool) {
	end := start.Add(motion)
	r := mgl64.Vec3{radius, radius, radius}
	sweep := actor.AABB{Min: start.Sub(r), Max: start.Add(r)}.
		Merge(actor.AABB{Min: end.Sub(r), Max: end.Add(r)})

	c.candidates = c.candidates[:0]
	c.broad.InterferencesWithAABB(sweep, &c.candidates)

	best, found := 1.0, false
	for _, candidate := range c.candidates {
		other, ok := candidate.(*actor.RigidBody)
		if !ok || other == body {
			continue
		}
		if t, hit := c.timeOfImpact(start, motion, radius, other); hit && t <= best {
			best, found = t, true
		}
	}
	return best, found
}

// timeOfImpact sweeps a ball against one body. A ball overlapping the body at
// the start never hits it.
func (c *SweptBallMotionClamping) timeOfImpact(start, motion mgl64.Vec3, radius float64, other *actor.RigidBody) (float64, bool) {
	switch shape := other.Shape().(type) {
	case *actor.Plane:
		normal := other.Transform.Rotate(shape.Normal)
		gap := start.Sub(other.Position()).Dot(normal) - radius
		approach := -motion.Dot(normal)
		if gap <= 0 || approach <= 0 || gap > approach {
			return 0, false
		}
		return gap / approach, true

	case *actor.Ball:
		return sweptBalls(start.Sub(other.Position()), motion, radius+shape.Radius)
	}

	// Conservative advancement: the distance is convex along the sweep, so
	// Newton steps never overshoot the impact
	posed := gjk.Posed{Shape: other.Shape(), Transform: other.Transform}
	t := 0.0
	for i := 0; i < advancementIterations; i++ {
		center := start.Add(motion.Mul(t))
		closest, dist, outside := gjk.ClosestPoint(posed, center, c.simplex)
		if !outside {
			return t, t > 0
		}

		gap := dist - radius
		if gap <= 0 {
			return t, t > 0
		}
		if gap < contactDistance {
			return t, true
		}

		approach := motion.Dot(closest.Sub(center).Mul(1.0 / dist))
		if approach <= 1e-12 {
			return 0, false
		}
		t += gap / approach
		if t > 1 {
			return 0, false
		}
	}
	return t, t > 0
}

// sweptBalls solves |offset + motion·t| = radius for the first t in (0, 1]
func sweptBalls(offset, motion mgl64.Vec3, radius float64) (float64, bool) {
	c := offset.LenSqr() - radius*radius
	if c <= 0 {
		return 0, false
	}
	a := motion.LenSqr()
	b := offset.Dot(motion)
	if a < 1e-24 || b >= 0 {
		return 0, false
	}
	disc := b*b - a*c
	if disc < 0 {
		return 0, false
	}
	t := (-b - math.Sqrt(disc)) / a
	if t > 1 {
		return 0, false
	}
	return t, true
}
