// Package resolution solves the constraints of a step with a sequential
// impulse solver on accumulated impulses.
package resolution

import (
	"math"
	"slices"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultRestitutionThreshold = 0.1
	DefaultWarmStartFactor      = 1.0
	DefaultVelocityIterations   = 10
	DefaultPositionIterations   = 10

	// epsilon is the effective mass under which a row is skipped
	epsilon = 1e-10
)

// CorrectionKind selects where the positional drift is corrected
type CorrectionKind int

const (
	// Velocity biases the velocity pass (Baumgarte), which adds energy
	Velocity CorrectionKind = iota
	// VelocityAndPosition corrects the drift in a separate pass on
	// pseudo-velocities, written to the poses only
	VelocityAndPosition
)

// CorrectionMode holds the drift correction of the solver
type CorrectionMode struct {
	Kind CorrectionKind
	// ContactFactor and JointFactor are the fractions of the error removed
	// per step, in [0, 1]
	ContactFactor float64
	JointFactor   float64
	// Penetration is the depth left uncorrected: only the depth beyond it is
	// removed, so resting contacts stay penetrating and keep their impulses
	Penetration float64
}

func NewVelocityCorrection(contactFactor, jointFactor, penetration float64) CorrectionMode {
	return CorrectionMode{Kind: Velocity, ContactFactor: contactFactor, JointFactor: jointFactor, Penetration: penetration}
}

func NewVelocityAndPositionCorrection(contactFactor, jointFactor, penetration float64) CorrectionMode {
	return CorrectionMode{Kind: VelocityAndPosition, ContactFactor: contactFactor, JointFactor: jointFactor, Penetration: penetration}
}

// DefaultCorrectionMode is the split correction with the shipped factors
func DefaultCorrectionMode() CorrectionMode {
	return NewVelocityAndPositionCorrection(0.2, 0.2, 0.08)
}

// solverBody is the working copy of a body for one step
type solverBody struct {
	body       *actor.RigidBody
	invMass    float64
	invInertia mgl64.Mat3
	// writable bodies receive impulses; static and sleeping ones only
	// contribute their mass
	writable bool

	// velocity, or pseudo-velocity during the position pass
	v mgl64.Vec3
	w mgl64.Vec3
	// velocity at the start of the step, before the external forces
	v0 mgl64.Vec3
	w0 mgl64.Vec3
}

type rowKind int

const (
	rowContact rowKind = iota
	rowFriction
	rowJoint
)

// row is a Jacobian row bound to its solver bodies. a or b is -1 for the
// world.
type row struct {
	kind rowKind
	a, b int

	constraint.Row

	// M⁻¹·Jᵀ
	linA, angA mgl64.Vec3
	linB, angB mgl64.Vec3
	// invK is 1 / (J·M⁻¹·Jᵀ), 0 for a singular row
	invK float64

	// target is the relative velocity aimed at by the velocity pass
	target      float64
	restitution float64
	// fresh contacts did not inherit an impulse from the previous step
	fresh bool
	// normal is the index of the contact row bounding a friction row
	normal   int
	friction float64

	// pseudo is the accumulated impulse of the position pass
	pseudo float64
}

// AccumulatedImpulseSolver is a sequential impulse solver: each iteration
// updates the accumulated impulse of every row in turn, clamped to its bounds.
// Accumulated impulses are kept by the constraints and warm start the next
// step.
type AccumulatedImpulseSolver struct {
	RestitutionThreshold float64
	Correction           CorrectionMode
	WarmStartFactor      float64
	VelocityIterations   int
	PositionIterations   int
	LinearDamping        float64
	AngularDamping       float64

	// damped holds the dynamic rigid bodies of the world
	damped []*actor.RigidBody

	// Scratch
	bodies []solverBody
	index  map[*actor.RigidBody]int
	rows   []row
}

func NewAccumulatedImpulseSolver(restitutionThreshold float64, correction CorrectionMode, warmStartFactor float64, velocityIterations, positionIterations int) *AccumulatedImpulseSolver {
	return &AccumulatedImpulseSolver{
		RestitutionThreshold: restitutionThreshold,
		Correction:           correction,
		WarmStartFactor:      warmStartFactor,
		VelocityIterations:   velocityIterations,
		PositionIterations:   positionIterations,
		index:                make(map[*actor.RigidBody]int),
	}
}

func (s *AccumulatedImpulseSolver) Priority() float64 { return 100 }

func (s *AccumulatedImpulseSolver) Add(body actor.Body) {
	if rb, ok := body.(*actor.RigidBody); ok && rb.CanMove() && !slices.Contains(s.damped, rb) {
		s.damped = append(s.damped, rb)
	}
}

func (s *AccumulatedImpulseSolver) Remove(body actor.Body) {
	rb, ok := body.(*actor.RigidBody)
	if !ok {
		return
	}
	if i := slices.Index(s.damped, rb); i >= 0 {
		s.damped = slices.Delete(s.damped, i, i+1)
	}
}

// Solve updates the velocities of the constrained bodies, then corrects their
// poses when the correction mode has a position pass.
func (s *AccumulatedImpulseSolver) Solve(dt float64, constraints []constraint.Constraint) {
	if dt <= 0 {
		return
	}

	s.applyDamping(dt)
	if len(constraints) == 0 {
		return
	}

	s.reset()
	s.build(constraints)
	if len(s.rows) == 0 {
		return
	}

	s.warmStart()
	s.computeTargets(dt)
	s.solveVelocities()
	s.writeVelocities()

	if s.Correction.Kind == VelocityAndPosition && s.PositionIterations > 0 {
		s.solvePositions(dt)
		s.writePositions(dt)
	}
}

func (s *AccumulatedImpulseSolver) reset() {
	s.bodies = s.bodies[:0]
	s.rows = s.rows[:0]
	clear(s.index)
}

// applyDamping scales the velocities of the awake bodies by 1/(1 + c·dt)
func (s *AccumulatedImpulseSolver) applyDamping(dt float64) {
	if s.LinearDamping <= 0 && s.AngularDamping <= 0 {
		return
	}
	linear := 1 / (1 + math.Max(s.LinearDamping, 0)*dt)
	angular := 1 / (1 + math.Max(s.AngularDamping, 0)*dt)

	for _, body := range s.damped {
		if !body.IsActive() {
			continue
		}
		body.Velocity = body.Velocity.Mul(linear)
		body.AngularVelocity = body.AngularVelocity.Mul(angular)
	}
}

// ============================================================================
// Setup
// ============================================================================

func (s *AccumulatedImpulseSolver) bodyIndex(body *actor.RigidBody) int {
	if body == nil {
		return -1
	}
	if i, ok := s.index[body]; ok {
		return i
	}

	sb := solverBody{
		body:     body,
		writable: body.CanMove() && body.IsActive(),
		v:        body.Velocity,
		w:        body.AngularVelocity,
	}
	if body.CanMove() {
		sb.invMass = body.InvMass()
		sb.invInertia = body.InvInertiaWorld()
	}
	if sb.writable {
		sb.v0, sb.w0 = body.PreviousVelocity, body.PreviousAngularVelocity
	} else {
		sb.v, sb.w = mgl64.Vec3{}, mgl64.Vec3{}
	}

	i := len(s.bodies)
	s.bodies = append(s.bodies, sb)
	s.index[body] = i
	return i
}

func isActive(body *actor.RigidBody) bool {
	return body != nil && body.IsActive()
}

func (s *AccumulatedImpulseSolver) build(constraints []constraint.Constraint) {
	for _, c := range constraints {
		a, b := c.Bodies()
		if !isActive(a) && !isActive(b) {
			continue
		}
		ia, ib := s.bodyIndex(a), s.bodyIndex(b)

		switch c := c.(type) {
		case *constraint.ContactConstraint:
			s.addContact(c, ia, ib)
		case *constraint.JointConstraint:
			for _, r := range c.Rows {
				s.addRow(row{kind: rowJoint, a: ia, b: ib, Row: r})
			}
		}
	}
}

func (s *AccumulatedImpulseSolver) addContact(c *constraint.ContactConstraint, ia, ib int) {
	contact := c.Contact
	p := contact.Midpoint()
	n := contact.Normal
	rA := p.Sub(s.bodies[ia].body.Transform.Position)
	rB := p.Sub(s.bodies[ib].body.Transform.Position)

	normal := len(s.rows)
	s.addRow(row{
		kind: rowContact,
		a:    ia,
		b:    ib,
		Row: constraint.Row{
			LinA:    n,
			AngA:    rA.Cross(n),
			LinB:    n.Mul(-1),
			AngB:    rB.Cross(n).Mul(-1),
			Error:   -contact.Depth,
			Lower:   0,
			Upper:   math.Inf(1),
			Impulse: &contact.NormalImpulse,
		},
		restitution: c.Restitution(),
		fresh:       contact.NormalImpulse == 0,
	})

	mu := c.Friction()
	t1, t2 := actor.TangentBasis(n)
	for i, t := range [2]mgl64.Vec3{t1, t2} {
		s.addRow(row{
			kind: rowFriction,
			a:    ia,
			b:    ib,
			Row: constraint.Row{
				LinA:    t,
				AngA:    rA.Cross(t),
				LinB:    t.Mul(-1),
				AngB:    rB.Cross(t).Mul(-1),
				Impulse: &contact.TangentImpulse[i],
			},
			normal:   normal,
			friction: mu,
		})
	}
}

// addRow precomputes M⁻¹·Jᵀ and the effective mass of r
func (s *AccumulatedImpulseSolver) addRow(r row) {
	k := 0.0
	if r.a >= 0 {
		body := &s.bodies[r.a]
		r.linA = r.LinA.Mul(body.invMass)
		r.angA = body.invInertia.Mul3x1(r.AngA)
		k += r.LinA.Dot(r.linA) + r.AngA.Dot(r.angA)
	}
	if r.b >= 0 {
		body := &s.bodies[r.b]
		r.linB = r.LinB.Mul(body.invMass)
		r.angB = body.invInertia.Mul3x1(r.AngB)
		k += r.LinB.Dot(r.linB) + r.AngB.Dot(r.angB)
	}
	if k > epsilon {
		r.invK = 1 / k
	}
	s.rows = append(s.rows, r)
}

// ============================================================================
// Velocity pass
// ============================================================================

// approach evaluates J·v on the velocities the bodies entered the step with
func (s *AccumulatedImpulseSolver) approach(r *row) float64 {
	v := 0.0
	if r.a >= 0 {
		body := &s.bodies[r.a]
		v += r.LinA.Dot(body.v0) + r.AngA.Dot(body.w0)
	}
	if r.b >= 0 {
		body := &s.bodies[r.b]
		v += r.LinB.Dot(body.v0) + r.AngB.Dot(body.w0)
	}
	return v
}

// velocity evaluates J·v on the working velocities
func (s *AccumulatedImpulseSolver) velocity(r *row) float64 {
	v := 0.0
	if r.a >= 0 {
		body := &s.bodies[r.a]
		v += r.LinA.Dot(body.v) + r.AngA.Dot(body.w)
	}
	if r.b >= 0 {
		body := &s.bodies[r.b]
		v += r.LinB.Dot(body.v) + r.AngB.Dot(body.w)
	}
	return v
}

// apply adds M⁻¹·Jᵀ·impulse to the writable bodies of r
func (s *AccumulatedImpulseSolver) apply(r *row, impulse float64) {
	if r.a >= 0 && s.bodies[r.a].writable {
		body := &s.bodies[r.a]
		body.v = body.v.Add(r.linA.Mul(impulse))
		body.w = body.w.Add(r.angA.Mul(impulse))
	}
	if r.b >= 0 && s.bodies[r.b].writable {
		body := &s.bodies[r.b]
		body.v = body.v.Add(r.linB.Mul(impulse))
		body.w = body.w.Add(r.angB.Mul(impulse))
	}
}

func (s *AccumulatedImpulseSolver) bounds(r *row) (float64, float64) {
	if r.kind == rowFriction {
		limit := r.friction * *s.rows[r.normal].Impulse
		return -limit, limit
	}
	return r.Lower, r.Upper
}

func (s *AccumulatedImpulseSolver) warmStart() {
	factor := math.Max(s.WarmStartFactor, 0)

	for i := range s.rows {
		r := &s.rows[i]
		if r.invK == 0 || factor == 0 {
			*r.Impulse = 0
			continue
		}
		*r.Impulse *= factor
		s.apply(r, *r.Impulse)
	}
}

// computeTargets sets the velocity aimed at by each row: the restitution
// bounce of new contacts, plus the Baumgarte bias in Velocity mode.
//
// The bounce only applies on the first step of a contact and is computed
// from the velocities before the external forces of the step: a resting
// contact sees gravity as an approach of g·dt every step.
func (s *AccumulatedImpulseSolver) computeTargets(dt float64) {
	bias := s.Correction.Kind == Velocity

	for i := range s.rows {
		r := &s.rows[i]
		switch r.kind {
		case rowContact:
			r.target = 0
			if vn := s.approach(r); r.fresh && vn < -s.RestitutionThreshold {
				r.target = -r.restitution * vn
			}
			if bias {
				depth := -r.Error - s.Correction.Penetration
				r.target = math.Max(r.target, s.Correction.ContactFactor*math.Max(depth, 0)/dt)
			}
		case rowJoint:
			r.target = 0
			if bias {
				r.target = -s.Correction.JointFactor * r.Error / dt
			}
		default:
			r.target = 0
		}
	}
}

func (s *AccumulatedImpulseSolver) solveVelocities() {
	for range s.VelocityIterations {
		for i := range s.rows {
			r := &s.rows[i]
			if r.invK == 0 {
				continue
			}

			delta := -(s.velocity(r) - r.target) * r.invK
			lower, upper := s.bounds(r)
			old := *r.Impulse
			*r.Impulse = clamp(old+delta, lower, upper)
			s.apply(r, *r.Impulse-old)
		}
	}
}

func (s *AccumulatedImpulseSolver) writeVelocities() {
	for i := range s.bodies {
		body := &s.bodies[i]
		if !body.writable {
			continue
		}
		body.body.Velocity = body.v
		body.body.AngularVelocity = body.w
	}
}

// ============================================================================
// Position pass
// ============================================================================

// solvePositions runs the drift correction on pseudo-velocities starting at
// rest. Each iteration removes the fraction β of the remaining error C, where
// C is extrapolated from the pseudo-velocities over dt.
func (s *AccumulatedImpulseSolver) solvePositions(dt float64) {
	for i := range s.bodies {
		s.bodies[i].v = mgl64.Vec3{}
		s.bodies[i].w = mgl64.Vec3{}
	}
	for i := range s.rows {
		s.rows[i].pseudo = 0
	}

	for range s.PositionIterations {
		for i := range s.rows {
			r := &s.rows[i]
			if r.invK == 0 || r.kind == rowFriction {
				continue
			}

			var beta, c0 float64
			if r.kind == rowContact {
				beta = s.Correction.ContactFactor
				c0 = math.Min(r.Error+s.Correction.Penetration, 0)
			} else {
				beta = s.Correction.JointFactor
				c0 = r.Error
			}

			c := c0 + dt*s.velocity(r)
			delta := -beta * c / dt * r.invK

			old := r.pseudo
			r.pseudo = old + delta
			if r.kind == rowContact {
				r.pseudo = math.Max(r.pseudo, 0)
			}
			s.apply(r, r.pseudo-old)
		}
	}
}

func (s *AccumulatedImpulseSolver) writePositions(dt float64) {
	for i := range s.bodies {
		body := &s.bodies[i]
		if !body.writable {
			continue
		}
		if body.v == (mgl64.Vec3{}) && body.w == (mgl64.Vec3{}) {
			continue
		}

		t := &body.body.Transform
		t.Position = t.Position.Add(body.v.Mul(dt))
		t.Rotation = actor.IntegrateRotation(t.Rotation, body.w, dt)
		body.body.UpdateAABB()
	}
}

func clamp(v, lower, upper float64) float64 {
	return math.Max(lower, math.Min(v, upper))
}
