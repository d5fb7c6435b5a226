package constraint

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Joint is a persistent bilateral link between two bodies
type Joint interface {
	// Bodies returns the linked bodies; b is nil for a world anchor
	Bodies() (a, b *actor.RigidBody)
	// Update refreshes the world anchors from the body poses
	Update()
	// Rows appends the Jacobian rows of the joint
	Rows(rows []Row) []Row
}

// JointConstraint is the per-step view of a joint handed to the solver
type JointConstraint struct {
	Joint Joint
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
	Rows  []Row
}

func (c *JointConstraint) Bodies() (*actor.RigidBody, *actor.RigidBody) {
	return c.BodyA, c.BodyB
}

func (c *JointConstraint) constraint() {}

// ============================================================================
// Ball in socket
// ============================================================================

// BallInSocket pins a point of A to a point of B, leaving rotations free
type BallInSocket struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
	// Anchors in the local frame of each body; AnchorB is a world point when
	// BodyB is nil
	AnchorA mgl64.Vec3
	AnchorB mgl64.Vec3

	WorldAnchorA mgl64.Vec3
	WorldAnchorB mgl64.Vec3

	impulses [3]float64
}

// NewBallInSocket links a and b at the world point anchor. b may be nil.
func NewBallInSocket(a, b *actor.RigidBody, anchor mgl64.Vec3) *BallInSocket {
	j := &BallInSocket{
		BodyA:   a,
		BodyB:   b,
		AnchorA: a.Transform.InverseApply(anchor),
		AnchorB: anchor,
	}
	if b != nil {
		j.AnchorB = b.Transform.InverseApply(anchor)
	}
	j.Update()
	return j
}

func (j *BallInSocket) Bodies() (*actor.RigidBody, *actor.RigidBody) {
	return j.BodyA, j.BodyB
}

func (j *BallInSocket) Update() {
	j.WorldAnchorA = j.BodyA.Transform.Apply(j.AnchorA)
	j.WorldAnchorB = j.AnchorB
	if j.BodyB != nil {
		j.WorldAnchorB = j.BodyB.Transform.Apply(j.AnchorB)
	}
}

func (j *BallInSocket) Rows(rows []Row) []Row {
	return PointRows(rows, j.BodyA, j.BodyB, j.WorldAnchorA, j.WorldAnchorB, &j.impulses)
}

// ============================================================================
// Fixed
// ============================================================================

// Fixed welds two bodies: the anchors coincide and the relative orientation
// stays the one captured at creation.
type Fixed struct {
	BallInSocket

	// reference is qB⁻¹·qA at creation (world frame when BodyB is nil)
	reference mgl64.Quat
	angular   [3]float64
	// angularError is θ such that rotating the target orientation of A by θ
	// gives its current orientation
	angularError mgl64.Vec3
}

func NewFixed(a, b *actor.RigidBody, anchor mgl64.Vec3) *Fixed {
	j := &Fixed{BallInSocket: *NewBallInSocket(a, b, anchor)}
	j.reference = a.Transform.Rotation
	if b != nil {
		j.reference = b.Transform.Rotation.Conjugate().Mul(a.Transform.Rotation)
	}
	j.Update()
	return j
}

func (j *Fixed) Update() {
	j.BallInSocket.Update()

	target := j.reference
	if j.BodyB != nil {
		target = j.BodyB.Transform.Rotation.Mul(j.reference)
	}
	q := j.BodyA.Transform.Rotation.Mul(target.Conjugate()).Normalize()
	if q.W < 0 {
		q = mgl64.Quat{W: -q.W, V: q.V.Mul(-1)}
	}

	// Rotation vector of q
	s := q.V.Len()
	if s < 1e-12 {
		j.angularError = q.V.Mul(2)
		return
	}
	angle := 2 * math.Atan2(s, q.W)
	j.angularError = q.V.Mul(angle / s)
}

func (j *Fixed) Rows(rows []Row) []Row {
	rows = j.BallInSocket.Rows(rows)

	for i := 0; i < 3; i++ {
		var axis mgl64.Vec3
		axis[i] = 1

		rows = append(rows, Row{
			AngA:    axis,
			AngB:    axis.Mul(-1),
			Error:   j.angularError[i],
			Lower:   math.Inf(-1),
			Upper:   math.Inf(1),
			Impulse: &j.angular[i],
		})
	}

	return rows
}
