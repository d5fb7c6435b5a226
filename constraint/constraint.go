// Package constraint holds the per-step constraints emitted by detectors and
// consumed by solvers: contacts between two rigid bodies and joints.
package constraint

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Constraint is either a *ContactConstraint or a *JointConstraint. It lives
// for a single step.
type Constraint interface {
	// Bodies returns the two constrained bodies. b is nil for a joint
	// anchored to the world.
	Bodies() (a, b *actor.RigidBody)
	constraint()
}

// ComputeRestitution averages the restitution of two materials
func ComputeRestitution(matA, matB actor.Material) float64 {
	return (matA.Restitution + matB.Restitution) / 2.0
}

// ComputeFriction is the geometric mean of the two frictions
func ComputeFriction(matA, matB actor.Material) float64 {
	return math.Sqrt(matA.Friction * matB.Friction)
}

// Row is one bilateral or unilateral Jacobian row acting on two bodies.
// The row constrains C(x) with dC/dt = LinA·vA + AngA·ωA + LinB·vB + AngB·ωB.
type Row struct {
	LinA mgl64.Vec3
	AngA mgl64.Vec3
	LinB mgl64.Vec3
	AngB mgl64.Vec3

	// Error is the current value of C(x); bilateral rows drive it to zero
	Error float64

	// Lower and Upper bound the accumulated impulse
	Lower float64
	Upper float64

	// Impulse is the accumulated impulse, kept by the owner across steps
	Impulse *float64
}

// Velocity evaluates J·v for the current body velocities
func (r *Row) Velocity(a, b *actor.RigidBody) float64 {
	v := 0.0
	if a != nil {
		v += r.LinA.Dot(a.Velocity) + r.AngA.Dot(a.AngularVelocity)
	}
	if b != nil {
		v += r.LinB.Dot(b.Velocity) + r.AngB.Dot(b.AngularVelocity)
	}
	return v
}

// PointRows appends three rows along the world axes constraining the
// relative velocity of pA (on a) and pB (on b) to zero.
func PointRows(rows []Row, a, b *actor.RigidBody, pA, pB mgl64.Vec3, impulses *[3]float64) []Row {
	var rA, rB mgl64.Vec3
	if a != nil {
		rA = pA.Sub(a.Transform.Position)
	}
	if b != nil {
		rB = pB.Sub(b.Transform.Position)
	}
	diff := pA.Sub(pB)

	for i := 0; i < 3; i++ {
		var axis mgl64.Vec3
		axis[i] = 1

		rows = append(rows, Row{
			LinA:    axis,
			AngA:    rA.Cross(axis),
			LinB:    axis.Mul(-1),
			AngB:    rB.Cross(axis).Mul(-1),
			Error:   diff[i],
			Lower:   math.Inf(-1),
			Upper:   math.Inf(1),
			Impulse: &impulses[i],
		})
	}

	return rows
}
