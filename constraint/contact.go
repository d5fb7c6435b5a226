package constraint

import (
	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Contact is a single contact point. Points are in world space, Normal points
// from body B towards body A and Depth is positive when penetrating.
type Contact struct {
	WorldA mgl64.Vec3
	WorldB mgl64.Vec3
	Normal mgl64.Vec3
	Depth  float64

	// Accumulated impulses, warm started across frames
	NormalImpulse  float64
	TangentImpulse [2]float64
}

// Midpoint is where impulses are applied
func (c *Contact) Midpoint() mgl64.Vec3 {
	return c.WorldA.Add(c.WorldB).Mul(0.5)
}

// Flip swaps the roles of A and B
func (c *Contact) Flip() {
	c.WorldA, c.WorldB = c.WorldB, c.WorldA
	c.Normal = c.Normal.Mul(-1)
}

// ContactConstraint couples two rigid bodies through one contact. Contact is
// owned by the narrow phase: the solver writes its accumulated impulses back
// so the next step can warm start from them.
type ContactConstraint struct {
	BodyA   *actor.RigidBody
	BodyB   *actor.RigidBody
	Contact *Contact
}

func (c *ContactConstraint) Bodies() (*actor.RigidBody, *actor.RigidBody) {
	return c.BodyA, c.BodyB
}

func (c *ContactConstraint) constraint() {}

// Restitution and Friction combine the two body materials
func (c *ContactConstraint) Restitution() float64 {
	return ComputeRestitution(c.BodyA.Material, c.BodyB.Material)
}

func (c *ContactConstraint) Friction() float64 {
	return ComputeFriction(c.BodyA.Material, c.BodyB.Material)
}
