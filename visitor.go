package impulse

import "github.com/akmonengine/impulse/actor"

// ShapeVisitor receives the rigid bodies of a world with their concrete
// shape, typically to build their graphical counterpart.
type ShapeVisitor interface {
	AddPlane(body *actor.RigidBody, plane *actor.Plane)
	AddCube(body *actor.RigidBody, box *actor.Box)
	AddBall(body *actor.RigidBody, ball *actor.Ball)
	AddCylinder(body *actor.RigidBody, cylinder *actor.Cylinder)
	AddCone(body *actor.RigidBody, cone *actor.Cone)
}

// VisitShapes dispatches every rigid body to v in handle order. Soft bodies
// have no shape and are skipped.
func (w *World) VisitShapes(v ShapeVisitor) {
	w.bodies.Each(func(_ actor.Handle, body actor.Body) {
		rb, ok := body.(*actor.RigidBody)
		if !ok {
			return
		}

		switch shape := rb.Shape().(type) {
		case *actor.Plane:
			v.AddPlane(rb, shape)
		case *actor.Box:
			v.AddCube(rb, shape)
		case *actor.Ball:
			v.AddBall(rb, shape)
		case *actor.Cylinder:
			v.AddCylinder(rb, shape)
		case *actor.Cone:
			v.AddCone(rb, shape)
		}
	})
}

// KineticEnergy sums the kinetic energy of the rigid bodies
func (w *World) KineticEnergy() float64 {
	total := 0.0
	w.bodies.Each(func(_ actor.Handle, body actor.Body) {
		if rb, ok := body.(*actor.RigidBody); ok {
			total += rb.KineticEnergy()
		}
	})
	return total
}
