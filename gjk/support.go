package gjk

import (
	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Supporter is a convex set placed in world space
type Supporter interface {
	SupportWorld(direction mgl64.Vec3) mgl64.Vec3
}

// Posed places a shape at a transform without needing a body
type Posed struct {
	Shape     actor.Shape
	Transform actor.Transform
}

func (p Posed) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	local := p.Shape.Support(p.Transform.InverseRotate(direction))
	return p.Transform.Apply(local)
}

// Point is a degenerate convex set reduced to a single world point
type Point mgl64.Vec3

func (p Point) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3(p)
}

// SupportPoint is a vertex of the Minkowski difference A - B annotated with the
// points of A and B that produced it.
type SupportPoint struct {
	Point mgl64.Vec3
	A     mgl64.Vec3
	B     mgl64.Vec3
}

// MinkowskiSupport computes a support point in the Minkowski difference (A - B).
//
// Returns:
//
//	Support point: furthestPoint(A, direction) - furthestPoint(B, -direction)
func MinkowskiSupport(a, b Supporter, direction mgl64.Vec3) SupportPoint {
	supportA := a.SupportWorld(direction)
	supportB := b.SupportWorld(direction.Mul(-1))
	return SupportPoint{
		Point: supportA.Sub(supportB),
		A:     supportA,
		B:     supportB,
	}
}
