package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform represents a rigid pose in 3D space
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// NewTransformAt creates a transform translated to position, without rotation
func NewTransformAt(position mgl64.Vec3) Transform {
	return Transform{Position: position, Rotation: mgl64.QuatIdent()}
}

// Rotate applies the rotation part to a vector
func (t Transform) Rotate(v mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(v)
}

// InverseRotate applies the inverse rotation to a vector
func (t Transform) InverseRotate(v mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(v)
}

// Apply maps a local point to world space
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(p).Add(t.Position)
}

// InverseApply maps a world point to local space
func (t Transform) InverseApply(p mgl64.Vec3) mgl64.Vec3 {
	return t.InverseRotate(p.Sub(t.Position))
}

// Mul composes two transforms: the result applies other first, then t
func (t Transform) Mul(other Transform) Transform {
	return Transform{
		Position: t.Apply(other.Position),
		Rotation: t.Rotation.Mul(other.Rotation).Normalize(),
	}
}

func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()
	return Transform{
		Position: inv.Rotate(t.Position.Mul(-1)),
		Rotation: inv,
	}
}

// RotationMatrix returns the 3x3 rotation matrix of the transform
func (t Transform) RotationMatrix() mgl64.Mat3 {
	return t.Rotation.Mat4().Mat3()
}

// ExpMap returns the unit quaternion of the rotation vector omega*dt.
// Small angles fall back to the first order expansion.
func ExpMap(omega mgl64.Vec3, dt float64) mgl64.Quat {
	theta := omega.Mul(dt)
	angle := theta.Len()
	if angle < 1e-12 {
		return mgl64.Quat{W: 1.0, V: theta.Mul(0.5)}.Normalize()
	}

	half := angle * 0.5
	return mgl64.Quat{
		W: math.Cos(half),
		V: theta.Mul(math.Sin(half) / angle),
	}
}

// IntegrateRotation advances q by the angular velocity omega over dt using the
// exponential map, which keeps the quaternion on the unit sphere.
func IntegrateRotation(q mgl64.Quat, omega mgl64.Vec3, dt float64) mgl64.Quat {
	return ExpMap(omega, dt).Mul(q).Normalize()
}
