package actor

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite mass
	// They are not affected by forces or gravity (e.g., ground, walls)
	BodyTypeStatic
)

func (t BodyType) String() string {
	if t == BodyTypeStatic {
		return "static"
	}
	return "dynamic"
}

type Material struct {
	Restitution float64 // 0= no rebound, 1= perfect restitution
	Friction    float64
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	handle Handle

	Transform Transform

	// Linear motion
	Velocity mgl64.Vec3 // Linear velocity (m/s)
	// Angular motion
	AngularVelocity mgl64.Vec3 // rad/s

	// Velocities at the end of the previous step, before external forces
	PreviousVelocity        mgl64.Vec3
	PreviousAngularVelocity mgl64.Vec3

	Material Material
	BodyType BodyType

	// CCD enables swept-ball motion clamping for this body
	CCD bool

	UserData any

	shape Shape

	mass              float64
	invMass           float64
	inertiaLocal      mgl64.Mat3
	invInertiaLocal   mgl64.Mat3
	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3
	activation        Activation
	energy            float64
	lowEnergySteps    int
	wakeRequested     bool
	aabb              AABB
}

// NewRigidBody creates a body at the origin. mass is ignored for static bodies.
func NewRigidBody(shape Shape, mass float64, bodyType BodyType, restitution, friction float64) (*RigidBody, error) {
	if shape == nil {
		return nil, fmt.Errorf("nil shape: %w", ErrDegenerateShape)
	}
	if restitution < 0 || restitution > 1 || math.IsNaN(restitution) {
		return nil, fmt.Errorf("restitution %v: %w", restitution, ErrInvalidMaterial)
	}
	if !(friction >= 0) {
		return nil, fmt.Errorf("friction %v: %w", friction, ErrInvalidMaterial)
	}

	rb := &RigidBody{
		Transform: NewTransform(),
		Material:  Material{Restitution: restitution, Friction: friction},
		BodyType:  bodyType,
		shape:     shape,
	}

	if bodyType == BodyTypeStatic {
		rb.activation = Inactive
	} else {
		if shape.Type() == ShapeTypePlane {
			return nil, fmt.Errorf("%s shape: %w", shape.Type(), ErrStaticOnly)
		}
		if !(mass > 0) || math.IsInf(mass, 1) {
			return nil, fmt.Errorf("mass %v: %w", mass, ErrInvalidMass)
		}

		rb.mass = mass
		rb.invMass = 1.0 / mass
		rb.inertiaLocal = shape.ComputeInertia(mass)
		rb.invInertiaLocal = rb.inertiaLocal.Inv()
		rb.activation = Active
	}

	rb.UpdateAABB()

	return rb, nil
}

func (rb *RigidBody) body() {}

func (rb *RigidBody) Handle() Handle     { return rb.handle }
func (rb *RigidBody) SetHandle(h Handle) { rb.handle = h }
func (rb *RigidBody) Shape() Shape       { return rb.shape }
func (rb *RigidBody) AABB() AABB         { return rb.aabb }

func (rb *RigidBody) UpdateAABB() AABB {
	rb.aabb = rb.shape.ComputeAABB(rb.Transform)
	return rb.aabb
}

func (rb *RigidBody) CanMove() bool {
	return rb.BodyType == BodyTypeDynamic
}

func (rb *RigidBody) IsActive() bool {
	return rb.activation != Inactive
}

func (rb *RigidBody) IsStatic() bool {
	return rb.BodyType == BodyTypeStatic
}

// Mass returns +Inf for static bodies
func (rb *RigidBody) Mass() float64 {
	if rb.BodyType == BodyTypeStatic {
		return math.Inf(1)
	}
	return rb.mass
}

func (rb *RigidBody) InvMass() float64            { return rb.invMass }
func (rb *RigidBody) InertiaLocal() mgl64.Mat3    { return rb.inertiaLocal }
func (rb *RigidBody) InvInertiaLocal() mgl64.Mat3 { return rb.invInertiaLocal }

// InertiaWorld returns R * I_local * R^T
func (rb *RigidBody) InertiaWorld() mgl64.Mat3 {
	r := rb.Transform.RotationMatrix()
	return r.Mul3(rb.inertiaLocal).Mul3(r.Transpose())
}

// InvInertiaWorld returns R * I_local^-1 * R^T, zero for static bodies
func (rb *RigidBody) InvInertiaWorld() mgl64.Mat3 {
	if rb.BodyType == BodyTypeStatic {
		return mgl64.Mat3{}
	}
	r := rb.Transform.RotationMatrix()
	return r.Mul3(rb.invInertiaLocal).Mul3(r.Transpose())
}

func (rb *RigidBody) Position() mgl64.Vec3 { return rb.Transform.Position }
func (rb *RigidBody) Rotation() mgl64.Quat { return rb.Transform.Rotation }

func (rb *RigidBody) SetTransform(transform Transform) {
	rb.Transform = transform
	rb.Transform.Rotation = rb.Transform.Rotation.Normalize()
	rb.UpdateAABB()
}

func (rb *RigidBody) SetPosition(position mgl64.Vec3) {
	rb.Transform.Position = position
	rb.UpdateAABB()
}

func (rb *RigidBody) SetRotation(rotation mgl64.Quat) {
	rb.Transform.Rotation = rotation.Normalize()
	rb.UpdateAABB()
}

// TranslateBy moves the body by offset in world space
func (rb *RigidBody) TranslateBy(offset mgl64.Vec3) {
	rb.SetPosition(rb.Transform.Position.Add(offset))
}

// RotateBy applies rotation on top of the current orientation
func (rb *RigidBody) RotateBy(rotation mgl64.Quat) {
	rb.SetRotation(rotation.Mul(rb.Transform.Rotation))
}

// SetVelocity is a no-op on static bodies
func (rb *RigidBody) SetVelocity(velocity mgl64.Vec3) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	rb.Velocity = velocity
}

func (rb *RigidBody) SetAngularVelocity(velocity mgl64.Vec3) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	rb.AngularVelocity = velocity
}

// VelocityAt returns the velocity of the world point attached to the body
func (rb *RigidBody) VelocityAt(point mgl64.Vec3) mgl64.Vec3 {
	r := point.Sub(rb.Transform.Position)
	return rb.Velocity.Add(rb.AngularVelocity.Cross(r))
}

// AddForce accumulates a world force applied at the centre of mass, in N
func (rb *RigidBody) AddForce(force mgl64.Vec3) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	rb.accumulatedForce = rb.accumulatedForce.Add(force)
	rb.WakeUp()
}

// AddTorque accumulates a world torque, in N⋅m
func (rb *RigidBody) AddTorque(torque mgl64.Vec3) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
	rb.WakeUp()
}

// AddForceAtPoint accumulates a force applied at a world point
func (rb *RigidBody) AddForceAtPoint(force, point mgl64.Vec3) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	r := point.Sub(rb.Transform.Position)
	rb.accumulatedForce = rb.accumulatedForce.Add(force)
	rb.accumulatedTorque = rb.accumulatedTorque.Add(r.Cross(force))
	rb.WakeUp()
}

// ApplyImpulse changes the velocities immediately as if the impulse was
// applied at a world point
func (rb *RigidBody) ApplyImpulse(impulse, point mgl64.Vec3) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	r := point.Sub(rb.Transform.Position)
	rb.Velocity = rb.Velocity.Add(impulse.Mul(rb.invMass))
	rb.AngularVelocity = rb.AngularVelocity.Add(rb.InvInertiaWorld().Mul3x1(r.Cross(impulse)))
	rb.WakeUp()
}

func (rb *RigidBody) Force() mgl64.Vec3  { return rb.accumulatedForce }
func (rb *RigidBody) Torque() mgl64.Vec3 { return rb.accumulatedTorque }

func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{0, 0, 0}
	rb.accumulatedTorque = mgl64.Vec3{0, 0, 0}
}

// SupportWorld returns the furthest world point of the shape in direction
func (rb *RigidBody) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	localDirection := rb.Transform.InverseRotate(direction)
	return rb.Transform.Apply(rb.shape.Support(localDirection))
}

// KineticEnergy returns ½(m·v² + ωᵀ·I·ω) for the current velocities
func (rb *RigidBody) KineticEnergy() float64 {
	return rb.kineticEnergy(rb.Velocity, rb.AngularVelocity)
}

// PreviousKineticEnergy uses the velocities left by the previous step
func (rb *RigidBody) PreviousKineticEnergy() float64 {
	return rb.kineticEnergy(rb.PreviousVelocity, rb.PreviousAngularVelocity)
}

func (rb *RigidBody) kineticEnergy(v, w mgl64.Vec3) float64 {
	if rb.BodyType == BodyTypeStatic {
		return 0
	}
	return 0.5 * (rb.mass*v.LenSqr() + w.Dot(rb.InertiaWorld().Mul3x1(w)))
}

// ============================================================================
// Activation
// ============================================================================

func (rb *RigidBody) Activation() Activation {
	return rb.activation
}

// SetAlwaysActive prevents the body from ever falling asleep
func (rb *RigidBody) SetAlwaysActive(always bool) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	if always {
		rb.activation = AlwaysActive
	} else if rb.activation == AlwaysActive {
		rb.activation = Active
	}
}

// Activate wakes the body and resets its sleep energy
func (rb *RigidBody) Activate(energy float64) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	if rb.activation == Inactive {
		rb.activation = Active
	}
	rb.energy = energy
	rb.lowEnergySteps = 0
	rb.wakeRequested = false
}

// Deactivate puts the body to sleep: velocities and forces are dropped
func (rb *RigidBody) Deactivate() {
	if rb.activation == AlwaysActive {
		return
	}
	rb.activation = Inactive
	rb.lowEnergySteps = 0
	rb.Velocity = mgl64.Vec3{}
	rb.AngularVelocity = mgl64.Vec3{}
	rb.PreviousVelocity = mgl64.Vec3{}
	rb.PreviousAngularVelocity = mgl64.Vec3{}
	rb.ClearForces()
}

// WakeUp asks the activation manager to wake the body on the next step
func (rb *RigidBody) WakeUp() {
	if rb.activation == Inactive && rb.BodyType == BodyTypeDynamic {
		rb.wakeRequested = true
	}
}

// TakeWakeRequest reports and clears a pending WakeUp
func (rb *RigidBody) TakeWakeRequest() bool {
	requested := rb.wakeRequested
	rb.wakeRequested = false
	return requested
}

// Energy is the moving average used by the sleep heuristic
func (rb *RigidBody) Energy() float64 {
	return rb.energy
}

func (rb *RigidBody) SetEnergy(energy float64) {
	rb.energy = energy
}

// LowEnergySteps counts consecutive steps spent below the sleep threshold
func (rb *RigidBody) LowEnergySteps() int {
	return rb.lowEnergySteps
}

func (rb *RigidBody) SetLowEnergySteps(steps int) {
	rb.lowEnergySteps = steps
}
