package integration

import (
	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultMaxLinearVelocity  = 2000.0
	DefaultMaxAngularVelocity = 100.0
)

// SemiImplicitEuler integrates velocities from the accumulated forces before
// the constraints are solved, and poses from the solved velocities after.
type SemiImplicitEuler struct {
	// MaxLinearVelocity and MaxAngularVelocity clamp the velocities; zero
	// disables the clamp
	MaxLinearVelocity  float64
	MaxAngularVelocity float64

	bodies bodyList
}

func NewSemiImplicitEuler(maxLinearVelocity, maxAngularVelocity float64) *SemiImplicitEuler {
	return &SemiImplicitEuler{
		MaxLinearVelocity:  maxLinearVelocity,
		MaxAngularVelocity: maxAngularVelocity,
	}
}

func (e *SemiImplicitEuler) Priority() float64 { return 10 }

func (e *SemiImplicitEuler) Add(body actor.Body)    { e.bodies.add(body) }
func (e *SemiImplicitEuler) Remove(body actor.Body) { e.bodies.remove(body) }

// Update computes v += M⁻¹·F·dt and ω += I⁻¹·τ·dt
func (e *SemiImplicitEuler) Update(dt float64) {
	for _, body := range e.bodies.bodies {
		if !body.IsActive() {
			continue
		}

		// Velocities reached at the end of the previous step
		body.PreviousVelocity = body.Velocity
		body.PreviousAngularVelocity = body.AngularVelocity

		// ========== LINEAR ==========
		body.Velocity = body.Velocity.Add(body.Force().Mul(body.InvMass() * dt))
		body.Velocity = clampLength(body.Velocity, e.MaxLinearVelocity)

		// ========== ANGULAR ==========
		angularAccel := body.InvInertiaWorld().Mul3x1(body.Torque())
		body.AngularVelocity = body.AngularVelocity.Add(angularAccel.Mul(dt))
		body.AngularVelocity = clampLength(body.AngularVelocity, e.MaxAngularVelocity)

		body.ClearForces()
	}
}

// UpdatePosition computes x += v·dt and rotates through the exponential map
func (e *SemiImplicitEuler) UpdatePosition(dt float64) {
	for _, body := range e.bodies.bodies {
		if !body.IsActive() {
			continue
		}

		body.Transform.Position = body.Transform.Position.Add(body.Velocity.Mul(dt))
		body.Transform.Rotation = actor.IntegrateRotation(body.Transform.Rotation, body.AngularVelocity, dt)
		body.UpdateAABB()
	}
}

func clampLength(v mgl64.Vec3, maxLength float64) mgl64.Vec3 {
	if maxLength <= 0 {
		return v
	}
	if length := v.Len(); length > maxLength {
		return v.Mul(maxLength / length)
	}
	return v
}
