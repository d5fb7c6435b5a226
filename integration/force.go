package integration

import (
	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Tornado is a field of accelerations around the line through Origin along
// Axis: Swirl turns bodies around the axis and Suck pulls them towards it.
// A zero Axis disables the field.
type Tornado struct {
	Origin mgl64.Vec3
	Axis   mgl64.Vec3
	Swirl  float64
	Suck   float64
}

// Acceleration returns the field at point
func (t Tornado) Acceleration(point mgl64.Vec3) mgl64.Vec3 {
	axisLen := t.Axis.Len()
	if axisLen < 1e-12 || (t.Swirl == 0 && t.Suck == 0) {
		return mgl64.Vec3{}
	}
	axis := t.Axis.Mul(1.0 / axisLen)

	r := point.Sub(t.Origin)
	radial := r.Sub(axis.Mul(axis.Dot(r)))
	dist := radial.Len()
	if dist < 1e-9 {
		return mgl64.Vec3{}
	}
	radial = radial.Mul(1.0 / dist)

	swirl := axis.Cross(radial).Mul(t.Swirl)
	suck := radial.Mul(-t.Suck)
	return swirl.Add(suck)
}

// BodyForceGenerator applies gravity and the tornado field to every active
// dynamic body. Both are accelerations: the force is scaled by the mass.
type BodyForceGenerator struct {
	Gravity mgl64.Vec3
	Tornado Tornado

	bodies bodyList
}

func NewBodyForceGenerator(gravity mgl64.Vec3, tornado Tornado) *BodyForceGenerator {
	return &BodyForceGenerator{Gravity: gravity, Tornado: tornado}
}

func (g *BodyForceGenerator) Priority() float64 { return 0 }

func (g *BodyForceGenerator) Add(body actor.Body)    { g.bodies.add(body) }
func (g *BodyForceGenerator) Remove(body actor.Body) { g.bodies.remove(body) }

// Update accumulates the external forces; the Euler integrator consumes them
func (g *BodyForceGenerator) Update(dt float64) {
	for _, body := range g.bodies.bodies {
		if !body.IsActive() {
			continue
		}
		acceleration := g.Gravity.Add(g.Tornado.Acceleration(body.Position()))
		body.AddForce(acceleration.Mul(body.Mass()))
	}
}

func (g *BodyForceGenerator) UpdatePosition(dt float64) {}
