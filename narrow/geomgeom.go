// Package narrow computes the contact manifold of a single pair of shapes.
package narrow

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"github.com/akmonengine/impulse/epa"
	"github.com/akmonengine/impulse/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultPersistenceTolerance = 0.05
	// persistenceNormalCos is the minimum alignment of two normals for a
	// contact to inherit impulses from the previous step.
	persistenceNormalCos = 0.95
)

// Config tunes the pairwise detector
type Config struct {
	EPAMaxIterations int
	EPATolerance     float64
	// PersistenceTolerance is the largest displacement of a contact point
	// between two steps that still counts as the same contact.
	PersistenceTolerance float64
}

func DefaultConfig() Config {
	return Config{
		EPAMaxIterations:     epa.DefaultMaxIterations,
		EPATolerance:         epa.DefaultTolerance,
		PersistenceTolerance: DefaultPersistenceTolerance,
	}
}

// GeomGeom is the detector state owned by one pair of bodies. It keeps the
// GJK simplex and the manifold of the last update, so that impulses
// accumulated by the solver carry over to matching contacts.
type GeomGeom struct {
	config  Config
	epa     *epa.EPA
	simplex *gjk.JohnsonSimplex

	contacts []constraint.Contact
	previous []constraint.Contact
	matched  []bool
}

// NewGeomGeom creates an empty pair state. solver is the EPA workspace, which
// may be shared between pairs updated from the same goroutine.
func NewGeomGeom(config Config, solver *epa.EPA) *GeomGeom {
	if solver == nil {
		solver = epa.New(config.EPAMaxIterations, config.EPATolerance)
	}
	return &GeomGeom{
		config:  config,
		epa:     solver,
		simplex: gjk.NewJohnsonSimplex(),
	}
}

// NumContacts returns the size of the current manifold
func (g *GeomGeom) NumContacts() int {
	return len(g.contacts)
}

// Contacts returns the current manifold. Its elements stay valid until the
// next Update.
func (g *GeomGeom) Contacts() []constraint.Contact {
	return g.contacts
}

// Update recomputes the manifold of shape A at transform ta against shape B
// at tb. Normals point from B towards A. A failed penetration query leaves
// the manifold empty and returns the EPA error.
func (g *GeomGeom) Update(ta actor.Transform, sa actor.Shape, tb actor.Transform, sb actor.Shape) error {
	g.previous, g.contacts = g.contacts, g.previous[:0]

	var err error
	switch {
	case sa.Type() == actor.ShapeTypePlane && sb.Type() == actor.ShapeTypePlane:
		// Two half-spaces never produce a bounded contact
	case sa.Type() == actor.ShapeTypePlane:
		g.contacts = planeConvex(g.contacts, tb, sb, ta, sa.(*actor.Plane), true)
	case sb.Type() == actor.ShapeTypePlane:
		g.contacts = planeConvex(g.contacts, ta, sa, tb, sb.(*actor.Plane), false)
	case sa.Type() == actor.ShapeTypeBall && sb.Type() == actor.ShapeTypeBall:
		g.contacts = ballBall(g.contacts, ta.Position, sa.(*actor.Ball).Radius, tb.Position, sb.(*actor.Ball).Radius)
	case sa.Type() == actor.ShapeTypeBall:
		g.contacts, err = g.ballConvex(g.contacts, ta, sa.(*actor.Ball), tb, sb, false)
	case sb.Type() == actor.ShapeTypeBall:
		g.contacts, err = g.ballConvex(g.contacts, tb, sb.(*actor.Ball), ta, sa, true)
	default:
		g.contacts, err = g.convexConvex(g.contacts, gjk.Posed{Shape: sa, Transform: ta}, gjk.Posed{Shape: sb, Transform: tb})
	}

	g.transferImpulses()
	return err
}

// transferImpulses copies the accumulated impulses of the previous manifold
// into the new contacts they match.
func (g *GeomGeom) transferImpulses() {
	if len(g.previous) == 0 || len(g.contacts) == 0 {
		return
	}

	g.matched = g.matched[:0]
	for range g.previous {
		g.matched = append(g.matched, false)
	}

	tolSq := g.config.PersistenceTolerance * g.config.PersistenceTolerance
	for i := range g.contacts {
		c := &g.contacts[i]
		best, bestDist := -1, math.Inf(1)
		for j := range g.previous {
			if g.matched[j] {
				continue
			}
			p := &g.previous[j]
			if c.Normal.Dot(p.Normal) < persistenceNormalCos {
				continue
			}
			da := c.WorldA.Sub(p.WorldA).LenSqr()
			db := c.WorldB.Sub(p.WorldB).LenSqr()
			if da > tolSq || db > tolSq {
				continue
			}
			if da+db < bestDist {
				best, bestDist = j, da+db
			}
		}
		if best >= 0 {
			g.matched[best] = true
			c.NormalImpulse = g.previous[best].NormalImpulse
			c.TangentImpulse = g.previous[best].TangentImpulse
		}
	}
}

// planeConvex collides a convex shape against a half-space. When flipped,
// the plane is body A.
func planeConvex(out []constraint.Contact, tc actor.Transform, convex actor.Shape, tp actor.Transform, plane *actor.Plane, flipped bool) []constraint.Contact {
	normal := tp.Rotate(plane.Normal)
	offset := tp.Position.Dot(normal)
	down := tc.InverseRotate(normal.Mul(-1))

	deepest := tc.Apply(convex.Support(down))
	if deepest.Dot(normal)-offset >= 0 {
		return out
	}

	start := len(out)
	for _, local := range convex.ContactFeature(down) {
		p := tc.Apply(local)
		separation := p.Dot(normal) - offset
		if separation > 0 {
			continue
		}
		onPlane := p.Sub(normal.Mul(separation))
		c := constraint.Contact{WorldA: p, WorldB: onPlane, Normal: normal, Depth: -separation}
		if flipped {
			c.Flip()
		}
		out = append(out, c)
	}

	if len(out) == start {
		// The feature lies above the plane while its support does not
		c := constraint.Contact{
			WorldA: deepest,
			WorldB: deepest.Sub(normal.Mul(deepest.Dot(normal) - offset)),
			Normal: normal,
			Depth:  offset - deepest.Dot(normal),
		}
		if flipped {
			c.Flip()
		}
		out = append(out, c)
	}

	return epa.ReduceContacts(out, start, normal)
}

func ballBall(out []constraint.Contact, ca mgl64.Vec3, ra float64, cb mgl64.Vec3, rb float64) []constraint.Contact {
	delta := ca.Sub(cb)
	dist := delta.Len()
	if dist >= ra+rb {
		return out
	}

	normal := mgl64.Vec3{0, 1, 0}
	if dist > 1e-12 {
		normal = delta.Mul(1.0 / dist)
	}

	return append(out, constraint.Contact{
		WorldA: ca.Sub(normal.Mul(ra)),
		WorldB: cb.Add(normal.Mul(rb)),
		Normal: normal,
		Depth:  ra + rb - dist,
	})
}

// ballConvex projects the centre of the ball on the convex shape. Only a
// centre buried inside the shape needs the full GJK/EPA query.
func (g *GeomGeom) ballConvex(out []constraint.Contact, tball actor.Transform, ball *actor.Ball, tc actor.Transform, convex actor.Shape, flipped bool) ([]constraint.Contact, error) {
	posed := gjk.Posed{Shape: convex, Transform: tc}
	center := tball.Position

	closest, dist, outside := gjk.ClosestPoint(posed, center, g.simplex)
	if outside {
		if dist >= ball.Radius {
			return out, nil
		}
		normal := center.Sub(closest).Mul(1.0 / dist)
		c := constraint.Contact{
			WorldA: center.Sub(normal.Mul(ball.Radius)),
			WorldB: closest,
			Normal: normal,
			Depth:  ball.Radius - dist,
		}
		if flipped {
			c.Flip()
		}
		return append(out, c), nil
	}

	start := len(out)
	out, err := g.convexConvex(out, gjk.Posed{Shape: ball, Transform: tball}, posed)
	if flipped {
		for i := start; i < len(out); i++ {
			out[i].Flip()
		}
	}
	return out, err
}

func (g *GeomGeom) convexConvex(out []constraint.Contact, a, b gjk.Posed) ([]constraint.Contact, error) {
	direction := a.Transform.Position.Sub(b.Transform.Position)
	result := gjk.Distance(a, b, direction, g.simplex)
	if !result.Intersecting {
		return out, nil
	}

	pen, err := g.epa.Penetration(a, b, g.simplex.Points())
	if err != nil {
		return out, err
	}

	return epa.GenerateManifold(a, b, pen, out), nil
}
