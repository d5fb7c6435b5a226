package actor

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypePlane ShapeType = iota
	ShapeTypeBall
	ShapeTypeBox
	ShapeTypeCone
	ShapeTypeCylinder
)

func (t ShapeType) String() string {
	switch t {
	case ShapeTypePlane:
		return "plane"
	case ShapeTypeBall:
		return "ball"
	case ShapeTypeBox:
		return "box"
	case ShapeTypeCone:
		return "cone"
	case ShapeTypeCylinder:
		return "cylinder"
	}
	return fmt.Sprintf("ShapeType(%d)", int(t))
}

// Shape is the capability set shared by every convex geometry.
// Support and ContactFeature work in the local frame of the shape.
type Shape interface {
	Type() ShapeType
	// Support returns the furthest local point in the given local direction.
	Support(direction mgl64.Vec3) mgl64.Vec3
	// ComputeAABB calculates the axis-aligned bounding box for the shape
	// at the given transform
	ComputeAABB(transform Transform) AABB
	// RayCast returns the first time of impact of ray with the solid shape.
	RayCast(transform Transform, ray Ray) (float64, bool)
	ComputeInertia(mass float64) mgl64.Mat3
	// BoundingRadius is the radius of the smallest ball centred on the local
	// origin that encloses the shape.
	BoundingRadius() float64
	// ContactFeature returns the local vertices of the feature (point, edge or
	// face) most aligned with direction.
	ContactFeature(direction mgl64.Vec3) []mgl64.Vec3
}

// ============================================================================
// Plane
// ============================================================================

// Plane is the half-space {x : Normal·x <= 0} in local coordinates. Translate
// the owning body to move it away from the origin.
type Plane struct {
	Normal mgl64.Vec3
}

func NewPlane(normal mgl64.Vec3) (*Plane, error) {
	if normal.Len() < 1e-12 {
		return nil, fmt.Errorf("plane normal %v: %w", normal, ErrDegenerateShape)
	}
	return &Plane{Normal: normal.Normalize()}, nil
}

func (p *Plane) Type() ShapeType { return ShapeTypePlane }

// Support stands in a large slab for the half-space. The narrow phase solves
// plane pairs analytically, so the approximation never reaches GJK.
func (p *Plane) Support(direction mgl64.Vec3) mgl64.Vec3 {
	const halfWidth = 1000.0
	const thickness = 1.0

	tangent1, tangent2 := TangentBasis(p.Normal)
	point := mgl64.Vec3{}
	if direction.Dot(tangent1) >= 0 {
		point = point.Add(tangent1.Mul(halfWidth))
	} else {
		point = point.Sub(tangent1.Mul(halfWidth))
	}
	if direction.Dot(tangent2) >= 0 {
		point = point.Add(tangent2.Mul(halfWidth))
	} else {
		point = point.Sub(tangent2.Mul(halfWidth))
	}
	if direction.Dot(p.Normal) < 0 {
		point = point.Sub(p.Normal.Mul(thickness))
	}

	return point
}

func (p *Plane) ComputeAABB(transform Transform) AABB {
	normal := transform.Rotate(p.Normal)
	origin := transform.Position

	aabb := AABB{
		Min: mgl64.Vec3{-Infinity, -Infinity, -Infinity},
		Max: mgl64.Vec3{Infinity, Infinity, Infinity},
	}

	// Only an axis-aligned half-space has one finite face
	for i := 0; i < 3; i++ {
		if normal[i] > 1.0-1e-9 {
			aabb.Max[i] = origin[i]
		} else if normal[i] < -1.0+1e-9 {
			aabb.Min[i] = origin[i]
		}
	}

	return aabb
}

func (p *Plane) RayCast(transform Transform, ray Ray) (float64, bool) {
	normal := transform.Rotate(p.Normal)
	dist := normal.Dot(ray.Origin.Sub(transform.Position))
	if dist <= 0 {
		return 0, true
	}

	denom := normal.Dot(ray.Dir)
	if denom >= 0 {
		return 0, false
	}

	return -dist / denom, true
}

func (p *Plane) ComputeInertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

func (p *Plane) BoundingRadius() float64 {
	return Infinity
}

func (p *Plane) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	tangent1, tangent2 := TangentBasis(p.Normal)
	const size = 1000.0

	return []mgl64.Vec3{
		tangent1.Mul(-size).Add(tangent2.Mul(-size)),
		tangent1.Mul(-size).Add(tangent2.Mul(size)),
		tangent1.Mul(size).Add(tangent2.Mul(size)),
		tangent1.Mul(size).Add(tangent2.Mul(-size)),
	}
}

// ============================================================================
// Ball
// ============================================================================

type Ball struct {
	Radius float64
}

func NewBall(radius float64) (*Ball, error) {
	if !(radius > 0) {
		return nil, fmt.Errorf("ball radius %v: %w", radius, ErrDegenerateShape)
	}
	return &Ball{Radius: radius}, nil
}

func (b *Ball) Type() ShapeType { return ShapeTypeBall }

func (b *Ball) Support(direction mgl64.Vec3) mgl64.Vec3 {
	length := direction.Len()
	if length < 1e-12 {
		return mgl64.Vec3{b.Radius, 0, 0}
	}
	return direction.Mul(b.Radius / length)
}

// ComputeAABB is not affected by rotation, only by position
func (b *Ball) ComputeAABB(transform Transform) AABB {
	radiusVec := mgl64.Vec3{b.Radius, b.Radius, b.Radius}

	return AABB{
		Min: transform.Position.Sub(radiusVec),
		Max: transform.Position.Add(radiusVec),
	}
}

func (b *Ball) RayCast(transform Transform, ray Ray) (float64, bool) {
	m := ray.Origin.Sub(transform.Position)
	a := ray.Dir.Dot(ray.Dir)
	c := m.Dot(m) - b.Radius*b.Radius
	if c <= 0 {
		return 0, true
	}
	if a < 1e-24 {
		return 0, false
	}

	half := m.Dot(ray.Dir)
	if half > 0 {
		return 0, false
	}

	disc := half*half - a*c
	if disc < 0 {
		return 0, false
	}

	return (-half - math.Sqrt(disc)) / a, true
}

func (b *Ball) ComputeInertia(mass float64) mgl64.Mat3 {
	i := (2.0 / 5.0) * mass * b.Radius * b.Radius
	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

func (b *Ball) BoundingRadius() float64 {
	return b.Radius
}

func (b *Ball) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{b.Support(direction)}
}

// ============================================================================
// Box
// ============================================================================

// Box represents an oriented box collision shape
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	HalfExtents mgl64.Vec3
}

func NewBox(halfExtents mgl64.Vec3) (*Box, error) {
	if !(halfExtents.X() > 0 && halfExtents.Y() > 0 && halfExtents.Z() > 0) {
		return nil, fmt.Errorf("box half extents %v: %w", halfExtents, ErrDegenerateShape)
	}
	return &Box{HalfExtents: halfExtents}, nil
}

func (b *Box) Type() ShapeType { return ShapeTypeBox }

func (b *Box) Support(direction mgl64.Vec3) mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()

	if direction.X() < 0 {
		hx = -hx
	}
	if direction.Y() < 0 {
		hy = -hy
	}
	if direction.Z() < 0 {
		hz = -hz
	}

	return mgl64.Vec3{hx, hy, hz}
}

func (b *Box) ComputeAABB(transform Transform) AABB {
	// The world half extents are |R|·h
	r := transform.RotationMatrix()
	var extent mgl64.Vec3
	for i := 0; i < 3; i++ {
		extent[i] = math.Abs(r.At(i, 0))*b.HalfExtents[0] +
			math.Abs(r.At(i, 1))*b.HalfExtents[1] +
			math.Abs(r.At(i, 2))*b.HalfExtents[2]
	}

	return AABB{
		Min: transform.Position.Sub(extent),
		Max: transform.Position.Add(extent),
	}
}

func (b *Box) RayCast(transform Transform, ray Ray) (float64, bool) {
	local := ray.ToLocal(transform)
	aabb := AABB{Min: b.HalfExtents.Mul(-1), Max: b.HalfExtents}
	return aabb.IntersectsRay(local)
}

func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	x := b.HalfExtents.X() * 2
	y := b.HalfExtents.Y() * 2
	z := b.HalfExtents.Z() * 2

	// I = (m/12) * (d1² + d2²)
	factor := mass / 12.0
	return mgl64.Diag3(mgl64.Vec3{
		factor * (y*y + z*z),
		factor * (x*x + z*z),
		factor * (x*x + y*y),
	})
}

func (b *Box) BoundingRadius() float64 {
	return b.HalfExtents.Len()
}

func (b *Box) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	hx := b.HalfExtents.X()
	hy := b.HalfExtents.Y()
	hz := b.HalfExtents.Z()

	// Pick the face whose normal is the most aligned with direction,
	// vertices CCW seen from outside
	axis := 0
	best := math.Abs(direction[0])
	for i := 1; i < 3; i++ {
		if math.Abs(direction[i]) > best {
			best = math.Abs(direction[i])
			axis = i
		}
	}
	positive := direction[axis] >= 0

	switch {
	case axis == 0 && positive:
		return []mgl64.Vec3{{hx, -hy, -hz}, {hx, hy, -hz}, {hx, hy, hz}, {hx, -hy, hz}}
	case axis == 0:
		return []mgl64.Vec3{{-hx, -hy, hz}, {-hx, hy, hz}, {-hx, hy, -hz}, {-hx, -hy, -hz}}
	case axis == 1 && positive:
		return []mgl64.Vec3{{-hx, hy, -hz}, {-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz}}
	case axis == 1:
		return []mgl64.Vec3{{-hx, -hy, hz}, {-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, -hy, hz}}
	case positive:
		return []mgl64.Vec3{{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz}}
	default:
		return []mgl64.Vec3{{hx, -hy, -hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {hx, hy, -hz}}
	}
}

// ============================================================================
// Cylinder
// ============================================================================

// Cylinder is aligned with the local Y axis and centred on the origin
type Cylinder struct {
	HalfHeight float64
	Radius     float64
}

func NewCylinder(halfHeight, radius float64) (*Cylinder, error) {
	if !(halfHeight > 0 && radius > 0) {
		return nil, fmt.Errorf("cylinder half height %v radius %v: %w", halfHeight, radius, ErrDegenerateShape)
	}
	return &Cylinder{HalfHeight: halfHeight, Radius: radius}, nil
}

func (c *Cylinder) Type() ShapeType { return ShapeTypeCylinder }

func (c *Cylinder) Support(direction mgl64.Vec3) mgl64.Vec3 {
	var point mgl64.Vec3

	sigma := math.Hypot(direction.X(), direction.Z())
	if sigma > 1e-12 {
		point[0] = c.Radius * direction.X() / sigma
		point[2] = c.Radius * direction.Z() / sigma
	}
	if direction.Y() < 0 {
		point[1] = -c.HalfHeight
	} else {
		point[1] = c.HalfHeight
	}

	return point
}

func (c *Cylinder) ComputeAABB(transform Transform) AABB {
	return supportAABB(c, transform)
}

func (c *Cylinder) RayCast(transform Transform, ray Ray) (float64, bool) {
	local := ray.ToLocal(transform)
	o, d := local.Origin, local.Dir

	lo, hi, ok := slabInterval(o.Y(), d.Y(), -c.HalfHeight, c.HalfHeight)
	if !ok {
		return 0, false
	}

	a := d.X()*d.X() + d.Z()*d.Z()
	half := o.X()*d.X() + o.Z()*d.Z()
	k := o.X()*o.X() + o.Z()*o.Z() - c.Radius*c.Radius

	if a < 1e-24 {
		if k > 0 {
			return 0, false
		}
	} else {
		disc := half*half - a*k
		if disc < 0 {
			return 0, false
		}
		sq := math.Sqrt(disc)
		lo = math.Max(lo, (-half-sq)/a)
		hi = math.Min(hi, (-half+sq)/a)
	}

	return clipInterval(lo, hi)
}

func (c *Cylinder) ComputeInertia(mass float64) mgl64.Mat3 {
	h := 2.0 * c.HalfHeight
	r2 := c.Radius * c.Radius
	side := mass * (3.0*r2 + h*h) / 12.0

	return mgl64.Diag3(mgl64.Vec3{side, 0.5 * mass * r2, side})
}

func (c *Cylinder) BoundingRadius() float64 {
	return math.Hypot(c.HalfHeight, c.Radius)
}

// ContactFeature returns the cap polygon when direction runs along the axis,
// a side segment when it is orthogonal to it, and the support point otherwise.
func (c *Cylinder) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	length := direction.Len()
	if length < 1e-12 {
		return []mgl64.Vec3{c.Support(direction)}
	}
	axial := direction.Y() / length

	if math.Abs(axial) > capFeatureCos {
		y := c.HalfHeight
		if axial < 0 {
			y = -y
		}
		return rimPolygon(c.Radius, y)
	}

	if math.Abs(axial) < sideFeatureSin {
		top := c.Support(mgl64.Vec3{direction.X(), 1, direction.Z()})
		bottom := top
		bottom[1] = -c.HalfHeight
		return []mgl64.Vec3{bottom, top}
	}

	return []mgl64.Vec3{c.Support(direction)}
}

// ============================================================================
// Cone
// ============================================================================

// Cone has its apex on +Y at HalfHeight and its base disc at -HalfHeight.
// The local origin sits half way between the apex and the base.
type Cone struct {
	HalfHeight float64
	Radius     float64
}

func NewCone(halfHeight, radius float64) (*Cone, error) {
	if !(halfHeight > 0 && radius > 0) {
		return nil, fmt.Errorf("cone half height %v radius %v: %w", halfHeight, radius, ErrDegenerateShape)
	}
	return &Cone{HalfHeight: halfHeight, Radius: radius}, nil
}

func (c *Cone) Type() ShapeType { return ShapeTypeCone }

func (c *Cone) sinAngle() float64 {
	return c.Radius / math.Hypot(c.Radius, 2.0*c.HalfHeight)
}

func (c *Cone) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.Y() > direction.Len()*c.sinAngle() {
		return mgl64.Vec3{0, c.HalfHeight, 0}
	}

	sigma := math.Hypot(direction.X(), direction.Z())
	if sigma > 1e-12 {
		return mgl64.Vec3{
			c.Radius * direction.X() / sigma,
			-c.HalfHeight,
			c.Radius * direction.Z() / sigma,
		}
	}
	return mgl64.Vec3{0, -c.HalfHeight, 0}
}

func (c *Cone) ComputeAABB(transform Transform) AABB {
	return supportAABB(c, transform)
}

func (c *Cone) RayCast(transform Transform, ray Ray) (float64, bool) {
	local := ray.ToLocal(transform)
	o, d := local.Origin, local.Dir

	lo, hi, ok := slabInterval(o.Y(), d.Y(), -c.HalfHeight, c.HalfHeight)
	if !ok {
		return 0, false
	}

	// Lower nappe of the infinite cone with apex (0, h, 0):
	// x² + z² <= k²·(h - y)², h - y >= 0
	k := c.Radius / (2.0 * c.HalfHeight)
	k2 := k * k
	q := c.HalfHeight - o.Y()
	e := -d.Y()

	inside := func(t float64) bool {
		x := o.X() + t*d.X()
		z := o.Z() + t*d.Z()
		depth := q + t*e
		return depth >= 0 && x*x+z*z <= k2*depth*depth
	}

	a := d.X()*d.X() + d.Z()*d.Z() - k2*e*e
	half := o.X()*d.X() + o.Z()*d.Z() - k2*q*e
	cc := o.X()*o.X() + o.Z()*o.Z() - k2*q*q

	var roots []float64
	if math.Abs(a) < 1e-14 {
		if math.Abs(half) > 1e-14 {
			roots = append(roots, -cc/(2.0*half))
		}
	} else {
		disc := half*half - a*cc
		if disc >= 0 {
			sq := math.Sqrt(disc)
			r1 := (-half - sq) / a
			r2 := (-half + sq) / a
			if r1 > r2 {
				r1, r2 = r2, r1
			}
			roots = append(roots, r1, r2)
		}
	}

	nappeLo, nappeHi, found := convexInterval(roots, inside)
	if !found {
		return 0, false
	}

	return clipInterval(math.Max(lo, nappeLo), math.Min(hi, nappeHi))
}

func (c *Cone) ComputeInertia(mass float64) mgl64.Mat3 {
	h := 2.0 * c.HalfHeight
	r2 := c.Radius * c.Radius
	side := mass * (3.0*r2/20.0 + 3.0*h*h/80.0)

	return mgl64.Diag3(mgl64.Vec3{side, 0.3 * mass * r2, side})
}

func (c *Cone) BoundingRadius() float64 {
	return math.Hypot(c.HalfHeight, c.Radius)
}

func (c *Cone) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	length := direction.Len()
	if length > 1e-12 && direction.Y()/length < -capFeatureCos {
		return rimPolygon(c.Radius, -c.HalfHeight)
	}
	return []mgl64.Vec3{c.Support(direction)}
}

// ============================================================================
// Helpers
// ============================================================================

const (
	// capFeatureCos is the alignment above which a cap is used as a face
	capFeatureCos = 0.95
	// sideFeatureSin is the alignment below which a cylinder side is an edge
	sideFeatureSin = 0.05
	rimSegments    = 8
)

// TangentBasis generates two unit vectors orthogonal to normal and to each other
func TangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var tangent1 mgl64.Vec3
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	} else {
		tangent1 = mgl64.Vec3{1, 0, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}

// supportAABB builds a tight box from six support queries along the world axes
func supportAABB(shape Shape, transform Transform) AABB {
	var aabb AABB
	for i := 0; i < 3; i++ {
		var axis mgl64.Vec3
		axis[i] = 1

		up := transform.Apply(shape.Support(transform.InverseRotate(axis)))
		down := transform.Apply(shape.Support(transform.InverseRotate(axis.Mul(-1))))
		aabb.Max[i] = up[i]
		aabb.Min[i] = down[i]
	}
	return aabb
}

func rimPolygon(radius, y float64) []mgl64.Vec3 {
	points := make([]mgl64.Vec3, rimSegments)
	for i := range points {
		angle := 2.0 * math.Pi * float64(i) / rimSegments
		points[i] = mgl64.Vec3{radius * math.Cos(angle), y, radius * math.Sin(angle)}
	}
	return points
}

// slabInterval intersects the 1D ray o + t*d with [lo, hi]
func slabInterval(o, d, lo, hi float64) (float64, float64, bool) {
	if math.Abs(d) < 1e-12 {
		if o < lo || o > hi {
			return 0, 0, false
		}
		return math.Inf(-1), math.Inf(1), true
	}

	t1 := (lo - o) / d
	t2 := (hi - o) / d
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	return t1, t2, true
}

// clipInterval turns a parametric overlap interval into a time of impact
func clipInterval(lo, hi float64) (float64, bool) {
	if lo > hi || hi < 0 {
		return 0, false
	}
	return math.Max(lo, 0), true
}

// convexInterval returns the single interval of the ray lying inside a convex
// region, given the parameters where the ray crosses its boundary.
func convexInterval(roots []float64, inside func(t float64) bool) (float64, float64, bool) {
	if len(roots) == 2 && roots[1]-roots[0] < 1e-12 {
		roots = roots[:1]
	}
	if len(roots) == 0 {
		if inside(0) {
			return math.Inf(-1), math.Inf(1), true
		}
		return 0, 0, false
	}

	bounds := make([]float64, 0, len(roots)+2)
	bounds = append(bounds, math.Inf(-1))
	bounds = append(bounds, roots...)
	bounds = append(bounds, math.Inf(1))

	for i := 0; i+1 < len(bounds); i++ {
		lo, hi := bounds[i], bounds[i+1]

		var probe float64
		switch {
		case math.IsInf(lo, -1):
			probe = hi - 1.0
		case math.IsInf(hi, 1):
			probe = lo + 1.0
		default:
			probe = 0.5 * (lo + hi)
		}

		if inside(probe) {
			return lo, hi, true
		}
	}

	return 0, 0, false
}
