package actor

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// Helper functions
func vec3Equal(a, b mgl64.Vec3, tolerance float64) bool {
	return math.Abs(a.X()-b.X()) < tolerance &&
		math.Abs(a.Y()-b.Y()) < tolerance &&
		math.Abs(a.Z()-b.Z()) < tolerance
}

func floatEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func mustBall(t *testing.T, radius float64) *Ball {
	t.Helper()
	b, err := NewBall(radius)
	if err != nil {
		t.Fatalf("NewBall(%v): %v", radius, err)
	}
	return b
}

func mustBox(t *testing.T, halfExtents mgl64.Vec3) *Box {
	t.Helper()
	b, err := NewBox(halfExtents)
	if err != nil {
		t.Fatalf("NewBox(%v): %v", halfExtents, err)
	}
	return b
}

func mustCylinder(t *testing.T, halfHeight, radius float64) *Cylinder {
	t.Helper()
	c, err := NewCylinder(halfHeight, radius)
	if err != nil {
		t.Fatalf("NewCylinder: %v", err)
	}
	return c
}

func mustCone(t *testing.T, halfHeight, radius float64) *Cone {
	t.Helper()
	c, err := NewCone(halfHeight, radius)
	if err != nil {
		t.Fatalf("NewCone: %v", err)
	}
	return c
}

func mustPlane(t *testing.T, normal mgl64.Vec3) *Plane {
	t.Helper()
	p, err := NewPlane(normal)
	if err != nil {
		t.Fatalf("NewPlane: %v", err)
	}
	return p
}

// ========== CONSTRUCTORS ==========

func TestShapeConstructorsRejectDegenerateInput(t *testing.T) {
	tests := []struct {
		name string
		make func() error
	}{
		{"zero ball", func() error { _, err := NewBall(0); return err }},
		{"negative ball", func() error { _, err := NewBall(-1); return err }},
		{"NaN ball", func() error { _, err := NewBall(math.NaN()); return err }},
		{"flat box", func() error { _, err := NewBox(mgl64.Vec3{1, 0, 1}); return err }},
		{"zero cylinder height", func() error { _, err := NewCylinder(0, 1); return err }},
		{"zero cylinder radius", func() error { _, err := NewCylinder(1, 0); return err }},
		{"zero cone", func() error { _, err := NewCone(1, 0); return err }},
		{"null plane normal", func() error { _, err := NewPlane(mgl64.Vec3{}); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.make(); !errors.Is(err, ErrDegenerateShape) {
				t.Errorf("error = %v, want ErrDegenerateShape", err)
			}
		})
	}
}

func TestNewPlaneNormalizes(t *testing.T) {
	p := mustPlane(t, mgl64.Vec3{0, 3, 0})
	if !vec3Equal(p.Normal, mgl64.Vec3{0, 1, 0}, 1e-12) {
		t.Errorf("Normal = %v, want unit Y", p.Normal)
	}
}

// ========== SUPPORT MAPPINGS ==========

func TestSupport(t *testing.T) {
	ball := &Ball{Radius: 2}
	box := &Box{HalfExtents: mgl64.Vec3{1, 2, 3}}
	cylinder := &Cylinder{HalfHeight: 1, Radius: 1}
	cone := &Cone{HalfHeight: 1, Radius: 1}

	tests := []struct {
		name      string
		shape     Shape
		direction mgl64.Vec3
		expected  mgl64.Vec3
	}{
		{"ball +x", ball, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{2, 0, 0}},
		{"ball unnormalized", ball, mgl64.Vec3{0, -5, 0}, mgl64.Vec3{0, -2, 0}},
		{"box corner", box, mgl64.Vec3{1, -1, 1}, mgl64.Vec3{1, -2, 3}},
		{"box negative", box, mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{-1, -2, -3}},
		{"cylinder diagonal", cylinder, mgl64.Vec3{1, 1, 0}, mgl64.Vec3{1, 1, 0}},
		{"cylinder down", cylinder, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{0, -1, 0}},
		{"cone apex", cone, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 1, 0}},
		{"cone rim", cone, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, -1, 0}},
		{"cone base centre", cone, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{0, -1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.shape.Support(tt.direction)
			if !vec3Equal(got, tt.expected, 1e-9) {
				t.Errorf("Support(%v) = %v, want %v", tt.direction, got, tt.expected)
			}
		})
	}
}

// Support must maximise the dot product over a sample of directions
func TestSupportIsExtremal(t *testing.T) {
	shapes := map[string]Shape{
		"ball":     &Ball{Radius: 0.7},
		"box":      &Box{HalfExtents: mgl64.Vec3{0.5, 1, 1.5}},
		"cylinder": &Cylinder{HalfHeight: 1, Radius: 0.5},
		"cone":     &Cone{HalfHeight: 1, Radius: 0.5},
	}
	directions := []mgl64.Vec3{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {-1, -1, 0}, {0.3, -0.2, 0.9}, {-0.5, 0.8, -0.1},
	}

	for name, shape := range shapes {
		t.Run(name, func(t *testing.T) {
			for _, d := range directions {
				best := shape.Support(d).Dot(d)
				for _, other := range directions {
					candidate := shape.Support(other)
					if candidate.Dot(d) > best+1e-9 {
						t.Errorf("Support(%v) not extremal: %v beats it", d, candidate)
					}
				}
			}
		})
	}
}

// ========== AABB ==========

func TestComputeAABB(t *testing.T) {
	quarterTurn := Transform{Position: mgl64.Vec3{1, 0, 0}, Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})}

	tests := []struct {
		name      string
		shape     Shape
		transform Transform
		min, max  mgl64.Vec3
	}{
		{"ball", &Ball{Radius: 1}, NewTransformAt(mgl64.Vec3{0, 5, 0}), mgl64.Vec3{-1, 4, -1}, mgl64.Vec3{1, 6, 1}},
		{"box identity", &Box{HalfExtents: mgl64.Vec3{1, 2, 3}}, NewTransform(), mgl64.Vec3{-1, -2, -3}, mgl64.Vec3{1, 2, 3}},
		{"box rotated", &Box{HalfExtents: mgl64.Vec3{1, 2, 3}}, quarterTurn, mgl64.Vec3{-2, -2, -1}, mgl64.Vec3{4, 2, 1}},
		{"cylinder", &Cylinder{HalfHeight: 2, Radius: 1}, NewTransform(), mgl64.Vec3{-1, -2, -1}, mgl64.Vec3{1, 2, 1}},
		{"cone", &Cone{HalfHeight: 1, Radius: 1}, NewTransform(), mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aabb := tt.shape.ComputeAABB(tt.transform)
			if !vec3Equal(aabb.Min, tt.min, 1e-9) || !vec3Equal(aabb.Max, tt.max, 1e-9) {
				t.Errorf("ComputeAABB() = %v, want {%v %v}", aabb, tt.min, tt.max)
			}
		})
	}
}

func TestPlaneAABBIsHalfSpace(t *testing.T) {
	p := &Plane{Normal: mgl64.Vec3{0, 1, 0}}
	aabb := p.ComputeAABB(NewTransformAt(mgl64.Vec3{0, 2, 0}))

	if aabb.Max.Y() != 2 {
		t.Errorf("Max.Y = %v, want 2", aabb.Max.Y())
	}
	if aabb.Min.Y() != -Infinity || aabb.Max.X() != Infinity {
		t.Errorf("plane AABB should be unbounded elsewhere, got %v", aabb)
	}
}

// ========== RAY CASTS ==========

func TestRayCast(t *testing.T) {
	down := NewRay(mgl64.Vec3{0, 5, 0}, mgl64.Vec3{0, -1, 0})
	side := NewRay(mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{1, 0, 0})
	miss := NewRay(mgl64.Vec3{5, 5, 0}, mgl64.Vec3{0, 1, 0})
	inside := NewRay(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, -1, 0})

	tests := []struct {
		name     string
		shape    Shape
		ray      Ray
		expected float64
		hit      bool
	}{
		{"plane from above", &Plane{Normal: mgl64.Vec3{0, 1, 0}}, down, 5, true},
		{"plane parallel", &Plane{Normal: mgl64.Vec3{0, 1, 0}}, NewRay(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 0, 0}), 0, false},
		{"ball top", &Ball{Radius: 1}, down, 4, true},
		{"ball miss", &Ball{Radius: 1}, miss, 0, false},
		{"ball inside", &Ball{Radius: 1}, inside, 0, true},
		{"box top", &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, down, 4, true},
		{"box side", &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, side, 4, true},
		{"cylinder cap", &Cylinder{HalfHeight: 1, Radius: 1}, down, 4, true},
		{"cylinder side", &Cylinder{HalfHeight: 1, Radius: 1}, side, 4, true},
		{"cylinder miss", &Cylinder{HalfHeight: 1, Radius: 1}, miss, 0, false},
		{"cone apex", &Cone{HalfHeight: 1, Radius: 1}, down, 4, true},
		{"cone mid height", &Cone{HalfHeight: 1, Radius: 1}, side, 4.5, true},
		{"cone inside", &Cone{HalfHeight: 1, Radius: 1}, inside, 0, true},
		{"cone from below", &Cone{HalfHeight: 1, Radius: 1}, NewRay(mgl64.Vec3{0, -5, 0}, mgl64.Vec3{0, 1, 0}), 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toi, hit := tt.shape.RayCast(NewTransform(), tt.ray)
			if hit != tt.hit {
				t.Fatalf("RayCast() hit = %v, want %v", hit, tt.hit)
			}
			if hit && !floatEqual(toi, tt.expected, 1e-9) {
				t.Errorf("RayCast() t = %v, want %v", toi, tt.expected)
			}
		})
	}
}

func TestRayCastRespectsTransform(t *testing.T) {
	box := &Box{HalfExtents: mgl64.Vec3{2, 0.5, 0.5}}
	transform := Transform{
		Position: mgl64.Vec3{0, 3, 0},
		Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}),
	}
	ray := NewRay(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{0, -1, 0})

	// The long axis now points along Y: the top face sits at y = 5
	toi, hit := box.RayCast(transform, ray)
	if !hit || !floatEqual(toi, 5, 1e-9) {
		t.Errorf("RayCast() = %v, %v; want 5, true", toi, hit)
	}
}

// ========== INERTIA ==========

func TestComputeInertia(t *testing.T) {
	tests := []struct {
		name         string
		shape        Shape
		mass         float64
		expectedDiag mgl64.Vec3
	}{
		{"unit cube", &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, 12, mgl64.Vec3{8, 8, 8}},
		{"box 2x3x4", &Box{HalfExtents: mgl64.Vec3{2, 3, 4}}, 12, mgl64.Vec3{100, 80, 52}},
		{"ball", &Ball{Radius: 2}, 10, mgl64.Vec3{16, 16, 16}},
		{"cylinder", &Cylinder{HalfHeight: 1, Radius: 1}, 12, mgl64.Vec3{7, 6, 7}},
		{"cone", &Cone{HalfHeight: 1, Radius: 1}, 1, mgl64.Vec3{0.3, 0.3, 0.3}},
		{"plane", &Plane{Normal: mgl64.Vec3{0, 1, 0}}, 1, mgl64.Vec3{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.shape.ComputeInertia(tt.mass)
			if !vec3Equal(result.Diag(), tt.expectedDiag, 1e-9) {
				t.Errorf("ComputeInertia() diagonal = %v, want %v", result.Diag(), tt.expectedDiag)
			}
			if result.At(0, 1) != 0 || result.At(1, 2) != 0 || result.At(0, 2) != 0 {
				t.Errorf("ComputeInertia() returned non-diagonal matrix: %v", result)
			}
		})
	}
}

// ========== CONTACT FEATURES ==========

func TestContactFeature(t *testing.T) {
	tests := []struct {
		name      string
		shape     Shape
		direction mgl64.Vec3
		count     int
	}{
		{"box face", &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, mgl64.Vec3{0.1, -1, 0}, 4},
		{"ball", &Ball{Radius: 1}, mgl64.Vec3{0, -1, 0}, 1},
		{"cylinder cap", &Cylinder{HalfHeight: 1, Radius: 1}, mgl64.Vec3{0, -1, 0}, rimSegments},
		{"cylinder side", &Cylinder{HalfHeight: 1, Radius: 1}, mgl64.Vec3{1, 0, 0}, 2},
		{"cylinder rim", &Cylinder{HalfHeight: 1, Radius: 1}, mgl64.Vec3{1, -1, 0}, 1},
		{"cone base", &Cone{HalfHeight: 1, Radius: 1}, mgl64.Vec3{0, -1, 0}, rimSegments},
		{"cone apex", &Cone{HalfHeight: 1, Radius: 1}, mgl64.Vec3{0, 1, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feature := tt.shape.ContactFeature(tt.direction)
			if len(feature) != tt.count {
				t.Fatalf("ContactFeature() returned %d points, want %d", len(feature), tt.count)
			}

			// Every point of the feature lies on the supporting plane
			extent := tt.shape.Support(tt.direction).Dot(tt.direction.Normalize())
			for _, p := range feature {
				if p.Dot(tt.direction.Normalize()) > extent+1e-9 {
					t.Errorf("feature point %v beyond support plane %v", p, extent)
				}
			}
		})
	}
}

func TestBoxContactFeatureWinding(t *testing.T) {
	box := &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}

	for _, dir := range []mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}} {
		face := box.ContactFeature(dir)
		normal := face[1].Sub(face[0]).Cross(face[2].Sub(face[1]))
		if normal.Dot(dir) <= 0 {
			t.Errorf("face %v is not counter-clockwise seen from %v", face, dir)
		}
	}
}

func TestTangentBasis(t *testing.T) {
	for _, n := range []mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, -1}, mgl64.Vec3{1, 2, 3}.Normalize()} {
		t1, t2 := TangentBasis(n)
		if !floatEqual(t1.Dot(n), 0, 1e-12) || !floatEqual(t2.Dot(n), 0, 1e-12) || !floatEqual(t1.Dot(t2), 0, 1e-12) {
			t.Errorf("TangentBasis(%v) not orthogonal: %v %v", n, t1, t2)
		}
		if !floatEqual(t1.Len(), 1, 1e-12) || !floatEqual(t2.Len(), 1, 1e-12) {
			t.Errorf("TangentBasis(%v) not unit: %v %v", n, t1, t2)
		}
	}
}
