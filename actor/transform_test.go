package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestTransformRoundTrip(t *testing.T) {
	transform := Transform{
		Position: mgl64.Vec3{1, -2, 3},
		Rotation: mgl64.QuatRotate(0.7, mgl64.Vec3{1, 1, 0}.Normalize()),
	}
	point := mgl64.Vec3{0.5, 4, -1}

	if got := transform.InverseApply(transform.Apply(point)); !vec3Equal(got, point, 1e-12) {
		t.Errorf("InverseApply(Apply(p)) = %v, want %v", got, point)
	}
	if got := transform.Inverse().Apply(transform.Apply(point)); !vec3Equal(got, point, 1e-12) {
		t.Errorf("Inverse().Apply(Apply(p)) = %v, want %v", got, point)
	}

	composed := transform.Mul(transform.Inverse())
	if !vec3Equal(composed.Apply(point), point, 1e-12) {
		t.Errorf("t * t^-1 is not the identity")
	}
}

func TestExpMap(t *testing.T) {
	tests := []struct {
		name  string
		omega mgl64.Vec3
		dt    float64
	}{
		{"quarter turn about y", mgl64.Vec3{0, math.Pi / 2, 0}, 1},
		{"small step", mgl64.Vec3{1, 2, 3}, 1.0 / 60.0},
		{"negative axis", mgl64.Vec3{0, 0, -4}, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			angle := tt.omega.Len() * tt.dt
			want := mgl64.QuatRotate(angle, tt.omega.Normalize())
			got := ExpMap(tt.omega, tt.dt)

			v := mgl64.Vec3{0.3, -1, 2}
			if !vec3Equal(got.Rotate(v), want.Rotate(v), 1e-12) {
				t.Errorf("ExpMap rotates %v to %v, want %v", v, got.Rotate(v), want.Rotate(v))
			}
			if !floatEqual(got.Len(), 1, 1e-12) {
				t.Errorf("ExpMap() not unit: %v", got.Len())
			}
		})
	}

	if q := ExpMap(mgl64.Vec3{}, 1); !floatEqual(q.W, 1, 1e-12) || q.V != (mgl64.Vec3{}) {
		t.Errorf("ExpMap(0) = %v, want identity", q)
	}
}

func TestIntegrateRotationStaysUnit(t *testing.T) {
	q := mgl64.QuatIdent()
	omega := mgl64.Vec3{3, -7, 11}
	for i := 0; i < 10000; i++ {
		q = IntegrateRotation(q, omega, 1.0/60.0)
	}
	if !floatEqual(q.Len(), 1, 1e-9) {
		t.Errorf("quaternion drifted to length %v", q.Len())
	}
}
