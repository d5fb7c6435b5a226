package actor

import "github.com/go-gl/mathgl/mgl64"

// Ray is a half-line. Dir need not be normalized: times of impact are
// expressed in multiples of Dir.
type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

func NewRay(origin, dir mgl64.Vec3) Ray {
	return Ray{Origin: origin, Dir: dir}
}

// PointAt returns Origin + t*Dir
func (r Ray) PointAt(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// ToLocal expresses the ray in the frame of transform
func (r Ray) ToLocal(transform Transform) Ray {
	return Ray{
		Origin: transform.InverseApply(r.Origin),
		Dir:    transform.InverseRotate(r.Dir),
	}
}
