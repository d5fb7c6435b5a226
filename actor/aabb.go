package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Infinity is the extent used for unbounded shapes. A true +Inf would turn
// surface areas and merges into NaN inside the bounding volume tree.
const Infinity = 1e10

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Contains checks if other lies entirely inside a
func (a AABB) Contains(other AABB) bool {
	return a.Min.X() <= other.Min.X() && a.Min.Y() <= other.Min.Y() && a.Min.Z() <= other.Min.Z() &&
		other.Max.X() <= a.Max.X() && other.Max.Y() <= a.Max.Y() && other.Max.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on all three axes
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Merge returns the smallest AABB enclosing both boxes
func (a AABB) Merge(other AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{
			math.Min(a.Min[0], other.Min[0]),
			math.Min(a.Min[1], other.Min[1]),
			math.Min(a.Min[2], other.Min[2]),
		},
		Max: mgl64.Vec3{
			math.Max(a.Max[0], other.Max[0]),
			math.Max(a.Max[1], other.Max[1]),
			math.Max(a.Max[2], other.Max[2]),
		},
	}
}

// Loosened grows the box by margin on every side
func (a AABB) Loosened(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a AABB) HalfExtents() mgl64.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// SurfaceArea is the cost metric of the bounding volume tree
func (a AABB) SurfaceArea() float64 {
	d := a.Max.Sub(a.Min)
	return 2.0 * (d.X()*d.Y() + d.Y()*d.Z() + d.Z()*d.X())
}

// IntersectsRay runs the slab test and returns the parametric entry time,
// clamped to zero when the origin lies inside the box.
func (a AABB) IntersectsRay(ray Ray) (float64, bool) {
	tmin := 0.0
	tmax := math.Inf(1)

	for i := 0; i < 3; i++ {
		if math.Abs(ray.Dir[i]) < 1e-12 {
			if ray.Origin[i] < a.Min[i] || ray.Origin[i] > a.Max[i] {
				return 0, false
			}
			continue
		}

		inv := 1.0 / ray.Dir[i]
		t1 := (a.Min[i] - ray.Origin[i]) * inv
		t2 := (a.Max[i] - ray.Origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}

	return tmin, true
}
