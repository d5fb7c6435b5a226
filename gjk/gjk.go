// Package gjk implements the Gilbert-Johnson-Keerthi (GJK) distance algorithm.
//
// GJK computes the distance between two convex sets by searching the point of
// their Minkowski difference closest to the origin. The simplex is maintained
// with Johnson's sub-simplex algorithm, which also yields barycentric weights
// used to recover the closest points on each shape.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003)
package gjk

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// Epsilon is the distance under which two sets are considered overlapping
	Epsilon = 1e-7

	// MaxIterations is a safety limit; GJK converges in a few iterations
	// on polytopes and linearly on curved shapes
	MaxIterations = 64

	// relativeTolerance stops the search once the lower bound v·w is this
	// close to |v|², relative to |v|²
	relativeTolerance = 1e-10
)

// Result of a GJK distance query
type Result struct {
	Intersecting bool
	Distance     float64
	// PointA and PointB are the closest world points on each set, only
	// meaningful when the sets are separated
	PointA mgl64.Vec3
	PointB mgl64.Vec3
	// Normal is the unit direction from B towards A
	Normal     mgl64.Vec3
	Iterations int
}

// Distance runs GJK between a and b. initialDirection is a hint, typically the
// offset between the two centres; the simplex is reset and left holding the
// final sub-simplex, which EPA reuses when the sets overlap.
func Distance(a, b Supporter, initialDirection mgl64.Vec3, simplex *JohnsonSimplex) Result {
	simplex.Reset()

	direction := initialDirection
	if direction.LenSqr() < 1e-16 || !isFinite(direction) {
		direction = mgl64.Vec3{1, 0, 0}
	}

	first := MinkowskiSupport(a, b, direction)
	simplex.Add(first)
	v, onA, onB := first.Point, first.A, first.B

	var i int
	for i = 0; i < MaxIterations; i++ {
		vv := v.LenSqr()
		if vv <= Epsilon*Epsilon {
			return Result{Intersecting: true, Iterations: i}
		}

		w := MinkowskiSupport(a, b, v.Mul(-1))

		// No progress towards the origin: v is the closest point up to tolerance
		if vv-v.Dot(w.Point) <= relativeTolerance*vv || simplex.Contains(w.Point) {
			break
		}

		simplex.Add(w)
		next, nextA, nextB, ok := simplex.Reduce()
		if !ok {
			break
		}
		// Numerical stall: the new estimate must strictly decrease
		if next.LenSqr() >= vv && !simplex.IsFull() {
			break
		}
		v, onA, onB = next, nextA, nextB

		if simplex.IsFull() {
			return Result{Intersecting: true, Iterations: i + 1}
		}
	}

	dist := v.Len()
	if dist <= Epsilon {
		return Result{Intersecting: true, Iterations: i}
	}

	return Result{
		Distance:   dist,
		PointA:     onA,
		PointB:     onB,
		Normal:     v.Mul(1.0 / dist),
		Iterations: i,
	}
}

// Intersect reports whether a and b overlap
func Intersect(a, b Supporter, initialDirection mgl64.Vec3, simplex *JohnsonSimplex) bool {
	return Distance(a, b, initialDirection, simplex).Intersecting
}

// ClosestPoint projects point onto the convex set: it returns the closest
// point of the set and the distance, or ok=false when point lies inside.
func ClosestPoint(set Supporter, point mgl64.Vec3, simplex *JohnsonSimplex) (closest mgl64.Vec3, distance float64, ok bool) {
	direction := set.SupportWorld(mgl64.Vec3{1, 0, 0}).Sub(point)
	result := Distance(Point(point), set, direction.Mul(-1), simplex)
	if result.Intersecting {
		return point, 0, false
	}
	return result.PointB, result.Distance, true
}

func isFinite(v mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return false
		}
	}
	return true
}
