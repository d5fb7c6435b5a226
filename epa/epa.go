// Package epa implements the Expanding Polytope Algorithm for computing penetration depth.
//
// EPA is run after GJK detects an overlap to determine:
//   - Penetration depth (how far shapes overlap)
//   - Contact normal (direction to separate shapes)
//   - Witness points on each shape
//
// The algorithm expands a polytope (starting from GJK's final simplex) toward the
// boundary of the Minkowski difference, finding the face closest to the origin,
// which gives the Minimum Translation Vector (MTV) separating the shapes.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
package epa

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DefaultMaxIterations limits polytope expansion.
	// Typical convergence: 5-15 iterations for polytopes, more on curved shapes.
	DefaultMaxIterations = 64

	// DefaultTolerance defines when EPA has converged: the support point in the
	// direction of the closest face improves its distance by less than this.
	DefaultTolerance = 1e-4

	// NormalSnapThreshold is used to clamp nearly-zero normal components to exactly zero.
	// This helps with numerical stability and axis-aligned collisions.
	NormalSnapThreshold = 1e-8

	polytopeInitialCapacity = 16
)

var (
	// ErrNoConvergence is returned when the iteration cap is reached
	ErrNoConvergence = errors.New("epa: no convergence")

	// ErrDegenerate is returned when the overlap has no volume, so no
	// tetrahedron can be built around the origin
	ErrDegenerate = errors.New("epa: degenerate simplex")
)

// Penetration describes the overlap of two shapes. Normal points from B
// towards A: translating A by Normal*Depth separates the shapes.
type Penetration struct {
	Normal mgl64.Vec3
	Depth  float64
	PointA mgl64.Vec3
	PointB mgl64.Vec3
}

// EPA holds a reusable polytope. It is not safe for concurrent use.
type EPA struct {
	MaxIterations int
	Tolerance     float64

	builder PolytopeBuilder
}

func New(maxIterations int, tolerance float64) *EPA {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &EPA{MaxIterations: maxIterations, Tolerance: tolerance}
}

// Penetration expands simplex, the final simplex of an overlapping GJK query.
//
// Algorithm overview:
//  1. Blow the simplex up to a tetrahedron containing the origin
//  2. Find the face closest to the origin
//  3. Get the support point in the face normal direction
//  4. If converged (the new point doesn't improve the distance) → done
//  5. Otherwise, expand the polytope with the support point and repeat
func (e *EPA) Penetration(a, b gjk.Supporter, simplex []gjk.SupportPoint) (Penetration, error) {
	points, err := completeSimplex(a, b, simplex)
	if err != nil {
		return Penetration{}, err
	}

	builder := &e.builder
	builder.Reset()
	if err := builder.BuildInitialFaces(points); err != nil {
		return Penetration{}, err
	}

	for i := 0; i < e.MaxIterations; i++ {
		closestIndex := builder.FindClosestFaceIndex()
		if closestIndex < 0 {
			return Penetration{}, ErrDegenerate
		}
		closest := builder.faces[closestIndex]

		support := gjk.MinkowskiSupport(a, b, closest.Normal)
		distance := support.Point.Dot(closest.Normal)

		if distance-closest.Distance < e.Tolerance {
			return builder.penetration(closest), nil
		}

		if !builder.AddPointAndRebuildFaces(support) {
			// The point sees no face: the polytope already touches the boundary
			return builder.penetration(closest), nil
		}
	}

	return Penetration{}, fmt.Errorf("after %d iterations: %w", e.MaxIterations, ErrNoConvergence)
}

// completeSimplex blows a GJK simplex of 1 to 3 points up to a tetrahedron.
// GJK stops as soon as the origin lies on the simplex, which can happen before
// it holds four points.
func completeSimplex(a, b gjk.Supporter, simplex []gjk.SupportPoint) ([4]gjk.SupportPoint, error) {
	var points [4]gjk.SupportPoint
	n := copy(points[:], simplex)
	if n == 0 {
		return points, ErrDegenerate
	}

	const eps = 1e-10

	if n == 1 {
		axes := [6]mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
		for _, axis := range axes {
			p := gjk.MinkowskiSupport(a, b, axis)
			if p.Point.Sub(points[0].Point).LenSqr() > eps {
				points[1] = p
				n = 2
				break
			}
		}
		if n == 1 {
			return points, ErrDegenerate
		}
	}

	if n == 2 {
		dir := points[1].Point.Sub(points[0].Point).Normalize()
		t1, t2 := actor.TangentBasis(dir)

		// Sweep a direction orthogonal to the segment in 60° steps
		for k := 0; k < 6; k++ {
			angle := float64(k) * math.Pi / 3
			search := t1.Mul(math.Cos(angle)).Add(t2.Mul(math.Sin(angle)))
			p := gjk.MinkowskiSupport(a, b, search)

			offset := p.Point.Sub(points[0].Point)
			if offset.Sub(dir.Mul(offset.Dot(dir))).LenSqr() > eps {
				points[2] = p
				n = 3
				break
			}
		}
		if n == 2 {
			return points, ErrDegenerate
		}
	}

	if n == 3 {
		normal := points[1].Point.Sub(points[0].Point).Cross(points[2].Point.Sub(points[0].Point))
		if normal.LenSqr() < eps*eps {
			return points, ErrDegenerate
		}
		normal = normal.Normalize()

		up := gjk.MinkowskiSupport(a, b, normal)
		down := gjk.MinkowskiSupport(a, b, normal.Mul(-1))
		upDist := math.Abs(up.Point.Sub(points[0].Point).Dot(normal))
		downDist := math.Abs(down.Point.Sub(points[0].Point).Dot(normal))

		// Grow towards the side of the triangle holding the origin
		side := points[0].Point.Dot(normal)
		switch {
		case side > eps && downDist > eps:
			points[3] = down
		case side < -eps && upDist > eps:
			points[3] = up
		case upDist >= downDist && upDist > eps:
			points[3] = up
		case downDist > eps:
			points[3] = down
		default:
			return points, ErrDegenerate
		}
	}

	return points, nil
}

// snapNormalToAxis clamps nearly-zero components of a normal vector to exactly zero.
//
// This improves numerical stability for axis-aligned collisions (box on ground)
// by preventing tiny floating-point errors from causing jitter in tangent directions.
func snapNormalToAxis(normal mgl64.Vec3) mgl64.Vec3 {
	for i := 0; i < 3; i++ {
		if math.Abs(normal[i]) < NormalSnapThreshold {
			normal[i] = 0
		}
	}

	length := normal.Len()
	if length < 1e-8 {
		return mgl64.Vec3{0, 1, 0}
	}
	return normal.Mul(1.0 / length)
}
