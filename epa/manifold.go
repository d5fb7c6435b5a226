package epa

import (
	"math"
	"sort"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"github.com/akmonengine/impulse/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxManifoldPoints bounds the contacts generated for one pair
const MaxManifoldPoints = 4

// GenerateManifold creates contact points for a collision using Sutherland-Hodgman clipping.
//
// Multiple points provide stability (preventing rotation/jitter) and distribute forces realistically.
//
// Algorithm:
//  1. Get contact features from each shape (point, edge, or face)
//  2. Transform features to world space
//  3. Determine incident (fewer points) and reference (more points) features
//  4. Clip incident feature against reference feature's side planes
//  5. Keep points that are penetrating
//  6. Reduce to max 4 points if needed
//
// A point feature on either side (curved shapes) yields the single contact of
// the penetration witnesses.
func GenerateManifold(a, b gjk.Posed, pen Penetration, out []constraint.Contact) []constraint.Contact {
	normal := pen.Normal

	// A touches B with its feature facing -normal, B with its feature facing normal
	featureA := transformFeature(a.Shape.ContactFeature(a.Transform.InverseRotate(normal.Mul(-1))), a.Transform)
	featureB := transformFeature(b.Shape.ContactFeature(b.Transform.InverseRotate(normal)), b.Transform)

	single := constraint.Contact{
		WorldA: pen.PointA,
		WorldB: pen.PointB,
		Normal: normal,
		Depth:  pen.Depth,
	}

	if len(featureA) == 1 || len(featureB) == 1 {
		return append(out, single)
	}

	// The reference feature is the polygon; on B its outward normal is +normal
	reference, incident := featureB, featureA
	refNormal := normal
	referenceOnB := true
	if len(featureA) > len(featureB) {
		reference, incident = featureA, featureB
		refNormal = normal.Mul(-1)
		referenceOnB = false
	}
	if len(reference) < 3 {
		// Edge against edge
		return append(out, single)
	}

	if faceNormal, ok := polygonNormal(reference); ok {
		if faceNormal.Dot(refNormal) < 0 {
			faceNormal = faceNormal.Mul(-1)
		}
		refNormal = faceNormal
	}

	clipped := clipIncidentAgainstReference(incident, reference, refNormal)
	refOffset := reference[0].Dot(refNormal)

	const slop = 1e-6
	start := len(out)
	for _, p := range clipped {
		separation := p.Dot(refNormal) - refOffset
		if separation > slop {
			continue
		}

		onReference := p.Sub(refNormal.Mul(separation))
		c := constraint.Contact{Normal: normal, Depth: -separation}
		if referenceOnB {
			c.WorldA, c.WorldB = p, onReference
		} else {
			c.WorldA, c.WorldB = onReference, p
		}
		out = append(out, c)
	}

	if len(out) == start {
		return append(out, single)
	}

	return ReduceContacts(out, start, normal)
}

func transformFeature(feature []mgl64.Vec3, transform actor.Transform) []mgl64.Vec3 {
	for i, point := range feature {
		feature[i] = transform.Apply(point)
	}
	return feature
}

// polygonNormal uses Newell's method, robust to nearly collinear vertices
func polygonNormal(polygon []mgl64.Vec3) (mgl64.Vec3, bool) {
	var n mgl64.Vec3
	for i := range polygon {
		current := polygon[i]
		next := polygon[(i+1)%len(polygon)]
		n[0] += (current.Y() - next.Y()) * (current.Z() + next.Z())
		n[1] += (current.Z() - next.Z()) * (current.X() + next.X())
		n[2] += (current.X() - next.X()) * (current.Y() + next.Y())
	}
	length := n.Len()
	if length < 1e-12 {
		return n, false
	}
	return n.Mul(1.0 / length), true
}

// clipIncidentAgainstReference clips the incident feature against the side
// planes of the reference polygon. A two point incident feature is clipped as
// a segment.
func clipIncidentAgainstReference(incident, reference []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	output := append([]mgl64.Vec3(nil), incident...)
	center := computeCenter(reference)

	for i := 0; i < len(reference); i++ {
		if len(output) == 0 {
			break
		}

		v1 := reference[i]
		v2 := reference[(i+1)%len(reference)]

		// Clipping plane normal (perpendicular to the edge, pointing inward)
		clipNormal := v2.Sub(v1).Cross(normal)
		if clipNormal.LenSqr() < 1e-20 {
			continue
		}
		clipNormal = clipNormal.Normalize()
		if center.Sub(v1).Dot(clipNormal) < 0 {
			clipNormal = clipNormal.Mul(-1)
		}

		if len(output) == 2 {
			output = clipSegmentAgainstPlane(output, v1, clipNormal)
		} else {
			output = clipPolygonAgainstPlane(output, v1, clipNormal)
		}
	}

	return output
}

// clipPolygonAgainstPlane implements Sutherland-Hodgman for a single plane
func clipPolygonAgainstPlane(polygon []mgl64.Vec3, planePoint, planeNormal mgl64.Vec3) []mgl64.Vec3 {
	const tolerance = 1e-6

	output := make([]mgl64.Vec3, 0, len(polygon)+1)
	for i := 0; i < len(polygon); i++ {
		current := polygon[i]
		next := polygon[(i+1)%len(polygon)]

		currentDist := current.Sub(planePoint).Dot(planeNormal)
		nextDist := next.Sub(planePoint).Dot(planeNormal)

		if currentDist >= -tolerance {
			output = append(output, current)
			if nextDist < -tolerance {
				output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
			}
		} else if nextDist >= -tolerance {
			output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
		}
	}

	return output
}

func clipSegmentAgainstPlane(segment []mgl64.Vec3, planePoint, planeNormal mgl64.Vec3) []mgl64.Vec3 {
	const tolerance = 1e-6

	p, q := segment[0], segment[1]
	pDist := p.Sub(planePoint).Dot(planeNormal)
	qDist := q.Sub(planePoint).Dot(planeNormal)

	switch {
	case pDist < -tolerance && qDist < -tolerance:
		return segment[:0]
	case pDist < -tolerance:
		segment[0] = lineIntersectPlane(p, q, planePoint, planeNormal)
	case qDist < -tolerance:
		segment[1] = lineIntersectPlane(p, q, planePoint, planeNormal)
	}
	return segment
}

// lineIntersectPlane calculates the intersection between a line segment and a plane
func lineIntersectPlane(p1, p2, planePoint, planeNormal mgl64.Vec3) mgl64.Vec3 {
	dir := p2.Sub(p1)
	dist := p1.Sub(planePoint).Dot(planeNormal)
	denom := dir.Dot(planeNormal)

	if math.Abs(denom) < 1e-10 {
		return p1 // Segment parallel to plane
	}

	t := -dist / denom
	t = math.Max(0, math.Min(1, t))

	return p1.Add(dir.Mul(t))
}

// computeCenter calculates the centroid of a set of points
func computeCenter(points []mgl64.Vec3) mgl64.Vec3 {
	if len(points) == 0 {
		return mgl64.Vec3{0, 0, 0}
	}

	sum := mgl64.Vec3{0, 0, 0}
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float64(len(points)))
}

// ReduceContacts keeps at most MaxManifoldPoints of contacts[start:]: the
// extreme points along two tangent axes, in their original order.
func ReduceContacts(contacts []constraint.Contact, start int, normal mgl64.Vec3) []constraint.Contact {
	points := contacts[start:]
	if len(points) <= MaxManifoldPoints {
		return contacts
	}

	tangent1, tangent2 := actor.TangentBasis(normal)

	minX, maxX, minY, maxY := 0, 0, 0, 0
	minXval, maxXval := math.Inf(1), math.Inf(-1)
	minYval, maxYval := math.Inf(1), math.Inf(-1)

	for i, c := range points {
		p := c.Midpoint()
		x := p.Dot(tangent1)
		y := p.Dot(tangent2)

		if x < minXval {
			minXval, minX = x, i
		}
		if x > maxXval {
			maxXval, maxX = x, i
		}
		if y < minYval {
			minYval, minY = y, i
		}
		if y > maxYval {
			maxYval, maxY = y, i
		}
	}

	indices := []int{minX, maxX, minY, maxY}
	sort.Ints(indices)

	kept := make([]constraint.Contact, 0, MaxManifoldPoints)
	for i, idx := range indices {
		if i > 0 && idx == indices[i-1] {
			continue
		}
		kept = append(kept, points[idx])
	}

	return append(contacts[:start], kept...)
}
