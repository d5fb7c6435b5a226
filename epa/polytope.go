package epa

import (
	"math"

	"github.com/akmonengine/impulse/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// Face is a triangle of the polytope, wound counter-clockwise seen from outside
type Face struct {
	Indices  [3]int
	Normal   mgl64.Vec3 // outward unit normal
	Distance float64    // distance from the origin to the plane of the face
}

// edge is a directed edge between two vertex indices
type edge struct {
	A, B int
}

// PolytopeBuilder manages polytope expansion with reusable buffers.
type PolytopeBuilder struct {
	vertices []gjk.SupportPoint
	faces    []Face

	// Directed edges of the visible faces, for horizon detection
	edges   []edge
	horizon []edge
	visible []bool
}

// Reset prepares the builder for reuse by clearing all slices.
func (b *PolytopeBuilder) Reset() {
	if b.faces == nil {
		b.vertices = make([]gjk.SupportPoint, 0, polytopeInitialCapacity)
		b.faces = make([]Face, 0, polytopeInitialCapacity)
	}
	b.vertices = b.vertices[:0]
	b.faces = b.faces[:0]
	b.edges = b.edges[:0]
	b.horizon = b.horizon[:0]
	b.visible = b.visible[:0]
}

// BuildInitialFaces creates the four faces of the tetrahedron, each oriented
// away from the vertex it does not contain.
func (b *PolytopeBuilder) BuildInitialFaces(points [4]gjk.SupportPoint) error {
	b.vertices = append(b.vertices, points[:]...)

	p0, p1, p2, p3 := points[0].Point, points[1].Point, points[2].Point, points[3].Point
	volume := p1.Sub(p0).Dot(p2.Sub(p0).Cross(p3.Sub(p0)))
	if math.Abs(volume) < 1e-14 {
		return ErrDegenerate
	}

	candidates := [4][4]int{
		{0, 1, 2, 3}, // Face ABC, opposite point is D
		{0, 3, 1, 2}, // Face ADB, opposite point is C
		{0, 2, 3, 1}, // Face ACD, opposite point is B
		{1, 3, 2, 0}, // Face BDC, opposite point is A
	}
	for _, c := range candidates {
		i0, i1, i2 := c[0], c[1], c[2]
		a := b.vertices[i0].Point
		normal := b.vertices[i1].Point.Sub(a).Cross(b.vertices[i2].Point.Sub(a))
		if normal.Dot(b.vertices[c[3]].Point.Sub(a)) > 0 {
			i1, i2 = i2, i1
		}
		b.faces = append(b.faces, b.createFace(i0, i1, i2))
	}

	return nil
}

func (b *PolytopeBuilder) createFace(i0, i1, i2 int) Face {
	a := b.vertices[i0].Point
	normal := b.vertices[i1].Point.Sub(a).Cross(b.vertices[i2].Point.Sub(a))

	face := Face{Indices: [3]int{i0, i1, i2}}
	length := normal.Len()
	if length < 1e-12 {
		// Zero area: keep it for the topology, never pick it as closest
		face.Normal = mgl64.Vec3{0, 1, 0}
		face.Distance = math.Inf(1)
		return face
	}

	face.Normal = normal.Mul(1.0 / length)
	face.Distance = face.Normal.Dot(a)
	return face
}

// FindClosestFaceIndex returns the index of the face closest to the origin.
// Returns -1 if no usable face exists.
func (b *PolytopeBuilder) FindClosestFaceIndex() int {
	closestIndex := -1
	minDistance := math.Inf(1)

	for i := range b.faces {
		if b.faces[i].Distance < minDistance {
			closestIndex = i
			minDistance = b.faces[i].Distance
		}
	}

	return closestIndex
}

// AddPointAndRebuildFaces expands the polytope by adding a support point:
//  1. Finds the faces visible from the support point
//  2. Identifies the horizon, the boundary edges of the visible region
//  3. Removes the visible faces
//  4. Creates new faces connecting the horizon to the support point
//
// It returns false when no face is visible, leaving the polytope unchanged.
func (b *PolytopeBuilder) AddPointAndRebuildFaces(support gjk.SupportPoint) bool {
	const visibility = 1e-10

	b.visible = b.visible[:0]
	count := 0
	for i := range b.faces {
		face := &b.faces[i]
		a := b.vertices[face.Indices[0]].Point
		isVisible := !math.IsInf(face.Distance, 1) && face.Normal.Dot(support.Point.Sub(a)) > visibility
		b.visible = append(b.visible, isVisible)
		if isVisible {
			count++
		}
	}
	if count == 0 {
		return false
	}

	b.findHorizon()

	// Remove visible faces, keeping the order of the others
	kept := b.faces[:0]
	for i, face := range b.faces {
		if !b.visible[i] {
			kept = append(kept, face)
		}
	}
	b.faces = kept

	index := len(b.vertices)
	b.vertices = append(b.vertices, support)
	for _, e := range b.horizon {
		b.faces = append(b.faces, b.createFace(e.A, e.B, index))
	}

	return true
}

// findHorizon keeps the directed edges of visible faces whose twin does not
// belong to another visible face.
func (b *PolytopeBuilder) findHorizon() {
	b.edges = b.edges[:0]
	for i, face := range b.faces {
		if !b.visible[i] {
			continue
		}
		idx := face.Indices
		b.edges = append(b.edges,
			edge{idx[0], idx[1]},
			edge{idx[1], idx[2]},
			edge{idx[2], idx[0]},
		)
	}

	b.horizon = b.horizon[:0]
	for _, e := range b.edges {
		twin := false
		for _, other := range b.edges {
			if other.A == e.B && other.B == e.A {
				twin = true
				break
			}
		}
		if !twin {
			b.horizon = append(b.horizon, e)
		}
	}
}

// penetration projects the origin on face and interpolates the witnesses
func (b *PolytopeBuilder) penetration(face Face) Penetration {
	v0 := b.vertices[face.Indices[0]]
	v1 := b.vertices[face.Indices[1]]
	v2 := b.vertices[face.Indices[2]]

	projection := face.Normal.Mul(face.Distance)
	u, v, w := barycentric(projection, v0.Point, v1.Point, v2.Point)

	return Penetration{
		Normal: snapNormalToAxis(face.Normal.Mul(-1)),
		Depth:  math.Max(face.Distance, 0),
		PointA: v0.A.Mul(u).Add(v1.A.Mul(v)).Add(v2.A.Mul(w)),
		PointB: v0.B.Mul(u).Add(v1.B.Mul(v)).Add(v2.B.Mul(w)),
	}
}

// barycentric returns the weights of p in triangle (a, b, c), clamped to the
// triangle
func barycentric(p, a, b, c mgl64.Vec3) (float64, float64, float64) {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := p.Sub(a)

	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)

	denom := d00*d11 - d01*d01
	if math.Abs(denom) < 1e-20 {
		return 1, 0, 0
	}

	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	u := 1 - v - w

	u, v, w = math.Max(u, 0), math.Max(v, 0), math.Max(w, 0)
	sum := u + v + w
	return u / sum, v / sum, w / sum
}
