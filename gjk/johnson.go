package gjk

import (
	"math"
	"math/bits"

	"github.com/go-gl/mathgl/mgl64"
)

// RecursionTemplate enumerates the sub-simplices of a simplex of dim+1
// vertices as bitmasks, ordered by increasing size. The determinants of a
// subset only depend on the subsets one vertex smaller, so walking Subsets in
// order computes every determinant once.
type RecursionTemplate struct {
	Dim     int
	Subsets []int
	// Members[mask] lists the vertex slots set in mask, ascending
	Members [][]int
}

func NewRecursionTemplate(dim int) *RecursionTemplate {
	n := dim + 1
	full := 1 << n

	t := &RecursionTemplate{
		Dim:     dim,
		Subsets: make([]int, 0, full-1),
		Members: make([][]int, full),
	}

	for mask := 1; mask < full; mask++ {
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				t.Members[mask] = append(t.Members[mask], i)
			}
		}
	}
	for size := 1; size <= n; size++ {
		for mask := 1; mask < full; mask++ {
			if bits.OnesCount(uint(mask)) == size {
				t.Subsets = append(t.Subsets, mask)
			}
		}
	}

	return t
}

// template3 is shared by every simplex in 3D
var template3 = NewRecursionTemplate(3)

// JohnsonSimplex holds up to four Minkowski vertices and finds the point of
// their convex hull closest to the origin with Johnson's sub-simplex algorithm.
type JohnsonSimplex struct {
	template *RecursionTemplate
	points   [4]SupportPoint
	// used is the bitmask of the occupied slots
	used    int
	dots    [4][4]float64
	dets    [16][4]float64
	weights [4]float64
}

func NewJohnsonSimplex() *JohnsonSimplex {
	return &JohnsonSimplex{template: template3}
}

func (s *JohnsonSimplex) Reset() {
	if s.template == nil {
		s.template = template3
	}
	s.used = 0
}

func (s *JohnsonSimplex) Len() int {
	return bits.OnesCount(uint(s.used))
}

func (s *JohnsonSimplex) IsFull() bool {
	return s.used == 0xF
}

// Points returns the current vertices in slot order
func (s *JohnsonSimplex) Points() []SupportPoint {
	points := make([]SupportPoint, 0, 4)
	for i := 0; i < 4; i++ {
		if s.used&(1<<i) != 0 {
			points = append(points, s.points[i])
		}
	}
	return points
}

// Contains reports whether p is already a vertex, which means GJK stalled
func (s *JohnsonSimplex) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 4; i++ {
		if s.used&(1<<i) != 0 && s.points[i].Point.Sub(p).LenSqr() < 1e-20 {
			return true
		}
	}
	return false
}

// Add stores p in a free slot. Adding to a full simplex is a no-op.
func (s *JohnsonSimplex) Add(p SupportPoint) {
	if s.template == nil {
		s.template = template3
	}

	slot := -1
	for i := 0; i < 4; i++ {
		if s.used&(1<<i) == 0 {
			slot = i
			break
		}
	}
	if slot < 0 {
		return
	}

	s.points[slot] = p
	s.used |= 1 << slot
	for j := 0; j < 4; j++ {
		if s.used&(1<<j) != 0 {
			d := p.Point.Dot(s.points[j].Point)
			s.dots[slot][j] = d
			s.dots[j][slot] = d
		}
	}
}

// Reduce shrinks the simplex to the sub-simplex whose affine hull holds the
// point closest to the origin and returns that point along with the matching
// witness points on A and B. ok is false when no sub-simplex has positive
// barycentric weights, which only happens on badly conditioned input.
func (s *JohnsonSimplex) Reduce() (v, onA, onB mgl64.Vec3, ok bool) {
	full := s.used
	if full == 0 {
		return v, onA, onB, false
	}

	t := s.template
	for _, mask := range t.Subsets {
		if mask&^full != 0 {
			continue
		}
		s.computeDeterminants(mask)
	}

	accepted := -1
	backup := -1
	backupDist := math.Inf(1)

	for _, mask := range t.Subsets {
		if mask&^full != 0 || !s.allPositive(mask) {
			continue
		}

		closest := true
		for j := 0; j < 4; j++ {
			bit := 1 << j
			if full&bit == 0 || mask&bit != 0 {
				continue
			}
			if s.dets[mask|bit][j] > 0 {
				closest = false
				break
			}
		}
		if closest {
			accepted = mask
			break
		}

		if d := s.combine(mask).LenSqr(); d < backupDist {
			backupDist = d
			backup = mask
		}
	}

	if accepted < 0 {
		accepted = backup
	}
	if accepted < 0 {
		return v, onA, onB, false
	}

	s.used = accepted
	total := 0.0
	for _, i := range t.Members[accepted] {
		total += s.dets[accepted][i]
	}
	for _, i := range t.Members[accepted] {
		w := s.dets[accepted][i] / total
		s.weights[i] = w
		v = v.Add(s.points[i].Point.Mul(w))
		onA = onA.Add(s.points[i].A.Mul(w))
		onB = onB.Add(s.points[i].B.Mul(w))
	}

	return v, onA, onB, true
}

// computeDeterminants fills dets[mask] from the smaller subsets:
// Δ_j(X ∪ {j}) = Σ_{i ∈ X} Δ_i(X) · (y_k - y_j) · y_i, with k = min(X)
func (s *JohnsonSimplex) computeDeterminants(mask int) {
	members := s.template.Members[mask]
	if len(members) == 1 {
		s.dets[mask][members[0]] = 1
		return
	}

	for _, j := range members {
		sub := mask &^ (1 << j)
		k := s.template.Members[sub][0]

		sum := 0.0
		for _, i := range s.template.Members[sub] {
			sum += s.dets[sub][i] * (s.dots[k][i] - s.dots[j][i])
		}
		s.dets[mask][j] = sum
	}
}

func (s *JohnsonSimplex) allPositive(mask int) bool {
	for _, i := range s.template.Members[mask] {
		if !(s.dets[mask][i] > 0) {
			return false
		}
	}
	return true
}

func (s *JohnsonSimplex) combine(mask int) mgl64.Vec3 {
	var v mgl64.Vec3
	total := 0.0
	for _, i := range s.template.Members[mask] {
		total += s.dets[mask][i]
	}
	for _, i := range s.template.Members[mask] {
		v = v.Add(s.points[i].Point.Mul(s.dets[mask][i] / total))
	}
	return v
}
