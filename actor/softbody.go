package actor

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SoftBody is a deformable point cloud. It takes part in the broad phase so
// that proximity is tracked, but no detector or solver acts on it yet.
type SoftBody struct {
	handle Handle
	Points []mgl64.Vec3
	aabb   AABB
}

func NewSoftBody(points []mgl64.Vec3) (*SoftBody, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("soft body without points: %w", ErrDegenerateShape)
	}
	sb := &SoftBody{Points: append([]mgl64.Vec3(nil), points...)}
	sb.UpdateAABB()
	return sb, nil
}

func (sb *SoftBody) body() {}

func (sb *SoftBody) Handle() Handle     { return sb.handle }
func (sb *SoftBody) SetHandle(h Handle) { sb.handle = h }
func (sb *SoftBody) AABB() AABB         { return sb.aabb }
func (sb *SoftBody) IsActive() bool     { return false }
func (sb *SoftBody) CanMove() bool      { return false }

func (sb *SoftBody) UpdateAABB() AABB {
	inf := math.Inf(1)
	aabb := AABB{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
	for _, p := range sb.Points {
		aabb = aabb.Merge(AABB{Min: p, Max: p})
	}
	sb.aabb = aabb
	return aabb
}
