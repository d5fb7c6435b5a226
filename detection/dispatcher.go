// Package detection turns the broad phase pairs and the joints into the
// constraints of a step, and puts quiescent islands of bodies to sleep.
package detection

import (
	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/epa"
	"github.com/akmonengine/impulse/narrow"
)

// Interference is the state of a broad phase pair. A nil Geom marks a pair
// the narrow phase does not support.
type Interference struct {
	Geom *narrow.GeomGeom

	// step of the last narrow phase update
	stamp    uint64
	reported bool
}

func (i *Interference) Supported() bool {
	return i.Geom != nil
}

// Dispatcher builds a GeomGeom for every pair of rigid bodies. Pairs with a
// soft body are Unsupported.
type Dispatcher struct {
	config narrow.Config
	epa    *epa.EPA
}

func NewDispatcher(config narrow.Config) *Dispatcher {
	return &Dispatcher{
		config: config,
		epa:    epa.New(config.EPAMaxIterations, config.EPATolerance),
	}
}

func (d *Dispatcher) Dispatch(a, b actor.Body) *Interference {
	_, rigidA := a.(*actor.RigidBody)
	_, rigidB := b.(*actor.RigidBody)
	if rigidA && rigidB {
		return &Interference{Geom: narrow.NewGeomGeom(d.config, d.epa)}
	}
	return &Interference{}
}

// IsValid rejects a body paired with itself and two rigid bodies that can
// never move.
func (d *Dispatcher) IsValid(a, b actor.Body) bool {
	if a == b {
		return false
	}

	rbA, rigidA := a.(*actor.RigidBody)
	rbB, rigidB := b.(*actor.RigidBody)
	if rigidA && rigidB {
		return rbA.CanMove() || rbB.CanMove()
	}
	return true
}
