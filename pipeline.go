package impulse

import (
	"fmt"

	"github.com/akmonengine/impulse/broad"
	"github.com/akmonengine/impulse/detection"
	"github.com/akmonengine/impulse/integration"
	"github.com/akmonengine/impulse/resolution"
	"github.com/akmonengine/impulse/signal"
	"github.com/go-logr/logr"
)

// Pipeline gives access to the stages wired by NewDefaultWorld
type Pipeline struct {
	BroadPhase *detection.BroadPhase
	Forces     *integration.BodyForceGenerator
	Integrator *integration.SemiImplicitEuler
	// CCD is nil when disabled by the configuration
	CCD     *integration.SweptBallMotionClamping
	Bodies  *detection.BodiesBodies
	Joints  *detection.JointManager
	Islands *detection.IslandActivationManager
	Solver  *resolution.AccumulatedImpulseSolver
}

// NewDefaultWorld validates cfg (nil means DefaultConfig) and builds a world
// with the full pipeline: forces, Euler integration, swept-ball CCD sharing
// the broad phase tree, contact and joint detection, island sleeping and the
// accumulated impulse solver.
func NewDefaultWorld(cfg *Config, log logr.Logger) (*World, *Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("default world: %w", err)
	}

	events := signal.NewEmitter()
	world := NewWorld(events, log)
	p := &Pipeline{}

	p.Forces = integration.NewBodyForceGenerator(cfg.Gravity, integration.Tornado{
		Origin: cfg.Tornado.Origin,
		Axis:   cfg.Tornado.Axis,
		Swirl:  cfg.Tornado.Swirl,
		Suck:   cfg.Tornado.Suck,
	})
	p.Integrator = integration.NewSemiImplicitEuler(cfg.Integrator.MaxLinearVelocity, cfg.Integrator.MaxAngularVelocity)

	p.BroadPhase = broad.NewDBVT[*detection.Interference](detection.NewDispatcher(cfg.narrowConfig()), cfg.BroadPhase.Margin)

	// The CCD keeps the tree up to date before the integrators move the
	// bodies; the detector then only iterates the pairs.
	if cfg.CCD.Enabled {
		p.CCD = integration.NewSweptBallMotionClamping(p.BroadPhase, true)
		p.CCD.Epsilon = cfg.CCD.Epsilon
		p.CCD.MaxIterations = cfg.CCD.MaxIterations
		p.CCD.MotionThreshold = cfg.CCD.MotionThreshold
	}
	p.Bodies = detection.NewBodiesBodies(events, p.BroadPhase, !cfg.CCD.Enabled, world.Logger())
	p.Joints = detection.NewJointManager(events)

	p.Islands = detection.NewIslandActivationManager(events, cfg.Activation.WakeThreshold, cfg.Activation.SleepThreshold, world.Logger())
	p.Islands.BlendRatio = cfg.Activation.BlendRatio
	p.Islands.HysteresisSteps = cfg.Activation.HysteresisSteps

	p.Solver = resolution.NewAccumulatedImpulseSolver(cfg.Solver.RestitutionThreshold, cfg.correctionMode(),
		cfg.Solver.WarmStartFactor, cfg.Solver.VelocityIterations, cfg.Solver.PositionIterations)
	p.Solver.LinearDamping = cfg.Solver.LinearDamping
	p.Solver.AngularDamping = cfg.Solver.AngularDamping

	world.AddIntegrator(p.Forces)
	world.AddIntegrator(p.Integrator)
	if p.CCD != nil {
		world.AddIntegrator(p.CCD)
	}
	world.AddDetector(p.Bodies)
	world.AddDetector(p.Joints)
	world.AddDetector(p.Islands)
	world.AddSolver(p.Solver)

	return world, p, nil
}
