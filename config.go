package impulse

import (
	"fmt"
	"math"
	"os"

	"github.com/akmonengine/impulse/broad"
	"github.com/akmonengine/impulse/detection"
	"github.com/akmonengine/impulse/epa"
	"github.com/akmonengine/impulse/integration"
	"github.com/akmonengine/impulse/narrow"
	"github.com/akmonengine/impulse/resolution"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const DefaultGravity = -9.81

// Config holds the tunables of the default pipeline
type Config struct {
	Gravity     mgl64.Vec3        `yaml:"gravity,flow"`
	Tornado     TornadoConfig     `yaml:"tornado"`
	BroadPhase  BroadPhaseConfig  `yaml:"broad_phase"`
	NarrowPhase NarrowPhaseConfig `yaml:"narrow_phase"`
	Integrator  IntegratorConfig  `yaml:"integrator"`
	CCD         CCDConfig         `yaml:"ccd"`
	Activation  ActivationConfig  `yaml:"activation"`
	Solver      SolverConfig      `yaml:"solver"`
}

type TornadoConfig struct {
	Origin mgl64.Vec3 `yaml:"origin,flow"`
	Axis   mgl64.Vec3 `yaml:"axis,flow"`
	Swirl  float64    `yaml:"swirl"`
	Suck   float64    `yaml:"suck"`
}

type BroadPhaseConfig struct {
	Margin float64 `yaml:"margin"`
}

type NarrowPhaseConfig struct {
	EPAMaxIterations     int     `yaml:"epa_max_iterations"`
	EPATolerance         float64 `yaml:"epa_tolerance"`
	PersistenceTolerance float64 `yaml:"persistence_tolerance"`
}

type IntegratorConfig struct {
	MaxLinearVelocity  float64 `yaml:"max_linear_velocity"`
	MaxAngularVelocity float64 `yaml:"max_angular_velocity"`
}

type CCDConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Epsilon         float64 `yaml:"epsilon"`
	MaxIterations   int     `yaml:"max_iterations"`
	MotionThreshold float64 `yaml:"motion_threshold"`
}

type ActivationConfig struct {
	WakeThreshold   float64 `yaml:"wake_threshold"`
	SleepThreshold  float64 `yaml:"sleep_threshold"`
	BlendRatio      float64 `yaml:"blend_ratio"`
	HysteresisSteps int     `yaml:"hysteresis_steps"`
}

type SolverConfig struct {
	RestitutionThreshold float64 `yaml:"restitution_threshold"`
	// PositionCorrection selects the split correction; false biases the
	// velocity pass instead
	PositionCorrection bool    `yaml:"position_correction"`
	ContactFactor      float64 `yaml:"contact_factor"`
	JointFactor        float64 `yaml:"joint_factor"`
	Penetration        float64 `yaml:"penetration"`
	WarmStartFactor    float64 `yaml:"warm_start_factor"`
	VelocityIterations int     `yaml:"velocity_iterations"`
	PositionIterations int     `yaml:"position_iterations"`
	LinearDamping      float64 `yaml:"linear_damping"`
	AngularDamping     float64 `yaml:"angular_damping"`
}

func DefaultConfig() *Config {
	correction := resolution.DefaultCorrectionMode()

	return &Config{
		Gravity: mgl64.Vec3{0, DefaultGravity, 0},
		BroadPhase: BroadPhaseConfig{
			Margin: broad.DefaultMargin,
		},
		NarrowPhase: NarrowPhaseConfig{
			EPAMaxIterations:     epa.DefaultMaxIterations,
			EPATolerance:         epa.DefaultTolerance,
			PersistenceTolerance: narrow.DefaultPersistenceTolerance,
		},
		Integrator: IntegratorConfig{
			MaxLinearVelocity:  integration.DefaultMaxLinearVelocity,
			MaxAngularVelocity: integration.DefaultMaxAngularVelocity,
		},
		CCD: CCDConfig{
			Enabled:         true,
			Epsilon:         integration.DefaultCCDEpsilon,
			MaxIterations:   integration.DefaultCCDMaxIterations,
			MotionThreshold: integration.DefaultCCDMotionThreshold,
		},
		Activation: ActivationConfig{
			WakeThreshold:   detection.DefaultWakeThreshold,
			SleepThreshold:  detection.DefaultSleepThreshold,
			BlendRatio:      detection.DefaultBlendRatio,
			HysteresisSteps: detection.DefaultHysteresisSteps,
		},
		Solver: SolverConfig{
			RestitutionThreshold: resolution.DefaultRestitutionThreshold,
			PositionCorrection:   true,
			ContactFactor:        correction.ContactFactor,
			JointFactor:          correction.JointFactor,
			Penetration:          correction.Penetration,
			WarmStartFactor:      resolution.DefaultWarmStartFactor,
			VelocityIterations:   resolution.DefaultVelocityIterations,
			PositionIterations:   resolution.DefaultPositionIterations,
		},
	}
}

// LoadConfig reads a YAML file on top of the defaults and validates it
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the ranges of every section. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(field string, value any) error {
		return fmt.Errorf("%s = %v: %w", field, value, ErrInvalidConfig)
	}
	finite := func(v mgl64.Vec3) bool {
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return false
			}
		}
		return true
	}

	switch {
	case !finite(c.Gravity):
		return invalid("gravity", c.Gravity)
	case !finite(c.Tornado.Origin) || !finite(c.Tornado.Axis):
		return invalid("tornado", c.Tornado)
	case !(c.BroadPhase.Margin >= 0):
		return invalid("broad_phase.margin", c.BroadPhase.Margin)
	case c.NarrowPhase.EPAMaxIterations <= 0:
		return invalid("narrow_phase.epa_max_iterations", c.NarrowPhase.EPAMaxIterations)
	case !(c.NarrowPhase.EPATolerance > 0):
		return invalid("narrow_phase.epa_tolerance", c.NarrowPhase.EPATolerance)
	case !(c.NarrowPhase.PersistenceTolerance >= 0):
		return invalid("narrow_phase.persistence_tolerance", c.NarrowPhase.PersistenceTolerance)
	case !(c.Integrator.MaxLinearVelocity >= 0):
		return invalid("integrator.max_linear_velocity", c.Integrator.MaxLinearVelocity)
	case !(c.Integrator.MaxAngularVelocity >= 0):
		return invalid("integrator.max_angular_velocity", c.Integrator.MaxAngularVelocity)
	case !(c.CCD.Epsilon >= 0 && c.CCD.Epsilon < 1):
		return invalid("ccd.epsilon", c.CCD.Epsilon)
	case c.CCD.MaxIterations < 0:
		return invalid("ccd.max_iterations", c.CCD.MaxIterations)
	case !(c.CCD.MotionThreshold >= 0):
		return invalid("ccd.motion_threshold", c.CCD.MotionThreshold)
	case !(c.Activation.SleepThreshold >= 0):
		return invalid("activation.sleep_threshold", c.Activation.SleepThreshold)
	case !(c.Activation.WakeThreshold > c.Activation.SleepThreshold):
		return invalid("activation.wake_threshold", c.Activation.WakeThreshold)
	case !(c.Activation.BlendRatio > 0 && c.Activation.BlendRatio <= 1):
		return invalid("activation.blend_ratio", c.Activation.BlendRatio)
	case c.Activation.HysteresisSteps < 0:
		return invalid("activation.hysteresis_steps", c.Activation.HysteresisSteps)
	case !(c.Solver.RestitutionThreshold >= 0):
		return invalid("solver.restitution_threshold", c.Solver.RestitutionThreshold)
	case !(c.Solver.ContactFactor >= 0 && c.Solver.ContactFactor <= 1):
		return invalid("solver.contact_factor", c.Solver.ContactFactor)
	case !(c.Solver.JointFactor >= 0 && c.Solver.JointFactor <= 1):
		return invalid("solver.joint_factor", c.Solver.JointFactor)
	case !(c.Solver.Penetration >= 0):
		return invalid("solver.penetration", c.Solver.Penetration)
	case !(c.Solver.WarmStartFactor >= 0 && c.Solver.WarmStartFactor <= 1):
		return invalid("solver.warm_start_factor", c.Solver.WarmStartFactor)
	case c.Solver.VelocityIterations <= 0:
		return invalid("solver.velocity_iterations", c.Solver.VelocityIterations)
	case c.Solver.PositionIterations < 0:
		return invalid("solver.position_iterations", c.Solver.PositionIterations)
	case !(c.Solver.LinearDamping >= 0):
		return invalid("solver.linear_damping", c.Solver.LinearDamping)
	case !(c.Solver.AngularDamping >= 0):
		return invalid("solver.angular_damping", c.Solver.AngularDamping)
	}
	return nil
}

func (c *Config) narrowConfig() narrow.Config {
	return narrow.Config{
		EPAMaxIterations:     c.NarrowPhase.EPAMaxIterations,
		EPATolerance:         c.NarrowPhase.EPATolerance,
		PersistenceTolerance: c.NarrowPhase.PersistenceTolerance,
	}
}

func (c *Config) correctionMode() resolution.CorrectionMode {
	if c.Solver.PositionCorrection {
		return resolution.NewVelocityAndPositionCorrection(c.Solver.ContactFactor, c.Solver.JointFactor, c.Solver.Penetration)
	}
	return resolution.NewVelocityCorrection(c.Solver.ContactFactor, c.Solver.JointFactor, c.Solver.Penetration)
}
