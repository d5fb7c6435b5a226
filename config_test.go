package impulse

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.Gravity != (mgl64.Vec3{0, DefaultGravity, 0}) {
		t.Errorf("gravity = %v", cfg.Gravity)
	}
	if !cfg.CCD.Enabled || !cfg.Solver.PositionCorrection {
		t.Error("CCD and position correction are enabled by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"NaN gravity", func(c *Config) { c.Gravity[1] = math.NaN() }},
		{"infinite tornado axis", func(c *Config) { c.Tornado.Axis = mgl64.Vec3{0, math.Inf(1), 0} }},
		{"negative margin", func(c *Config) { c.BroadPhase.Margin = -0.1 }},
		{"no EPA iterations", func(c *Config) { c.NarrowPhase.EPAMaxIterations = 0 }},
		{"zero EPA tolerance", func(c *Config) { c.NarrowPhase.EPATolerance = 0 }},
		{"negative max velocity", func(c *Config) { c.Integrator.MaxLinearVelocity = -1 }},
		{"CCD epsilon of one", func(c *Config) { c.CCD.Epsilon = 1 }},
		{"wake below sleep", func(c *Config) { c.Activation.WakeThreshold = c.Activation.SleepThreshold / 2 }},
		{"zero blend ratio", func(c *Config) { c.Activation.BlendRatio = 0 }},
		{"contact factor above one", func(c *Config) { c.Solver.ContactFactor = 1.5 }},
		{"warm start above one", func(c *Config) { c.Solver.WarmStartFactor = 2 }},
		{"no velocity iterations", func(c *Config) { c.Solver.VelocityIterations = 0 }},
		{"negative damping", func(c *Config) { c.Solver.AngularDamping = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}

	t.Run("default world rejects it", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Solver.VelocityIterations = 0
		if _, _, err := NewDefaultWorld(cfg, testr.New(t)); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("NewDefaultWorld() = %v, want ErrInvalidConfig", err)
		}
	})
}

func TestSaveLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "impulse.yaml")

	cfg := DefaultConfig()
	cfg.Gravity = mgl64.Vec3{0, -1.62, 0}
	cfg.Tornado.Swirl = 3
	cfg.CCD.Enabled = false
	cfg.Solver.PositionCorrection = false
	cfg.Solver.LinearDamping = 0.1

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestLoadConfig(t *testing.T) {
	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "impulse.yaml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("partial file keeps defaults", func(t *testing.T) {
		cfg, err := LoadConfig(write(t, "gravity: [0, -1, 0]\nsolver:\n  velocity_iterations: 4\n"))
		if err != nil {
			t.Fatal(err)
		}

		want := DefaultConfig()
		want.Gravity = mgl64.Vec3{0, -1, 0}
		want.Solver.VelocityIterations = 4
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := LoadConfig(write(t, "activation:\n  blend_ratio: 2\n"))
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("err = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if _, err := LoadConfig(write(t, "gravity: {\n")); err == nil {
			t.Error("expected a parse error")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("err = %v, want os.ErrNotExist", err)
		}
	})
}
