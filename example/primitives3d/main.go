// Command primitives3d drops a grid of boxes, balls, cylinders and cones on a
// plane and reports how the pile settles.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/akmonengine/impulse"
	"github.com/akmonengine/impulse/actor"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr/funcr"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
)

var (
	steps      int
	num        int
	dt         float64
	configFile string
	plot       bool
	verbosity  int
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ccff"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899")).
			Width(20)

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "primitives3d",
		Short: "drop a pile of primitives on a plane",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
	rootCmd.Flags().IntVar(&steps, "steps", 600, "number of steps")
	rootCmd.Flags().IntVar(&num, "num", 8, "bodies per axis")
	rootCmd.Flags().Float64Var(&dt, "dt", 1.0/60.0, "timestep")
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.Flags().BoolVar(&plot, "plot", true, "plot the kinetic energy")
	rootCmd.Flags().IntVarP(&verbosity, "verbose", "v", 0, "log verbosity")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := funcr.New(func(prefix, args string) {
		fmt.Fprintln(os.Stderr, prefix, args)
	}, funcr.Options{Verbosity: verbosity})

	cfg := impulse.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = impulse.LoadConfig(configFile); err != nil {
			return err
		}
	}

	world, pipeline, err := impulse.NewDefaultWorld(cfg, log)
	if err != nil {
		return err
	}
	if err := buildScene(world, num); err != nil {
		return err
	}

	counter := &shapeCounter{}
	world.VisitShapes(counter)

	energy := make([]float64, 0, steps)
	start := time.Now()
	for i := 0; i < steps; i++ {
		world.Step(dt)
		energy = append(energy, world.KineticEnergy())
	}
	elapsed := time.Since(start)

	sleeping := 0
	world.EachBody(func(body actor.Body) {
		if rb, ok := body.(*actor.RigidBody); ok && rb.BodyType == actor.BodyTypeDynamic && !rb.IsActive() {
			sleeping++
		}
	})

	if plot && len(energy) > 0 {
		fmt.Println(asciigraph.Plot(energy,
			asciigraph.Height(12),
			asciigraph.Width(72),
			asciigraph.Caption("kinetic energy (J)")))
		fmt.Println()
	}

	rows := [][2]string{
		{"bodies", fmt.Sprintf("%d", world.NumBodies())},
		{"shapes", counter.String()},
		{"pairs", fmt.Sprintf("%d", pipeline.BroadPhase.NumPairs())},
		{"sleeping", fmt.Sprintf("%d", sleeping)},
		{"steps", fmt.Sprintf("%d × %.4fs", steps, dt)},
		{"wall time", elapsed.Round(time.Millisecond).String()},
		{"per step", (elapsed / time.Duration(max(steps, 1))).String()},
		{"kinetic energy", fmt.Sprintf("%.4f J", world.KineticEnergy())},
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("primitives3d") + "\n")
	for _, row := range rows {
		s.WriteString(labelStyle.Render(row[0]) + valueStyle.Render(row[1]) + "\n")
	}
	fmt.Println(panelStyle.Render(strings.TrimSuffix(s.String(), "\n")))

	return nil
}

// buildScene adds a static plane and num³ bodies, one shape kind per layer
func buildScene(world *impulse.World, num int) error {
	plane, err := actor.NewPlane(mgl64.Vec3{0, 1, 0})
	if err != nil {
		return err
	}
	ground, err := actor.NewRigidBody(plane, 0, actor.BodyTypeStatic, 0.3, 0.6)
	if err != nil {
		return err
	}
	world.AddObject(ground)

	const rad = 1.0
	shift := (rad + 0.08) * 2
	centerx := shift * float64(num) / 2
	centery := shift / 2
	centerz := shift * float64(num) / 2

	for i := 0; i < num; i++ {
		for j := 0; j < num; j++ {
			for k := 0; k < num; k++ {
				shape, err := layerShape(j, rad)
				if err != nil {
					return err
				}
				body, err := actor.NewRigidBody(shape, 1, actor.BodyTypeDynamic, 0.3, 0.5)
				if err != nil {
					return err
				}
				body.TranslateBy(mgl64.Vec3{
					float64(i)*shift - centerx,
					float64(j)*shift + centery,
					float64(k)*shift - centerz,
				})
				world.AddObject(body)
			}
		}
	}
	return nil
}

func layerShape(layer int, rad float64) (actor.Shape, error) {
	switch {
	case layer%4 == 0:
		return actor.NewBox(mgl64.Vec3{rad, rad, rad})
	case layer%3 == 0:
		return actor.NewBall(rad)
	case layer%2 == 0:
		return actor.NewCylinder(rad, rad)
	}
	return actor.NewCone(rad, rad)
}

type shapeCounter struct {
	planes, boxes, balls, cylinders, cones int
}

func (c *shapeCounter) AddPlane(*actor.RigidBody, *actor.Plane)       { c.planes++ }
func (c *shapeCounter) AddCube(*actor.RigidBody, *actor.Box)          { c.boxes++ }
func (c *shapeCounter) AddBall(*actor.RigidBody, *actor.Ball)         { c.balls++ }
func (c *shapeCounter) AddCylinder(*actor.RigidBody, *actor.Cylinder) { c.cylinders++ }
func (c *shapeCounter) AddCone(*actor.RigidBody, *actor.Cone)         { c.cones++ }

func (c *shapeCounter) String() string {
	return fmt.Sprintf("%d planes, %d boxes, %d balls, %d cylinders, %d cones",
		c.planes, c.boxes, c.balls, c.cylinders, c.cones)
}
