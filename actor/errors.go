package actor

import "errors"

// Construction errors. Degenerate input never reaches the simulation step.
var (
	// ErrDegenerateShape indicates a shape with a zero or negative extent.
	ErrDegenerateShape = errors.New("actor: degenerate shape")

	// ErrInvalidMass indicates a dynamic body without a strictly positive mass.
	ErrInvalidMass = errors.New("actor: invalid mass")

	// ErrInvalidMaterial indicates a restitution outside [0, 1] or a negative friction.
	ErrInvalidMaterial = errors.New("actor: invalid material")

	// ErrStaticOnly indicates a shape that can only be attached to a static body.
	ErrStaticOnly = errors.New("actor: shape requires a static body")
)
