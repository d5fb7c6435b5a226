package impulse

import "errors"

var (
	// ErrDuplicateObject is raised when a body or a stage is registered twice
	ErrDuplicateObject = errors.New("impulse: object already registered")

	// ErrUnknownObject is raised for a handle, body or joint the world does
	// not hold
	ErrUnknownObject = errors.New("impulse: unknown object")

	// ErrInvalidConfig is returned by Config.Validate
	ErrInvalidConfig = errors.New("impulse: invalid configuration")
)
