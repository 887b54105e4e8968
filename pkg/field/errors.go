package field

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
)

var (
	// ErrOutOfBounds is matched by every OutOfBoundsError.
	ErrOutOfBounds = errors.New("field: position out of bounds")

	// ErrValidation is returned for unusable query input.
	ErrValidation = errors.New("field: validation failed")
)

// OutOfBoundsError reports a query position outside the venue volume.
type OutOfBoundsError struct {
	// Position is the rejected query position.
	Position vecmath.Vec3

	// Max is the far corner of the venue; the near corner is the origin.
	Max vecmath.Vec3
}

// Error implements the error interface.
func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("field: position (%g, %g, %g) outside venue [0,%g]x[0,%g]x[0,%g]",
		e.Position.X, e.Position.Y, e.Position.Z, e.Max.X, e.Max.Y, e.Max.Z)
}

// Unwrap lets errors.Is match ErrOutOfBounds.
func (e *OutOfBoundsError) Unwrap() error {
	return ErrOutOfBounds
}
