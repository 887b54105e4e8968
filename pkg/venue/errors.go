package venue

import "errors"

var (
	// ErrValidation is returned for malformed venue construction input.
	ErrValidation = errors.New("venue: validation failed")

	// ErrUnknownMaterial is returned when a surface references a material
	// that is not registered and no fallback policy is configured.
	ErrUnknownMaterial = errors.New("venue: unknown material")

	// ErrNotFound is returned when a preset does not exist.
	ErrNotFound = errors.New("venue: not found")
)
