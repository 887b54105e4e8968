package acoustics

import "errors"

// ErrValidation is returned when profile inputs are unusable.
var ErrValidation = errors.New("acoustics: validation failed")
