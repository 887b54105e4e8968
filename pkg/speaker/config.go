package speaker

import (
	"errors"
	"fmt"
)

// ErrValidation is returned for unusable optimizer input.
var ErrValidation = errors.New("speaker: validation failed")

// StandardBands are the equalizer center frequencies in Hz.
var StandardBands = []float64{63, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// Config holds optimizer constants.
type Config struct {
	// Resolution is the coverage grid cell size in meters.
	Resolution float64

	// ListenerHeight is the height at which coverage is evaluated (m).
	ListenerHeight float64

	// ReferenceFrequency is the frequency evaluated for coverage (Hz).
	ReferenceFrequency float64

	// MaxSpeakers caps the number of recommended positions.
	MaxSpeakers int

	// EarLevel, Clearance and DensityLift define OptimalHeight.
	EarLevel    float64
	Clearance   float64
	DensityLift float64

	// HeightRadius is the neighbourhood for crowd density in OptimalHeight (m).
	HeightRadius float64

	// CeilingMargin is the minimum gap kept below the ceiling (m).
	CeilingMargin float64

	// GainScale converts response difference into dB.
	GainScale float64

	// MaxGainDB bounds boost and cut.
	MaxGainDB float64
}

// DefaultConfig returns the standard optimizer settings.
func DefaultConfig() Config {
	return Config{
		Resolution:         1.0,
		ListenerHeight:     1.2,
		ReferenceFrequency: 1000,
		MaxSpeakers:        8,
		EarLevel:           1.7,
		Clearance:          1.5,
		DensityLift:        0.5,
		HeightRadius:       3.0,
		CeilingMargin:      0.3,
		GainScale:          24,
		MaxGainDB:          12,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Resolution <= 0 {
		return fmt.Errorf("%w: resolution must be > 0", ErrValidation)
	}
	if c.ReferenceFrequency <= 0 {
		return fmt.Errorf("%w: reference frequency must be > 0", ErrValidation)
	}
	if c.MaxSpeakers <= 0 {
		return fmt.Errorf("%w: max speakers must be > 0", ErrValidation)
	}
	if c.MaxGainDB <= 0 || c.GainScale <= 0 {
		return fmt.Errorf("%w: gain scale and max gain must be > 0", ErrValidation)
	}
	return nil
}
