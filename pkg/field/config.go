package field

import (
	"fmt"

	"github.com/teslashibe/go-venue-acoustics/pkg/crowd"
)

// Config holds the tunable constants of the field model.
type Config struct {
	// SourcePower is the acoustic power of each source in watts.
	SourcePower float64

	// SourceRadius keeps intensity finite at the source (m).
	SourceRadius float64

	// LocalRadius is the neighbourhood used for local crowd density (m).
	LocalRadius float64

	// CrowdAbsorption is the per-person absorption applied to the crowd on
	// the direct path (intensity) and around the listener (reverb).
	CrowdAbsorption float64

	// CriticalDistanceK is the constant in rc = k·sqrt(V/RT60).
	CriticalDistanceK float64

	// ReferenceIntensity is the 0 dB intensity for LevelDB (W/m²).
	ReferenceIntensity float64
}

// DefaultConfig returns the standard field model.
func DefaultConfig() Config {
	return Config{
		SourcePower:        1.0,
		SourceRadius:       0.1,
		LocalRadius:        crowd.DefaultLocalRadius,
		CrowdAbsorption:    crowd.PerPersonAbsorption,
		CriticalDistanceK:  0.057,
		ReferenceIntensity: 1e-12,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SourcePower <= 0 {
		return fmt.Errorf("%w: source power must be > 0", ErrValidation)
	}
	if c.SourceRadius <= 0 {
		return fmt.Errorf("%w: source radius must be > 0", ErrValidation)
	}
	if c.LocalRadius <= 0 {
		return fmt.Errorf("%w: local radius must be > 0", ErrValidation)
	}
	if c.CrowdAbsorption < 0 || c.CrowdAbsorption > 1 {
		return fmt.Errorf("%w: crowd absorption outside [0,1]", ErrValidation)
	}
	if c.CriticalDistanceK <= 0 || c.ReferenceIntensity <= 0 {
		return fmt.Errorf("%w: critical distance and reference intensity must be > 0", ErrValidation)
	}
	return nil
}
