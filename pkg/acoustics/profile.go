package acoustics

import (
	"fmt"

	"github.com/teslashibe/go-venue-acoustics/pkg/crowd"
	"github.com/teslashibe/go-venue-acoustics/pkg/environment"
	"github.com/teslashibe/go-venue-acoustics/pkg/venue"
)

// Resonance holds the room's frequency-response score per broad band.
type Resonance struct {
	Low  float64 `json:"low"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
}

// Profile is the derived acoustic description of a venue under a given
// crowd and environment. Profiles are never modified after Compute returns.
type Profile struct {
	Key               Key       `json:"-"`
	VenueID           string    `json:"venue_id"`
	ReverberationTime float64   `json:"reverberation_time"`
	Absorption        float64   `json:"absorption"`
	Diffusion         float64   `json:"diffusion"`
	Resonance         Resonance `json:"resonance"`
	Spatial           Spatial   `json:"spatial_effects"`
	RoomModes         Modes     `json:"room_modes"`
	SpeedOfSound      float64   `json:"speed_of_sound"`
	Bands             []BandRT  `json:"bands"`
}

// Compute derives the full profile for (v, c, env).
func Compute(v *venue.Venue, c crowd.State, env environment.Conditions) (*Profile, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil venue", ErrValidation)
	}
	speed, err := environment.SpeedOfSound(env)
	if err != nil {
		return nil, err
	}
	modes, err := RoomModes(v, speed)
	if err != nil {
		return nil, err
	}
	bands, err := BandReverberation(v, c, env)
	if err != nil {
		return nil, err
	}

	// Audience scattering on top of the surface diffusion
	base := Diffusion(v)
	peoplePerM2 := 0.0
	if fa := v.FloorArea(); fa > 0 {
		peoplePerM2 = c.Density * float64(v.AudienceCapacity()) / fa
	}
	diffusion := base + (1-base)*crowd.Diffusion(peoplePerM2, c.Movement)

	return &Profile{
		Key:               KeyFor(v, c, env),
		VenueID:           v.ID(),
		ReverberationTime: ReverberationTime(v, c),
		Absorption:        MeanAbsorption(v, c),
		Diffusion:         diffusion,
		Resonance: Resonance{
			Low:  FrequencyResponse(v, modes, LowBandMin, LowBandMax),
			Mid:  FrequencyResponse(v, modes, LowBandMax, MidBandMax),
			High: FrequencyResponse(v, modes, MidBandMax, HighBandMax),
		},
		Spatial:      SpatialEffects(v),
		RoomModes:    modes,
		SpeedOfSound: speed,
		Bands:        bands,
	}, nil
}
