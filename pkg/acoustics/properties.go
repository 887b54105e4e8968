// Package acoustics derives venue-wide acoustic properties (reverberation,
// absorption, diffusion, room modes, frequency response) and caches the
// resulting profiles.
package acoustics

import (
	"math"

	"github.com/teslashibe/go-venue-acoustics/pkg/crowd"
	"github.com/teslashibe/go-venue-acoustics/pkg/environment"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
	"github.com/teslashibe/go-venue-acoustics/pkg/venue"
)

// Model constants.
const (
	// SabineConstant is 24·ln(10)/c at room temperature (s/m).
	SabineConstant = 0.161

	// modeSaturation is the mode count at which the density score reaches 0.5.
	modeSaturation = 10.0

	// Spatial normalization lengths (m).
	spatialHorizontalScale = 20.0
	spatialVerticalScale   = 10.0
)

// OctaveBands are the band centers used for per-band reverberation.
var OctaveBands = []float64{125, 250, 500, 1000, 2000, 4000}

// Frequency ranges for the low/mid/high resonance scores.
const (
	LowBandMin  = 20.0
	LowBandMax  = 250.0
	MidBandMax  = 2000.0
	HighBandMax = 20000.0
)

// CrowdSabins returns the absorption area added by the audience: the
// audience footprint scaled by density and per-person absorption.
func CrowdSabins(v *venue.Venue, c crowd.State) float64 {
	return v.AudienceFootprint() * crowd.AbsorptionCoefficient(c)
}

// SurfaceSabins returns Σ area·α over all surfaces.
func SurfaceSabins(v *venue.Venue) float64 {
	var a float64
	for _, s := range v.Surfaces() {
		a += s.Area * v.Material(s.MaterialID).Absorption
	}
	return a
}

// TotalAbsorption returns the venue's total absorption area in m² sabins,
// including the crowd.
func TotalAbsorption(v *venue.Venue, c crowd.State) float64 {
	return SurfaceSabins(v) + CrowdSabins(v, c)
}

// ReverberationTime returns Sabine's RT60 = 0.161·V / A in seconds.
func ReverberationTime(v *venue.Venue, c crowd.State) float64 {
	return SabineConstant * v.RoomVolume() / TotalAbsorption(v, c)
}

// MeanAbsorption returns the area-weighted mean absorption coefficient,
// treating the audience as an additional surface.
func MeanAbsorption(v *venue.Venue, c crowd.State) float64 {
	area := v.TotalSurfaceArea() + v.AudienceFootprint()*c.Density
	if area <= 0 {
		return 0
	}
	return vecmath.Clamp(TotalAbsorption(v, c)/area, 0, 1)
}

// BandRT is the reverberation time of one octave band.
type BandRT struct {
	Frequency float64 `json:"frequency"`
	RT60      float64 `json:"rt60"`
}

// BandReverberation returns RT60 per octave band using each material's band
// coefficients plus air absorption (Sabine with the 4mV term).
func BandReverberation(v *venue.Venue, c crowd.State, env environment.Conditions) ([]BandRT, error) {
	volume := v.RoomVolume()
	crowdA := CrowdSabins(v, c)
	surfaces := v.Surfaces()

	out := make([]BandRT, 0, len(OctaveBands))
	for _, f := range OctaveBands {
		airDB, err := environment.AtmosphericAbsorption(env, f)
		if err != nil {
			return nil, err
		}
		m := airDB * math.Ln10 / 10

		a := crowdA + 4*m*volume
		for _, s := range surfaces {
			a += s.Area * v.Material(s.MaterialID).AbsorptionAt(f)
		}
		rt := 0.0
		if a > 0 {
			rt = SabineConstant * volume / a
		}
		out = append(out, BandRT{Frequency: f, RT60: rt})
	}
	return out, nil
}

// FrequencyResponse scores the room's response in [min, max] Hz on [0,1].
// Half the score is room-mode density, n/(n+10) for n modes in the band;
// the other half is the area-weighted surface reflectivity (1 - α) over
// the band.
func FrequencyResponse(v *venue.Venue, modes Modes, min, max float64) float64 {
	if max < min {
		min, max = max, min
	}
	n := float64(modes.CountInBand(min, max))
	modeScore := n / (n + modeSaturation)

	var reflect, area float64
	for _, s := range v.Surfaces() {
		reflect += s.Area * (1 - v.Material(s.MaterialID).BandAbsorption(min, max))
		area += s.Area
	}
	reflectScore := 0.0
	if area > 0 {
		reflectScore = reflect / area
	}
	return vecmath.Clamp(0.5*modeScore+0.5*reflectScore, 0, 1)
}

// Diffusion scores surface scattering on [0,1]: half the area-weighted mean
// material diffusion weight, half the Gini-Simpson diversity of material
// area shares (a single material scores 0 diversity).
func Diffusion(v *venue.Venue) float64 {
	byMaterial := v.SurfaceAreaByMaterial()
	total := v.TotalSurfaceArea()
	if total <= 0 {
		return 0
	}
	var weighted, simpson float64
	for id, a := range byMaterial {
		p := a / total
		weighted += p * v.Material(id).Diffusion
		simpson += p * p
	}
	return vecmath.Clamp(0.5*weighted+0.5*(1-simpson), 0, 1)
}

// Spatial is the perceived spatial impression of the room, each in [0,1).
type Spatial struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
}

// SpatialEffects maps room dimensions onto [0,1) with 1 - e^(-L/scale),
// 20 m for width and depth and 10 m for height.
func SpatialEffects(v *venue.Venue) Spatial {
	d := v.Dimensions()
	return Spatial{
		Width:  vecmath.Saturate(d.Width, spatialHorizontalScale),
		Depth:  vecmath.Saturate(d.Depth, spatialHorizontalScale),
		Height: vecmath.Saturate(d.Height, spatialVerticalScale),
	}
}
