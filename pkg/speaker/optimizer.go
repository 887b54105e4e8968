// Package speaker recommends a sound-reinforcement setup for a venue:
// speaker positions, an equalizer curve and per-speaker delays.
// It is meant to run on demand, not per frame.
package speaker

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-venue-acoustics/pkg/acoustics"
	"github.com/teslashibe/go-venue-acoustics/pkg/crowd"
	"github.com/teslashibe/go-venue-acoustics/pkg/environment"
	"github.com/teslashibe/go-venue-acoustics/pkg/field"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
	"github.com/teslashibe/go-venue-acoustics/pkg/venue"
)

// EQBand is one equalizer setting.
type EQBand struct {
	Frequency float64 `json:"frequency"`
	GainDB    float64 `json:"gain_db"`
}

// SetupPlan is the optimizer output consumed by the audio engine.
type SetupPlan struct {
	SpeakerPositions  []vecmath.Vec3 `json:"speaker_positions"`
	EqualizerSettings []EQBand       `json:"equalizer_settings"`
	DelayTimes        []float64      `json:"delay_times"`
	ReferencePosition vecmath.Vec3   `json:"reference_position"`
}

// Optimizer evaluates coverage for a fixed crowd and environment.
type Optimizer struct {
	Evaluator *field.Evaluator
	Crowd     crowd.State
	Env       environment.Conditions
	Config    Config
}

// New creates an optimizer with the default config.
func New(e *field.Evaluator, c crowd.State, env environment.Conditions) *Optimizer {
	return &Optimizer{Evaluator: e, Crowd: c, Env: env, Config: DefaultConfig()}
}

// OptimalHeight returns the mounting height for a speaker above (x, y):
// ear level plus clearance, lifted by local crowd density, and kept at
// least CeilingMargin below the ceiling.
func (o *Optimizer) OptimalHeight(v *venue.Venue, x, y float64) float64 {
	cfg := o.Config
	h := v.Dimensions().Height
	local := crowd.LocalDensity(o.Crowd, vecmath.V(x, y, 0), cfg.HeightRadius)
	z := cfg.EarLevel + cfg.Clearance + cfg.DensityLift*local
	if h <= cfg.CeilingMargin {
		return h / 2
	}
	return vecmath.Clamp(z, 0, h-cfg.CeilingMargin)
}

// OptimalSpeakerPositions places a speaker above each local maximum of the
// coverage map, best first, up to MaxSpeakers.
func (o *Optimizer) OptimalSpeakerPositions(v *venue.Venue, g Grid) []vecmath.Vec3 {
	maxima := LocalMaxima(g)
	if len(maxima) > o.Config.MaxSpeakers {
		maxima = maxima[:o.Config.MaxSpeakers]
	}
	d := v.Dimensions()
	out := make([]vecmath.Vec3, 0, len(maxima))
	for _, m := range maxima {
		x, y := g.Center(m.Row, m.Col, d)
		out = append(out, vecmath.V(x, y, o.OptimalHeight(v, x, y)))
	}
	return out
}

// OptimalEqualizer returns the gain per standard band that flattens the
// room's frequency response around its mean: gain = scale·(mean − r),
// clamped to ±MaxGainDB.
func (o *Optimizer) OptimalEqualizer(v *venue.Venue, p *acoustics.Profile) []EQBand {
	responses := make([]float64, len(StandardBands))
	var mean float64
	for i, f := range StandardBands {
		responses[i] = acoustics.FrequencyResponse(v, p.RoomModes, f/math.Sqrt2, f*math.Sqrt2)
		mean += responses[i]
	}
	mean /= float64(len(StandardBands))

	out := make([]EQBand, len(StandardBands))
	for i, f := range StandardBands {
		gain := o.Config.GainScale * (mean - responses[i])
		out[i] = EQBand{Frequency: f, GainDB: vecmath.Clamp(gain, -o.Config.MaxGainDB, o.Config.MaxGainDB)}
	}
	return out
}

// DelayTimes returns each speaker's time of flight to ref minus the
// smallest time of flight, so the nearest speaker gets zero delay and
// tof − delay is equal for every speaker.
func DelayTimes(positions []vecmath.Vec3, ref vecmath.Vec3, speedOfSound float64) ([]float64, error) {
	if speedOfSound <= 0 || !vecmath.IsFinite(speedOfSound) {
		return nil, fmt.Errorf("%w: speed of sound %v", ErrValidation, speedOfSound)
	}
	if len(positions) == 0 {
		return []float64{}, nil
	}
	tof := make([]float64, len(positions))
	minTOF := math.Inf(1)
	for i, p := range positions {
		tof[i] = p.Dist(ref) / speedOfSound
		if tof[i] < minTOF {
			minTOF = tof[i]
		}
	}
	out := make([]float64, len(positions))
	for i, t := range tof {
		out[i] = t - minTOF
	}
	return out, nil
}

// ReferencePosition is the front-of-house listening point: centered,
// two thirds of the way back, at listener height.
func (o *Optimizer) ReferencePosition(v *venue.Venue) vecmath.Vec3 {
	d := v.Dimensions()
	return vecmath.V(d.Width/2, d.Depth*2/3, math.Min(o.Config.ListenerHeight, d.Height))
}

// GetOptimalSoundSetup composes coverage, placement, EQ and delays.
func (o *Optimizer) GetOptimalSoundSetup(v *venue.Venue, p *acoustics.Profile) (SetupPlan, error) {
	if err := o.Config.Validate(); err != nil {
		return SetupPlan{}, err
	}
	g, err := o.CoverageMap(v, p, o.Config.Resolution)
	if err != nil {
		return SetupPlan{}, err
	}
	positions := o.OptimalSpeakerPositions(v, g)
	ref := o.ReferencePosition(v)
	delays, err := DelayTimes(positions, ref, p.SpeedOfSound)
	if err != nil {
		return SetupPlan{}, err
	}
	return SetupPlan{
		SpeakerPositions:  positions,
		EqualizerSettings: o.OptimalEqualizer(v, p),
		DelayTimes:        delays,
		ReferencePosition: ref,
	}, nil
}
