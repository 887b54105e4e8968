// Package field answers point-in-space, per-frequency acoustic queries
// against a cached venue profile.
package field

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-venue-acoustics/pkg/acoustics"
	"github.com/teslashibe/go-venue-acoustics/pkg/crowd"
	"github.com/teslashibe/go-venue-acoustics/pkg/environment"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
	"github.com/teslashibe/go-venue-acoustics/pkg/venue"
)

// Result is the acoustic state at one point and frequency.
type Result struct {
	Intensity      float64             `json:"intensity"`
	LevelDB        float64             `json:"level_db"`
	FrequencyBands acoustics.Resonance `json:"frequency_bands"`
	Reverb         float64             `json:"reverb"`
	Clarity        float64             `json:"clarity"`
	Distance       float64             `json:"distance"`
	LocalDensity   float64             `json:"local_density"`
	PathDensity    float64             `json:"path_density"`
}

// Evaluator computes query results for a set of sound sources.
type Evaluator struct {
	Sources []vecmath.Vec3
	Config  Config
}

// DefaultSource is the stage position: front-center, 1.5 m up (or the
// ceiling in lower rooms).
func DefaultSource(v *venue.Venue) vecmath.Vec3 {
	d := v.Dimensions()
	return vecmath.V(d.Width/2, 0, math.Min(1.5, d.Height))
}

// NewEvaluator creates an evaluator with the default config. With no
// sources given, the venue's DefaultSource is used.
func NewEvaluator(v *venue.Venue, sources ...vecmath.Vec3) *Evaluator {
	if len(sources) == 0 {
		sources = []vecmath.Vec3{DefaultSource(v)}
	}
	return &Evaluator{Sources: sources, Config: DefaultConfig()}
}

// Query evaluates the field at pos for frequency f. Positions outside the
// venue (boundary inclusive) return an *OutOfBoundsError.
func (e *Evaluator) Query(pos vecmath.Vec3, f float64, v *venue.Venue, p *acoustics.Profile, c crowd.State, env environment.Conditions) (Result, error) {
	if v == nil || p == nil {
		return Result{}, fmt.Errorf("%w: venue and profile required", ErrValidation)
	}
	if !pos.IsFinite() || !v.Contains(pos) {
		d := v.Dimensions()
		return Result{}, &OutOfBoundsError{Position: pos, Max: vecmath.V(d.Width, d.Depth, d.Height)}
	}
	if len(e.Sources) == 0 {
		return Result{}, fmt.Errorf("%w: no sound sources", ErrValidation)
	}

	idx, dist := vecmath.Nearest(pos, e.Sources)
	air, err := environment.AttenuationFactor(env, f, dist)
	if err != nil {
		return Result{}, err
	}

	cfg := e.Config
	local := crowd.LocalDensity(c, pos, cfg.LocalRadius)
	path := crowd.PathDensity(c, e.Sources[idx], pos, cfg.LocalRadius)

	// Effective distance keeps the near field finite. Direct sound loses
	// energy to every listener between source and pos.
	r2 := dist*dist + cfg.SourceRadius*cfg.SourceRadius
	intensity := cfg.SourcePower / (4 * math.Pi * r2) * air / (1 + path*cfg.CrowdAbsorption)

	reverb := p.ReverberationTime / (1 + local*cfg.CrowdAbsorption)

	clarity := 1.0
	if reverb > 0 {
		rc := cfg.CriticalDistanceK * math.Sqrt(v.RoomVolume()/reverb)
		clarity = rc * rc / (rc*rc + r2)
	}

	return Result{
		Intensity:      intensity,
		LevelDB:        10 * math.Log10(intensity/cfg.ReferenceIntensity),
		FrequencyBands: p.Resonance,
		Reverb:         reverb,
		Clarity:        clarity,
		Distance:       dist,
		LocalDensity:   local,
		PathDensity:    path,
	}, nil
}
