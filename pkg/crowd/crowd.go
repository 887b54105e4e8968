// Package crowd tracks live audience occupancy and summarizes it into the
// absorption and scattering terms used by the acoustic model.
package crowd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/teslashibe/go-venue-acoustics/internal/log"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
)

// PerPersonAbsorption is the absorption coefficient of a clothed audience.
const PerPersonAbsorption = 0.6

// DefaultLocalRadius is the neighbourhood radius (m) for local density.
const DefaultLocalRadius = 5.0

// ErrValidation is returned for meaningless crowd input.
var ErrValidation = errors.New("crowd: validation failed")

// State is an immutable snapshot of occupancy. Update functions return a
// new State and never modify their argument.
type State struct {
	// Density is occupancy relative to capacity, in [0,1].
	Density float64 `json:"density"`

	// Distribution holds audience positions. 2D positions use Z = 0.
	Distribution []vecmath.Vec3 `json:"distribution"`

	// Movement is crowd movement intensity in [0,1].
	Movement float64 `json:"movement"`
}

// Empty returns a state with no audience.
func Empty() State {
	return State{}
}

// Update replaces density and distribution. Density above 1 is clamped
// with a warning; negative or non-finite density is rejected.
func Update(s State, density float64, distribution []vecmath.Vec3) (State, error) {
	if !vecmath.IsFinite(density) || density < 0 {
		return s, fmt.Errorf("%w: density %v", ErrValidation, density)
	}
	for i, p := range distribution {
		if !p.IsFinite() {
			return s, fmt.Errorf("%w: distribution[%d] is not finite", ErrValidation, i)
		}
	}
	if density > 1 {
		log.Warn("crowd density above capacity, clamping", "density", density)
		density = 1
	}

	next := State{
		Density:      density,
		Distribution: make([]vecmath.Vec3, len(distribution)),
		Movement:     s.Movement,
	}
	copy(next.Distribution, distribution)
	return next, nil
}

// WithMovement returns s with a new movement intensity, clamped into [0,1].
func WithMovement(s State, movement float64) (State, error) {
	if !vecmath.IsFinite(movement) {
		return s, fmt.Errorf("%w: movement %v", ErrValidation, movement)
	}
	if movement < 0 || movement > 1 {
		log.Warn("crowd movement outside [0,1], clamping", "movement", movement)
		movement = vecmath.Clamp(movement, 0, 1)
	}
	next := s
	next.Movement = movement
	return next, nil
}

// LocalDensity returns people per m² within radius of pos, measured on the
// floor plane.
func LocalDensity(s State, pos vecmath.Vec3, radius float64) float64 {
	if radius <= 0 {
		return 0
	}
	var n int
	for _, p := range s.Distribution {
		if p.HorizontalDist(pos) <= radius {
			n++
		}
	}
	return float64(n) / (math.Pi * radius * radius)
}

// PathDensity integrates LocalDensity along the segment from -> to and
// returns people per metre of path. The result never decreases as to moves
// further out along a fixed ray from from.
func PathDensity(s State, from, to vecmath.Vec3, radius float64) float64 {
	if radius <= 0 {
		return 0
	}
	length := from.Dist(to)
	if length == 0 {
		return 0
	}
	dx, dy := to.X-from.X, to.Y-from.Y
	a := dx*dx + dy*dy
	r2 := radius * radius
	var covered float64
	for _, p := range s.Distribution {
		ox, oy := from.X-p.X, from.Y-p.Y
		c := ox*ox + oy*oy - r2
		if a == 0 {
			if c <= 0 {
				covered++
			}
			continue
		}
		b := 2 * (ox*dx + oy*dy)
		disc := b*b - 4*a*c
		if disc <= 0 {
			continue
		}
		sq := math.Sqrt(disc)
		t0 := math.Max((-b-sq)/(2*a), 0)
		t1 := math.Min((-b+sq)/(2*a), 1)
		if t1 > t0 {
			covered += t1 - t0
		}
	}
	return covered * length / (math.Pi * r2)
}

// AbsorptionCoefficient blends density with the per-person absorption.
func AbsorptionCoefficient(s State) float64 {
	return s.Density * PerPersonAbsorption
}

// Diffusion returns the scattering contribution of a local crowd:
// (1 - e^-localDensity) scaled by movement, in [0,1).
func Diffusion(localDensity, movement float64) float64 {
	if localDensity <= 0 {
		return 0
	}
	return (1 - math.Exp(-localDensity)) * (0.5 + 0.5*vecmath.Clamp(movement, 0, 1))
}

// Headcount returns the number of tracked positions.
func (s State) Headcount() int {
	return len(s.Distribution)
}

// Hash returns a content hash used as part of profile cache keys.
func (s State) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	put(s.Density)
	put(s.Movement)
	for _, p := range s.Distribution {
		put(p.X)
		put(p.Y)
		put(p.Z)
	}
	return h.Sum64()
}
