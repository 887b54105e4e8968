package venue

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
)

// Built-in material ids.
const (
	Wood     = "wood"
	Concrete = "concrete"
	Carpet   = "carpet"
	Glass    = "glass"
	Audience = "audience"
)

// DefaultFallbackAbsorption is the broadband coefficient used for unknown
// materials when the registry's fallback policy is enabled.
const DefaultFallbackAbsorption = 0.10

// DefaultDiffusionWeight is the scattering weight for materials that do not declare one.
const DefaultDiffusionWeight = 0.3

// Material describes how a surface absorbs and scatters sound.
type Material struct {
	ID string `json:"id" yaml:"id"`

	// Absorption is the broadband absorption coefficient in [0,1].
	Absorption float64 `json:"absorption" yaml:"absorption"`

	// Bands optionally maps octave-band center frequency (Hz) to coefficient.
	// encoding/json cannot key maps by float64, so bands are YAML only.
	Bands map[float64]float64 `json:"-" yaml:"bands,omitempty"`

	// Diffusion is the scattering weight in [0,1] used by the diffusion score.
	Diffusion float64 `json:"diffusion" yaml:"diffusion"`
}

// Validate checks that all coefficients lie in [0,1].
func (m Material) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: material id required", ErrValidation)
	}
	if !inUnit(m.Absorption) {
		return fmt.Errorf("%w: material %q absorption %v outside [0,1]", ErrValidation, m.ID, m.Absorption)
	}
	if !inUnit(m.Diffusion) {
		return fmt.Errorf("%w: material %q diffusion %v outside [0,1]", ErrValidation, m.ID, m.Diffusion)
	}
	for f, a := range m.Bands {
		if f <= 0 || !vecmath.IsFinite(f) {
			return fmt.Errorf("%w: material %q band frequency %v", ErrValidation, m.ID, f)
		}
		if !inUnit(a) {
			return fmt.Errorf("%w: material %q band %v Hz coefficient %v outside [0,1]", ErrValidation, m.ID, f, a)
		}
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// bandFreqs returns the band table's frequencies in ascending order.
func (m Material) bandFreqs() []float64 {
	freqs := make([]float64, 0, len(m.Bands))
	for f := range m.Bands {
		freqs = append(freqs, f)
	}
	sort.Float64s(freqs)
	return freqs
}

// AbsorptionAt returns the absorption coefficient at frequency f.
// Between table entries the coefficient is interpolated on a log2 frequency
// axis; outside the table the nearest entry is used. Materials without a
// band table return their broadband coefficient.
func (m Material) AbsorptionAt(f float64) float64 {
	if len(m.Bands) == 0 || f <= 0 {
		return m.Absorption
	}
	freqs := m.bandFreqs()
	if f <= freqs[0] {
		return m.Bands[freqs[0]]
	}
	last := freqs[len(freqs)-1]
	if f >= last {
		return m.Bands[last]
	}
	i := sort.SearchFloat64s(freqs, f)
	lo, hi := freqs[i-1], freqs[i]
	t := (math.Log2(f) - math.Log2(lo)) / (math.Log2(hi) - math.Log2(lo))
	return vecmath.Lerp(m.Bands[lo], m.Bands[hi], t)
}

// BandAbsorption returns the mean coefficient over the band [min, max].
// Table entries inside the band are averaged; if none fall inside, the
// coefficient at the band's geometric center is used.
func (m Material) BandAbsorption(min, max float64) float64 {
	if len(m.Bands) == 0 {
		return m.Absorption
	}
	var sum float64
	var n int
	for f, a := range m.Bands {
		if f >= min && f <= max {
			sum += a
			n++
		}
	}
	if n > 0 {
		return sum / float64(n)
	}
	return m.AbsorptionAt(math.Sqrt(min * max))
}

// Fallback is the policy applied to unknown material ids.
type Fallback struct {
	Enabled    bool    `json:"enabled" yaml:"enabled"`
	Absorption float64 `json:"absorption" yaml:"absorption"`
}

// Registry holds the materials available to venues.
type Registry struct {
	mu        sync.RWMutex
	materials map[string]Material
	fallback  Fallback
}

// NewRegistry creates an empty registry with the fallback policy disabled.
func NewRegistry() *Registry {
	return &Registry{materials: make(map[string]Material)}
}

// DefaultRegistry returns a registry with the built-in materials and the
// fallback policy enabled at DefaultFallbackAbsorption.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, m := range builtinMaterials() {
		r.materials[m.ID] = m
	}
	r.fallback = Fallback{Enabled: true, Absorption: DefaultFallbackAbsorption}
	return r
}

func builtinMaterials() []Material {
	return []Material{
		{
			ID: Wood, Absorption: 0.15, Diffusion: 0.6,
			Bands: map[float64]float64{125: 0.28, 250: 0.22, 500: 0.17, 1000: 0.09, 2000: 0.10, 4000: 0.11},
		},
		{
			ID: Concrete, Absorption: 0.02, Diffusion: 0.2,
			Bands: map[float64]float64{125: 0.01, 250: 0.01, 500: 0.02, 1000: 0.02, 2000: 0.02, 4000: 0.03},
		},
		{
			ID: Carpet, Absorption: 0.30, Diffusion: 0.4,
			Bands: map[float64]float64{125: 0.02, 250: 0.06, 500: 0.14, 1000: 0.37, 2000: 0.60, 4000: 0.65},
		},
		{
			ID: Glass, Absorption: 0.05, Diffusion: 0.1,
			Bands: map[float64]float64{125: 0.18, 250: 0.06, 500: 0.04, 1000: 0.03, 2000: 0.02, 4000: 0.02},
		},
		{
			ID: Audience, Absorption: 0.60, Diffusion: 0.9,
			Bands: map[float64]float64{125: 0.25, 250: 0.45, 500: 0.60, 1000: 0.70, 2000: 0.72, 4000: 0.70},
		},
	}
}

// Register adds or replaces a material.
func (r *Registry) Register(m Material) error {
	if err := m.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.materials[m.ID] = m
	return nil
}

// Get retrieves a material by id.
func (r *Registry) Get(id string) (Material, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.materials[id]
	return m, ok
}

// IDs returns all registered material ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.materials))
	for id := range r.materials {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetFallback replaces the unknown-material policy.
func (r *Registry) SetFallback(f Fallback) error {
	if f.Enabled && !inUnit(f.Absorption) {
		return fmt.Errorf("%w: fallback absorption %v outside [0,1]", ErrValidation, f.Absorption)
	}
	r.mu.Lock()
	r.fallback = f
	r.mu.Unlock()
	return nil
}

// Fallback returns the unknown-material policy.
func (r *Registry) Fallback() Fallback {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}

// Resolve looks up id. For unknown ids it returns a synthetic broadband
// material when the fallback policy is enabled (usedFallback = true), and
// ErrUnknownMaterial otherwise.
func (r *Registry) Resolve(id string) (m Material, usedFallback bool, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.materials[id]; ok {
		return m, false, nil
	}
	if !r.fallback.Enabled {
		return Material{}, false, fmt.Errorf("%w: %w: %q", ErrValidation, ErrUnknownMaterial, id)
	}
	return Material{ID: id, Absorption: r.fallback.Absorption, Diffusion: DefaultDiffusionWeight}, true, nil
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := &Registry{materials: make(map[string]Material, len(r.materials)), fallback: r.fallback}
	for id, m := range r.materials {
		c.materials[id] = m
	}
	return c
}
