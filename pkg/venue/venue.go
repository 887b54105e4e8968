// Package venue models the static geometry and surface materials of a
// performance space. Venues are immutable once constructed.
package venue

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/teslashibe/go-venue-acoustics/internal/log"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
)

// AreaPerPerson is the floor area (m²) one audience member occupies.
const AreaPerPerson = 0.5

// Dimensions of a rectangular room in meters.
type Dimensions struct {
	Width  float64 `json:"width" yaml:"width"`
	Depth  float64 `json:"depth" yaml:"depth"`
	Height float64 `json:"height" yaml:"height"`
}

// Validate checks that every dimension is a positive finite number.
func (d Dimensions) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{{"width", d.Width}, {"depth", d.Depth}, {"height", d.Height}}
	for _, f := range fields {
		if !vecmath.IsFinite(f.v) || f.v <= 0 {
			return fmt.Errorf("%w: %s must be > 0, got %v", ErrValidation, f.name, f.v)
		}
	}
	return nil
}

// Surface is one absorbing surface of the room shell.
type Surface struct {
	ID         string  `json:"id" yaml:"id"`
	Area       float64 `json:"area" yaml:"area"`
	MaterialID string  `json:"material" yaml:"material"`
}

// Venue is a validated performance space.
type Venue struct {
	id              string
	name            string
	dims            Dimensions
	surfaces        []Surface
	capacity        int
	optimalCapacity int
	indoor          bool
	materials       map[string]Material
	fallbacks       []string
}

// Option configures optional venue attributes.
type Option func(*Venue)

// WithID sets the venue id. Without it a random UUID is assigned.
func WithID(id string) Option {
	return func(v *Venue) { v.id = id }
}

// WithName sets a display name.
func WithName(name string) Option {
	return func(v *Venue) { v.name = name }
}

// WithOptimalCapacity sets the attendance the venue is designed for.
func WithOptimalCapacity(n int) Option {
	return func(v *Venue) { v.optimalCapacity = n }
}

// WithIndoor marks the venue as enclosed (weather independent).
func WithIndoor(indoor bool) Option {
	return func(v *Venue) { v.indoor = indoor }
}

// New validates the input and builds a Venue. Materials are resolved
// against reg; a nil registry means DefaultRegistry().
func New(dims Dimensions, surfaces []Surface, capacity int, reg *Registry, opts ...Option) (*Venue, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	if len(surfaces) == 0 {
		return nil, fmt.Errorf("%w: at least one surface required", ErrValidation)
	}
	if capacity < 0 {
		return nil, fmt.Errorf("%w: audience capacity must be >= 0, got %d", ErrValidation, capacity)
	}
	if reg == nil {
		reg = DefaultRegistry()
	}

	v := &Venue{
		dims:      dims,
		surfaces:  make([]Surface, len(surfaces)),
		capacity:  capacity,
		indoor:    true,
		materials: make(map[string]Material),
	}
	copy(v.surfaces, surfaces)
	for _, opt := range opts {
		opt(v)
	}
	if v.id == "" {
		v.id = uuid.New().String()
	}
	if v.optimalCapacity <= 0 {
		v.optimalCapacity = capacity
	}

	var sabins float64
	for i, s := range v.surfaces {
		if !vecmath.IsFinite(s.Area) || s.Area <= 0 {
			return nil, fmt.Errorf("%w: surface %d (%q) area must be > 0, got %v", ErrValidation, i, s.ID, s.Area)
		}
		m, ok := v.materials[s.MaterialID]
		if !ok {
			resolved, usedFallback, err := reg.Resolve(s.MaterialID)
			if err != nil {
				return nil, fmt.Errorf("surface %q: %w", s.ID, err)
			}
			if usedFallback {
				log.Warn("unknown material, using fallback absorption",
					"venue", v.id, "surface", s.ID, "material", s.MaterialID, "absorption", resolved.Absorption)
				v.fallbacks = append(v.fallbacks, s.MaterialID)
			}
			v.materials[s.MaterialID] = resolved
			m = resolved
		}
		sabins += s.Area * m.Absorption
	}
	if sabins <= 0 {
		return nil, fmt.Errorf("%w: surfaces provide no absorption", ErrValidation)
	}

	if total, min := v.TotalSurfaceArea(), v.MinEnclosingArea(); total < min {
		log.Warn("surfaces underspecify the enclosing shell",
			"venue", v.id, "surface_area", total, "min_area", min)
	}

	return v, nil
}

// ID returns the venue id.
func (v *Venue) ID() string { return v.id }

// Name returns the display name.
func (v *Venue) Name() string { return v.name }

// Dimensions returns the room dimensions.
func (v *Venue) Dimensions() Dimensions { return v.dims }

// AudienceCapacity returns the maximum audience size.
func (v *Venue) AudienceCapacity() int { return v.capacity }

// OptimalCapacity returns the design attendance (defaults to capacity).
func (v *Venue) OptimalCapacity() int { return v.optimalCapacity }

// Indoor reports whether the venue is enclosed.
func (v *Venue) Indoor() bool { return v.indoor }

// Surfaces returns a copy of the surface list in declaration order.
func (v *Venue) Surfaces() []Surface {
	out := make([]Surface, len(v.surfaces))
	copy(out, v.surfaces)
	return out
}

// Material returns the resolved material for a surface material id.
func (v *Venue) Material(id string) Material {
	return v.materials[id]
}

// FallbackMaterials lists material ids that were resolved through the fallback policy.
func (v *Venue) FallbackMaterials() []string {
	out := make([]string, len(v.fallbacks))
	copy(out, v.fallbacks)
	return out
}

// RoomVolume returns width × depth × height.
func (v *Venue) RoomVolume() float64 {
	return v.dims.Width * v.dims.Depth * v.dims.Height
}

// TotalSurfaceArea returns the sum of all surface areas.
func (v *Venue) TotalSurfaceArea() float64 {
	var total float64
	for _, s := range v.surfaces {
		total += s.Area
	}
	return total
}

// MinEnclosingArea is the shell area of the rectangular room: 2(WH + WD + HD).
func (v *Venue) MinEnclosingArea() float64 {
	d := v.dims
	return 2 * (d.Width*d.Height + d.Width*d.Depth + d.Height*d.Depth)
}

// FloorArea returns width × depth.
func (v *Venue) FloorArea() float64 {
	return v.dims.Width * v.dims.Depth
}

// AudienceFootprint is the floor area a full audience covers, capped at the floor area.
func (v *Venue) AudienceFootprint() float64 {
	fp := float64(v.capacity) * AreaPerPerson
	if fa := v.FloorArea(); fp > fa {
		return fa
	}
	return fp
}

// SurfaceAreaByMaterial aggregates surface area per material id.
func (v *Venue) SurfaceAreaByMaterial() map[string]float64 {
	out := make(map[string]float64)
	for _, s := range v.surfaces {
		out[s.MaterialID] += s.Area
	}
	return out
}

// MaterialIDs returns the distinct material ids in use, sorted.
func (v *Venue) MaterialIDs() []string {
	ids := make([]string, 0, len(v.materials))
	for id := range v.materials {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Contains reports whether p lies inside the room (boundary inclusive).
func (v *Venue) Contains(p vecmath.Vec3) bool {
	return p.X >= 0 && p.X <= v.dims.Width &&
		p.Y >= 0 && p.Y <= v.dims.Depth &&
		p.Z >= 0 && p.Z <= v.dims.Height
}

// Center returns the center of the room at height z.
func (v *Venue) Center(z float64) vecmath.Vec3 {
	return vecmath.V(v.dims.Width/2, v.dims.Depth/2, z)
}

// Info is a serializable summary of a venue.
type Info struct {
	ID               string     `json:"id"`
	Name             string     `json:"name,omitempty"`
	Dimensions       Dimensions `json:"dimensions"`
	Surfaces         []Surface  `json:"surfaces"`
	AudienceCapacity int        `json:"audience_capacity"`
	OptimalCapacity  int        `json:"optimal_capacity"`
	Indoor           bool       `json:"indoor"`
	Volume           float64    `json:"volume"`
	SurfaceArea      float64    `json:"surface_area"`
}

// Info returns a serializable summary.
func (v *Venue) Info() Info {
	return Info{
		ID:               v.id,
		Name:             v.name,
		Dimensions:       v.dims,
		Surfaces:         v.Surfaces(),
		AudienceCapacity: v.capacity,
		OptimalCapacity:  v.optimalCapacity,
		Indoor:           v.indoor,
		Volume:           v.RoomVolume(),
		SurfaceArea:      v.TotalSurfaceArea(),
	}
}

// Shell returns the six surfaces of a rectangular room: floor, ceiling and
// four walls, whose areas sum to exactly 2(WH + WD + HD).
func Shell(d Dimensions, floor, ceiling, walls string) []Surface {
	return []Surface{
		{ID: "floor", Area: d.Width * d.Depth, MaterialID: floor},
		{ID: "ceiling", Area: d.Width * d.Depth, MaterialID: ceiling},
		{ID: "front", Area: d.Width * d.Height, MaterialID: walls},
		{ID: "back", Area: d.Width * d.Height, MaterialID: walls},
		{ID: "left", Area: d.Depth * d.Height, MaterialID: walls},
		{ID: "right", Area: d.Depth * d.Height, MaterialID: walls},
	}
}
