package venue

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Spec is the YAML representation of a venue, as supplied by the
// venue-loading collaborator.
type Spec struct {
	ID               string     `yaml:"id,omitempty" json:"id,omitempty"`
	Name             string     `yaml:"name,omitempty" json:"name,omitempty"`
	Dimensions       Dimensions `yaml:"dimensions" json:"dimensions"`
	AudienceCapacity int        `yaml:"audience_capacity" json:"audience_capacity"`
	OptimalCapacity  int        `yaml:"optimal_capacity,omitempty" json:"optimal_capacity,omitempty"`
	Outdoor          bool       `yaml:"outdoor,omitempty" json:"outdoor,omitempty"`
	Materials        []Material `yaml:"materials,omitempty" json:"materials,omitempty"`
	Surfaces         []Surface  `yaml:"surfaces" json:"surfaces"`

	// Fallback overrides the registry's unknown-material policy when set.
	Fallback *Fallback `yaml:"fallback,omitempty" json:"fallback,omitempty"`
}

// ParseSpec decodes a YAML venue spec.
func ParseSpec(data []byte) (Spec, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Spec{}, fmt.Errorf("%w: parse venue spec: %w", ErrValidation, err)
	}
	return s, nil
}

// LoadSpec reads and decodes a YAML venue spec file.
func LoadSpec(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("read venue spec: %w", err)
	}
	return ParseSpec(data)
}

// Marshal encodes the spec as YAML.
func (s Spec) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Build validates the spec and constructs a Venue. Inline materials are
// registered on a copy of base so the caller's registry is not modified.
func (s Spec) Build(base *Registry) (*Venue, error) {
	if base == nil {
		base = DefaultRegistry()
	}
	reg := base
	if len(s.Materials) > 0 || s.Fallback != nil {
		reg = base.Clone()
	}
	for _, m := range s.Materials {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	if s.Fallback != nil {
		if err := reg.SetFallback(*s.Fallback); err != nil {
			return nil, err
		}
	}

	opts := []Option{
		WithName(s.Name),
		WithOptimalCapacity(s.OptimalCapacity),
		WithIndoor(!s.Outdoor),
	}
	if s.ID != "" {
		opts = append(opts, WithID(s.ID))
	}
	return New(s.Dimensions, s.Surfaces, s.AudienceCapacity, reg, opts...)
}

// Load reads a spec file and builds the venue against the default registry.
func Load(path string) (*Venue, error) {
	s, err := LoadSpec(path)
	if err != nil {
		return nil, err
	}
	return s.Build(nil)
}

// SpecOf converts a venue back into its spec form. Materials that are not
// part of the default registry are emitted inline.
func SpecOf(v *Venue) Spec {
	s := Spec{
		ID:               v.id,
		Name:             v.name,
		Dimensions:       v.dims,
		AudienceCapacity: v.capacity,
		OptimalCapacity:  v.optimalCapacity,
		Outdoor:          !v.indoor,
		Surfaces:         v.Surfaces(),
	}
	defaults := DefaultRegistry()
	for _, id := range v.MaterialIDs() {
		if _, ok := defaults.Get(id); !ok {
			s.Materials = append(s.Materials, v.materials[id])
		}
	}
	return s
}
