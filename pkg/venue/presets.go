package venue

import (
	"fmt"
	"sort"
)

// preset describes one of the built-in performance spaces.
type preset struct {
	name     string
	dims     Dimensions
	floor    string
	ceiling  string
	walls    string
	capacity int
	optimal  int
	outdoor  bool
}

var presets = map[string]preset{
	"garden": {
		name: "Intimate Garden", dims: Dimensions{Width: 20, Depth: 15, Height: 6},
		floor: Wood, ceiling: Glass, walls: Wood, capacity: 50, optimal: 30, outdoor: true,
	},
	"circle": {
		name: "Community Circle", dims: Dimensions{Width: 25, Depth: 25, Height: 8},
		floor: Wood, ceiling: Wood, walls: Wood, capacity: 200, optimal: 120, outdoor: true,
	},
	"amphitheater": {
		name: "Ancient Amphitheater", dims: Dimensions{Width: 60, Depth: 45, Height: 20},
		floor: Concrete, ceiling: Concrete, walls: Concrete, capacity: 2000, optimal: 800, outdoor: true,
	},
	"temple": {
		name: "Sacred Temple", dims: Dimensions{Width: 30, Depth: 20, Height: 15},
		floor: Concrete, ceiling: Wood, walls: Concrete, capacity: 300, optimal: 150,
	},
	"warehouse": {
		name: "Urban Warehouse", dims: Dimensions{Width: 40, Depth: 30, Height: 12},
		floor: Concrete, ceiling: Glass, walls: Concrete, capacity: 1000, optimal: 500,
	},
	"floating": {
		name: "Floating Platform", dims: Dimensions{Width: 30, Depth: 20, Height: 8},
		floor: Wood, ceiling: Glass, walls: Wood, capacity: 500, optimal: 200, outdoor: true,
	},
}

// PresetNames returns the ids of the built-in venues, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PresetSpec returns the spec of a built-in venue.
func PresetSpec(id string) (Spec, error) {
	p, ok := presets[id]
	if !ok {
		return Spec{}, fmt.Errorf("%w: preset %q", ErrNotFound, id)
	}
	return Spec{
		ID:               id,
		Name:             p.name,
		Dimensions:       p.dims,
		AudienceCapacity: p.capacity,
		OptimalCapacity:  p.optimal,
		Outdoor:          p.outdoor,
		Surfaces:         Shell(p.dims, p.floor, p.ceiling, p.walls),
	}, nil
}

// Preset builds a built-in venue against the default registry.
func Preset(id string) (*Venue, error) {
	s, err := PresetSpec(id)
	if err != nil {
		return nil, err
	}
	return s.Build(nil)
}
