package acoustics

import (
	"fmt"
	"math"
	"sort"

	"github.com/teslashibe/go-venue-acoustics/pkg/venue"
)

// MaxModeOrder is the largest mode integer evaluated per axis.
const MaxModeOrder = 4

// ModeKind classifies a room mode by how many axes it involves.
type ModeKind int

const (
	// Axial modes have exactly one nonzero mode integer.
	Axial ModeKind = iota + 1
	// Tangential modes have exactly two nonzero mode integers.
	Tangential
	// Oblique modes have all three mode integers nonzero.
	Oblique
)

// String returns the lower-case kind name.
func (k ModeKind) String() string {
	switch k {
	case Axial:
		return "axial"
	case Tangential:
		return "tangential"
	case Oblique:
		return "oblique"
	default:
		return "none"
	}
}

// MarshalText encodes the kind by name.
func (k ModeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name written by MarshalText.
func (k *ModeKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "axial":
		*k = Axial
	case "tangential":
		*k = Tangential
	case "oblique":
		*k = Oblique
	case "none":
		*k = 0
	default:
		return fmt.Errorf("%w: unknown mode kind %q", ErrValidation, b)
	}
	return nil
}

// Classify returns the kind for mode integers (nx, ny, nz). The all-zero
// triple is not a mode and returns 0.
func Classify(nx, ny, nz int) ModeKind {
	n := 0
	for _, v := range []int{nx, ny, nz} {
		if v != 0 {
			n++
		}
	}
	return ModeKind(n)
}

// RoomMode is a standing-wave resonance of a rectangular room.
type RoomMode struct {
	Frequency float64  `json:"frequency"`
	NX        int      `json:"nx"`
	NY        int      `json:"ny"`
	NZ        int      `json:"nz"`
	Kind      ModeKind `json:"kind"`
}

// Modes groups room modes by kind, each list ascending by frequency.
type Modes struct {
	Axial      []RoomMode `json:"axial"`
	Tangential []RoomMode `json:"tangential"`
	Oblique    []RoomMode `json:"oblique"`
}

// All returns every mode ascending by frequency.
func (m Modes) All() []RoomMode {
	all := make([]RoomMode, 0, len(m.Axial)+len(m.Tangential)+len(m.Oblique))
	all = append(all, m.Axial...)
	all = append(all, m.Tangential...)
	all = append(all, m.Oblique...)
	sortModes(all)
	return all
}

// CountInBand returns how many modes fall within [min, max] Hz.
func (m Modes) CountInBand(min, max float64) int {
	n := 0
	for _, list := range [][]RoomMode{m.Axial, m.Tangential, m.Oblique} {
		for _, mode := range list {
			if mode.Frequency >= min && mode.Frequency <= max {
				n++
			}
		}
	}
	return n
}

// ModeFrequency returns (c/2)·sqrt((nx/W)² + (ny/D)² + (nz/H)²).
func ModeFrequency(d venue.Dimensions, c float64, nx, ny, nz int) float64 {
	x := float64(nx) / d.Width
	y := float64(ny) / d.Depth
	z := float64(nz) / d.Height
	return c / 2 * math.Sqrt(x*x+y*y+z*z)
}

// RoomModes enumerates all modes with integers 0..MaxModeOrder per axis,
// excluding (0,0,0), at speed of sound c.
func RoomModes(v *venue.Venue, c float64) (Modes, error) {
	if c <= 0 || math.IsNaN(c) || math.IsInf(c, 0) {
		return Modes{}, fmt.Errorf("%w: speed of sound %v", ErrValidation, c)
	}
	d := v.Dimensions()
	var m Modes
	for nx := 0; nx <= MaxModeOrder; nx++ {
		for ny := 0; ny <= MaxModeOrder; ny++ {
			for nz := 0; nz <= MaxModeOrder; nz++ {
				kind := Classify(nx, ny, nz)
				if kind == 0 {
					continue
				}
				mode := RoomMode{
					Frequency: ModeFrequency(d, c, nx, ny, nz),
					NX:        nx, NY: ny, NZ: nz,
					Kind: kind,
				}
				switch kind {
				case Axial:
					m.Axial = append(m.Axial, mode)
				case Tangential:
					m.Tangential = append(m.Tangential, mode)
				case Oblique:
					m.Oblique = append(m.Oblique, mode)
				}
			}
		}
	}
	sortModes(m.Axial)
	sortModes(m.Tangential)
	sortModes(m.Oblique)
	return m, nil
}

// sortModes orders by frequency, then by mode integers for stable output.
func sortModes(ms []RoomMode) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.Frequency != b.Frequency {
			return a.Frequency < b.Frequency
		}
		if a.NX != b.NX {
			return a.NX < b.NX
		}
		if a.NY != b.NY {
			return a.NY < b.NY
		}
		return a.NZ < b.NZ
	})
}
