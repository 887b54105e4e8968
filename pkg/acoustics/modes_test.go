package acoustics

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		nx, ny, nz int
		want       ModeKind
	}{
		{0, 0, 0, 0},
		{1, 0, 0, Axial},
		{0, 0, 3, Axial},
		{1, 2, 0, Tangential},
		{0, 4, 4, Tangential},
		{1, 1, 1, Oblique},
	}
	for _, tt := range tests {
		if got := Classify(tt.nx, tt.ny, tt.nz); got != tt.want {
			t.Errorf("Classify(%d,%d,%d) = %v, want %v", tt.nx, tt.ny, tt.nz, got, tt.want)
		}
	}
}

func TestRoomModes_ExhaustiveAndDisjoint(t *testing.T) {
	v := concreteBox(t)
	m, err := RoomModes(v, 343)
	if err != nil {
		t.Fatal(err)
	}

	// 4 per axis: 3·4 axial, 3·16 tangential, 64 oblique
	if len(m.Axial) != 12 || len(m.Tangential) != 48 || len(m.Oblique) != 64 {
		t.Fatalf("counts = %d/%d/%d", len(m.Axial), len(m.Tangential), len(m.Oblique))
	}

	seen := make(map[[3]int]bool)
	check := func(list []RoomMode, kind ModeKind) {
		prev := 0.0
		for _, mode := range list {
			key := [3]int{mode.NX, mode.NY, mode.NZ}
			if seen[key] {
				t.Errorf("mode %v listed twice", key)
			}
			seen[key] = true
			if mode.Kind != kind || Classify(mode.NX, mode.NY, mode.NZ) != kind {
				t.Errorf("mode %v classified %v, in %v list", key, mode.Kind, kind)
			}
			if mode.Frequency < prev {
				t.Errorf("%v list not ascending at %v", kind, key)
			}
			prev = mode.Frequency
		}
	}
	check(m.Axial, Axial)
	check(m.Tangential, Tangential)
	check(m.Oblique, Oblique)

	if len(seen) != 124 {
		t.Errorf("distinct modes = %d, want 124", len(seen))
	}
	if len(m.All()) != 124 {
		t.Errorf("All() = %d modes", len(m.All()))
	}
}

func TestRoomModes_Frequencies(t *testing.T) {
	v := concreteBox(t)
	m, err := RoomModes(v, 343)
	if err != nil {
		t.Fatal(err)
	}
	// Lowest axial mode is along the 10 m axes: 343/2/10 = 17.15 Hz
	if got := m.Axial[0].Frequency; !floatEquals(got, 17.15) {
		t.Errorf("lowest axial = %v, want 17.15", got)
	}
	// (1,1,1): 171.5·sqrt(0.01+0.01+0.04)
	want := ModeFrequency(v.Dimensions(), 343, 1, 1, 1)
	if got := m.Oblique[0].Frequency; !floatEquals(got, want) {
		t.Errorf("lowest oblique = %v, want %v", got, want)
	}
	if n := m.CountInBand(0, 20); n != 2 {
		t.Errorf("modes below 20 Hz = %d, want 2", n)
	}
}

func TestRoomModes_InvalidSpeed(t *testing.T) {
	v := concreteBox(t)
	if _, err := RoomModes(v, 0); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestModeKind_MarshalText(t *testing.T) {
	b, err := Tangential.MarshalText()
	if err != nil || string(b) != "tangential" {
		t.Errorf("MarshalText = %q, %v", b, err)
	}
}
