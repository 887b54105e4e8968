package crowd

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/teslashibe/go-venue-acoustics/internal/log"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func TestUpdate_ReplacesDensityAndDistribution(t *testing.T) {
	s := Empty()
	dist := []vecmath.Vec3{vecmath.V(1, 1, 0), vecmath.V(2, 2, 0)}
	next, err := Update(s, 0.4, dist)
	if err != nil {
		t.Fatal(err)
	}
	if next.Density != 0.4 || next.Headcount() != 2 {
		t.Errorf("Update = %+v", next)
	}

	// Input slice must not alias the state
	dist[0] = vecmath.V(9, 9, 9)
	if next.Distribution[0] == dist[0] {
		t.Error("Update should copy the distribution")
	}
	if s.Density != 0 || s.Headcount() != 0 {
		t.Error("Update must not modify its input state")
	}
}

func TestUpdate_ClampsOverCapacityWithWarning(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf, "warn")

	next, err := Update(Empty(), 1.7, nil)
	if err != nil {
		t.Fatal(err)
	}
	if next.Density != 1 {
		t.Errorf("Density = %v, want 1", next.Density)
	}
	if !strings.Contains(buf.String(), "clamping") {
		t.Errorf("expected clamp warning, got %q", buf.String())
	}
}

func TestUpdate_RejectsInvalid(t *testing.T) {
	if _, err := Update(Empty(), -0.1, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("negative density err = %v", err)
	}
	if _, err := Update(Empty(), math.NaN(), nil); !errors.Is(err, ErrValidation) {
		t.Errorf("NaN density err = %v", err)
	}
	if _, err := Update(Empty(), 0.5, []vecmath.Vec3{vecmath.V(math.Inf(1), 0, 0)}); !errors.Is(err, ErrValidation) {
		t.Errorf("infinite position err = %v", err)
	}
}

func TestWithMovement(t *testing.T) {
	s, err := WithMovement(Empty(), 0.3)
	if err != nil || s.Movement != 0.3 {
		t.Errorf("WithMovement = %+v, %v", s, err)
	}
	s, err = WithMovement(Empty(), 2)
	if err != nil || s.Movement != 1 {
		t.Errorf("WithMovement clamp = %+v, %v", s, err)
	}
	if _, err := WithMovement(Empty(), math.NaN()); !errors.Is(err, ErrValidation) {
		t.Errorf("NaN movement err = %v", err)
	}
}

func TestLocalDensity(t *testing.T) {
	s, _ := Update(Empty(), 0.5, []vecmath.Vec3{
		vecmath.V(0, 0, 0),
		vecmath.V(1, 0, 0),
		vecmath.V(0, 2, 1.5), // height ignored
		vecmath.V(10, 10, 0),
	})

	got := LocalDensity(s, vecmath.V(0, 0, 0), 2)
	want := 3 / (math.Pi * 4)
	if !floatEquals(got, want) {
		t.Errorf("LocalDensity = %v, want %v", got, want)
	}
	if LocalDensity(s, vecmath.V(0, 0, 0), 0) != 0 {
		t.Error("zero radius should give 0")
	}
	if LocalDensity(Empty(), vecmath.V(0, 0, 0), 5) != 0 {
		t.Error("empty crowd should give 0")
	}
}

func TestPathDensity(t *testing.T) {
	s, _ := Update(Empty(), 0.5, []vecmath.Vec3{vecmath.V(5, 0, 0)})
	from := vecmath.V(0, 0, 1)

	cases := []struct {
		name string
		to   vecmath.Vec3
		want float64
	}{
		{"through the listener", vecmath.V(10, 0, 1), 2 / math.Pi},
		{"stops at the listener", vecmath.V(5, 0, 1), 1 / math.Pi},
		{"short of the listener", vecmath.V(3, 0, 1), 0},
		{"misses the listener", vecmath.V(10, 3, 1), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PathDensity(s, from, tc.to, 1)
			if !floatEquals(got, tc.want) {
				t.Errorf("PathDensity = %v, want %v", got, tc.want)
			}
		})
	}

	if got := PathDensity(s, vecmath.V(5, 0, 0), vecmath.V(5, 0, 3), 1); !floatEquals(got, 3/math.Pi) {
		t.Errorf("vertical PathDensity = %v, want %v", got, 3/math.Pi)
	}
	if PathDensity(s, from, from, 1) != 0 || PathDensity(s, from, vecmath.V(10, 0, 1), 0) != 0 {
		t.Error("degenerate segment or radius should give 0")
	}
}

func TestPathDensity_NeverDecreasesAlongRay(t *testing.T) {
	var people []vecmath.Vec3
	for i := 0; i < 50; i++ {
		people = append(people, vecmath.V(2, 0, 0), vecmath.V(6+float64(i%5)*0.2, 0.5, 0))
	}
	s, _ := Update(Empty(), 0.5, people)
	from := vecmath.V(0, 0, 1)

	prev := 0.0
	for x := 0.1; x < 15; x += 0.1 {
		got := PathDensity(s, from, vecmath.V(x, 0, 1), DefaultLocalRadius)
		if got < prev-1e-12 {
			t.Fatalf("x=%.1f: path density %v dropped below %v", x, got, prev)
		}
		prev = got
	}
}

func TestAbsorptionCoefficient(t *testing.T) {
	full, _ := Update(Empty(), 1, nil)
	if !floatEquals(AbsorptionCoefficient(full), PerPersonAbsorption) {
		t.Errorf("full crowd absorption = %v", AbsorptionCoefficient(full))
	}
	half, _ := Update(Empty(), 0.5, nil)
	if !floatEquals(AbsorptionCoefficient(half), 0.3) {
		t.Errorf("half crowd absorption = %v", AbsorptionCoefficient(half))
	}
}

func TestDiffusion(t *testing.T) {
	if Diffusion(0, 1) != 0 {
		t.Error("no crowd should not scatter")
	}
	still := Diffusion(1, 0)
	moving := Diffusion(1, 1)
	if !(moving > still && still > 0 && moving < 1) {
		t.Errorf("Diffusion still=%v moving=%v", still, moving)
	}
}

func TestHash(t *testing.T) {
	a, _ := Update(Empty(), 0.5, []vecmath.Vec3{vecmath.V(1, 2, 0)})
	b, _ := Update(Empty(), 0.5, []vecmath.Vec3{vecmath.V(1, 2, 0)})
	if a.Hash() != b.Hash() {
		t.Error("equal states should hash equally")
	}
	c, _ := Update(Empty(), 0.5, []vecmath.Vec3{vecmath.V(1, 2.5, 0)})
	if a.Hash() == c.Hash() {
		t.Error("moved person should change the hash")
	}
}
