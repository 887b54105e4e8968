package acoustics

import (
	"sync"
	"testing"

	"github.com/teslashibe/go-venue-acoustics/pkg/crowd"
	"github.com/teslashibe/go-venue-acoustics/pkg/environment"
	"github.com/teslashibe/go-venue-acoustics/pkg/venue"
)

func newCache(t *testing.T, size int) *Cache {
	t.Helper()
	c, err := NewCache(size)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return c
}

func TestCache_HitReusesProfile(t *testing.T) {
	c := newCache(t, 8)
	v := concreteBox(t)
	env := environment.Standard()

	p1, hit, err := c.GetOrCompute(v, crowd.Empty(), env)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("first lookup should miss")
	}
	p2, hit, err := c.GetOrCompute(v, crowd.Empty(), env)
	if err != nil {
		t.Fatal(err)
	}
	if !hit || p1 != p2 {
		t.Error("second lookup should return the same cached profile")
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Entries != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestCache_InputChangeUsesNewKey(t *testing.T) {
	c := newCache(t, 8)
	v := concreteBox(t)
	env := environment.Standard()

	empty, _, _ := c.GetOrCompute(v, crowd.Empty(), env)
	full, _, _ := c.GetOrCompute(v, fullCrowd(t), env)
	if empty == full {
		t.Fatal("different crowd must not share a profile")
	}
	if full.ReverberationTime >= empty.ReverberationTime {
		t.Error("crowded profile should be less reverberant")
	}

	warm := env
	warm.TemperatureC = 30
	hot, _, _ := c.GetOrCompute(v, crowd.Empty(), warm)
	if hot.SpeedOfSound <= empty.SpeedOfSound {
		t.Error("warmer air should raise the speed of sound")
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
}

func TestCache_InvalidateOnlyAffectedEntry(t *testing.T) {
	c := newCache(t, 8)
	a := concreteBox(t)
	dims := venue.Dimensions{Width: 8, Depth: 6, Height: 3}
	b, err := venue.New(dims, venue.Shell(dims, venue.Wood, venue.Wood, venue.Wood), 20, nil, venue.WithID("other"))
	if err != nil {
		t.Fatal(err)
	}
	env := environment.Standard()

	c.GetOrCompute(a, crowd.Empty(), env)
	c.GetOrCompute(a, fullCrowd(t), env)
	c.GetOrCompute(b, crowd.Empty(), env)

	if !c.Invalidate(KeyFor(a, crowd.Empty(), env)) {
		t.Error("Invalidate should report present entry")
	}
	if _, ok := c.Get(KeyFor(a, fullCrowd(t), env)); !ok {
		t.Error("unrelated entry for the same venue was dropped")
	}
	if c.Invalidate(KeyFor(a, crowd.Empty(), env)) {
		t.Error("second Invalidate should report absent")
	}

	if n := c.InvalidateVenue("box"); n != 1 {
		t.Errorf("InvalidateVenue removed %d, want 1", n)
	}
	if _, ok := c.Get(KeyFor(b, crowd.Empty(), env)); !ok {
		t.Error("other venue's entry should survive InvalidateVenue")
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newCache(t, 2)
	v := concreteBox(t)
	env := environment.Standard()

	for _, d := range []float64{0.1, 0.2, 0.3} {
		s, _ := crowd.Update(crowd.Empty(), d, nil)
		if _, _, err := c.GetOrCompute(v, s, env); err != nil {
			t.Fatal(err)
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	first, _ := crowd.Update(crowd.Empty(), 0.1, nil)
	if _, ok := c.Get(KeyFor(v, first, env)); ok {
		t.Error("oldest entry should have been evicted")
	}
}

func TestCache_InvalidEnvironmentNotCached(t *testing.T) {
	c := newCache(t, 8)
	env := environment.Standard()
	env.HumidityPercent = 140
	if _, _, err := c.GetOrCompute(concreteBox(t), crowd.Empty(), env); err == nil {
		t.Fatal("expected validation error")
	}
	if c.Len() != 0 {
		t.Error("failed computation must not be cached")
	}
}

func TestCache_ConcurrentReaders(t *testing.T) {
	c := newCache(t, 8)
	v := concreteBox(t)
	env := environment.Standard()

	var wg sync.WaitGroup
	results := make([]*Profile, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, _, err := c.GetOrCompute(v, crowd.Empty(), env)
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = p
		}(i)
	}
	wg.Wait()

	for i, p := range results {
		if p == nil || !floatEquals(p.ReverberationTime, 10.0625) {
			t.Fatalf("result %d = %+v", i, p)
		}
	}
	if st := c.Stats(); st.Misses < 1 || st.Hits+st.Misses != 32 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestCompute_Profile(t *testing.T) {
	p, err := Compute(concreteBox(t), crowd.Empty(), environment.Standard())
	if err != nil {
		t.Fatal(err)
	}
	if p.VenueID != "box" {
		t.Errorf("VenueID = %q", p.VenueID)
	}
	for name, v := range map[string]float64{
		"absorption": p.Absorption, "diffusion": p.Diffusion,
		"low": p.Resonance.Low, "mid": p.Resonance.Mid, "high": p.Resonance.High,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v outside [0,1]", name, v)
		}
	}
	if len(p.Bands) != len(OctaveBands) {
		t.Errorf("bands = %d", len(p.Bands))
	}
	if _, err := Compute(nil, crowd.Empty(), environment.Standard()); err == nil {
		t.Error("nil venue should fail")
	}
}
