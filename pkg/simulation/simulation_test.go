package simulation

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/teslashibe/go-venue-acoustics/pkg/acoustics"
	"github.com/teslashibe/go-venue-acoustics/pkg/crowd"
	"github.com/teslashibe/go-venue-acoustics/pkg/environment"
	"github.com/teslashibe/go-venue-acoustics/pkg/field"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
	"github.com/teslashibe/go-venue-acoustics/pkg/venue"
)

func floatEquals(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func concreteRoom(t *testing.T, opts ...venue.Option) *venue.Venue {
	t.Helper()
	dims := venue.Dimensions{Width: 10, Depth: 10, Height: 5}
	v, err := venue.New(dims, venue.Shell(dims, venue.Concrete, venue.Concrete, venue.Concrete), 100, nil, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func newSim(t *testing.T, opts ...venue.Option) *Simulation {
	t.Helper()
	s, err := New(concreteRoom(t, opts...), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNew_InitialProfile(t *testing.T) {
	s := newSim(t)
	if rt := s.Profile().ReverberationTime; !floatEquals(rt, 10.0625, 1e-9) {
		t.Errorf("RT60 = %v, want 10.0625", rt)
	}
	if s.Crowd().Density != 0 {
		t.Errorf("initial density = %v", s.Crowd().Density)
	}
	if s.Environment() != environment.Standard() {
		t.Errorf("initial env = %+v", s.Environment())
	}
	if s.Snapshot().Version != 0 {
		t.Errorf("version = %d", s.Snapshot().Version)
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(nil, DefaultConfig()); !errors.Is(err, ErrValidation) {
		t.Errorf("nil venue err = %v", err)
	}
	cfg := DefaultConfig()
	cfg.Environment.HumidityPercent = 120
	if _, err := New(concreteRoom(t), cfg); !errors.Is(err, environment.ErrValidation) {
		t.Errorf("bad env err = %v", err)
	}
}

func TestUpdateCrowd(t *testing.T) {
	s := newSim(t)
	var got []Snapshot
	s.OnProfileChange(func(snap Snapshot) { got = append(got, snap) })

	before := s.Profile().ReverberationTime
	if err := s.UpdateCrowd(1.0, nil); err != nil {
		t.Fatal(err)
	}
	if after := s.Profile().ReverberationTime; after >= before {
		t.Errorf("RT60 %v should drop below %v with a full crowd", after, before)
	}
	if len(got) != 1 || got[0].Version != 1 || got[0].Crowd.Density != 1 {
		t.Fatalf("callbacks = %+v", got)
	}

	if err := s.UpdateCrowd(-0.1, nil); !errors.Is(err, crowd.ErrValidation) {
		t.Errorf("negative density err = %v", err)
	}
	if s.Snapshot().Version != 1 || len(got) != 1 {
		t.Error("rejected update must not publish")
	}

	if err := s.UpdateCrowd(1.5, nil); err != nil {
		t.Fatal(err)
	}
	if d := s.Crowd().Density; d != 1 {
		t.Errorf("clamped density = %v", d)
	}
}

func TestSetMovementAndEnvironment(t *testing.T) {
	s := newSim(t)
	if err := s.SetMovement(2); err != nil {
		t.Fatal(err)
	}
	if m := s.Crowd().Movement; m != 1 {
		t.Errorf("movement = %v", m)
	}

	hot := environment.Standard()
	hot.TemperatureC = 35
	if err := s.UpdateEnvironment(hot); err != nil {
		t.Fatal(err)
	}
	if s.Profile().SpeedOfSound <= 343 {
		t.Errorf("speed of sound = %v", s.Profile().SpeedOfSound)
	}

	bad := environment.Standard()
	bad.PressureHPa = 0
	if err := s.UpdateEnvironment(bad); !errors.Is(err, environment.ErrValidation) {
		t.Errorf("bad env err = %v", err)
	}
	if s.Environment() != hot {
		t.Error("rejected environment must not publish")
	}
}

func TestQuery(t *testing.T) {
	s := newSim(t)
	res, err := s.Query(vecmath.V(5, 5, 1.2), 1000)
	if err != nil {
		t.Fatal(err)
	}
	if res.Intensity <= 0 || res.Reverb != s.Profile().ReverberationTime {
		t.Errorf("result = %+v", res)
	}
	if _, err := s.Query(vecmath.V(10.01, 5, 2), 1000); !errors.Is(err, field.ErrOutOfBounds) {
		t.Errorf("out of bounds err = %v", err)
	}
}

func TestAttachTracker(t *testing.T) {
	s := newSim(t)
	tr := crowd.NewTracker(s.Venue().AudienceCapacity())
	s.AttachTracker(tr)

	tr.Join("a", vecmath.V(5, 5, 0))
	tr.Join("b", vecmath.V(6, 5, 0))
	c := s.Crowd()
	if c.Headcount() != 2 || !floatEquals(c.Density, 0.02, 1e-12) {
		t.Errorf("crowd = %+v", c)
	}
	tr.Leave("a")
	if s.Crowd().Headcount() != 1 {
		t.Errorf("headcount after leave = %d", s.Crowd().Headcount())
	}
}

func TestAttachTracker_ConcurrentJoinsConverge(t *testing.T) {
	s := newSim(t)
	tr := crowd.NewTracker(s.Venue().AudienceCapacity())
	s.AttachTracker(tr)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				tr.Join("", vecmath.V(float64(i%10), float64(j), 0))
			}
		}(i)
	}
	wg.Wait()

	if got, want := s.Crowd().Headcount(), tr.Count(); got != want || want != 96 {
		t.Errorf("simulation headcount = %d, tracker count = %d", got, want)
	}
}

func TestAttachTracker_MovementSurvivesJoin(t *testing.T) {
	s := newSim(t)
	tr := crowd.NewTracker(s.Venue().AudienceCapacity())
	s.AttachTracker(tr)

	if err := tr.SetMovement(0.7); err != nil {
		t.Fatal(err)
	}
	tr.Join("a", vecmath.V(5, 5, 0))
	if m := s.Crowd().Movement; !floatEquals(m, 0.7, 1e-12) {
		t.Errorf("movement after join = %v, want 0.7", m)
	}
}

func TestOnProfileChange_VersionOrder(t *testing.T) {
	s := newSim(t)
	var (
		mu       sync.Mutex
		versions []uint64
	)
	s.OnProfileChange(func(snap Snapshot) {
		mu.Lock()
		versions = append(versions, snap.Version)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_ = s.UpdateCrowd(float64((w+i)%10)/10, nil)
			}
		}(w)
	}
	wg.Wait()

	if len(versions) != 160 {
		t.Fatalf("callbacks = %d, want 160", len(versions))
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Fatalf("callback %d saw version %d after %d", i, versions[i], versions[i-1])
		}
	}
	if last := versions[len(versions)-1]; last != s.Snapshot().Version {
		t.Errorf("last delivered version %d, current %d", last, s.Snapshot().Version)
	}
}

func TestSnapshotConsistency(t *testing.T) {
	s := newSim(t)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_ = s.UpdateCrowd(float64((w*25+i)%10)/10, nil)
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				snap := s.Snapshot()
				if snap.Profile.Key != acoustics.KeyFor(s.Venue(), snap.Crowd, snap.Environment) {
					t.Error("snapshot profile does not match its crowd and environment")
					return
				}
			}
		}()
	}
	wg.Wait()
	if v := s.Snapshot().Version; v != 100 {
		t.Errorf("version = %d, want 100", v)
	}
}

func TestOptimalSoundSetup(t *testing.T) {
	s := newSim(t)
	plan, err := s.OptimalSoundSetup()
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.SpeakerPositions) == 0 || len(plan.DelayTimes) != len(plan.SpeakerPositions) {
		t.Fatalf("plan = %+v", plan)
	}
	zero := false
	for _, d := range plan.DelayTimes {
		zero = zero || d == 0
	}
	if !zero {
		t.Error("expected a zero delay")
	}
}

func TestQuality(t *testing.T) {
	s := newSim(t)
	full, err := s.Quality(100)
	if err != nil {
		t.Fatal(err)
	}
	if full.Quality <= 0 || full.Quality > 1 || len(full.Recommendations) != 0 {
		t.Errorf("full house = %+v", full)
	}

	sparse, err := s.Quality(20)
	if err != nil {
		t.Fatal(err)
	}
	if !floatEquals(sparse.Quality, full.Quality*0.8, 1e-12) || sparse.Recommendations[0] != RecommendSmaller {
		t.Errorf("sparse = %+v", sparse)
	}

	packed, err := s.Quality(150)
	if err != nil {
		t.Fatal(err)
	}
	if !floatEquals(packed.Quality, full.Quality*0.9, 1e-12) || packed.Recommendations[0] != RecommendCrowded {
		t.Errorf("packed = %+v", packed)
	}
}

func TestQuality_OutdoorRain(t *testing.T) {
	s := newSim(t, venue.WithIndoor(false))
	dry, err := s.Quality(100)
	if err != nil {
		t.Fatal(err)
	}
	rain := environment.Standard()
	rain.HumidityPercent = 98
	if err := s.UpdateEnvironment(rain); err != nil {
		t.Fatal(err)
	}
	wet, err := s.Quality(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(wet.Recommendations) != 1 || wet.Recommendations[0] != RecommendIndoor {
		t.Errorf("recommendations = %v", wet.Recommendations)
	}
	if wet.Quality >= dry.Quality {
		t.Errorf("rain quality %v should be below dry %v", wet.Quality, dry.Quality)
	}
}
