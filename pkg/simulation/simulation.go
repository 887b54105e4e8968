// Package simulation ties a venue to its live crowd and environment.
// Updates compute a new acoustic profile through the shared cache and
// publish it atomically, so readers always see a consistent
// (crowd, environment, profile) triple.
package simulation

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-venue-acoustics/internal/log"
	"github.com/teslashibe/go-venue-acoustics/pkg/acoustics"
	"github.com/teslashibe/go-venue-acoustics/pkg/crowd"
	"github.com/teslashibe/go-venue-acoustics/pkg/environment"
	"github.com/teslashibe/go-venue-acoustics/pkg/field"
	"github.com/teslashibe/go-venue-acoustics/pkg/speaker"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
	"github.com/teslashibe/go-venue-acoustics/pkg/venue"
)

// ErrValidation is returned for unusable configuration.
var ErrValidation = errors.New("simulation: validation failed")

// Config configures a Simulation.
type Config struct {
	// Sources are the sound source positions. Empty means field.DefaultSource.
	Sources []vecmath.Vec3

	// Cache is shared between simulations. Nil creates a private cache of CacheSize.
	Cache     *acoustics.Cache
	CacheSize int

	Field   field.Config
	Speaker speaker.Config

	// Environment is the initial condition set.
	Environment environment.Conditions
}

// DefaultConfig returns a config with standard conditions and defaults
// for every component.
func DefaultConfig() Config {
	return Config{
		CacheSize:   acoustics.DefaultCacheSize,
		Field:       field.DefaultConfig(),
		Speaker:     speaker.DefaultConfig(),
		Environment: environment.Standard(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Cache == nil && c.CacheSize <= 0 {
		return fmt.Errorf("%w: cache size must be > 0", ErrValidation)
	}
	if err := c.Field.Validate(); err != nil {
		return err
	}
	if err := c.Speaker.Validate(); err != nil {
		return err
	}
	return c.Environment.Validate()
}

// Snapshot is one published simulation state.
type Snapshot struct {
	Version     uint64                 `json:"version"`
	Crowd       crowd.State            `json:"crowd"`
	Environment environment.Conditions `json:"environment"`
	Profile     *acoustics.Profile     `json:"profile"`
}

// Simulation is safe for concurrent use. Writers are serialized; readers
// load the current snapshot without locking.
type Simulation struct {
	venue *venue.Venue
	cache *acoustics.Cache
	eval  *field.Evaluator
	cfg   Config

	writeMu sync.Mutex
	state   atomic.Pointer[Snapshot]

	// publishMu is taken before writeMu is released so callbacks observe
	// snapshots in version order.
	publishMu sync.Mutex

	cbMu     sync.RWMutex
	onChange []func(Snapshot)
}

// New creates a simulation with an empty crowd and computes the initial profile.
func New(v *venue.Venue, cfg Config) (*Simulation, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil venue", ErrValidation)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cache := cfg.Cache
	if cache == nil {
		var err error
		if cache, err = acoustics.NewCache(cfg.CacheSize); err != nil {
			return nil, err
		}
	}
	eval := field.NewEvaluator(v, cfg.Sources...)
	eval.Config = cfg.Field

	s := &Simulation{venue: v, cache: cache, eval: eval, cfg: cfg}
	p, _, err := cache.GetOrCompute(v, crowd.Empty(), cfg.Environment)
	if err != nil {
		return nil, err
	}
	s.state.Store(&Snapshot{Crowd: crowd.Empty(), Environment: cfg.Environment, Profile: p})
	return s, nil
}

// Venue returns the simulated venue.
func (s *Simulation) Venue() *venue.Venue { return s.venue }

// Cache returns the profile cache.
func (s *Simulation) Cache() *acoustics.Cache { return s.cache }

// Snapshot returns the current state.
func (s *Simulation) Snapshot() Snapshot { return *s.state.Load() }

// Profile returns the current acoustic profile.
func (s *Simulation) Profile() *acoustics.Profile { return s.state.Load().Profile }

// Crowd returns the current crowd state.
func (s *Simulation) Crowd() crowd.State { return s.state.Load().Crowd }

// Environment returns the current conditions.
func (s *Simulation) Environment() environment.Conditions { return s.state.Load().Environment }

// OnProfileChange registers a callback fired after every published update.
// Callbacks run on the updating goroutine, one update at a time and in
// version order. A callback must not update the simulation.
func (s *Simulation) OnProfileChange(fn func(Snapshot)) {
	s.cbMu.Lock()
	s.onChange = append(s.onChange, fn)
	s.cbMu.Unlock()
}

// UpdateCrowd replaces density and distribution.
func (s *Simulation) UpdateCrowd(density float64, distribution []vecmath.Vec3) error {
	return s.update(func(cur Snapshot) (Snapshot, error) {
		next, err := crowd.Update(cur.Crowd, density, distribution)
		if err != nil {
			return cur, err
		}
		cur.Crowd = next
		return cur, nil
	})
}

// SetCrowd publishes a complete crowd state, as produced by a Tracker.
func (s *Simulation) SetCrowd(c crowd.State) error {
	return s.update(func(cur Snapshot) (Snapshot, error) {
		next, err := crowd.Update(crowd.State{Movement: c.Movement}, c.Density, c.Distribution)
		if err != nil {
			return cur, err
		}
		cur.Crowd = next
		return cur, nil
	})
}

// SetMovement updates crowd movement intensity.
func (s *Simulation) SetMovement(m float64) error {
	return s.update(func(cur Snapshot) (Snapshot, error) {
		next, err := crowd.WithMovement(cur.Crowd, m)
		if err != nil {
			return cur, err
		}
		cur.Crowd = next
		return cur, nil
	})
}

// UpdateEnvironment replaces the environmental conditions.
func (s *Simulation) UpdateEnvironment(c environment.Conditions) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.update(func(cur Snapshot) (Snapshot, error) {
		cur.Environment = c
		return cur, nil
	})
}

// AttachTracker feeds every tracker change into the simulation.
func (s *Simulation) AttachTracker(t *crowd.Tracker) {
	t.OnChange(func(c crowd.State) {
		if err := s.SetCrowd(c); err != nil {
			log.Warn("tracker update rejected", "venue", s.venue.ID(), "error", err)
		}
	})
}

func (s *Simulation) update(apply func(Snapshot) (Snapshot, error)) error {
	s.writeMu.Lock()
	cur := *s.state.Load()
	next, err := apply(cur)
	if err != nil {
		s.writeMu.Unlock()
		return err
	}
	p, hit, err := s.cache.GetOrCompute(s.venue, next.Crowd, next.Environment)
	if err != nil {
		s.writeMu.Unlock()
		return err
	}
	next.Profile = p
	next.Version = cur.Version + 1
	s.state.Store(&next)
	s.publishMu.Lock()
	s.writeMu.Unlock()
	defer s.publishMu.Unlock()

	log.Debug("profile updated", "venue", s.venue.ID(), "version", next.Version,
		"rt60", p.ReverberationTime, "cache_hit", hit)

	s.cbMu.RLock()
	callbacks := make([]func(Snapshot), len(s.onChange))
	copy(callbacks, s.onChange)
	s.cbMu.RUnlock()
	for _, fn := range callbacks {
		fn(next)
	}
	return nil
}

// Query evaluates the field at pos for frequency f against the current snapshot.
func (s *Simulation) Query(pos vecmath.Vec3, f float64) (field.Result, error) {
	snap := s.state.Load()
	return s.eval.Query(pos, f, s.venue, snap.Profile, snap.Crowd, snap.Environment)
}

// OptimalSoundSetup recommends speakers, EQ and delays for the current snapshot.
func (s *Simulation) OptimalSoundSetup() (speaker.SetupPlan, error) {
	snap := s.state.Load()
	return s.optimizer(snap).GetOptimalSoundSetup(s.venue, snap.Profile)
}

func (s *Simulation) optimizer(snap *Snapshot) *speaker.Optimizer {
	o := speaker.New(s.eval, snap.Crowd, snap.Environment)
	o.Config = s.cfg.Speaker
	return o
}
