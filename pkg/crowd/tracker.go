package crowd

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
)

// Tracker maintains live occupancy from join/leave/move events and
// periodic density readings. It is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	capacity int
	people   map[string]vecmath.Vec3
	movement float64

	// densityOverride holds an explicit density reading; nil means
	// density is derived from headcount / capacity.
	densityOverride *float64

	// notifyMu orders callback delivery so the last snapshot delivered
	// always reflects the latest change.
	notifyMu sync.Mutex
	onChange func(State)
}

// NewTracker creates a tracker for a venue with the given capacity.
func NewTracker(capacity int) *Tracker {
	return &Tracker{
		capacity: capacity,
		people:   make(map[string]vecmath.Vec3),
	}
}

// OnChange sets a callback invoked with the new snapshot after every change.
// The callback runs on the caller's goroutine, outside the state lock but
// serialized with other deliveries. It must not mutate the tracker.
func (t *Tracker) OnChange(callback func(State)) {
	t.mu.Lock()
	t.onChange = callback
	t.mu.Unlock()
}

// Join adds a person at pos. An empty id is replaced by a random one,
// which is returned.
func (t *Tracker) Join(id string, pos vecmath.Vec3) string {
	if id == "" {
		id = uuid.New().String()
	}
	t.mu.Lock()
	t.people[id] = pos
	t.mu.Unlock()
	t.notify()
	return id
}

// Leave removes a person. Unknown ids are ignored.
func (t *Tracker) Leave(id string) bool {
	t.mu.Lock()
	_, ok := t.people[id]
	delete(t.people, id)
	t.mu.Unlock()
	if ok {
		t.notify()
	}
	return ok
}

// Move updates a person's position, adding them if unknown.
func (t *Tracker) Move(id string, pos vecmath.Vec3) {
	t.mu.Lock()
	t.people[id] = pos
	t.mu.Unlock()
	t.notify()
}

// SetDensity records an explicit density reading that overrides the
// headcount-derived value until ClearDensity is called.
func (t *Tracker) SetDensity(density float64) error {
	if !vecmath.IsFinite(density) || density < 0 {
		return fmt.Errorf("%w: density %v", ErrValidation, density)
	}
	t.mu.Lock()
	t.densityOverride = &density
	t.mu.Unlock()
	t.notify()
	return nil
}

// ClearDensity reverts to headcount-derived density.
func (t *Tracker) ClearDensity() {
	t.mu.Lock()
	t.densityOverride = nil
	t.mu.Unlock()
	t.notify()
}

// SetMovement records the crowd movement intensity. Non-finite values are
// rejected; values outside [0,1] are clamped with a warning.
func (t *Tracker) SetMovement(m float64) error {
	s, err := WithMovement(State{}, m)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.movement = s.Movement
	t.mu.Unlock()
	t.notify()
	return nil
}

// Movement returns the recorded movement intensity.
func (t *Tracker) Movement() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.movement
}

// Count returns the current headcount.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.people)
}

// Snapshot returns the current occupancy as an immutable State.
// Positions are ordered by person id so equal occupancy hashes equally.
func (t *Tracker) Snapshot() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() State {
	ids := make([]string, 0, len(t.people))
	for id := range t.people {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	dist := make([]vecmath.Vec3, len(ids))
	for i, id := range ids {
		dist[i] = t.people[id]
	}

	var density float64
	switch {
	case t.densityOverride != nil:
		density = *t.densityOverride
	case t.capacity > 0:
		density = float64(len(ids)) / float64(t.capacity)
	}

	// Update applies the clamping and warning policy.
	s, err := Update(State{Movement: vecmath.Clamp(t.movement, 0, 1)}, density, dist)
	if err != nil {
		s = State{Distribution: dist, Movement: vecmath.Clamp(t.movement, 0, 1)}
	}
	return s
}

// notify takes the snapshot and delivers it under notifyMu, so concurrent
// changes reach the callback in the order their snapshots were taken.
func (t *Tracker) notify() {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()
	t.mu.RLock()
	cb := t.onChange
	var s State
	if cb != nil {
		s = t.snapshotLocked()
	}
	t.mu.RUnlock()
	if cb != nil {
		cb(s)
	}
}
