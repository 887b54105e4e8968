package acoustics

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/teslashibe/go-venue-acoustics/internal/log"
	"github.com/teslashibe/go-venue-acoustics/pkg/crowd"
	"github.com/teslashibe/go-venue-acoustics/pkg/environment"
	"github.com/teslashibe/go-venue-acoustics/pkg/venue"
)

// DefaultCacheSize is the number of profiles kept before the least
// recently used entry is evicted.
const DefaultCacheSize = 64

// Key identifies a profile by venue and content hashes of its inputs.
type Key struct {
	VenueID string
	Crowd   uint64
	Env     uint64
}

// KeyFor builds the cache key for a (venue, crowd, environment) triple.
func KeyFor(v *venue.Venue, c crowd.State, env environment.Conditions) Key {
	return Key{VenueID: v.ID(), Crowd: c.Hash(), Env: env.Hash()}
}

// String renders the key for logs and singleflight.
func (k Key) String() string {
	return fmt.Sprintf("%s/%016x/%016x", k.VenueID, k.Crowd, k.Env)
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// Cache memoizes profiles. Each key is either absent (compute on demand)
// or present (reuse); entries are immutable and replaced, never edited.
// Concurrent requests for the same absent key share one computation.
type Cache struct {
	store *lru.Cache[Key, *Profile]
	group singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache holding up to size profiles.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	store, err := lru.New[Key, *Profile](size)
	if err != nil {
		return nil, fmt.Errorf("create profile cache: %w", err)
	}
	return &Cache{store: store}, nil
}

// Get returns the cached profile for k, if present.
func (c *Cache) Get(k Key) (*Profile, bool) {
	return c.store.Get(k)
}

// GetOrCompute returns the cached profile for the inputs, computing and
// storing it on a miss. hit reports whether the cached value was reused.
func (c *Cache) GetOrCompute(v *venue.Venue, cs crowd.State, env environment.Conditions) (p *Profile, hit bool, err error) {
	k := KeyFor(v, cs, env)
	if p, ok := c.store.Get(k); ok {
		c.hits.Add(1)
		return p, true, nil
	}

	// Only the caller whose closure runs sets computed.
	computed := false
	res, err, _ := c.group.Do(k.String(), func() (any, error) {
		if p, ok := c.store.Get(k); ok {
			return p, nil
		}
		computed = true
		p, err := Compute(v, cs, env)
		if err != nil {
			return nil, err
		}
		c.store.Add(k, p)
		log.Debug("profile computed", "key", k.String(), "rt60", p.ReverberationTime)
		return p, nil
	})
	if err != nil {
		return nil, false, err
	}
	if computed {
		c.misses.Add(1)
	} else {
		c.hits.Add(1)
	}
	return res.(*Profile), !computed, nil
}

// Invalidate removes one entry. It reports whether the entry was present.
func (c *Cache) Invalidate(k Key) bool {
	return c.store.Remove(k)
}

// InvalidateVenue removes every entry for a venue and returns how many
// were removed. Entries for other venues are untouched.
func (c *Cache) InvalidateVenue(venueID string) int {
	n := 0
	for _, k := range c.store.Keys() {
		if k.VenueID == venueID && c.store.Remove(k) {
			n++
		}
	}
	return n
}

// Len returns the number of cached profiles.
func (c *Cache) Len() int {
	return c.store.Len()
}

// Stats returns hit/miss counters and the current size.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: c.store.Len()}
}
