package query

import (
	"sync"
	"time"

	"github.com/mitchellh/hashstructure"

	"github.com/SDM-TIB/Trav-SHACL/shacl"
)

// PlanCache caches materialized Plans keyed by the structural hash of
// the owning shape's constraints, so re-planning an unchanged schema
// (e.g. across BFS/DFS invariant-property test runs) never regenerates
// byte-identical SPARQL strings (SPEC_FULL.md §4).
type PlanCache struct {
	mu      sync.RWMutex
	entries map[uint64]cachedPlan
	maxSize int
	ttl     time.Duration

	hits, misses int64
}

type cachedPlan struct {
	plan      *Plan
	timestamp time.Time
}

// NewPlanCache creates a cache holding up to maxSize entries, each
// valid for ttl (0 disables expiry).
func NewPlanCache(maxSize int, ttl time.Duration) *PlanCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &PlanCache{entries: make(map[uint64]cachedPlan), maxSize: maxSize, ttl: ttl}
}

func (c *PlanCache) key(s *shacl.Shape) (uint64, error) {
	return hashstructure.Hash(struct {
		Name        string
		Constraints []shacl.Constraint
		Disjunction bool
	}{s.Name, s.Constraints, s.FlagDisjunction}, nil)
}

// Get returns the cached plan for s, if present and unexpired.
func (c *PlanCache) Get(s *shacl.Shape) (*Plan, bool) {
	key, err := c.key(s)
	if err != nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.ttl > 0 && time.Since(entry.timestamp) > c.ttl {
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.plan, true
}

// Put stores plan for s, evicting an arbitrary entry if at capacity.
func (c *PlanCache) Put(s *shacl.Shape, plan *Plan) {
	key, err := c.key(s)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[key] = cachedPlan{plan: plan, timestamp: time.Now()}
}

// Stats returns (hits, misses) for diagnostics.
func (c *PlanCache) Stats() (int64, int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
