package cache

import (
	"strings"
	"sync"
	"time"
)

type State int

const (
	Absent State = iota
	Fresh
	Stale
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

type entry struct {
	storedAt time.Time
	value    any
}

// Cache is a mutex-guarded TTL map. Entries go Absent -> Fresh on Set,
// Fresh -> Stale once the TTL elapses, and Stale -> Absent when read or
// invalidated.
//
// Every Invalidate or Clear bumps a generation counter. A reader that
// takes Gen before a slow fetch and stores with SetIfGen cannot put back
// a value that a write made obsolete meanwhile.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	gen     uint64
	entries map[string]entry
}

func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// WithClock replaces the time source, for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns a fresh value only. A stale entry is dropped on access.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.stale(e) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, v any) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry{storedAt: c.now(), value: v}
	c.mu.Unlock()
}

// Gen returns the current invalidation generation.
func (c *Cache) Gen() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// SetIfGen stores v only when no invalidation happened since gen was taken.
func (c *Cache) SetIfGen(key string, v any, gen uint64) bool {
	if c.ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.entries[key] = entry{storedAt: c.now(), value: v}
	return true
}

func (c *Cache) State(key string) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	switch {
	case !ok:
		return Absent
	case c.stale(e):
		return Stale
	default:
		return Fresh
	}
}

// Invalidate removes every key containing any of the given substrings and
// reports how many entries went away.
func (c *Cache) Invalidate(substrings ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	n := 0
	for key := range c.entries {
		for _, sub := range substrings {
			if sub != "" && strings.Contains(key, sub) {
				delete(c.entries, key)
				n++
				break
			}
		}
	}
	return n
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.gen++
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) stale(e entry) bool {
	return c.now().Sub(e.storedAt) >= c.ttl
}
