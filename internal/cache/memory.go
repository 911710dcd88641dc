package cache

import (
	"sync"
	"time"

	"shopkit/internal/core"
)

// entry is a stored candidate list with its write timestamp.
type entry struct {
	storedAt   time.Time
	candidates []core.Candidate
}

// Memory implements Store with an in-process map and lazy TTL expiry.
// Expired entries are treated as absent on read; the store is never
// proactively purged. There is no capacity bound: the key space is the
// small, capped category vocabulary.
type Memory struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time
	m   map[string]entry
}

// Option configures a Memory store.
type Option func(*Memory)

// WithTTL overrides the default entry TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Memory) { c.ttl = ttl }
}

// WithClock overrides the time source, letting tests advance a fake clock
// instead of sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Memory) { c.now = now }
}

// NewMemory creates an in-memory TTL store.
func NewMemory(opts ...Option) *Memory {
	c := &Memory{
		ttl: DefaultTTL,
		now: time.Now,
		m:   make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves the candidates cached under key, or nil, false when absent
// or expired.
func (c *Memory) Get(key string) ([]core.Candidate, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.candidates, true
}

// Set stores candidates under key with a fresh timestamp.
func (c *Memory) Set(key string, candidates []core.Candidate) {
	e := entry{storedAt: c.now(), candidates: candidates}

	c.mu.Lock()
	c.m[key] = e
	c.mu.Unlock()
}

// Len returns the number of physically present entries, expired or not.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
