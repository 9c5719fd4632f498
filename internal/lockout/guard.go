package lockout

import (
	"hash/fnv"
	"sync"
	"time"
)

type State int

const (
	StateNormal State = iota
	StateWarning
	StateLocked
)

const shardCount = 32

type counter struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
}

type shard struct {
	mu       sync.Mutex
	counters map[string]*counter
}

// Guard tracks failed authentication attempts per identity key and enforces
// temporary lockout. Locked keys are rejected before any password hashing
// happens. Unlock is time-based only.
type Guard struct {
	threshold int
	window    time.Duration
	lockFor   time.Duration
	shards    [shardCount]*shard
}

func NewGuard(threshold int, window, lockFor time.Duration) *Guard {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if lockFor <= 0 {
		lockFor = 15 * time.Minute
	}
	g := &Guard{threshold: threshold, window: window, lockFor: lockFor}
	for i := range g.shards {
		g.shards[i] = &shard{counters: make(map[string]*counter)}
	}
	return g
}

func (g *Guard) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return g.shards[h.Sum32()%shardCount]
}

// Allow reports whether the key may attempt authentication now, and if not,
// how long until the lock expires.
func (g *Guard) Allow(key string, now time.Time) (bool, time.Duration) {
	sh := g.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	c, ok := sh.counters[key]
	if !ok {
		return true, 0
	}
	if now.Before(c.lockedUntil) {
		return false, c.lockedUntil.Sub(now)
	}
	return true, 0
}

// RecordFailure counts a failed attempt inside the sliding window and returns
// the resulting state. Reaching the threshold transitions to locked and
// resets the counter, so the next window starts clean after the lock expires.
func (g *Guard) RecordFailure(key string, now time.Time) State {
	sh := g.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	c, ok := sh.counters[key]
	if !ok {
		c = &counter{windowStart: now}
		sh.counters[key] = c
	}

	if now.Sub(c.windowStart) > g.window {
		c.failures = 0
		c.windowStart = now
	}

	c.failures++
	if c.failures >= g.threshold {
		c.lockedUntil = now.Add(g.lockFor)
		c.failures = 0
		c.windowStart = now
		return StateLocked
	}
	return StateWarning
}

// RecordSuccess resets the counter. It does not clear an active lock.
func (g *Guard) RecordSuccess(key string, now time.Time) {
	sh := g.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	c, ok := sh.counters[key]
	if !ok {
		return
	}
	if now.Before(c.lockedUntil) {
		return
	}
	delete(sh.counters, key)
}

func (g *Guard) StateOf(key string, now time.Time) State {
	sh := g.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	c, ok := sh.counters[key]
	if !ok {
		return StateNormal
	}
	if now.Before(c.lockedUntil) {
		return StateLocked
	}
	if c.failures > 0 && now.Sub(c.windowStart) <= g.window {
		return StateWarning
	}
	return StateNormal
}

// PurgeIdle drops counters whose window and lock have both lapsed.
func (g *Guard) PurgeIdle(now time.Time) int {
	removed := 0
	for _, sh := range g.shards {
		sh.mu.Lock()
		for key, c := range sh.counters {
			if now.After(c.lockedUntil) && now.Sub(c.windowStart) > g.window {
				delete(sh.counters, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}
