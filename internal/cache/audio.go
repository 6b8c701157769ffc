package cache

import (
	"sync"

	"github.com/dgnsrekt/readaloud/internal/audio"
)

// AudioCache maps paragraph index to its decoded audio and tracks which
// indices are being fetched. It is safe for concurrent use.
//
// Entries are written once per index and never mutated. They are dropped
// by Reset and, when a bound is configured, by distance from the focus
// index.
type AudioCache struct {
	entries map[int]*audio.Buffer
	pending map[int]uint64 // index -> epoch it was marked in

	// epoch is bumped by Reset so that fetches started before the reset
	// cannot write into the new generation.
	epoch uint64

	maxEntries int
	focus      int

	mu    sync.RWMutex
	stats CacheStats
}

// NewAudioCache creates an empty cache. maxEntries <= 0 means unbounded.
func NewAudioCache(maxEntries int) *AudioCache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &AudioCache{
		entries:    make(map[int]*audio.Buffer),
		pending:    make(map[int]uint64),
		maxEntries: maxEntries,
	}
}

// Has reports whether decoded audio exists for index.
func (c *AudioCache) Has(index int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.entries[index]
	return ok
}

// Get retrieves the decoded audio for index.
func (c *AudioCache) Get(index int) (*audio.Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, ok := c.entries[index]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return buf, true
}

// Put stores decoded audio for index. The last writer wins.
func (c *AudioCache) Put(index int, buf *audio.Buffer) {
	if buf == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.putLocked(index, buf)
}

func (c *AudioCache) putLocked(index int, buf *audio.Buffer) {
	c.entries[index] = buf
	for c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		if !c.evictFarthestLocked(index) {
			break
		}
	}
}

// evictFarthestLocked drops the entry farthest from the focus index,
// never the one just written. Ties go to the entry behind the focus.
func (c *AudioCache) evictFarthestLocked(keep int) bool {
	victim, best := 0, -1
	for k := range c.entries {
		if k == keep {
			continue
		}
		d := k - c.focus
		if d < 0 {
			d = -d
		}
		if d > best || (d == best && k < victim) {
			victim, best = k, d
		}
	}
	if best < 0 {
		return false
	}
	delete(c.entries, victim)
	c.stats.Evictions++
	return true
}

// IsPending reports whether a fetch for index is in flight.
func (c *AudioCache) IsPending(index int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.pending[index]
	return ok
}

// MarkPending records that a fetch for index is in flight.
func (c *AudioCache) MarkPending(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending[index] = c.epoch
}

// ClearPending forgets the in-flight marker for index.
func (c *AudioCache) ClearPending(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.pending, index)
}

// Reserve marks index as pending unless it is already cached or pending.
// The check and the mark happen under one lock, so two callers can never
// both win the same index.
func (c *AudioCache) Reserve(index int) (Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[index]; ok {
		return Ticket{}, false
	}
	if _, ok := c.pending[index]; ok {
		return Ticket{}, false
	}
	c.pending[index] = c.epoch
	return Ticket{Index: index, epoch: c.epoch}, true
}

// Fulfill stores the fetched audio and clears the pending marker held by
// t. A ticket issued before the last Reset is discarded.
func (c *AudioCache) Fulfill(t Ticket, buf *audio.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.epoch != c.epoch {
		return ErrStaleTicket
	}
	if buf != nil {
		c.putLocked(t.Index, buf)
	}
	if e, ok := c.pending[t.Index]; ok && e == t.epoch {
		delete(c.pending, t.Index)
	}
	return nil
}

// Release clears the pending marker held by t without storing anything.
func (c *AudioCache) Release(t Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.epoch != c.epoch {
		return
	}
	if e, ok := c.pending[t.Index]; ok && e == t.epoch {
		delete(c.pending, t.Index)
	}
}

// SetFocus tells the cache which index playback is centred on. It only
// matters when the cache is bounded.
func (c *AudioCache) SetFocus(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.focus = index
}

// Reset drops every entry and pending marker.
func (c *AudioCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[int]*audio.Buffer)
	c.pending = make(map[int]uint64)
	c.epoch++
	c.focus = 0
}

// Len returns the number of cached entries.
func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Stats returns cache statistics.
func (c *AudioCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Entries = len(c.entries)
	stats.Pending = len(c.pending)
	stats.MaxEntries = c.maxEntries

	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}
