package cache

import "errors"

// ErrStaleTicket is returned when a ticket is resolved after the cache was
// reset underneath it.
var ErrStaleTicket = errors.New("ticket predates cache reset")

// CacheStats holds cache performance metrics.
type CacheStats struct {
	Entries    int // decoded buffers held
	Pending    int // fetches in flight
	MaxEntries int // 0 means unbounded

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64 // hits / (hits + misses)
}

// Ticket is handed out by Reserve and identifies one pending fetch.
type Ticket struct {
	Index int
	epoch uint64
}
