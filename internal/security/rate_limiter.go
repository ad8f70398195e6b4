// Package security provides security features including rate limiting
// and source IP validation for mDNS multicast traffic.
package security

import (
	"sync"
	"time"

	"github.com/joshuafuller/dnssd/internal/protocol"
)

// rateLimitKey identifies one tracked traffic class: a source address
// paired with the query type it's asking for. Splitting by qtype keeps an
// enumeration flood (PTR queries against "_services._dns-sd._udp", which
// can match many records per response) from exhausting the same budget a
// source's ordinary A/AAAA lookups draw from.
type rateLimitKey struct {
	sourceIP string
	qtype    protocol.QType
}

// RateLimitEntry tracks query rate for a single (source IP, qtype) pair.
type RateLimitEntry struct {
	windowStart    time.Time // Start of current 1-second sliding window
	cooldownExpiry time.Time // When cooldown period ends (zero if not in cooldown)
	lastSeen       time.Time // Last query received (for LRU eviction)
	key            rateLimitKey
	queryCount     int // Number of queries in current sliding window
}

// RateLimiter manages per-(source, qtype) rate limiting with a bounded map.
// Default configuration: 100 qps threshold, 60s cooldown, 10,000 max entries.
type RateLimiter struct {
	threshold     int                       // Max queries/second per (source, qtype)
	cooldown      time.Duration             // Duration to drop packets after threshold exceeded
	maxEntries    int                       // Max number of (source, qtype) pairs tracked
	sources       map[rateLimitKey]*RateLimitEntry
	mu            sync.RWMutex // Protects sources map
	evictionCount uint64       // Number of LRU evictions (for metrics)
}

// NewRateLimiter creates a new rate limiter with the given threshold,
// cooldown, and bounded entry count.
func NewRateLimiter(threshold int, cooldown time.Duration, maxEntries int) *RateLimiter {
	return &RateLimiter{
		threshold:  threshold,
		cooldown:   cooldown,
		maxEntries: maxEntries,
		sources:    make(map[rateLimitKey]*RateLimitEntry),
	}
}

// Allow reports whether a query of qtype from sourceIP should be
// processed. Returns false if that (source, qtype) pair is in cooldown or
// exceeds the rate limit threshold; other qtypes from the same source
// track their own independent budget.
func (rl *RateLimiter) Allow(sourceIP string, qtype protocol.QType) bool {
	key := rateLimitKey{sourceIP: sourceIP, qtype: qtype}

	// Manual unlock required: Must release read lock before acquiring write lock later in function.
	// Lock upgrade pattern - defer would cause deadlock.
	rl.mu.RLock() // nosemgrep: beacon-mutex-defer-unlock
	entry, exists := rl.sources[key]
	rl.mu.RUnlock()

	if !exists {
		// First query from this (source, qtype) - create entry
		rl.mu.Lock()
		defer rl.mu.Unlock()
		// Check again after acquiring write lock (double-check pattern)
		entry, exists = rl.sources[key]
		if !exists {
			rl.sources[key] = &RateLimitEntry{
				key:         key,
				queryCount:  1,
				windowStart: time.Now(),
				lastSeen:    time.Now(),
			}
			// Check if map exceeded maxEntries
			if len(rl.sources) > rl.maxEntries {
				rl.evict()
			}
			return true
		}
		// Entry was created by another goroutine, fall through to check it
	}

	// Update sliding window (needs write lock)
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	// Check cooldown (after acquiring lock)
	if !entry.cooldownExpiry.IsZero() && now.Before(entry.cooldownExpiry) {
		return false // In cooldown, drop packet
	}

	// Cooldown has expired or not set, check/reset window
	if !entry.cooldownExpiry.IsZero() && now.After(entry.cooldownExpiry) {
		// Cooldown just expired, reset window
		entry.queryCount = 1
		entry.windowStart = now
		entry.cooldownExpiry = time.Time{} // Clear cooldown
		entry.lastSeen = now
		return true
	}

	// Check if window has expired (>1 second)
	if now.Sub(entry.windowStart) > 1*time.Second {
		// Reset window
		entry.queryCount = 1
		entry.windowStart = now
		entry.cooldownExpiry = time.Time{} // Clear any expired cooldown
	} else {
		// Increment count in current window
		entry.queryCount++
	}

	entry.lastSeen = now

	// Check threshold
	if entry.queryCount > rl.threshold {
		// Exceeded threshold, start cooldown
		entry.cooldownExpiry = now.Add(rl.cooldown)
		return false
	}

	return true
}

// evict performs LRU cleanup when the sources map exceeds maxEntries.
// Removes oldest 10% of entries by lastSeen timestamp.
// MUST be called while holding rl.mu write lock.
func (rl *RateLimiter) evict() {
	// Calculate how many entries to evict (10% of maxEntries)
	evictCount := rl.maxEntries / 10
	if evictCount == 0 {
		evictCount = 1 // Evict at least one entry
	}

	// Collect all entries with their lastSeen timestamp
	type entryWithTime struct {
		key      rateLimitKey
		lastSeen time.Time
	}

	entries := make([]entryWithTime, 0, len(rl.sources))
	for key, entry := range rl.sources {
		entries = append(entries, entryWithTime{key: key, lastSeen: entry.lastSeen})
	}

	// Sort by lastSeen (oldest first)
	// Using simple bubble-style partial sort for oldest evictCount entries
	for i := 0; i < evictCount && i < len(entries); i++ {
		// Find oldest in remaining entries
		oldestIdx := i
		for j := i + 1; j < len(entries); j++ {
			if entries[j].lastSeen.Before(entries[oldestIdx].lastSeen) {
				oldestIdx = j
			}
		}
		// Swap to position i
		entries[i], entries[oldestIdx] = entries[oldestIdx], entries[i]
	}

	// Evict oldest entries
	evicted := 0
	for i := 0; i < evictCount && i < len(entries); i++ {
		delete(rl.sources, entries[i].key)
		evicted++
	}

	// G115: bounds checked - evicted is always non-negative and at most evictCount (which is at most maxEntries/10)
	if evicted >= 0 { //nolint:gosec // G115: bounds checked
		rl.evictionCount += uint64(evicted)
	}
}

// Cleanup removes entries not seen in the last minute; callers run this
// periodically (e.g. every 5 minutes) to bound the map's memory growth.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	toDelete := make([]rateLimitKey, 0)

	// Find stale entries (not seen recently)
	for key, entry := range rl.sources {
		// Remove if not seen in last 1 minute (conservative cleanup)
		// This handles both entries with expired cooldowns and inactive sources
		if now.Sub(entry.lastSeen) > 1*time.Minute {
			toDelete = append(toDelete, key)
		}
	}

	// Delete stale entries
	for _, key := range toDelete {
		delete(rl.sources, key)
	}
}
