package clickhistory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// shardCount spreads addresses over independent locks so clicks from
// different sources never contend, while clicks from the same source
// serialize on one shard. Must be a power of two.
const shardCount = 64

// record is the per-(address, day) click state. Velocity needs only
// the count and duplicate detection only the two most recent
// timestamps, so a fixed-size record bounds memory per address
// regardless of traffic volume.
type record struct {
	day      string    // Calendar day key, "2006-01-02"
	count    int       // Clicks recorded for this address today
	prev     time.Time // Second most recent click
	last     time.Time // Most recent click
	lastSeen time.Time // For janitor eviction, any day
}

type shard struct {
	mu      sync.Mutex
	records map[string]*record
}

// Tracker is the per-source-address click accounting used for velocity
// and duplicate detection. Entries are created lazily on first click,
// reset at day rollover, and evicted once idle past the retention
// window, so the map cannot grow without bound.
type Tracker struct {
	shards    [shardCount]*shard
	retention time.Duration

	// now is swappable for tests
	now func() time.Time
}

// NewTracker creates a tracker that evicts addresses idle longer than
// retention. A retention of 0 defaults to 24 hours.
func NewTracker(retention time.Duration) *Tracker {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	t := &Tracker{
		retention: retention,
		now:       time.Now,
	}
	for i := range t.shards {
		t.shards[i] = &shard{records: make(map[string]*record)}
	}
	return t
}

// Record appends one click for the address at the given instant.
// If the stored state belongs to an earlier day it is reset first, so
// counts never leak across the day boundary.
func (t *Tracker) Record(sourceAddress string, ts time.Time) {
	s := t.shardFor(sourceAddress)
	s.mu.Lock()
	defer s.mu.Unlock()

	day := ts.Format("2006-01-02")
	rec, ok := s.records[sourceAddress]
	if !ok || rec.day != day {
		rec = &record{day: day}
		s.records[sourceAddress] = rec
	}

	rec.count++
	rec.prev = rec.last
	rec.last = ts
	rec.lastSeen = ts
}

// CountToday returns the number of clicks recorded for the address
// within the current day window.
func (t *Tracker) CountToday(sourceAddress string) int {
	s := t.shardFor(sourceAddress)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sourceAddress]
	if !ok || rec.day != t.now().Format("2006-01-02") {
		return 0
	}
	return rec.count
}

// IsDuplicate compares the two most recent recorded timestamps for the
// address; if their absolute difference is below the threshold the
// newer click is a duplicate (a double-click).
func (t *Tracker) IsDuplicate(sourceAddress string, threshold time.Duration) bool {
	s := t.shardFor(sourceAddress)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sourceAddress]
	if !ok || rec.count < 2 {
		return false
	}

	diff := rec.last.Sub(rec.prev)
	if diff < 0 {
		diff = -diff
	}
	return diff < threshold
}

// Evict removes every address whose last click is older than the
// retention window. Returns the number of addresses removed.
func (t *Tracker) Evict() int {
	cutoff := t.now().Add(-t.retention)
	evicted := 0
	for _, s := range t.shards {
		s.mu.Lock()
		for addr, rec := range s.records {
			if rec.lastSeen.Before(cutoff) {
				delete(s.records, addr)
				evicted++
			}
		}
		s.mu.Unlock()
	}
	return evicted
}

// Janitor runs Evict on a fixed interval until the context is
// cancelled. Pattern borrowed from in-memory request trackers: a
// single background sweep keeps the hot path free of cleanup work.
func (t *Tracker) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Evict()
		}
	}
}

func (t *Tracker) shardFor(sourceAddress string) *shard {
	h := fnv.New32a()
	h.Write([]byte(sourceAddress))
	return t.shards[h.Sum32()&(shardCount-1)]
}
