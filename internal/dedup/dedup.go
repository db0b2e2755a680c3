// Package dedup suppresses repeated identical alerts within a cooldown
// window, keyed by alert source.
package dedup

import (
	"sync"
	"time"

	"codeberg.org/halcyon/robomon/internal/frame"
)

// sweepFloor: once the key map grows past this, expired entries are removed
// on the next ShouldEmit call. Torque keys are bounded by the joint count,
// but thermal keys are per frame number and would otherwise grow without
// bound over a long-running stream.
const sweepFloor = 4096

// Key identifies one alert source: the stream plus the frame number
// (thermal) or the 1-based joint index (torque).
type Key struct {
	Stream frame.Stream
	ID     int
}

// Deduplicator tracks the last emission time per key. A key with no entry,
// or whose entry is older than the cooldown, may emit; anything else is
// suppressed entirely.
type Deduplicator struct {
	mu       sync.Mutex
	last     map[Key]time.Time
	cooldown time.Duration
	now      func() time.Time
}

func New(cooldown time.Duration) *Deduplicator {
	return &Deduplicator{
		last:     make(map[Key]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// ShouldEmit reports whether an alert for key may be emitted now, and if so
// stamps the key. Suppressed alerts are not merged or counted.
func (d *Deduplicator) ShouldEmit(key Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()

	if last, ok := d.last[key]; ok && now.Sub(last) <= d.cooldown {
		return false
	}

	if len(d.last) > sweepFloor {
		d.sweep(now)
	}

	d.last[key] = now

	return true
}

// sweep drops entries already past the cooldown. Caller holds the lock.
// Removing an expired entry is unobservable: it would emit again anyway.
func (d *Deduplicator) sweep(now time.Time) {
	for key, last := range d.last {
		if now.Sub(last) > d.cooldown {
			delete(d.last, key)
		}
	}
}

// Len returns the number of tracked keys.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.last)
}
