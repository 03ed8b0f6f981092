// Package metrics implements the thread-safe progress/stats aggregator (spec §4.I).
package metrics

import (
	"sync"
	"time"
)

// Aggregator holds the run-wide counters, guarded by a single mutex (spec §5
// "Per-host state isolation": only the aggregator needs fine-grained locking).
type Aggregator struct {
	mutex sync.Mutex

	total        int
	successCount int
	hostElapsed  map[string]time.Duration

	progressMutex sync.Mutex
	lastEmitted   time.Time
}

// throttleInterval caps progress emission to at most one message per window,
// shared across all worker goroutines (spec §4.I).
const throttleInterval = 5 * time.Second

// New returns an Aggregator tracking total hosts.
func New(total int) *Aggregator {
	return &Aggregator{
		total:       total,
		hostElapsed: make(map[string]time.Duration),
	}
}

// RecordSuccess marks host as complete with the given elapsed time.
func (a *Aggregator) RecordSuccess(host string, elapsed time.Duration) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if _, already := a.hostElapsed[host]; already {
		return
	}
	a.hostElapsed[host] = elapsed
	a.successCount++
}

// Snapshot returns the current success/fail counts.
func (a *Aggregator) Snapshot() (successCount int, failCount int, total int) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	total = a.total
	successCount = a.successCount
	failCount = total - successCount
	return
}

// ShouldEmit reports whether enough time has elapsed since the last progress
// emission to print another one, and if so, advances the clock under the
// throttle's own mutex (spec §4.I, §5 "Progress throttle").
func (a *Aggregator) ShouldEmit() bool {
	a.progressMutex.Lock()
	defer a.progressMutex.Unlock()

	now := time.Now()
	if now.Sub(a.lastEmitted) < throttleInterval {
		return false
	}
	a.lastEmitted = now
	return true
}
