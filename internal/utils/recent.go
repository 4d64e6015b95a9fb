package utils

import (
	"sync"
	"time"
)

// RecentCounter counts events inside a trailing time window.
type RecentCounter struct {
	mu     sync.Mutex
	window time.Duration
	events []time.Time
	total  uint64
}

func NewRecentCounter(window time.Duration) *RecentCounter {
	return &RecentCounter{window: window}
}

// Record adds an event at now and returns the count inside the window.
func (r *RecentCounter) Record(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(now)
	r.events = append(r.events, now)
	r.total++
	return len(r.events)
}

func (r *RecentCounter) Count(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(now)
	return len(r.events)
}

// Total is the number of events ever recorded.
func (r *RecentCounter) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

func (r *RecentCounter) Window() time.Duration {
	return r.window
}

// events are appended in time order, so expired ones form a prefix.
func (r *RecentCounter) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	expired := 0
	for expired < len(r.events) && !r.events[expired].After(cutoff) {
		expired++
	}
	r.events = r.events[expired:]
}
