// Package ratelimit provides sliding-window admission control for AI calls.
package ratelimit

import (
	"sync"
	"time"
)

// slidingWindow is a bucketed sliding-window counter. Requests land in the
// bucket for their truncated timestamp; buckets older than the window are
// pruned on every operation, so the count never carries the reset spike of a
// fixed window.
type slidingWindow struct {
	window     time.Duration
	bucketSize time.Duration
	buckets    []bucket
	now        func() time.Time
	mu         sync.Mutex
}

type bucket struct {
	timestamp time.Time
	count     int64
}

func newSlidingWindow(window, bucketSize time.Duration, now func() time.Time) *slidingWindow {
	numBuckets := int(window / bucketSize)
	if numBuckets == 0 {
		numBuckets = 1
	}
	return &slidingWindow{
		window:     window,
		bucketSize: bucketSize,
		buckets:    make([]bucket, numBuckets),
		now:        now,
	}
}

// add records one request in the current bucket
func (sw *slidingWindow) add() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.pruneLocked(now)
	sw.bucketForLocked(now).count++
}

// sum returns the request count inside the window
func (sw *slidingWindow) sum() int64 {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.pruneLocked(sw.now())

	var total int64
	for i := range sw.buckets {
		if !sw.buckets[i].timestamp.IsZero() {
			total += sw.buckets[i].count
		}
	}
	return total
}

// resetAt returns when the oldest in-window bucket ages out. With no
// recorded requests it returns the zero time.
func (sw *slidingWindow) resetAt() time.Time {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.pruneLocked(sw.now())

	var oldest time.Time
	for i := range sw.buckets {
		ts := sw.buckets[i].timestamp
		if ts.IsZero() {
			continue
		}
		if oldest.IsZero() || ts.Before(oldest) {
			oldest = ts
		}
	}
	if oldest.IsZero() {
		return oldest
	}
	return oldest.Add(sw.window)
}

func (sw *slidingWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-sw.window)
	for i := range sw.buckets {
		if !sw.buckets[i].timestamp.IsZero() && sw.buckets[i].timestamp.Before(cutoff) {
			sw.buckets[i] = bucket{}
		}
	}
}

func (sw *slidingWindow) bucketForLocked(now time.Time) *bucket {
	bucketTime := now.Truncate(sw.bucketSize)

	for i := range sw.buckets {
		if sw.buckets[i].timestamp.Equal(bucketTime) {
			return &sw.buckets[i]
		}
	}

	// Reuse an empty slot, then the oldest one.
	target := -1
	for i := range sw.buckets {
		if sw.buckets[i].timestamp.IsZero() {
			target = i
			break
		}
	}
	if target == -1 {
		target = 0
		for i := 1; i < len(sw.buckets); i++ {
			if sw.buckets[i].timestamp.Before(sw.buckets[target].timestamp) {
				target = i
			}
		}
	}

	sw.buckets[target] = bucket{timestamp: bucketTime}
	return &sw.buckets[target]
}
