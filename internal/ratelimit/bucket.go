package ratelimit

import (
	"sync"
	"time"
)

// Bucket is a token bucket with continuous lazy refill: the full capacity
// becomes available again over one window, with a full reset once an
// entire window passes untouched. All mutation happens under the bucket's
// own mutex, so unrelated clients never contend.
type Bucket struct {
	mu         sync.Mutex
	capacity   int
	window     time.Duration
	tokens     int
	lastRefill time.Time
	now        func() time.Time
}

func newBucket(capacity int, window time.Duration, now func() time.Time) *Bucket {
	if now == nil {
		now = time.Now
	}
	return &Bucket{
		capacity:   capacity,
		window:     window,
		tokens:     capacity,
		lastRefill: now(),
		now:        now,
	}
}

// TryConsume refills, then takes one token. Returns false when the bucket
// is exhausted.
func (b *Bucket) TryConsume() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Available reports the current token count after refill. Used for the
// X-RateLimit-Remaining header.
func (b *Bucket) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	return b.tokens
}

// ResetTime reports when the bucket is guaranteed to be full again,
// derived from the same refill model as TryConsume. A full bucket resets
// now.
func (b *Bucket) ResetTime() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	if b.tokens >= b.capacity {
		return b.now()
	}
	return b.lastRefill.Add(b.window)
}

func (b *Bucket) refillLocked() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill)
	if elapsed >= b.window {
		b.tokens = b.capacity
		b.lastRefill = now
		return
	}
	added := int(int64(elapsed) * int64(b.capacity) / int64(b.window))
	if added > 0 {
		b.tokens = min(b.capacity, b.tokens+added)
		// Advance the clock only when tokens were actually granted so
		// fractional progress is not lost across many tiny calls.
		b.lastRefill = now
	}
}
