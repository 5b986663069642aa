package ratelimit

import (
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Class separates independently tracked traffic kinds for the same
// client: login attempts use a much stricter budget than general API
// calls.
type Class string

const (
	ClassLogin   Class = "login"
	ClassGeneral Class = "general"
)

// Limit is a request budget over a window.
type Limit struct {
	Requests int
	Window   time.Duration
}

var (
	// DefaultLoginLimit bounds brute-force attempts: 5 requests per 15
	// minutes per client.
	DefaultLoginLimit = Limit{Requests: 5, Window: 15 * time.Minute}
	// DefaultGeneralLimit bounds general API traffic: 100 requests per
	// minute per client.
	DefaultGeneralLimit = Limit{Requests: 100, Window: time.Minute}

	defaultMaxEntries = 16384
)

// Limiter owns one bucket per (client key, class) pair. Buckets are
// created lazily on first use and bounded by an LRU keyed on last access,
// so the map cannot grow without bound with distinct client addresses.
type Limiter struct {
	mu      sync.Mutex
	buckets *lru.Cache[string, *Bucket]
	limits  map[Class]Limit
	now     func() time.Time
}

// Option configures the limiter.
type Option func(*config)

type config struct {
	maxEntries int
	now        func() time.Time
}

// WithMaxEntries bounds the number of live buckets.
func WithMaxEntries(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(c *config) {
		if fn != nil {
			c.now = fn
		}
	}
}

// New constructs a limiter with per-class budgets. Classes absent from
// limits fall back to the defaults.
func New(limits map[Class]Limit, opts ...Option) (*Limiter, error) {
	cfg := config{maxEntries: defaultMaxEntries, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	merged := map[Class]Limit{
		ClassLogin:   DefaultLoginLimit,
		ClassGeneral: DefaultGeneralLimit,
	}
	for class, lim := range limits {
		if lim.Requests <= 0 || lim.Window <= 0 {
			return nil, errors.New("ratelimit: requests and window must be positive")
		}
		merged[class] = lim
	}
	cache, err := lru.New[string, *Bucket](cfg.maxEntries)
	if err != nil {
		return nil, err
	}
	return &Limiter{buckets: cache, limits: merged, now: cfg.now}, nil
}

// Limit returns the budget configured for a class.
func (l *Limiter) Limit(class Class) Limit {
	if lim, ok := l.limits[class]; ok {
		return lim
	}
	return DefaultGeneralLimit
}

// Bucket returns the bucket tracking the given client key and class,
// creating it on first use. Safe for concurrent insert-if-absent.
func (l *Limiter) Bucket(key string, class Class) *Bucket {
	id := string(class) + "|" + key
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets.Get(id); ok {
		return b
	}
	lim := l.Limit(class)
	b := newBucket(lim.Requests, lim.Window, l.now)
	l.buckets.Add(id, b)
	return b
}
