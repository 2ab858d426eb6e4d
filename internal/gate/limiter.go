package gate

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Guest limiter defaults.
const (
	DefaultGuestLimit  = 1
	DefaultGuestWindow = 24 * time.Hour
	DefaultMaxClients  = 10000
)

// unknownClient buckets callers with no client key together.
const unknownClient = "unknown"

// GuestLimiter counts uses per anonymous client. Counts reset once the
// window since a client's first use has passed. At most maxClients are
// tracked; the least recently seen client is forgotten first.
type GuestLimiter struct {
	limit      int
	window     time.Duration
	maxClients int
	now        func() time.Time

	mu      sync.Mutex
	order   *list.List // front = most recently seen
	entries map[string]*list.Element
}

type guestEntry struct {
	key   string
	count int
	first time.Time
}

// LimiterOption configures a GuestLimiter.
type LimiterOption func(*GuestLimiter)

// WithLimit sets uses per window. Zero denies every guest.
func WithLimit(n int) LimiterOption {
	return func(l *GuestLimiter) { l.limit = max(n, 0) }
}

// WithWindow sets how long a client's count lives. Zero or less keeps
// counts until eviction.
func WithWindow(d time.Duration) LimiterOption {
	return func(l *GuestLimiter) { l.window = d }
}

// WithMaxClients bounds tracked clients.
func WithMaxClients(n int) LimiterOption {
	return func(l *GuestLimiter) {
		if n > 0 {
			l.maxClients = n
		}
	}
}

// withClock overrides the clock in tests.
func withClock(now func() time.Time) LimiterOption {
	return func(l *GuestLimiter) { l.now = now }
}

// NewGuestLimiter creates a limiter (default: one use per 24h, 10000 clients).
func NewGuestLimiter(opts ...LimiterOption) *GuestLimiter {
	l := &GuestLimiter{
		limit:      DefaultGuestLimit,
		window:     DefaultGuestWindow,
		maxClients: DefaultMaxClients,
		now:        time.Now,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records one use by key and reports whether it is within the limit.
// Denied calls are not counted.
func (l *GuestLimiter) Allow(key string) bool {
	if key == "" {
		key = unknownClient
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if el, ok := l.entries[key]; ok {
		e := el.Value.(*guestEntry)
		if l.expired(e, now) {
			e.count, e.first = 0, now
		}
		l.order.MoveToFront(el)
		if e.count >= l.limit {
			return false
		}
		e.count++
		return true
	}

	if l.limit == 0 {
		return false
	}
	for l.order.Len() >= l.maxClients {
		l.removeLocked(l.order.Back())
	}
	l.entries[key] = l.order.PushFront(&guestEntry{key: key, count: 1, first: now})
	return true
}

// Remaining returns how many uses key has left in its current window.
func (l *GuestLimiter) Remaining(key string) int {
	if key == "" {
		key = unknownClient
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.entries[key]
	if !ok {
		return l.limit
	}
	e := el.Value.(*guestEntry)
	if l.expired(e, l.now()) {
		return l.limit
	}
	return max(l.limit-e.count, 0)
}

// Prune forgets clients whose window has passed and returns how many.
func (l *GuestLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var removed int
	for el := l.order.Back(); el != nil; {
		prev := el.Prev()
		if l.expired(el.Value.(*guestEntry), now) {
			l.removeLocked(el)
			removed++
		}
		el = prev
	}
	return removed
}

// PruneEvery calls Prune on every tick until ctx is done.
func (l *GuestLimiter) PruneEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune()
		}
	}
}

// Len returns the number of tracked clients.
func (l *GuestLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

func (l *GuestLimiter) expired(e *guestEntry, now time.Time) bool {
	return l.window > 0 && now.Sub(e.first) >= l.window
}

func (l *GuestLimiter) removeLocked(el *list.Element) {
	e := l.order.Remove(el).(*guestEntry)
	delete(l.entries, e.key)
}
