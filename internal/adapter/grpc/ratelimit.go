package grpc

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultIdleTTL = 10 * time.Minute

// CallerLimiter gives every caller its own token bucket. Buckets idle for longer
// than idleTTL are dropped, at most once per idleTTL, so a caller coming back
// after a long pause starts with a full burst.
type CallerLimiter struct {
	perSecond rate.Limit
	burst     int
	idleTTL   time.Duration

	mu        sync.Mutex
	buckets   map[string]*callerBucket
	lastSweep time.Time
}

type callerBucket struct {
	tokens *rate.Limiter
	seen   time.Time
}

// NewCallerLimiter returns nil, which admits everything, when perSecond or burst
// is not positive. A non-positive idleTTL means ten minutes.
func NewCallerLimiter(perSecond float64, burst int, idleTTL time.Duration) *CallerLimiter {
	if perSecond <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	return &CallerLimiter{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		idleTTL:   idleTTL,
		buckets:   make(map[string]*callerBucket),
	}
}

// Allow takes one token from key's bucket at now. Blank keys are not limited.
func (l *CallerLimiter) Allow(key string, now time.Time) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	b := l.bucket(key, now)
	return b.tokens.AllowN(now, 1)
}

func (l *CallerLimiter) bucket(key string, now time.Time) *callerBucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &callerBucket{tokens: rate.NewLimiter(l.perSecond, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b
}

func (l *CallerLimiter) sweep(now time.Time) {
	if l.lastSweep.IsZero() {
		l.lastSweep = now
		return
	}
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now

	for key, b := range l.buckets {
		if now.Sub(b.seen) > l.idleTTL {
			delete(l.buckets, key)
		}
	}
}

func (l *CallerLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
