package httpapi

import (
	"sync"

	"golang.org/x/time/rate"
)

// FirstContactLimiter gates how quickly a single remote address may open
// new connections awaiting first contact, replacing a hand-rolled
// sliding window with golang.org/x/time/rate's token bucket per key.
type FirstContactLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFirstContactLimiter builds a limiter allowing burst immediate
// connections per address, refilling at ratePerSecond thereafter.
func NewFirstContactLimiter(ratePerSecond float64, burst int) *FirstContactLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &FirstContactLimiter{
		rps:      rate.Limit(ratePerSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a new first-contact attempt from key (typically
// the remote address) may proceed right now.
func (l *FirstContactLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	return l.limiterFor(key).Allow()
}

func (l *FirstContactLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[key] = lim
	}
	return lim
}
