package middleware

import (
	"sync"
	"time"

	"github.com/avarma/deptqa/internal/config"
	"golang.org/x/time/rate"
)

var limiterInstance = NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type IPRateLimiter struct {
	ips       map[string]*limiterEntry
	mu        sync.Mutex
	rateLimit rate.Limit
	burstRate int
	lastPrune time.Time
}

const idleLimiterLifetime = 10 * time.Minute

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:       make(map[string]*limiterEntry),
		rateLimit: r,
		burstRate: b,
		lastPrune: time.Now(),
	}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := time.Now()
	if now.Sub(i.lastPrune) > idleLimiterLifetime {
		i.pruneLocked(now)
	}

	entry, exists := i.ips[ip]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(i.rateLimit, i.burstRate)}
		i.ips[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// pruneLocked drops limiters for IPs not seen in a while so the map does not
// grow without bound. Caller holds the mutex.
func (i *IPRateLimiter) pruneLocked(now time.Time) {
	for ip, entry := range i.ips {
		if now.Sub(entry.lastSeen) > idleLimiterLifetime {
			delete(i.ips, ip)
		}
	}
	i.lastPrune = now
}
