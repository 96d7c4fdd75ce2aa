package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/storynest/storynest/internal/present/rest/presenter"
)

const limiterIdle = 10 * time.Minute

// RateLimiter keeps one token bucket per client. Authenticated clients are
// keyed by user id, anonymous ones by IP. Idle buckets expire.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *cache.Cache
	rate     rate.Limit
	burst    int
	rejected func(route string)
}

// NewRateLimiter allows perSecond requests per client with the given burst.
// rejected, if non-nil, is called for every refused request.
func NewRateLimiter(perSecond float64, burst int, rejected func(route string)) *RateLimiter {
	if rejected == nil {
		rejected = func(string) {}
	}
	return &RateLimiter{
		limiters: cache.New(limiterIdle, limiterIdle/2),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		rejected: rejected,
	}
}

func (rl *RateLimiter) limiter(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters.Get(client); ok {
		limiter := l.(*rate.Limiter)
		rl.limiters.SetDefault(client, limiter)
		return limiter
	}
	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters.SetDefault(client, limiter)
	return limiter
}

func (rl *RateLimiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		client := RequesterID(c)
		if client == "" {
			client = "ip:" + c.RealIP()
		}

		if !rl.limiter(client).Allow() {
			rl.rejected(c.Path())
			retryAfter := 1
			if rl.rate > 0 {
				retryAfter = max(int(1.0/float64(rl.rate)), 1)
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
			return presenter.TooManyRequests(c)
		}
		return next(c)
	}
}
