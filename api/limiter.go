package api

import (
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/khaledhikmat/vs-live/service/lgr"
)

// rateLimiter keeps one token bucket per client IP.
type rateLimiter struct {
	mu        sync.Mutex
	bucket    map[string]*rate.Limiter
	rate      rate.Limit
	burstSize int
}

func newRateLimiter(reqRate rate.Limit, burstSize int) *rateLimiter {
	return &rateLimiter{
		bucket:    make(map[string]*rate.Limiter),
		rate:      reqRate,
		burstSize: burstSize,
	}
}

func (r *rateLimiter) limiterFor(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.bucket[ip]
	if !ok {
		l = rate.NewLimiter(r.rate, r.burstSize)
		r.bucket[ip] = l
	}
	return l
}

func (r *rateLimiter) handle(c *fiber.Ctx) error {
	ip := c.IP()
	if !r.limiterFor(ip).Allow() {
		lgr.Logger.Warn("too many requests", slog.String("ip", ip), slog.String("path", c.Path()))
		return reply(c, fiber.StatusTooManyRequests, "too many requests")
	}
	return c.Next()
}
