// Package ratelimit bounds per-client request rates. Reviews are
// expensive (one model call per rule), so the budget is keyed by client
// IP and sized for review traffic.
package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	sweepEvery = 5 * time.Minute
	idleAfter  = 10 * time.Minute
)

// Limiter hands out tokens from one budget per client. Budgets refill
// continuously at the configured per-minute rate; idle clients are
// swept out in the background.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*budget

	burst     float64
	perSecond float64
	logger    *zap.Logger
	sweeper   *time.Ticker
	done      chan struct{}
}

type budget struct {
	tokens float64
	seen   time.Time
}

type Config struct {
	MaxRequestsPerMinute int
	Logger               *zap.Logger
}

func New(cfg Config) *Limiter {
	if cfg.MaxRequestsPerMinute <= 0 {
		cfg.MaxRequestsPerMinute = 30
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	l := &Limiter{
		clients:   make(map[string]*budget),
		burst:     float64(cfg.MaxRequestsPerMinute),
		perSecond: float64(cfg.MaxRequestsPerMinute) / 60,
		logger:    cfg.Logger,
		sweeper:   time.NewTicker(sweepEvery),
		done:      make(chan struct{}),
	}

	go l.sweep()

	return l
}

// Middleware rejects requests from clients that spent their budget with
// a 429 and a JSON error body.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()

		if !l.allow(ip) {
			l.logger.Warn("Rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.Path()),
			)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}

		return c.Next()
	}
}

// allow spends one token from the client's budget. Budgets start full
// and refill continuously, so a client that pauses earns requests back
// without waiting for a window boundary.
func (l *Limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.clients[key]
	if !ok {
		b = &budget{tokens: l.burst, seen: now}
		l.clients[key] = b
	}

	b.tokens += now.Sub(b.seen).Seconds() * l.perSecond
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *Limiter) sweep() {
	for {
		select {
		case <-l.done:
			return
		case <-l.sweeper.C:
			cutoff := time.Now().Add(-idleAfter)
			l.mu.Lock()
			for key, b := range l.clients {
				if b.seen.Before(cutoff) {
					delete(l.clients, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop ends the background sweep.
func (l *Limiter) Stop() {
	l.sweeper.Stop()
	close(l.done)
}
