package middleware

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/tajious/ejare/internal/config"
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/kv"
	"github.com/tajious/ejare/internal/logger"
)

var errTooManyRequests = apperrors.New(apperrors.CodeRateLimit, "تعداد درخواست‌ها از این آدرس بیش از حد مجاز است")

// RateLimiter caps requests per client IP and scope. Every admitted request
// re-arms the window, so a client is released once Window passes without an
// admitted request.
type RateLimiter struct {
	store  kv.Store
	cfg    config.RateLimitConfig
	logger *logger.Logger
}

func NewRateLimiter(store kv.Store, cfg config.RateLimitConfig, log *logger.Logger) *RateLimiter {
	if log == nil {
		log = logger.Nop()
	}
	return &RateLimiter{store: store, cfg: cfg, logger: log}
}

func (r *RateLimiter) RateLimit(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !r.cfg.Enabled || r.cfg.Limit <= 0 {
			return c.Next()
		}

		ip := c.IP()
		if ip == "" {
			ip = c.Context().RemoteIP().String()
		}
		key := kv.RateLimitKey("ip:"+scope, ip)

		count, err := r.checkRateLimit(c.UserContext(), key)
		if err != nil {
			// The limiter fails open; the tenant lockout still applies.
			r.logger.Error(c.UserContext(), "rate limiter unavailable", err)
			return c.Next()
		}
		if count < 0 {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(r.cfg.Window.Seconds())))
			return errTooManyRequests
		}
		return c.Next()
	}
}

// checkRateLimit returns -1 when the key is over the limit.
func (r *RateLimiter) checkRateLimit(ctx context.Context, key string) (int, error) {
	count, err := r.store.GetCount(ctx, key)
	if err != nil {
		return 0, err
	}
	if count >= r.cfg.Limit {
		return -1, nil
	}
	return r.store.Increment(ctx, key, r.cfg.Window)
}
