package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tajious/ejare/internal/logger"
	"github.com/tajious/ejare/internal/metrics"
)

const HeaderRequestID = "X-Request-ID"

// RequestContext assigns a request id and seeds the user context with a
// request-scoped logger.
func RequestContext(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)

		ctx := log.WithRequestID(c.UserContext(), id)
		ctx = log.WithFields(ctx, map[string]any{
			"method": c.Method(),
			"path":   c.Path(),
		})
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// AccessLog renders chain errors through the app's error handler so the final
// status is known, then logs the request and records its metrics.
func AccessLog(log *logger.Logger, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().Config().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		elapsed := time.Since(start)
		route := c.Route().Path

		m.ObserveHTTP(c.Method(), route, strconv.Itoa(status), elapsed)

		ctx := log.WithFields(c.UserContext(), map[string]any{
			"status":     status,
			"latency_ms": elapsed.Milliseconds(),
			"ip":         c.IP(),
		})
		switch {
		case status >= fiber.StatusInternalServerError:
			log.Warn(ctx, "request failed")
		case status >= fiber.StatusBadRequest:
			log.Info(ctx, "request rejected")
		default:
			log.Debug(ctx, "request completed")
		}
		return nil
	}
}
