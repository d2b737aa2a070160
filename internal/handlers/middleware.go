package handlers

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"alfredoptarigan/counsel-report/internal/services"
)

// RequireInternalKey rejects requests whose X-Internal-Api-Key header does
// not match secret.
func RequireInternalKey(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(services.InternalAPIKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid internal API key",
			})
		}
		return c.Next()
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		evt := logger.Info()
		if err != nil {
			evt = logger.Error().Err(err)
		}

		evt.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Str("remote_ip", c.IP()).
			Msg("request")

		return err
	}
}
