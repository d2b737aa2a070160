package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/counsel-report/internal/services"
)

type HealthHandler struct {
	converter services.Converter
	timeout   time.Duration
}

func NewHealthHandler(converter services.Converter) *HealthHandler {
	return &HealthHandler{converter: converter, timeout: 5 * time.Second}
}

// HandleHealth reports the service and its converter. A converter outage is
// reported as degraded rather than failing the probe.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	converter := "healthy"
	status := "healthy"
	if err := h.converter.Health(ctx); err != nil {
		converter = err.Error()
		status = "degraded"
	}

	return c.JSON(fiber.Map{
		"status":    status,
		"converter": converter,
		"time":      time.Now(),
	})
}
