package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soc-review/backend/internal/llm"
	"github.com/soc-review/backend/internal/metrics"
	"github.com/soc-review/backend/internal/rules"
)

// HealthHandler reports service liveness plus model backend reachability.
// The service stays up when the backend is down (reviews degrade to the
// keyword fallback), so an unreachable backend is "degraded", never an
// unhealthy status code.
type HealthHandler struct {
	generator llm.Generator
	store     *rules.Store
}

// NewHealthHandler accepts a nil generator for offline deployments.
func NewHealthHandler(generator llm.Generator, store *rules.Store) *HealthHandler {
	return &HealthHandler{
		generator: generator,
		store:     store,
	}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	available := false
	if h.generator != nil {
		available = h.generator.Reachable(c.Context())
	}

	if available {
		metrics.LLMUp.Set(1)
	} else {
		metrics.LLMUp.Set(0)
	}

	status := "ok"
	if !available {
		status = "degraded"
	}

	resp := fiber.Map{
		"status":        status,
		"llm_available": available,
		"rules_loaded":  h.store.Count(),
	}
	if h.generator != nil {
		resp["provider"] = h.generator.Name()
		resp["model"] = h.generator.Model()
	}

	return c.JSON(resp)
}
