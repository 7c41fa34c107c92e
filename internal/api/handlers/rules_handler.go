package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soc-review/backend/internal/rules"
)

type RulesHandler struct {
	store *rules.Store
}

func NewRulesHandler(store *rules.Store) *RulesHandler {
	return &RulesHandler{
		store: store,
	}
}

// ListRules returns the configured checklist in evaluation order.
func (h *RulesHandler) ListRules(c *fiber.Ctx) error {
	list := h.store.Rules()

	return c.JSON(fiber.Map{
		"rules": list,
		"count": len(list),
	})
}
