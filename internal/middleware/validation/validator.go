// Package validation screens review requests at the perimeter: content
// types, body shape and report length. Handlers re-parse the body and stay
// the source of truth for their own inputs.
package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	// MaxReportChars bounds report_text in JSON review requests.
	MaxReportChars int
	Logger         *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxReportChars == 0 {
		cfg.MaxReportChars = 1000000
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		contentType := c.Get("Content-Type")
		path := c.Path()

		if strings.HasSuffix(path, "/api/review/upload") {
			if !strings.Contains(contentType, "multipart/form-data") {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"error": "Uploads must be multipart/form-data",
				})
			}
			return c.Next()
		}

		if strings.HasSuffix(path, "/api/review") {
			if !strings.Contains(contentType, "application/json") {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"error": "Reviews must be application/json",
				})
			}

			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			reportText, ok := req["report_text"].(string)
			if !ok || strings.TrimSpace(reportText) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "report_text is required and must be a non-empty string",
				})
			}

			if len(reportText) > cfg.MaxReportChars {
				cfg.Logger.Warn("Oversized report rejected",
					zap.String("ip", c.IP()),
					zap.Int("chars", len(reportText)),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "report_text exceeds maximum length",
				})
			}
		}

		return c.Next()
	}
}
