// Package security sets browser protection headers on every response. The
// service speaks JSON only, so the content security policy forbids all
// active content.
package security

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type HeadersConfig struct {
	AllowedOrigins []string
	IsDevelopment  bool
}

// HeadersMiddleware applies the protection headers. Responses carry
// excerpts of uploaded audit reports, so caching is disabled across the
// board. HSTS is skipped in development, where the service runs on
// plain HTTP.
func HeadersMiddleware(cfg HeadersConfig) fiber.Handler {
	policy := contentSecurityPolicy(cfg.AllowedOrigins)

	return func(c *fiber.Ctx) error {
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Cache-Control", "no-store")
		c.Set("Content-Security-Policy", policy)

		if !cfg.IsDevelopment {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		return c.Next()
	}
}

// contentSecurityPolicy builds the JSON-API policy: no active content,
// requests to self and the allowed origins only.
func contentSecurityPolicy(origins []string) string {
	connect := append([]string{"'self'"}, origins...)
	directives := []string{
		"default-src 'none'",
		"connect-src " + strings.Join(connect, " "),
		"frame-ancestors 'none'",
		"base-uri 'self'",
	}
	return strings.Join(directives, "; ")
}
