package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	xssPattern   = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)
	termPattern  = regexp.MustCompile(`(?i)(union\s+select|insert\s+into|drop\s+table|delete\s+from|--|;)`)
)

type Config struct {
	MaxSearchLength     int
	MaxUploadSize       int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware rejects oversized uploads, unexpected content types, and
// hostile search terms before they reach a handler.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxSearchLength == 0 {
		cfg.MaxSearchLength = 200
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = 50 * 1024 * 1024
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json", "multipart/form-data"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut || c.Method() == fiber.MethodPatch {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"success": false,
						"error":   "Unsupported content type",
					})
				}
			}

			if len(c.Body()) > cfg.MaxUploadSize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"success": false,
					"error":   "Request body exceeds maximum size",
				})
			}
		}

		if term := c.Query("q"); term != "" {
			if len(term) > cfg.MaxSearchLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"error":   "Search term exceeds maximum length",
				})
			}
			if xssPattern.MatchString(term) || termPattern.MatchString(term) {
				cfg.Logger.Warn("Rejected hostile search term",
					zap.String("ip", c.IP()),
					zap.String("term", term),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"error":   "Invalid search term",
				})
			}
			c.Locals("sanitized_search", Sanitize(term))
		}

		return c.Next()
	}
}

// Sanitize trims a user-supplied string and strips NUL bytes.
func Sanitize(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
