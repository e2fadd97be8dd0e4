package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/faq-agent/backend/pkg/logger"
)

var scriptPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxQuestionLength   int
	MaxAnswerLength     int
	AllowedContentTypes []string
}

// Middleware validates write-path request bodies before routing. Search
// requests need a non-empty question within bounds; document writes need a
// question and an answer. Everything else passes through.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxQuestionLength == 0 {
		cfg.MaxQuestionLength = 2000
	}
	if cfg.MaxAnswerLength == 0 {
		cfg.MaxAnswerLength = 20000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			if resp := checkContentType(c, cfg.AllowedContentTypes); resp != nil {
				return resp
			}
		}

		path := c.Path()

		if strings.HasPrefix(path, "/api/v1/search") && c.Method() == fiber.MethodPost {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "Invalid JSON format")
			}

			question, ok := req["question"].(string)
			question = strings.TrimSpace(question)
			if !ok || question == "" {
				return badRequest(c, "Question is required and must be a string")
			}
			if len(question) > cfg.MaxQuestionLength {
				return badRequest(c, "Question exceeds maximum length")
			}
			if scriptPattern.MatchString(question) {
				logger.Warn("Rejected suspicious question content",
					zap.String("ip", c.IP()),
					zap.String("path", path),
				)
				return badRequest(c, "Invalid question content")
			}
		}

		isDocumentWrite := strings.HasPrefix(path, "/api/v1/documents") &&
			!strings.HasSuffix(path, "/reembed") &&
			(c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut)
		if isDocumentWrite {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "Invalid JSON format")
			}

			question, _ := req["question"].(string)
			answer, _ := req["answer"].(string)

			// PUT allows partial updates, POST needs both fields.
			if c.Method() == fiber.MethodPost {
				if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
					return badRequest(c, "Question and answer are required")
				}
			}
			if len(question) > cfg.MaxQuestionLength {
				return badRequest(c, "Question exceeds maximum length")
			}
			if len(answer) > cfg.MaxAnswerLength {
				return badRequest(c, "Answer exceeds maximum length")
			}
		}

		return c.Next()
	}
}

func checkContentType(c *fiber.Ctx, allowed []string) error {
	contentType := c.Get("Content-Type")
	if contentType == "" {
		return nil
	}
	for _, allowedType := range allowed {
		if strings.Contains(contentType, allowedType) {
			return nil
		}
	}
	return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
		"error": "Unsupported content type",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
