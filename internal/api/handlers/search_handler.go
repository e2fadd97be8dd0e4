package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/faq-agent/backend/internal/search"
	"github.com/faq-agent/backend/internal/storage/models"
	"github.com/faq-agent/backend/pkg/logger"
)

type SearchHandler struct {
	engine *search.Engine
}

func NewSearchHandler(engine *search.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

type searchRequest struct {
	Question  string `json:"question"`
	Category  string `json:"category"`
	Limit     int    `json:"limit"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	PageID    string `json:"page_id"`
	Context   string `json:"context"`
}

func (r searchRequest) toEngine() search.Request {
	return search.Request{
		Question:            r.Question,
		Category:            r.Category,
		Limit:               r.Limit,
		SessionID:           r.SessionID,
		UserID:              r.UserID,
		PageID:              r.PageID,
		ConversationContext: r.Context,
	}
}

// HandleSearch returns the raw ranked matches with tier and strategy, for
// callers that render their own response.
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
	}

	result, err := h.engine.Search(c.Context(), req.toEngine())
	if err != nil {
		if errors.Is(err, search.ErrSearchUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Search is temporarily unavailable",
			})
		}
		logger.Error("Search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process search",
		})
	}

	return c.JSON(fiber.Map{
		"matches":  matchesJSON(result.Matches),
		"tier":     result.Tier,
		"strategy": result.Strategy,
	})
}

// HandleAnswer runs the full answer pipeline: search plus the tier's
// response strategy. It degrades instead of failing, so it always returns
// 200 with some answer text.
func (h *SearchHandler) HandleAnswer(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
	}

	result := h.engine.Answer(c.Context(), req.toEngine())

	return c.JSON(fiber.Map{
		"answer":          result.Answer,
		"tier":            result.Tier,
		"strategy":        result.Strategy,
		"used_generation": result.UsedGeneration,
		"matched_doc_id":  result.MatchedDocID,
		"latency_ms":      result.LatencyMS,
	})
}

func matchesJSON(matches []models.FAQMatch) []fiber.Map {
	out := make([]fiber.Map, 0, len(matches))
	for _, m := range matches {
		out = append(out, fiber.Map{
			"document_id": m.DocumentID,
			"question":    m.Question,
			"answer":      m.Answer,
			"category":    m.Category,
			"similarity":  m.Similarity,
		})
	}
	return out
}
