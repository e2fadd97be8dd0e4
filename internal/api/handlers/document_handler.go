package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/faq-agent/backend/internal/documents"
	"github.com/faq-agent/backend/internal/storage"
	"github.com/faq-agent/backend/internal/storage/models"
	"github.com/faq-agent/backend/pkg/logger"
)

type DocumentHandler struct {
	service *documents.Service
}

func NewDocumentHandler(service *documents.Service) *DocumentHandler {
	return &DocumentHandler{service: service}
}

type documentRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

func (h *DocumentHandler) HandleCreate(c *fiber.Ctx) error {
	var req documentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	doc, err := h.service.Add(c.Context(), req.Question, req.Answer, req.Category)
	if err != nil {
		logger.Error("Failed to add document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to add document",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(documentJSON(doc))
}

func (h *DocumentHandler) HandleGet(c *fiber.Ctx) error {
	doc, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		}
		logger.Error("Failed to get document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get document",
		})
	}

	return c.JSON(documentJSON(doc))
}

func (h *DocumentHandler) HandleList(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)

	docs, err := h.service.List(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to list documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}

	out := make([]fiber.Map, 0, len(docs))
	for i := range docs {
		out = append(out, documentJSON(&docs[i]))
	}

	return c.JSON(fiber.Map{"documents": out, "count": len(out)})
}

func (h *DocumentHandler) HandleUpdate(c *fiber.Ctx) error {
	var req documentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	doc, err := h.service.Update(c.Context(), c.Params("id"), req.Question, req.Answer, req.Category)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		}
		logger.Error("Failed to update document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update document",
		})
	}

	return c.JSON(documentJSON(doc))
}

func (h *DocumentHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		}
		logger.Error("Failed to delete document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete document",
		})
	}

	return c.JSON(fiber.Map{"status": "deleted"})
}

// HandleReembed recomputes every document's vectors. Long-running; intended
// for operator use after switching embedding providers.
func (h *DocumentHandler) HandleReembed(c *fiber.Ctx) error {
	succeeded, failed, err := h.service.ReembedAll(c.Context())
	if err != nil {
		logger.Error("Re-embed pass failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":     "Re-embed failed",
			"succeeded": succeeded,
			"failed":    failed,
		})
	}

	return c.JSON(fiber.Map{
		"succeeded": succeeded,
		"failed":    failed,
	})
}

func documentJSON(doc *models.FAQDocument) fiber.Map {
	return fiber.Map{
		"id":         doc.ID,
		"question":   doc.Question,
		"answer":     doc.Answer,
		"category":   doc.Category,
		"created_at": doc.CreatedAt,
		"updated_at": doc.UpdatedAt,
	}
}
