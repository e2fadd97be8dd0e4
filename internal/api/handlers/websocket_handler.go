package handlers

import (
	"context"
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/faq-agent/backend/internal/gap"
	"github.com/faq-agent/backend/internal/search"
	"github.com/faq-agent/backend/pkg/logger"
)

// WebSocketHandler serves live clients: they can ask questions over the
// socket and they receive gap analysis progress events as they happen. It
// implements gap.Notifier, so it is wired into the clusterer directly.
type WebSocketHandler struct {
	engine *search.Engine

	mu    sync.RWMutex
	conns map[*websocket.Conn]*sync.Mutex
}

func NewWebSocketHandler(engine *search.Engine) *WebSocketHandler {
	return &WebSocketHandler{
		engine: engine,
		conns:  make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Notify broadcasts an analysis event to every connected client. A failed
// write only drops that client's event; the read loop owns closing.
func (h *WebSocketHandler) Notify(event gap.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, writeMu := range h.conns {
		writeMu.Lock()
		err := conn.WriteJSON(map[string]interface{}{
			"type":  "analysis_event",
			"event": event,
		})
		writeMu.Unlock()
		if err != nil {
			logger.Debug("Failed to push analysis event", zap.Error(err))
		}
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	writeMu := &sync.Mutex{}
	h.mu.Lock()
	h.conns[c] = writeMu
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, c)
		h.mu.Unlock()
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type      string `json:"type"`
			Question  string `json:"question"`
			Category  string `json:"category"`
			SessionID string `json:"session_id"`
			UserID    string `json:"user_id"`
			PageID    string `json:"page_id"`
			Context   string `json:"context"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "ask" || msg.Question == "" {
			continue
		}

		result := h.engine.Answer(context.Background(), search.Request{
			Question:            msg.Question,
			Category:            msg.Category,
			SessionID:           msg.SessionID,
			UserID:              msg.UserID,
			PageID:              msg.PageID,
			ConversationContext: msg.Context,
		})

		writeMu.Lock()
		err := c.WriteJSON(map[string]interface{}{
			"type":            "answer",
			"answer":          result.Answer,
			"tier":            result.Tier,
			"strategy":        result.Strategy,
			"used_generation": result.UsedGeneration,
			"matched_doc_id":  result.MatchedDocID,
			"latency_ms":      result.LatencyMS,
		})
		writeMu.Unlock()
		if err != nil {
			logger.Error("Failed to write answer", zap.Error(err))
			break
		}
	}
}
