package api

import (
	"net/http"

	"campus-support/backend/internal/service"
	"campus-support/backend/pkg/errors"
	"campus-support/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChatHandler serves the assistant endpoints
type ChatHandler struct {
	assistant     *service.AssistantService
	conversations *service.ConversationService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(assistant *service.AssistantService, conversations *service.ConversationService) *ChatHandler {
	return &ChatHandler{assistant: assistant, conversations: conversations}
}

// RegisterRoutes mounts the chat routes; guards only apply to sending
func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup, guards ...gin.HandlerFunc) {
	chat := rg.Group("/chat")
	{
		chat.POST("", withGuards(guards, h.SendMessage)...)
		chat.GET("/sessions/:id/messages", h.SessionMessages)
	}
}

type chatRequest struct {
	Message   string         `json:"message"`
	SessionID string         `json:"session_id"`
	Context   map[string]any `json:"context"`
}

// SendMessage runs one assistant turn
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.assistant.Chat(c.Request.Context(), service.ChatRequest{
		SessionID: req.SessionID,
		Message:   req.Message,
		Context:   req.Context,
		Actor:     actorFrom(c),
	})
	if err != nil {
		appErr := errors.FromError(err)
		if resp == nil || !appErr.Kind.Retryable() {
			c.Error(err)
			return
		}
		// The user message is stored; let the client retry in the same session.
		logger.FromGin(c).Warn("Assistant turn failed",
			"session_id", resp.SessionID,
			"error_code", appErr.Code,
		)
		c.JSON(appErr.StatusCode, gin.H{
			"session_id": resp.SessionID,
			"message":    service.Apology,
			"retryable":  appErr.Kind.Retryable(),
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SessionMessages returns the recent history of a session
func (h *ChatHandler) SessionMessages(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}

	session, messages, err := h.conversations.SessionHistory(c.Request.Context(), c.Param("id"), actorFrom(c), limit)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":          session.ID,
		"messages":            messages,
		"count":               len(messages),
		"escalated_ticket_id": session.EscalatedTicketID,
	})
}
